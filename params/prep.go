package params

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

var ErrDisasterNotAllowed = errors.New("disaster not in allow-list")

// PrepConfig configures one preparation run for one disaster.
// Zoom and Size are passed identically to every stage.
type PrepConfig struct {
	// Zoom is the single pyramid level rendered and paired.
	Zoom int `mapstructure:"zoom"`

	// Processes is handed to the external tiler only.
	Processes int `mapstructure:"processes"`

	// Size is the tile edge length in pixels. It must match the tiler output.
	Size int `mapstructure:"size"`

	// Threshold is the maximum number of blank units a tile may contain
	// before it is pruned.
	Threshold int `mapstructure:"threshold"`

	// Criterion names the blank unit: "samples" counts zero-valued
	// R, G and B channel values, "pixels" counts all-black pixels.
	Criterion string `mapstructure:"criterion"`

	// Src is the parent of the per-disaster capture directories:
	// captures live under Src/{disaster}/{image_id}/*.tif.
	Src string `mapstructure:"src"`

	// Des is the destination root. Canonical tiles are written to
	// Des/cropped/{disaster}/, pairs to Des/images_256/{disaster}/.
	Des string `mapstructure:"des"`

	Disaster string `mapstructure:"disaster"`

	// Disasters is an optional allow-list for Disaster. Empty permits any.
	Disasters []string `mapstructure:"disasters"`

	PrePost string `mapstructure:"pre_post"`
	PrePre  string `mapstructure:"pre_pre"`

	// Download enables fetching captures from the object store.
	Download bool `mapstructure:"download"`

	Verbosity string `mapstructure:"verbosity"`
}

func DefaultPrepConfig() *PrepConfig {
	return &PrepConfig{
		Zoom:      18,
		Processes: 4,
		Size:      256,
		Threshold: 500,
		Criterion: "samples",
		Src:       "./images/",
		Des:       "../../data/delta/maxar/",
		PrePost:   "./pre_post.csv",
		PrePre:    "./pre_pre.csv",
		Download:  true,
		Verbosity: "info",
	}
}

// Validate checks the config for values no stage can work with.
func (c *PrepConfig) Validate() error {
	var errs []string
	if c.Disaster == "" {
		errs = append(errs, "disaster is required")
	}
	if c.Zoom < 0 {
		errs = append(errs, fmt.Sprintf("zoom must be >= 0, got %d", c.Zoom))
	}
	if c.Size <= 0 {
		errs = append(errs, fmt.Sprintf("size must be > 0, got %d", c.Size))
	}
	if c.Processes <= 0 {
		errs = append(errs, fmt.Sprintf("processes must be > 0, got %d", c.Processes))
	}
	if c.Threshold < 0 {
		errs = append(errs, fmt.Sprintf("threshold must be >= 0, got %d", c.Threshold))
	}
	switch c.Criterion {
	case "samples", "pixels":
	default:
		errs = append(errs, fmt.Sprintf("criterion must be samples or pixels, got %q", c.Criterion))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation: %s", strings.Join(errs, "; "))
	}
	return c.CheckDisaster()
}

// CheckDisaster rejects a disaster name missing from a non-empty allow-list.
func (c *PrepConfig) CheckDisaster() error {
	if len(c.Disasters) == 0 || slices.Contains(c.Disasters, c.Disaster) {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrDisasterNotAllowed, c.Disaster)
}

// SourceDir is where captures for the disaster are downloaded and read.
func (c *PrepConfig) SourceDir() string {
	return filepath.Join(c.Src, c.Disaster)
}

// CroppedDir is the root of the canonical tile tree for the disaster.
func (c *PrepConfig) CroppedDir() string {
	return filepath.Join(c.Des, CroppedDir, c.Disaster)
}

// PairedDir is the root of the paired dataset tree for the disaster.
func (c *PrepConfig) PairedDir() string {
	return filepath.Join(c.Des, PairedDir, c.Disaster)
}

// LedgerPath is the run ledger database file.
func (c *PrepConfig) LedgerPath() string {
	return filepath.Join(c.Des, LedgerDBName)
}

// Fingerprint is the subset of config that determines tile output.
// Runs with equal fingerprints are recorded together in the ledger.
type Fingerprint struct {
	Disaster  string
	Zoom      int
	Size      int
	Threshold int
	Criterion string
}

func (c *PrepConfig) Fingerprint() Fingerprint {
	return Fingerprint{
		Disaster:  c.Disaster,
		Zoom:      c.Zoom,
		Size:      c.Size,
		Threshold: c.Threshold,
		Criterion: c.Criterion,
	}
}
