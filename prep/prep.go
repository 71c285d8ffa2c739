// Package prep runs the preparation stages for one disaster:
// download, crop, prune and pair. Stages run strictly in that order
// and each image id or pair is finished before the next begins.
package prep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/skysift/dmgtiles/gdal"
	"github.com/skysift/dmgtiles/ledger"
	"github.com/skysift/dmgtiles/pairing"
	"github.com/skysift/dmgtiles/params"
	"github.com/skysift/dmgtiles/tileset"
)

// Fetcher downloads the captures of one image id into {dir}/{id}/.
type Fetcher interface {
	FetchImage(ctx context.Context, disaster, imageID, dir string) (int, error)
}

type Pipeline struct {
	Config *params.PrepConfig
	Tiler  gdal.Tiler

	// Fetcher may be nil when downloading is disabled.
	Fetcher Fetcher

	// Ledger is optional.
	Ledger *ledger.Ledger

	criterion tileset.Criterion
	logger    *slog.Logger
}

func New(config *params.PrepConfig, tiler gdal.Tiler, fetcher Fetcher, l *ledger.Ledger) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	crit, err := tileset.ParseCriterion(config.Criterion)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Config:    config,
		Tiler:     tiler,
		Fetcher:   fetcher,
		Ledger:    l,
		criterion: crit,
		logger:    slog.With("disaster", config.Disaster, "zoom", config.Zoom),
	}, nil
}

// PairLists loads the pre/post and pre/pre pair lists.
func (p *Pipeline) PairLists() (prePost, prePre []pairing.Record, err error) {
	prePost, err = pairing.LoadRecords(p.Config.PrePost)
	if err != nil {
		return nil, nil, err
	}
	prePre, err = pairing.LoadRecords(p.Config.PrePre)
	if err != nil {
		return nil, nil, err
	}
	return prePost, prePre, nil
}

// Run executes every stage over the image ids named by the pair lists.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()
	prePost, prePre, err := p.PairLists()
	if err != nil {
		return err
	}
	ids := pairing.ImageIDs(prePost, prePre)
	p.logger.Info("Preparing", "images", len(ids), "pre_post", len(prePost), "pre_pre", len(prePre))

	if p.Config.Download {
		if err := p.Download(ctx, ids); err != nil {
			return err
		}
	}
	if err := p.Crop(ctx, ids); err != nil {
		return err
	}
	if err := p.Prune(ctx, ids); err != nil {
		return err
	}
	n, err := p.Pair(ctx, prePost, prePre)
	if err != nil {
		return err
	}
	p.logger.Info("Prepared", "pairs", n, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

// Download fetches every image id not already present in the source directory.
func (p *Pipeline) Download(ctx context.Context, ids []string) error {
	if p.Fetcher == nil {
		return errors.New("download: no fetcher configured")
	}
	dir := p.Config.SourceDir()
	if err := os.MkdirAll(dir, 0770); err != nil {
		return err
	}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.Fetcher.FetchImage(ctx, p.Config.Disaster, id, dir); err != nil {
			return fmt.Errorf("download %s: %w", id, err)
		}
	}
	p.logger.Info("Download complete", "images", len(ids))
	return nil
}

// Crop reprojects and tiles every capture of each image id, in sorted order,
// into the canonical tile tree. Image ids that already have a tile
// directory at the configured zoom are skipped. The zoom directory only
// appears once every capture of the id has been tiled.
func (p *Pipeline) Crop(ctx context.Context, ids []string) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	for _, id := range sorted {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.cropImage(ctx, id); err != nil {
			return fmt.Errorf("crop %s: %w", id, err)
		}
	}
	return nil
}

func (p *Pipeline) cropImage(ctx context.Context, id string) error {
	root := p.Config.CroppedDir()
	zoomDir := tileset.ZoomDir(root, id, p.Config.Zoom)
	if _, err := os.Stat(zoomDir); err == nil {
		p.logger.Info("Already cropped", "image", id)
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	sources, err := filepath.Glob(filepath.Join(p.Config.SourceDir(), id, "*.tif"))
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		p.logger.Warn("No captures for image", "image", id, "dir", filepath.Join(p.Config.SourceDir(), id))
		return nil
	}

	// A staging tree left by an interrupted crop is discarded.
	staging := filepath.Join(root, id+".part")
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	stagedRoot := filepath.Join(staging, "canonical")
	total := 0
	for _, src := range sources {
		fileID := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		scratch := filepath.Join(staging, "captures", fileID)
		if err := os.MkdirAll(scratch, 0770); err != nil {
			return err
		}
		warped := filepath.Join(scratch, fileID+"-4326.tif")
		if err := p.Tiler.Warp(ctx, src, warped); err != nil {
			return err
		}
		tilerDir := filepath.Join(scratch, "tiles")
		if err := p.Tiler.Tile(ctx, warped, tilerDir, p.Config.Zoom, p.Config.Processes, p.Config.Size); err != nil {
			return err
		}
		n, err := tileset.Canonicalize(p.Config.Zoom, p.Config.Size, tilerDir, stagedRoot, id)
		if err != nil {
			return err
		}
		total += n
		if err := os.RemoveAll(scratch); err != nil {
			return err
		}
	}
	staged := tileset.ZoomDir(stagedRoot, id, p.Config.Zoom)
	if err := os.MkdirAll(staged, 0770); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(zoomDir), 0770); err != nil {
		return err
	}
	if err := os.Rename(staged, zoomDir); err != nil {
		return err
	}
	if err := os.RemoveAll(staging); err != nil {
		return err
	}
	p.logger.Info("Cropped", "image", id, "captures", len(sources), "tiles", total)
	if p.Ledger != nil {
		return p.Ledger.UpdateImage(p.Config.Fingerprint(), id, func(e *ledger.ImageEntry) {
			e.Tiles = total
		})
	}
	return nil
}

// Prune removes near-blank canonical tiles of the image ids.
func (p *Pipeline) Prune(ctx context.Context, ids []string) error {
	results, err := tileset.Prune(ctx, p.Config.CroppedDir(), p.Config.Zoom, ids, p.Config.Threshold, p.criterion)
	if p.Ledger != nil {
		for _, r := range results {
			if lerr := p.Ledger.UpdateImage(p.Config.Fingerprint(), r.ImageID, func(e *ledger.ImageEntry) {
				e.Pruned, e.Kept = r.Pruned, r.Kept
			}); lerr != nil {
				return lerr
			}
		}
	}
	return err
}

// Pair writes pre/post pairs numbered from pairing.FirstNumber followed by
// pre/pre pairs continuing the same numbering. It returns the number of
// pairs written.
func (p *Pipeline) Pair(ctx context.Context, prePost, prePre []pairing.Record) (int, error) {
	pairer, err := pairing.NewPairer(p.Config.CroppedDir(), p.Config.PairedDir(), p.Config.Disaster, p.Config.Zoom)
	if err != nil {
		return 0, err
	}
	n := pairing.FirstNumber
	for _, phase := range []struct {
		kind    pairing.Kind
		records []pairing.Record
	}{
		{pairing.PrePost, prePost},
		{pairing.PrePre, prePre},
	} {
		next, results, err := pairer.Phase(ctx, phase.kind, phase.records, n)
		if lerr := p.recordPairs(results); lerr != nil {
			return next - pairing.FirstNumber, lerr
		}
		if err != nil {
			return next - pairing.FirstNumber, err
		}
		n = next
	}
	return n - pairing.FirstNumber, nil
}

func (p *Pipeline) recordPairs(results []pairing.Result) error {
	if p.Ledger == nil {
		return nil
	}
	fp := p.Config.Fingerprint()
	for _, r := range results {
		if err := p.Ledger.PutPair(fp, ledger.PairEntry{
			Number: r.Number,
			Kind:   string(r.Kind),
			Pre:    r.Record.Pre,
			Post:   r.Record.Post,
			Copied: r.Copied,
		}); err != nil {
			return err
		}
	}
	return nil
}
