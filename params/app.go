package params

import (
	"os"
	"path/filepath"
	"time"
)

const (
	// AppName is used for the config file name and environment prefix.
	AppName = "dmgtiles"

	// LedgerDBName is the bbolt file written under the destination root.
	LedgerDBName = "dmgtiles.db"

	// CroppedDir holds canonical tiles per disaster, per image id.
	CroppedDir = "cropped"

	// PairedDir holds the paired dataset tree per disaster.
	PairedDir = "images_256"
)

// DatadirRoot is the default home for the config file.
var DatadirRoot = func() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "."+AppName)
}()

// CacheCatalogListingTTL bounds how long an object store listing is reused.
var CacheCatalogListingTTL = 30 * time.Minute

// PairerListingCacheSize is the number of per-image tile listings
// a pairer keeps in memory.
var PairerListingCacheSize = 256
