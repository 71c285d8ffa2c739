package tileset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
	"github.com/skysift/dmgtiles/mercator"
)

// RawTiles walks tiler output {tilerDir}/{z}/{col}/{row}.png and
// returns the raw (top-left origin) tiles with their file paths.
// A missing zoom directory yields no tiles.
func RawTiles(tilerDir string, z int) (map[maptile.Tile]string, error) {
	out := map[maptile.Tile]string{}
	zoomDir := filepath.Join(tilerDir, strconv.Itoa(z))
	cols, err := os.ReadDir(zoomDir)
	if errors.Is(err, fs.ErrNotExist) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for _, ce := range cols {
		if !ce.IsDir() {
			continue
		}
		col, err := strconv.ParseUint(ce.Name(), 10, 32)
		if err != nil {
			slog.Debug("Skipping non-tile directory", "dir", filepath.Join(zoomDir, ce.Name()))
			continue
		}
		colDir := filepath.Join(zoomDir, ce.Name())
		rows, err := os.ReadDir(colDir)
		if err != nil {
			return nil, err
		}
		for _, re := range rows {
			name, ok := strings.CutSuffix(re.Name(), tileExt)
			if re.IsDir() || !ok {
				continue
			}
			row, err := strconv.ParseUint(name, 10, 32)
			if err != nil {
				slog.Debug("Skipping non-tile file", "path", filepath.Join(colDir, re.Name()))
				continue
			}
			t := maptile.New(uint32(col), uint32(row), maptile.Zoom(z))
			out[t] = filepath.Join(colDir, re.Name())
		}
	}
	return out, nil
}

// Canonical returns the canonical coordinate of a raw tiler tile.
func Canonical(t maptile.Tile, size int) Coord {
	return Coord{Row: mercator.CanonicalRowOf(t, size), Col: int(t.X)}
}

// Canonicalize moves every raw tile under tilerDir into
// {root}/{imageID}/{z}/{row}_{col}.png and returns the number moved.
// An existing canonical tile with the same name is replaced.
func Canonicalize(z, size int, tilerDir, root, imageID string) (int, error) {
	raw, err := RawTiles(tilerDir, z)
	if err != nil {
		return 0, fmt.Errorf("canonicalize %s: %w", imageID, err)
	}
	if len(raw) == 0 {
		slog.Warn("Tiler produced no tiles", "image", imageID, "zoom", z, "dir", tilerDir)
		return 0, nil
	}
	dst := ZoomDir(root, imageID, z)
	if err := os.MkdirAll(dst, 0770); err != nil {
		return 0, err
	}
	moved := 0
	for t, src := range raw {
		c := Canonical(t, size)
		target := filepath.Join(dst, c.Name())
		if err := os.Rename(src, target); err != nil {
			return moved, fmt.Errorf("canonicalize %s tile %d/%d: %w", imageID, t.X, t.Y, err)
		}
		moved++
	}
	slog.Debug("Canonicalized tiles", "image", imageID, "zoom", z, "moved", moved)
	return moved, nil
}
