package tileset

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
)

// Listing is the set of canonical tiles present for one image at one zoom.
// Coords keeps directory-listing order.
type Listing struct {
	ImageID string
	Zoom    int

	coords []Coord
	set    map[Coord]struct{}
}

func newListing(imageID string, z int) *Listing {
	return &Listing{
		ImageID: imageID,
		Zoom:    z,
		set:     map[Coord]struct{}{},
	}
}

func (l *Listing) add(c Coord) {
	if _, ok := l.set[c]; ok {
		return
	}
	l.set[c] = struct{}{}
	l.coords = append(l.coords, c)
}

// Coords returns the tiles in listing order. The slice must not be modified.
func (l *Listing) Coords() []Coord {
	return l.coords
}

func (l *Listing) Has(c Coord) bool {
	_, ok := l.set[c]
	return ok
}

func (l *Listing) Len() int {
	return len(l.coords)
}

// Index lists the canonical tiles of imageID at zoom z under root.
// A missing tile directory is not an error; it yields an empty listing.
// Files that are not canonical tile names are ignored.
func Index(root, imageID string, z int) (*Listing, error) {
	l := newListing(imageID, z)
	dir := ZoomDir(root, imageID, z)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No tile directory", "image", imageID, "zoom", z, "dir", dir)
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", imageID, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		c, ok := ParseCoord(e.Name())
		if !ok {
			slog.Debug("Skipping non-tile file", "image", imageID, "name", e.Name())
			continue
		}
		l.add(c)
	}
	return l, nil
}
