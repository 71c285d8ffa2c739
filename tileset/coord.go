/*
Package tileset manages the per-image canonical tile trees:
{root}/{image_id}/{zoom}/{row}_{col}.png.

Rows are in the bottom-left convention of package mercator.
The directory listing is the only record of which tiles exist;
Index makes that explicit.
*/
package tileset

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

const tileExt = ".png"

// Coord is a canonical tile coordinate.
type Coord struct {
	Row int
	Col int
}

// Name is the canonical file name of the tile.
func (c Coord) Name() string {
	return fmt.Sprintf("%d_%d%s", c.Row, c.Col, tileExt)
}

func (c Coord) String() string {
	return fmt.Sprintf("%d_%d", c.Row, c.Col)
}

// ParseCoord parses a canonical file name such as "12_40.png".
func ParseCoord(name string) (Coord, bool) {
	base, ok := strings.CutSuffix(name, tileExt)
	if !ok {
		return Coord{}, false
	}
	r, c, ok := strings.Cut(base, "_")
	if !ok {
		return Coord{}, false
	}
	row, err := strconv.Atoi(r)
	if err != nil {
		return Coord{}, false
	}
	col, err := strconv.Atoi(c)
	if err != nil {
		return Coord{}, false
	}
	return Coord{Row: row, Col: col}, true
}

// ZoomDir is the directory holding canonical tiles of one image at zoom z.
func ZoomDir(root, imageID string, z int) string {
	return filepath.Join(root, imageID, strconv.Itoa(z))
}

// TilePath is the canonical path of one tile.
func TilePath(root, imageID string, z int, c Coord) string {
	return filepath.Join(ZoomDir(root, imageID, z), c.Name())
}
