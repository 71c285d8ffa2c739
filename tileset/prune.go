package tileset

import (
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/png"
	"log/slog"
	"os"
)

// Criterion selects what counts as one blank unit of a tile.
type Criterion int

const (
	// ZeroSamples counts each R, G or B channel value equal to 0.
	ZeroSamples Criterion = iota
	// BlackPixels counts pixels whose R, G and B are all 0.
	BlackPixels
)

func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "samples", "":
		return ZeroSamples, nil
	case "pixels":
		return BlackPixels, nil
	}
	return 0, fmt.Errorf("unknown blank criterion %q", s)
}

func (c Criterion) String() string {
	switch c {
	case ZeroSamples:
		return "samples"
	case BlackPixels:
		return "pixels"
	}
	return fmt.Sprintf("Criterion(%d)", int(c))
}

// CountBlank counts blank units in img.
// Channels are compared as non-premultiplied 8-bit values; alpha is ignored.
func CountBlank(img image.Image, crit Criterion) int {
	count := func(r, g, b uint8) int {
		if crit == BlackPixels {
			if r == 0 && g == 0 && b == 0 {
				return 1
			}
			return 0
		}
		n := 0
		for _, v := range [3]uint8{r, g, b} {
			if v == 0 {
				n++
			}
		}
		return n
	}

	b := img.Bounds()
	n := 0
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				i := nrgba.PixOffset(x, y)
				n += count(nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
			}
		}
		return n
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			n += count(c.R, c.G, c.B)
		}
	}
	return n
}

// PruneTile deletes the tile at path if it holds more than threshold blank units.
// A tile that cannot be decoded is kept.
func PruneTile(path string, threshold int, crit Criterion) (pruned bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	img, _, decodeErr := image.Decode(f)
	if err := f.Close(); err != nil {
		return false, err
	}
	if decodeErr != nil {
		slog.Warn("Keeping undecodable tile", "path", path, "error", decodeErr)
		return false, nil
	}
	if CountBlank(img, crit) <= threshold {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, err
	}
	return true, nil
}

// PruneResult summarizes pruning for one image.
type PruneResult struct {
	ImageID string
	Kept    int
	Pruned  int
}

// Prune removes near-blank canonical tiles of the given images at zoom z.
// Only images named in ids are touched.
func Prune(ctx context.Context, root string, z int, ids []string, threshold int, crit Criterion) ([]PruneResult, error) {
	results := make([]PruneResult, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		listing, err := Index(root, id, z)
		if err != nil {
			return results, err
		}
		res := PruneResult{ImageID: id}
		for _, c := range listing.Coords() {
			pruned, err := PruneTile(TilePath(root, id, z, c), threshold, crit)
			if err != nil {
				return results, fmt.Errorf("prune %s tile %s: %w", id, c, err)
			}
			if pruned {
				res.Pruned++
			} else {
				res.Kept++
			}
		}
		slog.Info("Pruned tiles", "image", id, "zoom", z, "pruned", res.Pruned, "kept", res.Kept)
		results = append(results, res)
	}
	return results, nil
}
