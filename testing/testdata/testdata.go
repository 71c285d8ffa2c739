package testdata

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
)

// basepath is the root directory of this package.
var basepath string

func init() {
	_, currentFile, _, _ := runtime.Caller(0)
	basepath = filepath.Dir(currentFile)
}

// Path returns the absolute path the given relative file or directory path,
// relative to this testdata/ directory in the user's GOPATH.
// If rel is already absolute, it is returned unmodified.
// Taken from https://github.com/grpc/grpc-go/blob/master/testdata/testdata.go.
func Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}

	return filepath.Join(basepath, rel)
}

var (
	Black = color.RGBA{A: 0xff}
	White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	// Vegetation has one zero channel per pixel.
	Vegetation = color.RGBA{R: 0x00, G: 0x80, B: 0x30, A: 0xff}
)

// WritePNG writes a size x size PNG filled with c, creating parent directories.
func WritePNG(path string, size int, c color.Color) error {
	return WritePNGFunc(path, size, func(x, y int) color.Color { return c })
}

// WritePNGFunc writes a size x size PNG whose pixels are given by fill.
func WritePNGFunc(path string, size int, fill func(x, y int) color.Color) error {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, fill(x, y))
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteTilerTree lays out raw tiler output {dir}/{z}/{col}/{row}.png
// for each [col, row] in tiles, filled with c.
func WriteTilerTree(dir string, z, size int, c color.Color, tiles ...[2]int) error {
	for _, t := range tiles {
		p := filepath.Join(dir, fmt.Sprint(z), fmt.Sprint(t[0]), fmt.Sprintf("%d.png", t[1]))
		if err := WritePNG(p, size, c); err != nil {
			return err
		}
	}
	return nil
}
