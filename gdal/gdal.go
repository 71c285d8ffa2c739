// Package gdal runs the external raster tools that reproject captures
// and render them into PNG tile pyramids.
package gdal

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/skysift/dmgtiles/params"
)

// Tiler reprojects and tiles rasters. Tile writes {dstDir}/{zoom}/{col}/{row}.png
// with a top-left row origin.
type Tiler interface {
	Warp(ctx context.Context, src, dst string) error
	Tile(ctx context.Context, src, dstDir string, zoom, processes, size int) error
}

// Exec is a Tiler backed by the gdalwarp and gdal2tiles.py executables.
type Exec struct {
	WarpCommand  string
	TilesCommand string
	logger       *slog.Logger
}

func NewExec() *Exec {
	return &Exec{
		WarpCommand:  params.GdalwarpCommand,
		TilesCommand: params.Gdal2TilesCommand,
		logger:       slog.With("system", "gdal"),
	}
}

// WarpArgs is the full gdalwarp argv for src to dst.
func WarpArgs(src, dst string) params.CLIFlagsT {
	return params.GdalwarpArgs.Copy().Add(src, dst)
}

// TileArgs is the full gdal2tiles argv for src into dstDir.
func TileArgs(src, dstDir string, zoom, processes, size int) params.CLIFlagsT {
	return params.Gdal2TilesArgsFor(zoom, processes, size).Add(src, dstDir)
}

func (e *Exec) Warp(ctx context.Context, src, dst string) error {
	e.logger.Info("Warping", "src", src, "dst", dst)
	return e.run(ctx, e.WarpCommand, WarpArgs(src, dst))
}

func (e *Exec) Tile(ctx context.Context, src, dstDir string, zoom, processes, size int) error {
	e.logger.Info("Tiling", "src", src, "dst", dstDir, "zoom", zoom, "size", size)
	return e.run(ctx, e.TilesCommand, TileArgs(src, dstDir, zoom, processes, size))
}

func (e *Exec) run(ctx context.Context, name string, args params.CLIFlagsT) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if len(out) > 0 {
		e.logger.Debug(fmt.Sprintf("+ %s %s", cmd.Path, strings.Join(cmd.Args[1:], " ")))
		for _, line := range strings.Split(string(out), "\n") {
			if line == "" {
				continue
			}
			e.logger.Debug(line, "command", name)
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
