package params

import "strconv"

var (
	GdalwarpCommand   = "gdalwarp"
	Gdal2TilesCommand = "gdal2tiles.py"
)

// CLIFlagsT is an argv fragment for an external command.
type CLIFlagsT []string

var (
	// GdalwarpArgs reprojects a capture to WGS84 GeoTIFF.
	// Source and destination are appended by the caller.
	GdalwarpArgs = CLIFlagsT{
		"-t_srs", "EPSG:4326",
		"-of", "GTiff",
		"-overwrite",
		"-q",
	}

	// Gdal2TilesArgs renders a single zoom level of PNG tiles.
	// --xyz keeps the tiler's top-left row origin, which canonicalization expects.
	Gdal2TilesArgs = CLIFlagsT{
		"--zoom", "18",
		"--processes", "4",
		"--tilesize", "256",
		"--s_srs", "EPSG:4326",
		"--profile", "mercator",
		"--xyz",
		"--webviewer", "none",
		"--resume",
	}
)

// Gdal2TilesArgsFor returns a copy of Gdal2TilesArgs set up for one run.
func Gdal2TilesArgsFor(zoom, processes, size int) CLIFlagsT {
	return Gdal2TilesArgs.Copy().
		MustSetPair("--zoom", strconv.Itoa(zoom)).
		MustSetPair("--processes", strconv.Itoa(processes)).
		MustSetPair("--tilesize", strconv.Itoa(size))
}

func (c CLIFlagsT) Add(flag ...string) CLIFlagsT {
	return append(c, flag...)
}

func (c CLIFlagsT) SetPair(key, value string) (next CLIFlagsT, ok bool) {
	for i, f := range c {
		if f == key && i+1 < len(c) {
			(c)[i+1] = value
			return c, true
		}
	}
	return c, false
}

func (c CLIFlagsT) MustSetPair(key, value string) CLIFlagsT {
	next, _ := c.SetPair(key, value)
	return next
}

func (c CLIFlagsT) Remove(key string, vN int) (next CLIFlagsT, ok bool) {
	for i, f := range c {
		if f == key {
			return append((c)[:i], (c)[i+1+vN:]...), true
		}
	}
	return c, false
}

func (c CLIFlagsT) Copy() CLIFlagsT {
	return append(CLIFlagsT{}, c...)
}

/*
Usage: gdal2tiles.py [options] input_file [output]

  -p PROFILE, --profile=PROFILE   Tile cutting profile (mercator,geodetic,raster)
  --xyz                           Use XYZ tile numbering (OSM Slippy Map tiles) instead of TMS
  -s SRS, --s_srs=SRS             The spatial reference system used for the source input data
  -z ZOOM, --zoom=ZOOM            Zoom levels to render (format:'2-5', '10-' or '10')
  -e, --resume                    Resume mode. Generate only missing files.
  --processes=NB_PROCESSES        Number of processes to use for tiling
  --tilesize=PIXELS               Width and height in pixel of a tile
  -w WEBVIEWER, --webviewer=WEBVIEWER
                                  Web viewer to generate (all,google,openlayers,leaflet,mapml,none)
*/
