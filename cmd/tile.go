/*
Copyright © 2024 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/skysift/dmgtiles/mercator"
	"github.com/skysift/dmgtiles/tileset"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var optLat, optLon float64

// tileCmd represents the tile command
var tileCmd = &cobra.Command{
	Use:   "tile",
	Short: "Show the tiles covering a lat/lon",
	Long: `Print the raw tiler (XYZ) tile covering --lat/--lon at --zoom, its
canonical file name under {des}/cropped/{disaster}/{image_id}/{zoom}/,
and the WGS84 bounds of the canonical tile.
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		zoom := viper.GetInt("zoom")
		size := viper.GetInt("size")
		if zoom < 0 || zoom > 32 {
			log.Fatalln("zoom out of range:", zoom)
		}

		raw := maptile.At(orb.Point{optLon, optLat}, maptile.Zoom(zoom))
		c := tileset.Canonical(raw, size)
		mx, my := mercator.LatLonToMeters(optLat, optLon)
		b := mercator.TileBound(zoom, size, c.Col, c.Row)

		fmt.Printf("lat/lon     %.8f, %.8f\n", optLat, optLon)
		fmt.Printf("meters      %.3f, %.3f\n", mx, my)
		fmt.Printf("tiler       %d/%d/%d.png\n", raw.Z, raw.X, raw.Y)
		fmt.Printf("canonical   %d/%s\n", zoom, c.Name())
		fmt.Printf("bounds      lat [%.8f, %.8f] lon [%.8f, %.8f]\n",
			b.Min.Lat(), b.Max.Lat(), b.Min.Lon(), b.Max.Lon())
	},
}

func init() {
	rootCmd.AddCommand(tileCmd)
	tileCmd.Flags().Float64Var(&optLat, "lat", 0, "Latitude in degrees")
	tileCmd.Flags().Float64Var(&optLon, "lon", 0, "Longitude in degrees")
}
