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
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/skysift/dmgtiles/common"
	"github.com/skysift/dmgtiles/maxar"
	"github.com/skysift/dmgtiles/pairing"
	"github.com/skysift/dmgtiles/prep"
	"github.com/spf13/cobra"
)

var optGeoJSON string

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download visual captures from Maxar Open Data",
	Long: `Download the visual captures of every image id named by the pair lists
into {src}/{disaster}/{image_id}/{quadkey}-visual.tif.

With --geojson, download the visual assets linked from an event footprint
FeatureCollection instead (features.#.properties.visual).

Image ids whose directory already exists are skipped.
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		if optGeoJSON == "" {
			runStage(true, func(ctx context.Context, p *prep.Pipeline, prePost, prePre []pairing.Record) error {
				return p.Download(ctx, pairing.ImageIDs(prePost, prePre))
			})
			return
		}

		config, err := loadPrepConfig()
		if err != nil {
			log.Fatalln(err)
		}
		mc, err := loadMaxarConfig()
		if err != nil {
			log.Fatalln(err)
		}
		catalog, err := maxar.NewCatalog(mc)
		if err != nil {
			log.Fatalln(err)
		}
		data, err := os.ReadFile(optGeoJSON)
		if err != nil {
			log.Fatalln(err)
		}

		// Group keys by image id, keeping first-seen order.
		var ids []string
		keys := map[string][]string{}
		for _, href := range maxar.VisualHrefs(data) {
			key, err := maxar.KeyFromHref(mc.Bucket, href)
			if err != nil {
				slog.Warn("Skipping href", "error", err)
				continue
			}
			id, ok := catalog.ImageID(key)
			if !ok {
				slog.Warn("Skipping non-visual key", "key", key)
				continue
			}
			if _, seen := keys[id]; !seen {
				ids = append(ids, id)
			}
			keys[id] = append(keys[id], key)
		}
		slog.Info("Read footprints", "file", optGeoJSON, "images", len(ids))

		ctx, cancel := common.CancelOnInterrupt(context.Background())
		defer cancel()
		dir := config.SourceDir()
		for _, id := range ids {
			if ctx.Err() != nil {
				break
			}
			if _, err := os.Stat(filepath.Join(dir, id)); err == nil {
				slog.Debug("Image already downloaded", "image", id)
				continue
			}
			if _, err := catalog.FetchKeys(ctx, id, keys[id], dir); err != nil {
				slog.Error("Download failed", "image", id, "error", err)
				cancel()
				log.Fatalln(err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	downloadCmd.Flags().StringVar(&optGeoJSON, "geojson", "", "Event footprint GeoJSON to download visual assets from")
}
