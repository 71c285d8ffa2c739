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

	"github.com/skysift/dmgtiles/common"
	"github.com/skysift/dmgtiles/gdal"
	"github.com/skysift/dmgtiles/ledger"
	"github.com/skysift/dmgtiles/maxar"
	"github.com/skysift/dmgtiles/pairing"
	"github.com/skysift/dmgtiles/prep"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// openPipeline builds a pipeline from the loaded configuration.
// The returned closer releases the ledger.
func openPipeline(withFetcher bool) (*prep.Pipeline, func(), error) {
	config, err := loadPrepConfig()
	if err != nil {
		return nil, nil, err
	}

	var fetcher prep.Fetcher
	if withFetcher {
		mc, err := loadMaxarConfig()
		if err != nil {
			return nil, nil, err
		}
		catalog, err := maxar.NewCatalog(mc)
		if err != nil {
			return nil, nil, err
		}
		fetcher = catalog
	}

	l, err := ledger.Open(config.LedgerPath(), false)
	if err != nil {
		return nil, nil, err
	}
	p, err := prep.New(config, gdal.NewExec(), fetcher, l)
	if err != nil {
		l.Close()
		return nil, nil, err
	}
	return p, func() {
		if err := l.Close(); err != nil {
			slog.Error("Failed to close ledger", "error", err)
		}
	}, nil
}

// runStage loads the pair lists and hands them to fn with an
// interrupt-aware context.
func runStage(withFetcher bool, fn func(ctx context.Context, p *prep.Pipeline, prePost, prePre []pairing.Record) error) {
	p, closer, err := openPipeline(withFetcher)
	if err != nil {
		log.Fatalln(err)
	}
	defer closer()

	prePost, prePre, err := p.PairLists()
	if err != nil {
		slog.Error("Failed to load pair lists", "error", err)
		closer()
		log.Fatalln(err)
	}

	ctx, cancel := common.CancelOnInterrupt(context.Background())
	defer cancel()
	if err := fn(ctx, p, prePost, prePre); err != nil {
		slog.Error("Stage failed", "error", err)
		cancel()
		closer()
		log.Fatalln(err)
	}
}

// prepCmd represents the prep command
var prepCmd = &cobra.Command{
	Use:   "prep",
	Short: "Download, crop, prune and pair one disaster",
	Long: `Run every stage for the image ids named by the pair lists:

  1. download  missing captures into {src}/{disaster}/{image_id}/ (unless --download=false)
  2. crop      warp to EPSG:4326, tile at --zoom/--size, canonicalize into {des}/cropped/{disaster}/
  3. prune     delete tiles holding more than --threshold blank units
  4. pair      copy matching pre/post, then pre/pre tiles into {des}/images_256/{disaster}/

Pre/post pairs are numbered from 1; pre/pre numbers continue after the last pre/post pair.
An interrupt stops at the next image or pair boundary; a second interrupt exits immediately.
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		p, closer, err := openPipeline(viper.GetBool("download"))
		if err != nil {
			log.Fatalln(err)
		}
		defer closer()

		ctx, cancel := common.CancelOnInterrupt(context.Background())
		defer cancel()
		if err := p.Run(ctx); err != nil {
			slog.Error("Prep failed", "error", err)
			cancel()
			closer()
			log.Fatalln(err)
		}
	},
}

var cropCmd = &cobra.Command{
	Use:   "crop",
	Short: "Warp, tile and canonicalize captures",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		runStage(false, func(ctx context.Context, p *prep.Pipeline, prePost, prePre []pairing.Record) error {
			return p.Crop(ctx, pairing.ImageIDs(prePost, prePre))
		})
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete near-blank canonical tiles",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		runStage(false, func(ctx context.Context, p *prep.Pipeline, prePost, prePre []pairing.Record) error {
			return p.Prune(ctx, pairing.ImageIDs(prePost, prePre))
		})
	},
}

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair canonical tiles into the dataset tree",
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)
		runStage(false, func(ctx context.Context, p *prep.Pipeline, prePost, prePre []pairing.Record) error {
			n, err := p.Pair(ctx, prePost, prePre)
			slog.Info("Paired", "pairs", n)
			return err
		})
	},
}

func init() {
	rootCmd.AddCommand(prepCmd)
	rootCmd.AddCommand(cropCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(pairCmd)
}
