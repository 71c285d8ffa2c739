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
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/skysift/dmgtiles/ledger"
	"github.com/skysift/dmgtiles/params"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recorded runs from the ledger",
	Long: `Print per-run totals from {des}/dmgtiles.db: images cropped, tiles
produced, pruned and kept, pairs written, and copied tiles per pair.
`,
	Run: func(cmd *cobra.Command, args []string) {
		setDefaultSlog(cmd, args)

		path := filepath.Join(viper.GetString("des"), params.LedgerDBName)
		if _, err := os.Stat(path); err != nil {
			log.Fatalln(err)
		}
		l, err := ledger.Open(path, true)
		if err != nil {
			log.Fatalln(err)
		}
		defer l.Close()

		runs, err := l.Runs()
		if err != nil {
			log.Fatalln(err)
		}
		disaster := viper.GetString("disaster")
		for _, run := range runs {
			fp := run.Fingerprint
			if disaster != "" && fp.Disaster != disaster {
				continue
			}
			s := run.Summary()
			var last time.Time
			for _, e := range run.Images {
				if e.Time.After(last) {
					last = e.Time
				}
			}
			for _, e := range run.Pairs {
				if e.Time.After(last) {
					last = e.Time
				}
			}
			fmt.Printf("%s  %s zoom=%d size=%d threshold=%d criterion=%s  updated %s\n",
				run.Key, fp.Disaster, fp.Zoom, fp.Size, fp.Threshold, fp.Criterion, humanize.Time(last))
			fmt.Printf("  images %s  tiles %s  pruned %s  kept %s\n",
				humanize.Comma(int64(s.Images)), humanize.Comma(int64(s.Tiles)),
				humanize.Comma(int64(s.Pruned)), humanize.Comma(int64(s.Kept)))
			fmt.Printf("  pairs %s (%s empty)  copied %s  per pair mean %.1f median %.1f max %.0f\n",
				humanize.Comma(int64(s.Pairs)), humanize.Comma(int64(s.EmptyPairs)),
				humanize.Comma(int64(s.Copied)), s.CopiedMean, s.CopiedMedian, s.CopiedMax)
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}
