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
	"log/slog"
	"os"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/skysift/dmgtiles/common"
	"github.com/skysift/dmgtiles/params"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   params.AppName,
	Short: "Prepare paired pre/post disaster satellite tiles",
	Long: `dmgtiles downloads Maxar Open Data captures for one disaster event,
reprojects and tiles them, prunes near-blank tiles, and pairs matching
pre/post (and pre/pre) tiles into a numbered training dataset:

  {des}/images_256/{disaster}/{pre_post|pre_pre}/{n:08d}/{disaster}_{n:08d}_{pre|post}_disaster_{i}.png

Flags may also be set in ~/.dmgtiles.yaml or as DMGTILES_* environment variables.

Examples:

  dmgtiles prep --disaster Kahramanmaras-turkey-earthquake-23 --pre_post ./pre_post.csv --pre_pre ./pre_pre.csv
  dmgtiles pair --disaster Kahramanmaras-turkey-earthquake-23
  dmgtiles tile --lat 37.17 --lon 37.03
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := params.DefaultPrepConfig()
	// Accept --pre-post for --pre_post; config keys keep underscores.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "-", "_"))
	})
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.dmgtiles.yaml)")
	pf.String("verbosity", defaults.Verbosity, "Log level: debug, info, warn, error")
	pf.String("disaster", defaults.Disaster, "Disaster event name, e.g. Kahramanmaras-turkey-earthquake-23")
	pf.StringSlice("disasters", defaults.Disasters, "Optional allow-list of disaster names")
	pf.Int("zoom", defaults.Zoom, "Tile pyramid zoom level")
	pf.Int("size", defaults.Size, "Tile size in pixels")
	pf.Int("processes", defaults.Processes, "Worker processes for the external tiler")
	pf.Int("threshold", defaults.Threshold, "Maximum blank units before a tile is pruned")
	pf.String("criterion", defaults.Criterion, "Blank unit: samples (zero R/G/B values) or pixels (all-black pixels)")
	pf.String("src", defaults.Src, "Capture root; captures live under {src}/{disaster}/{image_id}/")
	pf.String("des", defaults.Des, "Destination root for cropped tiles, pairs and the ledger")
	pf.String("pre_post", defaults.PrePost, "Pre/post pair list (CSV, no header)")
	pf.String("pre_pre", defaults.PrePre, "Pre/pre pair list (CSV, no header)")
	pf.Bool("download", defaults.Download, "Download missing captures before cropping")

	if err := viper.BindPFlags(pf); err != nil {
		log.Fatalln(err)
	}

	maxar := params.DefaultMaxarConfig()
	viper.SetDefault("maxar.bucket", maxar.Bucket)
	viper.SetDefault("maxar.region", maxar.Region)
	viper.SetDefault("maxar.events_prefix", maxar.EventsPrefix)
	viper.SetDefault("maxar.visual_suffix", maxar.VisualSuffix)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".dmgtiles" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(params.DatadirRoot)
		viper.SetConfigType("yaml")
		viper.SetConfigName("." + params.AppName)
	}

	viper.SetEnvPrefix(strings.ToUpper(params.AppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaultSlog applies the configured verbosity to the default logger.
func setDefaultSlog(cmd *cobra.Command, args []string) {
	level, err := common.ParseLevel(viper.GetString("verbosity"))
	if err != nil {
		log.Fatalln(err)
	}
	slog.SetLogLoggerLevel(level)
	slog.Debug("Command", "name", cmd.CommandPath(), "args", args)
}

// loadPrepConfig decodes flags, environment and config file into a PrepConfig.
func loadPrepConfig() (*params.PrepConfig, error) {
	config := params.DefaultPrepConfig()
	if err := viper.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadMaxarConfig() (*params.MaxarConfig, error) {
	config := params.DefaultMaxarConfig()
	if err := viper.UnmarshalKey("maxar", config); err != nil {
		return nil, err
	}
	return config, nil
}
