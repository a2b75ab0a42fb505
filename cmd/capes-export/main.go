// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the capes-export CLI.
//
// capes-export harvests bibliographic records from the CAPES Periódicos
// result listing, page by page, and writes them as RIS or BibTeX. Progress
// is checkpointed after every page so an interrupted harvest continues with
// the resume command.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the capes-export CLI.
var rootCmd = &cobra.Command{
	Use:   "capes-export",
	Short: "Export CAPES Periódicos search results as citation files",
	Long: `capes-export walks a CAPES Periódicos result listing one page at a time,
extracts the bibliographic records from each page, and writes the accumulated
set as a RIS or BibTeX document.

Progress is persisted after every page. A harvest interrupted between pages
(crash, rate limit, Ctrl-C) is continued with "capes-export resume"; a single
invocation with --follow walks all pages in one go.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./capes-export.yaml or ~/.config/capes-export/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("capes-export")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "capes-export"))
		}
	}

	viper.SetEnvPrefix("CAPES_EXPORT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
