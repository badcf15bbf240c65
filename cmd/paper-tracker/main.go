// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-tracker CLI.
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

// rootCmd is the base command for the paper-tracker CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-tracker",
	Short: "Track arXiv papers by keyword and publish daily digests",
	Long: `paper-tracker searches the arXiv API for papers whose title or abstract
matches a set of keywords, scoped to the mathematics, computer science, and
statistics subject areas, and renders the results as Markdown.

One-off searches run through the fetch subcommand. The publish subcommand
performs the scheduled daily update of a tracked repository: new papers are
appended to a month-keyed archive file and the README latest section is
rewritten with the day's additions.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paper-tracker.yaml or ~/.config/paper-tracker/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-tracker")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-tracker"))
		}
	}

	viper.SetEnvPrefix("PAPER_TRACKER")
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
