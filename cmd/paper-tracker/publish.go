// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-tracker/internal/arxiv"
	"github.com/pdiddy/paper-tracker/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Run the daily update of the tracked paper repository",
	Long: `Publish fetches papers for the configured topics over a short trailing
window ending today, appends previously unseen papers to the month archive
(archives/YYYY-MM.md) under the target directory, and rewrites the README
latest section with today's additions.

Topics default to the built-in list and can be overridden with a YAML
topics file. Re-running publish on the same day is safe: archived papers
are never appended twice and the latest section is rebuilt to show the
whole day. A failed fetch leaves every file untouched.

Committing and pushing the updated files is the job of the surrounding
automation, not this command.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().String("target-dir", "", "tracked repository root (default: . or PAPER_TRACKER_TARGET_DIR)")
	publishCmd.Flags().String("topics-file", "", "YAML file overriding the built-in topics")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg := publish.DefaultConfig()

	if topicsFile, _ := cmd.Flags().GetString("topics-file"); topicsFile != "" {
		loaded, err := publish.LoadConfig(topicsFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flag wins over config file and environment for the target path.
	if targetDir, _ := cmd.Flags().GetString("target-dir"); targetDir != "" {
		cfg.TargetDir = targetDir
	} else if v := viper.GetString("target_dir"); v != "" {
		cfg.TargetDir = v
	}

	client := arxiv.NewClient(fetchSettings())
	summary, err := publish.Run(context.Background(), client, cfg, time.Now().UTC(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Partial {
		fmt.Fprintln(os.Stderr, "warning: published from an incomplete fetch; missing papers will be picked up by the next run")
	}
	return nil
}
