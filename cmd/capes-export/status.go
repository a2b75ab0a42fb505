// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/capes-export/internal/checkpoint"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the export currently in progress",
	Long: `Status prints a summary of the checkpointed export: format, pages
harvested so far, record count, and estimated progress.`,
	RunE: runStatus,
}

// runStatus summarizes the checkpoint as YAML.
type statusSummary struct {
	Format         string  `yaml:"format"`
	StartedAt      string  `yaml:"started_at"`
	ListingURL     string  `yaml:"listing_url"`
	PagesVisited   []int   `yaml:"pages_visited"`
	Records        int     `yaml:"records"`
	EstimatedTotal int     `yaml:"estimated_total"`
	Progress       string  `yaml:"progress"`
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	store, err := checkpoint.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Load()
	if err != nil {
		return err
	}
	if run == nil {
		fmt.Println("no export in progress")
		return nil
	}

	progress := "unknown"
	if run.EstimatedTotal > 0 {
		progress = fmt.Sprintf("%.0f%%", run.Progress()*100)
	}

	summary := statusSummary{
		Format:         string(run.Format),
		StartedAt:      run.StartedAt.UTC().Format(time.RFC3339),
		ListingURL:     run.ListingURL,
		PagesVisited:   run.VisitedPages(),
		Records:        len(run.Records),
		EstimatedTotal: run.EstimatedTotal,
		Progress:       progress,
	}

	enc := yaml.NewEncoder(os.Stdout)
	defer enc.Close()
	return enc.Encode(summary)
}
