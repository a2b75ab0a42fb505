// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/capes-export/internal/checkpoint"
	"github.com/pdiddy/capes-export/internal/export"
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Continue an export from its checkpoint",
	Long: `Resume picks up the export persisted by a previous invocation and
harvests the next page. It is a no-op when no export is in progress.
With --follow it keeps resuming until the listing is exhausted.`,
	RunE: runResume,
}

func init() {
	resumeCmd.Flags().Bool("follow", false, "keep resuming until the listing is exhausted")
	resumeCmd.Flags().String("out", "", "output directory for the citation file")

	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	follow, _ := cmd.Flags().GetBool("follow")

	cfg := loadConfig()
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		cfg.Output.Dir = out
	}

	store, err := checkpoint.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	client := &http.Client{Timeout: cfg.Listing.Timeout}

	if follow {
		return followLoop(ctx, cfg, store, client)
	}

	orch := newOrchestrator(cfg, store)
	resumed, err := orch.Resume()
	if err != nil {
		return err
	}
	if !resumed {
		fmt.Println("no export in progress")
		return nil
	}

	time.Sleep(cfg.Harvest.ResumeDelay)

	if err := harvestCurrent(ctx, cfg, client, orch); err != nil {
		return err
	}

	if orch.State() == export.StateNavigating {
		fmt.Println(`checkpoint saved; run "capes-export resume" to continue`)
	}
	return nil
}
