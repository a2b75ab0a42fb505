// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pdiddy/capes-export/internal/checkpoint"
	"github.com/pdiddy/capes-export/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Start a new export from a result listing",
	Long: `Export starts a fresh harvest of the result listing at --url, replacing
any export already in progress. One page is harvested per invocation; the
checkpoint then carries the walk forward through "capes-export resume".
With --follow the command resumes itself until the listing is exhausted and
the citation file is written.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().String("url", "", "address of the result listing page (required)")
	exportCmd.Flags().String("format", "ris", "citation format: ris or bibtex")
	exportCmd.Flags().Bool("follow", false, "keep resuming until the listing is exhausted")
	exportCmd.Flags().String("out", "", "output directory for the citation file")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	listingURL, _ := cmd.Flags().GetString("url")
	if listingURL == "" {
		return fmt.Errorf("provide the result listing address with --url")
	}
	format, _ := cmd.Flags().GetString("format")
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

	orch := newOrchestrator(cfg, store)
	resp := orch.Dispatch(export.Request{Action: "export", Format: format}, listingURL)
	if !resp.Success {
		return fmt.Errorf("export request rejected")
	}

	ctx := context.Background()
	client := &http.Client{Timeout: cfg.Listing.Timeout}

	if err := harvestCurrent(ctx, cfg, client, orch); err != nil {
		return err
	}

	if follow {
		return followLoop(ctx, cfg, store, client)
	}

	if orch.State() == export.StateNavigating {
		fmt.Println(`checkpoint saved; run "capes-export resume" to continue`)
	}
	return nil
}
