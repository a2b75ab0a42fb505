// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/capes-export/internal/checkpoint"
	"github.com/pdiddy/capes-export/internal/export"
	"github.com/pdiddy/capes-export/internal/extract"
	"github.com/pdiddy/capes-export/internal/listing"
	"github.com/pdiddy/capes-export/pkg/types"
)

// loadConfig overlays viper-provided values (config file, environment) onto
// the built-in defaults.
func loadConfig() types.Config {
	cfg := types.Defaults()

	if v := viper.GetDuration("listing.timeout"); v > 0 {
		cfg.Listing.Timeout = v
	}
	if v := viper.GetString("listing.user_agent"); v != "" {
		cfg.Listing.UserAgent = v
	}
	if v := viper.GetString("listing.page_param"); v != "" {
		cfg.Listing.PageParam = v
	}
	if v := viper.GetString("listing.query_param"); v != "" {
		cfg.Listing.QueryParam = v
	}
	if v := viper.GetInt("listing.max_retries"); v > 0 {
		cfg.Listing.MaxRetries = v
	}
	if v := viper.GetDuration("harvest.watchdog_timeout"); v > 0 {
		cfg.Harvest.WatchdogTimeout = v
	}
	if v := viper.GetDuration("harvest.settle_delay"); v > 0 {
		cfg.Harvest.SettleDelay = v
	}
	if v := viper.GetDuration("harvest.resume_delay"); v > 0 {
		cfg.Harvest.ResumeDelay = v
	}
	if v := viper.GetString("store.state_dir"); v != "" {
		cfg.Store.StateDir = v
	}
	if v := viper.GetString("output.dir"); v != "" {
		cfg.Output.Dir = v
	}

	return cfg
}

// cliNavigator performs no in-process navigation. The checkpoint already
// carries the next page address; the current invocation simply ends. The
// follow loop (or a later resume invocation) restarts from the checkpoint.
type cliNavigator struct{}

func (cliNavigator) Navigate(string) error { return nil }

// fileSaver writes the final citation document into the output directory.
type fileSaver struct {
	dir string
}

func (s fileSaver) Save(filename, content string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	return os.WriteFile(filepath.Join(s.dir, filename), []byte(content), 0o644)
}

// newOrchestrator wires the production collaborators.
func newOrchestrator(cfg types.Config, store *checkpoint.Store) *export.Orchestrator {
	return export.New(
		store,
		extract.PortalExtractor{},
		cliNavigator{},
		fileSaver{dir: cfg.Output.Dir},
		export.WriterSink{W: os.Stdout},
		cfg.Listing,
		cfg.Harvest,
	)
}

// harvestCurrent fetches the run's current listing page and feeds it to the
// orchestrator.
func harvestCurrent(ctx context.Context, cfg types.Config, client *http.Client, orch *export.Orchestrator) error {
	page, err := listing.Fetch(ctx, client, orch.Run().ListingURL, cfg.Listing)
	if err != nil {
		return err
	}
	return orch.HarvestPage(ctx, page)
}

// followLoop drives the restart-and-resume protocol in-process: each cycle
// builds a fresh orchestrator, resumes it from the checkpoint, and harvests
// one page. The loop ends when no checkpoint remains (the run finished and
// cleared it) or a page fails.
func followLoop(ctx context.Context, cfg types.Config, store *checkpoint.Store, client *http.Client) error {
	for {
		orch := newOrchestrator(cfg, store)
		resumed, err := orch.Resume()
		if err != nil {
			return err
		}
		if !resumed {
			return nil
		}

		time.Sleep(cfg.Harvest.ResumeDelay)

		if err := harvestCurrent(ctx, cfg, client, orch); err != nil {
			return err
		}
	}
}
