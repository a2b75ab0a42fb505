// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package export drives the resumable export state machine: harvest the
// current listing page, persist progress, decide between navigating onward
// and finalizing, and emit the citation document on completion.
//
// Navigating to the next page is terminal for the orchestrator instance
// that triggered it: one instance handles one page, and continuation is a
// restart-and-resume protocol, never a call that returns. A fresh instance
// adopts the persisted run via Resume and picks up the walk.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdiddy/capes-export/internal/checkpoint"
	"github.com/pdiddy/capes-export/internal/citation"
	"github.com/pdiddy/capes-export/internal/extract"
	"github.com/pdiddy/capes-export/internal/listing"
	"github.com/pdiddy/capes-export/pkg/types"
)

// State identifies the orchestrator's position in the export lifecycle.
type State int

const (
	StateIdle State = iota
	StateExtracting
	StateNavigating
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExtracting:
		return "extracting"
	case StateNavigating:
		return "navigating"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// The two conditions that terminate a run. Everything else is absorbed with
// best-effort degradation.
var (
	// ErrNoRecords means the walk completed without extracting anything.
	ErrNoRecords = errors.New("no records extracted")

	// ErrTimeout means the watchdog fired before extraction and the
	// continue/finish decision completed.
	ErrTimeout = errors.New("extraction timed out")
)

// Navigator moves the listing to a new address. For the orchestrator this
// is a one-way door: after a successful Navigate the instance is done and
// the walk continues via Resume on a fresh instance.
type Navigator interface {
	Navigate(address string) error
}

// DocumentSaver receives the final citation document.
type DocumentSaver interface {
	Save(filename, content string) error
}

// Request is the control message that initiates an export.
type Request struct {
	Action string `json:"action"`
	Format string `json:"format"`
}

// Response acknowledges a control message. It is produced synchronously,
// before any navigation, even though the export itself proceeds page by
// page afterwards.
type Response struct {
	Success bool `json:"success"`
}

// decision is the outcome of harvesting one page.
type decision int

const (
	decideNavigate decision = iota
	decideFinalize
)

// Orchestrator owns one ExportRun for its lifetime and steps it through the
// export state machine. Instances are single-use: after Done, Failed, or a
// successful navigation they are not reused.
type Orchestrator struct {
	store     *checkpoint.Store
	extractor extract.Extractor
	nav       Navigator
	saver     DocumentSaver
	sink      ProgressSink

	listingCfg types.ListingConfig
	harvestCfg types.HarvestConfig

	state     State
	run       *types.ExportRun
	queryHint string
	cleared   bool
}

// New builds an orchestrator in the Idle state.
func New(store *checkpoint.Store, extractor extract.Extractor, nav Navigator, saver DocumentSaver, sink ProgressSink, listingCfg types.ListingConfig, harvestCfg types.HarvestConfig) *Orchestrator {
	return &Orchestrator{
		store:      store,
		extractor:  extractor,
		nav:        nav,
		saver:      saver,
		sink:       sink,
		listingCfg: listingCfg,
		harvestCfg: harvestCfg,
		state:      StateIdle,
	}
}

// State returns the orchestrator's current state.
func (o *Orchestrator) State() State {
	return o.state
}

// Run returns the active export run, nil while Idle.
func (o *Orchestrator) Run() *types.ExportRun {
	return o.run
}

// Dispatch handles the export control message and answers synchronously.
// An unknown action is rejected; an absent or unrecognized format falls
// back to RIS.
func (o *Orchestrator) Dispatch(req Request, listingURL string) Response {
	if req.Action != "export" {
		return Response{Success: false}
	}
	if err := o.Start(types.ParseFormat(req.Format), listingURL); err != nil {
		o.sink.Status(fmt.Sprintf("warning: starting export: %v", err))
		return Response{Success: false}
	}
	return Response{Success: true}
}

// Start begins a fresh export. Any leftover checkpoint from an earlier run
// is discarded first so the new export cannot interleave with a stale one.
func (o *Orchestrator) Start(format types.Format, listingURL string) error {
	if err := o.store.Clear(); err != nil {
		return fmt.Errorf("discarding stale checkpoint: %w", err)
	}
	o.run = types.NewExportRun(format, listingURL)
	o.cleared = false
	o.state = StateExtracting
	o.sink.Status(fmt.Sprintf("export started (%s)", format))
	return nil
}

// Resume adopts a persisted run, returning false when no checkpoint exists.
// Process startup must attempt this before anything else or an in-flight
// export silently stalls.
func (o *Orchestrator) Resume() (bool, error) {
	run, err := o.store.Load()
	if err != nil {
		return false, err
	}
	if run == nil {
		o.state = StateIdle
		return false, nil
	}
	o.run = run
	o.cleared = false
	o.state = StateExtracting
	o.sink.Status(fmt.Sprintf("resuming export: %d records from %d pages so far",
		len(run.Records), len(run.Visited)))
	return true, nil
}

// HarvestPage runs the Extracting state for the given page: extract,
// persist, then either navigate onward or finalize. A watchdog races the
// extraction and decision work; if it fires first the run fails with
// ErrTimeout. The watchdog does not cover the settling delay or the
// navigation itself.
func (o *Orchestrator) HarvestPage(ctx context.Context, page *listing.Page) error {
	if o.state != StateExtracting || o.run == nil {
		return fmt.Errorf("no export in progress (state %s)", o.state)
	}

	watchdog := time.NewTimer(o.harvestCfg.WatchdogTimeout)
	defer watchdog.Stop()

	// The cancel fires when the watchdog preempts the page, stopping the
	// extraction goroutine from persisting into a failed run.
	wdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		dec  decision
		next string
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		dec, next, err := o.extractAndDecide(wdCtx, page)
		done <- outcome{dec: dec, next: next, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-watchdog.C:
		o.fail(ErrTimeout)
		return ErrTimeout
	case <-ctx.Done():
		o.fail(ctx.Err())
		return ctx.Err()
	}
	watchdog.Stop()

	if out.err != nil {
		o.fail(out.err)
		return out.err
	}
	if out.dec == decideNavigate {
		return o.navigate(out.next)
	}
	return o.finalize()
}

// extractAndDecide harvests the current page into the run and decides
// whether another page should follow. Re-extracting an already-visited page
// is skipped so that replaying a resume never duplicates records.
func (o *Orchestrator) extractAndDecide(ctx context.Context, page *listing.Page) (decision, string, error) {
	seq := listing.NewSequencer(page, o.listingCfg)
	current := seq.CurrentPageIndex()

	if o.run.EstimatedTotal == 0 {
		o.run.EstimatedTotal = seq.EstimateTotalRecords()
	}
	if q := seq.Query(); q != "" {
		o.queryHint = q
	}

	if o.run.HasVisited(current) {
		o.sink.Status(fmt.Sprintf("page %d already harvested, skipping", current))
	} else {
		records, err := o.extractor.Extract(page)
		if err != nil {
			return 0, "", fmt.Errorf("extracting page %d: %w", current, err)
		}
		if err := ctx.Err(); err != nil {
			return 0, "", err
		}
		if len(records) == 0 {
			// Tolerated; the page is still marked visited.
			o.sink.Status(fmt.Sprintf("page %d yielded no records", current))
		}
		o.run.Append(records)
		o.run.MarkVisited(current)
		o.run.ListingURL = page.URL.String()
		o.persist()
		o.sink.Progress(len(o.run.Records), o.run.EstimatedTotal)
	}

	if seq.HasMorePages() && !o.run.HasVisited(current+1) {
		return decideNavigate, seq.NextPageAddress(), nil
	}
	return decideFinalize, "", nil
}

// navigate persists the continuation address and hands control to the
// Navigator. On success the orchestrator instance is finished; the run
// continues only through Resume on a fresh instance. A navigation error
// leaves the checkpoint in place so a resume can retry the page.
func (o *Orchestrator) navigate(next string) error {
	o.state = StateNavigating
	o.sink.Status(fmt.Sprintf("continuing to %s", next))

	// Brief pause before the page turn; rapid-fire paging trips the
	// portal's rate limiting.
	time.Sleep(o.harvestCfg.SettleDelay)

	o.run.ListingURL = next
	o.persist()

	if err := o.nav.Navigate(next); err != nil {
		return fmt.Errorf("navigating to next page: %w", err)
	}
	return nil
}

// finalize converts the accumulated records and hands the document to the
// saver. A run that harvested nothing fails instead.
func (o *Orchestrator) finalize() error {
	o.state = StateFinalizing

	if len(o.run.Records) == 0 {
		o.fail(ErrNoRecords)
		return ErrNoRecords
	}

	doc, err := citation.Convert(o.run.Format, o.run.Records)
	if err != nil {
		o.fail(err)
		return err
	}

	filename := citation.Filename(o.queryHint, o.run.Format, time.Now())
	if err := o.saver.Save(filename, doc); err != nil {
		err = fmt.Errorf("saving %s: %w", filename, err)
		o.fail(err)
		return err
	}

	o.clearCheckpoint()
	o.state = StateDone
	o.sink.Terminal(fmt.Sprintf("exported %d records to %s", len(o.run.Records), filename))
	return nil
}

// fail moves the run to Failed, clearing all persisted state so a retry
// starts clean.
func (o *Orchestrator) fail(cause error) {
	o.clearCheckpoint()
	o.state = StateFailed
	o.sink.Terminal(fmt.Sprintf("export failed: %v", cause))
}

// persist saves the run, logging and swallowing failures: losing a
// checkpoint degrades to "export must be retried", not a crash.
func (o *Orchestrator) persist() {
	if err := o.store.Save(o.run); err != nil {
		o.sink.Status(fmt.Sprintf("warning: saving checkpoint: %v", err))
	}
}

// clearCheckpoint drops the slot at most once per terminal transition.
func (o *Orchestrator) clearCheckpoint() {
	if o.cleared {
		return
	}
	o.cleared = true
	if err := o.store.Clear(); err != nil {
		o.sink.Status(fmt.Sprintf("warning: clearing checkpoint: %v", err))
	}
}
