// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/capes-export/internal/checkpoint"
	"github.com/pdiddy/capes-export/internal/listing"
	"github.com/pdiddy/capes-export/pkg/types"
)

// Listing fixtures. An intermediate page carries an enabled next control;
// the last page carries neither control nor remaining range.
const (
	intermediatePage = `<html><body>
		<span class="results-range">1–1 of 2</span>
		<div class="pagination"><a rel="next" href="?page=2">Next</a></div>
	</body></html>`
	lastPage = `<html><body><span class="results-range">2–2 of 2</span></body></html>`
)

var studyRecord = types.Record{
	Title:        "A Study of X",
	Authors:      []string{"Smith, J."},
	Year:         "2020",
	Venue:        "Journal Y",
	DocumentKind: types.KindArticle,
	OpenAccess:   true,
	PeerReviewed: false,
	ExternalID:   "123",
}

// fakeExtractor serves canned records keyed by page index and records which
// pages it was asked to extract.
type fakeExtractor struct {
	byPage map[int][]types.Record
	delay  time.Duration

	mu    sync.Mutex
	calls []int
}

func (f *fakeExtractor) Extract(page *listing.Page) ([]types.Record, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	idx := pageIndex(page)
	f.mu.Lock()
	f.calls = append(f.calls, idx)
	f.mu.Unlock()
	return f.byPage[idx], nil
}

func (f *fakeExtractor) extracted() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func pageIndex(page *listing.Page) int {
	n, err := strconv.Atoi(page.URL.Query().Get("page"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

type fakeNavigator struct {
	addresses []string
}

func (n *fakeNavigator) Navigate(address string) error {
	n.addresses = append(n.addresses, address)
	return nil
}

type fakeSaver struct {
	filename string
	content  string
	calls    int
}

func (s *fakeSaver) Save(filename, content string) error {
	s.calls++
	s.filename = filename
	s.content = content
	return nil
}

type recordSink struct {
	mu        sync.Mutex
	statuses  []string
	terminals []string
}

func (s *recordSink) Status(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, msg)
}

func (s *recordSink) Progress(harvested, estimated int) {}

func (s *recordSink) Terminal(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminals = append(s.terminals, msg)
}

func (s *recordSink) lastTerminal() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.terminals) == 0 {
		return ""
	}
	return s.terminals[len(s.terminals)-1]
}

// harness bundles an orchestrator with its collaborators and shared store.
type harness struct {
	store *checkpoint.Store
	ext   *fakeExtractor
	nav   *fakeNavigator
	saver *fakeSaver
	sink  *recordSink
}

func newHarness(t *testing.T, byPage map[int][]types.Record) *harness {
	t.Helper()
	store, err := checkpoint.NewStore(types.StoreConfig{StateDir: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &harness{
		store: store,
		ext:   &fakeExtractor{byPage: byPage},
		nav:   &fakeNavigator{},
		saver: &fakeSaver{},
		sink:  &recordSink{},
	}
}

func (h *harness) orchestrator() *Orchestrator {
	cfg := types.Defaults()
	cfg.Harvest.SettleDelay = time.Millisecond
	return New(h.store, h.ext, h.nav, h.saver, h.sink, cfg.Listing, cfg.Harvest)
}

func parsePage(t *testing.T, rawURL, html string) *listing.Page {
	t.Helper()
	page, err := listing.Parse(rawURL, html)
	require.NoError(t, err)
	return page
}

func TestExport_TwoPageWalk(t *testing.T) {
	h := newHarness(t, map[int][]types.Record{
		1: {studyRecord},
		2: {},
	})

	// First process instance: start, harvest page 1, navigate.
	orch := h.orchestrator()
	resp := orch.Dispatch(Request{Action: "export", Format: "ris"}, "https://portal.example/search?q=x")
	require.True(t, resp.Success)
	require.Equal(t, StateExtracting, orch.State())

	page1 := parsePage(t, "https://portal.example/search?q=x", intermediatePage)
	require.NoError(t, orch.HarvestPage(context.Background(), page1))

	assert.Equal(t, StateNavigating, orch.State())
	require.Equal(t, []string{"https://portal.example/search?page=2&q=x"}, h.nav.addresses)

	saved, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved, "checkpoint must survive navigation")
	assert.Equal(t, []int{1}, saved.VisitedPages())
	assert.Equal(t, "https://portal.example/search?page=2&q=x", saved.ListingURL)
	assert.Equal(t, 2, saved.EstimatedTotal)

	// Second process instance: resume, harvest the empty last page, finalize.
	orch2 := h.orchestrator()
	resumed, err := orch2.Resume()
	require.NoError(t, err)
	require.True(t, resumed)

	page2 := parsePage(t, "https://portal.example/search?page=2&q=x", lastPage)
	require.NoError(t, orch2.HarvestPage(context.Background(), page2))

	assert.Equal(t, StateDone, orch2.State())
	require.Equal(t, 1, h.saver.calls)

	wantRIS := strings.Join([]string{
		"TY  - JOUR",
		"TI  - A Study of X",
		"AU  - Smith, J.",
		"PY  - 2020",
		"T2  - Journal Y",
		"JF  - Journal Y",
		"N1  - Open Access; CAPES ID: 123",
		"ER  - ",
	}, "\r\n") + "\r\n"
	assert.Equal(t, wantRIS, h.saver.content)

	assert.True(t, strings.HasPrefix(h.saver.filename, "x-"), "filename derives from the query, got %q", h.saver.filename)
	assert.True(t, strings.HasSuffix(h.saver.filename, ".ris"))

	// Terminal success clears the slot.
	cleared, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, cleared)
}

func TestResume_IdempotentReplay(t *testing.T) {
	h := newHarness(t, map[int][]types.Record{
		1: {studyRecord}, // would duplicate if extraction re-ran
	})

	run := types.NewExportRun(types.FormatRIS, "https://portal.example/search?q=x")
	run.Append([]types.Record{studyRecord})
	run.MarkVisited(1)
	require.NoError(t, h.store.Save(run))

	orch := h.orchestrator()
	resumed, err := orch.Resume()
	require.NoError(t, err)
	require.True(t, resumed)

	// Replaying the already-harvested page 1 must not re-extract.
	page1 := parsePage(t, "https://portal.example/search?q=x", intermediatePage)
	require.NoError(t, orch.HarvestPage(context.Background(), page1))

	assert.Empty(t, h.ext.extracted(), "visited page must not be re-extracted")
	assert.Len(t, orch.Run().Records, 1, "no duplicate records")
	assert.Equal(t, StateNavigating, orch.State())
	assert.Equal(t, []string{"https://portal.example/search?page=2&q=x"}, h.nav.addresses)
}

func TestResume_NoCheckpoint(t *testing.T) {
	h := newHarness(t, nil)

	orch := h.orchestrator()
	resumed, err := orch.Resume()
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Equal(t, StateIdle, orch.State())
}

func TestWatchdogTimeout(t *testing.T) {
	h := newHarness(t, map[int][]types.Record{1: {studyRecord}})
	h.ext.delay = 200 * time.Millisecond

	cfg := types.Defaults()
	cfg.Harvest.WatchdogTimeout = 20 * time.Millisecond
	cfg.Harvest.SettleDelay = time.Millisecond
	orch := New(h.store, h.ext, h.nav, h.saver, h.sink, cfg.Listing, cfg.Harvest)

	require.NoError(t, orch.Start(types.FormatRIS, "https://portal.example/search?q=x"))

	page := parsePage(t, "https://portal.example/search?q=x", intermediatePage)
	err := orch.HarvestPage(context.Background(), page)
	require.ErrorIs(t, err, ErrTimeout)

	assert.Equal(t, StateFailed, orch.State())
	assert.Contains(t, h.sink.lastTerminal(), "export failed")

	cleared, loadErr := h.store.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, cleared, "failure clears the checkpoint")
}

func TestNoRecordsAtCompletion(t *testing.T) {
	h := newHarness(t, map[int][]types.Record{1: {}})

	orch := h.orchestrator()
	require.NoError(t, orch.Start(types.FormatRIS, "https://portal.example/search?q=x"))

	page := parsePage(t, "https://portal.example/search?q=x", lastPage)
	err := orch.HarvestPage(context.Background(), page)
	require.ErrorIs(t, err, ErrNoRecords)

	assert.Equal(t, StateFailed, orch.State())
	assert.Zero(t, h.saver.calls)

	cleared, loadErr := h.store.Load()
	require.NoError(t, loadErr)
	assert.Nil(t, cleared)
}

func TestZeroRecordPageTolerated(t *testing.T) {
	h := newHarness(t, map[int][]types.Record{1: {}, 2: {studyRecord}})

	orch := h.orchestrator()
	require.NoError(t, orch.Start(types.FormatRIS, "https://portal.example/search?q=x"))

	page := parsePage(t, "https://portal.example/search?q=x", intermediatePage)
	require.NoError(t, orch.HarvestPage(context.Background(), page))

	// An empty page is bookkept, not fatal; the walk continues.
	assert.Equal(t, StateNavigating, orch.State())
	saved, err := h.store.Load()
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, []int{1}, saved.VisitedPages())
	assert.Empty(t, saved.Records)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		name        string
		req         Request
		wantSuccess bool
		wantFormat  types.Format
	}{
		{"ris", Request{Action: "export", Format: "ris"}, true, types.FormatRIS},
		{"bibtex", Request{Action: "export", Format: "bibtex"}, true, types.FormatBibTeX},
		{"absent format defaults to ris", Request{Action: "export"}, true, types.FormatRIS},
		{"invalid format defaults to ris", Request{Action: "export", Format: "xml"}, true, types.FormatRIS},
		{"unknown action rejected", Request{Action: "harvest", Format: "ris"}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			orch := h.orchestrator()

			resp := orch.Dispatch(tt.req, "https://portal.example/search?q=x")
			assert.Equal(t, tt.wantSuccess, resp.Success)
			if tt.wantSuccess {
				require.NotNil(t, orch.Run())
				assert.Equal(t, tt.wantFormat, orch.Run().Format)
			} else {
				assert.Nil(t, orch.Run())
			}
		})
	}
}

func TestStart_DiscardsStaleCheckpoint(t *testing.T) {
	h := newHarness(t, nil)

	stale := types.NewExportRun(types.FormatBibTeX, "https://portal.example/search?q=old")
	stale.MarkVisited(1)
	require.NoError(t, h.store.Save(stale))

	orch := h.orchestrator()
	require.NoError(t, orch.Start(types.FormatRIS, "https://portal.example/search?q=new"))

	saved, err := h.store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved, "a new export cannot interleave with a leftover one")
}

func TestHarvestPage_RequiresActiveRun(t *testing.T) {
	h := newHarness(t, nil)
	orch := h.orchestrator()

	page := parsePage(t, "https://portal.example/search?q=x", lastPage)
	err := orch.HarvestPage(context.Background(), page)
	assert.Error(t, err)
}

func TestFinalize_BibTeX(t *testing.T) {
	h := newHarness(t, map[int][]types.Record{1: {studyRecord}})

	orch := h.orchestrator()
	require.NoError(t, orch.Start(types.FormatBibTeX, "https://portal.example/search?q=x"))

	page := parsePage(t, "https://portal.example/search?q=x", lastPage)
	require.NoError(t, orch.HarvestPage(context.Background(), page))

	assert.Equal(t, StateDone, orch.State())
	assert.True(t, strings.HasPrefix(h.saver.content, "@article{study2020,"), "content: %q", h.saver.content)
	assert.True(t, strings.HasSuffix(h.saver.filename, ".bib"))
	assert.Contains(t, h.sink.lastTerminal(), "exported 1 records")
}
