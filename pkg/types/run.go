// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"time"
)

// ExportRun is the accumulated state of one user-initiated export. It is
// owned by a single orchestrator instance for that instance's lifetime and
// persisted to the checkpoint store after every mutation so that a process
// restart between pages can continue the walk.
//
// Invariants: Records only grows, in first-seen order across pages; a page
// index enters Visited at most once and the set never shrinks.
type ExportRun struct {
	// Format is the citation format chosen when the export started.
	Format Format

	// Records holds every record harvested so far, append-only.
	Records []Record

	// Visited tracks which page indices have already been harvested, so a
	// resume never re-appends a page's records.
	Visited map[int]bool

	// EstimatedTotal is the listing's best-effort total record count,
	// 0 when unknown. Used only for progress reporting.
	EstimatedTotal int

	// StartedAt is when the export was initiated.
	StartedAt time.Time

	// ListingURL is the address of the listing page this run processes
	// next. A restarted process has no other way to know where the walk
	// left off, so the address rides in the checkpoint.
	ListingURL string
}

// NewExportRun returns a fresh run for the given format and listing address.
func NewExportRun(format Format, listingURL string) *ExportRun {
	return &ExportRun{
		Format:     format,
		Visited:    make(map[int]bool),
		StartedAt:  time.Now().UTC(),
		ListingURL: listingURL,
	}
}

// HasVisited reports whether the page index has already been harvested.
func (r *ExportRun) HasVisited(page int) bool {
	return r.Visited[page]
}

// MarkVisited records the page index as harvested. Marking an
// already-visited page is a no-op, preserving the at-most-once invariant.
func (r *ExportRun) MarkVisited(page int) {
	if r.Visited == nil {
		r.Visited = make(map[int]bool)
	}
	if page >= 1 {
		r.Visited[page] = true
	}
}

// Append adds records to the run in order.
func (r *ExportRun) Append(records []Record) {
	r.Records = append(r.Records, records...)
}

// VisitedPages returns the visited page indices in ascending order.
func (r *ExportRun) VisitedPages() []int {
	pages := make([]int, 0, len(r.Visited))
	for p := range r.Visited {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Progress returns harvested/estimated as a fraction in [0, 1], or 0 when
// the total is unknown.
func (r *ExportRun) Progress() float64 {
	if r.EstimatedTotal <= 0 {
		return 0
	}
	p := float64(len(r.Records)) / float64(r.EstimatedTotal)
	if p > 1 {
		p = 1
	}
	return p
}
