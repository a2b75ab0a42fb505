// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package listing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/capes-export/pkg/types"
)

// nextControlSelector matches the listing's "next page" control. The portal
// renders it as an anchor on intermediate pages and removes it on the last
// page of some result sets.
const nextControlSelector = `a[rel="next"], a.next-page, button.next-page, .pagination .next`

// rangePattern matches the textual range indicator "A–B of T" (en dash or
// hyphen; "of" or the portal's Portuguese "de"). Totals may carry thousands
// separators.
var rangePattern = regexp.MustCompile(`(\d+)\s*[–-]\s*(\d+)\s+(?:of|de)\s+([\d.,]+)`)

// Sequencer answers pagination questions for one listing page.
type Sequencer struct {
	page *Page
	cfg  types.ListingConfig
}

// NewSequencer returns a Sequencer over the given page.
func NewSequencer(page *Page, cfg types.ListingConfig) *Sequencer {
	return &Sequencer{page: page, cfg: cfg}
}

// CurrentPageIndex returns the 1-indexed page number from the listing
// address. An absent or invalid page parameter means the first page.
func (s *Sequencer) CurrentPageIndex() int {
	raw := s.page.URL.Query().Get(s.cfg.PageParam)
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// HasMorePages reports whether another result page exists. A next-control
// element is authoritative when present: enabled means more pages, disabled
// means exhausted, regardless of what the textual range indicator says (the
// indicator is sometimes stale). The indicator is the fallback when no
// control element exists at all.
func (s *Sequencer) HasMorePages() bool {
	control := s.page.Doc.Find(nextControlSelector).First()
	if control.Length() > 0 {
		return controlEnabled(control)
	}

	shown, total, ok := s.rangeIndicator()
	if !ok {
		return false
	}
	return shown < total
}

// NextPageAddress returns the current address with the page parameter set
// to the next index.
func (s *Sequencer) NextPageAddress() string {
	next := *s.page.URL
	q := next.Query()
	q.Set(s.cfg.PageParam, strconv.Itoa(s.CurrentPageIndex()+1))
	next.RawQuery = q.Encode()
	return next.String()
}

// EstimateTotalRecords returns the listing's total record count from the
// range indicator, or 0 when no indicator is present.
func (s *Sequencer) EstimateTotalRecords() int {
	_, total, ok := s.rangeIndicator()
	if !ok {
		return 0
	}
	return total
}

// Query returns the listing's search-term parameter, used to derive the
// output filename.
func (s *Sequencer) Query() string {
	return s.page.URL.Query().Get(s.cfg.QueryParam)
}

// rangeIndicator scans the page text for "A–B of T" and returns B and T.
func (s *Sequencer) rangeIndicator() (shown, total int, ok bool) {
	m := rangePattern.FindStringSubmatch(s.page.Doc.Text())
	if m == nil {
		return 0, 0, false
	}
	shown, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, false
	}
	total, err = strconv.Atoi(stripSeparators(m[3]))
	if err != nil {
		return 0, 0, false
	}
	return shown, total, true
}

// controlEnabled reports whether the next-control can be activated.
func controlEnabled(sel *goquery.Selection) bool {
	if _, disabled := sel.Attr("disabled"); disabled {
		return false
	}
	if v, ok := sel.Attr("aria-disabled"); ok && v == "true" {
		return false
	}
	return !sel.HasClass("disabled")
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ',' {
			return -1
		}
		return r
	}, s)
}
