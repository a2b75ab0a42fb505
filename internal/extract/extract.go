// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract pulls bibliographic records out of a result listing page.
// The Extractor interface keeps the site-specific scraping swappable so the
// export state machine can be tested against synthetic fixtures.
package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/capes-export/internal/listing"
	"github.com/pdiddy/capes-export/pkg/types"
)

// Extractor returns zero or more records from the current listing page.
// A page with no recognizable result markup yields an empty slice, not an
// error.
type Extractor interface {
	Extract(page *listing.Page) ([]types.Record, error)
}

// Selectors for the portal's result listing markup. These are the brittle,
// site-specific part; everything downstream is markup-agnostic.
const (
	resultSelector       = "div.result-item"
	titleSelector        = "h3.item-title"
	authorSelector       = ".item-authors .author"
	metaSelector         = ".item-meta"
	kindSelector         = ".item-kind"
	openAccessSelector   = ".badge-open-access"
	peerReviewedSelector = ".badge-peer-reviewed"
	idAttr               = "data-id"
)

// yearPattern matches a 4-digit year inside the metadata line.
var yearPattern = regexp.MustCompile(`\b\d{4}\b`)

// kindLabels maps the portal's type labels (Portuguese and English) onto
// the closed DocumentKind vocabulary.
var kindLabels = map[string]types.DocumentKind{
	"artigo":               types.KindArticle,
	"article":              types.KindArticle,
	"livro":                types.KindBook,
	"book":                 types.KindBook,
	"capítulo de livro":    types.KindBookChapter,
	"book chapter":         types.KindBookChapter,
	"trabalho de evento":   types.KindConferencePaper,
	"conference paper":     types.KindConferencePaper,
	"tese":                 types.KindThesis,
	"thesis":               types.KindThesis,
	"revisão":              types.KindReview,
	"review":               types.KindReview,
	"relatório":            types.KindReport,
	"report":               types.KindReport,
}

// PortalExtractor scrapes the CAPES Periódicos result listing.
type PortalExtractor struct{}

// Extract walks the page's result items and builds records. Items without a
// title are skipped; malformed metadata degrades to empty fields.
func (PortalExtractor) Extract(page *listing.Page) ([]types.Record, error) {
	var records []types.Record

	page.Doc.Find(resultSelector).Each(func(_ int, item *goquery.Selection) {
		title := clean(item.Find(titleSelector).First().Text())
		if title == "" {
			return
		}

		rec := types.Record{
			Title:        title,
			DocumentKind: classifyKind(item.Find(kindSelector).First().Text()),
			OpenAccess:   item.Find(openAccessSelector).Length() > 0,
			PeerReviewed: item.Find(peerReviewedSelector).Length() > 0,
		}

		item.Find(authorSelector).Each(func(_ int, a *goquery.Selection) {
			if name := clean(a.Text()); name != "" {
				rec.Authors = append(rec.Authors, name)
			}
		})

		rec.Year, rec.Venue = ParseYearVenue(item.Find(metaSelector).First().Text())

		if id, ok := item.Attr(idAttr); ok {
			rec.ExternalID = strings.TrimSpace(id)
		}

		records = append(records, rec)
	})

	return records, nil
}

// ParseYearVenue splits the listing's combined metadata line into its year
// and venue parts. The line has the shape "YEAR - Publisher | Venue", e.g.
// "2021 - Elsevier | Journal X". Missing pieces come back empty; the year is
// returned raw when no 4-digit match exists ("n.d." stays "n.d.") so the
// converters can apply their own pattern match.
func ParseYearVenue(meta string) (year, venue string) {
	meta = clean(meta)
	if meta == "" {
		return "", ""
	}

	left := meta
	if idx := strings.Index(meta, "|"); idx >= 0 {
		left = meta[:idx]
		venue = clean(meta[idx+1:])
	}

	if m := yearPattern.FindString(left); m != "" {
		return m, venue
	}

	// No 4-digit year; keep the raw segment before the publisher dash.
	if idx := strings.Index(left, " - "); idx >= 0 {
		left = left[:idx]
	}
	return clean(left), venue
}

// classifyKind maps a portal type label onto the closed vocabulary,
// defaulting to Article.
func classifyKind(label string) types.DocumentKind {
	if kind, ok := kindLabels[strings.ToLower(clean(label))]; ok {
		return kind
	}
	return types.KindArticle
}

// clean collapses internal whitespace and trims the ends.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
