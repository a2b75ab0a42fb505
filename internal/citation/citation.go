// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation converts an ordered sequence of records into citation
// file formats (RIS, BibTeX). Conversion is pure: the same record sequence
// always yields byte-identical output.
package citation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/capes-export/pkg/types"
)

// yearPattern extracts a 4-digit year from the raw year text. Listings
// carry values like "2021", "2021 - Elsevier", or "n.d."; anything without
// a 4-digit match is dropped from the output rather than treated as an
// error.
var yearPattern = regexp.MustCompile(`\d{4}`)

// Convert renders records in the given format.
func Convert(format types.Format, records []types.Record) (string, error) {
	switch format {
	case types.FormatRIS:
		return RIS(records), nil
	case types.FormatBibTeX:
		return BibTeX(records), nil
	default:
		return "", fmt.Errorf("unknown citation format %q", format)
	}
}

// ExtractYear returns the first 4-digit year in raw, or "" when none exists.
func ExtractYear(raw string) string {
	return yearPattern.FindString(raw)
}

// Note aggregates the record's access flags and external identifier into a
// single semicolon-joined annotation, e.g. "Open Access; CAPES ID: 123".
// Only the fragments that apply are included; the result is empty when none
// do.
func Note(r types.Record) string {
	var parts []string
	if r.OpenAccess {
		parts = append(parts, "Open Access")
	}
	if r.PeerReviewed {
		parts = append(parts, "Peer Reviewed")
	}
	if r.ExternalID != "" {
		parts = append(parts, "CAPES ID: "+r.ExternalID)
	}
	return strings.Join(parts, "; ")
}

// Filename derives the output filename from the search query, a compact
// timestamp, and the format's canonical extension.
func Filename(query string, format types.Format, t time.Time) string {
	base := stripNonAlnum(query)
	if len(base) > 40 {
		base = base[:40]
	}
	if base == "" {
		base = "capes-export"
	}
	return fmt.Sprintf("%s-%s.%s", base, t.Format("20060102-150405"), format.Extension())
}

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
