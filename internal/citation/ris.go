// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"strings"

	"github.com/pdiddy/capes-export/pkg/types"
)

// risTypes maps the document kind vocabulary onto RIS reference types.
// Unknown kinds fall back to JOUR.
var risTypes = map[types.DocumentKind]string{
	types.KindArticle:         "JOUR",
	types.KindBook:            "BOOK",
	types.KindBookChapter:     "CHAP",
	types.KindConferencePaper: "CPAPER",
	types.KindThesis:          "THES",
	types.KindReview:          "JOUR",
	types.KindReport:          "RPRT",
}

// RIS renders records as a RIS document. Each record is a fixed-order field
// block (TY, TI, AU per author, PY, T2, JF, N1, ER); blocks are separated by
// a blank line. The RIS grammar requires CRLF line terminators inside a
// record; the document ends with exactly one trailing newline.
func RIS(records []types.Record) string {
	blocks := make([]string, 0, len(records))
	for _, r := range records {
		blocks = append(blocks, risBlock(r))
	}
	return strings.Join(blocks, "\r\n")
}

func risBlock(r types.Record) string {
	var b strings.Builder

	tag := risTypes[r.DocumentKind]
	if tag == "" {
		tag = "JOUR"
	}
	risLine(&b, "TY", tag)
	risLine(&b, "TI", r.Title)
	for _, a := range r.Authors {
		risLine(&b, "AU", a)
	}
	if year := ExtractYear(r.Year); year != "" {
		risLine(&b, "PY", year)
	}
	if r.Venue != "" {
		// Secondary title and journal name both carry the venue; reference
		// managers disagree on which they read.
		risLine(&b, "T2", r.Venue)
		risLine(&b, "JF", r.Venue)
	}
	if note := Note(r); note != "" {
		risLine(&b, "N1", note)
	}
	risLine(&b, "ER", "")

	return b.String()
}

func risLine(b *strings.Builder, tag, value string) {
	b.WriteString(tag)
	b.WriteString("  - ")
	b.WriteString(value)
	b.WriteString("\r\n")
}
