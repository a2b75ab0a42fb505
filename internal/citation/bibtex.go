// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"strings"

	"github.com/pdiddy/capes-export/pkg/types"
)

// bibtexTypes maps the document kind vocabulary onto BibTeX entry types.
// Unknown kinds fall back to article.
var bibtexTypes = map[types.DocumentKind]string{
	types.KindArticle:         "article",
	types.KindBook:            "book",
	types.KindBookChapter:     "incollection",
	types.KindConferencePaper: "inproceedings",
	types.KindThesis:          "phdthesis",
	types.KindReview:          "article",
	types.KindReport:          "techreport",
}

// bibtexEscapes lists the BibTeX-significant characters in substitution
// order. Backslash goes first so the backslashes introduced by later
// substitutions are not themselves re-escaped.
var bibtexEscapes = []struct{ from, to string }{
	{`\`, `\\`},
	{`{`, `\{`},
	{`}`, `\}`},
	{`$`, `\$`},
	{`&`, `\&`},
	{`%`, `\%`},
	{`#`, `\#`},
}

// BibTeX renders records as a BibTeX document. Records without a title are
// excluded (a BibTeX entry is useless without one; RIS keeps them). Entries
// are separated by a blank line and the document ends with exactly one
// trailing newline.
//
// Citation keys are derived deterministically from title and year; distinct
// records can collide on the same key and no disambiguation is attempted.
func BibTeX(records []types.Record) string {
	var entries []string
	for _, r := range records {
		if strings.TrimSpace(r.Title) == "" {
			continue
		}
		entries = append(entries, bibtexEntry(r))
	}
	return strings.Join(entries, "\n\n") + "\n"
}

func bibtexEntry(r types.Record) string {
	entryType := bibtexTypes[r.DocumentKind]
	if entryType == "" {
		entryType = "article"
	}

	var b strings.Builder
	b.WriteString("@")
	b.WriteString(entryType)
	b.WriteString("{")
	b.WriteString(CitationKey(r.Title, r.Year))
	b.WriteString(",\n")

	bibtexField(&b, "title", r.Title)
	if len(r.Authors) > 0 {
		bibtexField(&b, "author", strings.Join(r.Authors, " and "))
	}
	if r.Venue != "" {
		bibtexField(&b, "journal", r.Venue)
	}
	if year := ExtractYear(r.Year); year != "" {
		bibtexField(&b, "year", year)
	}
	if note := Note(r); note != "" {
		bibtexField(&b, "note", note)
	}

	b.WriteString("}")
	return b.String()
}

func bibtexField(b *strings.Builder, name, value string) {
	b.WriteString("  ")
	b.WriteString(name)
	b.WriteString(" = {")
	b.WriteString(EscapeBibTeX(value))
	b.WriteString("},\n")
}

// CitationKey derives a deterministic key from the title and raw year: the
// first three title words longer than three characters (lower-cased,
// punctuation stripped) followed by the 4-digit year, or "unknown" when no
// year can be extracted.
func CitationKey(title, rawYear string) string {
	var cleaned strings.Builder
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			cleaned.WriteRune(r)
		} else if r == '\t' || r == '\n' {
			cleaned.WriteRune(' ')
		}
	}

	var kept []string
	for _, word := range strings.Fields(cleaned.String()) {
		if len(word) > 3 {
			kept = append(kept, word)
			if len(kept) == 3 {
				break
			}
		}
	}

	year := ExtractYear(rawYear)
	if year == "" {
		year = "unknown"
	}
	return strings.Join(kept, "") + year
}

// EscapeBibTeX backslash-escapes the seven BibTeX-significant characters.
func EscapeBibTeX(s string) string {
	for _, e := range bibtexEscapes {
		s = strings.ReplaceAll(s, e.from, e.to)
	}
	return s
}
