// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the capes-export pipeline:
// the bibliographic Record extracted from a listing page, the ExportRun that
// accumulates records across pages, and the stage configuration structs.
package types

// DocumentKind classifies a bibliographic record. The vocabulary is closed;
// extractors fall back to KindArticle for anything they cannot classify.
type DocumentKind string

const (
	KindArticle         DocumentKind = "Article"
	KindBook            DocumentKind = "Book"
	KindBookChapter     DocumentKind = "Book Chapter"
	KindConferencePaper DocumentKind = "Conference Paper"
	KindThesis          DocumentKind = "Thesis"
	KindReview          DocumentKind = "Review"
	KindReport          DocumentKind = "Report"
)

// Record is one bibliographic entry extracted from a result listing page.
// Records are immutable once produced by the extractor.
type Record struct {
	// Title is the publication title. A record without a title is still
	// harvested; the BibTeX converter drops it, the RIS converter keeps it.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in listing order.
	Authors []string `json:"authors" yaml:"authors"`

	// Year is the raw year text from the listing. Not guaranteed to be a
	// 4-digit year ("n.d." and similar occur); converters pattern-match it.
	Year string `json:"year" yaml:"year"`

	// Venue is the journal or publication venue, empty when unknown.
	Venue string `json:"venue" yaml:"venue"`

	// DocumentKind classifies the record, default KindArticle.
	DocumentKind DocumentKind `json:"document_kind" yaml:"document_kind"`

	// OpenAccess reports whether the listing carried an open-access badge.
	OpenAccess bool `json:"open_access" yaml:"open_access"`

	// PeerReviewed reports whether the listing carried a peer-reviewed badge.
	PeerReviewed bool `json:"peer_reviewed" yaml:"peer_reviewed"`

	// ExternalID is the portal's identifier for the record, empty when absent.
	ExternalID string `json:"external_id" yaml:"external_id"`
}

// Format selects the citation output format for an export.
type Format string

const (
	FormatRIS    Format = "ris"
	FormatBibTeX Format = "bibtex"
)

// ParseFormat maps a wire-format string to a Format. Absent or unrecognized
// values default to RIS.
func ParseFormat(s string) Format {
	if s == string(FormatBibTeX) {
		return FormatBibTeX
	}
	return FormatRIS
}

// Valid reports whether f is one of the known formats.
func (f Format) Valid() bool {
	return f == FormatRIS || f == FormatBibTeX
}

// Extension returns the canonical file extension for the format.
func (f Format) Extension() string {
	if f == FormatBibTeX {
		return "bib"
	}
	return "ris"
}
