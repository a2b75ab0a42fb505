// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package listing locates result pages on the portal: it fetches and parses
// a listing page, derives the current page index from its address, decides
// whether another page exists, and produces the address of the next page.
package listing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/capes-export/internal/httputil"
	"github.com/pdiddy/capes-export/pkg/types"
)

// Page is one parsed result listing page: its address plus its document.
type Page struct {
	URL *url.URL
	Doc *goquery.Document
}

// Fetch downloads and parses the listing page at rawURL.
func Fetch(ctx context.Context, client *http.Client, rawURL string, cfg types.ListingConfig) (*Page, error) {
	resp, err := httputil.Get(ctx, client, rawURL, cfg.UserAgent, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetching listing page: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listing address: %w", err)
	}

	return &Page{URL: u, Doc: doc}, nil
}

// Parse builds a Page from an already-fetched HTML document. Tests feed it
// synthetic fixtures instead of live markup.
func Parse(rawURL, html string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing listing address: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing listing page: %w", err)
	}
	return &Page{URL: u, Doc: doc}, nil
}
