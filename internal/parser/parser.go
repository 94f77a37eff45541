// Package parser turns fetched career pages into raw job postings.
//
// Parsers never return errors: a page that cannot be fetched or decoded
// yields no postings, and malformed elements are skipped.
package parser

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// Parser extracts postings from one candidate URL.
type Parser interface {
	Parse(ctx context.Context, url string) []posting.JobPosting
}

// Matcher decides whether a title mentions a target role.
type Matcher interface {
	Matches(title string) bool
}

func newDocument(body []byte) (*goquery.Document, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	return doc, true
}

// collapseText returns the selection's text with runs of whitespace folded to one space.
func collapseText(sel *goquery.Selection) string {
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// resolveHref keeps absolute http(s) links as-is and resolves the rest against base.
func resolveHref(base, href string) (string, bool) {
	if strings.HasPrefix(href, "http") {
		return href, true
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return b.ResolveReference(ref).String(), true
}
