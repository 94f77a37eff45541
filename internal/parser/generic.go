package parser

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/fetcher"
	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// Generic scans an arbitrary careers page for links and headings that name a target role.
type Generic struct {
	fetcher fetcher.Fetcher
	clock   posting.Clock
	matcher Matcher
	logger  *zap.Logger
}

// NewGeneric builds a Generic parser.
func NewGeneric(f fetcher.Fetcher, clock posting.Clock, matcher Matcher, logger *zap.Logger) *Generic {
	return &Generic{fetcher: f, clock: clock, matcher: matcher, logger: logging.OrNop(logger).Named("generic")}
}

// Parse returns one posting per matching a, h2 or h3 element. Headings
// without a link point back at the page itself.
func (g *Generic) Parse(ctx context.Context, url string) []posting.JobPosting {
	page, ok := g.fetcher.Fetch(ctx, url)
	if !ok {
		return nil
	}
	doc, ok := newDocument(page.Body)
	if !ok {
		return nil
	}
	var out []posting.JobPosting
	doc.Find("a, h2, h3").Each(func(_ int, sel *goquery.Selection) {
		text := collapseText(sel)
		if text == "" || !g.matcher.Matches(text) {
			return
		}
		link := url
		if href, ok := sel.Attr("href"); ok && href != "" {
			resolved, ok := resolveHref(page.FinalURL, href)
			if !ok {
				return
			}
			link = resolved
		}
		out = append(out, posting.New(g.clock, text, "", "", link, posting.SourceGeneric))
	})
	return out
}
