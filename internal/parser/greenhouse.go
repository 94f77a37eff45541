package parser

import (
	"context"
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/board"
	"github.com/JakeFAU/hiring-scanner/internal/fetcher"
	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// greenhouseSelector overlaps on purpose; duplicates are collapsed by dedupe later.
const greenhouseSelector = ".opening, .job, .opening a, a.posting-title"

var locationClassRE = regexp.MustCompile(`(?i)location|office`)

// Greenhouse scrapes a boards.greenhouse.io listing page.
type Greenhouse struct {
	fetcher fetcher.Fetcher
	clock   posting.Clock
	logger  *zap.Logger
}

// NewGreenhouse builds a Greenhouse parser.
func NewGreenhouse(f fetcher.Fetcher, clock posting.Clock, logger *zap.Logger) *Greenhouse {
	return &Greenhouse{fetcher: f, clock: clock, logger: logging.OrNop(logger).Named("greenhouse")}
}

// Parse returns one posting per linked opening on the page.
func (g *Greenhouse) Parse(ctx context.Context, url string) []posting.JobPosting {
	_, slug := board.Classify(url)
	page, ok := g.fetcher.Fetch(ctx, url)
	if !ok {
		return nil
	}
	doc, ok := newDocument(page.Body)
	if !ok {
		return nil
	}

	var out []posting.JobPosting
	doc.Find(greenhouseSelector).Each(func(_ int, sel *goquery.Selection) {
		title := collapseText(sel)
		href, hasHref := sel.Attr("href")
		if title == "" || !hasHref || href == "" {
			return
		}
		link, ok := resolveHref(page.FinalURL, href)
		if !ok {
			return
		}
		out = append(out, posting.New(g.clock, title, slug, nearbyLocation(sel), link, posting.SourceGreenhouse))
	})
	g.logger.Debug("parsed board", zap.String("url", url), zap.Int("postings", len(out)))
	return out
}

// nearbyLocation looks inside the nearest ancestor div for an element whose
// class mentions a location or office.
func nearbyLocation(sel *goquery.Selection) string {
	container := sel.ParentsFiltered("div").First()
	if container.Length() == 0 {
		return ""
	}
	loc := container.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return locationClassRE.MatchString(s.AttrOr("class", ""))
	}).First()
	return collapseText(loc)
}
