package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/board"
	"github.com/JakeFAU/hiring-scanner/internal/fetcher"
	"github.com/JakeFAU/hiring-scanner/internal/logging"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// DefaultLeverAPIBase is the public Lever postings API host.
const DefaultLeverAPIBase = "https://api.lever.co"

// Lever reads a company's postings from the Lever API, falling back to
// scraping the board page when the API is unavailable.
type Lever struct {
	fetcher fetcher.Fetcher
	clock   posting.Clock
	apiBase string
	logger  *zap.Logger
}

// NewLever builds a Lever parser. An empty apiBase uses DefaultLeverAPIBase.
func NewLever(f fetcher.Fetcher, clock posting.Clock, apiBase string, logger *zap.Logger) *Lever {
	if apiBase == "" {
		apiBase = DefaultLeverAPIBase
	}
	return &Lever{
		fetcher: f,
		clock:   clock,
		apiBase: strings.TrimRight(apiBase, "/"),
		logger:  logging.OrNop(logger).Named("lever"),
	}
}

type leverRecord struct {
	Text       string          `json:"text"`
	HostedURL  string          `json:"hostedUrl"`
	ApplyURL   string          `json:"applyUrl"`
	Categories leverCategories `json:"categories"`
	// CreatedAt is epoch milliseconds. 0 is treated as unknown rather than 1970-01-01.
	CreatedAt json.RawMessage `json:"createdAt"`
}

type leverCategories struct {
	Location string `json:"location"`
}

// Parse returns the company's postings. A successful API response with no
// records yields nothing; only a failed or undecodable response falls back.
func (l *Lever) Parse(ctx context.Context, url string) []posting.JobPosting {
	kind, slug := board.Classify(url)
	if kind == board.Lever {
		if out, ok := l.fromAPI(ctx, url, slug); ok {
			return out
		}
		l.logger.Debug("lever api unavailable, scraping page", zap.String("url", url))
	}
	return l.fromHTML(ctx, url, slug)
}

// APIURL returns the postings endpoint for slug.
func (l *Lever) APIURL(slug string) string {
	return fmt.Sprintf("%s/v0/postings/%s?mode=json", l.apiBase, slug)
}

func (l *Lever) fromAPI(ctx context.Context, url, slug string) ([]posting.JobPosting, bool) {
	page, ok := l.fetcher.Fetch(ctx, l.APIURL(slug))
	if !ok {
		return nil, false
	}
	var records []leverRecord
	if err := json.Unmarshal(page.Body, &records); err != nil {
		l.logger.Debug("decode lever api", zap.String("slug", slug), zap.Error(err))
		return nil, false
	}

	out := make([]posting.JobPosting, 0, len(records))
	for _, rec := range records {
		title := strings.TrimSpace(rec.Text)
		if title == "" {
			continue
		}
		link := firstNonEmpty(rec.HostedURL, rec.ApplyURL, url)
		p := posting.New(l.clock, title, slug, rec.Categories.Location, link, posting.SourceLever)
		p.PostedAt = epochMillis(rec.CreatedAt)
		out = append(out, p)
	}
	return out, true
}

func (l *Lever) fromHTML(ctx context.Context, url, slug string) []posting.JobPosting {
	page, ok := l.fetcher.Fetch(ctx, url)
	if !ok {
		return nil
	}
	doc, ok := newDocument(page.Body)
	if !ok {
		return nil
	}
	var out []posting.JobPosting
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		title := collapseText(sel)
		if title == "" {
			return
		}
		out = append(out, posting.New(l.clock, title, slug, "", sel.AttrOr("href", ""), posting.SourceLeverHTML))
	})
	return out
}

// epochMillis converts a createdAt value that may be a JSON number or a
// numeric string. Zero, missing or unparsable values yield nil.
func epochMillis(raw json.RawMessage) *time.Time {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var ms int64
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil
		}
		ms = v
	} else {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil
		}
		if v, err := n.Int64(); err == nil {
			ms = v
		} else if f, err := n.Float64(); err == nil {
			ms = int64(f)
		} else {
			return nil
		}
	}
	if ms == 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
