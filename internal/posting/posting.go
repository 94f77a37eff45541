// Package posting defines the job posting record shared by parsers, scoring and storage.
package posting

import (
	"fmt"
	"strings"
	"time"
)

// Source tags where a posting was extracted from.
type Source string

const (
	// SourceGreenhouse marks postings scraped from a Greenhouse board page.
	SourceGreenhouse Source = "greenhouse"
	// SourceLever marks postings decoded from the Lever postings API.
	SourceLever Source = "lever"
	// SourceLeverHTML marks postings scraped from a Lever page after the API failed.
	SourceLeverHTML Source = "lever-html"
	// SourceGeneric marks postings scraped from an arbitrary careers page.
	SourceGeneric Source = "generic"
)

// TimeLayout is the fixed-width UTC layout used for persisted timestamps.
// Lexicographic order of formatted values matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// JobPosting is one advertised role.
type JobPosting struct {
	Title      string     `json:"title"`
	Company    string     `json:"company"`
	Location   string     `json:"location"`
	URL        string     `json:"url"`
	Source     Source     `json:"source"`
	PostedAt   *time.Time `json:"posted_at,omitempty"`
	CapturedAt time.Time  `json:"captured_at"`
	MatchScore float64    `json:"match_score"`
}

// New builds a posting stamped with the clock's current time.
func New(clock Clock, title, company, location, url string, source Source) JobPosting {
	return JobPosting{
		Title:      title,
		Company:    company,
		Location:   location,
		URL:        url,
		Source:     source,
		CapturedAt: clock.Now().UTC(),
	}
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// FormatOptionalTime renders t in TimeLayout, or "" when t is nil.
func FormatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}

// parseLayouts are tried in order. Values without a zone are read as UTC,
// which is how older tables wrote naive isoformat stamps.
var parseLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// ParseTime reverses FormatTime and also accepts RFC 3339 and zone-less ISO 8601 stamps.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var firstErr error
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, firstErr)
}

// ParseOptionalTime reverses FormatOptionalTime. Empty text is treated like NULL.
func ParseOptionalTime(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
