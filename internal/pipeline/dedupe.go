package pipeline

import (
	"strings"

	"github.com/JakeFAU/hiring-scanner/internal/board"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

// Dedupe drops postings whose (title, company, location) was already seen,
// compared case-insensitively. The first occurrence wins and order is kept.
// An empty company is derived from the URL before comparing.
func Dedupe(in []posting.JobPosting) []posting.JobPosting {
	seen := make(map[string]struct{}, len(in))
	out := make([]posting.JobPosting, 0, len(in))
	for _, p := range in {
		k := dedupeKey(p)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}

func dedupeKey(p posting.JobPosting) string {
	company := p.Company
	if company == "" {
		company = board.CompanyFromURL(p.URL)
	}
	return strings.ToLower(p.Title) + "\x00" + strings.ToLower(company) + "\x00" + strings.ToLower(p.Location)
}
