// Package scoring filters postings on role keywords and ranks the survivors.
package scoring

import (
	"strings"

	"github.com/JakeFAU/hiring-scanner/internal/board"
	"github.com/JakeFAU/hiring-scanner/internal/posting"
)

const (
	keywordPoints = 20
	bonusPoints   = 5
	sourcePoints  = 5
	maxScore      = 100
)

// Scorer holds the lower-cased keyword and bonus vocabularies.
type Scorer struct {
	keywords []string
	bonus    []string
}

// New builds a Scorer. Matching is case-insensitive substring search.
func New(keywords, bonusTerms []string) *Scorer {
	return &Scorer{
		keywords: lowerAll(keywords),
		bonus:    lowerAll(bonusTerms),
	}
}

// Matches reports whether title contains any role keyword.
func (s *Scorer) Matches(title string) bool {
	t := strings.ToLower(title)
	for _, kw := range s.keywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// Score computes the relevance of p in [0, 100].
func (s *Scorer) Score(p posting.JobPosting) float64 {
	t := strings.ToLower(p.Title)
	score := 0
	for _, kw := range s.keywords {
		if strings.Contains(t, kw) {
			score += keywordPoints
		}
	}
	for _, term := range s.bonus {
		if strings.Contains(t, term) {
			score += bonusPoints
		}
	}
	if p.Source == posting.SourceGreenhouse || p.Source == posting.SourceLever {
		score += sourcePoints
	}
	return float64(min(score, maxScore))
}

// Normalize back-fills an empty company from the URL and sets the score.
func (s *Scorer) Normalize(p posting.JobPosting) posting.JobPosting {
	if p.Company == "" {
		p.Company = board.CompanyFromURL(p.URL)
	}
	p.MatchScore = s.Score(p)
	return p
}

// FilterAndNormalize keeps postings whose titles match and normalizes them,
// preserving input order.
func (s *Scorer) FilterAndNormalize(in []posting.JobPosting) []posting.JobPosting {
	out := make([]posting.JobPosting, 0, len(in))
	for _, p := range in {
		if !s.Matches(p.Title) {
			continue
		}
		out = append(out, s.Normalize(p))
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
