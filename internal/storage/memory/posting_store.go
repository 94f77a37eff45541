// Package memory provides an in-memory posting store for tests and dry runs.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/hiring-scanner/internal/posting"
	"github.com/JakeFAU/hiring-scanner/internal/storage"
)

// PostingStore keeps postings in insertion order, keyed by URL.
type PostingStore struct {
	mu    sync.RWMutex
	byURL map[string]int
	rows  []posting.JobPosting
}

// NewPostingStore constructs a PostingStore.
func NewPostingStore() *PostingStore {
	return &PostingStore{byURL: make(map[string]int)}
}

// EnsureSchema is a no-op.
func (s *PostingStore) EnsureSchema(context.Context) error { return nil }

// Upsert stores postings with unseen URLs.
func (s *PostingStore) Upsert(_ context.Context, postings []posting.JobPosting) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, p := range postings {
		if _, exists := s.byURL[p.URL]; exists {
			continue
		}
		p.Company = storage.StoredCompany(p)
		s.byURL[p.URL] = len(s.rows)
		s.rows = append(s.rows, clonePosting(p))
		inserted++
	}
	return inserted, nil
}

// List returns copies of all postings in listing order.
func (s *PostingStore) List(context.Context) ([]posting.JobPosting, error) {
	s.mu.RLock()
	out := make([]posting.JobPosting, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, clonePosting(p))
	}
	s.mu.RUnlock()
	storage.SortForListing(out)
	return out, nil
}

// Close is a no-op.
func (s *PostingStore) Close() error { return nil }

func clonePosting(p posting.JobPosting) posting.JobPosting {
	if p.PostedAt != nil {
		t := *p.PostedAt
		p.PostedAt = &t
	}
	return p
}
