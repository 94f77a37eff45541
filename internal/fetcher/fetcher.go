// Package fetcher defines the page retrieval contract used by the parsers.
package fetcher

import "context"

// Page is a successfully retrieved document.
type Page struct {
	// URL is the address that was requested.
	URL string
	// FinalURL is the address after redirects. Relative links resolve against it.
	FinalURL string
	// StatusCode is always 200 for a returned Page.
	StatusCode int
	Body       []byte
}

// Fetcher retrieves one page. The boolean is false on transport errors,
// timeouts, non-200 responses and cancellation; no error detail is surfaced.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, bool)
}

// Func adapts a function to the Fetcher interface.
type Func func(ctx context.Context, url string) (Page, bool)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, url string) (Page, bool) {
	return f(ctx, url)
}
