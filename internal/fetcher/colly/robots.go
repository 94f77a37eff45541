package collyfetcher

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// robotsCachingTransport answers repeat robots.txt requests from memory.
// Every fetch builds a fresh collector, and colly only remembers robots rules
// per collector, so without this each fetch would download robots.txt again.
type robotsCachingTransport struct {
	base    http.RoundTripper
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]robotsEntry
}

type robotsEntry struct {
	status int
	header http.Header
	body   []byte
}

func newRobotsCachingTransport(base http.RoundTripper) *robotsCachingTransport {
	return &robotsCachingTransport{base: base, entries: make(map[string]robotsEntry)}
}

func (t *robotsCachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil || req.URL == nil {
		return nil, errors.New("robots transport received nil request")
	}
	if !isRobotsTxtRequest(req) {
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("robots transport base roundtrip: %w", err)
		}
		return resp, nil
	}

	key := strings.ToLower(req.URL.Scheme + "://" + req.URL.Host)
	if entry, ok := t.lookup(key); ok {
		return entry.response(req), nil
	}
	v, err, _ := t.group.Do(key, func() (any, error) {
		if entry, ok := t.lookup(key); ok {
			return entry, nil
		}
		resp, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, fmt.Errorf("fetch robots.txt: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read robots.txt: %w", err)
		}
		entry := robotsEntry{status: resp.StatusCode, header: resp.Header.Clone(), body: body}
		// 5xx answers are transient and retried on the next fetch.
		if resp.StatusCode < http.StatusInternalServerError {
			t.mu.Lock()
			t.entries[key] = entry
			t.mu.Unlock()
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(robotsEntry).response(req), nil
}

func (t *robotsCachingTransport) lookup(key string) (robotsEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.entries[key]
	return entry, ok
}

func (e robotsEntry) response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    e.status,
		Status:        fmt.Sprintf("%d %s", e.status, http.StatusText(e.status)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Request:       req,
	}
}

func isRobotsTxtRequest(req *http.Request) bool {
	return strings.EqualFold(req.URL.Path, "/robots.txt")
}
