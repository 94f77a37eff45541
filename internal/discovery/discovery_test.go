package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSerpAPISearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google" || q.Get("hl") != "en" || q.Get("gl") != "us" ||
			q.Get("num") != "10" || q.Get("api_key") != "secret" {
			http.Error(w, "bad params "+r.URL.RawQuery, http.StatusBadRequest)
			return
		}
		if q.Get("q") != `"Sales Strategy" site:boards.greenhouse.io` {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"organic_results":[
			{"link":"https://boards.greenhouse.io/acme"},
			{"title":"no link"},
			{"link":"https://boards.greenhouse.io/globex/jobs/2"}
		]}`))
	}))
	defer srv.Close()

	s := NewSerpAPI(SerpAPIConfig{APIKey: "secret", BaseURL: srv.URL})
	links, err := s.Search(context.Background(), `"Sales Strategy" site:boards.greenhouse.io`)
	require.NoError(t, err)
	require.Equal(t, []string{"https://boards.greenhouse.io/acme", "https://boards.greenhouse.io/globex/jobs/2"}, links)
}

func TestSerpAPISearchErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "junk" {
			_, _ = w.Write([]byte(`not json`))
			return
		}
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSerpAPI(SerpAPIConfig{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	_, err := s.Search(context.Background(), "anything")
	require.ErrorContains(t, err, "429")
	_, err = s.Search(context.Background(), "junk")
	require.ErrorContains(t, err, "decode")
}

type fakeSearcher struct {
	mu      sync.Mutex
	results map[string][]string
	fail    map[string]bool
	calls   []string
}

func (f *fakeSearcher) Search(_ context.Context, q string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, q)
	if f.fail[q] {
		return nil, errors.New("search down")
	}
	return f.results[q], nil
}

func TestSearchQueries(t *testing.T) {
	t.Parallel()

	s := NewSearch(nil, []string{"RevOps", "GTM"}, []string{"site:a", "site:b"}, 0, nil)
	require.Equal(t, []string{
		`"RevOps" site:a`, `"RevOps" site:b`, `"GTM" site:a`, `"GTM" site:b`,
	}, s.Queries())
}

func TestSearchDiscoverKeepsQueryOrderAndDedupes(t *testing.T) {
	t.Parallel()

	f := &fakeSearcher{
		results: map[string][]string{
			`"RevOps" site:a`: {"https://a/1", "https://a/2"},
			`"GTM" site:a`:    {"https://a/2", "https://a/3"},
		},
		fail: map[string]bool{`"RevOps" site:b`: true},
	}
	s := NewSearch(f, []string{"RevOps", "GTM"}, []string{"site:a", "site:b"}, 2, nil)

	urls, err := s.Discover(context.Background())
	require.NoError(t, err, "partial failure is not an error")
	require.Equal(t, []string{"https://a/1", "https://a/2", "https://a/3"}, urls)

	calls := append([]string(nil), f.calls...)
	sort.Strings(calls)
	require.Len(t, calls, 4)
}

func TestSearchDiscoverAllFail(t *testing.T) {
	t.Parallel()

	f := &fakeSearcher{fail: map[string]bool{`"RevOps" site:a`: true}}
	urls, err := NewSearch(f, []string{"RevOps"}, []string{"site:a"}, 0, nil).Discover(context.Background())
	require.Error(t, err)
	require.Empty(t, urls)
}

type fakeRedis struct {
	mu      sync.Mutex
	data    map[string]string
	ttl     map[string]time.Duration
	readErr error
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return redis.NewStringResult("", f.readErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func TestCachedSearcherMemoizes(t *testing.T) {
	t.Parallel()

	next := &fakeSearcher{results: map[string][]string{"q": {"https://a/1"}}}
	rdb := newFakeRedis()
	c := NewCachedSearcher(next, rdb, 6*time.Hour, nil)

	for range 3 {
		links, err := c.Search(context.Background(), "q")
		require.NoError(t, err)
		require.Equal(t, []string{"https://a/1"}, links)
	}
	require.Len(t, next.calls, 1)
	require.Equal(t, 6*time.Hour, rdb.ttl[CacheKey("q")])

	var cached []string
	require.NoError(t, json.Unmarshal([]byte(rdb.data[CacheKey("q")]), &cached))
	require.Equal(t, []string{"https://a/1"}, cached)
}

func TestCachedSearcherFallsThrough(t *testing.T) {
	t.Parallel()

	next := &fakeSearcher{results: map[string][]string{"q": {"https://a/1"}}, fail: map[string]bool{"bad": true}}
	rdb := newFakeRedis()
	rdb.readErr = errors.New("connection refused")
	c := NewCachedSearcher(next, rdb, time.Hour, nil)

	links, err := c.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"https://a/1"}, links)

	_, err = c.Search(context.Background(), "bad")
	require.Error(t, err)
	require.NotContains(t, rdb.data, CacheKey("bad"), "failures are not cached")

	rdb.readErr = nil
	rdb.data[CacheKey("q")] = "{corrupt"
	links, err = c.Search(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"https://a/1"}, links)
}

type failingSource struct{ partial []string }

func (f failingSource) Discover(context.Context) ([]string, error) {
	return f.partial, errors.New("source failed")
}

func TestCombine(t *testing.T) {
	t.Parallel()

	seeds := Static{"https://boards.greenhouse.io/acme", "https://jobs.lever.co/globex"}
	c := Combine(nil, seeds, nil, failingSource{partial: []string{"https://jobs.lever.co/globex", "", "https://x/1"}})

	urls, err := c.Discover(context.Background())
	require.ErrorContains(t, err, "source failed")
	require.Equal(t, []string{"https://boards.greenhouse.io/acme", "https://jobs.lever.co/globex", "https://x/1"}, urls)

	urls, err = Combine(nil).Discover(context.Background())
	require.NoError(t, err)
	require.Empty(t, urls)
}

func TestStaticReturnsCopy(t *testing.T) {
	t.Parallel()

	seeds := Static{"https://a/1"}
	got, err := seeds.Discover(context.Background())
	require.NoError(t, err)
	got[0] = "mutated"
	require.Equal(t, "https://a/1", seeds[0])
}
