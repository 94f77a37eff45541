package collyfetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRobotsFetchedOncePerHost(t *testing.T) {
	t.Parallel()

	var robotsHits, pageHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		robotsHits.Add(1)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		pageHits.Add(1)
		_, _ = w.Write([]byte("<html>jobs</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Config{RespectRobots: true, Timeout: time.Second}, nil, nil)
	for _, path := range []string{"/careers", "/careers/sales", "/jobs"} {
		_, ok := f.Fetch(context.Background(), srv.URL+path)
		require.True(t, ok, path)
	}
	_, ok := f.Fetch(context.Background(), srv.URL+"/private/roles")
	require.False(t, ok, "disallowed paths are not fetched")

	require.Equal(t, int32(1), robotsHits.Load())
	require.Equal(t, int32(3), pageHits.Load())
}

func TestRobotsCacheSkipsServerErrors(t *testing.T) {
	t.Parallel()

	base := &countingRoundTripper{status: http.StatusServiceUnavailable}
	transport := newRobotsCachingTransport(base)

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "https://boards.example/robots.txt", nil)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		_ = resp.Body.Close()
	}
	require.Equal(t, 2, base.calls)

	base.status = http.StatusNotFound
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "https://boards.example/robots.txt", nil)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		_ = resp.Body.Close()
	}
	require.Equal(t, 3, base.calls)
}

func TestRobotsTransportPassesThroughPages(t *testing.T) {
	t.Parallel()

	base := &countingRoundTripper{status: http.StatusOK, body: "page"}
	transport := newRobotsCachingTransport(base)

	for range 2 {
		req := httptest.NewRequest(http.MethodGet, "https://boards.example/jobs", nil)
		resp, err := transport.RoundTrip(req)
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "page", string(body))
		_ = resp.Body.Close()
	}
	require.Equal(t, 2, base.calls)

	base.err = errors.New("connection refused")
	_, err := transport.RoundTrip(httptest.NewRequest(http.MethodGet, "https://other.example/robots.txt", nil))
	require.ErrorContains(t, err, "fetch robots.txt")
}

type countingRoundTripper struct {
	status int
	body   string
	err    error
	calls  int
}

func (c *countingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &http.Response{
		StatusCode: c.status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(c.body)),
		Request:    req,
	}, nil
}
