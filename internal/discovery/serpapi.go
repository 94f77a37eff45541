package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultSerpAPIURL is the Google search endpoint.
	DefaultSerpAPIURL = "https://serpapi.com/search.json"
	defaultNum        = 10
	serpTimeout       = 20 * time.Second
	maxErrorBody      = 512
)

// Searcher runs one web search and returns result links in rank order.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// SerpAPIConfig configures the SerpAPI client.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	// Num is the number of results requested per query.
	Num     int
	Timeout time.Duration
}

// SerpAPI searches Google through serpapi.com.
type SerpAPI struct {
	cfg    SerpAPIConfig
	client *http.Client
}

// NewSerpAPI constructs a client with defaults applied.
func NewSerpAPI(cfg SerpAPIConfig) *SerpAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSerpAPIURL
	}
	if cfg.Num <= 0 {
		cfg.Num = defaultNum
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = serpTimeout
	}
	return &SerpAPI{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

type serpResponse struct {
	OrganicResults []struct {
		Link string `json:"link"`
	} `json:"organic_results"`
}

// Search returns the organic result links for query.
func (s *SerpAPI) Search(ctx context.Context, query string) ([]string, error) {
	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", query)
	params.Set("num", strconv.Itoa(s.cfg.Num))
	params.Set("api_key", s.cfg.APIKey)
	params.Set("hl", "en")
	params.Set("gl", "us")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build serpapi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serpapi GET: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("serpapi returned %d: %s", resp.StatusCode, body)
	}

	var decoded serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	links := make([]string, 0, len(decoded.OrganicResults))
	for _, r := range decoded.OrganicResults {
		if r.Link != "" {
			links = append(links, r.Link)
		}
	}
	return links, nil
}
