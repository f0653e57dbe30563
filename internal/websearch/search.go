package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// Backend identifies which web search provider to query.
type Backend string

const (
	BackendSearXNG    Backend = "searxng"
	BackendBrave      Backend = "brave"
	BackendDuckDuckGo Backend = "duckduckgo"
)

// braveSearchURL is Brave Search's web search API endpoint, a var so tests
// can point it at a local server.
var braveSearchURL = "https://api.search.brave.com/res/v1/web/search"

// Config configures the Searcher.
type Config struct {
	SearXNGURL         string
	BraveAPIKey        string
	DefaultBackend     Backend
	DefaultResultCount int
	CacheTTL           time.Duration
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type cacheEntry struct {
	results   []Result
	expiresAt time.Time
}

// Searcher implements web search against SearXNG, Brave, or DuckDuckGo's
// Instant Answer API, with a short-lived in-memory cache.
type Searcher struct {
	config     Config
	httpClient *http.Client
	cache      map[string]cacheEntry
	cacheMu    sync.Mutex
}

// NewSearcher builds a Searcher, applying defaults for any unset config.
func NewSearcher(config Config) *Searcher {
	if config.DefaultResultCount == 0 {
		config.DefaultResultCount = 5
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.DefaultBackend == "" {
		switch {
		case config.SearXNGURL != "":
			config.DefaultBackend = BackendSearXNG
		case config.BraveAPIKey != "":
			config.DefaultBackend = BackendBrave
		default:
			config.DefaultBackend = BackendDuckDuckGo
		}
	}
	return &Searcher{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      make(map[string]cacheEntry),
	}
}

// Search runs a query, using the default backend and result count when
// resultCount <= 0, and falling back to DuckDuckGo if the SearXNG or
// Brave backend fails.
func (s *Searcher) Search(ctx context.Context, query string, resultCount int) ([]Result, error) {
	if resultCount <= 0 {
		resultCount = s.config.DefaultResultCount
	}
	if resultCount > 20 {
		resultCount = 20
	}

	cacheKey := fmt.Sprintf("%s|%d", query, resultCount)
	if cached, ok := s.fromCache(cacheKey); ok {
		return cached, nil
	}

	var (
		results []Result
		err     error
	)
	switch s.config.DefaultBackend {
	case BackendSearXNG:
		results, err = s.searchSearXNG(ctx, query, resultCount)
		if err != nil {
			results, err = s.searchDuckDuckGo(ctx, query, resultCount)
		}
	case BackendBrave:
		results, err = s.searchBrave(ctx, query, resultCount)
		if err != nil {
			results, err = s.searchDuckDuckGo(ctx, query, resultCount)
		}
	default:
		results, err = s.searchDuckDuckGo(ctx, query, resultCount)
	}
	if err != nil {
		return nil, err
	}

	s.toCache(cacheKey, results)
	return results, nil
}

func (s *Searcher) fromCache(key string) ([]Result, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	entry, ok := s.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.results, true
}

func (s *Searcher) toCache(key string, results []Result) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cache[key] = cacheEntry{results: results, expiresAt: time.Now().Add(s.config.CacheTTL)}
}

func (s *Searcher) searchSearXNG(ctx context.Context, query string, resultCount int) ([]Result, error) {
	reqURL := fmt.Sprintf("%s/search?q=%s&format=json", s.config.SearXNGURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build searxng request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searxng request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode searxng response: %w", err)
	}

	results := make([]Result, 0, resultCount)
	for i, r := range parsed.Results {
		if i >= resultCount {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}

func (s *Searcher) searchBrave(ctx context.Context, query string, resultCount int) ([]Result, error) {
	if s.config.BraveAPIKey == "" {
		return nil, fmt.Errorf("brave search: no api key configured")
	}

	reqURL := fmt.Sprintf("%s?q=%s&count=%d", braveSearchURL, url.QueryEscape(query), resultCount)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build brave request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", s.config.BraveAPIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode brave response: %w", err)
	}

	results := make([]Result, 0, resultCount)
	for i, r := range parsed.Web.Results {
		if i >= resultCount {
			break
		}
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return results, nil
}

func (s *Searcher) searchDuckDuckGo(ctx context.Context, query string, resultCount int) ([]Result, error) {
	instantURL := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1", url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instantURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build duckduckgo request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agent-search/1.0)")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read duckduckgo response: %w", err)
	}

	var ddg struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			FirstURL string `json:"FirstURL"`
			Text     string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &ddg); err != nil {
		return nil, fmt.Errorf("decode duckduckgo response: %w", err)
	}

	var results []Result
	if ddg.AbstractText != "" && ddg.AbstractURL != "" {
		results = append(results, Result{Title: ddg.Heading, URL: ddg.AbstractURL, Snippet: ddg.AbstractText})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(results) >= resultCount {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		results = append(results, Result{Title: title, URL: topic.FirstURL, Snippet: topic.Text})
	}
	return results, nil
}
