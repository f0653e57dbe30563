package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSearchSearXNGClampsResultCount(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		results := make([]map[string]string, 0, 25)
		for i := 0; i < 25; i++ {
			results = append(results, map[string]string{
				"title":   "result",
				"url":     "https://example.com",
				"content": "snippet",
			})
		}
		json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer server.Close()

	searcher := NewSearcher(Config{SearXNGURL: server.URL})

	results, err := searcher.Search(context.Background(), "golang", 1000)
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 20 {
		t.Fatalf("expected results clamped to 20, got %d", len(results))
	}
	if hits != 1 {
		t.Fatalf("expected exactly 1 request, got %d", hits)
	}
}

func TestSearchCachesResults(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"title": "t", "url": "https://example.com", "content": "c"},
			},
		})
	}))
	defer server.Close()

	searcher := NewSearcher(Config{SearXNGURL: server.URL})

	if _, err := searcher.Search(context.Background(), "same query", 5); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := searcher.Search(context.Background(), "same query", 5); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected cache to suppress second request, got %d hits", hits)
	}
}

func TestCacheExpiry(t *testing.T) {
	searcher := NewSearcher(Config{CacheTTL: -1})
	searcher.toCache("key", []Result{{Title: "t"}})

	if _, ok := searcher.fromCache("key"); ok {
		t.Fatal("expected cache entry to have already expired")
	}
}

func TestNewSearcherDefaultBackend(t *testing.T) {
	withSearXNG := NewSearcher(Config{SearXNGURL: "https://searx.example.com"})
	if withSearXNG.config.DefaultBackend != BackendSearXNG {
		t.Errorf("expected SearXNG backend when URL is set, got %s", withSearXNG.config.DefaultBackend)
	}

	withBrave := NewSearcher(Config{BraveAPIKey: "key"})
	if withBrave.config.DefaultBackend != BackendBrave {
		t.Errorf("expected Brave backend when only an api key is set, got %s", withBrave.config.DefaultBackend)
	}

	without := NewSearcher(Config{})
	if without.config.DefaultBackend != BackendDuckDuckGo {
		t.Errorf("expected DuckDuckGo backend by default, got %s", without.config.DefaultBackend)
	}
}

func TestSearchBraveSendsSubscriptionTokenHeader(t *testing.T) {
	var gotToken string
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("X-Subscription-Token")
		gotQuery = r.URL.Query().Get("q")
		json.NewEncoder(w).Encode(map[string]any{
			"web": map[string]any{
				"results": []map[string]string{
					{"title": "t", "url": "https://example.com", "description": "d"},
				},
			},
		})
	}))
	defer server.Close()

	searcher := NewSearcher(Config{BraveAPIKey: "secret-token"})
	oldURL := braveSearchURL
	braveSearchURL = server.URL
	defer func() { braveSearchURL = oldURL }()

	results, err := searcher.searchBrave(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("searchBrave returned error: %v", err)
	}
	if gotToken != "secret-token" {
		t.Fatalf("expected subscription token header, got %q", gotToken)
	}
	if gotQuery != "golang" {
		t.Fatalf("expected query param golang, got %q", gotQuery)
	}
	if len(results) != 1 || results[0].Title != "t" || results[0].Snippet != "d" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchBraveErrorsWithoutAPIKey(t *testing.T) {
	searcher := NewSearcher(Config{})
	if _, err := searcher.searchBrave(context.Background(), "golang", 5); err == nil {
		t.Fatal("expected error when no api key is configured")
	}
}

func TestSearchBraveErrorsOnNon200Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	searcher := NewSearcher(Config{BraveAPIKey: "secret-token"})
	oldURL := braveSearchURL
	braveSearchURL = server.URL
	defer func() { braveSearchURL = oldURL }()

	if _, err := searcher.searchBrave(context.Background(), "golang", 5); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}
