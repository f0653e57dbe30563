// Package websearch implements the fetch and web_search tools: SSRF-safe
// HTTP retrieval with readability-based content extraction, and a
// pluggable web search backend with a short-lived result cache.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

// Extractor fetches a URL and returns its readable text content.
type Extractor struct {
	httpClient    *http.Client
	skipSSRFCheck bool
}

// NewExtractor builds an Extractor enforcing SSRF protections.
func NewExtractor() *Extractor {
	return &Extractor{httpClient: &http.Client{Timeout: 15 * time.Second}}
}

// Extract fetches targetURL and returns its main readable content as
// plain text, truncated by the caller as needed.
func (e *Extractor) Extract(ctx context.Context, targetURL string) (title, content string, err error) {
	if !e.skipSSRFCheck {
		if err := validateURLForSSRF(targetURL); err != nil {
			return "", "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agent-fetch/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("fetch: unexpected status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, 10<<20)
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid URL: %w", err)
	}

	article, err := readability.FromReader(limited, parsed)
	if err != nil {
		return "", "", fmt.Errorf("extract readable content: %w", err)
	}

	return article.Title, strings.TrimSpace(article.TextContent), nil
}

// isPrivateOrReservedIP reports whether ip must not be reachable from a
// fetch tool invocation.
func isPrivateOrReservedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() {
		return true
	}
	metadataIP := net.ParseIP("169.254.169.254")
	return ip.Equal(metadataIP)
}

// validateURLForSSRF rejects non-http(s) schemes, localhost, and URLs
// resolving to private/reserved IP ranges.
func validateURLForSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got: %s", parsed.Scheme)
	}

	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}

	lowerHost := strings.ToLower(hostname)
	if lowerHost == "localhost" || strings.HasSuffix(lowerHost, ".localhost") {
		return fmt.Errorf("localhost URLs are not allowed")
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isPrivateOrReservedIP(ip) {
			return fmt.Errorf("URL resolves to private/reserved IP address")
		}
	}
	return nil
}
