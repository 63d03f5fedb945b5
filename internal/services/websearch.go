// SearxNG implementation of [Searcher]
//
// Talks to a SearxNG instance's JSON API and extracts readable text from the
// result pages for corpus enrichment.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/shared"
	"golang.org/x/net/html"
)

const (
	defaultSearchResults = 3
	pageFetchTimeout     = 15 * time.Second
	maxPageTextRunes     = 8000
)

// searxResponse is the subset of a SearxNG JSON response we consume.
type searxResponse struct {
	Results []struct {
		URL     string `json:"url"`
		Title   string `json:"title"`
		Content string `json:"content"`
	} `json:"results"`
}

// SearxService implements [Searcher] against a SearxNG instance.
type SearxService struct {
	endpoint   string
	maxResults int
	httpClient *http.Client
	logger     *log.Logger
}

// NewSearxService creates a web searcher against the given SearxNG endpoint.
func NewSearxService(endpoint string, maxResults int, logger *log.Logger) (*SearxService, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("%w: search endpoint", shared.ErrMissingConfig)
	}
	if maxResults <= 0 {
		maxResults = defaultSearchResults
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SearxService{
		endpoint:   strings.TrimRight(endpoint, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: pageFetchTimeout},
		logger:     logger,
	}, nil
}

func (s *SearxService) Name() string {
	return "SearxNG"
}

// search runs one query and returns up to maxResults hits.
func (s *SearxService) search(ctx context.Context, query string) ([]PageResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")

	searchURL := s.endpoint + "/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: search status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var decoded searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	results := make([]PageResult, 0, s.maxResults)
	for _, r := range decoded.Results {
		if len(results) >= s.maxResults {
			break
		}
		if r.URL == "" {
			continue
		}
		results = append(results, PageResult{URL: r.URL, Title: r.Title})
	}
	return results, nil
}

// fetchText downloads a page and extracts its readable text.
func (s *SearxService) fetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("page status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "html") {
		return "", fmt.Errorf("unsupported content type %s", contentType)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return "", err
	}

	return extractText(doc), nil
}

// SearchAndFetch runs every query concurrently, fetches the result pages
// concurrently, and returns pages with non-empty extracted text. Per-query and
// per-page failures are logged and skipped.
func (s *SearxService) SearchAndFetch(ctx context.Context, queries []string) ([]PageResult, error) {
	perQuery := make([][]PageResult, len(queries))

	var searches sync.WaitGroup
	for i, query := range queries {
		searches.Add(1)
		go func(i int, query string) {
			defer searches.Done()

			hits, err := s.search(ctx, query)
			if err != nil {
				s.logger.Warn("search query failed", "query", query, "err", err)
				return
			}
			perQuery[i] = hits
		}(i, query)
	}
	searches.Wait()

	// Merge in query order so dedupe is deterministic.
	var candidates []PageResult
	seen := make(map[string]bool)
	for _, hits := range perQuery {
		for _, hit := range hits {
			if seen[hit.URL] {
				continue
			}
			seen[hit.URL] = true
			candidates = append(candidates, hit)
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no search results", shared.ErrServiceUnavailable)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	pages := make([]PageResult, 0, len(candidates))

	for _, candidate := range candidates {
		wg.Add(1)
		go func(page PageResult) {
			defer wg.Done()

			text, err := s.fetchText(ctx, page.URL)
			if err != nil {
				s.logger.Debug("page fetch failed", "url", page.URL, "err", err)
				return
			}
			if strings.TrimSpace(text) == "" {
				return
			}

			page.Text = text
			mu.Lock()
			pages = append(pages, page)
			mu.Unlock()
		}(candidate)
	}
	wg.Wait()

	return pages, nil
}

// extractText walks the parsed document collecting text nodes, skipping markup
// that never carries prose.
func extractText(doc *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head", "nav", "footer":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	text := b.String()
	if runes := []rune(text); len(runes) > maxPageTextRunes {
		text = string(runes[:maxPageTextRunes])
	}
	return text
}
