// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// SerpAPI endpoint. Var so tests can substitute an httptest server.
var webSearchBase = "https://serpapi.com/search.json"

// WebSearchSource is the last-resort fallback source (R7.2). It queries
// Google Scholar through SerpAPI and maps organic results onto category
// article. Runs only in the fallback set, and only when a serp-api-key
// secret is configured.
type WebSearchSource struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *WebSearchSource) Name() string { return "websearch" }

// Search queries SerpAPI. Returns an error when no API key is configured
// so the coordinator surfaces the misconfiguration as a warning instead
// of silently skipping the source.
func (s *WebSearchSource) Search(ctx context.Context, profile types.QueryProfile, cfg types.RetrievalConfig) ([]types.EvidenceItem, error) {
	if cfg.SerpAPIKey == "" {
		return nil, fmt.Errorf("web search requires a serp-api-key secret")
	}

	params := url.Values{
		"engine":  {"google_scholar"},
		"q":       {profile.QueryText()},
		"api_key": {cfg.SerpAPIKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, webSearchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("web search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search returned HTTP %d", resp.StatusCode)
	}

	var sr serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing web search response: %w", err)
	}

	maxResults := cfg.MaxPerSource
	if maxResults <= 0 {
		maxResults = 20
	}

	items := make([]types.EvidenceItem, 0, len(sr.OrganicResults))
	for _, r := range sr.OrganicResults {
		if len(items) >= maxResults {
			break
		}
		link := strings.TrimSpace(r.Link)
		if link == "" {
			continue
		}
		items = append(items, types.EvidenceItem{
			ID:         webResultID(link),
			SourceName: "websearch",
			Category:   types.CategoryArticle,
			Title:      strings.TrimSpace(r.Title),
			Summary:    strings.TrimSpace(r.Snippet),
			URLParts:   types.URLParts{PrimaryID: link},
		})
	}
	markAnchors(items, profile)
	return items, nil
}

// webResultID derives a stable identifier from the result URL, so the
// same document found twice dedups cleanly.
func webResultID(link string) string {
	sum := sha256.Sum256([]byte(link))
	return "web:" + hex.EncodeToString(sum[:8])
}

type serpResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}
