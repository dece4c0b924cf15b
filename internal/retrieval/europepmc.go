// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Europe PMC REST endpoint. Var so tests can substitute an httptest server.
var europePMCBase = "https://www.ebi.ac.uk/europepmc/webservices/rest/search"

// EuropePMCMode selects what slice of Europe PMC a source instance covers.
type EuropePMCMode int

const (
	// EuropePMCGuidelines restricts the query to practice guidelines.
	// Used in the primary source set, where PubMed already covers the
	// broad literature and this instance fills the guideline gap.
	EuropePMCGuidelines EuropePMCMode = iota
	// EuropePMCBroad searches without a type restriction. Used in the
	// fallback source set when the primary pass came back thin.
	EuropePMCBroad
)

// EuropePMCSource queries the Europe PMC REST API (R2.1, R7.2). Records
// with a PMID are normalized to the same identifier PubMed produces so
// the coordinator can merge duplicates across the two sources.
type EuropePMCSource struct {
	Client *http.Client
	Mode   EuropePMCMode
}

// Name returns the source identifier.
func (s *EuropePMCSource) Name() string { return "europepmc" }

// Search queries the REST search endpoint.
func (s *EuropePMCSource) Search(ctx context.Context, profile types.QueryProfile, cfg types.RetrievalConfig) ([]types.EvidenceItem, error) {
	maxResults := cfg.MaxPerSource
	if maxResults <= 0 {
		maxResults = 20
	}

	query := profile.QueryText()
	if s.Mode == EuropePMCGuidelines {
		query = fmt.Sprintf(`(%s) AND PUB_TYPE:"Practice Guideline"`, query)
	}

	params := url.Values{
		"query":    {query},
		"format":   {"json"},
		"pageSize": {strconv.Itoa(maxResults)},
	}
	if cfg.ContactEmail != "" {
		params.Set("email", cfg.ContactEmail)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, europePMCBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("Europe PMC request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Europe PMC returned HTTP %d", resp.StatusCode)
	}

	var sr europePMCResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing Europe PMC response: %w", err)
	}

	items := make([]types.EvidenceItem, 0, len(sr.ResultList.Results))
	for _, r := range sr.ResultList.Results {
		item, ok := mapEuropePMCResult(r)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	markAnchors(items, profile)
	return items, nil
}

// mapEuropePMCResult converts one REST result. Records with no usable
// identifier are dropped rather than invented.
func mapEuropePMCResult(r europePMCResult) (types.EvidenceItem, bool) {
	item := types.EvidenceItem{
		SourceName: "europepmc",
		Category:   europePMCCategory(r.PubType),
		Title:      strings.TrimSpace(r.Title),
		Summary:    strings.TrimSpace(r.AbstractText),
		URLParts: types.URLParts{
			DOI:         r.DOI,
			SecondaryID: r.PMCID,
		},
	}
	switch {
	case r.PMID != "":
		item.ID = "pmid:" + r.PMID
		item.URLParts.PrimaryID = r.PMID
	case r.PMCID != "":
		item.ID = "pmcid:" + r.PMCID
		item.URLParts.PrimaryID = r.PMCID
	case r.DOI != "":
		item.ID = "doi:" + r.DOI
		item.URLParts.PrimaryID = r.DOI
	default:
		return types.EvidenceItem{}, false
	}
	if y, err := strconv.Atoi(r.PubYear); err == nil {
		item.Year = y
	}
	return item, true
}

func europePMCCategory(pubType string) types.Category {
	lower := strings.ToLower(pubType)
	switch {
	case strings.Contains(lower, "guideline"):
		return types.CategoryGuideline
	case strings.Contains(lower, "review"), strings.Contains(lower, "meta-analysis"):
		return types.CategoryReview
	case strings.Contains(lower, "trial"):
		return types.CategoryTrial
	default:
		return types.CategoryArticle
	}
}

type europePMCResponse struct {
	ResultList struct {
		Results []europePMCResult `json:"result"`
	} `json:"resultList"`
}

type europePMCResult struct {
	PMID         string `json:"pmid"`
	PMCID        string `json:"pmcid"`
	DOI          string `json:"doi"`
	Title        string `json:"title"`
	AbstractText string `json:"abstractText"`
	PubYear      string `json:"pubYear"`
	PubType      string `json:"pubType"`
}
