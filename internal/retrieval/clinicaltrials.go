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

// ClinicalTrials.gov v2 API endpoint. Var so tests can substitute an
// httptest server.
var clinicalTrialsBase = "https://clinicaltrials.gov/api/v2/studies"

// ClinicalTrialsSource queries the ClinicalTrials.gov v2 studies API
// (R2.1). Every record maps to category trial and carries its NCT number
// as the primary identifier.
type ClinicalTrialsSource struct {
	Client *http.Client
}

// Name returns the source identifier.
func (s *ClinicalTrialsSource) Name() string { return "clinicaltrials" }

// Search queries the studies endpoint with the profile's query text.
func (s *ClinicalTrialsSource) Search(ctx context.Context, profile types.QueryProfile, cfg types.RetrievalConfig) ([]types.EvidenceItem, error) {
	maxResults := cfg.MaxPerSource
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"query.term": {profile.QueryText()},
		"pageSize":   {strconv.Itoa(maxResults)},
		"fields":     {"NCTId,BriefTitle,BriefSummary,OverallStatus,StartDate,StudyType"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clinicalTrialsBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("ClinicalTrials.gov request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ClinicalTrials.gov returned HTTP %d", resp.StatusCode)
	}

	var sr ctgovResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("parsing ClinicalTrials.gov response: %w", err)
	}

	items := make([]types.EvidenceItem, 0, len(sr.Studies))
	for _, st := range sr.Studies {
		nct := st.ProtocolSection.Identification.NCTID
		if nct == "" {
			continue
		}
		items = append(items, types.EvidenceItem{
			ID:         nct,
			SourceName: "clinicaltrials",
			Category:   types.CategoryTrial,
			Title:      strings.TrimSpace(st.ProtocolSection.Identification.BriefTitle),
			Summary:    strings.TrimSpace(st.ProtocolSection.Description.BriefSummary),
			Year:       ctgovYear(st.ProtocolSection.Status.StartDate.Date),
			URLParts:   types.URLParts{PrimaryID: nct},
		})
	}
	markAnchors(items, profile)
	return items, nil
}

// ctgovYear extracts the year from a v2 date struct value, which is
// "YYYY", "YYYY-MM" or "YYYY-MM-DD".
func ctgovYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return y
}

type ctgovResponse struct {
	Studies []struct {
		ProtocolSection struct {
			Identification struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			Description struct {
				BriefSummary string `json:"briefSummary"`
			} `json:"descriptionModule"`
			Status struct {
				StartDate struct {
					Date string `json:"date"`
				} `json:"startDateStruct"`
			} `json:"statusModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}
