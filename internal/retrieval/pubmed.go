// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// NCBI E-utilities endpoints. Declared as vars so tests can substitute
// httptest servers.
var (
	pubmedSearchBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"
	pubmedFetchBase  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
)

// PubMedSource queries NCBI PubMed via E-utilities (R2.1). NCBI enforces a
// per-IP request quota, so the adapter owns an explicit rate gate shared by
// its esearch and efetch calls; the coordinator never throttles for it.
type PubMedSource struct {
	Client  *http.Client
	limiter *rate.Limiter
}

// NewPubMedSource builds the adapter with the correct E-utilities rate:
// 3 requests/second without an API key, 10 with one.
func NewPubMedSource(client *http.Client, apiKey string) *PubMedSource {
	rps := rate.Limit(3)
	if apiKey != "" {
		rps = 10
	}
	return &PubMedSource{
		Client:  client,
		limiter: rate.NewLimiter(rps, 1),
	}
}

// Name returns the source identifier.
func (s *PubMedSource) Name() string { return "pubmed" }

// Search runs esearch then efetch and maps the records into EvidenceItems.
func (s *PubMedSource) Search(ctx context.Context, profile types.QueryProfile, cfg types.RetrievalConfig) ([]types.EvidenceItem, error) {
	maxResults := cfg.MaxPerSource
	if maxResults <= 0 {
		maxResults = 20
	}

	pmids, err := s.esearch(ctx, profile.QueryText(), maxResults, cfg)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	articles, err := s.efetch(ctx, pmids, cfg)
	if err != nil {
		return nil, err
	}

	items := make([]types.EvidenceItem, 0, len(articles))
	for _, a := range articles {
		items = append(items, mapPubMedArticle(a))
	}
	markAnchors(items, profile)
	return items, nil
}

func (s *PubMedSource) esearch(ctx context.Context, query string, maxResults int, cfg types.RetrievalConfig) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {query},
		"retmode": {"json"},
		"retmax":  {strconv.Itoa(maxResults)},
		"sort":    {"relevance"},
	}
	if cfg.NCBIAPIKey != "" {
		params.Set("api_key", cfg.NCBIAPIKey)
	}

	var sr pubmedSearchResponse
	if err := s.getJSON(ctx, pubmedSearchBase+"?"+params.Encode(), cfg, &sr); err != nil {
		return nil, fmt.Errorf("PubMed esearch: %w", err)
	}
	return sr.ESearchResult.IDList, nil
}

func (s *PubMedSource) efetch(ctx context.Context, pmids []string, cfg types.RetrievalConfig) ([]pubmedArticle, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}
	if cfg.NCBIAPIKey != "" {
		params.Set("api_key", cfg.NCBIAPIKey)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedFetchBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("PubMed efetch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PubMed efetch returned HTTP %d", resp.StatusCode)
	}

	var set pubmedArticleSet
	if err := xml.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("parsing PubMed efetch response: %w", err)
	}
	return set.Articles, nil
}

func (s *PubMedSource) getJSON(ctx context.Context, rawURL string, cfg types.RetrievalConfig, out any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// mapPubMedArticle converts one efetch record into the canonical item
// shape. Pure so it can be unit-tested without network calls.
func mapPubMedArticle(a pubmedArticle) types.EvidenceItem {
	item := types.EvidenceItem{
		ID:         "pmid:" + a.MedlineCitation.PMID,
		SourceName: "pubmed",
		Category:   pubmedCategory(a.MedlineCitation.Article.PublicationTypeList.Types),
		Title:      strings.TrimSpace(a.MedlineCitation.Article.Title),
		Summary:    strings.TrimSpace(strings.Join(a.MedlineCitation.Article.Abstract.Texts, " ")),
		URLParts:   types.URLParts{PrimaryID: a.MedlineCitation.PMID},
	}

	if y, err := strconv.Atoi(a.MedlineCitation.Article.Journal.JournalIssue.PubDate.Year); err == nil {
		item.Year = y
	}

	for _, id := range a.PubmedData.ArticleIDs {
		switch id.IDType {
		case "doi":
			item.URLParts.DOI = id.Value
		case "pmc":
			item.URLParts.SecondaryID = id.Value
		}
	}
	return item
}

// pubmedCategory maps MEDLINE publication types onto evidence categories.
// Guideline beats review beats trial when a record carries several.
func pubmedCategory(pubTypes []string) types.Category {
	var hasReview, hasTrial bool
	for _, pt := range pubTypes {
		switch pt {
		case "Practice Guideline", "Guideline":
			return types.CategoryGuideline
		case "Systematic Review", "Meta-Analysis", "Review":
			hasReview = true
		case "Randomized Controlled Trial", "Clinical Trial", "Controlled Clinical Trial":
			hasTrial = true
		}
	}
	if hasReview {
		return types.CategoryReview
	}
	if hasTrial {
		return types.CategoryTrial
	}
	return types.CategoryArticle
}

// E-utilities JSON and XML structures.
type pubmedSearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	MedlineCitation struct {
		PMID    string `xml:"PMID"`
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Texts []string `xml:"AbstractText"`
			} `xml:"Abstract"`
			Journal struct {
				JournalIssue struct {
					PubDate struct {
						Year string `xml:"Year"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
			PublicationTypeList struct {
				Types []string `xml:"PublicationType"`
			} `xml:"PublicationTypeList"`
		} `xml:"Article"`
	} `xml:"MedlineCitation"`
	PubmedData struct {
		ArticleIDs []pubmedArticleID `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type pubmedArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}
