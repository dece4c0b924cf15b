// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// DailyMed v2 services endpoint. Var so tests can substitute an httptest
// server.
var dailyMedBase = "https://dailymed.nlm.nih.gov/dailymed/services/v2"

// splSectionCodes maps the LOINC codes of the SPL sections worth quoting
// to readable labels. Sections outside this table are ignored.
var splSectionCodes = map[string]string{
	"34067-9": "indications and usage",
	"34068-7": "dosage and administration",
	"43685-7": "warnings and precautions",
	"34084-4": "adverse reactions",
	"34073-7": "drug interactions",
	"34090-1": "clinical pharmacology",
}

// splSectionOrder fixes the order sections appear in the summary,
// most clinically useful first.
var splSectionOrder = []string{
	"34067-9", "34068-7", "43685-7", "34084-4", "34073-7", "34090-1",
}

const (
	splSectionCharCap = 3000
	splLabelsPerDrug  = 2
)

// DailyMedSource fetches FDA structured product labels (R2.1). It only
// activates when the profile's tags name a recognizable drug; a question
// with no drug entity yields zero items, not an error.
type DailyMedSource struct {
	Client  *http.Client
	limiter *rate.Limiter
}

// NewDailyMedSource builds the adapter with DailyMed's 2 req/s courtesy
// rate.
func NewDailyMedSource(client *http.Client) *DailyMedSource {
	return &DailyMedSource{
		Client:  client,
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
}

// Name returns the source identifier.
func (s *DailyMedSource) Name() string { return "dailymed" }

// Search resolves drug terms from the profile, then runs one SPL search
// per drug and fetches the label XML for each hit.
func (s *DailyMedSource) Search(ctx context.Context, profile types.QueryProfile, cfg types.RetrievalConfig) ([]types.EvidenceItem, error) {
	drugs := drugTerms(profile)
	if len(drugs) == 0 {
		return nil, nil
	}

	// A failed drug degrades to the others; the source errors only when
	// every drug failed.
	var items []types.EvidenceItem
	var errs []error
	for _, drug := range drugs {
		spls, err := s.searchSPLs(ctx, drug, cfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("DailyMed search for %q: %w", drug, err))
			continue
		}
		if len(spls) > splLabelsPerDrug {
			spls = spls[:splLabelsPerDrug]
		}
		for _, spl := range spls {
			item, err := s.fetchLabel(ctx, spl, cfg)
			if err != nil {
				errs = append(errs, fmt.Errorf("DailyMed label %s: %w", spl.SetID, err))
				continue
			}
			items = append(items, item)
		}
	}
	if len(items) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	markAnchors(items, profile)
	return items, nil
}

func (s *DailyMedSource) searchSPLs(ctx context.Context, drug string, cfg types.RetrievalConfig) ([]dailyMedSPL, error) {
	params := url.Values{
		"drug_name":       {drug},
		"published_after": {"2020-01-01"},
		"pagesize":        {strconv.Itoa(splLabelsPerDrug * 2)},
	}

	var sr dailyMedSearchResponse
	if err := s.getJSON(ctx, dailyMedBase+"/spls.json?"+params.Encode(), cfg, &sr); err != nil {
		return nil, err
	}
	return sr.Data, nil
}

func (s *DailyMedSource) fetchLabel(ctx context.Context, spl dailyMedSPL, cfg types.RetrievalConfig) (types.EvidenceItem, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return types.EvidenceItem{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dailyMedBase+"/spls/"+spl.SetID+".xml", nil)
	if err != nil {
		return types.EvidenceItem{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, s.Client, req, 0)
	if err != nil {
		return types.EvidenceItem{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.EvidenceItem{}, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var root splNode
	if err := xml.NewDecoder(resp.Body).Decode(&root); err != nil {
		return types.EvidenceItem{}, fmt.Errorf("parsing SPL XML: %w", err)
	}

	return types.EvidenceItem{
		ID:         "spl:" + spl.SetID,
		SourceName: "dailymed",
		Category:   types.CategoryDrugInfo,
		Title:      strings.TrimSpace(spl.Title),
		Summary:    splSummary(&root),
		Year:       ctgovYear(spl.Published),
		URLParts:   types.URLParts{PrimaryID: spl.SetID},
	}, nil
}

func (s *DailyMedSource) getJSON(ctx context.Context, rawURL string, cfg types.RetrievalConfig, out any) error {
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

// splNode is a generic SPL XML element. SPL tags sections with a child
// <code code="LOINC"/> element, so the tree has to be walked rather than
// mapped to fixed structs.
type splNode struct {
	XMLName xml.Name
	Code    string    `xml:"code,attr"`
	Text    string    `xml:",chardata"`
	Nodes   []splNode `xml:",any"`
}

// splSummary extracts the LOINC-coded sections from a parsed label and
// joins them in clinical priority order, capping each section's length.
func splSummary(root *splNode) string {
	found := make(map[string]string)
	collectSPLSections(root, found)

	var parts []string
	for _, code := range splSectionOrder {
		text, ok := found[code]
		if !ok {
			continue
		}
		if len(text) > splSectionCharCap {
			text = text[:splSectionCharCap]
		}
		parts = append(parts, splSectionCodes[code]+": "+text)
	}
	return strings.Join(parts, "\n\n")
}

func collectSPLSections(n *splNode, found map[string]string) {
	if n.XMLName.Local == "section" {
		for i := range n.Nodes {
			child := &n.Nodes[i]
			if child.XMLName.Local != "code" {
				continue
			}
			if _, wanted := splSectionCodes[child.Code]; !wanted {
				continue
			}
			if _, seen := found[child.Code]; !seen {
				found[child.Code] = nodeText(n)
			}
		}
	}
	for i := range n.Nodes {
		collectSPLSections(&n.Nodes[i], found)
	}
}

func nodeText(n *splNode) string {
	var b strings.Builder
	var walk func(*splNode)
	walk = func(node *splNode) {
		if t := strings.TrimSpace(node.Text); t != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
		for i := range node.Nodes {
			walk(&node.Nodes[i])
		}
	}
	walk(n)
	return b.String()
}

// drugLexicon lists the generic drug names the tag vocabulary knows
// about. Membership decides whether DailyMed has anything to offer for a
// profile.
var drugLexicon = map[string]bool{
	"amoxicillin": true, "azithromycin": true, "ceftriaxone": true,
	"levofloxacin": true, "doxycycline": true, "vancomycin": true,
	"apixaban": true, "rivaroxaban": true, "dabigatran": true,
	"edoxaban": true, "warfarin": true, "heparin": true,
	"enoxaparin": true, "aspirin": true, "clopidogrel": true,
	"ticagrelor": true, "prasugrel": true,
	"metformin": true, "empagliflozin": true, "dapagliflozin": true,
	"semaglutide": true, "liraglutide": true, "insulin": true,
	"atorvastatin": true, "rosuvastatin": true,
	"lisinopril": true, "losartan": true, "sacubitril": true,
	"metoprolol": true, "carvedilol": true, "spironolactone": true,
	"amiodarone": true, "digoxin": true, "furosemide": true,
}

// drugTerms scans the profile's tags and query words for lexicon hits.
// Result is sorted for deterministic request order.
func drugTerms(profile types.QueryProfile) []string {
	seen := make(map[string]bool)

	consider := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		if drugLexicon[term] {
			seen[term] = true
		}
	}

	for _, tag := range profile.DecisionTags {
		consider(tag)
	}
	for _, tag := range profile.DiseaseTags {
		consider(tag)
	}
	for _, word := range strings.Fields(profile.QueryText()) {
		consider(strings.Trim(word, ".,;:()?!"))
	}

	drugs := make([]string, 0, len(seen))
	for d := range seen {
		drugs = append(drugs, d)
	}
	sort.Strings(drugs)
	return drugs
}

type dailyMedSearchResponse struct {
	Data []dailyMedSPL `json:"data"`
}

type dailyMedSPL struct {
	SetID     string `json:"setid"`
	Title     string `json:"title"`
	Published string `json:"published_date"`
}
