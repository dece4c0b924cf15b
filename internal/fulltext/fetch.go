// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fulltext fetches extended text for top curated items and cuts
// it into section-aware, citable chunks.
// Implements: prd014-chunking (R1-R4);
//
//	docs/ARCHITECTURE § Chunking.
package fulltext

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Full-text endpoints. Vars so tests can substitute httptest servers.
var (
	pmcFetchBase          = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	europePMCFullTextBase = "https://www.ebi.ac.uk/europepmc/webservices/rest"
)

// Result is one item's retrieved text, labeled by section. FullText is
// false when the cascade bottomed out at the item's own abstract.
type Result struct {
	Item     types.EvidenceItem
	Sections []RawSection
	FullText bool
}

// Fetcher runs the extended-text cascade: PMC open access first, Europe
// PMC full-text XML second, the item's abstract last. Fetch failures
// never propagate; a failed item just degrades to its abstract.
type Fetcher struct {
	Client *http.Client
	Config types.ChunkingConfig
}

// FetchAll fetches extended text for all items with bounded concurrency.
// Output order matches input order.
func (f *Fetcher) FetchAll(ctx context.Context, items []types.EvidenceItem, w io.Writer) []Result {
	concurrency := f.Config.FetchConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}

	results := make([]Result, len(items))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex // serializes warning output

	for i, item := range items {
		wg.Add(1)
		go func(i int, item types.EvidenceItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			callCtx := ctx
			if f.Config.Timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, f.Config.Timeout)
				defer cancel()
			}

			res, err := f.fetchOne(callCtx, item)
			if err != nil {
				mu.Lock()
				fmt.Fprintf(w, "warning: full text unavailable for %s, using abstract: %v\n", item.ID, err)
				mu.Unlock()
				res = abstractResult(item)
			}
			results[i] = res
		}(i, item)
	}
	wg.Wait()
	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, item types.EvidenceItem) (Result, error) {
	pmcid := item.URLParts.SecondaryID
	if !strings.HasPrefix(pmcid, "PMC") {
		return abstractResult(item), nil
	}

	sections, err := f.fetchPMC(ctx, pmcid)
	if err == nil && len(sections) > 0 {
		return Result{Item: item, Sections: sections, FullText: true}, nil
	}
	firstErr := err

	sections, err = f.fetchEuropePMC(ctx, pmcid)
	if err == nil && len(sections) > 0 {
		return Result{Item: item, Sections: sections, FullText: true}, nil
	}
	if firstErr == nil {
		firstErr = err
	}
	if firstErr == nil {
		// Both endpoints answered but neither had body text.
		return abstractResult(item), nil
	}
	return Result{}, firstErr
}

func (f *Fetcher) fetchPMC(ctx context.Context, pmcid string) ([]RawSection, error) {
	params := url.Values{
		"db":      {"pmc"},
		"id":      {strings.TrimPrefix(pmcid, "PMC")},
		"retmode": {"xml"},
	}
	return f.fetchJATS(ctx, pmcFetchBase+"?"+params.Encode())
}

func (f *Fetcher) fetchEuropePMC(ctx context.Context, pmcid string) ([]RawSection, error) {
	return f.fetchJATS(ctx, europePMCFullTextBase+"/"+pmcid+"/fullTextXML")
}

func (f *Fetcher) fetchJATS(ctx context.Context, rawURL string) ([]RawSection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.Config.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, f.Client, req, 0)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return parseJATS(resp.Body)
}

func abstractResult(item types.EvidenceItem) Result {
	var sections []RawSection
	if strings.TrimSpace(item.Summary) != "" {
		sections = []RawSection{{Type: types.SectionAbstract, Text: item.Summary}}
	}
	return Result{Item: item, Sections: sections, FullText: false}
}

// jatsNode is a generic JATS XML element; article structure varies too
// much across journals for fixed structs.
type jatsNode struct {
	XMLName xml.Name
	Text    string     `xml:",chardata"`
	Nodes   []jatsNode `xml:",any"`
}

// parseJATS extracts the abstract and the body's top-level sections from
// a JATS article, labeling each by its title heading.
func parseJATS(r io.Reader) ([]RawSection, error) {
	var root jatsNode
	if err := xml.NewDecoder(r).Decode(&root); err != nil {
		return nil, fmt.Errorf("parsing article XML: %w", err)
	}

	var sections []RawSection
	if abs := findNode(&root, "abstract"); abs != nil {
		if text := nodeText(abs); text != "" {
			sections = append(sections, RawSection{Type: types.SectionAbstract, Text: text})
		}
	}

	body := findNode(&root, "body")
	if body == nil {
		return sections, nil
	}
	for i := range body.Nodes {
		sec := &body.Nodes[i]
		if sec.XMLName.Local != "sec" {
			continue
		}
		heading := ""
		if title := findNode(sec, "title"); title != nil {
			heading = nodeText(title)
		}
		text := nodeTextExcluding(sec, "title")
		if text == "" {
			continue
		}
		sections = append(sections, RawSection{Type: SectionTypeForHeading(heading), Text: text})
	}
	return sections, nil
}

func findNode(n *jatsNode, local string) *jatsNode {
	if n.XMLName.Local == local {
		return n
	}
	for i := range n.Nodes {
		if found := findNode(&n.Nodes[i], local); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *jatsNode) string {
	return nodeTextExcluding(n, "")
}

func nodeTextExcluding(n *jatsNode, skip string) string {
	var b strings.Builder
	var walk func(*jatsNode)
	walk = func(node *jatsNode) {
		if t := strings.TrimSpace(node.Text); t != "" {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
		for i := range node.Nodes {
			if skip != "" && node.Nodes[i].XMLName.Local == skip {
				continue
			}
			walk(&node.Nodes[i])
		}
	}
	walk(n)
	return b.String()
}
