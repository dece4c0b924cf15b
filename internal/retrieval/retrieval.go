// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retrieval fans a query profile out to evidence sources and
// returns a unified, deduplicated candidate pool.
// Implements: prd010-retrieval (R1-R4);
//
//	docs/ARCHITECTURE § Retrieval.
package retrieval

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Source searches a single evidence backend. Each adapter (PubMed,
// ClinicalTrials.gov, DailyMed, Europe PMC, web search) implements this
// interface per the Strategy pattern (R2.5). Search must not return an
// error for ordinary empty results; errors mean infrastructure failure
// and the coordinator converts them to warnings plus an empty list.
type Source interface {
	Name() string
	Search(ctx context.Context, profile types.QueryProfile, cfg types.RetrievalConfig) ([]types.EvidenceItem, error)
}

// Output holds the deduplicated pool plus per-source statistics consumed
// by the sufficiency scorer.
type Output struct {
	Items        []types.EvidenceItem
	SourceCounts map[string]int
	DupsRemoved  int
	SourceErrors []string
}

// Retrieve fans the profile out to all sources concurrently, isolates
// per-source failures, and deduplicates by item ID (R1-R3). Each source
// call is bounded by cfg.SourceTimeout; a slow or broken source degrades
// recall, never the rest of the retrieval. No item ordering is guaranteed
// beyond source-grouped arrival order.
func Retrieve(ctx context.Context, profile types.QueryProfile, sources []Source, cfg types.RetrievalConfig, w io.Writer) (Output, error) {
	if profile.QueryText() == "" {
		return Output{}, fmt.Errorf("query profile is empty: no raw or expanded query text")
	}
	if len(sources) == 0 {
		return Output{}, fmt.Errorf("no retrieval sources configured")
	}

	type sourceResult struct {
		items []types.EvidenceItem
		err   error
		name  string
	}

	ch := make(chan sourceResult, len(sources))
	var wg sync.WaitGroup

	for _, s := range sources {
		wg.Add(1)
		go func(s Source) {
			defer wg.Done()
			callCtx := ctx
			if cfg.SourceTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, cfg.SourceTimeout)
				defer cancel()
			}
			items, err := s.Search(callCtx, profile, cfg)
			ch <- sourceResult{items: items, err: err, name: s.Name()}
		}(s)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	out := Output{SourceCounts: make(map[string]int, len(sources))}
	var all []types.EvidenceItem
	for sr := range ch {
		if sr.err != nil {
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %v", sr.name, sr.err))
			fmt.Fprintf(w, "warning: source %s failed: %v\n", sr.name, sr.err)
			out.SourceCounts[sr.name] = 0
			continue
		}
		out.SourceCounts[sr.name] = len(sr.items)
		all = append(all, sr.items...)
	}

	out.Items, out.DupsRemoved = Deduplicate(all)
	return out, nil
}

// Deduplicate merges items that share an ID. First-seen wins for ordinary
// fields, but an anchor flag from any duplicate always survives: a
// scenario match recognized by one source must not be lost because
// another source returned the same record first (R3.1, R3.2).
// Deduplicating an already-deduplicated pool is a no-op.
func Deduplicate(items []types.EvidenceItem) ([]types.EvidenceItem, int) {
	seen := make(map[string]int, len(items)) // item ID → index in deduped
	var deduped []types.EvidenceItem
	removed := 0

	for _, it := range items {
		if it.ID == "" {
			// An adapter violating the ID contract is a programming
			// error; drop the record rather than poison dedup.
			removed++
			continue
		}
		if idx, ok := seen[it.ID]; ok {
			mergeInto(&deduped[idx], it)
			removed++
			continue
		}
		seen[it.ID] = len(deduped)
		deduped = append(deduped, it)
	}
	return deduped, removed
}

// mergeInto fills empty fields of dst from src and promotes the anchor
// flag (R3.2).
func mergeInto(dst *types.EvidenceItem, src types.EvidenceItem) {
	if src.IsAnchor {
		dst.IsAnchor = true
	}
	if dst.Title == "" && src.Title != "" {
		dst.Title = src.Title
	}
	if dst.Summary == "" && src.Summary != "" {
		dst.Summary = src.Summary
	}
	if dst.Year == 0 && src.Year != 0 {
		dst.Year = src.Year
	}
	if dst.URLParts.DOI == "" && src.URLParts.DOI != "" {
		dst.URLParts.DOI = src.URLParts.DOI
	}
	if dst.URLParts.SecondaryID == "" && src.URLParts.SecondaryID != "" {
		dst.URLParts.SecondaryID = src.URLParts.SecondaryID
	}
}
