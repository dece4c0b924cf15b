// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package curation merges scored evidence into the bounded, ordered
// reference set handed to generation, and judges whether that set is
// good enough or fallback retrieval must run.
// Implements: prd013-curation (R1-R6);
//
//	docs/ARCHITECTURE § Curation.
package curation

import (
	"sort"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Curate selects the final reference set from the reranked pool (R1-R4).
// reserve holds items the relevance filter excluded, still scored; they
// are only consulted when the primary pool cannot satisfy the minimum.
//
// Ordering is deterministic: anchors first, then relevance compared in
// bands of cfg.ScoreBand points (small deltas are noise, not signal),
// then tier ascending, then quality descending, then ID.
func Curate(primary, reserve []types.ScoredItem, cfg types.CurationConfig) types.CuratedEvidenceSet {
	maxItems := cfg.MaxItems
	if maxItems <= 0 {
		maxItems = 10
	}
	minItems := cfg.MinItems
	if minItems <= 0 {
		minItems = 3
	}
	band := cfg.ScoreBand
	if band <= 0 {
		band = 20
	}
	relaxedFloor := cfg.RelaxedFloor
	if relaxedFloor <= 0 {
		relaxedFloor = 5
	}

	var selected []types.ScoredItem
	taken := make(map[string]bool)

	add := func(s types.ScoredItem) bool {
		if taken[s.Item.ID] {
			return false
		}
		taken[s.Item.ID] = true
		selected = append(selected, s)
		return true
	}

	// Anchors from either pool always make the set.
	for _, s := range append(append([]types.ScoredItem{}, primary...), reserve...) {
		if s.Item.IsAnchor {
			add(s)
		}
	}

	candidates := nonAnchors(primary)
	sortRanked(candidates, band)

	// Trial reserve: hold slots for primary trial evidence so guidelines
	// and reviews cannot crowd out every RCT (R2.3).
	reserved := 0
	for _, s := range candidates {
		if reserved >= cfg.TrialReserve || len(selected) >= maxItems {
			break
		}
		if s.Item.Category == types.CategoryTrial {
			if add(s) {
				reserved++
			}
		}
	}

	for _, s := range candidates {
		if len(selected) >= maxItems {
			break
		}
		add(s)
	}

	// Below the floor: re-admit filtered items that at least look
	// clinical (score >= relaxedFloor), best first (R3.1).
	if len(selected) < minItems {
		relaxed := nonAnchors(reserve)
		sortRanked(relaxed, band)
		for _, s := range relaxed {
			if len(selected) >= minItems || len(selected) >= maxItems {
				break
			}
			if s.RelevanceScore >= relaxedFloor {
				add(s)
			}
		}
	}

	// Zero-pass fallback: when nothing cleared any floor, admit the top
	// items regardless of score so the set is never empty while evidence
	// exists (R3.2). Tier-1/2 items go first; a pool with none of those
	// still yields its best remaining items.
	if countNonAnchors(selected) == 0 {
		pool := append(nonAnchors(primary), nonAnchors(reserve)...)
		sortRanked(pool, band)
		for _, s := range pool {
			if len(selected) >= 5 {
				break
			}
			if s.Tier <= 2 {
				add(s)
			}
		}
		if countNonAnchors(selected) == 0 {
			for _, s := range pool {
				if len(selected) >= 5 {
					break
				}
				add(s)
			}
		}
	}

	sortRanked(selected, band)
	if len(selected) > maxItems {
		selected = selected[:maxItems]
	}
	return types.CuratedEvidenceSet{Items: selected}
}

// sortRanked orders items by the curation sort key. Relevance is
// compared by band bucket rather than raw delta so the comparison stays
// transitive.
func sortRanked(items []types.ScoredItem, band int) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Item.IsAnchor != b.Item.IsAnchor {
			return a.Item.IsAnchor
		}
		if ab, bb := a.RelevanceScore/band, b.RelevanceScore/band; ab != bb {
			return ab > bb
		}
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		return a.Item.ID < b.Item.ID
	})
}

func nonAnchors(items []types.ScoredItem) []types.ScoredItem {
	out := make([]types.ScoredItem, 0, len(items))
	for _, s := range items {
		if !s.Item.IsAnchor {
			out = append(out, s)
		}
	}
	return out
}

func countNonAnchors(items []types.ScoredItem) int {
	n := 0
	for _, s := range items {
		if !s.Item.IsAnchor {
			n++
		}
	}
	return n
}
