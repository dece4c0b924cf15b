// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"context"
	"fmt"
	"io"
	"sort"
	"unicode/utf8"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// candidateTextLimit bounds the text sent per item. Cross-encoders score
// on a fixed window; sending more wastes tokens without changing scores.
const candidateTextLimit = 1500

// ByCategory reranks a scored pool one category at a time, applying
// per-category top-K and min-score cuts (R2). Scarce categories get
// looser cuts than high-volume ones. A reranker failure degrades that
// category to tag-relevance ordering with a warning; it never fails the
// pipeline (R4). Anchors survive every cut.
//
// Output carries fresh ScoredItems with semantic scores attached where
// available, ordered within each category, categories in tier order.
func ByCategory(ctx context.Context, rr Reranker, profile types.QueryProfile, scored []types.ScoredItem, cfg types.RerankConfig, w io.Writer) []types.ScoredItem {
	byCat := make(map[types.Category][]types.ScoredItem)
	for _, s := range scored {
		byCat[s.Item.Category] = append(byCat[s.Item.Category], s)
	}

	var out []types.ScoredItem
	for _, cat := range types.Categories {
		pool := byCat[cat]
		if len(pool) == 0 {
			continue
		}
		cuts := cfg.CategoryCuts(cat)
		out = append(out, rerankCategory(ctx, rr, profile.QueryText(), pool, cuts, w)...)
	}
	return out
}

func rerankCategory(ctx context.Context, rr Reranker, query string, pool []types.ScoredItem, cuts types.CategoryRerankConfig, w io.Writer) []types.ScoredItem {
	candidates := make([]Candidate, len(pool))
	index := make(map[string]int, len(pool))
	for i, s := range pool {
		candidates[i] = Candidate{ID: s.Item.ID, Text: candidateText(s.Item)}
		index[s.Item.ID] = i
	}

	results, err := rr.Rerank(ctx, query, candidates, cuts.TopK, cuts.MinScore)
	if err != nil {
		fmt.Fprintf(w, "warning: reranker unavailable for category %s, using tag ordering: %v\n", pool[0].Item.Category, err)
		return tagOrdered(pool, cuts.TopK)
	}

	kept := make([]types.ScoredItem, 0, cuts.TopK)
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		i, ok := index[r.ID]
		if !ok || seen[r.ID] {
			continue
		}
		if r.Score < cuts.MinScore && !pool[i].Item.IsAnchor {
			continue
		}
		seen[r.ID] = true
		s := pool[i]
		s.SemanticScore = r.Score
		s.HasSemantic = true
		kept = append(kept, s)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].SemanticScore > kept[j].SemanticScore
	})
	if cuts.TopK > 0 && len(kept) > cuts.TopK {
		kept = kept[:cuts.TopK]
	}

	// Anchors dropped or never scored by the service are re-admitted;
	// the cut is a volume bound, not a relevance verdict on anchors.
	for _, s := range pool {
		if s.Item.IsAnchor && !seen[s.Item.ID] {
			kept = append(kept, s)
		}
	}
	return kept
}

// tagOrdered is the degraded path: relevance score descending, then
// quality, clipped to topK with anchors exempt from the clip.
func tagOrdered(pool []types.ScoredItem, topK int) []types.ScoredItem {
	ordered := make([]types.ScoredItem, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].RelevanceScore != ordered[j].RelevanceScore {
			return ordered[i].RelevanceScore > ordered[j].RelevanceScore
		}
		return ordered[i].QualityScore > ordered[j].QualityScore
	})

	if topK <= 0 || len(ordered) <= topK {
		return ordered
	}
	kept := ordered[:topK]
	for _, s := range ordered[topK:] {
		if s.Item.IsAnchor {
			kept = append(kept, s)
		}
	}
	return kept
}

func candidateText(item types.EvidenceItem) string {
	text := item.Title
	if item.Summary != "" {
		text += "\n" + item.Summary
	}
	return Truncate(text, candidateTextLimit)
}

// Truncate cuts text to at most limit bytes without splitting a UTF-8
// rune mid-sequence, so candidate payloads stay valid UTF-8.
func Truncate(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
