// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fulltext

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pdiddy/evidence-engine/internal/rerank"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// sectionPriority orders sections for the degraded (no reranker) path:
// clinically decisive sections first.
var sectionPriority = map[types.SectionType]int{
	types.SectionResults:      0,
	types.SectionDiscussion:   1,
	types.SectionConclusion:   2,
	types.SectionAbstract:     3,
	types.SectionOther:        4,
	types.SectionIntroduction: 5,
	types.SectionMethods:      6,
}

// BuildChunks cuts every fetched result into chunks. Full-text items get
// section-aware windows; abstract-only items get the smaller abstract
// windows.
func BuildChunks(results []Result) []types.Chunk {
	var chunks []types.Chunk
	for _, res := range results {
		if res.FullText {
			chunks = append(chunks, ChunkSections(res.Item.ID, res.Sections)...)
			continue
		}
		for _, sec := range res.Sections {
			chunks = append(chunks, AbstractChunks(res.Item.ID, sec.Text)...)
		}
	}
	return chunks
}

// SelectChunks pools all chunks, reranks them against the query, and
// keeps the top cfg.MaxChunks above cfg.MinChunkScore (R3). On reranker
// failure, selection degrades to section-priority order with a warning.
// Selected chunks keep their source item IDs for citation.
func SelectChunks(ctx context.Context, rr rerank.Reranker, query string, chunks []types.Chunk, cfg types.ChunkingConfig, rerankCfg types.RerankConfig, w io.Writer) []types.Chunk {
	if len(chunks) == 0 {
		return nil
	}

	maxChunks := cfg.MaxChunks
	if maxChunks <= 0 {
		maxChunks = 14
	}

	candidates := make([]rerank.Candidate, len(chunks))
	index := make(map[string]int, len(chunks))
	// Rough token-to-rune conversion; cross-encoder inputs are capped by
	// tokens, not characters.
	charLimit := rerankCfg.ChunkTokenLimit * 4
	for i, c := range chunks {
		candidates[i] = rerank.Candidate{ID: c.ID, Text: rerank.Truncate(c.Text, charLimit)}
		index[c.ID] = i
	}

	results, err := rr.Rerank(ctx, query, candidates, maxChunks, cfg.MinChunkScore)
	if err != nil {
		fmt.Fprintf(w, "warning: chunk reranker unavailable, using section ordering: %v\n", err)
		return prioritized(chunks, maxChunks)
	}

	var kept []types.Chunk
	for _, r := range results {
		i, ok := index[r.ID]
		if !ok || r.Score < cfg.MinChunkScore {
			continue
		}
		c := chunks[i]
		c.Score = r.Score
		c.HasScore = true
		kept = append(kept, c)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Score > kept[j].Score })
	if len(kept) > maxChunks {
		kept = kept[:maxChunks]
	}
	return kept
}

func prioritized(chunks []types.Chunk, maxChunks int) []types.Chunk {
	ordered := make([]types.Chunk, len(chunks))
	copy(ordered, chunks)
	sort.SliceStable(ordered, func(i, j int) bool {
		return sectionPriority[ordered[i].Section] < sectionPriority[ordered[j].Section]
	})
	if len(ordered) > maxChunks {
		ordered = ordered[:maxChunks]
	}
	return ordered
}
