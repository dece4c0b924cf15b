// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires retrieval, filtering, scoring, reranking,
// curation, sufficiency, and chunking into the end-to-end evidence run.
// Implements: prd015-packaging (R1-R3);
//
//	docs/ARCHITECTURE § Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/evidence-engine/internal/curation"
	"github.com/pdiddy/evidence-engine/internal/fulltext"
	"github.com/pdiddy/evidence-engine/internal/relevance"
	"github.com/pdiddy/evidence-engine/internal/rerank"
	"github.com/pdiddy/evidence-engine/internal/retrieval"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Pipeline holds the collaborators for one evidence run. Sources and the
// reranker are interfaces so tests drive the full flow without network.
type Pipeline struct {
	Sources         []retrieval.Source
	FallbackSources []retrieval.Source
	Reranker        rerank.Reranker
	Fetcher         *fulltext.Fetcher
	Config          types.PipelineConfig

	// Now is the clock used for recency scoring and the build stamp.
	// Nil means time.Now.
	Now func() time.Time
}

// curationPass is one full filter/score/rerank/curate/assess cycle over
// a retrieval pool.
type curationPass struct {
	set  types.CuratedEvidenceSet
	suff types.SufficiencyScore
}

// Run executes the full pipeline for one query profile (R1). An empty
// result after all fallbacks is a valid terminal state: the package
// comes back with empty sets and an insufficient score, never an error.
// Operator-facing progress and warnings go to w.
func (p *Pipeline) Run(ctx context.Context, profile types.QueryProfile, w io.Writer) (types.EvidencePackage, error) {
	now := p.clock()

	pass, sourceCounts, fallbackUsed, err := p.retrieveAndCurate(ctx, profile, w)
	if err != nil {
		return types.EvidencePackage{}, err
	}

	chunks := p.buildChunks(ctx, profile, pass.set, w)

	pkg := Assemble(profile, pass.set, chunks, pass.suff, sourceCounts, fallbackUsed, now())
	return pkg, nil
}

// Curate runs retrieval through curation and sufficiency without the
// full-text chunking stage, for callers that only need the reference set.
func (p *Pipeline) Curate(ctx context.Context, profile types.QueryProfile, w io.Writer) (types.CuratedEvidenceSet, types.SufficiencyScore, error) {
	pass, _, _, err := p.retrieveAndCurate(ctx, profile, w)
	if err != nil {
		return types.CuratedEvidenceSet{}, types.SufficiencyScore{}, err
	}
	return pass.set, pass.suff, nil
}

func (p *Pipeline) clock() func() time.Time {
	if p.Now != nil {
		return p.Now
	}
	return time.Now
}

// retrieveAndCurate runs primary retrieval, curation, and the
// sufficiency-triggered fallback pass.
func (p *Pipeline) retrieveAndCurate(ctx context.Context, profile types.QueryProfile, w io.Writer) (curationPass, map[string]int, bool, error) {
	now := p.clock()

	out, err := retrieval.Retrieve(ctx, profile, p.Sources, p.Config.Retrieval, w)
	if err != nil {
		return curationPass{}, nil, false, fmt.Errorf("primary retrieval: %w", err)
	}
	fmt.Fprintf(w, "retrieved %d items from %d sources (%d duplicates removed)\n",
		len(out.Items), len(out.SourceCounts), out.DupsRemoved)

	pool := out.Items
	first := p.curate(ctx, profile, pool, now().Year(), w)
	fmt.Fprintf(w, "curated %d items, sufficiency %s\n", first.set.Len(), first.suff)

	pass := first
	fallbackUsed := false

	if first.suff.ShouldTriggerFallback && len(p.FallbackSources) > 0 {
		fmt.Fprintln(w, "sufficiency below threshold, running fallback retrieval")
		fallbackUsed = true

		fbOut, err := retrieval.Retrieve(ctx, profile, p.FallbackSources, p.Config.Retrieval, w)
		if err != nil {
			fmt.Fprintf(w, "warning: fallback retrieval failed: %v\n", err)
		} else {
			merged, removed := retrieval.Deduplicate(append(pool, fbOut.Items...))
			fmt.Fprintf(w, "fallback added %d items (%d duplicates removed)\n",
				len(merged)-len(pool), removed)
			for name, n := range fbOut.SourceCounts {
				out.SourceCounts[name] = n
			}

			second := p.curate(ctx, profile, merged, now().Year(), w)
			// The merged pass must never leave the caller worse off than
			// the first pass did.
			if betterOrEqual(second, first) {
				pass = second
			} else {
				fmt.Fprintln(w, "warning: fallback pass curated a weaker set, keeping first pass")
			}
			fmt.Fprintf(w, "re-curated %d items, sufficiency %s\n", pass.set.Len(), pass.suff)
		}
	}

	return pass, out.SourceCounts, fallbackUsed, nil
}

// curate runs filter → score → rerank → select → assess on one pool.
func (p *Pipeline) curate(ctx context.Context, profile types.QueryProfile, pool []types.EvidenceItem, year int, w io.Writer) curationPass {
	kept, removed := relevance.Filter(pool, profile, p.Config.Filter)
	if len(removed) > 0 {
		fmt.Fprintf(w, "relevance filter removed %d of %d items\n", len(removed), len(pool))
	}

	mode := relevance.ModeFor(profile)
	scored := relevance.ScoreAll(kept, profile, mode, year)
	reranked := rerank.ByCategory(ctx, p.Reranker, profile, scored, p.Config.Rerank, w)

	reserveItems := make([]types.EvidenceItem, len(removed))
	for i, r := range removed {
		reserveItems[i] = r.Item
	}
	reserve := relevance.ScoreAll(reserveItems, profile, mode, year)

	set := curation.Curate(reranked, reserve, p.Config.Curation)
	suff := curation.Assess(set, profile, p.Config.Sufficiency)
	return curationPass{set: set, suff: suff}
}

// buildChunks fetches extended text for the top curated items and
// selects the final chunk list.
func (p *Pipeline) buildChunks(ctx context.Context, profile types.QueryProfile, set types.CuratedEvidenceSet, w io.Writer) []types.Chunk {
	if set.Len() == 0 || p.Fetcher == nil {
		return nil
	}

	topN := p.Config.Chunking.TopItems
	if topN <= 0 {
		topN = 6
	}
	items := make([]types.EvidenceItem, 0, topN)
	for _, s := range set.Items {
		if len(items) >= topN {
			break
		}
		items = append(items, s.Item)
	}

	fetched := p.Fetcher.FetchAll(ctx, items, w)
	pool := fulltext.BuildChunks(fetched)
	fmt.Fprintf(w, "built %d candidate chunks from %d items\n", len(pool), len(items))

	return fulltext.SelectChunks(ctx, p.Reranker, profile.QueryText(), pool, p.Config.Chunking, p.Config.Rerank, w)
}

// betterOrEqual compares two passes: category coverage first (the
// fallback exists to fill category gaps), then sufficiency score, then
// set size.
func betterOrEqual(a, b curationPass) bool {
	if ac, bc := a.set.CategoriesPresent(), b.set.CategoriesPresent(); ac != bc {
		return ac > bc
	}
	if a.suff.Score != b.suff.Score {
		return a.suff.Score > b.suff.Score
	}
	return a.set.Len() >= b.set.Len()
}
