// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package relevance

import (
	"fmt"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Removal records a filtered-out item with the reason, for operator
// output and debugging.
type Removal struct {
	Item   types.EvidenceItem
	Score  int
	Reason string
}

// Filter removes items scoring below cfg.MinScore on the cheap generic
// tag signal, bounding the volume that reaches the semantic reranker
// (R1.1). Anchors are exempt regardless of score. This gate is
// intentionally loose; the real relevance ranking happens downstream,
// and the filter must never be the sole relevance decision.
func Filter(items []types.EvidenceItem, profile types.QueryProfile, cfg types.FilterConfig) (kept []types.EvidenceItem, removed []Removal) {
	minScore := cfg.MinScore
	if minScore <= 0 {
		minScore = 15
	}

	for _, it := range items {
		if it.IsAnchor {
			kept = append(kept, it)
			continue
		}
		score := Score(it, profile)
		if score < minScore {
			removed = append(removed, Removal{
				Item:   it,
				Score:  score,
				Reason: fmt.Sprintf("tag relevance %d below floor %d", score, minScore),
			})
			continue
		}
		kept = append(kept, it)
	}
	return kept, removed
}
