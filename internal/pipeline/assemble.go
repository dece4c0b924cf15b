// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"sort"
	"time"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Assemble builds the final immutable package (R2). The citation
// whitelist is exactly the curated item IDs plus every chunk's source
// item ID: nothing outside the package may be cited, and nothing in the
// package is missing from the whitelist.
func Assemble(profile types.QueryProfile, set types.CuratedEvidenceSet, chunks []types.Chunk, suff types.SufficiencyScore, sourceCounts map[string]int, fallbackUsed bool, builtAt time.Time) types.EvidencePackage {
	seen := make(map[string]bool)
	for _, id := range set.IDs() {
		seen[id] = true
	}
	for _, c := range chunks {
		seen[c.SourceItemID] = true
	}

	whitelist := make([]string, 0, len(seen))
	for id := range seen {
		whitelist = append(whitelist, id)
	}
	sort.Strings(whitelist)

	return types.EvidencePackage{
		Profile:           profile,
		Curated:           set,
		Chunks:            chunks,
		CitationWhitelist: whitelist,
		Sufficiency:       suff,
		SourceCounts:      sourceCounts,
		FallbackUsed:      fallbackUsed,
		BuiltAt:           builtAt,
	}
}
