// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// scenarioAnchors maps a detected clinical scenario to the identifiers of
// gold-standard evidence for it. Items matching an entry are flagged as
// anchors at retrieval time and survive every downstream cut (R2.5).
//
// The table is deliberately small and curated by hand; an entry earns its
// place by being the document a specialist would cite first for the
// scenario, not by citation count.
var scenarioAnchors = map[string][]string{
	"cap-antibiotic-duration": {
		"pmid:31573350", // ATS/IDSA community-acquired pneumonia guideline
		"pmid:27455166",
	},
	"af-anticoagulation": {
		"pmid:38033089", // ACC/AHA atrial fibrillation guideline
		"pmid:30686041",
	},
	"dapt-duration-pci": {
		"pmid:27026020", // ACC/AHA DAPT duration focused update
	},
	"hf-gdmt": {
		"pmid:35363499", // AHA/ACC/HFSA heart failure guideline
	},
	"t2dm-pharmacotherapy": {
		"pmid:38078589", // ADA Standards of Care, pharmacologic approaches
	},
}

// markAnchors flags items listed in the anchor table for the profile's
// scenario. No-op when the scenario is empty or unknown.
func markAnchors(items []types.EvidenceItem, profile types.QueryProfile) {
	ids := scenarioAnchors[profile.AnchorScenario]
	if len(ids) == 0 {
		return
	}
	anchorSet := make(map[string]bool, len(ids))
	for _, id := range ids {
		anchorSet[id] = true
	}
	for i := range items {
		if anchorSet[items[i].ID] {
			items[i].IsAnchor = true
		}
	}
}

// AnchorIDs returns the anchor identifiers registered for a scenario.
// Used by the coordinator to report when an expected anchor never arrived
// from any source.
func AnchorIDs(scenario string) []string {
	return scenarioAnchors[scenario]
}
