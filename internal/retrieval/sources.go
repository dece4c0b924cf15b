// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import "net/http"

// PrimarySources assembles the first-pass source set: broad literature
// from PubMed, trial registrations, guideline-restricted Europe PMC, and
// drug labels when the question names a drug.
func PrimarySources(client *http.Client, ncbiAPIKey string) []Source {
	return []Source{
		NewPubMedSource(client, ncbiAPIKey),
		&ClinicalTrialsSource{Client: client},
		&EuropePMCSource{Client: client, Mode: EuropePMCGuidelines},
		NewDailyMedSource(client),
	}
}

// FallbackSources assembles the broadened set used when the primary pass
// comes back insufficient (R7.2): Europe PMC without the guideline
// restriction, plus scholarly web search.
func FallbackSources(client *http.Client) []Source {
	return []Source{
		&EuropePMCSource{Client: client, Mode: EuropePMCBroad},
		&WebSearchSource{Client: client},
	}
}
