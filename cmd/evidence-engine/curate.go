// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

var curateCmd = &cobra.Command{
	Use:   "curate [question...]",
	Short: "Retrieve, filter, and curate a bounded reference set",
	Long: `Curate runs the pipeline through curation: retrieval fan-out, relevance
filtering, cross-encoder reranking, and ranked selection, then prints
the curated set with its sufficiency assessment. When sufficiency falls
below the trigger, the fallback sources run automatically.`,
	RunE: runCurate,
}

func init() {
	curateCmd.Flags().String("profile", "", "YAML query profile file (overrides the positional question)")
	curateCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 20s)")
	curateCmd.Flags().Int("max-per-source", 0, "maximum results per source (default 20)")
	curateCmd.Flags().Int("max-items", 0, "maximum curated items (default 10)")
	curateCmd.Flags().String("rerank-endpoint", "", "cross-encoder scoring service URL")
	curateCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(curateCmd)
}

func runCurate(cmd *cobra.Command, args []string) error {
	prof, err := profileFromFlags(cmd, args)
	if err != nil {
		return err
	}
	cfg := pipelineConfig(cmd)
	p := newPipeline(cfg)

	set, suff, err := p.Curate(context.Background(), prof, os.Stderr)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Items       []types.ScoredItem     `json:"items"`
			Sufficiency types.SufficiencyScore `json:"sufficiency"`
		}{set.Items, suff})
	}

	printCuratedSet(set, suff)
	return nil
}

func printCuratedSet(set types.CuratedEvidenceSet, suff types.SufficiencyScore) {
	if set.Len() == 0 {
		fmt.Println("No evidence curated.")
		fmt.Printf("Sufficiency: %s\n", suff)
		return
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-24s  %-10s  %-5s  %-5s  %s\n",
		"Rank", "ID", "Category", "Rel", "Tier", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for i, s := range set.Items {
		title := s.Item.Title
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		marker := ""
		if s.Item.IsAnchor {
			marker = " *"
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-24s  %-10s  %-5d  %-5d  %s%s\n",
			i+1, s.Item.ID, s.Item.Category, s.RelevanceScore, s.Tier, title, marker)
	}

	fmt.Fprintf(os.Stdout, "\nSufficiency: %s\n", suff)
}
