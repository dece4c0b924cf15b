// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/cache"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [question...]",
	Short: "Build a complete evidence package for a clinical question",
	Long: `Run executes the full pipeline: retrieval fan-out, relevance filtering,
reranking, curation, sufficiency-triggered fallback retrieval, full-text
fetching, and chunk selection. The result is an evidence package with a
citation whitelist, written to --out (YAML or JSON by extension) and
saved to the local cache unless --no-cache is set.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("profile", "", "YAML query profile file (overrides the positional question)")
	runCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 20s)")
	runCmd.Flags().Int("max-per-source", 0, "maximum results per source (default 20)")
	runCmd.Flags().Int("max-items", 0, "maximum curated items (default 10)")
	runCmd.Flags().Int("max-chunks", 0, "maximum selected chunks (default 14)")
	runCmd.Flags().String("rerank-endpoint", "", "cross-encoder scoring service URL")
	runCmd.Flags().String("out", "", "write the package to a file (.yaml or .json)")
	runCmd.Flags().String("cache-dir", "", "cache directory (default cache)")
	runCmd.Flags().Bool("no-cache", false, "skip saving the package to the cache")
	runCmd.Flags().Bool("json", false, "print the package as JSON to stdout")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	prof, err := profileFromFlags(cmd, args)
	if err != nil {
		return err
	}
	cfg := pipelineConfig(cmd)
	p := newPipeline(cfg)

	pkg, err := p.Run(context.Background(), prof, os.Stderr)
	if err != nil {
		return err
	}

	if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
		if err := savePackage(cfg.Cache, pkg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: caching package failed: %v\n", err)
		}
	}

	if outPath, _ := cmd.Flags().GetString("out"); outPath != "" {
		if err := cache.WritePackage(pkg, outPath); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote evidence package to %s\n", outPath)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pkg)
	}

	printPackageSummary(pkg)
	return nil
}

func savePackage(cfg types.CacheConfig, pkg types.EvidencePackage) error {
	store, err := cache.NewStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.Save(context.Background(), pkg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Cached package %s\n", id)
	return nil
}

func printPackageSummary(pkg types.EvidencePackage) {
	fmt.Printf("Question: %s\n", pkg.Profile.RawQuery)
	fmt.Printf("Curated items: %d\n", pkg.Curated.Len())
	for i, s := range pkg.Curated.Items {
		marker := ""
		if s.Item.IsAnchor {
			marker = " *"
		}
		fmt.Printf("  %2d. [%s] %s%s\n", i+1, s.Item.Category, s.Item.Title, marker)
	}
	fmt.Printf("Chunks: %d\n", len(pkg.Chunks))
	fmt.Printf("Citable identifiers: %d\n", len(pkg.CitationWhitelist))
	fmt.Printf("Sufficiency: %s\n", pkg.Sufficiency)
	if pkg.FallbackUsed {
		fmt.Println("Fallback retrieval was used.")
	}
}
