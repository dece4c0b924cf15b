// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/internal/retrieval"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [question...]",
	Short: "Fan a clinical question out to the evidence sources",
	Long: `Retrieve queries PubMed, ClinicalTrials.gov, Europe PMC, and DailyMed
concurrently, deduplicates the merged pool by identifier, and prints the
items. Failed sources degrade recall with a warning; they never fail the
command.

Use --fallback to query the broad fallback sources (Europe PMC broad
search, web search) instead of the primary set.`,
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().String("profile", "", "YAML query profile file (overrides the positional question)")
	retrieveCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 20s)")
	retrieveCmd.Flags().Int("max-per-source", 0, "maximum results per source (default 20)")
	retrieveCmd.Flags().Bool("fallback", false, "query the fallback sources instead of the primary set")
	retrieveCmd.Flags().Bool("json", false, "output results as JSON")
	retrieveCmd.Flags().String("save", "", "write retrieved items to a YAML file")

	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	prof, err := profileFromFlags(cmd, args)
	if err != nil {
		return err
	}
	cfg := pipelineConfig(cmd)

	client := &http.Client{Timeout: cfg.Retrieval.Timeout}
	var sources []retrieval.Source
	if useFallback, _ := cmd.Flags().GetBool("fallback"); useFallback {
		sources = retrieval.FallbackSources(client)
	} else {
		sources = retrieval.PrimarySources(client, cfg.Retrieval.NCBIAPIKey)
	}

	out, err := retrieval.Retrieve(context.Background(), prof, sources, cfg.Retrieval, os.Stderr)
	if err != nil {
		return err
	}

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := saveItems(savePath, out.Items); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d items to %s\n", len(out.Items), savePath)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out.Items)
	}

	printItemTable(out)
	return nil
}

func printItemTable(out retrieval.Output) {
	if len(out.Items) == 0 {
		fmt.Println("No items retrieved.")
		return
	}

	fmt.Fprintf(os.Stdout, "%-24s  %-10s  %-14s  %-6s  %s\n",
		"ID", "Category", "Source", "Year", "Title")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 110))

	for _, it := range out.Items {
		title := it.Title
		if len(title) > 56 {
			title = title[:53] + "..."
		}
		year := ""
		if it.Year > 0 {
			year = fmt.Sprintf("%d", it.Year)
		}
		marker := ""
		if it.IsAnchor {
			marker = " *"
		}
		fmt.Fprintf(os.Stdout, "%-24s  %-10s  %-14s  %-6s  %s%s\n",
			it.ID, it.Category, it.SourceName, year, title, marker)
	}

	names := make([]string, 0, len(out.SourceCounts))
	for name := range out.SourceCounts {
		names = append(names, name)
	}
	sort.Strings(names)
	var counts []string
	for _, name := range names {
		counts = append(counts, fmt.Sprintf("%s %d", name, out.SourceCounts[name]))
	}
	fmt.Fprintf(os.Stdout, "\n%d items (%s), %d duplicates removed\n",
		len(out.Items), strings.Join(counts, ", "), out.DupsRemoved)
}

func saveItems(path string, items []types.EvidenceItem) error {
	data, err := yaml.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling items: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
