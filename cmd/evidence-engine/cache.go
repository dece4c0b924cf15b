// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/internal/cache"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage cached evidence packages (list, retrieve, export)",
	Long: `Cache manages the local SQLite store of previously built evidence
packages. Use subcommands to list cached packages, search their chunks
with full-text queries, or export a package to YAML or JSON.`,
}

// --- store subcommand ---

var cacheStoreCmd = &cobra.Command{
	Use:   "store [package.yaml...]",
	Short: "Ingest evidence package files into the cache",
	Long: `Store reads evidence package files written by run --out and ingests
them into the cache database, replacing any previous package for the
same question.`,
	RunE: runCacheStore,
}

func runCacheStore(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more package files")
	}

	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, path := range args {
		pkg, err := readPackageFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", path, err)
			failed++
			continue
		}
		id, err := store.Save(context.Background(), pkg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("Stored %s as %s\n", path, id)
	}
	if failed > 0 {
		return fmt.Errorf("%d package(s) failed to store", failed)
	}
	return nil
}

func readPackageFile(path string) (types.EvidencePackage, error) {
	var pkg types.EvidencePackage
	data, err := os.ReadFile(path)
	if err != nil {
		return pkg, err
	}
	if strings.HasSuffix(path, ".json") {
		err = json.Unmarshal(data, &pkg)
	} else {
		err = yaml.Unmarshal(data, &pkg)
	}
	if err != nil {
		return pkg, fmt.Errorf("decoding package: %w", err)
	}
	if pkg.Profile.RawQuery == "" {
		return pkg, fmt.Errorf("not an evidence package: missing profile query")
	}
	return pkg, nil
}

// --- list subcommand ---

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached evidence packages",
	RunE:  runCacheList,
}

func runCacheList(cmd *cobra.Command, args []string) error {
	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	packages, err := store.List(context.Background())
	if err != nil {
		return err
	}
	if len(packages) == 0 {
		fmt.Println("Cache is empty.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-14s  %-44s  %-12s  %-6s  %-7s  %s\n",
		"ID", "Question", "Sufficiency", "Items", "Chunks", "Built")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 104))
	for _, p := range packages {
		query := p.RawQuery
		if len(query) > 44 {
			query = query[:41] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-14s  %-44s  %-12s  %-6d  %-7d  %s\n",
			p.ID, query, p.SufficiencyLevel, p.Items, p.Chunks,
			p.BuiltAt.Format("2006-01-02"))
	}
	fmt.Fprintf(os.Stdout, "\n%d packages\n", len(packages))
	return nil
}

// --- retrieve subcommand ---

var cacheRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Search cached chunks with full-text search",
	Long: `Retrieve searches every cached chunk with an FTS5 full-text query and
prints matching snippets with their package and source item. Use --id to
fetch one whole package instead.`,
	RunE: runCacheRetrieve,
}

func runCacheRetrieve(cmd *cobra.Command, args []string) error {
	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Package mode: fetch one package by ID.
	if id, _ := cmd.Flags().GetString("id"); id != "" {
		pkg, found, err := store.Get(context.Background(), id)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no cached package %s", id)
		}
		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(pkg)
		}
		printPackageSummary(pkg)
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("provide a search query or --id")
	}
	limit, _ := cmd.Flags().GetInt("limit")

	hits, err := store.Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, h := range hits {
		fmt.Fprintf(os.Stdout, "%2d. %s (%s, %s)\n    %s\n",
			i+1, h.SourceItemID, h.Section, h.PackageID, h.Snippet)
	}
	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	return nil
}

// --- export subcommand ---

var cacheExportCmd = &cobra.Command{
	Use:   "export [package-id]",
	Short: "Export a cached package to YAML or JSON",
	RunE:  runCacheExport,
}

func runCacheExport(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide a package ID (see cache list)")
	}
	format, _ := cmd.Flags().GetString("format")

	store, err := openCache(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(context.Background(), args[0])
	case "json":
		path, err = store.ExportJSON(context.Background(), args[0])
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openCache(cmd *cobra.Command) (*cache.Store, error) {
	cacheDir, _ := cmd.Flags().GetString("cache-dir")
	if cacheDir == "" {
		cacheDir = "cache"
	}
	maxResults, _ := cmd.Flags().GetInt("max-results")

	return cache.NewStore(types.CacheConfig{
		CacheDir:   cacheDir,
		MaxResults: maxResults,
	})
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	cacheCmd.PersistentFlags().String("cache-dir", "cache", "base directory for the cache database")
	cacheCmd.PersistentFlags().Int("max-results", 20, "maximum number of search results")

	// Retrieve flags.
	cacheRetrieveCmd.Flags().String("id", "", "fetch one package by ID instead of searching")
	cacheRetrieveCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	cacheRetrieveCmd.Flags().Bool("json", false, "output results as JSON")

	// Export flags.
	cacheExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	cacheCmd.AddCommand(cacheStoreCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheRetrieveCmd)
	cacheCmd.AddCommand(cacheExportCmd)

	rootCmd.AddCommand(cacheCmd)
}
