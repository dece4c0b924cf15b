// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/fulltext"
	"github.com/pdiddy/evidence-engine/internal/pipeline"
	"github.com/pdiddy/evidence-engine/internal/profile"
	"github.com/pdiddy/evidence-engine/internal/rerank"
	"github.com/pdiddy/evidence-engine/internal/resilience"
	"github.com/pdiddy/evidence-engine/internal/retrieval"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const defaultUserAgent = "evidence-engine/0.1"

// profileFromFlags resolves the query profile: --profile loads a YAML
// profile file produced upstream, otherwise the positional args are the
// question itself.
func profileFromFlags(cmd *cobra.Command, args []string) (types.QueryProfile, error) {
	profilePath, _ := cmd.Flags().GetString("profile")
	if profilePath != "" {
		return profile.Load(profilePath)
	}
	if len(args) == 0 {
		return types.QueryProfile{}, fmt.Errorf("provide a clinical question or --profile file")
	}
	return profile.FromQuery(strings.Join(args, " "))
}

// pipelineConfig assembles the full stage configuration from flags and
// loaded secrets, starting from the documented defaults.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()
	cfg.Retrieval.UserAgent = defaultUserAgent
	cfg.Rerank.UserAgent = defaultUserAgent
	cfg.Chunking.UserAgent = defaultUserAgent

	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Retrieval.Timeout = timeout
		cfg.Rerank.Timeout = timeout
		cfg.Chunking.Timeout = timeout
	}
	if maxPerSource, _ := cmd.Flags().GetInt("max-per-source"); maxPerSource > 0 {
		cfg.Retrieval.MaxPerSource = maxPerSource
	}
	if maxItems, _ := cmd.Flags().GetInt("max-items"); maxItems > 0 {
		cfg.Curation.MaxItems = maxItems
	}
	if maxChunks, _ := cmd.Flags().GetInt("max-chunks"); maxChunks > 0 {
		cfg.Chunking.MaxChunks = maxChunks
	}
	if cacheDir, _ := cmd.Flags().GetString("cache-dir"); cacheDir != "" {
		cfg.Cache.CacheDir = cacheDir
	}

	endpoint, _ := cmd.Flags().GetString("rerank-endpoint")
	cfg.Rerank.Endpoint = endpoint

	cfg.Retrieval.NCBIAPIKey = loadedSecrets.NCBIAPIKey()
	cfg.Retrieval.ContactEmail = loadedSecrets.ContactEmail()
	cfg.Retrieval.SerpAPIKey = loadedSecrets.SerpAPIKey()
	cfg.Rerank.APIKey = loadedSecrets.RerankAPIKey()

	return cfg
}

// newPipeline wires the live collaborators for a pipeline run.
func newPipeline(cfg types.PipelineConfig) *pipeline.Pipeline {
	client := &http.Client{Timeout: cfg.Retrieval.Timeout}
	if client.Timeout == 0 {
		client.Timeout = 20 * time.Second
	}

	reranker := &rerank.Client{
		HTTPClient: &http.Client{Timeout: cfg.Rerank.Timeout},
		Config:     cfg.Rerank,
		Exec:       resilience.NewExecutor(resilience.DefaultConfig(), os.Stderr),
	}

	return &pipeline.Pipeline{
		Sources:         retrieval.PrimarySources(client, cfg.Retrieval.NCBIAPIKey),
		FallbackSources: retrieval.FallbackSources(client),
		Reranker:        reranker,
		Fetcher: &fulltext.Fetcher{
			Client: &http.Client{Timeout: cfg.Chunking.Timeout},
			Config: cfg.Chunking,
		},
		Config: cfg,
	}
}
