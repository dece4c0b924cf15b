// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank applies cross-encoder semantic scoring on top of tag
// relevance. The scoring model is an external HTTP service; everything
// here degrades to tag ordering when it misbehaves.
// Implements: prd012-rerank (R1-R4);
//
//	docs/ARCHITECTURE § Reranking.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/pdiddy/evidence-engine/internal/resilience"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Candidate is one text the reranker scores against the query.
type Candidate struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Result is one scored candidate. Score is 0-1, higher is more relevant.
type Result struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Reranker scores candidates against a query text. Implementations must
// treat the call as pure: same inputs, same scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate, topK int, minScore float64) ([]Result, error)
}

// Client calls the cross-encoder HTTP service. Calls are guarded by a
// resilience executor: transient failures retry, a persistently failing
// endpoint opens the breaker and later calls fail fast into the
// pipeline's degraded path.
type Client struct {
	HTTPClient *http.Client
	Config     types.RerankConfig
	Exec       *resilience.Executor
}

type rerankRequest struct {
	Query      string      `json:"query"`
	Candidates []Candidate `json:"candidates"`
	TopK       int         `json:"top_k"`
	MinScore   float64     `json:"min_score"`
}

type rerankResponse struct {
	Results []Result `json:"results"`
}

// httpStatusError marks a non-2xx reranker response so the classifier
// can distinguish server trouble from bad requests.
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("reranker returned HTTP %d", e.status)
}

// Rerank implements Reranker over the HTTP service.
func (c *Client) Rerank(ctx context.Context, query string, candidates []Candidate, topK int, minScore float64) ([]Result, error) {
	if c.Config.Endpoint == "" {
		return nil, fmt.Errorf("no reranker endpoint configured")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(rerankRequest{
		Query:      query,
		Candidates: candidates,
		TopK:       topK,
		MinScore:   minScore,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding rerank request: %w", err)
	}

	var results []Result
	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Config.Endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", c.Config.UserAgent)
		if c.Config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.Config.APIKey)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("reranker request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return &httpStatusError{status: resp.StatusCode}
		}

		var rr rerankResponse
		if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
			return fmt.Errorf("parsing reranker response: %w", err)
		}
		results = rr.Results
		return nil
	}

	if c.Exec != nil {
		err = c.Exec.Execute(ctx, "rerank", call, classifyRerankError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return results, nil
}

// classifyRerankError: network trouble and server-side errors are
// retryable and count against the breaker; 4xx means the request itself
// is wrong and retrying cannot help.
func classifyRerankError(err error) resilience.ErrorClassification {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.status >= 500 || statusErr.status == http.StatusTooManyRequests {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}
