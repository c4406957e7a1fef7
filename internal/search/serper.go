// Package search queries the Serper web search API.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/resilience"
	"github.com/edgard/scribebot/internal/retry"
)

const (
	maxResponseBytes = 4 << 20

	breakerFailures    = 5
	breakerOpenTimeout = time.Minute
)

// Result is one organic search result.
type Result struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

type request struct {
	Query    string `json:"q"`
	Locale   string `json:"gl"`
	Language string `json:"hl"`
}

type response struct {
	Organic []Result `json:"organic"`
}

// statusError is a non-200 reply from Serper.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("serper returned status %d", e.code)
}

// Searcher runs a web search. Failures yield an empty result list.
type Searcher interface {
	Search(ctx context.Context, query string) []Result
}

// Client is a Serper API client.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	locale     string
	language   string
	policy     retry.Policy
	breaker    *resilience.CircuitBreaker
	log        *slog.Logger
}

// NewClient returns a Serper client configured from cfg.
func NewClient(cfg config.SearchConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		locale:     cfg.Locale,
		language:   cfg.Language,
		policy:     cfg.RetryPolicy(),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "serper",
			MaxFailures: breakerFailures,
			OpenTimeout: breakerOpenTimeout,
		}, log),
		log: log.With("component", "serper"),
	}
}

// Search returns the organic results for query. A transport error or a
// non-200 status returns an empty, non-nil list. After repeated failures
// searches are skipped until the circuit breaker lets a probe through.
func (c *Client) Search(ctx context.Context, query string) []Result {
	var results []Result
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, c.policy, isRetriable,
			func(attempt int, delay time.Duration, err error) {
				c.log.InfoContext(ctx, "Retrying web search", "attempt", attempt, "delay", delay, "error", err)
			},
			func(ctx context.Context) error {
				r, err := c.do(ctx, query)
				if err != nil {
					return err
				}
				results = r
				return nil
			})
	})
	if err != nil {
		c.log.WarnContext(ctx, "Web search failed, continuing without results", "error", err)
		return []Result{}
	}
	if results == nil {
		results = []Result{}
	}
	c.log.DebugContext(ctx, "Web search completed", "results", len(results))
	return results
}

func (c *Client) do(ctx context.Context, query string) ([]Result, error) {
	body, err := json.Marshal(request{Query: query, Locale: c.locale, Language: c.language})
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &statusError{code: resp.StatusCode}
	}

	var parsed response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return parsed.Organic, nil
}

// isRetriable retries transport failures, rate limits and server errors.
func isRetriable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

// Links returns the links of the first n results, skipping empty ones, never nil.
func Links(results []Result, n int) []string {
	results = results[:max(0, min(n, len(results)))]
	links := make([]string, 0, len(results))
	for _, r := range results {
		if r.Link != "" {
			links = append(links, r.Link)
		}
	}
	return links
}
