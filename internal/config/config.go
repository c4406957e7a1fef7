package config

import (
	"runtime"
	"time"

	"github.com/edgard/scribebot/internal/retry"
)

// DescriptionModel returns the model used for media descriptions, falling back
// to the main model when none is configured.
func (g GeminiConfig) DescriptionModel() string {
	if g.DescriptionModelName != "" {
		return g.DescriptionModelName
	}
	return g.ModelName
}

// Concurrency returns how many OCR jobs may run at once.
func (o OCRConfig) Concurrency() int {
	if o.MaxConcurrency > 0 {
		return o.MaxConcurrency
	}
	return runtime.NumCPU()
}

// PerMessage reports whether interaction records are keyed by message.
func (p PersistenceConfig) PerMessage() bool {
	return p.DedupScope != "user"
}

// RetryPolicy is the backoff used for Gemini calls.
func (g GeminiConfig) RetryPolicy() retry.Policy {
	return retry.Policy{MaxRetries: g.MaxRetries, BaseDelay: g.RetryDelay, MaxDelay: GeminiMaxRetryDelay}
}

// CallBudget is the longest a single Gemini call can take with every retry.
func (g GeminiConfig) CallBudget() time.Duration {
	return callBudget(g.Timeout, g.RetryPolicy())
}

// RetryPolicy is the backoff used for search calls.
func (s SearchConfig) RetryPolicy() retry.Policy {
	return retry.Policy{MaxRetries: s.MaxRetries, BaseDelay: s.RetryDelay, MaxDelay: SearchMaxRetryDelay}
}

// CallBudget is the longest a single search can take with every retry.
func (s SearchConfig) CallBudget() time.Duration {
	return callBudget(s.Timeout, s.RetryPolicy())
}

// MinHandlerTimeout is the shortest handler timeout that lets the slowest flow
// finish its external calls: one Gemini call after either a download or a search.
func (c *Config) MinHandlerTimeout() time.Duration {
	return c.Gemini.CallBudget() + max(c.Search.CallBudget(), c.Telegram.DownloadTimeout)
}

func callBudget(timeout time.Duration, p retry.Policy) time.Duration {
	total := timeout * time.Duration(p.MaxRetries+1)
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		total += p.Delay(attempt)
	}
	return total
}
