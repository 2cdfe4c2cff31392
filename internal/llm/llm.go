// Package llm talks to a language model for document summaries, questions
// and trade analysis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Generator produces a completion for a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

var (
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("language model unavailable")

	// ErrNotTradeRelated is returned by AnalyzeTrades when the model finds no
	// trade content in the document.
	ErrNotTradeRelated = errors.New("this feature is only for trade-related files")
)

// RetryableError indicates a transient failure that can be retried.
// RetryAfter carries the server's Retry-After hint when it sent one.
type RetryableError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// ModelNotFoundError reports a model the server does not have, with the
// models it does have.
type ModelNotFoundError struct {
	Model     string
	Available []string
}

func (e *ModelNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("model %q not found", e.Model)
	}
	return fmt.Sprintf("model %q not found. Available models: %s", e.Model, strings.Join(e.Available, ", "))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
