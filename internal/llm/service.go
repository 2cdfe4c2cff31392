package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/docsight/internal/chunker"
	"github.com/dgallion1/docsight/internal/doctree"
	"github.com/dgallion1/docsight/internal/parser"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const (
	OpSummarize      = "summarize"
	OpSummarizeChunk = "summarize_chunk"
	OpAsk            = "ask"
	OpAnalyze        = "analyze"

	defaultMaxPromptTokens = 3000
)

// CallRecorder receives one observation per model call.
type CallRecorder interface {
	LLMCall(operation, outcome string, d time.Duration)
}

// Options configures a Service.
type Options struct {
	// RequestsPerMinute caps outgoing model calls. Zero means unlimited.
	RequestsPerMinute int
	// MaxPromptTokens bounds the document content sent in one prompt.
	MaxPromptTokens int
	// FailureThreshold is the number of consecutive failures that opens the
	// circuit breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// MaxConcurrent bounds parallel chunk summaries. Defaults to 1.
	MaxConcurrent int
	Recorder      CallRecorder
}

// Service wraps a Generator with rate limiting, retries, a circuit breaker
// and per-operation latency stats.
type Service struct {
	gen       Generator
	log       *slog.Logger
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[string]
	stats     *CallStats
	rec       CallRecorder
	maxTokens int

	concurrency int

	backoff func(attempt int) time.Duration
	now     func() time.Time
}

func NewService(gen Generator, log *slog.Logger, opts Options) *Service {
	log = log.With("component", "llm", "model", gen.Model())

	if opts.MaxPromptTokens <= 0 {
		opts.MaxPromptTokens = defaultMaxPromptTokens
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}

	s := &Service{
		gen:       gen,
		log:       log,
		stats:     NewCallStats(time.Hour),
		rec:       opts.Recorder,
		maxTokens: opts.MaxPromptTokens,
		backoff:   Backoff,
		now:       time.Now,

		concurrency: opts.MaxConcurrent,
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}

	threshold := opts.FailureThreshold
	s.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellations and a missing model say nothing about
			// the server's health.
			var notFound *ModelNotFoundError
			return err == nil || errors.Is(err, context.Canceled) || errors.As(err, &notFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
		},
	})
	return s
}

func (s *Service) Model() string { return s.gen.Model() }

// Stats returns rolling latency aggregates keyed by operation.
func (s *Service) Stats() map[string]StatsSnapshot { return s.stats.Snapshot() }

// Summarize summarizes free text. kind names the content type for the
// prompt ("xml", "json", "pdf", "text"). Content over the prompt budget is
// summarized chunk by chunk and the partial summaries are merged.
func (s *Service) Summarize(ctx context.Context, content, kind string) (string, error) {
	if chunker.EstimateTokens(content) <= s.maxTokens {
		return s.generate(ctx, OpSummarize, SummaryPrompt(kind, content))
	}

	parts := chunker.Split(content, s.chunkConfig())
	chunks := make([]doctree.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = doctree.Chunk{Text: p, Index: i}
	}
	return s.mapReduce(ctx, "", kind, chunks)
}

// SummarizeDocument is Summarize for a decoded document. Long documents are
// chunked along their outline so each partial prompt names its section or
// pages.
func (s *Service) SummarizeDocument(ctx context.Context, doc *parser.Document) (string, error) {
	kind := string(doc.Format)
	if doc.Outline == nil || chunker.EstimateTokens(doc.Content) <= s.maxTokens {
		return s.Summarize(ctx, doc.Content, kind)
	}

	cfg := s.chunkConfig()
	cfg.MergeSiblings = true
	chunks := chunker.ChunkTree(doc.Outline, cfg)
	if len(chunks) == 0 {
		return s.Summarize(ctx, doc.Content, kind)
	}
	return s.mapReduce(ctx, doc.Title, kind, chunks)
}

func (s *Service) mapReduce(ctx context.Context, title, kind string, chunks []doctree.Chunk) (string, error) {
	s.log.Info("summarizing in chunks", "chunks", len(chunks), "title", title, "concurrency", s.concurrency)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type partResult struct {
		idx int
		out string
		err error
	}
	results := make(chan partResult, len(chunks))
	sem := make(chan struct{}, s.concurrency)

	// No new part starts once one has failed.
	go func() {
		var wg sync.WaitGroup
		defer close(results)
		defer wg.Wait()
		for i, c := range chunks {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				<-sem
				return
			}
			wg.Add(1)
			go func(i int, c doctree.Chunk) {
				defer wg.Done()
				defer func() { <-sem }()
				out, err := s.generate(ctx, OpSummarizeChunk, ChunkSummaryPrompt(title, kind, c, len(chunks)))
				if err != nil {
					cancel()
				}
				results <- partResult{idx: i, out: out, err: err}
			}(i, c)
		}
	}()

	partials := make([]string, len(chunks))
	var firstErr error
	done := 0
	for r := range results {
		done++
		if r.err != nil {
			// Siblings cancelled by the failure may report first.
			if firstErr == nil || errors.Is(firstErr, context.Canceled) && !errors.Is(r.err, context.Canceled) {
				firstErr = fmt.Errorf("summarize part %d of %d: %w", r.idx+1, len(chunks), r.err)
			}
			continue
		}
		partials[r.idx] = r.out
	}
	if firstErr != nil {
		return "", firstErr
	}
	if done < len(chunks) {
		return "", fmt.Errorf("summarize: %w", context.Cause(ctx))
	}
	return s.reduce(ctx, kind, partials)
}

// reduce merges partial summaries. When they do not fit one prompt they are
// merged in groups first, level by level, until one summary remains.
func (s *Service) reduce(ctx context.Context, kind string, partials []string) (string, error) {
	for len(partials) > 1 {
		groups := groupByBudget(partials, s.maxTokens)
		if len(groups) == 1 {
			return s.generate(ctx, OpSummarize, CombinePrompt(kind, partials))
		}

		s.log.Info("merging partial summaries in groups", "partials", len(partials), "groups", len(groups))
		next := make([]string, 0, len(groups))
		for _, g := range groups {
			if len(g) == 1 {
				next = append(next, g[0])
				continue
			}
			out, err := s.generate(ctx, OpSummarizeChunk, CombinePrompt(kind, g))
			if err != nil {
				return "", err
			}
			next = append(next, out)
		}
		partials = next
	}
	return partials[0], nil
}

// groupByBudget packs consecutive summaries into groups of at most budget
// tokens. A group always takes a second member so every level shrinks.
func groupByBudget(parts []string, budget int) [][]string {
	var groups [][]string
	var cur []string
	tokens := 0
	for _, p := range parts {
		t := chunker.EstimateTokens(p)
		if len(cur) >= 2 && tokens+t > budget {
			groups = append(groups, cur)
			cur, tokens = nil, 0
		}
		cur = append(cur, p)
		tokens += t
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// Ask answers a question from the document content. The question must have
// passed ValidateQuestion.
func (s *Service) Ask(ctx context.Context, content, question string) (string, error) {
	return s.generate(ctx, OpAsk, QueryPrompt(question, s.fit(content)))
}

// AnalyzeTrades returns a trade analysis of the content, or
// ErrNotTradeRelated when the model finds no trades in it.
func (s *Service) AnalyzeTrades(ctx context.Context, content string) (string, error) {
	out, err := s.generate(ctx, OpAnalyze, TradeAnalysisPrompt(s.fit(content), s.now()))
	if err != nil {
		return "", err
	}
	if strings.Contains(out, NotTradeRelated) {
		return "", ErrNotTradeRelated
	}
	return out, nil
}

func (s *Service) chunkConfig() chunker.Config {
	return chunker.Config{
		ChunkSize:    s.maxTokens,
		ChunkOverlap: s.maxTokens / 20,
		MinChunk:     1,
	}
}

func (s *Service) fit(content string) string {
	trimmed, cut := chunker.Truncate(content, s.maxTokens)
	if cut {
		s.log.Info("content truncated to prompt budget", "max_tokens", s.maxTokens)
	}
	return trimmed
}

func (s *Service) generate(ctx context.Context, op, prompt string) (string, error) {
	start := time.Now()
	out, err := s.call(ctx, prompt)
	d := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrUnavailable):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	s.stats.Record(op, d, err != nil)
	if s.rec != nil {
		s.rec.LLMCall(op, outcome, d)
	}

	if err != nil {
		s.log.Error("model call failed", "operation", op, "duration_ms", d.Milliseconds(), "error", err)
		return "", err
	}
	s.log.Debug("model call", "operation", op, "duration_ms", d.Milliseconds())
	return cleanResponse(out), nil
}

func (s *Service) call(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			wait := retryDelay(lastErr, s.backoff(attempt-1))
			s.log.Warn("retrying model call", "attempt", attempt, "wait", wait, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}

		out, err := s.breaker.Execute(func() (string, error) {
			return s.gen.Generate(ctx, prompt)
		})
		if err == nil {
			return out, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !IsRetryable(err) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("model call failed after %d retries: %w", MaxRetries, lastErr)
}
