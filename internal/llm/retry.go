package llm

import (
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	MaxRetries = 3

	maxBackoff    = 30 * time.Second
	maxRetryAfter = 2 * time.Minute
)

// IsRetryable reports whether a model call may succeed if repeated: a
// RetryableError from the server, a refused connection (a local model
// server restarting) or a response cut off mid-body.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	switch {
	case errors.As(err, &retryErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	return false
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > maxBackoff {
		base = maxBackoff
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// retryDelay prefers the server's Retry-After hint over the computed backoff.
func retryDelay(err error, computed time.Duration) time.Duration {
	var retryErr *RetryableError
	if errors.As(err, &retryErr) && retryErr.RetryAfter > 0 {
		return min(retryErr.RetryAfter, maxRetryAfter)
	}
	return computed
}

// retryableStatus builds the RetryableError for a 429 or 5xx response.
func retryableStatus(resp *http.Response, body []byte) *RetryableError {
	return &RetryableError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
}

// parseRetryAfter reads a Retry-After value in delay-seconds or HTTP-date
// form. Anything else, or a date in the past, yields zero.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}
