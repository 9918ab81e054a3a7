package llm

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/statuscert/internal/common"
)

// RetryPolicy bounds attempts at the extraction service.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // linear backoff: attempt * BaseDelay
}

// transientSignatures are the message fragments that mark a failure as worth retrying.
var transientSignatures = []string{
	"timeout",
	"timed out",
	"connection reset",
	"econnreset",
	"502",
	"503",
	"bad gateway",
	"service unavailable",
	"temporarily unavailable",
	"rate limit",
	"429",
	"too many requests",
}

// IsRetryable reports whether err looks transient. Context cancellation is never retried.
// An HTTP status decides on its own; message signatures only apply to errors
// that carry no status.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range transientSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

// Classify maps a low-level failure onto a typed AppError with a user-safe message.
// Structured signals win; message signatures are the fallback.
func Classify(err error) *common.AppError {
	if err == nil {
		return nil
	}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	code := common.CodeAnalysisFailed
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests:
			code = common.CodeRateLimit
		case http.StatusBadGateway, http.StatusServiceUnavailable:
			code = common.CodeUnavailable
		case http.StatusGatewayTimeout:
			code = common.CodeTimeout
		}
		return common.NewAppError(code, userMessages[code], err)
	}

	var ne net.Error
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		code = common.CodeTimeout
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		code = common.CodeRateLimit
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		code = common.CodeTimeout
	case strings.Contains(msg, "502"), strings.Contains(msg, "503"),
		strings.Contains(msg, "unavailable"), strings.Contains(msg, "bad gateway"),
		strings.Contains(msg, "connection reset"), strings.Contains(msg, "econnreset"),
		strings.Contains(msg, "connection refused"):
		code = common.CodeUnavailable
	}
	return common.NewAppError(code, userMessages[code], err)
}

var userMessages = map[string]string{
	common.CodeRateLimit:      "The analysis service is busy. Please try again in a few minutes.",
	common.CodeTimeout:        "The analysis took too long to complete. Please try again.",
	common.CodeUnavailable:    "The analysis service is temporarily unavailable. Please try again shortly.",
	common.CodeAnalysisFailed: "The document could not be analyzed.",
}

// Do runs fn until it succeeds, fails with a non-retryable error, or the policy
// is exhausted. The returned error is always a classified *common.AppError.
func Do(ctx context.Context, policy RetryPolicy, logger *slog.Logger, fn func(ctx context.Context) (string, error)) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsRetryable(err) || attempt == attempts {
			break
		}

		delay := time.Duration(attempt) * policy.BaseDelay
		logger.Warn("llm.extract.retry",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = errors.Join(err, ctx.Err())
			attempt = attempts
		case <-timer.C:
		}
	}

	classified := Classify(lastErr)
	logger.Error("llm.extract.failed", "code", classified.Code, "error", lastErr)
	return "", classified
}
