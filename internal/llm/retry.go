package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"jar-translator/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

type retryingCompleter struct {
	base      Completer
	retries   int
	baseDelay time.Duration
	fields    map[string]any
}

// WithRetry wraps base so transient failures are retried up to retries extra
// times with exponential backoff. fields are attached to the retry log lines.
func WithRetry(base Completer, retries int, fields map[string]any) Completer {
	if base == nil || retries <= 0 {
		return base
	}
	return &retryingCompleter{base: base, retries: retries, baseDelay: retryBaseDelay, fields: fields}
}

func (r *retryingCompleter) Complete(ctx context.Context, prompt Prompt) (string, error) {
	out, err := r.base.Complete(ctx, prompt)
	delay := r.baseDelay
	for attempt := 1; attempt <= r.retries && err != nil && shouldRetry(err); attempt++ {
		fields := map[string]any{"attempt": attempt, "error": err.Error(), "delay_ms": delay.Milliseconds()}
		for k, v := range r.fields {
			fields[k] = v
		}
		telemetry.Warn("llm.retry", fields)

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		}
		delay *= 2
		out, err = r.base.Complete(ctx, prompt)
	}
	return out, err
}

func (r *retryingCompleter) Close() error {
	return r.base.Close()
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "client.timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}
	return false
}
