package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// llmSleepFunc waits between attempts; tests replace it
var llmSleepFunc = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// completeWithRetry calls p.Complete up to attempts times. The wait before
// retry n (1-based) is delay*n, or the server's Retry-After when given.
func completeWithRetry(ctx context.Context, p Provider, req CompletionRequest, attempts int, delay time.Duration) (*CompletionResponse, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		resp, err := p.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryableLLMError(err) || attempt == attempts-1 {
			break
		}

		wait := delay * time.Duration(attempt+1)
		if ra := retryAfter(err); ra > 0 {
			wait = ra
		}
		if err := llmSleepFunc(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// isRetryableLLMError reports whether err is a rate limit, a server error or a
// transport failure
func isRetryableLLMError(err error) bool {
	if err == nil {
		return false
	}

	var oaErr *openai.APIError
	if errors.As(err, &oaErr) {
		return retryableStatus(oaErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.StatusCode)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func retryAfter(err error) time.Duration {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.RetryAfter
	}
	return 0
}
