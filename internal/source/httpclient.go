package source

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	maxAttempts = 3
	retryBase   = 200 * time.Millisecond
)

// doWithRetry issues the request, retrying transient failures (connection
// errors and 5xx) with linear backoff. It gives up immediately on 429 and
// whenever the context deadline cuts in. The caller owns the response body.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, classifyCtxErr(ctx)
			case <-time.After(time.Duration(attempt-1) * retryBase):
			}
		}

		req, err := build()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			if ctxErr := classifyCtxErr(ctx); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			return nil, ErrRateLimited
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = errors.New(resp.Status)
			continue
		default:
			return resp, nil
		}
	}

	if lastErr == nil {
		lastErr = errors.New("request failed")
	}
	return nil, errors.Join(ErrUnavailable, lastErr)
}

// classifyCtxErr maps a finished context to the taxonomy, nil otherwise.
func classifyCtxErr(ctx context.Context) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return ErrTimeout
	case ctx.Err() != nil:
		return ErrUnavailable
	default:
		return nil
	}
}
