// Package httpretry provides an HTTP client wrapper with a bounded,
// fixed-delay retry policy for calls against flaky external APIs.
package httpretry

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy this interface.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic: a fixed number of
// attempts with a fixed delay between them. A request is retried on
// transport errors (DNS, timeout, connection reset) and on non-2xx
// statuses; the predicate is deliberately narrow so application-level
// failures are not masked as transient.
type RetryClient struct {
	client      HTTPDoer
	maxAttempts int
	delay       time.Duration
}

// NewRetryClient creates a RetryClient that wraps the given HTTPDoer.
// If client is nil, a default http.Client with 30s timeout is used.
// maxAttempts is the total number of attempts including the first one
// (default 3); delay is the fixed wait between attempts (default 2s).
func NewRetryClient(client HTTPDoer, maxAttempts int, delay time.Duration) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &RetryClient{
		client:      client,
		maxAttempts: maxAttempts,
		delay:       delay,
	}
}

// Do executes the HTTP request with retry logic.
// On exhaustion it returns the last transport error, or the last non-2xx
// response as-is so the caller can inspect the status code and body.
// Context cancellation is never retried.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 1; attempt <= rc.maxAttempts; attempt++ {
		if attempt > 1 {
			// Reset request body for retry if applicable
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			timer := time.NewTimer(rc.delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		// Last attempt: hand the failing response back to the caller
		// with its body intact.
		if attempt == rc.maxAttempts {
			return resp, nil
		}

		// Drain the body for connection reuse, then retry.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("httpretry: server returned status %d", resp.StatusCode)
	}

	return nil, lastErr
}
