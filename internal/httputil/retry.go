// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across commands.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"
)

// RetryDelay is the fixed pause between retry attempts. Tests override
// this to avoid real sleeps.
var RetryDelay = 2 * time.Second

const defaultMaxRetries = 3

// DoWithRetry executes an HTTP request and retries transient failures:
// transport errors, HTTP 429 (Too Many Requests), and HTTP 5xx. Attempts
// are separated by the fixed RetryDelay.
//
// When maxRetries is 0 the default (3) is used. Before each retry any
// received response body is drained and closed. If the context is
// cancelled during a wait the function returns ctx.Err(). After
// exhausting retries the last response is returned as-is so the caller
// can inspect its status, or the last transport error when no response
// was received.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err == nil && !transientStatus(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted retries — surface the last outcome as-is.
		if attempt >= maxRetries {
			return resp, err
		}

		if err == nil {
			// Drain and close the body before retrying.
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(RetryDelay):
		}
	}
}

// transientStatus reports whether an HTTP status is worth retrying.
func transientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
