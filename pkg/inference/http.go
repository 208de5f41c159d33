package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// httpClient is the shared HTTP base for provider adapters. It handles
// retries with exponential backoff, timeout classification, and JSON
// round-trips.
type httpClient struct {
	config ClientConfig
	client *http.Client
	logger *slog.Logger
}

func newHTTPClient(config ClientConfig) *httpClient {
	return &httpClient{
		config: config,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: config.Timeout,
		},
		logger: slog.Default().With("component", "inference", "provider", config.Name),
	}
}

// doJSON performs a JSON POST with retries. Network errors and 5xx
// responses are retried with exponential backoff; 4xx responses are
// not. Context expiry surfaces as *TimeoutError.
func (c *httpClient) doJSON(ctx context.Context, url string, reqBody, respBody any, headers map[string]string) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return &InferenceError{Provider: c.config.Name, Message: "failed to marshal request", Cause: err}
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			c.logger.Debug("retrying request", "attempt", attempt, "backoff", backoff)
			select {
			case <-ctx.Done():
				return &TimeoutError{Provider: c.config.Name, Timeout: c.config.Timeout}
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return &InferenceError{Provider: c.config.Name, Message: "failed to create request", Cause: err}
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return &TimeoutError{Provider: c.config.Name, Timeout: c.config.Timeout}
			}
			lastErr = &InferenceError{Provider: c.config.Name, Message: "request failed", Cause: err}
			c.logger.Warn("request failed, will retry", "attempt", attempt+1, "error", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = &InferenceError{Provider: c.config.Name, Message: "failed to read response", Cause: readErr}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if err := json.Unmarshal(body, respBody); err != nil {
				return &InferenceError{
					Provider: c.config.Name,
					Message:  fmt.Sprintf("malformed response: %s", truncateBody(body)),
					Cause:    err,
				}
			}
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			lastErr = &InferenceError{Provider: c.config.Name, StatusCode: resp.StatusCode, Message: truncateBody(body)}
			c.logger.Warn("request returned retryable status", "status", resp.StatusCode, "attempt", attempt+1)
		default:
			return &InferenceError{Provider: c.config.Name, StatusCode: resp.StatusCode, Message: truncateBody(body)}
		}
	}

	return lastErr
}

// Close releases idle connections.
func (c *httpClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
