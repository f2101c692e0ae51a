package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

const (
	defaultCallTimeout   = 10 * time.Second
	maxResponseBodyBytes = 1 << 20
)

// apiClient is the shared outbound HTTP client for provider adapters. Every
// call runs through a circuit breaker so a hung or failing provider cannot
// exhaust the request workers. Business rejections (4xx) do not count as
// breaker failures; only transport errors and 5xx do.
type apiClient struct {
	provider   string
	baseURL    string
	authHeader string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func newAPIClient(provider, baseURL, secretKey string, timeout time.Duration) *apiClient {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	settings := gobreaker.Settings{
		Name:        provider,
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsRetryable(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[Payments] %s circuit breaker %s -> %s", name, from.String(), to.String())
		},
	}
	return &apiClient{
		provider:   provider,
		baseURL:    baseURL,
		authHeader: "Bearer " + secretKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

// call performs one JSON request against the provider API and returns the raw
// response body. Errors are always *ProviderError with Retryable set per the
// failure class.
func (c *apiClient) call(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, op, method, path, payload)
	})
	if err != nil && !IsProviderError(err) {
		// Breaker rejections (open state) surface as retryable provider errors.
		return nil, &ProviderError{Provider: c.provider, Op: op, Retryable: true, Err: err}
	}
	return body, err
}

func (c *apiClient) doRequest(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, &ProviderError{Provider: c.provider, Op: op, Err: err}
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &ProviderError{Provider: c.provider, Op: op, Err: err}
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: c.provider, Op: op, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode >= 500:
		return nil, &ProviderError{
			Provider: c.provider, Op: op, StatusCode: resp.StatusCode, Retryable: true,
			Err: fmt.Errorf("server error: %s", truncate(body, 256)),
		}
	default:
		return nil, &ProviderError{
			Provider: c.provider, Op: op, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("rejected: %s", truncate(body, 256)),
		}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
