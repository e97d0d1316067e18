package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/tabilog/internal/weather"
)

// BackoffConfig controls retries of a failed request.
// MaxRetries of zero means a failed request is not repeated.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// delay returns the wait before retry number attempt (0-based).
func (b BackoffConfig) delay(attempt int) time.Duration {
	d := b.InitialInterval << attempt
	if b.MaxInterval > 0 && (d > b.MaxInterval || d <= 0) {
		d = b.MaxInterval
	}
	return d
}

var (
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errRejected    = errors.New("request rejected")
)

// endpointClient sends GET requests to one provider endpoint behind its own
// circuit breaker. Every failure it returns wraps weather.ErrProviderUnavailable.
type endpointClient struct {
	client  *http.Client
	backoff BackoffConfig
	circuit *gobreaker.CircuitBreaker
}

func newEndpointClient(name string, client *http.Client, backoff BackoffConfig) *endpointClient {
	return &endpointClient{
		client:  client,
		backoff: backoff,
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		}),
	}
}

// get returns the response of a 2xx answer; the caller closes its body.
// Rate limits and server errors are retried, other rejections are not.
func (c *endpointClient) get(ctx context.Context, url string) (*http.Response, error) {
	if c.client == nil {
		return nil, fmt.Errorf("%w: http client not configured", weather.ErrProviderUnavailable)
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.once(ctx, url)
		if err == nil {
			return resp, nil
		}

		retryable := errors.Is(err, errRateLimited) || errors.Is(err, errServerError) ||
			(!errors.Is(err, errRejected) && !errors.Is(err, gobreaker.ErrOpenState) &&
				!errors.Is(err, gobreaker.ErrTooManyRequests) && ctx.Err() == nil)
		if !retryable || attempt >= c.backoff.MaxRetries {
			return nil, fmt.Errorf("%w: %s: %v", weather.ErrProviderUnavailable, c.circuit.Name(), err)
		}

		timer := time.NewTimer(c.backoff.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", weather.ErrProviderUnavailable, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *endpointClient) once(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errRejected, err)
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		if err := statusError(resp.StatusCode); err != nil {
			resp.Body.Close()
			return nil, err
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*http.Response), nil
}

func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return errRateLimited
	case code >= 500:
		return fmt.Errorf("%w: %d", errServerError, code)
	default:
		return fmt.Errorf("%w: %d", errRejected, code)
	}
}
