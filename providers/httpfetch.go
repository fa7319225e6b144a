package providers

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/auditgrid/ledgersync/core"
)

const (
	defaultFetchMaxAttempts   = 4
	defaultFetchInitialDelay  = time.Second
	defaultFetchMaxDelay      = 30 * time.Second
	maxFetchResponseBodyBytes = 16 << 20 // 16 MiB
)

// APICaller issues authenticated provider API requests with rate limiting
// and transient-failure retry. One caller is shared by all requests of one
// sync job, so the rate-limit key stays fixed for its lifetime.
//
// Status handling:
//   - 401 fails immediately with the reconnect-required classification; the
//     caller holds a freshly minted token, so an unauthorized response means
//     the grant itself is gone.
//   - 429 and 5xx retry with exponential backoff and jitter, honoring
//     Retry-After when present.
//   - 4xx other than 401/429 fail immediately.
type APICaller struct {
	HTTPClient   HTTPDoer
	RateLimit    core.RateLimitPolicy
	RateKey      core.RateLimitKey
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Rand         *rand.Rand
	Sleep        func(ctx context.Context, delay time.Duration) error
}

type APIResponse struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

func (c *APICaller) Call(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (APIResponse, error) {
	if c == nil {
		return APIResponse{}, fmt.Errorf("providers: api caller is nil")
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	maxAttempts := c.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultFetchMaxAttempts
	}
	sleep := c.Sleep
	if sleep == nil {
		sleep = sleepWithContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.RateLimit != nil {
			if err := c.RateLimit.BeforeCall(ctx, c.RateKey); err != nil {
				return APIResponse{}, core.NewRateLimitedError(err.Error())
			}
		}

		req, err := build(ctx)
		if err != nil {
			return APIResponse{}, err
		}

		response, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt == maxAttempts {
				break
			}
			if sleepErr := sleep(ctx, c.nextDelay(attempt, nil)); sleepErr != nil {
				return APIResponse{}, sleepErr
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(response.Body, maxFetchResponseBodyBytes+1))
		response.Body.Close()
		if readErr != nil {
			return APIResponse{}, fmt.Errorf("providers: read response body: %w", readErr)
		}
		if int64(len(body)) > maxFetchResponseBodyBytes {
			return APIResponse{}, fmt.Errorf("providers: response body exceeds %d bytes", maxFetchResponseBodyBytes)
		}

		meta := responseMeta(response)
		if c.RateLimit != nil {
			if err := c.RateLimit.AfterCall(ctx, c.RateKey, meta); err != nil {
				return APIResponse{}, err
			}
		}

		switch {
		case response.StatusCode >= http.StatusOK && response.StatusCode < http.StatusMultipleChoices:
			return APIResponse{StatusCode: response.StatusCode, Body: body, Header: response.Header}, nil
		case response.StatusCode == http.StatusUnauthorized:
			return APIResponse{}, core.NewReconnectRequiredError(
				"provider rejected freshly issued access token")
		case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500:
			lastErr = fmt.Errorf("providers: api responded %d: %s", response.StatusCode, truncateBody(body))
			if attempt == maxAttempts {
				break
			}
			if sleepErr := sleep(ctx, c.nextDelay(attempt, meta.RetryAfter)); sleepErr != nil {
				return APIResponse{}, sleepErr
			}
			continue
		default:
			return APIResponse{}, fmt.Errorf("providers: api responded %d: %s", response.StatusCode, truncateBody(body))
		}
		break
	}

	return APIResponse{}, core.NewProviderTransientError(
		fmt.Sprintf("api call failed after %d attempts: %v", maxAttempts, lastErr))
}

func (c *APICaller) nextDelay(attempt int, retryAfter *time.Duration) time.Duration {
	if retryAfter != nil && *retryAfter > 0 {
		return *retryAfter
	}
	initial := c.InitialDelay
	if initial <= 0 {
		initial = defaultFetchInitialDelay
	}
	maximum := c.MaxDelay
	if maximum <= 0 {
		maximum = defaultFetchMaxDelay
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			delay = maximum
			break
		}
	}
	if delay > maximum {
		delay = maximum
	}
	return c.withJitter(delay)
}

// withJitter spreads retries across up to half the base delay so throttled
// workers do not stampede the provider in lockstep.
func (c *APICaller) withJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return delay
	}
	span := int64(delay) / 2
	if span <= 0 {
		return delay
	}
	var offset int64
	if c != nil && c.Rand != nil {
		offset = c.Rand.Int63n(span)
	} else {
		offset = rand.Int63n(span)
	}
	return delay + time.Duration(offset)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func responseMeta(response *http.Response) core.ProviderResponseMeta {
	meta := core.ProviderResponseMeta{
		StatusCode: response.StatusCode,
		Headers:    map[string]string{},
	}
	for key, values := range response.Header {
		if len(values) == 0 {
			continue
		}
		meta.Headers[key] = values[0]
	}
	if raw := strings.TrimSpace(response.Header.Get("Retry-After")); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			retryAfter := time.Duration(seconds) * time.Second
			meta.RetryAfter = &retryAfter
		}
	}
	return meta
}

func truncateBody(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
