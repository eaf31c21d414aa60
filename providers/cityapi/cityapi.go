// Package cityapi fetches city livability scores from the urban data API.
package cityapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/resolve"
	"github.com/Hrishap/ParallelLives/engine/retry"
)

// Client implements resolve.LocationMetricsProvider against the city scores
// HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	backoff time.Duration
}

// NewClient creates a city scores client. The API is public and unauthenticated
// but rate limited, so outbound calls are throttled client-side.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		backoff: retry.DefaultBackoff,
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// cityResponse is the wire format of the scores endpoint. All scores are
// 0-10.
type cityResponse struct {
	Name       string                 `json:"name"`
	Country    string                 `json:"country"`
	Population int64                  `json:"population"`
	Timezone   string                 `json:"timezone"`
	Scores     lifemetrics.CityScores `json:"scores"`
}

// Lookup fetches livability scores for a city. Unknown cities map to
// resolve.ErrNotFound; upstream outages are retried and finally map to
// resolve.ErrUnavailable.
func (c *Client) Lookup(ctx context.Context, city, country string) (*lifemetrics.CityMetrics, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/cities/search?name=%s&country=%s",
		c.baseURL, url.QueryEscape(city), url.QueryEscape(country))

	var parsed cityResponse
	err := retry.Do(ctx, retry.DefaultAttempts, c.backoff, func() error {
		return c.get(ctx, endpoint, &parsed)
	})
	if err != nil {
		return nil, err
	}

	metrics := &lifemetrics.CityMetrics{
		Name:       parsed.Name,
		Country:    parsed.Country,
		Scores:     parsed.Scores,
		Population: parsed.Population,
		Timezone:   parsed.Timezone,
	}
	if metrics.Name == "" {
		metrics.Name = city
	}
	if metrics.Country == "" {
		metrics.Country = country
	}
	return metrics, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return retry.Transient(errors.Wrap(resolve.ErrUnavailable, err.Error()))
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(errors.Wrapf(resolve.ErrNotFound, "city scores: HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Transient(errors.Wrapf(resolve.ErrUnavailable, "city scores: HTTP %d", resp.StatusCode))
	default:
		return retry.Permanent(errors.Wrapf(resolve.ErrUnavailable, "city scores: HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Transient(errors.Wrap(resolve.ErrUnavailable, err.Error()))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(errors.Wrapf(resolve.ErrUnavailable, "city scores: malformed response: %v", err))
	}
	return nil
}
