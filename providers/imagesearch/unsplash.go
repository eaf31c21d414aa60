// Package imagesearch finds cover images for nodes via the Unsplash search
// API.
package imagesearch

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

// DefaultBaseURL is the public Unsplash API endpoint.
const DefaultBaseURL = "https://api.unsplash.com"

// Client implements resolve.ImageProvider on Unsplash.
type Client struct {
	client    *http.Client
	baseURL   string
	accessKey string
	limiter   *rate.Limiter
	backoff   time.Duration
}

// NewClient creates an Unsplash client. The demo tier allows 50 requests per
// hour, so the limiter is deliberately conservative.
func NewClient(baseURL, accessKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		limiter:   rate.NewLimiter(rate.Every(2*time.Second), 3),
		backoff:   retry.DefaultBackoff,
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

type searchResponse struct {
	Results []struct {
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

// CoverImage searches for one image matching the query.
func (c *Client) CoverImage(ctx context.Context, query string) (*lifemetrics.CoverImage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/search/photos?query=%s&per_page=1&orientation=landscape",
		c.baseURL, url.QueryEscape(query))

	var parsed searchResponse
	err := retry.Do(ctx, retry.DefaultAttempts, c.backoff, func() error {
		return c.get(ctx, endpoint, &parsed)
	})
	if err != nil {
		return nil, err
	}
	if len(parsed.Results) == 0 {
		return nil, errors.Wrapf(resolve.ErrNotFound, "no image for %q", query)
	}

	hit := parsed.Results[0]
	description := hit.Description
	if description == "" {
		description = hit.AltDescription
	}
	if description == "" {
		description = query
	}
	return &lifemetrics.CoverImage{
		URL:         hit.URLs.Regular,
		Credit:      hit.User.Name,
		Description: description,
	}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Version", "v1")
	req.Header.Set("Authorization", "Client-ID "+c.accessKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return retry.Transient(errors.Wrap(resolve.ErrUnavailable, err.Error()))
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // cleanup

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(errors.Wrapf(resolve.ErrNotFound, "unsplash: HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Transient(errors.Wrapf(resolve.ErrUnavailable, "unsplash: HTTP %d", resp.StatusCode))
	default:
		return retry.Permanent(errors.Wrapf(resolve.ErrUnavailable, "unsplash: HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Transient(errors.Wrap(resolve.ErrUnavailable, err.Error()))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(errors.Wrapf(resolve.ErrUnavailable, "unsplash: malformed response: %v", err))
	}
	return nil
}
