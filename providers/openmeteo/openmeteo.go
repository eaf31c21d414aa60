// Package openmeteo implements geocoding and climate lookups on the
// Open-Meteo public APIs.
package openmeteo

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

// DefaultGeocodingURL and DefaultClimateURL are the public Open-Meteo
// endpoints.
const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com"
	DefaultClimateURL   = "https://climate-api.open-meteo.com"
)

// Client implements resolve.ClimateProvider on Open-Meteo.
type Client struct {
	client       *http.Client
	geocodingURL string
	climateURL   string
	limiter      *rate.Limiter
	backoff      time.Duration
}

// NewClient creates an Open-Meteo client. Empty URLs use the public
// endpoints.
func NewClient(geocodingURL, climateURL string) *Client {
	if geocodingURL == "" {
		geocodingURL = DefaultGeocodingURL
	}
	if climateURL == "" {
		climateURL = DefaultClimateURL
	}
	return &Client{
		geocodingURL: strings.TrimRight(geocodingURL, "/"),
		climateURL:   strings.TrimRight(climateURL, "/"),
		limiter:      rate.NewLimiter(rate.Limit(8), 8),
		backoff:      retry.DefaultBackoff,
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

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

// Geocode resolves a city name to coordinates. The country narrows the search
// but Open-Meteo matches on the name, so the first result is taken.
func (c *Client) Geocode(ctx context.Context, city, country string) (resolve.Coordinates, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return resolve.Coordinates{}, err
	}

	query := city
	if country != "" {
		query = city + " " + country
	}
	endpoint := fmt.Sprintf("%s/v1/search?name=%s&count=1&language=en&format=json",
		c.geocodingURL, url.QueryEscape(query))

	var parsed geocodeResponse
	err := retry.Do(ctx, retry.DefaultAttempts, c.backoff, func() error {
		return c.get(ctx, endpoint, &parsed)
	})
	if err != nil {
		return resolve.Coordinates{}, err
	}
	if len(parsed.Results) == 0 {
		// Retry once without the country suffix; bare city names match more
		// often.
		if country != "" {
			return c.Geocode(ctx, city, "")
		}
		return resolve.Coordinates{}, errors.Wrapf(resolve.ErrNotFound, "geocode %q", city)
	}
	return resolve.Coordinates{
		Lat: parsed.Results[0].Latitude,
		Lon: parsed.Results[0].Longitude,
	}, nil
}

type climateResponse struct {
	Monthly struct {
		Temperature   []float64 `json:"temperature_2m_mean"`
		Precipitation []float64 `json:"precipitation_sum"`
		SunshineHours []float64 `json:"sunshine_duration"`
	} `json:"monthly"`
}

// ClimateAt fetches climate normals for a point and condenses them into the
// node climate metrics.
func (c *Client) ClimateAt(ctx context.Context, coords resolve.Coordinates) (*lifemetrics.ClimateMetrics, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf(
		"%s/v1/climate?latitude=%.4f&longitude=%.4f&monthly=temperature_2m_mean,precipitation_sum,sunshine_duration",
		c.climateURL, coords.Lat, coords.Lon)

	var parsed climateResponse
	err := retry.Do(ctx, retry.DefaultAttempts, c.backoff, func() error {
		return c.get(ctx, endpoint, &parsed)
	})
	if err != nil {
		return nil, err
	}
	if len(parsed.Monthly.Temperature) == 0 {
		return nil, errors.Wrapf(resolve.ErrNotFound, "no climate data at %.2f,%.2f", coords.Lat, coords.Lon)
	}
	return condense(&parsed), nil
}

// condense reduces monthly normals to the yearly metrics the pipeline needs.
// Rain days approximate one rainy day per 8mm of monthly precipitation; sunny
// days one per 7h of monthly sunshine, both capped at the month length.
func condense(resp *climateResponse) *lifemetrics.ClimateMetrics {
	m := resp.Monthly

	var tempSum float64
	for _, t := range m.Temperature {
		tempSum += t
	}
	avgTemp := tempSum / float64(len(m.Temperature))

	var rainDays, sunnyDays float64
	for _, p := range m.Precipitation {
		days := p / 8.0
		if days > 30 {
			days = 30
		}
		rainDays += days
	}
	for _, s := range m.SunshineHours {
		days := s / 7.0
		if days > 30 {
			days = 30
		}
		sunnyDays += days
	}

	return &lifemetrics.ClimateMetrics{
		AvgTempC:     lifemetrics.Round1(avgTemp),
		RainDays:     int(rainDays),
		SunnyDays:    int(sunnyDays),
		ComfortIndex: comfortIndex(avgTemp, rainDays),
	}
}

// comfortIndex scores how livable the climate is on 0-10: distance from a
// 21°C ideal costs 0.35 per degree, rain costs 0.015 per yearly rain day.
func comfortIndex(avgTemp, rainDays float64) float64 {
	delta := avgTemp - 21.0
	if delta < 0 {
		delta = -delta
	}
	return lifemetrics.Round1(lifemetrics.Clamp(10 - delta*0.35 - rainDays*0.015))
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
		return retry.Permanent(errors.Wrapf(resolve.ErrNotFound, "open-meteo: HTTP %d", resp.StatusCode))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.Transient(errors.Wrapf(resolve.ErrUnavailable, "open-meteo: HTTP %d", resp.StatusCode))
	default:
		return retry.Permanent(errors.Wrapf(resolve.ErrUnavailable, "open-meteo: HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Transient(errors.Wrap(resolve.ErrUnavailable, err.Error()))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(errors.Wrapf(resolve.ErrUnavailable, "open-meteo: malformed response: %v", err))
	}
	return nil
}
