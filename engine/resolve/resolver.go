// Package resolve orchestrates the external collaborators that enrich a node
// with city, climate, occupation and imagery data. Every lookup is
// independently wrapped: a failed collaborator is logged and replaced by a
// documented fallback value so the pipeline never blocks on a degraded
// dependency.
package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/telemetry"
	"github.com/Hrishap/ParallelLives/store/cache"
)

// Collaborator failure modes. Providers return these (wrapped) so the
// resolver can distinguish "no such city" from "service down"; both degrade
// to the same documented fallbacks.
var (
	ErrNotFound    = errors.New("no match found")
	ErrUnavailable = errors.New("collaborator unavailable")
)

// Coordinates is a geocoded point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// LocationMetricsProvider looks up livability scores for a city.
type LocationMetricsProvider interface {
	Lookup(ctx context.Context, city, country string) (*lifemetrics.CityMetrics, error)
}

// ClimateProvider geocodes a city and fetches its climate normals.
type ClimateProvider interface {
	Geocode(ctx context.Context, city, country string) (Coordinates, error)
	ClimateAt(ctx context.Context, coords Coordinates) (*lifemetrics.ClimateMetrics, error)
}

// OccupationProvider looks up occupation metrics.
type OccupationProvider interface {
	Lookup(ctx context.Context, name, city string) (*lifemetrics.OccupationMetrics, error)
}

// ImageProvider searches for a cover image.
type ImageProvider interface {
	CoverImage(ctx context.Context, query string) (*lifemetrics.CoverImage, error)
}

// BaseContext is the session-level default context (where the base life
// starts), consulted after the choice and the parent node.
type BaseContext struct {
	City       string
	Country    string
	Occupation string
}

// Defaults are the last-resort values when choice, parent and base context
// are all silent.
type Defaults struct {
	City       string
	Country    string
	Occupation string
}

// Result is the resolver output consumed by the blender and the narrative
// coordinator.
type Result struct {
	City       lifemetrics.CityMetrics
	Occupation lifemetrics.OccupationMetrics
	Finances   lifemetrics.FinancialMetrics
	Cover      *lifemetrics.CoverImage

	// Degraded lists collaborators whose documented fallback was used.
	Degraded []string
}

// Cache TTLs differ by volatility: geocoding results essentially never move,
// city scores refresh daily, climate normals drift slowly.
const (
	geocodeTTL    = 30 * 24 * time.Hour
	cityScoresTTL = 24 * time.Hour
	climateTTL    = 7 * 24 * time.Hour
)

// Resolver coordinates the external lookups with caching and fallbacks.
type Resolver struct {
	location   LocationMetricsProvider
	climate    ClimateProvider
	occupation OccupationProvider
	images     ImageProvider
	defaults   Defaults
	exporter   *telemetry.Exporter

	geoCache     *cache.Cache[string, Coordinates]
	cityCache    *cache.Cache[string, *lifemetrics.CityMetrics]
	climateCache *cache.Cache[string, *lifemetrics.ClimateMetrics]
}

// New creates a resolver. Any provider may be nil, in which case its
// documented fallback is used unconditionally.
func New(
	location LocationMetricsProvider,
	climate ClimateProvider,
	occupation OccupationProvider,
	images ImageProvider,
	defaults Defaults,
	exporter *telemetry.Exporter,
) *Resolver {
	return &Resolver{
		location:     location,
		climate:      climate,
		occupation:   occupation,
		images:       images,
		defaults:     defaults,
		exporter:     exporter,
		geoCache:     cache.New[string, Coordinates](2000, geocodeTTL),
		cityCache:    cache.New[string, *lifemetrics.CityMetrics](2000, cityScoresTTL),
		climateCache: cache.New[string, *lifemetrics.ClimateMetrics](2000, climateTTL),
	}
}

// Resolve materializes the full metric set for a choice. Location and
// occupation inherit from the parent bundle when the choice does not specify
// them, then from the session base context, then from the configured
// defaults. Independent lookups run concurrently.
func (r *Resolver) Resolve(ctx context.Context, ch *choice.Choice, parent *lifemetrics.Bundle, base *BaseContext) (*Result, error) {
	city, country := r.targetLocation(ch, parent, base)
	occupationName := r.targetOccupation(ch, parent, base)

	var (
		cityMetrics    *lifemetrics.CityMetrics
		climateMetrics *lifemetrics.ClimateMetrics
		occMetrics     *lifemetrics.OccupationMetrics
		cover          *lifemetrics.CoverImage

		cityDegraded, climateDegraded, occDegraded, coverDegraded bool
	)

	// The four lookups are independent; run them concurrently and join.
	// Each helper absorbs its own failure into a fallback, so the group
	// never returns an error.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cityMetrics, cityDegraded = r.resolveCityScores(gctx, city, country)
		return nil
	})
	g.Go(func() error {
		climateMetrics, climateDegraded = r.resolveClimate(gctx, city, country)
		return nil
	})
	g.Go(func() error {
		occMetrics, occDegraded = r.resolveOccupation(gctx, occupationName, city)
		return nil
	})
	g.Go(func() error {
		cover, coverDegraded = r.resolveCover(gctx, occupationName, city)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cityMetrics.Climate = *climateMetrics

	result := &Result{
		City:       *cityMetrics,
		Occupation: *occMetrics,
		Finances:   lifemetrics.DeriveFinances(occMetrics, cityMetrics),
		Cover:      cover,
	}
	degraded := []struct {
		name string
		hit  bool
	}{
		{"location", cityDegraded},
		{"climate", climateDegraded},
		{"occupation", occDegraded},
		{"image", coverDegraded},
	}
	for _, d := range degraded {
		if d.hit {
			result.Degraded = append(result.Degraded, d.name)
		}
	}
	return result, nil
}

// targetLocation applies the documented precedence: choice, parent, base
// context, configured default.
func (r *Resolver) targetLocation(ch *choice.Choice, parent *lifemetrics.Bundle, base *BaseContext) (string, string) {
	// Candidates are trimmed up front: resolveField returns the trimmed
	// winner, so the source match below must compare trimmed strings.
	var choiceCity, choiceCountry string
	if ch != nil && ch.LocationChange != nil {
		choiceCity = strings.TrimSpace(ch.LocationChange.City)
		choiceCountry = strings.TrimSpace(ch.LocationChange.Country)
	}
	var parentCity, parentCountry string
	if parent != nil {
		parentCity = strings.TrimSpace(parent.City.Name)
		parentCountry = strings.TrimSpace(parent.City.Country)
	}
	var baseCity, baseCountry string
	if base != nil {
		baseCity = strings.TrimSpace(base.City)
		baseCountry = strings.TrimSpace(base.Country)
	}

	city := resolveField(choiceCity, parentCity, baseCity, r.defaults.City)
	// Country follows the same source as the city: mixing a chosen city with
	// an inherited country would geocode the wrong place.
	switch city {
	case choiceCity:
		return city, choiceCountry
	case parentCity:
		return city, parentCountry
	case baseCity:
		return city, baseCountry
	default:
		return city, r.defaults.Country
	}
}

// targetOccupation applies the same precedence for the career dimension.
func (r *Resolver) targetOccupation(ch *choice.Choice, parent *lifemetrics.Bundle, base *BaseContext) string {
	var fromChoice string
	if ch != nil && ch.CareerChange != nil {
		fromChoice = *ch.CareerChange
	}
	var fromParent string
	if parent != nil {
		fromParent = parent.Occupation.Name
	}
	var fromBase string
	if base != nil {
		fromBase = base.Occupation
	}
	return resolveField(fromChoice, fromParent, fromBase, r.defaults.Occupation)
}

// resolveField returns the first non-empty value in precedence order. Kept
// as a single auditable function so the inheritance rule is testable in
// isolation.
func resolveField(fromChoice, fromParent, fromBase, fallback string) string {
	for _, v := range []string{fromChoice, fromParent, fromBase} {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return fallback
}

func (r *Resolver) resolveCityScores(ctx context.Context, city, country string) (*lifemetrics.CityMetrics, bool) {
	key := normalizeCityKey(city, country)
	if cached, ok := r.cityCache.Get(key); ok {
		r.exporter.ObserveCache("city_scores", true)
		return cloneCity(cached), false
	}
	r.exporter.ObserveCache("city_scores", false)

	if r.location == nil {
		return FallbackCityMetrics(city, country), true
	}
	metrics, err := r.location.Lookup(ctx, city, country)
	r.exporter.ObserveCollaborator("location", err, err != nil)
	if err != nil {
		slog.Warn("resolve: city scores lookup failed, using fallback",
			"city", city, "country", country, "error", err)
		return FallbackCityMetrics(city, country), true
	}

	r.cityCache.Set(key, cloneCity(metrics), cityScoresTTL)
	return metrics, false
}

func (r *Resolver) resolveClimate(ctx context.Context, city, country string) (*lifemetrics.ClimateMetrics, bool) {
	if r.climate == nil {
		return FallbackClimate(), true
	}

	coords, err := r.geocode(ctx, city, country)
	if err != nil {
		slog.Warn("resolve: geocoding failed, using fallback climate",
			"city", city, "country", country, "error", err)
		return FallbackClimate(), true
	}

	key := normalizeCoordKey(coords)
	if cached, ok := r.climateCache.Get(key); ok {
		r.exporter.ObserveCache("climate", true)
		cloned := *cached
		return &cloned, false
	}
	r.exporter.ObserveCache("climate", false)

	climate, err := r.climate.ClimateAt(ctx, coords)
	r.exporter.ObserveCollaborator("climate", err, err != nil)
	if err != nil {
		slog.Warn("resolve: climate lookup failed, using fallback",
			"city", city, "lat", coords.Lat, "lon", coords.Lon, "error", err)
		return FallbackClimate(), true
	}

	cloned := *climate
	r.climateCache.Set(key, &cloned, climateTTL)
	return climate, false
}

func (r *Resolver) geocode(ctx context.Context, city, country string) (Coordinates, error) {
	key := normalizeCityKey(city, country)
	if cached, ok := r.geoCache.Get(key); ok {
		r.exporter.ObserveCache("geocode", true)
		return cached, nil
	}
	r.exporter.ObserveCache("geocode", false)

	coords, err := r.climate.Geocode(ctx, city, country)
	r.exporter.ObserveCollaborator("geocode", err, false)
	if err != nil {
		return Coordinates{}, err
	}
	r.geoCache.Set(key, coords, geocodeTTL)
	return coords, nil
}

func (r *Resolver) resolveOccupation(ctx context.Context, name, city string) (*lifemetrics.OccupationMetrics, bool) {
	if r.occupation == nil {
		return FallbackOccupation(name), true
	}
	metrics, err := r.occupation.Lookup(ctx, name, city)
	r.exporter.ObserveCollaborator("occupation", err, err != nil)
	if err != nil {
		slog.Warn("resolve: occupation lookup failed, using fallback",
			"occupation", name, "error", err)
		return FallbackOccupation(name), true
	}
	return metrics, false
}

func (r *Resolver) resolveCover(ctx context.Context, occupation, city string) (*lifemetrics.CoverImage, bool) {
	query := fmt.Sprintf("%s %s", occupation, city)
	if r.images == nil {
		return FallbackCover(query), true
	}
	cover, err := r.images.CoverImage(ctx, query)
	r.exporter.ObserveCollaborator("image", err, err != nil)
	if err != nil {
		slog.Warn("resolve: cover image search failed, using fallback",
			"query", query, "error", err)
		return FallbackCover(query), true
	}
	return cover, false
}

// normalizeCityKey lowercases and trims the city/country pair.
func normalizeCityKey(city, country string) string {
	return strings.ToLower(strings.TrimSpace(city)) + "|" + strings.ToLower(strings.TrimSpace(country))
}

// normalizeCoordKey rounds coordinates to 2 decimals (~1km), enough to share
// climate entries between nearby lookups.
func normalizeCoordKey(c Coordinates) string {
	return fmt.Sprintf("%.2f,%.2f", c.Lat, c.Lon)
}

func cloneCity(m *lifemetrics.CityMetrics) *lifemetrics.CityMetrics {
	cloned := *m
	return &cloned
}
