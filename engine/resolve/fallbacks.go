package resolve

import "github.com/Hrishap/ParallelLives/engine/lifemetrics"

// Documented fallback values. Deterministic by design: a degraded external
// dependency must not make node generation non-reproducible.

// FallbackCityMetrics returns neutral mid-scale livability scores for a city
// the location provider could not resolve.
func FallbackCityMetrics(city, country string) *lifemetrics.CityMetrics {
	return &lifemetrics.CityMetrics{
		Name:    city,
		Country: country,
		Scores: lifemetrics.CityScores{
			CostOfLiving: 5.0,
			Safety:       5.0,
			Housing:      5.0,
			Healthcare:   5.0,
			Education:    5.0,
			Leisure:      5.0,
			Tolerance:    5.0,
			Commute:      5.0,
			Business:     5.0,
			Economy:      5.0,
			Overall:      5.0,
		},
	}
}

// FallbackClimate returns temperate-zone climate normals.
func FallbackClimate() *lifemetrics.ClimateMetrics {
	return &lifemetrics.ClimateMetrics{
		AvgTempC:     15.0,
		RainDays:     95,
		SunnyDays:    200,
		ComfortIndex: 6.0,
	}
}

// FallbackOccupation returns a generic occupation profile keeping the
// requested name so narratives stay coherent.
func FallbackOccupation(name string) *lifemetrics.OccupationMetrics {
	return &lifemetrics.OccupationMetrics{
		Name:            name,
		Category:        "general",
		WorkLifeBalance: 5.5,
		GrowthOutlook:   5.0,
		StressLevel:     5.0,
		DemandIndex:     5.0,
		BaseSalaryUSD:   50000,
	}
}

// FallbackCover returns a descriptor with no URL. Callers treat an empty URL
// as "no cover available" and keep the query as the description so the UI
// can still label the node.
func FallbackCover(query string) *lifemetrics.CoverImage {
	return &lifemetrics.CoverImage{
		URL:         "",
		Description: query,
	}
}
