// Package occupation resolves occupation metrics from an in-process catalog.
// There is no good public API for occupation characteristics, so the catalog
// carries curated baselines and unknown occupations get deterministic
// synthesized metrics: the same occupation in the same city always resolves
// to the same values, which keeps node generation reproducible.
package occupation

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
)

// Catalog implements resolve.OccupationProvider.
type Catalog struct{}

func NewCatalog() *Catalog {
	return &Catalog{}
}

type entry struct {
	category      string
	workLife      float64
	growth        float64
	stress        float64
	demand        float64
	baseSalaryUSD float64
}

// baselines are rough global medians on the shared 0-10 scale, keyed by
// normalized occupation name.
var baselines = map[string]entry{
	"software engineer": {"technology", 6.5, 8.0, 6.0, 8.5, 95000},
	"data scientist":    {"technology", 6.5, 8.5, 5.5, 8.0, 100000},
	"product manager":   {"technology", 5.5, 7.5, 7.0, 7.5, 110000},
	"designer":          {"creative", 6.0, 6.5, 5.5, 6.5, 65000},
	"photographer":      {"creative", 6.5, 4.5, 5.0, 4.0, 42000},
	"writer":            {"creative", 7.0, 4.5, 4.5, 4.0, 48000},
	"musician":          {"creative", 6.0, 4.0, 5.5, 3.5, 38000},
	"artist":            {"creative", 6.5, 4.0, 5.0, 3.5, 36000},
	"painter":           {"creative", 6.5, 4.0, 5.0, 3.5, 36000},
	"chef":              {"hospitality", 3.5, 5.5, 8.0, 6.5, 48000},
	"bartender":         {"hospitality", 4.5, 4.0, 6.0, 5.5, 30000},
	"teacher":           {"education", 5.5, 5.0, 6.5, 7.0, 52000},
	"professor":         {"education", 6.5, 4.5, 5.5, 5.0, 85000},
	"doctor":            {"healthcare", 3.5, 7.0, 8.5, 9.0, 180000},
	"nurse":             {"healthcare", 4.0, 7.5, 8.0, 9.0, 75000},
	"therapist":         {"healthcare", 6.0, 7.0, 6.0, 7.5, 62000},
	"lawyer":            {"legal", 3.5, 5.5, 8.5, 6.5, 120000},
	"accountant":        {"finance", 5.5, 5.0, 6.0, 6.5, 68000},
	"financial analyst": {"finance", 5.0, 6.5, 7.0, 7.0, 80000},
	"entrepreneur":      {"business", 3.0, 6.0, 9.0, 5.0, 70000},
	"marketing manager": {"business", 5.0, 6.0, 6.5, 6.5, 78000},
	"farmer":            {"agriculture", 5.0, 3.5, 6.0, 5.0, 40000},
	"carpenter":         {"trades", 6.0, 5.0, 5.5, 7.0, 52000},
	"electrician":       {"trades", 6.0, 6.0, 5.5, 8.0, 60000},
	"pilot":             {"transport", 4.5, 5.5, 7.5, 6.0, 130000},
	"journalist":        {"media", 4.5, 3.5, 7.0, 4.5, 50000},
}

// Lookup resolves metrics for an occupation. A known occupation gets its
// catalog baseline with a small per-city variation; an unknown one gets fully
// synthesized metrics. Lookup never fails.
func (c *Catalog) Lookup(ctx context.Context, name, city string) (*lifemetrics.OccupationMetrics, error) {
	normalized := normalize(name)

	if base, ok := baselines[normalized]; ok {
		v := newVariator(normalized + "|" + normalize(city))
		return &lifemetrics.OccupationMetrics{
			Name:            name,
			Category:        base.category,
			WorkLifeBalance: vary(v, base.workLife, 0.4),
			GrowthOutlook:   vary(v, base.growth, 0.4),
			StressLevel:     vary(v, base.stress, 0.4),
			DemandIndex:     vary(v, base.demand, 0.4),
			BaseSalaryUSD:   varySalary(v, base.baseSalaryUSD),
		}, nil
	}

	// Synthesized metrics live in the middle band so an exotic occupation
	// never dominates or tanks the composite indices.
	v := newVariator(normalized + "|" + normalize(city))
	return &lifemetrics.OccupationMetrics{
		Name:            name,
		Category:        "general",
		WorkLifeBalance: vary(v, 5.5, 1.5),
		GrowthOutlook:   vary(v, 5.0, 1.5),
		StressLevel:     vary(v, 5.5, 1.5),
		DemandIndex:     vary(v, 5.0, 1.5),
		BaseSalaryUSD:   varySalary(v, 52000),
	}, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// variator yields a deterministic sequence of values in [0,1) seeded by
// FNV-1a of the key. Each draw rehashes the previous state.
type variator struct {
	state uint64
}

func newVariator(key string) *variator {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return &variator{state: h.Sum64()}
}

func (v *variator) next() float64 {
	// splitmix64 step keeps successive draws decorrelated.
	v.state += 0x9e3779b97f4a7c15
	z := v.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return float64(z>>11) / float64(1<<53)
}

// vary shifts base by a deterministic offset in [-spread, +spread], clamped
// and rounded like every other score.
func vary(v *variator, base, spread float64) float64 {
	offset := (v.next()*2 - 1) * spread
	return lifemetrics.Round1(lifemetrics.Clamp(base + offset))
}

// varySalary shifts the base salary by up to ±8%.
func varySalary(v *variator, base float64) float64 {
	factor := 1 + (v.next()*2-1)*0.08
	return float64(int64(base*factor/100) * 100)
}
