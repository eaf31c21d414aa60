package occupation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupKnownOccupation(t *testing.T) {
	catalog := NewCatalog()

	m, err := catalog.Lookup(context.Background(), "Chef", "Paris")
	require.NoError(t, err)

	assert.Equal(t, "Chef", m.Name)
	assert.Equal(t, "hospitality", m.Category)
	// Variation stays within ±0.4 of the catalog baseline.
	assert.InDelta(t, 3.5, m.WorkLifeBalance, 0.4)
	assert.InDelta(t, 8.0, m.StressLevel, 0.4)
	assert.InDelta(t, 48000, m.BaseSalaryUSD, 48000*0.08)
}

func TestLookupIsDeterministic(t *testing.T) {
	catalog := NewCatalog()
	ctx := context.Background()

	first, err := catalog.Lookup(ctx, "software engineer", "Tokyo")
	require.NoError(t, err)
	second, err := catalog.Lookup(ctx, "Software Engineer", "  tokyo ")
	require.NoError(t, err)

	// Case and whitespace do not change the variation seed.
	assert.Equal(t, first.WorkLifeBalance, second.WorkLifeBalance)
	assert.Equal(t, first.GrowthOutlook, second.GrowthOutlook)
	assert.Equal(t, first.BaseSalaryUSD, second.BaseSalaryUSD)
}

func TestLookupVariesByCity(t *testing.T) {
	catalog := NewCatalog()
	ctx := context.Background()

	tokyo, err := catalog.Lookup(ctx, "chef", "Tokyo")
	require.NoError(t, err)
	lima, err := catalog.Lookup(ctx, "chef", "Lima")
	require.NoError(t, err)

	different := tokyo.WorkLifeBalance != lima.WorkLifeBalance ||
		tokyo.GrowthOutlook != lima.GrowthOutlook ||
		tokyo.BaseSalaryUSD != lima.BaseSalaryUSD
	assert.True(t, different, "expected per-city variation")
}

func TestLookupUnknownOccupationSynthesizes(t *testing.T) {
	catalog := NewCatalog()

	m, err := catalog.Lookup(context.Background(), "volcano surfer", "Managua")
	require.NoError(t, err)

	assert.Equal(t, "general", m.Category)
	assert.GreaterOrEqual(t, m.WorkLifeBalance, 0.0)
	assert.LessOrEqual(t, m.WorkLifeBalance, 10.0)
	assert.GreaterOrEqual(t, m.StressLevel, 0.0)
	assert.LessOrEqual(t, m.StressLevel, 10.0)
	assert.Greater(t, m.BaseSalaryUSD, 0.0)
}
