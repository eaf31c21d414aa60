package narrative

import (
	"context"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
)

type fakeGenerator struct {
	response string
	err      error
	lastUser string
}

func (f *fakeGenerator) Complete(_ context.Context, _, user string) (string, error) {
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

const validResponse = `{
  "summary": "A new life as a chef in Tokyo.",
  "chapters": [
    {"title": "Arrival", "text": "The markets at dawn...", "yearRange": "0-3", "highlights": ["first kitchen job"]},
    {"title": "The Restaurant", "text": "Years of line work pay off...", "yearRange": "4-8"}
  ],
  "milestones": [
    {"year": 2, "event": "First head-chef position", "significance": "high", "category": "career"}
  ],
  "tone": "hopeful",
  "confidenceScore": 0.8
}`

func bundleFixture() *lifemetrics.Bundle {
	return &lifemetrics.Bundle{
		City: lifemetrics.CityMetrics{
			Name: "Tokyo", Country: "Japan",
			Scores:  lifemetrics.CityScores{Safety: 8.5, Healthcare: 8.0, Education: 7.0, Leisure: 9.0, CostOfLiving: 7.5},
			Climate: lifemetrics.ClimateMetrics{AvgTempC: 16.1, RainDays: 110, SunnyDays: 190, ComfortIndex: 7.0},
		},
		Occupation: lifemetrics.OccupationMetrics{Name: "chef", Category: "culinary", WorkLifeBalance: 5.2, GrowthOutlook: 6.0},
		Finances:   lifemetrics.FinancialMetrics{SalaryMedianUSD: 63000, SalaryLowUSD: 50400, SalaryHighUSD: 94500, SavingsPotential: 2.5},
		Composite:  lifemetrics.CompositeIndices{QualityOfLifeIndex: 7.2, HappinessScore: 7.5, HealthIndex: 7.0, SocialIndex: 7.8},
	}
}

func choiceFixture() *choice.Choice {
	career := "chef"
	return &choice.Choice{CareerChange: &career}
}

func TestGenerate_ParsesValidResponse(t *testing.T) {
	gen := &fakeGenerator{response: validResponse}
	c := NewCoordinator(gen)

	n, source := c.Generate(context.Background(), choiceFixture(), bundleFixture(), nil, nil)

	assert.Equal(t, SourceLLM, source)
	assert.Equal(t, "A new life as a chef in Tokyo.", n.Summary)
	require.Len(t, n.Chapters, 2)
	assert.Equal(t, "Arrival", n.Chapters[0].Title)
	require.Len(t, n.Milestones, 1)
	assert.Equal(t, SignificanceHigh, n.Milestones[0].Significance)
}

func TestGenerate_PromptEmbedsOnlyResolvedFacts(t *testing.T) {
	gen := &fakeGenerator{response: validResponse}
	c := NewCoordinator(gen)

	c.Generate(context.Background(), choiceFixture(), bundleFixture(), nil, nil)

	assert.Contains(t, gen.lastUser, "Tokyo, Japan")
	assert.Contains(t, gen.lastUser, "safety 8.5")
	assert.Contains(t, gen.lastUser, "$63000")
	assert.NotContains(t, gen.lastUser, "PRIOR LIFE")
}

func TestGenerate_ParentContextInPrompt(t *testing.T) {
	gen := &fakeGenerator{response: validResponse}
	c := NewCoordinator(gen)

	parent := NewParentContext(
		&Narrative{Summary: "An established designer's life in Lisbon."},
		lifemetrics.CompositeIndices{HappinessScore: 8.0, QualityOfLifeIndex: 7.4},
		[]string{"career: designer", "location: Lisbon, Portugal"},
	)
	c.Generate(context.Background(), choiceFixture(), bundleFixture(), parent, nil)

	assert.Contains(t, gen.lastUser, "PRIOR LIFE")
	assert.Contains(t, gen.lastUser, "An established designer's life in Lisbon.")
	assert.Contains(t, gen.lastUser, "happiness 8.0")
	assert.Contains(t, gen.lastUser, "career: designer")
}

func TestGenerate_FallbackOnOutage(t *testing.T) {
	gen := &fakeGenerator{err: errors.Wrap(ErrUnavailable, "503")}
	c := NewCoordinator(gen)

	happiness := 8.0
	parent := &ParentContext{Composite: lifemetrics.CompositeIndices{HappinessScore: happiness}}
	n, source := c.Generate(context.Background(), choiceFixture(), bundleFixture(), parent, nil)

	assert.Equal(t, SourceFallback, source)
	require.Len(t, n.Chapters, 3)
	assert.Equal(t, "0-3", n.Chapters[0].YearRange)
	assert.Equal(t, "4-8", n.Chapters[1].YearRange)
	assert.Equal(t, "9-15", n.Chapters[2].YearRange)
	assert.Contains(t, n.Chapters[0].Text, "8.0", "fallback references parent happiness")
	assert.NotEmpty(t, n.Milestones)
}

func TestGenerate_FallbackOnParseFailure(t *testing.T) {
	testCases := []struct {
		name     string
		response string
	}{
		{"not json", "Once upon a time..."},
		{"missing summary", `{"chapters":[{"title":"A","text":"B","yearRange":"0-3"}]}`},
		{"no chapters", `{"summary":"S"}`},
		{"chapter missing text", `{"summary":"S","chapters":[{"title":"A","yearRange":"0-3"}]}`},
		{"bad significance", `{"summary":"S","chapters":[{"title":"A","text":"B","yearRange":"0-3"}],"milestones":[{"year":1,"event":"E","significance":"huge","category":"c"}]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCoordinator(&fakeGenerator{response: tc.response})
			n, source := c.Generate(context.Background(), choiceFixture(), bundleFixture(), nil, nil)
			assert.Equal(t, SourceFallback, source)
			assert.NotEmpty(t, n.Summary, "fallback narrative is always complete")
		})
	}
}

func TestGenerate_NilGeneratorUsesFallback(t *testing.T) {
	c := NewCoordinator(nil)
	n, source := c.Generate(context.Background(), choiceFixture(), bundleFixture(), nil, nil)
	assert.Equal(t, SourceFallback, source)
	assert.Contains(t, n.Summary, "chef")
	assert.Contains(t, n.Summary, "Tokyo")
}

func TestParseNarrative_FencedJSON(t *testing.T) {
	fenced := "```json\n" + validResponse + "\n```"
	n, err := parseNarrative(fenced)
	require.NoError(t, err)
	assert.Equal(t, "hopeful", n.Tone)
}

func TestParseNarrative_ConfidenceClamped(t *testing.T) {
	resp := strings.Replace(validResponse, `"confidenceScore": 0.8`, `"confidenceScore": 3.5`, 1)
	n, err := parseNarrative(resp)
	require.NoError(t, err)
	assert.Equal(t, 0.5, n.ConfidenceScore)
}

func TestFallbackNarrative_Deterministic(t *testing.T) {
	a := FallbackNarrative("chef", "Tokyo", nil)
	b := FallbackNarrative("chef", "Tokyo", nil)
	assert.Equal(t, a, b)
}
