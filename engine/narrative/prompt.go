package narrative

import (
	"fmt"
	"strings"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
)

const generatorSystemPrompt = `You write plausible alternate-life narratives grounded ONLY in the facts provided.
Never invent numbers: every score, salary or climate figure you mention must come from the FACTS section.
Respond with ONLY a JSON object:
{
  "summary": "...",
  "chapters": [{"title": "...", "text": "...", "yearRange": "0-3", "highlights": ["..."]}],
  "milestones": [{"year": 1, "event": "...", "significance": "low|medium|high", "category": "..."}],
  "tone": "...",
  "confidenceScore": 0.0,
  "disclaimers": ["..."]
}`

// buildPrompt renders the fact-constrained user prompt. Only resolved
// metrics are embedded; the generator is instructed never to invent numbers.
func buildPrompt(ch *choice.Choice, m *lifemetrics.Bundle, parent *ParentContext, prefs *Preferences) string {
	var b strings.Builder

	b.WriteString("DECISION: ")
	b.WriteString(ch.Describe())
	b.WriteString("\n\nFACTS:\n")

	fmt.Fprintf(&b, "- Location: %s, %s\n", m.City.Name, m.City.Country)
	fmt.Fprintf(&b, "- City scores (0-10): safety %.1f, healthcare %.1f, education %.1f, leisure %.1f, cost of living %.1f\n",
		m.City.Scores.Safety, m.City.Scores.Healthcare, m.City.Scores.Education,
		m.City.Scores.Leisure, m.City.Scores.CostOfLiving)
	fmt.Fprintf(&b, "- Climate: avg %.1f°C, %d rain days/yr, %d sunny days/yr, comfort %.1f/10\n",
		m.City.Climate.AvgTempC, m.City.Climate.RainDays, m.City.Climate.SunnyDays, m.City.Climate.ComfortIndex)
	fmt.Fprintf(&b, "- Occupation: %s (%s), work-life balance %.1f/10, growth outlook %.1f/10\n",
		m.Occupation.Name, m.Occupation.Category, m.Occupation.WorkLifeBalance, m.Occupation.GrowthOutlook)
	fmt.Fprintf(&b, "- Finances: median salary $%.0f/yr (range $%.0f-$%.0f), savings potential %.1f/10\n",
		m.Finances.SalaryMedianUSD, m.Finances.SalaryLowUSD, m.Finances.SalaryHighUSD, m.Finances.SavingsPotential)
	fmt.Fprintf(&b, "- Composite indices (0-10): quality of life %.1f, happiness %.1f, health %.1f, social %.1f\n",
		m.Composite.QualityOfLifeIndex, m.Composite.HappinessScore,
		m.Composite.HealthIndex, m.Composite.SocialIndex)

	if parent != nil {
		b.WriteString("\nPRIOR LIFE (this decision branches from it; reference the continuity explicitly):\n")
		if parent.SummaryExcerpt != "" {
			fmt.Fprintf(&b, "- Previous chapter: %s\n", parent.SummaryExcerpt)
		}
		fmt.Fprintf(&b, "- Previous scores: happiness %.1f, quality of life %.1f\n",
			parent.Composite.HappinessScore, parent.Composite.QualityOfLifeIndex)
		if len(parent.ChoicePath) > 0 {
			fmt.Fprintf(&b, "- Decisions so far: %s\n", strings.Join(parent.ChoicePath, " → "))
		}
	}

	if prefs != nil && prefs.Tone != "" {
		fmt.Fprintf(&b, "\nTONE: %s\n", prefs.Tone)
	}

	b.WriteString("\nWrite the narrative as three to five chapters covering roughly fifteen years.")
	return b.String()
}

// excerpt truncates a summary for parent context embedding.
func excerpt(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return string(runes[:maxRunes]) + "…"
}
