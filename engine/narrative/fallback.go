package narrative

import "fmt"

// FallbackNarrative is the deterministic three-chapter template used whenever
// the external generator is unavailable or returns unparseable output. It is
// parameterized only by occupation, location and the parent happiness score,
// so a total AI outage still yields a completed node.
func FallbackNarrative(occupation, location string, parentHappiness *float64) *Narrative {
	opening := fmt.Sprintf(
		"The first years as a %s in %s are a period of adjustment. New routines form around the work, the neighborhood, and the small rituals that make a place feel like home.",
		occupation, location,
	)
	if parentHappiness != nil {
		opening += fmt.Sprintf(
			" Coming from a life that measured %.1f in happiness, the change is felt in contrasts as much as in novelty.",
			*parentHappiness,
		)
	}

	return &Narrative{
		Summary: fmt.Sprintf(
			"A life as a %s in %s: settling in, finding footing, and building something lasting over fifteen years.",
			occupation, location,
		),
		Chapters: []Chapter{
			{
				Title:     "Arrival",
				YearRange: "0-3",
				Text:      opening,
				Highlights: []string{
					fmt.Sprintf("Settling into %s", location),
					fmt.Sprintf("First steps as a %s", occupation),
				},
			},
			{
				Title:     "Finding Footing",
				YearRange: "4-8",
				Text: fmt.Sprintf(
					"Work as a %s deepens from learning into competence. Friendships in %s stop being circumstantial and start being chosen. The question shifts from whether this life works to what to build with it.",
					occupation, location,
				),
				Highlights: []string{"Professional recognition", "A circle of close friends"},
			},
			{
				Title:     "Roots",
				YearRange: "9-15",
				Text: fmt.Sprintf(
					"By the second decade, %s is simply home. The career has a shape, the days have a rhythm, and the choice that started it all reads less like a gamble and more like a beginning.",
					location,
				),
				Highlights: []string{"An established life", "Long-term plans taking shape"},
			},
		},
		Milestones: []Milestone{
			{Year: 1, Event: fmt.Sprintf("Relocated and began working as a %s", occupation), Significance: SignificanceHigh, Category: "career"},
			{Year: 3, Event: "Settled into a lasting daily routine", Significance: SignificanceMedium, Category: "lifestyle"},
			{Year: 6, Event: "Reached professional independence", Significance: SignificanceHigh, Category: "career"},
			{Year: 10, Event: fmt.Sprintf("Came to consider %s home", location), Significance: SignificanceMedium, Category: "personal"},
			{Year: 15, Event: "Looked back on the decision with no regret", Significance: SignificanceLow, Category: "personal"},
		},
		Tone:            "grounded",
		ConfidenceScore: 0.3,
		Disclaimers: []string{
			"This narrative was generated from a deterministic template because the narrative service was unavailable.",
		},
	}
}
