// Package narrative builds the fact-constrained prompt for the external
// narrative generator, parses its JSON response strictly, and supplies a
// deterministic fallback so every node reaches a terminal state even under
// total generator outage.
package narrative

import (
	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
)

// Failure modes of the narrative collaborator.
var (
	// ErrParse marks a malformed or incomplete generator response. Partially
	// parsed data is never returned silently.
	ErrParse = errors.New("unparseable narrative response")
	// ErrUnavailable marks a generator outage.
	ErrUnavailable = errors.New("narrative generator unavailable")
)

// Significance grades a milestone.
type Significance string

const (
	SignificanceLow    Significance = "low"
	SignificanceMedium Significance = "medium"
	SignificanceHigh   Significance = "high"
)

func (s Significance) Valid() bool {
	switch s {
	case SignificanceLow, SignificanceMedium, SignificanceHigh:
		return true
	}
	return false
}

// Chapter is one section of the generated life story.
type Chapter struct {
	Title      string   `json:"title"`
	Text       string   `json:"text"`
	YearRange  string   `json:"yearRange"`
	Highlights []string `json:"highlights,omitempty"`
}

// Milestone is a single dated event.
type Milestone struct {
	Year         int          `json:"year"`
	Event        string       `json:"event"`
	Significance Significance `json:"significance"`
	Category     string       `json:"category"`
}

// Narrative is the story attached to a node.
type Narrative struct {
	Summary         string      `json:"summary"`
	Chapters        []Chapter   `json:"chapters"`
	Milestones      []Milestone `json:"milestones"`
	Tone            string      `json:"tone,omitempty"`
	ConfidenceScore float64     `json:"confidenceScore"`
	Disclaimers     []string    `json:"disclaimers,omitempty"`
}

// ParentContext condenses the parent node for continuity: a summary excerpt,
// the parent's composite scores, and the choice descriptions along the path
// from the root.
type ParentContext struct {
	SummaryExcerpt string
	Composite      lifemetrics.CompositeIndices
	ChoicePath     []string
}

// Preferences carries caller-supplied narrative preferences.
type Preferences struct {
	Tone string `json:"tone,omitempty"`
}
