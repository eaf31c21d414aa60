package choice

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
)

// ErrClassification is returned when free text cannot be classified into a
// structured choice. Normalization never guesses silently: on classifier
// failure the whole node-creation request fails validation before any node
// row is created.
var ErrClassification = errors.New("failed to classify choice text")

// Classifier turns a free-text decision into a structured Choice.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Choice, error)
}

// Input is a raw user choice: either already-structured fields, a free-text
// sentence requiring dimension classification, or both (structured fields
// win; free text fills what they leave open).
type Input struct {
	Structured *Choice `json:"structured,omitempty"`
	FreeText   string  `json:"freeText,omitempty"`
}

// Normalizer produces a canonical Choice from raw input.
type Normalizer struct {
	classifier Classifier
}

func NewNormalizer(classifier Classifier) *Normalizer {
	return &Normalizer{classifier: classifier}
}

// Normalize validates and canonicalizes the raw input. Structured input with
// no free text passes through unchanged. Free text is delegated to the
// classifier; a classifier failure propagates wrapped in ErrClassification.
func (n *Normalizer) Normalize(ctx context.Context, input *Input) (*Choice, error) {
	if input == nil {
		return nil, ErrEmptyChoice
	}

	result := &Choice{}
	if input.Structured != nil {
		copied := *input.Structured
		result = &copied
	}

	if input.FreeText != "" {
		if n.classifier == nil {
			return nil, errors.Wrap(ErrClassification, "no classifier configured")
		}
		classified, err := n.classifier.Classify(ctx, input.FreeText)
		if err != nil {
			return nil, errors.Wrapf(ErrClassification, "classify %q: %v", input.FreeText, err)
		}
		slog.Debug("choice: classified free text",
			"text", input.FreeText,
			"dimensions", len(classified.Dimensions()),
		)
		merge(result, classified)
	}

	if err := result.Validate(); err != nil {
		return nil, err
	}
	return result, nil
}

// merge fills dimensions of dst that are unset from src. Explicit structured
// fields always win over classified ones.
func merge(dst, src *Choice) {
	if dst.CareerChange == nil {
		dst.CareerChange = src.CareerChange
	}
	if dst.LocationChange == nil {
		dst.LocationChange = src.LocationChange
	}
	if dst.EducationChange == nil {
		dst.EducationChange = src.EducationChange
	}
	if dst.LifestyleChange == nil {
		dst.LifestyleChange = src.LifestyleChange
	}
	if dst.PersonalityChange == nil {
		dst.PersonalityChange = src.PersonalityChange
	}
	if dst.RelationshipChange == nil {
		dst.RelationshipChange = src.RelationshipChange
	}
}
