// Package choice models a user decision and its normalization into a
// canonical structured form. A choice is a sparse record: at most one value
// per dimension, at least one dimension populated. Once attached to a node it
// is immutable.
package choice

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Dimension identifies one of the six change categories.
type Dimension string

const (
	DimensionCareer       Dimension = "career"
	DimensionLocation     Dimension = "location"
	DimensionEducation    Dimension = "education"
	DimensionLifestyle    Dimension = "lifestyle"
	DimensionPersonality  Dimension = "personality"
	DimensionRelationship Dimension = "relationship"
)

// ErrEmptyChoice is returned when no dimension is populated.
var ErrEmptyChoice = errors.New("choice must populate at least one dimension")

// LocationChange names a destination. Country is optional.
type LocationChange struct {
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Choice is the canonical structured decision.
type Choice struct {
	CareerChange       *string         `json:"careerChange,omitempty"`
	LocationChange     *LocationChange `json:"locationChange,omitempty"`
	EducationChange    *string         `json:"educationChange,omitempty"`
	LifestyleChange    *string         `json:"lifestyleChange,omitempty"`
	PersonalityChange  *string         `json:"personalityChange,omitempty"`
	RelationshipChange *string         `json:"relationshipChange,omitempty"`
}

// IsEmpty reports whether no dimension carries a value.
func (c *Choice) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.CareerChange == nil &&
		(c.LocationChange == nil || (c.LocationChange.City == "" && c.LocationChange.Country == "")) &&
		c.EducationChange == nil &&
		c.LifestyleChange == nil &&
		c.PersonalityChange == nil &&
		c.RelationshipChange == nil
}

// Validate enforces the choice invariant.
func (c *Choice) Validate() error {
	if c.IsEmpty() {
		return ErrEmptyChoice
	}
	return nil
}

// Dimensions returns the populated dimensions with their values, in a stable
// order, for prompt building and parent-context summaries.
func (c *Choice) Dimensions() map[Dimension]string {
	out := make(map[Dimension]string)
	if c == nil {
		return out
	}
	if c.CareerChange != nil && *c.CareerChange != "" {
		out[DimensionCareer] = *c.CareerChange
	}
	if c.LocationChange != nil && c.LocationChange.City != "" {
		loc := c.LocationChange.City
		if c.LocationChange.Country != "" {
			loc += ", " + c.LocationChange.Country
		}
		out[DimensionLocation] = loc
	}
	if c.EducationChange != nil && *c.EducationChange != "" {
		out[DimensionEducation] = *c.EducationChange
	}
	if c.LifestyleChange != nil && *c.LifestyleChange != "" {
		out[DimensionLifestyle] = *c.LifestyleChange
	}
	if c.PersonalityChange != nil && *c.PersonalityChange != "" {
		out[DimensionPersonality] = *c.PersonalityChange
	}
	if c.RelationshipChange != nil && *c.RelationshipChange != "" {
		out[DimensionRelationship] = *c.RelationshipChange
	}
	return out
}

// Describe renders a short human-readable summary of the choice, e.g.
// "career: chef; location: Tokyo, Japan".
func (c *Choice) Describe() string {
	dims := c.Dimensions()
	ordered := []Dimension{
		DimensionCareer, DimensionLocation, DimensionEducation,
		DimensionLifestyle, DimensionPersonality, DimensionRelationship,
	}
	var parts []string
	for _, d := range ordered {
		if v, ok := dims[d]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", d, v))
		}
	}
	return strings.Join(parts, "; ")
}
