// Package sheet decodes spreadsheet-exported Fate character codes into
// immutable character sheets.
package sheet

import (
	"sort"
	"strings"
)

// Delimiter separates the positional segments of a character code.
const Delimiter = "§"

// NewlinePlaceholder stands in for line breaks inside a segment. Decode
// leaves it untouched; only display code should call Unescape.
const NewlinePlaceholder = "⏎"

// Rating is a skill's position on the Fate ladder.
type Rating uint8

const (
	Average Rating = iota + 1
	Fair
	Good
	Great
	Superb
)

// String returns the ladder adjective for the rating.
func (r Rating) String() string {
	switch r {
	case Superb:
		return "Superb"
	case Great:
		return "Great"
	case Good:
		return "Good"
	case Fair:
		return "Fair"
	case Average:
		return "Average"
	default:
		return "Unknown"
	}
}

// Valid reports whether r is one of the five skill tiers.
func (r Rating) Valid() bool {
	return r >= Average && r <= Superb
}

// Sheet is a decoded character. Scalar fields are plain values; the skill
// pyramid is only reachable through copies, so a Sheet cannot be changed
// after Decode returns it.
type Sheet struct {
	Name        string
	Description string
	Refresh     uint8

	HighConcept string
	Trouble     string
	AspectThree string
	AspectFour  string
	AspectFive  string

	Extras string
	Stunts string

	ConsequenceOne   string
	ConsequenceTwo   string
	ConsequenceThree string
	ConsequenceFour  string

	PhysicalStressBoxes uint8
	MentalStressBoxes   uint8

	skills map[string]Rating
}

// Skill is a single named entry of the skill pyramid.
type Skill struct {
	Name   string
	Rating Rating
}

// Skills returns a copy of the skill mapping.
func (s Sheet) Skills() map[string]Rating {
	out := make(map[string]Rating, len(s.skills))
	for name, r := range s.skills {
		out[name] = r
	}
	return out
}

// SkillCount returns the number of distinct skills on the sheet.
func (s Sheet) SkillCount() int {
	return len(s.skills)
}

// Rating returns the rating for a skill and whether the sheet has it.
func (s Sheet) Rating(name string) (Rating, bool) {
	r, ok := s.skills[name]
	return r, ok
}

// SkillsByRating returns skills ordered highest rating first, then by name.
func (s Sheet) SkillsByRating() []Skill {
	out := make([]Skill, 0, len(s.skills))
	for name, r := range s.skills {
		out = append(out, Skill{Name: name, Rating: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Aspects returns the five aspect slots in sheet order.
func (s Sheet) Aspects() []string {
	return []string{s.HighConcept, s.Trouble, s.AspectThree, s.AspectFour, s.AspectFive}
}

// Consequences returns the four consequence slots in sheet order.
func (s Sheet) Consequences() []string {
	return []string{s.ConsequenceOne, s.ConsequenceTwo, s.ConsequenceThree, s.ConsequenceFour}
}

// Unescape replaces newline placeholders with real line breaks.
func Unescape(text string) string {
	return strings.ReplaceAll(text, NewlinePlaceholder, "\n")
}
