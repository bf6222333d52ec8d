package sheet

import (
	"strconv"
	"strings"
)

// Decode parses a character code. It never fails: missing segments decode
// as empty text, unparseable numbers as 0, and segments past the last
// schema slot are ignored. Duplicate skill names keep the rating of the
// later slot.
func Decode(raw string) Sheet {
	segments := strings.Split(raw, Delimiter)

	s := Sheet{skills: make(map[string]Rating)}
	for _, f := range schema {
		v := segment(segments, f.Index)
		switch f.Kind {
		case KindText:
			*f.text(&s) = v
		case KindNumber:
			*f.number(&s) = parseNumber(v)
		case KindSkill:
			if v != "" {
				s.skills[v] = f.Rating
			}
		}
	}
	return s
}

// segment returns segments[i], or "" when the code is too short.
func segment(segments []string, i int) string {
	if i < len(segments) {
		return segments[i]
	}
	return ""
}

// parseNumber parses a small unsigned integer, returning 0 for anything
// that is not one (empty, non-numeric, negative or above 255).
func parseNumber(text string) uint8 {
	n, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, 8)
	if err != nil {
		return 0
	}
	return uint8(n)
}
