package sheet

import (
	"strconv"
	"strings"
)

// Kind classifies how a positional segment is decoded.
type Kind int

const (
	KindText Kind = iota
	KindNumber
	KindSkill
)

// String returns the kind name used in diagnostics.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindSkill:
		return "skill"
	default:
		return "unknown"
	}
}

// Field describes one positional slot of a character code.
type Field struct {
	Index  int
	Name   string
	Kind   Kind
	Rating Rating // skill slots only

	text   func(*Sheet) *string
	number func(*Sheet) *uint8
}

const (
	// SlotsPerTier is the number of skill slots in each ladder tier.
	SlotsPerTier = 4
	// firstSkillIndex is the position of the first Superb slot.
	firstSkillIndex = 16
)

// scalarFields lists the sheet's scalar slots in code order.
var scalarFields = []Field{
	{Name: "name", Kind: KindText, text: func(s *Sheet) *string { return &s.Name }},
	{Name: "description", Kind: KindText, text: func(s *Sheet) *string { return &s.Description }},
	{Name: "refresh", Kind: KindNumber, number: func(s *Sheet) *uint8 { return &s.Refresh }},
	{Name: "high_concept", Kind: KindText, text: func(s *Sheet) *string { return &s.HighConcept }},
	{Name: "trouble", Kind: KindText, text: func(s *Sheet) *string { return &s.Trouble }},
	{Name: "aspect_three", Kind: KindText, text: func(s *Sheet) *string { return &s.AspectThree }},
	{Name: "aspect_four", Kind: KindText, text: func(s *Sheet) *string { return &s.AspectFour }},
	{Name: "aspect_five", Kind: KindText, text: func(s *Sheet) *string { return &s.AspectFive }},
	{Name: "extras", Kind: KindText, text: func(s *Sheet) *string { return &s.Extras }},
	{Name: "stunts", Kind: KindText, text: func(s *Sheet) *string { return &s.Stunts }},
	{Name: "consequence_one", Kind: KindText, text: func(s *Sheet) *string { return &s.ConsequenceOne }},
	{Name: "consequence_two", Kind: KindText, text: func(s *Sheet) *string { return &s.ConsequenceTwo }},
	{Name: "consequence_three", Kind: KindText, text: func(s *Sheet) *string { return &s.ConsequenceThree }},
	{Name: "consequence_four", Kind: KindText, text: func(s *Sheet) *string { return &s.ConsequenceFour }},
	{Name: "physical_stress_boxes", Kind: KindNumber, number: func(s *Sheet) *uint8 { return &s.PhysicalStressBoxes }},
	{Name: "mental_stress_boxes", Kind: KindNumber, number: func(s *Sheet) *uint8 { return &s.MentalStressBoxes }},
}

// tiers lists the skill tiers in code order, highest first.
var tiers = []Rating{Superb, Great, Good, Fair, Average}

// schema is the full positional table, built once.
var schema = buildSchema()

func buildSchema() []Field {
	fields := make([]Field, 0, len(scalarFields)+len(tiers)*SlotsPerTier)
	for i, f := range scalarFields {
		f.Index = i
		fields = append(fields, f)
	}
	idx := firstSkillIndex
	for _, r := range tiers {
		for slot := 1; slot <= SlotsPerTier; slot++ {
			fields = append(fields, Field{
				Index:  idx,
				Name:   skillSlotName(r, slot),
				Kind:   KindSkill,
				Rating: r,
			})
			idx++
		}
	}
	return fields
}

// skillSlotName names a slot after its tier, e.g. "skill_great_2".
func skillSlotName(r Rating, slot int) string {
	return "skill_" + strings.ToLower(r.String()) + "_" + strconv.Itoa(slot)
}

// Schema returns a copy of the positional table, ordered by index.
func Schema() []Field {
	out := make([]Field, len(schema))
	copy(out, schema)
	return out
}

// SegmentCount is the number of segments a complete code carries.
func SegmentCount() int {
	return len(schema)
}
