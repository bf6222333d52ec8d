package api

import (
	"time"

	"github.com/zulandar/fatebot/internal/models"
	"github.com/zulandar/fatebot/internal/sheet"
)

type skillView struct {
	Name   string `json:"name"`
	Rating uint8  `json:"rating"`
	Label  string `json:"label"`
}

// sheetView is the JSON shape of a character sheet, stored or not.
type sheetView struct {
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	Refresh             uint8       `json:"refresh"`
	HighConcept         string      `json:"high_concept"`
	Trouble             string      `json:"trouble"`
	AspectThree         string      `json:"aspect_three"`
	AspectFour          string      `json:"aspect_four"`
	AspectFive          string      `json:"aspect_five"`
	Extras              string      `json:"extras"`
	Stunts              string      `json:"stunts"`
	ConsequenceOne      string      `json:"consequence_one"`
	ConsequenceTwo      string      `json:"consequence_two"`
	ConsequenceThree    string      `json:"consequence_three"`
	ConsequenceFour     string      `json:"consequence_four"`
	PhysicalStressBoxes uint8       `json:"physical_stress_boxes"`
	MentalStressBoxes   uint8       `json:"mental_stress_boxes"`
	Skills              []skillView `json:"skills"`
}

type characterView struct {
	ID        uint      `json:"id"`
	GuildID   string    `json:"guild_id"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
	sheetView
}

type characterSummary struct {
	ID          uint      `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	HighConcept string    `json:"high_concept"`
	CreatedAt   time.Time `json:"created_at"`
}

func newSheetView(s sheet.Sheet) sheetView {
	v := sheetView{
		Name:                s.Name,
		Description:         s.Description,
		Refresh:             s.Refresh,
		HighConcept:         s.HighConcept,
		Trouble:             s.Trouble,
		AspectThree:         s.AspectThree,
		AspectFour:          s.AspectFour,
		AspectFive:          s.AspectFive,
		Extras:              s.Extras,
		Stunts:              s.Stunts,
		ConsequenceOne:      s.ConsequenceOne,
		ConsequenceTwo:      s.ConsequenceTwo,
		ConsequenceThree:    s.ConsequenceThree,
		ConsequenceFour:     s.ConsequenceFour,
		PhysicalStressBoxes: s.PhysicalStressBoxes,
		MentalStressBoxes:   s.MentalStressBoxes,
		Skills:              []skillView{},
	}
	for _, sk := range s.SkillsByRating() {
		v.Skills = append(v.Skills, skillView{Name: sk.Name, Rating: uint8(sk.Rating), Label: sk.Rating.String()})
	}
	return v
}

func newCharacterView(c *models.Character) characterView {
	v := characterView{
		ID:        c.ID,
		GuildID:   c.GuildID,
		OwnerID:   c.OwnerID,
		CreatedAt: c.CreatedAt,
		sheetView: sheetView{
			Name:                c.Name,
			Description:         c.Description,
			Refresh:             c.Refresh,
			HighConcept:         c.HighConcept,
			Trouble:             c.Trouble,
			AspectThree:         c.AspectThree,
			AspectFour:          c.AspectFour,
			AspectFive:          c.AspectFive,
			Extras:              c.Extras,
			Stunts:              c.Stunts,
			ConsequenceOne:      c.ConsequenceOne,
			ConsequenceTwo:      c.ConsequenceTwo,
			ConsequenceThree:    c.ConsequenceThree,
			ConsequenceFour:     c.ConsequenceFour,
			PhysicalStressBoxes: c.PhysicalStressBoxes,
			MentalStressBoxes:   c.MentalStressBoxes,
			Skills:              []skillView{},
		},
	}
	for _, sk := range c.Skills {
		v.Skills = append(v.Skills, skillView{Name: sk.Name, Rating: sk.Rating, Label: sheet.Rating(sk.Rating).String()})
	}
	return v
}

func newCharacterSummary(c models.Character) characterSummary {
	return characterSummary{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Name:        c.Name,
		HighConcept: c.HighConcept,
		CreatedAt:   c.CreatedAt,
	}
}
