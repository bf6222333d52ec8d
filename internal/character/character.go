// Package character persists decoded character sheets.
//
// A sheet is stored as one character row plus one character_skill row per
// skill. Both are written in a single transaction: a failed skill insert
// rolls back the character row, so readers never see a partial sheet.
package character

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/fatebot/internal/models"
	"github.com/zulandar/fatebot/internal/sheet"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a character does not exist in the guild.
var ErrNotFound = errors.New("character: not found")

// StorageError reports a failed storage operation. Op names the step that
// failed; Err is the driver's error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("character: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Persist stores a sheet for the given guild and owner and returns the new
// character ID.
func Persist(ctx context.Context, db *gorm.DB, s sheet.Sheet, guildID, ownerID string) (uint, error) {
	if guildID == "" {
		return 0, fmt.Errorf("character: guild id is required")
	}
	if ownerID == "" {
		return 0, fmt.Errorf("character: owner id is required")
	}

	rec := newRecord(s, guildID, ownerID)
	skills := s.SkillsByRating()

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return &StorageError{Op: "insert character", Err: err}
		}
		for _, sk := range skills {
			row := models.CharacterSkill{
				CharacterID: rec.ID,
				Rating:      uint8(sk.Rating),
				Name:        sk.Name,
			}
			if err := tx.Create(&row).Error; err != nil {
				return &StorageError{Op: fmt.Sprintf("insert skill %q", sk.Name), Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var se *StorageError
		if errors.As(err, &se) {
			return 0, err
		}
		return 0, &StorageError{Op: "transaction", Err: err}
	}
	return rec.ID, nil
}

// newRecord maps a sheet's scalar fields onto a character row.
func newRecord(s sheet.Sheet, guildID, ownerID string) models.Character {
	return models.Character{
		GuildID:             guildID,
		OwnerID:             ownerID,
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
	}
}

// Get retrieves a character in a guild by ID, with skills ordered highest
// rating first.
func Get(ctx context.Context, db *gorm.DB, guildID string, id uint) (*models.Character, error) {
	var c models.Character
	err := db.WithContext(ctx).
		Preload("Skills", func(db *gorm.DB) *gorm.DB {
			return db.Order("rating DESC, name ASC")
		}).
		Where("id = ? AND guild_id = ?", id, guildID).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
		}
		return nil, &StorageError{Op: fmt.Sprintf("get %d", id), Err: err}
	}
	return &c, nil
}

// List returns a guild's characters, newest first. An empty ownerID lists
// every owner's characters.
func List(ctx context.Context, db *gorm.DB, guildID, ownerID string) ([]models.Character, error) {
	q := db.WithContext(ctx).Model(&models.Character{}).Where("guild_id = ?", guildID)
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}

	var chars []models.Character
	if err := q.Order("id DESC").Find(&chars).Error; err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}
	return chars, nil
}
