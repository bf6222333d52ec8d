package models

import "time"

// Character is a persisted character sheet, scoped to a guild and owner.
type Character struct {
	ID      uint   `gorm:"primaryKey;autoIncrement"`
	GuildID string `gorm:"size:64;not null;index:idx_guild_owner"`
	OwnerID string `gorm:"size:64;not null;index:idx_guild_owner"`

	Name        string `gorm:"type:text"`
	Description string `gorm:"type:text"`
	Refresh     uint8

	HighConcept string `gorm:"type:text"`
	Trouble     string `gorm:"type:text"`
	AspectThree string `gorm:"type:text"`
	AspectFour  string `gorm:"type:text"`
	AspectFive  string `gorm:"type:text"`

	Extras string `gorm:"type:text"`
	Stunts string `gorm:"type:text"`

	ConsequenceOne   string `gorm:"type:text"`
	ConsequenceTwo   string `gorm:"type:text"`
	ConsequenceThree string `gorm:"type:text"`
	ConsequenceFour  string `gorm:"type:text"`

	PhysicalStressBoxes uint8
	MentalStressBoxes   uint8

	CreatedAt time.Time

	Skills []CharacterSkill `gorm:"foreignKey:CharacterID;constraint:OnDelete:CASCADE"`
}

// CharacterSkill is one entry of a character's skill pyramid.
type CharacterSkill struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	CharacterID uint   `gorm:"not null;index"`
	Rating      uint8  `gorm:"not null"`
	Name        string `gorm:"type:text;not null"`
}

// TableName pins the relation name shared with external migrations.
func (Character) TableName() string { return "character" }

// TableName pins the relation name shared with external migrations.
func (CharacterSkill) TableName() string { return "character_skill" }
