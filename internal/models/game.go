package models

import (
	"time"

	"gorm.io/datatypes"
)

// Game is the primary staged entity, keyed by the remote catalog id.
type Game struct {
	ID                int64          `gorm:"primaryKey"`
	Name              string         `gorm:"not null"`
	Summary           *string
	FirstReleaseDate  *time.Time
	Rating            *float64
	RatingCount       *int
	CoverID           *int64         `gorm:"index"`
	ExternalUpdatedAt *time.Time     `gorm:"index"`
	LastSeenAt        time.Time      `gorm:"not null"`
	RawJSON           datatypes.JSON `gorm:"not null"`
}

func (Game) TableName() string {
	return "games"
}
