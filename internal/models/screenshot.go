package models

import (
	"time"

	"gorm.io/datatypes"
)

type Screenshot struct {
	ID         int64          `gorm:"primaryKey"`
	URL        string         `gorm:"not null"`
	Width      *int
	Height     *int
	LastSeenAt time.Time      `gorm:"not null"`
	RawJSON    datatypes.JSON `gorm:"not null"`
}

func (Screenshot) TableName() string {
	return "screenshots"
}
