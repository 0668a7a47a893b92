package models

import (
	"time"

	"gorm.io/datatypes"
)

type Genre struct {
	ID         int64          `gorm:"primaryKey"`
	Name       string         `gorm:"not null"`
	LastSeenAt time.Time      `gorm:"not null"`
	RawJSON    datatypes.JSON `gorm:"not null"`
}

func (Genre) TableName() string {
	return "genres"
}
