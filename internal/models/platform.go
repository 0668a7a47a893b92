package models

import (
	"time"

	"gorm.io/datatypes"
)

type Platform struct {
	ID         int64          `gorm:"primaryKey"`
	Name       string         `gorm:"not null"`
	LastSeenAt time.Time      `gorm:"not null"`
	RawJSON    datatypes.JSON `gorm:"not null"`
}

func (Platform) TableName() string {
	return "platforms"
}
