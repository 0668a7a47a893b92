package models

import (
	"time"

	"gorm.io/datatypes"
)

// Company rows are resolved from the nested company object of an
// involved-company join record, never from the bare join id.
type Company struct {
	ID         int64          `gorm:"primaryKey"`
	Name       string         `gorm:"not null"`
	LastSeenAt time.Time      `gorm:"not null"`
	RawJSON    datatypes.JSON `gorm:"not null"`
}

func (Company) TableName() string {
	return "companies"
}
