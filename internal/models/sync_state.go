package models

import (
	"time"

	"gorm.io/datatypes"
)

// SyncState is the singleton checkpoint row per state key. Value holds the
// checkpoint payload (unix seconds as a string for the last-sync key); the
// remaining columns record the outcome of the most recent attempt.
type SyncState struct {
	Key           string `gorm:"primaryKey"`
	Value         *string
	LastSuccessAt *time.Time
	LastAttemptAt *time.Time
	LastError     *string
	StatsJSON     datatypes.JSON
}

func (SyncState) TableName() string {
	return "sync_state"
}
