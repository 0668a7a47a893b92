package db

import (
	"gamesync/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(
		&models.Genre{},
		&models.Platform{},
		&models.Company{},
		&models.Cover{},
		&models.Screenshot{},
		&models.Game{},
		&models.GameGenre{},
		&models.GamePlatform{},
		&models.GameCompany{},
		&models.GameScreenshot{},
		&models.SyncState{},
	)
}
