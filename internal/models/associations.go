package models

// Junction rows are pure set members: the composite key is the whole row and
// inserting an existing pair is a no-op.

type GameGenre struct {
	GameID  int64 `gorm:"primaryKey;autoIncrement:false"`
	GenreID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (GameGenre) TableName() string {
	return "game_genres"
}

type GamePlatform struct {
	GameID     int64 `gorm:"primaryKey;autoIncrement:false"`
	PlatformID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (GamePlatform) TableName() string {
	return "game_platforms"
}

type GameCompany struct {
	GameID    int64 `gorm:"primaryKey;autoIncrement:false"`
	CompanyID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (GameCompany) TableName() string {
	return "game_companies"
}

type GameScreenshot struct {
	GameID       int64 `gorm:"primaryKey;autoIncrement:false"`
	ScreenshotID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (GameScreenshot) TableName() string {
	return "game_screenshots"
}
