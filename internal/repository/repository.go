package repository

import (
	"context"

	"gorm.io/gorm"

	"gamesync/internal/models"
)

// StagingRepository is the staging-store surface used by the sync service and
// the admin handlers. Upsert*Tx methods run inside the transaction handed to
// the InTx callback, so one sync pass commits exactly once.
type StagingRepository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	UpsertGenresTx(ctx context.Context, tx *gorm.DB, items []models.Genre) error
	UpsertPlatformsTx(ctx context.Context, tx *gorm.DB, items []models.Platform) error
	UpsertCompaniesTx(ctx context.Context, tx *gorm.DB, items []models.Company) error
	UpsertCoversTx(ctx context.Context, tx *gorm.DB, items []models.Cover) error
	UpsertScreenshotsTx(ctx context.Context, tx *gorm.DB, items []models.Screenshot) error
	UpsertGamesTx(ctx context.Context, tx *gorm.DB, items []models.Game) error
	UpsertGameGenresTx(ctx context.Context, tx *gorm.DB, items []models.GameGenre) error
	UpsertGamePlatformsTx(ctx context.Context, tx *gorm.DB, items []models.GamePlatform) error
	UpsertGameCompaniesTx(ctx context.Context, tx *gorm.DB, items []models.GameCompany) error
	UpsertGameScreenshotsTx(ctx context.Context, tx *gorm.DB, items []models.GameScreenshot) error

	GetState(ctx context.Context, key string) (*models.SyncState, error)
	SaveStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error
	SaveState(ctx context.Context, state *models.SyncState) error
	ListStates(ctx context.Context) ([]models.SyncState, error)

	Counts(ctx context.Context) (Counts, error)
	ListGamesByIDs(ctx context.Context, ids []int64) ([]models.Game, error)
}

// Counts reports staged row totals per table, for the admin surface.
type Counts struct {
	Games           int64 `json:"games"`
	Genres          int64 `json:"genres"`
	Platforms       int64 `json:"platforms"`
	Companies       int64 `json:"companies"`
	Covers          int64 `json:"covers"`
	Screenshots     int64 `json:"screenshots"`
	GameGenres      int64 `json:"game_genres"`
	GamePlatforms   int64 `json:"game_platforms"`
	GameCompanies   int64 `json:"game_companies"`
	GameScreenshots int64 `json:"game_screenshots"`
}
