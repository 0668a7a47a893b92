package gormrepository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gamesync/internal/models"
	"gamesync/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.StagingRepository = (*Store)(nil)

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) UpsertGenresTx(ctx context.Context, tx *gorm.DB, items []models.Genre) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"last_seen_at",
			"raw_json",
		}),
	}), items, 200)
}

func (s *Store) UpsertPlatformsTx(ctx context.Context, tx *gorm.DB, items []models.Platform) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"last_seen_at",
			"raw_json",
		}),
	}), items, 200)
}

func (s *Store) UpsertCompaniesTx(ctx context.Context, tx *gorm.DB, items []models.Company) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"last_seen_at",
			"raw_json",
		}),
	}), items, 200)
}

func (s *Store) UpsertCoversTx(ctx context.Context, tx *gorm.DB, items []models.Cover) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"url",
			"width",
			"height",
			"last_seen_at",
			"raw_json",
		}),
	}), items, 200)
}

func (s *Store) UpsertScreenshotsTx(ctx context.Context, tx *gorm.DB, items []models.Screenshot) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"url",
			"width",
			"height",
			"last_seen_at",
			"raw_json",
		}),
	}), items, 200)
}

func (s *Store) UpsertGamesTx(ctx context.Context, tx *gorm.DB, items []models.Game) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"summary",
			"first_release_date",
			"rating",
			"rating_count",
			"cover_id",
			"external_updated_at",
			"last_seen_at",
			"raw_json",
		}),
	}), items, 200)
}

func (s *Store) UpsertGameGenresTx(ctx context.Context, tx *gorm.DB, items []models.GameGenre) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "genre_id"}},
		DoNothing: true,
	}), items, 500)
}

func (s *Store) UpsertGamePlatformsTx(ctx context.Context, tx *gorm.DB, items []models.GamePlatform) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "platform_id"}},
		DoNothing: true,
	}), items, 500)
}

func (s *Store) UpsertGameCompaniesTx(ctx context.Context, tx *gorm.DB, items []models.GameCompany) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "company_id"}},
		DoNothing: true,
	}), items, 500)
}

func (s *Store) UpsertGameScreenshotsTx(ctx context.Context, tx *gorm.DB, items []models.GameScreenshot) error {
	if len(items) == 0 {
		return nil
	}
	return createInBatches(tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "game_id"}, {Name: "screenshot_id"}},
		DoNothing: true,
	}), items, 500)
}

func (s *Store) GetState(ctx context.Context, key string) (*models.SyncState, error) {
	var state models.SyncState
	err := s.db.WithContext(ctx).First(&state, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *Store) SaveStateTx(ctx context.Context, tx *gorm.DB, state *models.SyncState) error {
	if state == nil {
		return nil
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"last_success_at",
			"last_attempt_at",
			"last_error",
			"stats_json",
		}),
	}).Create(state).Error
}

// SaveState upserts a state row outside any pass transaction. Used to record
// a failed attempt without touching the checkpoint value.
func (s *Store) SaveState(ctx context.Context, state *models.SyncState) error {
	return s.InTx(ctx, func(tx *gorm.DB) error {
		return s.SaveStateTx(ctx, tx, state)
	})
}

func (s *Store) ListStates(ctx context.Context) ([]models.SyncState, error) {
	var states []models.SyncState
	if err := s.db.WithContext(ctx).Order("key asc").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}

func (s *Store) Counts(ctx context.Context) (repository.Counts, error) {
	var out repository.Counts
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.Game{}, &out.Games},
		{&models.Genre{}, &out.Genres},
		{&models.Platform{}, &out.Platforms},
		{&models.Company{}, &out.Companies},
		{&models.Cover{}, &out.Covers},
		{&models.Screenshot{}, &out.Screenshots},
		{&models.GameGenre{}, &out.GameGenres},
		{&models.GamePlatform{}, &out.GamePlatforms},
		{&models.GameCompany{}, &out.GameCompanies},
		{&models.GameScreenshot{}, &out.GameScreenshots},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Count(c.dst).Error; err != nil {
			return repository.Counts{}, err
		}
	}
	return out, nil
}

func (s *Store) ListGamesByIDs(ctx context.Context, ids []int64) ([]models.Game, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []models.Game
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func createInBatches[T any](db *gorm.DB, items []T, batchSize int) error {
	if len(items) == 0 {
		return nil
	}
	return db.CreateInBatches(items, batchSize).Error
}
