package service

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"gamesync/internal/client/igdb"
	"gamesync/internal/models"
	"gamesync/internal/repository"
)

// StateKeyLastSync is the checkpoint key for incremental game fetches. Its
// value is the unix-seconds start time of the last successful run.
const StateKeyLastSync = "last_sync_timestamp"

type SyncService struct {
	Store  repository.StagingRepository
	Auth   *igdb.Authenticator
	Client *igdb.Client
	Logger *zap.Logger
	Opts   SyncOptions
}

type SyncOptions struct {
	PageLimit int
	MaxPages  int
	ChunkSize int
}

type SyncResult struct {
	Pages           int    `json:"pages"`
	Games           int    `json:"games"`
	Genres          int    `json:"genres"`
	Platforms       int    `json:"platforms"`
	Companies       int    `json:"companies"`
	Covers          int    `json:"covers"`
	Screenshots     int    `json:"screenshots"`
	GameGenres      int    `json:"game_genres"`
	GamePlatforms   int    `json:"game_platforms"`
	GameCompanies   int    `json:"game_companies"`
	GameScreenshots int    `json:"game_screenshots"`
	Since           *int64 `json:"since,omitempty"`
	CheckpointUnix  int64  `json:"checkpoint_unix"`
}

// Run executes one sync pass: checkpoint → token → paginated game fetch →
// chunked secondary lookups → one transaction upserting everything and
// advancing the checkpoint to the run start time. Any failure aborts without
// touching the checkpoint, so the next run re-covers the same window.
func (s *SyncService) Run(ctx context.Context) (SyncResult, error) {
	started := time.Now().UTC()
	result := SyncResult{}

	since, err := s.lastSync(ctx)
	if err != nil {
		return result, err
	}
	if since != nil {
		unix := since.Unix()
		result.Since = &unix
	}

	token, err := s.Auth.Token(ctx)
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}
	s.Client.SetToken(token)

	games, pages, err := s.fetchAllGames(ctx, since)
	result.Pages = pages
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}

	refs := collectRefs(games)
	chunk := s.Opts.ChunkSize

	genres, err := fetchByIDs(ctx, refs.genres, chunk, []string{"name"}, s.Client.Genres)
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}
	platforms, err := fetchByIDs(ctx, refs.platforms, chunk, []string{"name"}, s.Client.Platforms)
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}
	// Involved-company records are join rows; the nested company object is
	// what actually lands in the companies table.
	involved, err := fetchByIDs(ctx, refs.involved, chunk, []string{"game", "company.name"}, s.Client.InvolvedCompanies)
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}
	covers, err := fetchByIDs(ctx, refs.covers, chunk, []string{"url", "width", "height"}, s.Client.Covers)
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}
	screenshots, err := fetchByIDs(ctx, refs.screenshots, chunk, []string{"url", "width", "height"}, s.Client.Screenshots)
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}

	batch := buildBatch(games, genres, platforms, involved, covers, screenshots, started)

	checkpoint := strconv.FormatInt(started.Unix(), 10)
	err = s.Store.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Store.UpsertGenresTx(ctx, tx, batch.genres); err != nil {
			return err
		}
		if err := s.Store.UpsertPlatformsTx(ctx, tx, batch.platforms); err != nil {
			return err
		}
		if err := s.Store.UpsertCompaniesTx(ctx, tx, batch.companies); err != nil {
			return err
		}
		if err := s.Store.UpsertCoversTx(ctx, tx, batch.covers); err != nil {
			return err
		}
		if err := s.Store.UpsertScreenshotsTx(ctx, tx, batch.screenshots); err != nil {
			return err
		}
		if err := s.Store.UpsertGamesTx(ctx, tx, batch.games); err != nil {
			return err
		}
		if err := s.Store.UpsertGameGenresTx(ctx, tx, batch.gameGenres); err != nil {
			return err
		}
		if err := s.Store.UpsertGamePlatformsTx(ctx, tx, batch.gamePlatforms); err != nil {
			return err
		}
		if err := s.Store.UpsertGameCompaniesTx(ctx, tx, batch.gameCompanies); err != nil {
			return err
		}
		if err := s.Store.UpsertGameScreenshotsTx(ctx, tx, batch.gameScreenshots); err != nil {
			return err
		}
		state := &models.SyncState{
			Key:           StateKeyLastSync,
			Value:         &checkpoint,
			LastSuccessAt: &started,
			LastAttemptAt: &started,
			LastError:     nil,
			StatsJSON: statsJSON(map[string]int{
				"games":       len(batch.games),
				"genres":      len(batch.genres),
				"platforms":   len(batch.platforms),
				"companies":   len(batch.companies),
				"covers":      len(batch.covers),
				"screenshots": len(batch.screenshots),
			}),
		}
		return s.Store.SaveStateTx(ctx, tx, state)
	})
	if err != nil {
		s.writeSyncError(ctx, err)
		return result, err
	}

	result.Games = len(batch.games)
	result.Genres = len(batch.genres)
	result.Platforms = len(batch.platforms)
	result.Companies = len(batch.companies)
	result.Covers = len(batch.covers)
	result.Screenshots = len(batch.screenshots)
	result.GameGenres = len(batch.gameGenres)
	result.GamePlatforms = len(batch.gamePlatforms)
	result.GameCompanies = len(batch.gameCompanies)
	result.GameScreenshots = len(batch.gameScreenshots)
	result.CheckpointUnix = started.Unix()

	if s.Logger != nil {
		s.Logger.Info("sync pass complete",
			zap.Int("pages", result.Pages),
			zap.Int("games", result.Games),
			zap.Int64("checkpoint", result.CheckpointUnix),
		)
	}
	return result, nil
}

// lastSync resolves the checkpoint; a missing or unparseable value means an
// unfiltered full fetch.
func (s *SyncService) lastSync(ctx context.Context) (*time.Time, error) {
	state, err := s.Store.GetState(ctx, StateKeyLastSync)
	if err != nil {
		return nil, err
	}
	if state == nil || state.Value == nil {
		return nil, nil
	}
	unix, err := strconv.ParseInt(*state.Value, 10, 64)
	if err != nil {
		return nil, nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t, nil
}

// writeSyncError records a failed attempt on the state row without moving the
// checkpoint value, so the next run retries the same window.
func (s *SyncService) writeSyncError(ctx context.Context, runErr error) {
	if s.Logger != nil {
		s.Logger.Warn("sync pass failed", zap.Error(runErr))
	}
	now := time.Now().UTC()
	msg := runErr.Error()
	state := &models.SyncState{
		Key:           StateKeyLastSync,
		LastAttemptAt: &now,
		LastError:     &msg,
	}
	prev, err := s.Store.GetState(ctx, StateKeyLastSync)
	if err != nil {
		// Upserting blind here could null a valid checkpoint, so keep the
		// row as-is when the read fails.
		if s.Logger != nil {
			s.Logger.Warn("skipping failure bookkeeping, state read failed", zap.Error(err))
		}
		return
	}
	if prev != nil {
		state.Value = prev.Value
		state.LastSuccessAt = prev.LastSuccessAt
	}
	_ = s.Store.SaveState(ctx, state)
}

type gameRefs struct {
	genres      []int64
	platforms   []int64
	involved    []int64
	covers      []int64
	screenshots []int64
}

// collectRefs gathers the union of referenced secondary-entity ids across all
// fetched games, deduplicated in first-seen order.
func collectRefs(games []igdb.Game) gameRefs {
	genres := newIDSet()
	platforms := newIDSet()
	involved := newIDSet()
	covers := newIDSet()
	screenshots := newIDSet()
	for _, g := range games {
		for _, id := range g.Genres {
			genres.add(id)
		}
		for _, id := range g.Platforms {
			platforms.add(id)
		}
		for _, id := range g.InvolvedCompanies {
			involved.add(id)
		}
		covers.add(g.Cover)
		for _, id := range g.Screenshots {
			screenshots.add(id)
		}
	}
	return gameRefs{
		genres:      genres.order,
		platforms:   platforms.order,
		involved:    involved.order,
		covers:      covers.order,
		screenshots: screenshots.order,
	}
}

type idSet struct {
	order []int64
	seen  map[int64]struct{}
}

func newIDSet() *idSet {
	return &idSet{seen: map[int64]struct{}{}}
}

func (s *idSet) add(id int64) {
	if id == 0 {
		return
	}
	if _, ok := s.seen[id]; ok {
		return
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
}

type stagingBatch struct {
	games           []models.Game
	genres          []models.Genre
	platforms       []models.Platform
	companies       []models.Company
	covers          []models.Cover
	screenshots     []models.Screenshot
	gameGenres      []models.GameGenre
	gamePlatforms   []models.GamePlatform
	gameCompanies   []models.GameCompany
	gameScreenshots []models.GameScreenshot
}

// buildBatch maps remote payloads to staging rows. Genre, platform and
// screenshot associations come straight off the game's reference lists;
// company associations only exist once the join record resolved to a real
// company id.
func buildBatch(games []igdb.Game, genres []igdb.Genre, platforms []igdb.Platform, involved []igdb.InvolvedCompany, covers, screenshots []igdb.Image, now time.Time) stagingBatch {
	batch := stagingBatch{}

	for _, g := range games {
		batch.games = append(batch.games, models.Game{
			ID:                g.ID,
			Name:              g.Name,
			Summary:           strPtr(g.Summary),
			FirstReleaseDate:  unixTimePtr(g.FirstReleaseDate),
			Rating:            floatPtr(g.Rating),
			RatingCount:       intPtr(g.RatingCount),
			CoverID:           int64Ptr(g.Cover),
			ExternalUpdatedAt: unixTimePtr(g.UpdatedAt),
			LastSeenAt:        now,
			RawJSON:           mustJSON(g),
		})
		for _, id := range g.Genres {
			batch.gameGenres = append(batch.gameGenres, models.GameGenre{GameID: g.ID, GenreID: id})
		}
		for _, id := range g.Platforms {
			batch.gamePlatforms = append(batch.gamePlatforms, models.GamePlatform{GameID: g.ID, PlatformID: id})
		}
		for _, id := range g.Screenshots {
			batch.gameScreenshots = append(batch.gameScreenshots, models.GameScreenshot{GameID: g.ID, ScreenshotID: id})
		}
	}

	for _, g := range genres {
		batch.genres = append(batch.genres, models.Genre{
			ID:         g.ID,
			Name:       g.Name,
			LastSeenAt: now,
			RawJSON:    mustJSON(g),
		})
	}
	for _, p := range platforms {
		batch.platforms = append(batch.platforms, models.Platform{
			ID:         p.ID,
			Name:       p.Name,
			LastSeenAt: now,
			RawJSON:    mustJSON(p),
		})
	}

	companySeen := map[int64]struct{}{}
	for _, ic := range involved {
		if ic.Game == 0 || ic.Company.ID == 0 {
			continue
		}
		if _, ok := companySeen[ic.Company.ID]; !ok {
			companySeen[ic.Company.ID] = struct{}{}
			batch.companies = append(batch.companies, models.Company{
				ID:         ic.Company.ID,
				Name:       ic.Company.Name,
				LastSeenAt: now,
				RawJSON:    mustJSON(ic.Company),
			})
		}
		batch.gameCompanies = append(batch.gameCompanies, models.GameCompany{
			GameID:    ic.Game,
			CompanyID: ic.Company.ID,
		})
	}

	for _, img := range covers {
		batch.covers = append(batch.covers, models.Cover{
			ID:         img.ID,
			URL:        img.URL,
			Width:      intPtr(img.Width),
			Height:     intPtr(img.Height),
			LastSeenAt: now,
			RawJSON:    mustJSON(img),
		})
	}
	for _, img := range screenshots {
		batch.screenshots = append(batch.screenshots, models.Screenshot{
			ID:         img.ID,
			URL:        img.URL,
			Width:      intPtr(img.Width),
			Height:     intPtr(img.Height),
			LastSeenAt: now,
			RawJSON:    mustJSON(img),
		})
	}

	return batch
}

func statsJSON(stats map[string]int) datatypes.JSON {
	payload, err := json.Marshal(stats)
	if err != nil {
		return datatypes.JSON([]byte("null"))
	}
	return datatypes.JSON(payload)
}

func mustJSON(v any) datatypes.JSON {
	payload, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON([]byte("{}"))
	}
	return datatypes.JSON(payload)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

func int64Ptr(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func floatPtr(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func unixTimePtr(unix int64) *time.Time {
	if unix == 0 {
		return nil
	}
	t := time.Unix(unix, 0).UTC()
	return &t
}
