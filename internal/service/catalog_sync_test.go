package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"gamesync/internal/client/igdb"
	"gamesync/internal/models"
	"gamesync/internal/repository"
)

func twoGamesSharedGenre() func(call int, body string) any {
	return func(call int, body string) any {
		if call > 0 {
			return []igdb.Game{}
		}
		return []igdb.Game{
			{ID: 1, Name: "Alpha", UpdatedAt: 1700000100, Genres: []int64{10}, Platforms: []int64{20}},
			{ID: 2, Name: "Beta", UpdatedAt: 1700000200, Genres: []int64{10}, Platforms: []int64{21}},
		}
	}
}

func TestRun_EndToEnd(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.handle["games"] = twoGamesSharedGenre()
	catalog.handle["genres"] = func(call int, body string) any {
		return []igdb.Genre{{ID: 10, Name: "RPG"}}
	}
	catalog.handle["platforms"] = func(call int, body string) any {
		return []igdb.Platform{{ID: 20, Name: "PC"}, {ID: 21, Name: "Switch"}}
	}
	env := newTestEnv(t, catalog, SyncOptions{PageLimit: 500})
	ctx := context.Background()

	result, err := env.svc.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Games != 2 || result.Genres != 1 || result.Platforms != 2 {
		t.Fatalf("result = %+v", result)
	}

	counts, err := env.store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Games != 2 {
		t.Fatalf("games = %d want 2", counts.Games)
	}
	if counts.Genres != 1 {
		t.Fatalf("genres = %d want 1", counts.Genres)
	}
	if counts.Platforms != 2 {
		t.Fatalf("platforms = %d want 2", counts.Platforms)
	}
	if counts.GameGenres != 2 {
		t.Fatalf("game_genres = %d want 2", counts.GameGenres)
	}
	if counts.GamePlatforms != 2 {
		t.Fatalf("game_platforms = %d want 2", counts.GamePlatforms)
	}

	// Both association rows point at the one shared genre.
	var pairs []models.GameGenre
	if err := env.conn.Gorm.Order("game_id asc").Find(&pairs).Error; err != nil {
		t.Fatalf("find pairs: %v", err)
	}
	for _, p := range pairs {
		if p.GenreID != 10 {
			t.Fatalf("pair = %+v want genre 10", p)
		}
	}

	// No secondary refs of the remaining kinds, so no requests were issued.
	for _, endpoint := range []string{"involved_companies", "covers", "screenshots"} {
		if catalog.calls(endpoint) != 0 {
			t.Fatalf("%s requests = %d want 0", endpoint, catalog.calls(endpoint))
		}
	}
}

func TestRun_IdempotentDoubleApply(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.handle["games"] = func(call int, body string) any {
		// Every run serves the same single page regardless of filter.
		if call%2 == 1 {
			return []igdb.Game{}
		}
		return []igdb.Game{
			{ID: 1, Name: "Alpha", Genres: []int64{10}, Platforms: []int64{20}},
		}
	}
	catalog.handle["genres"] = func(call int, body string) any {
		return []igdb.Genre{{ID: 10, Name: "RPG"}}
	}
	catalog.handle["platforms"] = func(call int, body string) any {
		return []igdb.Platform{{ID: 20, Name: "PC"}}
	}
	env := newTestEnv(t, catalog, SyncOptions{PageLimit: 500})
	ctx := context.Background()

	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := env.store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second, err := env.store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if first != second {
		t.Fatalf("counts diverged: %+v vs %+v", first, second)
	}
}

func TestRun_AdvancesCheckpointToRunStart(t *testing.T) {
	catalog := newFakeCatalog()
	env := newTestEnv(t, catalog, SyncOptions{})
	ctx := context.Background()

	before := time.Now().UTC().Unix()
	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	after := time.Now().UTC().Unix()

	// First run is unfiltered.
	if body := catalog.body("games", 0); strings.Contains(body, "where updated_at") {
		t.Fatalf("first run body = %q should be unfiltered", body)
	}

	state, err := env.store.GetState(ctx, StateKeyLastSync)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state == nil || state.Value == nil {
		t.Fatalf("state = %+v", state)
	}
	unix, err := strconv.ParseInt(*state.Value, 10, 64)
	if err != nil {
		t.Fatalf("parse checkpoint %q: %v", *state.Value, err)
	}
	if unix < before || unix > after {
		t.Fatalf("checkpoint %d outside run window [%d, %d]", unix, before, after)
	}
	if state.LastSuccessAt == nil || state.LastError != nil {
		t.Fatalf("state bookkeeping = %+v", state)
	}

	// The next run filters from that checkpoint.
	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if body := catalog.body("games", 1); !strings.Contains(body, "where updated_at > "+*state.Value) {
		t.Fatalf("second run body = %q missing checkpoint filter", body)
	}
}

func TestRun_FailureKeepsCheckpoint(t *testing.T) {
	catalog := newFakeCatalog()
	fail := false
	catalog.handle["games"] = func(call int, body string) any {
		if fail {
			return http.StatusInternalServerError
		}
		return []igdb.Game{}
	}
	env := newTestEnv(t, catalog, SyncOptions{})
	ctx := context.Background()

	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	seeded, err := env.store.GetState(ctx, StateKeyLastSync)
	if err != nil || seeded == nil || seeded.Value == nil {
		t.Fatalf("seed state = %+v err = %v", seeded, err)
	}
	checkpoint := *seeded.Value

	fail = true
	if _, err := env.svc.Run(ctx); err == nil {
		t.Fatalf("expected failure")
	}

	state, err := env.store.GetState(ctx, StateKeyLastSync)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state == nil || state.Value == nil || *state.Value != checkpoint {
		t.Fatalf("checkpoint moved after failed run: %+v", state)
	}
	if state.LastError == nil || !strings.Contains(*state.LastError, "500") {
		t.Fatalf("failed attempt not recorded: %+v", state)
	}

	// The retry fetches with the same filter the failed run used.
	fail = false
	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("retry run: %v", err)
	}
	failedBody := catalog.body("games", 1)
	retryBody := catalog.body("games", 2)
	if !strings.Contains(failedBody, "where updated_at > "+checkpoint) {
		t.Fatalf("failed run body = %q", failedBody)
	}
	if !strings.Contains(retryBody, "where updated_at > "+checkpoint) {
		t.Fatalf("retry body = %q should reuse the failed run's filter", retryBody)
	}
}

// stateReadFailStore fails checkpoint reads while delegating everything else.
type stateReadFailStore struct {
	repository.StagingRepository
	fail bool
}

func (s *stateReadFailStore) GetState(ctx context.Context, key string) (*models.SyncState, error) {
	if s.fail {
		return nil, errors.New("state read unavailable")
	}
	return s.StagingRepository.GetState(ctx, key)
}

func TestWriteSyncError_SkipsWriteWhenStateReadFails(t *testing.T) {
	catalog := newFakeCatalog()
	env := newTestEnv(t, catalog, SyncOptions{})
	ctx := context.Background()

	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("seed run: %v", err)
	}
	seeded, err := env.store.GetState(ctx, StateKeyLastSync)
	if err != nil || seeded == nil || seeded.Value == nil {
		t.Fatalf("seed state = %+v err = %v", seeded, err)
	}

	env.svc.Store = &stateReadFailStore{StagingRepository: env.store, fail: true}
	env.svc.writeSyncError(ctx, errors.New("remote unreachable"))

	// An unreadable previous state must not turn into a blind upsert that
	// nulls the checkpoint.
	state, err := env.store.GetState(ctx, StateKeyLastSync)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state == nil || state.Value == nil || *state.Value != *seeded.Value {
		t.Fatalf("checkpoint changed: %+v", state)
	}
	if state.LastSuccessAt == nil || state.LastError != nil {
		t.Fatalf("bookkeeping overwritten: %+v", state)
	}
}

func TestRun_PageBudgetExhaustedStagesNothing(t *testing.T) {
	catalog := newFakeCatalog()
	endless := true
	catalog.handle["games"] = func(call int, body string) any {
		if endless {
			return []igdb.Game{{ID: int64(call + 1), Name: "Endless"}}
		}
		if call >= 2 {
			return []igdb.Game{}
		}
		return []igdb.Game{{ID: int64(call + 1), Name: "Endless"}}
	}
	env := newTestEnv(t, catalog, SyncOptions{PageLimit: 1, MaxPages: 1})
	ctx := context.Background()

	if _, err := env.svc.Run(ctx); err == nil {
		t.Fatalf("expected failure when pagination cannot drain the remote")
	}

	// Nothing staged and no checkpoint: the next run must re-cover the
	// whole window instead of skipping everything past the budget.
	counts, err := env.store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Games != 0 {
		t.Fatalf("games = %d want 0 after aborted run", counts.Games)
	}
	state, err := env.store.GetState(ctx, StateKeyLastSync)
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state != nil && state.Value != nil {
		t.Fatalf("checkpoint written after partial fetch: %+v", state)
	}
	if state == nil || state.LastError == nil || !strings.Contains(*state.LastError, "page limit") {
		t.Fatalf("failed attempt not recorded: %+v", state)
	}

	// With the budget lifted the same remote drains and syncs cleanly.
	endless = false
	env.svc.Opts.MaxPages = 0
	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("recovered run: %v", err)
	}
	counts, err = env.store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Games != 1 {
		t.Fatalf("games = %d want 1 after recovered run", counts.Games)
	}
}

func TestRun_ResolvesInvolvedCompanies(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.handle["games"] = func(call int, body string) any {
		if call > 0 {
			return []igdb.Game{}
		}
		// 77 is the join-record id, not a company id.
		return []igdb.Game{{ID: 1, Name: "Alpha", InvolvedCompanies: []int64{77}}}
	}
	catalog.handle["involved_companies"] = func(call int, body string) any {
		return []igdb.InvolvedCompany{
			{ID: 77, Game: 1, Company: igdb.Company{ID: 9, Name: "Nintendo"}},
		}
	}
	env := newTestEnv(t, catalog, SyncOptions{})
	ctx := context.Background()

	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if body := catalog.body("involved_companies", 0); !strings.Contains(body, "where id = (77);") {
		t.Fatalf("lookup body = %q", body)
	}
	var company models.Company
	if err := env.conn.Gorm.First(&company).Error; err != nil {
		t.Fatalf("company row: %v", err)
	}
	if company.ID != 9 || company.Name != "Nintendo" {
		t.Fatalf("company = %+v want the resolved id, not the join id", company)
	}
	var pair models.GameCompany
	if err := env.conn.Gorm.First(&pair).Error; err != nil {
		t.Fatalf("association row: %v", err)
	}
	if pair.GameID != 1 || pair.CompanyID != 9 {
		t.Fatalf("pair = %+v", pair)
	}
}

func TestRun_BackfillsCoversAndScreenshots(t *testing.T) {
	catalog := newFakeCatalog()
	catalog.handle["games"] = func(call int, body string) any {
		if call > 0 {
			return []igdb.Game{}
		}
		return []igdb.Game{{ID: 1, Name: "Alpha", Cover: 5, Screenshots: []int64{6, 7}}}
	}
	catalog.handle["covers"] = func(call int, body string) any {
		return []igdb.Image{{ID: 5, URL: "//images/co5.jpg", Width: 264, Height: 352}}
	}
	catalog.handle["screenshots"] = func(call int, body string) any {
		return []igdb.Image{
			{ID: 6, URL: "//images/sc6.jpg", Width: 1280, Height: 720},
			{ID: 7, URL: "//images/sc7.jpg", Width: 1280, Height: 720},
		}
	}
	env := newTestEnv(t, catalog, SyncOptions{})
	ctx := context.Background()

	if _, err := env.svc.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	counts, err := env.store.Counts(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts.Covers != 1 || counts.Screenshots != 2 || counts.GameScreenshots != 2 {
		t.Fatalf("counts = %+v", counts)
	}
	games, err := env.store.ListGamesByIDs(ctx, []int64{1})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(games) != 1 || games[0].CoverID == nil || *games[0].CoverID != 5 {
		t.Fatalf("games = %+v want cover id 5", games)
	}
}

func TestCollectRefs_DedupesAcrossGames(t *testing.T) {
	games := []igdb.Game{
		{ID: 1, Genres: []int64{10, 11}, Platforms: []int64{20}, Cover: 5},
		{ID: 2, Genres: []int64{10}, Platforms: []int64{20, 21}, Cover: 5},
	}
	refs := collectRefs(games)
	if len(refs.genres) != 2 || refs.genres[0] != 10 || refs.genres[1] != 11 {
		t.Fatalf("genres = %v", refs.genres)
	}
	if len(refs.platforms) != 2 {
		t.Fatalf("platforms = %v", refs.platforms)
	}
	if len(refs.covers) != 1 || refs.covers[0] != 5 {
		t.Fatalf("covers = %v", refs.covers)
	}
}

func TestLastSync_UnparseableValueMeansFullFetch(t *testing.T) {
	catalog := newFakeCatalog()
	env := newTestEnv(t, catalog, SyncOptions{})
	ctx := context.Background()

	bad := "not-a-timestamp"
	if err := env.store.SaveState(ctx, &models.SyncState{Key: StateKeyLastSync, Value: &bad}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	since, err := env.svc.lastSync(ctx)
	if err != nil {
		t.Fatalf("lastSync: %v", err)
	}
	if since != nil {
		t.Fatalf("since = %v want nil", since)
	}
}
