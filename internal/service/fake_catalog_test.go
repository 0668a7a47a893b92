package service

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"gamesync/internal/client/igdb"
	"gamesync/internal/config"
	"gamesync/internal/db"
	"gamesync/internal/repository"
	gormrepository "gamesync/internal/repository/gorm"
)

// fakeCatalog serves Apicalypse endpoints from per-endpoint handler funcs and
// records every request body for assertions. A handler returning an int sends
// that HTTP status with a plain error body; a nil handler serves an empty
// list.
type fakeCatalog struct {
	mu     sync.Mutex
	bodies map[string][]string
	handle map[string]func(call int, body string) any
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		bodies: map[string][]string{},
		handle: map[string]func(call int, body string) any{},
	}
}

func (f *fakeCatalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/")
	raw, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	call := len(f.bodies[endpoint])
	f.bodies[endpoint] = append(f.bodies[endpoint], string(raw))
	fn := f.handle[endpoint]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fn == nil {
		io.WriteString(w, "[]")
		return
	}
	resp := fn(call, string(raw))
	if status, ok := resp.(int); ok {
		w.WriteHeader(status)
		io.WriteString(w, "remote failure")
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func (f *fakeCatalog) calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bodies[endpoint])
}

func (f *fakeCatalog) body(endpoint string, i int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.bodies[endpoint]) {
		return ""
	}
	return f.bodies[endpoint][i]
}

type testEnv struct {
	svc   *SyncService
	store repository.StagingRepository
	conn  *db.DB
}

func newTestEnv(t *testing.T, catalog *fakeCatalog, opts SyncOptions) testEnv {
	t.Helper()

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"access_token":"test-token"}`)
	}))
	t.Cleanup(tokenSrv.Close)
	catSrv := httptest.NewServer(catalog)
	t.Cleanup(catSrv.Close)

	conn, err := db.Open(config.StoreConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(conn) })

	store := gormrepository.New(conn.Gorm)
	svc := &SyncService{
		Store:  store,
		Auth:   igdb.NewAuthenticator(nil, tokenSrv.URL, "cid", "secret"),
		Client: igdb.NewClient(nil, catSrv.URL, "cid", 0),
		Logger: zap.NewNop(),
		Opts:   opts,
	}
	return testEnv{svc: svc, store: store, conn: conn}
}
