package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"gamesync/internal/client/igdb"
	"gamesync/internal/config"
	cronrunner "gamesync/internal/cron"
	"gamesync/internal/db"
	"gamesync/internal/handler"
	"gamesync/internal/logger"
	gormrepository "gamesync/internal/repository/gorm"
	"gamesync/internal/service"
)

func main() {
	// Credentials usually live in a local .env file; a missing file is fine.
	_ = godotenv.Load()

	cfgPath := os.Getenv("GS_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}
	envOnly := false
	if _, err := os.Stat(cfgPath); err != nil {
		envOnly = true
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Fails before any network or disk activity, listing every missing field.
	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	dbConn, err := db.Open(cfg.Store)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.AutoMigrate(dbConn); err != nil {
		log.Fatal("auto-migrate failed", zap.Error(err))
	}

	auth := igdb.NewAuthenticator(
		&http.Client{Timeout: cfg.IGDB.AuthTimeout},
		cfg.IGDB.TokenURL, cfg.IGDB.ClientID, cfg.IGDB.ClientSecret,
	)
	client := igdb.NewClient(
		&http.Client{Timeout: cfg.IGDB.Timeout},
		cfg.IGDB.BaseURL, cfg.IGDB.ClientID, cfg.IGDB.MinRequestInterval,
	)
	store := gormrepository.New(dbConn.Gorm)
	syncSvc := &service.SyncService{
		Store:  store,
		Auth:   auth,
		Client: client,
		Logger: log,
		Opts: service.SyncOptions{
			PageLimit: cfg.Sync.PageLimit,
			MaxPages:  cfg.Sync.MaxPages,
			ChunkSize: cfg.Sync.ChunkSize,
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runOnce := func(ctx context.Context) error {
		result, err := syncSvc.Run(ctx)
		if err != nil {
			log.Error("sync run failed", zap.Error(err))
			return err
		}
		log.Info("sync run finished",
			zap.Int("pages", result.Pages),
			zap.Int("games", result.Games),
			zap.Int("genres", result.Genres),
			zap.Int("platforms", result.Platforms),
			zap.Int("companies", result.Companies),
			zap.Int("covers", result.Covers),
			zap.Int("screenshots", result.Screenshots),
			zap.Int64("checkpoint", result.CheckpointUnix),
		)
		return nil
	}

	// One-shot mode: no schedule, no admin server, exit after a single pass.
	if !cfg.Cron.Enabled && !cfg.Server.Enabled {
		if err := runOnce(ctx); err != nil {
			os.Exit(1)
		}
		return
	}

	if cfg.Sync.RunOnStart {
		_ = runOnce(ctx)
	}

	var runner *cronrunner.Runner
	if cfg.Cron.Enabled {
		runner = cronrunner.New(log, ctx)
		if _, err := runner.Add(cfg.Cron.Schedule, func(ctx context.Context) {
			_ = runOnce(ctx)
		}); err != nil {
			log.Fatal("invalid cron schedule", zap.Error(err))
		}
		runner.Start()
		defer runner.Stop()
	}

	var srv *http.Server
	if cfg.Server.Enabled {
		if strings.EqualFold(cfg.App.Env, "dev") {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
		engine := gin.New()
		engine.Use(gin.Recovery())

		healthHandler := &handler.HealthHandler{DB: dbConn}
		healthHandler.Register(engine)
		syncHandler := &handler.SyncHandler{Service: syncSvc, Repo: store, Logger: log}
		syncHandler.Register(engine)

		srv = &http.Server{Addr: cfg.Server.HTTPAddr, Handler: engine}
		go func() {
			log.Info("admin server started", zap.String("addr", cfg.Server.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("admin server failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	log.Info("shutting down")
}
