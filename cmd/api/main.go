package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appanalysis "github.com/bryanwahyu/jailbreak-firewall/internal/application/analysis"
	"github.com/bryanwahyu/jailbreak-firewall/internal/config"
	domain "github.com/bryanwahyu/jailbreak-firewall/internal/domain/analysis"
	"github.com/bryanwahyu/jailbreak-firewall/internal/domain/scoring"
	aiopenai "github.com/bryanwahyu/jailbreak-firewall/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/jailbreak-firewall/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/jailbreak-firewall/internal/infra/db/postgres"
	sqlitep "github.com/bryanwahyu/jailbreak-firewall/internal/infra/db/sqlite"
	"github.com/bryanwahyu/jailbreak-firewall/internal/infra/engine"
	"github.com/bryanwahyu/jailbreak-firewall/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/jailbreak-firewall/internal/infra/storage"
	"github.com/bryanwahyu/jailbreak-firewall/internal/middleware"
)

// store is what every driver package offers on top of the domain port.
type store interface {
	domain.Repository
	EnsureSchema(ctx context.Context) error
}

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("config load error")
	}
	setupLogging(cfg)

	ctx := context.Background()

	// connect database
	db, repo, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("database connect error")
	}
	defer db.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("schema init error")
	}

	// init scorer
	scorer, err := newScorer(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.Engine.Provider).Msg("scorer init error")
	}

	// init minio (optional). A nil *Store must not reach the service as a non-nil interface.
	var archive domain.Archive
	if cfg.Minio.Enabled {
		st, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.Prefix,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("minio init error")
		}
		archive = st
	}

	// init service
	svc := appanalysis.NewService(repo, scorer, archive)

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	if p, ok := scorer.(scoring.Pinger); ok {
		checkers["engine"] = &middleware.EngineHealthChecker{Engine: p}
	}

	var limiter *middleware.ClientLimiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewClientLimiter(cfg.Server.RateLimit, cfg.Server.RefillRate)
		defer limiter.Stop()
	}

	// init router
	mux := chi.NewRouter()
	mux.Mount("/", httpserver.NewRouter(svc, httpserver.Options{
		Metrics:        middleware.NewMetrics(),
		HealthCheckers: checkers,
		Limiter:        limiter,
	}))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	// a check waits on the engine before it can answer
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Engine.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Info().
			Str("addr", addr).
			Str("driver", cfg.Database.Driver).
			Str("engine", scorer.Endpoint()).
			Bool("archive", archive != nil).
			Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info().Msg("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), cfg.Engine.Timeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openStore(ctx context.Context, cfg *config.Config) (*sql.DB, store, error) {
	dsn := cfg.DatabaseDSN()
	switch cfg.Database.Driver {
	case "mysql":
		db, err := mysqlp.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, mysqlp.NewSecurityLogRepository(db), nil
	case "postgres":
		db, err := pgp.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, pgp.NewSecurityLogRepository(db), nil
	default:
		db, err := sqlitep.Open(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return db, sqlitep.NewSecurityLogRepository(db), nil
	}
}

func newScorer(cfg *config.Config) (scoring.Client, error) {
	if cfg.Engine.Provider == "openai" {
		return aiopenai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model, cfg.OpenAI.BaseURL, cfg.Engine.Timeout), nil
	}
	return engine.NewClient(cfg.Engine.URL, cfg.Engine.Timeout, nil)
}
