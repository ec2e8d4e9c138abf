// Command outreach runs the lead outreach daemon: the control loop that
// discovers, drafts and dispatches leads, plus the action API it shares a
// process with.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"outreach_backend/internal/actions"
	"outreach_backend/internal/draft"
	"outreach_backend/internal/enrich"
	"outreach_backend/internal/orchestrator"
	"outreach_backend/internal/review"
	"outreach_backend/internal/scrape"
	"outreach_backend/internal/store"
	"outreach_backend/migrations"
	"outreach_backend/platform/config"
	"outreach_backend/platform/db"
	"outreach_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := withRetry(ctx, log, "run migrations", func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	pool, err := openPool(ctx, cfg, log)
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := store.New(pool)

	completer := draft.NewGeminiCompleter(cfg.GetGeminiModel(), cfg.GetGenRequestTimeout())
	generator := draft.NewGenerator(cfg, completer, repo, log)

	scraper := scrape.NewClient(cfg, log)
	enricher := enrich.NewHarvester(log)
	reviewer := review.NewClient(cfg, log)

	if !cfg.IsReviewChannelEnabled() {
		log.Warn("review channel not configured, dispatch will fail until it is")
	}

	engine := orchestrator.NewEngine(cfg, cfg, cfg, repo, scraper, enricher, generator, reviewer, log)

	router := newRouter(cfg)
	actions.NewModule(repo, engine, log).RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("control loop starting", "cycle_interval", cfg.GetCycleInterval().String())
		return engine.Run(gctx)
	})

	g.Go(func() error {
		log.Info("action api listening", "addr", cfg.GetHTTPAddr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("daemon stopped", "error", err)
		os.Exit(1)
	}
	log.Info("daemon stopped")
}

func newRouter(cfg config.HTTPConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsCfg))

	return router
}

func openPool(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	err := withRetry(ctx, log, "connect to database", func() error {
		var err error
		pool, err = db.NewPool(ctx, cfg)
		return err
	})
	return pool, err
}

// withRetry runs fn up to five times with doubling backoff. Startup
// dependencies like Postgres are often a beat behind in container
// orchestration, so failing fast on the first attempt is unhelpful.
func withRetry(ctx context.Context, log *logger.Logger, op string, fn func() error) error {
	backoff := 2 * time.Second
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		log.Warn("startup step failed, retrying", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
