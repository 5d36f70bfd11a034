// @title                       Civic Reports API
// @version                     1.0
// @description                 Citizens report urban problems; staff triage them.
// @BasePath                    /
// @schemes                     http
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 "Bearer <JWT>"
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

	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/api"
	"github.com/civicwatch/civic-reports/internal/api/handler"
	"github.com/civicwatch/civic-reports/internal/core/ports"
	"github.com/civicwatch/civic-reports/internal/core/service"
	"github.com/civicwatch/civic-reports/internal/infrastructure/db/memory"
	mongodb "github.com/civicwatch/civic-reports/internal/infrastructure/db/mongo"
	"github.com/civicwatch/civic-reports/internal/infrastructure/db/postgres"
	redisdb "github.com/civicwatch/civic-reports/internal/infrastructure/db/redis"
	"github.com/civicwatch/civic-reports/internal/infrastructure/queue"
	"github.com/civicwatch/civic-reports/internal/pkg/config"
	"github.com/civicwatch/civic-reports/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// stores bundles the repositories selected by STORE_DRIVER.
type stores struct {
	users    ports.UserRepository
	issues   ports.IssueRepository
	events   ports.IssueEventRepository
	checkers []handler.Checker
	close    func()
}

func main() {
	cfg := config.MustLoad()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "civic-api",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokenOpts := []service.TokenOption{service.WithTokenLogger(log)}
	if cfg.Auth.RevocationEnabled {
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		tokenOpts = append(tokenOpts, service.WithDenylist(redisdb.NewDenylist(client)))
		st.checkers = append(st.checkers, redisdb.NewHealthChecker(client))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token revocation enabled")
	}

	tokens := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, tokenOpts...)
	authSvc := service.NewAuthService(st.users, tokens, log,
		service.WithSelfAssignedRole(cfg.Auth.AllowSelfRole))

	if cfg.Auth.SeedDemoUsers {
		if _, err := authSvc.Seed(ctx, service.DemoAccounts); err != nil {
			return err
		}
	}

	// Audit workers outlive the request context so queued events drain
	// until shutdown begins.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(st.events, log), log)
	dispatcher.Start(workerCtx)

	e := api.NewRouter(api.Deps{
		Log:         log,
		Auth:        authSvc,
		Identity:    authSvc,
		Users:       service.NewUserService(st.users, log),
		Issues:      service.NewIssueService(st.issues, dispatcher, log),
		Checkers:    st.checkers,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		BodyLimit:   cfg.HTTP.BodyLimit,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			stopWorkers()
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	stopWorkers()
	dispatcher.Wait()
	log.Info().Msg("server exited")
	return nil
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.Pg.DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.AutoMigrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("connected to postgres")
		return &stores{
			users:    postgres.NewUserRepository(pool),
			issues:   postgres.NewIssueRepository(pool),
			events:   postgres.NewIssueEventRepository(pool),
			checkers: []handler.Checker{postgres.NewHealthChecker(pool)},
			close:    pool.Close,
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		store := memory.NewStore()
		return &stores{
			users:  store.Users(),
			issues: store.Issues(),
			events: store.Events(),
			close:  func() {},
		}, nil

	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return &stores{
			users:    mongodb.NewUserRepository(db),
			issues:   mongodb.NewIssueRepository(db),
			events:   mongodb.NewIssueEventRepository(db),
			checkers: []handler.Checker{mongodb.NewHealthChecker(db)},
			close: func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(disconnectCtx)
			},
		}, nil
	}
}
