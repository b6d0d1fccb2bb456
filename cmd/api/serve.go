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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vet-clinic-records/internal/adapters/auth/jwt"
	"vet-clinic-records/internal/adapters/storage/memory"
	"vet-clinic-records/internal/adapters/storage/postgres"
	"vet-clinic-records/internal/adapters/storage/sqlite"
	"vet-clinic-records/internal/config"
	"vet-clinic-records/internal/domain/owners"
	"vet-clinic-records/internal/router"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Storage (STORAGE):
  - memory   (default sin DATABASE_URL)
  - postgres (DATABASE_URL o DB_DSN)
  - sqlite   (SQLITE_PATH)

Auth: con AUTH_JWT_SECRET se exige Bearer token en las escrituras;
sin él se acepta X-Debug-User-ID (modo dev).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply pending migrations before serving (postgres)")
	return cmd
}

func runServer(ctx context.Context, migrate bool) error {
	repo, tx, closeStore, err := openStorage(ctx, migrate)
	if err != nil {
		return err
	}
	defer closeStore()

	opts := router.Options{
		Owners:       repo,
		Tx:           tx,
		Logger:       log,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}
	if cfg.AuthJWTSecret != "" {
		opts.AuthVerifier = jwt.NewVerifier(jwt.Config{Secret: cfg.AuthJWTSecret, Issuer: cfg.AuthIssuer})
	} else {
		log.Warn("AUTH_JWT_SECRET not set, accepting X-Debug-User-ID", nil)
	}
	if cfg.PetNameCaseSensitive {
		opts.NameMatcher = owners.CaseSensitive
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "storage": cfg.Storage})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down", nil)
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStorage arma repo + tx manager según cfg.Storage.
func openStorage(ctx context.Context, migrate bool) (owners.Repository, owners.TxManager, func(), error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		if migrate {
			if err := migrateUp(ctx); err != nil {
				return nil, nil, nil, err
			}
		}
		pool, err := postgres.OpenPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return postgres.NewOwnersRepo(pool), postgres.NewTransactionManager(pool), pool.Close, nil

	case config.StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := store.Close(); err != nil {
				log.Error("sqlite close", map[string]any{"error": err.Error()})
			}
		}
		return store, store, closeFn, nil

	default:
		store := memory.NewOwnerRepo()
		return store, store, func() {}, nil
	}
}

func migrateUp(ctx context.Context) error {
	db, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := postgres.MigrateUp(ctx, db)
	if err != nil {
		return err
	}
	log.Info("migrations applied", map[string]any{"count": n})
	return nil
}
