package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vishwagit2006/Final-Project-sub000/internal/config"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository/memory"
	"github.com/Vishwagit2006/Final-Project-sub000/internal/repository/postgres"
	"github.com/Vishwagit2006/Final-Project-sub000/migrations"
	"github.com/Vishwagit2006/Final-Project-sub000/pkg/database"
)

// OpenStore builds the store selected by cfg.StoreDriver. For postgres it
// connects the pool, applies the embedded migrations and registers the pool
// collector on reg when reg is non-nil. The returned close func releases the
// store and is never nil.
func OpenStore(ctx context.Context, cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (repository.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)

	if reg != nil {
		if err := database.RegisterPoolMetrics(reg, pool, serviceName); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("register pool metrics: %w", err)
		}
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	return postgres.NewStore(pool), pool.Close, nil
}
