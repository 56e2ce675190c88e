package loaderapp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"record-i18n/internal/dbexec"
	"record-i18n/internal/naming"
	"record-i18n/internal/schema"
	"record-i18n/internal/store"
)

// Init initializes all runtime resources. It is idempotent.
func (a *App) Init(ctx context.Context) error {
	a.stateMu.Lock()
	if a.initialized {
		a.stateMu.Unlock()
		return nil
	}
	a.stateMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	cleanup := cleanupStack{}
	success := false
	defer func() {
		if !success {
			cleanup.run(context.Background(), a.logger)
		}
	}()

	if a.loggerProvider != nil {
		cleanup.push("logger provider", func(shutdownCtx context.Context) error {
			return a.loggerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	meterProvider, assignMetrics, err := initMetrics(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry metrics: %w", err)
	}
	if meterProvider != nil {
		cleanup.push("meter provider", func(shutdownCtx context.Context) error {
			return meterProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	tracerProvider, err := initTracing(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry tracing: %w", err)
	}
	if tracerProvider != nil {
		cleanup.push("tracer provider", func(shutdownCtx context.Context) error {
			return tracerProvider.Shutdown(shutdownCtx, a.logger.Logger)
		})
	}

	a.logger.Info("connecting to database",
		slog.String("host", a.cfg.Database.Host),
		slog.Int("port", a.cfg.Database.Port),
		slog.String("database_effective", a.effectiveDatabase),
		slog.String("database_source", a.databaseSource),
		slog.Bool("dsn_present", a.dsnPresent),
	)

	db, dbStatsReg, err := connectDB(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup.push("database", func(_ context.Context) error {
		if dbStatsReg != nil {
			if err := dbStatsReg.Unregister(); err != nil {
				a.logger.Warn("failed to unregister DB stats metrics", slog.String("error", err.Error()))
			}
		}
		return db.Close()
	})

	if err := configureDatabase(ctx, a.cfg, a.logger, db, a.effectiveDatabase, a.databaseSource, a.dsnPresent); err != nil {
		return fmt.Errorf("failed to verify database connection: %w", err)
	}

	registry, err := a.buildRegistry(ctx, db)
	if err != nil {
		return err
	}

	var metricsSrv *http.Server
	if a.cfg.Loader.MetricsAddr != "" && meterProvider != nil {
		srv := startMetricsListener(a.cfg, a.logger)
		cleanup.push("metrics listener", func(shutdownCtx context.Context) error {
			return srv.Shutdown(shutdownCtx)
		})
		metricsSrv = srv
	}

	a.stateMu.Lock()
	a.meterProvider = meterProvider
	a.assignMetrics = assignMetrics
	a.tracerProvider = tracerProvider
	a.db = db
	a.dbStatsReg = dbStatsReg
	a.registry = registry
	a.store = store.NewSQLStore(dbexec.NewStandardExecutor(db), registry, a.logger.Logger)
	a.metricsSrv = metricsSrv
	a.cleanup = cleanup
	a.initialized = true
	a.stateMu.Unlock()

	success = true
	return nil
}

// buildRegistry discovers the schema and applies configured type overrides in
// order: discovery, tinyint(1) mappings, UUID mappings.
func (a *App) buildRegistry(ctx context.Context, db schema.Queryer) (*schema.Registry, error) {
	namer := naming.New(a.cfg.Naming, a.logger.Logger)

	registry, err := schema.Discover(ctx, db, a.effectiveDatabase, namer, a.cfg.SchemaFilters)
	if err != nil {
		return nil, fmt.Errorf("failed to discover schema: %w", err)
	}

	if err := schema.ApplyTinyIntOverrides(registry, a.cfg.TypeMappings.TinyInt1BooleanColumns, a.cfg.TypeMappings.TinyInt1IntColumns); err != nil {
		return nil, fmt.Errorf("failed to apply tinyint(1) type mappings: %w", err)
	}
	if err := schema.ApplyUUIDOverrides(registry, a.cfg.TypeMappings.UUIDColumns); err != nil {
		return nil, fmt.Errorf("failed to apply UUID type mappings: %w", err)
	}
	if err := schema.ApplySharingOverrides(registry, a.cfg.Sharing.Associations); err != nil {
		return nil, fmt.Errorf("failed to apply sharing overrides: %w", err)
	}

	typeNames := registry.TypeNames()
	associations := 0
	for _, name := range typeNames {
		associations += len(registry.Associations(name))
	}
	a.logger.Info("schema discovered",
		slog.String("database", a.effectiveDatabase),
		slog.Int("record_types", len(typeNames)),
		slog.Int("associations", associations),
	)
	return registry, nil
}
