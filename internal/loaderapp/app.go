// Package loaderapp owns the lifecycle of the batch loader: configuration,
// observability, the database handle, schema discovery, and the assignment
// run that applies input documents through the nested attribute router.
package loaderapp

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"record-i18n/internal/config"
	"record-i18n/internal/logging"
	"record-i18n/internal/observability"
	"record-i18n/internal/schema"
	"record-i18n/internal/store"
)

// App owns runtime resources for one loader process.
type App struct {
	cfg    *config.Config
	logger *logging.Logger

	loggerProvider *observability.LoggerProvider

	effectiveDatabase string
	databaseSource    string
	dsnPresent        bool

	meterProvider  *observability.MeterProvider
	assignMetrics  *observability.AssignmentMetrics
	tracerProvider *observability.TracerProvider

	db         *sql.DB
	dbStatsReg interface{ Unregister() error }

	registry *schema.Registry
	store    *store.SQLStore

	metricsSrv *http.Server

	cleanup cleanupStack

	stateMu     sync.Mutex
	initialized bool

	shutdownOnce sync.Once
}

// New creates an App lifecycle wrapper.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	effectiveDatabase, databaseSource, err := cfg.Database.EffectiveDatabaseName()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve effective database configuration: %w", err)
	}

	return &App{
		cfg:               cfg,
		logger:            logger,
		effectiveDatabase: effectiveDatabase,
		databaseSource:    databaseSource,
		dsnPresent:        strings.TrimSpace(cfg.Database.ConnectionString) != "",
	}, nil
}

// AttachLoggerProvider registers an optional logger provider for shutdown cleanup.
func (a *App) AttachLoggerProvider(provider *observability.LoggerProvider) {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	a.loggerProvider = provider
}

// Registry returns the discovered schema registry. Nil before Init.
func (a *App) Registry() *schema.Registry {
	a.stateMu.Lock()
	defer a.stateMu.Unlock()
	return a.registry
}
