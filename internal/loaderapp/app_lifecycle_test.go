package loaderapp

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"record-i18n/internal/config"
	"record-i18n/internal/logging"
	"record-i18n/internal/naming"
)

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.Config{Level: "info", Format: "text"})
}

func TestNew_RequiresConfigAndLogger(t *testing.T) {
	if _, err := New(nil, testLogger()); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := New(&config.Config{}, nil); err == nil {
		t.Fatalf("expected error for nil logger")
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	app := &App{logger: testLogger()}
	var calls int32
	app.cleanup.push("test", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown failed: %v", err)
	}
	if err := app.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown failed: %v", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected cleanup to run once, ran %d times", got)
	}
}

func TestRun_BeforeInit_Fails(t *testing.T) {
	app := &App{cfg: &config.Config{}, logger: testLogger()}
	if _, err := app.Run(context.Background()); err == nil {
		t.Fatalf("expected run to fail before init")
	}
}

func TestInitFailure_DoesNotMarkInitialized(t *testing.T) {
	appCfg := &config.Config{
		Database: config.DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     1,
			User:     "root",
			Password: "invalid",
			Database: "test",
			TLS: config.DatabaseTLSConfig{
				Mode: "off",
			},
			Pool: config.PoolConfig{
				MaxOpen:     1,
				MaxIdle:     1,
				MaxLifetime: time.Second,
			},
			ConnectionTimeout:       0,
			ConnectionRetryInterval: 10 * time.Millisecond,
		},
		Locale: config.LocaleConfig{
			Default: "en",
		},
		Loader: config.LoaderConfig{
			Input:           "@-",
			ApplyTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		Observability: config.ObservabilityConfig{
			ServiceName:    "record-i18n",
			ServiceVersion: "test",
			Environment:    "test",
			Logging: config.LoggingConfig{
				Level:          "info",
				Format:         "text",
				ExportsEnabled: false,
			},
		},
		Naming: naming.DefaultConfig(),
		TypeMappings: config.TypeMappingsConfig{
			UUIDColumns:            map[string][]string{},
			TinyInt1BooleanColumns: map[string][]string{},
			TinyInt1IntColumns:     map[string][]string{},
		},
	}

	app, err := New(appCfg, testLogger())
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	if err := app.Init(context.Background()); err == nil {
		t.Fatalf("expected init to fail with unreachable database")
	}

	app.stateMu.Lock()
	initialized := app.initialized
	app.stateMu.Unlock()
	if initialized {
		t.Fatalf("app should not be marked initialized after failed Init")
	}
}
