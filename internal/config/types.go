// Package config loads configuration from files, env vars, and flags, and validates it.
package config

import (
	"time"

	"record-i18n/internal/naming"
	"record-i18n/internal/schemafilter"
)

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Locale        LocaleConfig        `mapstructure:"locale"`
	Loader        LoaderConfig        `mapstructure:"loader"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	SchemaFilters schemafilter.Config `mapstructure:"schema_filters"`
	TypeMappings  TypeMappingsConfig  `mapstructure:"type_mappings"`
	Sharing       SharingConfig       `mapstructure:"sharing"`
	Naming        naming.Config       `mapstructure:"naming"`
}

// LocaleConfig controls which locale nested assignment runs under.
type LocaleConfig struct {
	// Default is the BCP 47 tag stamped on the assignment context when a
	// document does not carry its own locale.
	Default string `mapstructure:"default"`
	// Strict rejects document locales that fail BCP 47 parsing instead of
	// carrying them best effort.
	Strict bool `mapstructure:"strict"`
}

// LoaderConfig holds parameters for the batch assignment run.
type LoaderConfig struct {
	// Input is the path of the JSON document file. "@-" reads from stdin.
	Input string `mapstructure:"input"`
	// DryRun applies every document inside a transaction and rolls it back.
	DryRun bool `mapstructure:"dry_run"`
	// ContinueOnError reports failed documents and keeps going instead of
	// aborting the run on the first failure.
	ContinueOnError bool `mapstructure:"continue_on_error"`
	// MetricsAddr exposes a Prometheus /metrics listener for the duration of
	// the run when non-empty, e.g. ":9090".
	MetricsAddr string `mapstructure:"metrics_addr"`
	// ApplyTimeout bounds a single document's assignment and save.
	ApplyTimeout time.Duration `mapstructure:"apply_timeout"`
	// ShutdownTimeout bounds teardown of the metrics listener and exporters.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TypeMappingsConfig controls explicit SQL type overrides for value coercion.
type TypeMappingsConfig struct {
	// UUIDColumns maps table glob patterns to column glob patterns that should be treated as UUID.
	UUIDColumns map[string][]string `mapstructure:"uuid_columns"`
	// TinyInt1BooleanColumns maps table glob patterns to tinyint(1) column glob patterns
	// that should be treated as boolean.
	TinyInt1BooleanColumns map[string][]string `mapstructure:"tinyint1_boolean_columns"`
	// TinyInt1IntColumns maps table glob patterns to tinyint(1) column glob patterns
	// that should be treated as integer (escape hatch when tinyint(1) is not semantic boolean).
	TinyInt1IntColumns map[string][]string `mapstructure:"tinyint1_int_columns"`
}

// SharingConfig overrides how associations share translated rows across
// locales. Schema discovery marks translation-table associations shared by
// default; these overrides reconfigure individual associations.
type SharingConfig struct {
	// Associations maps "owner.association" keys over record type names to a
	// sharing mode: "off", "shared", or "on_initialize".
	Associations map[string]string `mapstructure:"associations"`
}

// PoolConfig holds connection pool parameters.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// DatabaseTLSConfig holds TLS/SSL configuration for database connections.
// Supports both server verification and client certificate authentication (mTLS).
type DatabaseTLSConfig struct {
	// Mode controls TLS behavior:
	//   - "off": No TLS (plaintext connection)
	//   - "skip-verify": TLS without server certificate verification (insecure)
	//   - "verify-ca": TLS with CA verification but no hostname check
	//   - "verify-full": TLS with full verification including hostname
	Mode string `mapstructure:"mode"`

	// CAFile is the path to the CA certificate for server verification.
	// Required for verify-ca and verify-full modes.
	CAFile string `mapstructure:"ca_file"`
	// CAFileEnv is an environment variable name containing the CA file path.
	// Useful for Kubernetes ConfigMap/Secret separation.
	CAFileEnv string `mapstructure:"ca_file_env"`

	// CertFile is the path to the client certificate for mTLS authentication.
	CertFile string `mapstructure:"cert_file"`
	// CertFileEnv is an environment variable name containing the client cert path.
	CertFileEnv string `mapstructure:"cert_file_env"`

	// KeyFile is the path to the client private key for mTLS authentication.
	KeyFile string `mapstructure:"key_file"`
	// KeyFileEnv is an environment variable name containing the client key path.
	KeyFileEnv string `mapstructure:"key_file_env"`

	// ServerName overrides the server name used for TLS verification.
	// If empty, the database host is used.
	ServerName string `mapstructure:"server_name"`
}

// DatabaseConfig holds database connection parameters.
type DatabaseConfig struct {
	// ConnectionString is a complete go-sql-driver/mysql Data Source Name.
	// Format: user:password@tcp(host:port)/database?params
	// When set, overrides Host/Port/User/Password/Database fields.
	// Configured via "dsn" in YAML or RECI18N_DATABASE_DSN env var.
	ConnectionString string `mapstructure:"dsn"`
	// ConnectionStringFile is a path to a file containing the DSN (for secrets management).
	// Supports "@-" to read from stdin.
	// Configured via "dsn_file" in YAML or RECI18N_DATABASE_DSN_FILE env var.
	ConnectionStringFile string `mapstructure:"dsn_file"`
	// MyCnfFile points to a MySQL defaults file (.my.cnf style) used as an
	// alternative to DSN/discrete settings.
	// Supported keys are loaded from [client] (and database from [mysql] fallback).
	// Configured via "mycnf_file" in YAML or RECI18N_DATABASE_MYCNF_FILE env var.
	MyCnfFile string `mapstructure:"mycnf_file"`

	// Discrete connection fields (used when DSN is not set)
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	PasswordFile   string `mapstructure:"password_file"`
	PasswordPrompt bool   `mapstructure:"password_prompt"`
	Database       string `mapstructure:"database"`

	// TLS holds the TLS/SSL configuration for database connections.
	TLS DatabaseTLSConfig `mapstructure:"tls"`

	// Connection pool settings
	Pool PoolConfig `mapstructure:"pool"`

	// ConnectionTimeout is the max time to wait for DB on startup.
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	// ConnectionRetryInterval is the initial interval between connection retries.
	ConnectionRetryInterval time.Duration `mapstructure:"connection_retry_interval"`
}

const defaultDatabaseName = "test"

type myCnfSettings struct {
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
	TLSMode   string
	HasPort   bool
	HasDBName bool
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`           // debug, info, warn, error
	Format         string `mapstructure:"format"`          // json, text
	ExportsEnabled bool   `mapstructure:"exports_enabled"` // Enable OTLP log export
}

// ObservabilityConfig holds observability parameters.
type ObservabilityConfig struct {
	ServiceName         string        `mapstructure:"service_name"`
	ServiceVersion      string        `mapstructure:"service_version"`
	Environment         string        `mapstructure:"environment"`
	MetricsEnabled      bool          `mapstructure:"metrics_enabled"`
	TracingEnabled      bool          `mapstructure:"tracing_enabled"`
	TraceSampleRatio    float64       `mapstructure:"trace_sample_ratio"`
	SQLCommenterEnabled bool          `mapstructure:"sqlcommenter_enabled"` // Inject trace context into SQL queries
	Logging             LoggingConfig `mapstructure:"logging"`

	// Global OTLP settings (defaults for all signals)
	OTLP OTLPConfig `mapstructure:"otlp"`

	// Signal-specific overrides (optional)
	Traces  *OTLPConfig `mapstructure:"traces,omitempty"`
	Logs    *OTLPConfig `mapstructure:"logs,omitempty"`
	Metrics *OTLPConfig `mapstructure:"metrics,omitempty"`
}

// OTLPConfig holds OTLP exporter configuration
type OTLPConfig struct {
	Endpoint          string            `mapstructure:"endpoint"`
	Protocol          string            `mapstructure:"protocol"` // "grpc", "http/protobuf"
	Insecure          bool              `mapstructure:"insecure"`
	TLSCertFile       string            `mapstructure:"tls_cert_file"`
	TLSClientCertFile string            `mapstructure:"tls_client_cert_file"`
	TLSClientKeyFile  string            `mapstructure:"tls_client_key_file"`
	Headers           map[string]string `mapstructure:"headers"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Compression       string            `mapstructure:"compression"` // "none", "gzip"
	RetryEnabled      bool              `mapstructure:"retry_enabled"`
	RetryMaxAttempts  int               `mapstructure:"retry_max_attempts"`
}

// GetTracesConfig returns the effective OTLP config for traces
func (c *ObservabilityConfig) GetTracesConfig() OTLPConfig {
	if c.Traces != nil {
		return mergeOTLPConfigs(c.OTLP, *c.Traces)
	}
	return c.OTLP
}

// GetLogsConfig returns the effective OTLP config for logs
func (c *ObservabilityConfig) GetLogsConfig() OTLPConfig {
	if c.Logs != nil {
		return mergeOTLPConfigs(c.OTLP, *c.Logs)
	}
	return c.OTLP
}

// GetMetricsConfig returns the effective OTLP config for metrics
func (c *ObservabilityConfig) GetMetricsConfig() OTLPConfig {
	if c.Metrics != nil {
		return mergeOTLPConfigs(c.OTLP, *c.Metrics)
	}
	return c.OTLP
}

// mergeOTLPConfigs merges signal-specific config over global defaults
func mergeOTLPConfigs(base OTLPConfig, override OTLPConfig) OTLPConfig {
	result := base // Start with base

	// Override non-zero/non-empty values
	if override.Endpoint != "" {
		result.Endpoint = override.Endpoint
	}
	if override.Protocol != "" {
		result.Protocol = override.Protocol
	}
	// Note: Insecure is a bool, so we can't detect if it was explicitly set to false.
	// We assume if the override struct exists, the user wants to use its Insecure value.
	result.Insecure = override.Insecure

	if override.TLSCertFile != "" {
		result.TLSCertFile = override.TLSCertFile
	}
	if override.TLSClientCertFile != "" {
		result.TLSClientCertFile = override.TLSClientCertFile
	}
	if override.TLSClientKeyFile != "" {
		result.TLSClientKeyFile = override.TLSClientKeyFile
	}

	// Merge headers (signal-specific headers override global)
	if override.Headers != nil {
		result.Headers = make(map[string]string)
		for k, v := range base.Headers {
			result.Headers[k] = v
		}
		for k, v := range override.Headers {
			result.Headers[k] = v
		}
	}

	if override.Timeout != 0 {
		result.Timeout = override.Timeout
	}
	if override.Compression != "" {
		result.Compression = override.Compression
	}
	if override.RetryMaxAttempts != 0 {
		result.RetryEnabled = override.RetryEnabled
		result.RetryMaxAttempts = override.RetryMaxAttempts
	}

	return result
}
