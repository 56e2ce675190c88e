package config

import (
	"fmt"
	"net"
	"net/url"
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/language"

	"record-i18n/internal/naming"
	"record-i18n/internal/schemafilter"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	var msgs []string
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors and returns validation results.
// It returns both errors (fatal) and warnings (non-fatal issues).
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}

	// Validate database config
	c.Database.validate(result)

	// Validate locale config
	c.Locale.validate(result)

	// Validate loader config
	c.Loader.validate(result)

	// Validate observability config
	c.Observability.validate(result)

	// Validate explicit type mappings
	c.TypeMappings.validate(result)

	// Validate translation sharing overrides
	c.Sharing.validate(result)

	// Validate schema filters
	validateSchemaFilters(result, c.SchemaFilters)

	// Validate naming config
	validateNamingConfig(result, c.Naming)

	return result
}

func (l *LocaleConfig) validate(result *ValidationResult) {
	tag := strings.TrimSpace(l.Default)
	if tag == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "locale.default",
			Message: "default locale cannot be empty",
			Hint:    "set a BCP 47 tag such as en or de-CH",
		})
		return
	}
	if _, err := language.Parse(tag); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "locale.default",
			Message: fmt.Sprintf("invalid BCP 47 tag %q: %v", tag, err),
			Hint:    "use a tag such as en, pt-BR, or zh-Hant",
		})
	}
}

func (l *LoaderConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(l.Input) == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "loader.input",
			Message: "input document path is required",
			Hint:    "set loader.input to a JSON file path, or @- for stdin",
		})
	}

	if addr := strings.TrimSpace(l.MetricsAddr); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "loader.metrics_addr",
				Message: fmt.Sprintf("invalid listen address %q: %v", addr, err),
				Hint:    "use host:port form, e.g. :9090 or 127.0.0.1:9090",
			})
		}
	}

	if l.ApplyTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "loader.apply_timeout",
			Message: "apply_timeout cannot be negative",
		})
	}
	if l.ShutdownTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "loader.shutdown_timeout",
			Message: "shutdown_timeout cannot be negative",
		})
	}
}

func (t *TypeMappingsConfig) validate(result *ValidationResult) {
	validatePatternMap(result, "type_mappings.uuid_columns", t.UUIDColumns)
	validatePatternMap(result, "type_mappings.tinyint1_boolean_columns", t.TinyInt1BooleanColumns)
	validatePatternMap(result, "type_mappings.tinyint1_int_columns", t.TinyInt1IntColumns)
}

func (s *SharingConfig) validate(result *ValidationResult) {
	for key, mode := range s.Associations {
		owner, name, ok := strings.Cut(strings.TrimSpace(key), ".")
		if !ok || owner == "" || name == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "sharing.associations",
				Message: fmt.Sprintf("key %q must name an association as owner.association", key),
				Hint:    "e.g. article.translations",
			})
		}

		switch strings.ToLower(strings.TrimSpace(mode)) {
		case "off", "shared", "on_initialize":
		default:
			result.Errors = append(result.Errors, ValidationError{
				Field:   "sharing.associations",
				Message: fmt.Sprintf("unknown sharing mode %q for %q", mode, key),
				Hint:    "valid modes: off, shared, on_initialize",
			})
		}
	}
}

func validateSchemaFilters(result *ValidationResult, filters schemafilter.Config) {
	validateGlobList(result, "schema_filters.allow_tables", filters.AllowTables)
	validateGlobList(result, "schema_filters.deny_tables", filters.DenyTables)
	validatePatternMap(result, "schema_filters.allow_columns", filters.AllowColumns)
	validatePatternMap(result, "schema_filters.deny_columns", filters.DenyColumns)
}

var tableSuffixPattern = regexp.MustCompile(`^_[a-z][a-z0-9_]*$`)

func validateNamingConfig(result *ValidationResult, cfg naming.Config) {
	validateOverrideMap(result, "naming.plural_overrides", cfg.PluralOverrides)
	validateOverrideMap(result, "naming.singular_overrides", cfg.SingularOverrides)

	suffix := strings.TrimSpace(cfg.TranslationSuffix)
	if suffix == "" {
		// Empty means DefaultConfig was bypassed; the namer falls back itself.
		return
	}
	if !tableSuffixPattern.MatchString(suffix) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "naming.translation_suffix",
			Message: fmt.Sprintf("translation suffix %q must be a lowercase table suffix starting with underscore", suffix),
			Hint:    "use a suffix such as _translations or _i18n",
		})
	}
}

func validateOverrideMap(result *ValidationResult, field string, overrides map[string]string) {
	for from, to := range overrides {
		if strings.TrimSpace(from) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "override key cannot be empty",
			})
			continue
		}
		if strings.TrimSpace(to) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("override for %q cannot be empty", from),
			})
		}
	}
}

func validatePatternMap(result *ValidationResult, field string, patternMap map[string][]string) {
	for tablePattern, columnPatterns := range patternMap {
		if strings.TrimSpace(tablePattern) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "table pattern cannot be empty",
			})
			continue
		}
		if _, err := path.Match(strings.ToLower(tablePattern), "probe"); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid table glob pattern %q: %v", tablePattern, err),
			})
		}
		for _, columnPattern := range columnPatterns {
			if strings.TrimSpace(columnPattern) == "" {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("column pattern for table pattern %q cannot be empty", tablePattern),
				})
				continue
			}
			if _, err := path.Match(strings.ToLower(columnPattern), "probe"); err != nil {
				result.Errors = append(result.Errors, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("invalid column glob pattern %q for table pattern %q: %v", columnPattern, tablePattern, err),
				})
			}
		}
	}
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(d.MyCnfFile) != "" && (strings.TrimSpace(d.ConnectionString) != "" || strings.TrimSpace(d.ConnectionStringFile) != "") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.mycnf_file",
			Message: "mycnf_file is mutually exclusive with dsn/dsn_file",
			Hint:    "set either mycnf_file or dsn/dsn_file, not both",
		})
	}

	if strings.TrimSpace(d.MyCnfFile) != "" {
		settings, err := parseMyCnfFile(d.MyCnfFile)
		if err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.mycnf_file",
				Message: fmt.Sprintf("failed to parse my.cnf file: %v", err),
				Hint:    "provide a valid MySQL defaults file with [client] settings",
			})
		} else {
			if d.Host == "" && settings.Host != "" {
				d.Host = settings.Host
			}
			if d.Port == 0 && settings.HasPort {
				d.Port = settings.Port
			}
			if d.User == "" && settings.User != "" {
				d.User = settings.User
			}
			if d.Password == "" && settings.Password != "" {
				d.Password = settings.Password
			}
			if d.TLS.Mode == "" && settings.TLSMode != "" {
				d.TLS.Mode = settings.TLSMode
			}
			if settings.HasDBName {
				if strings.TrimSpace(d.Database) == "" {
					d.Database = settings.Database
				} else if d.Database != settings.Database {
					result.Errors = append(result.Errors, ValidationError{
						Field:   "database.database",
						Message: fmt.Sprintf("database mismatch: database.database=%q but database.mycnf_file targets %q", d.Database, settings.Database),
						Hint:    "either remove database.database or set it to match my.cnf database",
					})
				}
			}
		}
	}

	// Port range validation (only if not using connection string)
	if d.ConnectionString == "" && (d.Port < 1 || d.Port > 65535) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port),
		})
	}

	// Validate new TLS configuration
	d.TLS.validate(result)

	// Connection pool validation
	if d.Pool.MaxOpen < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_open",
			Message: "max_open cannot be negative",
		})
	}
	if d.Pool.MaxIdle < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.pool.max_idle",
			Message: "max_idle cannot be negative",
		})
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.pool.max_idle",
			Message: "max_idle is greater than max_open",
			Hint:    "idle connections will be limited to max_open",
		})
	}

	// Connection retry validation
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval > d.ConnectionTimeout {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval is greater than connection_timeout",
			Hint:    "only one connection attempt will be made",
		})
	}
	if d.ConnectionRetryInterval < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval cannot be negative",
		})
	}
	if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval == 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_retry_interval",
			Message: "connection_retry_interval must be greater than 0 when connection_timeout is set",
			Hint:    "set a retry interval such as 2s, or set connection_timeout to 0 to disable retries",
		})
	}
	if d.ConnectionTimeout < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.connection_timeout",
			Message: "connection_timeout cannot be negative",
		})
	}

	effectiveDatabase, _, err := resolveEffectiveDatabaseName(d.Database, d.ConnectionString, d.MyCnfFile)
	if err != nil {
		switch {
		case strings.HasPrefix(err.Error(), "database.dsn"):
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.dsn",
				Message: err.Error(),
				Hint:    "set a valid MySQL DSN in database.dsn/database.dsn_file",
			})
		case strings.HasPrefix(err.Error(), "database.mycnf_file"):
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.mycnf_file",
				Message: err.Error(),
				Hint:    "set a valid my.cnf file and include [client] database or database.database",
			})
		case strings.Contains(err.Error(), "mismatch"):
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.database",
				Message: err.Error(),
				Hint:    "either remove database.database or set it to match the DSN/my.cnf database",
			})
		default:
			result.Errors = append(result.Errors, ValidationError{
				Field:   "database.database",
				Message: err.Error(),
				Hint:    "set database.database or include a /database in database.dsn/database.dsn_file or database.mycnf_file",
			})
		}
		return
	}

	// Keep runtime behavior deterministic for callers that consume Database.Database.
	d.Database = effectiveDatabase
}

func (t *DatabaseTLSConfig) validate(result *ValidationResult) {
	// Mode validation
	validModes := map[string]bool{"": true, "off": true, "skip-verify": true, "verify-ca": true, "verify-full": true}
	if !validModes[t.Mode] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.mode",
			Message: fmt.Sprintf("invalid TLS mode %q", t.Mode),
			Hint:    "valid values are: off, skip-verify, verify-ca, verify-full",
		})
	}

	// CA file is required for verify-ca and verify-full
	caFile := t.resolveCAFile()
	if (t.Mode == "verify-ca" || t.Mode == "verify-full") && caFile == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.ca_file",
			Message: "CA file is required for verify-ca and verify-full modes",
			Hint:    "set ca_file or ca_file_env to specify the CA certificate",
		})
	}

	// Client cert and key must both be specified or neither
	certFile := t.resolveCertFile()
	keyFile := t.resolveKeyFile()
	if (certFile != "" && keyFile == "") || (certFile == "" && keyFile != "") {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.tls.cert_file",
			Message: "both cert_file and key_file must be specified for client certificate authentication",
			Hint:    "provide both cert_file and key_file, or neither",
		})
	}

	// Warn about skip-verify in non-empty mode
	if t.Mode == "skip-verify" {
		result.Warnings = append(result.Warnings, ValidationWarning{
			Field:   "database.tls.mode",
			Message: "skip-verify mode does not verify server certificates",
			Hint:    "use verify-ca or verify-full in production",
		})
	}
}

func validateGlobList(result *ValidationResult, field string, patterns []string) {
	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: "glob pattern cannot be empty",
			})
			continue
		}
		if _, err := path.Match(strings.ToLower(pattern), "probe"); err != nil {
			result.Errors = append(result.Errors, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("invalid glob pattern %q: %v", pattern, err),
			})
		}
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	// Log level validation
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid log level %q", o.Logging.Level),
			Hint:    "valid values are: debug, info, warn, error",
		})
	}

	// Log format validation
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid log format %q", o.Logging.Format),
			Hint:    "valid values are: json, text",
		})
	}

	// OTLP protocol validation
	o.OTLP.validate("observability.otlp", result)

	// Signal-specific OTLP validation
	if o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
	if o.Metrics != nil {
		o.Metrics.validate("observability.metrics", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	validProtocols := map[string]bool{"": true, "grpc": true, "http/protobuf": true}
	if !validProtocols[o.Protocol] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".protocol",
			Message: fmt.Sprintf("invalid OTLP protocol %q", o.Protocol),
			Hint:    "valid values are: grpc, http/protobuf",
		})
	}

	if o.Protocol == "http/protobuf" {
		if !validOTLPEndpoint(o.Endpoint) {
			result.Errors = append(result.Errors, ValidationError{
				Field:   prefix + ".endpoint",
				Message: fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint),
				Hint:    "use host:port or a full URL",
			})
		}
	}

	validCompressions := map[string]bool{"": true, "none": true, "gzip": true}
	if !validCompressions[o.Compression] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".compression",
			Message: fmt.Sprintf("invalid OTLP compression %q", o.Compression),
			Hint:    "valid values are: none, gzip",
		})
	}

	if o.RetryMaxAttempts < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   prefix + ".retry_max_attempts",
			Message: "retry_max_attempts cannot be negative",
		})
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return false
		}
		return parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}
