package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Fooddie-KLTN/fooddie-admin/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Console (admin API client and workflows)
	Console ConsoleConfig `yaml:"console"`

	// Dev backend
	DevServer DevServerConfig `yaml:"devserver"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ConsoleConfig configures the admin API client and the console workflows
type ConsoleConfig struct {
	APIURL         string        `yaml:"apiUrl"`
	Token          string        `yaml:"token"`
	HTTPTimeout    time.Duration `yaml:"httpTimeout"`
	SearchDebounce time.Duration `yaml:"searchDebounce"`
	CandidateLimit int           `yaml:"candidateLimit"`
	PageSize       int           `yaml:"pageSize"`
	LabelsFile     string        `yaml:"labelsFile"`
}

// DevServerConfig configures the reference backend
type DevServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	Store           string        `yaml:"store"`
	PostgresURL     string        `yaml:"postgresUrl"`
	Token           string        `yaml:"token"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"logLevel"`
	MetricsEnabled bool   `yaml:"metricsEnabled"`

	OTelEnabled     bool   `yaml:"otelEnabled"`
	OTelEndpoint    string `yaml:"otelEndpoint"`
	OTelServiceName string `yaml:"otelServiceName"`
	OTelInsecure    bool   `yaml:"otelInsecure"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Tracing converts the settings for observability.InitTracing
func (o ObservabilityConfig) Tracing(version string) observability.TracingConfig {
	return observability.TracingConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: version,
		Insecure:       o.OTelInsecure,
	}
}

// Store types supported by the dev backend
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{
			APIURL:         "http://localhost:8080",
			HTTPTimeout:    15 * time.Second,
			SearchDebounce: 300 * time.Millisecond,
			CandidateLimit: 20,
			PageSize:       10,
		},
		DevServer: DevServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			Store:           StoreMemory,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel:        "info",
			MetricsEnabled:  true,
			OTelEndpoint:    "localhost:4317",
			OTelServiceName: "roleadmin",
			OTelInsecure:    true,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file
// named by ROLEADMIN_CONFIG_FILE, then environment variables, in that order
// of increasing precedence.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("ROLEADMIN_CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile overlays a YAML document on cfg; keys absent from the file keep
// their current value
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	c := &cfg.Console
	c.APIURL = getEnv("ROLEADMIN_API_URL", c.APIURL)
	c.Token = getEnv("ROLEADMIN_TOKEN", c.Token)
	c.HTTPTimeout = getEnvDuration("ROLEADMIN_HTTP_TIMEOUT", c.HTTPTimeout)
	c.SearchDebounce = getEnvDuration("ROLEADMIN_SEARCH_DEBOUNCE", c.SearchDebounce)
	c.CandidateLimit = getEnvInt("ROLEADMIN_CANDIDATE_LIMIT", c.CandidateLimit)
	c.PageSize = getEnvInt("ROLEADMIN_PAGE_SIZE", c.PageSize)
	c.LabelsFile = getEnv("ROLEADMIN_LABELS_FILE", c.LabelsFile)

	d := &cfg.DevServer
	d.Host = getEnv("ROLEADMIN_DEV_HOST", d.Host)
	d.Port = getEnv("ROLEADMIN_DEV_PORT", d.Port)
	d.Store = strings.ToLower(getEnv("ROLEADMIN_DEV_STORE", d.Store))
	d.PostgresURL = getEnv("ROLEADMIN_DEV_POSTGRES_URL", d.PostgresURL)
	d.Token = getEnv("ROLEADMIN_DEV_TOKEN", d.Token)
	d.ReadTimeout = getEnvDuration("ROLEADMIN_DEV_READ_TIMEOUT", d.ReadTimeout)
	d.WriteTimeout = getEnvDuration("ROLEADMIN_DEV_WRITE_TIMEOUT", d.WriteTimeout)
	d.ShutdownTimeout = getEnvDuration("ROLEADMIN_DEV_SHUTDOWN_TIMEOUT", d.ShutdownTimeout)

	o := &cfg.Observability
	o.LogLevel = getEnv("ROLEADMIN_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("ROLEADMIN_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("ROLEADMIN_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("ROLEADMIN_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("ROLEADMIN_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelInsecure = getEnvBool("ROLEADMIN_OTEL_INSECURE", o.OTelInsecure)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Console.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive")
	}
	if c.Console.SearchDebounce < 0 {
		return fmt.Errorf("search debounce must not be negative")
	}
	if c.Console.CandidateLimit <= 0 {
		return fmt.Errorf("candidate limit must be positive")
	}
	if c.Console.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}

	if c.DevServer.Port == "" {
		return fmt.Errorf("dev server port is required")
	}
	switch c.DevServer.Store {
	case StoreMemory:
	case StorePostgres:
		if c.DevServer.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres store")
		}
	default:
		return fmt.Errorf("invalid store type: %s (must be memory or postgres)", c.DevServer.Store)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// RequireAPI checks the settings the console needs to reach the backend
func (c ConsoleConfig) RequireAPI() error {
	if c.APIURL == "" {
		return fmt.Errorf("ROLEADMIN_API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid API URL: %q", c.APIURL)
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
