package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          LogConfig
	Event        EventConfig
	HTTP         HTTPConfig
	Orchestrator OrchestratorConfig
	Monitor      MonitorConfig
	Registry     RegistryConfig
	Webhook      WebhookConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// EventConfig holds event bus configuration
type EventConfig struct {
	BufferSize     int
	HandlerTimeout time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int
	MaxBodySize       int64
	CORSAllowOrigins  []string
	CORSAllowMethods  []string
	CORSAllowHeaders  []string
	TrustedProxies    []string
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// OrchestratorConfig holds sync orchestrator and job engine settings
type OrchestratorConfig struct {
	MaxConcurrentSyncs     int
	OperationTimeout       time.Duration
	DefaultMaxRetries      int
	RetryBaseDelay         time.Duration
	ScheduledPollInterval  time.Duration
	RetentionPeriod        time.Duration
	RetentionSweepInterval time.Duration
}

// MonitorConfig holds channel monitor settings
type MonitorConfig struct {
	Enabled                bool
	ProbeInterval          time.Duration
	ProbeTimeout           time.Duration
	RingCapacity           int
	AlertWindow            time.Duration
	MetricRetention        time.Duration
	RetentionSweepInterval time.Duration
}

// RegistryConfig holds adapter registry settings
type RegistryConfig struct {
	EvictionThreshold int
	SweepInterval     time.Duration
	InitTimeout       time.Duration
}

// WebhookConfig holds inbound webhook settings
type WebhookConfig struct {
	// IdempotencyTTL is how long delivery IDs are remembered for
	// de-duplication of marketplace redeliveries
	IdempotencyTTL time.Duration
	// RequireSignature rejects deliveries without a valid HMAC signature
	RequireSignature bool
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MENUSYNC_ prefix (e.g., MENUSYNC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set config file settings
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	// Enable environment variable override
	v.SetEnvPrefix("MENUSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Build config struct
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Event: EventConfig{
			BufferSize:     v.GetInt("event.buffer_size"),
			HandlerTimeout: v.GetDuration("event.handler_timeout"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:       v.GetDuration("http.read_timeout"),
			WriteTimeout:      v.GetDuration("http.write_timeout"),
			IdleTimeout:       v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:    v.GetInt("http.max_header_bytes"),
			MaxBodySize:       v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:  v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:  v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:  v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:    v.GetStringSlice("http.trusted_proxies"),
			RateLimitEnabled:  v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests: v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:   v.GetDuration("http.rate_limit_window"),
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrentSyncs:     v.GetInt("orchestrator.max_concurrent_syncs"),
			OperationTimeout:       v.GetDuration("orchestrator.operation_timeout"),
			DefaultMaxRetries:      v.GetInt("orchestrator.default_max_retries"),
			RetryBaseDelay:         v.GetDuration("orchestrator.retry_base_delay"),
			ScheduledPollInterval:  v.GetDuration("orchestrator.scheduled_poll_interval"),
			RetentionPeriod:        v.GetDuration("orchestrator.retention_period"),
			RetentionSweepInterval: v.GetDuration("orchestrator.retention_sweep_interval"),
		},
		Monitor: MonitorConfig{
			Enabled:                v.GetBool("monitor.enabled"),
			ProbeInterval:          v.GetDuration("monitor.probe_interval"),
			ProbeTimeout:           v.GetDuration("monitor.probe_timeout"),
			RingCapacity:           v.GetInt("monitor.ring_capacity"),
			AlertWindow:            v.GetDuration("monitor.alert_window"),
			MetricRetention:        v.GetDuration("monitor.metric_retention"),
			RetentionSweepInterval: v.GetDuration("monitor.retention_sweep_interval"),
		},
		Registry: RegistryConfig{
			EvictionThreshold: v.GetInt("registry.eviction_threshold"),
			SweepInterval:     v.GetDuration("registry.sweep_interval"),
			InitTimeout:       v.GetDuration("registry.init_timeout"),
		},
		Webhook: WebhookConfig{
			IdempotencyTTL:   v.GetDuration("webhook.idempotency_ttl"),
			RequireSignature: v.GetBool("webhook.require_signature"),
		},
	}

	// Apply defaults for empty values
	applyDefaults(cfg, v)

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config, v *viper.Viper) {
	if cfg.App.Name == "" {
		cfg.App.Name = "menusync-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "menusync"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Event.BufferSize == 0 {
		cfg.Event.BufferSize = 256
	}
	if cfg.Event.HandlerTimeout == 0 {
		cfg.Event.HandlerTimeout = 10 * time.Second
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	// NOTE: CORS origins are intentionally not given a default fallback to "*".
	// An empty list means no cross-origin requests are allowed until explicitly
	// configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "X-Tenant-ID"}
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.Orchestrator.MaxConcurrentSyncs == 0 {
		cfg.Orchestrator.MaxConcurrentSyncs = 5
	}
	if cfg.Orchestrator.OperationTimeout == 0 {
		cfg.Orchestrator.OperationTimeout = 5 * time.Minute
	}
	if cfg.Orchestrator.DefaultMaxRetries == 0 {
		cfg.Orchestrator.DefaultMaxRetries = 3
	}
	if cfg.Orchestrator.RetryBaseDelay == 0 {
		cfg.Orchestrator.RetryBaseDelay = 5 * time.Second
	}
	if cfg.Orchestrator.ScheduledPollInterval == 0 {
		cfg.Orchestrator.ScheduledPollInterval = 30 * time.Second
	}
	if cfg.Orchestrator.RetentionPeriod == 0 {
		cfg.Orchestrator.RetentionPeriod = 30 * 24 * time.Hour
	}
	if cfg.Orchestrator.RetentionSweepInterval == 0 {
		cfg.Orchestrator.RetentionSweepInterval = time.Hour
	}
	// Monitor is on unless explicitly disabled
	if !v.IsSet("monitor.enabled") {
		cfg.Monitor.Enabled = true
	}
	if cfg.Monitor.ProbeInterval == 0 {
		cfg.Monitor.ProbeInterval = 60 * time.Second
	}
	if cfg.Monitor.ProbeTimeout == 0 {
		cfg.Monitor.ProbeTimeout = 10 * time.Second
	}
	if cfg.Monitor.RingCapacity == 0 {
		cfg.Monitor.RingCapacity = 1000
	}
	if cfg.Monitor.AlertWindow == 0 {
		cfg.Monitor.AlertWindow = 15 * time.Minute
	}
	if cfg.Monitor.MetricRetention == 0 {
		cfg.Monitor.MetricRetention = 30 * 24 * time.Hour
	}
	if cfg.Monitor.RetentionSweepInterval == 0 {
		cfg.Monitor.RetentionSweepInterval = 6 * time.Hour
	}
	if cfg.Registry.EvictionThreshold == 0 {
		cfg.Registry.EvictionThreshold = 10
	}
	if cfg.Registry.SweepInterval == 0 {
		cfg.Registry.SweepInterval = 5 * time.Minute
	}
	if cfg.Registry.InitTimeout == 0 {
		cfg.Registry.InitTimeout = 30 * time.Second
	}
	if cfg.Webhook.IdempotencyTTL == 0 {
		cfg.Webhook.IdempotencyTTL = 24 * time.Hour
	}
	if !v.IsSet("webhook.require_signature") {
		cfg.Webhook.RequireSignature = true
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	// Validate connection pool settings
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Orchestrator.MaxConcurrentSyncs <= 0 {
		return fmt.Errorf("orchestrator.max_concurrent_syncs must be positive")
	}
	if c.Orchestrator.DefaultMaxRetries < 0 {
		return fmt.Errorf("orchestrator.default_max_retries cannot be negative")
	}
	if c.Monitor.ProbeTimeout >= c.Monitor.ProbeInterval {
		return fmt.Errorf("monitor.probe_timeout (%s) must be shorter than monitor.probe_interval (%s)",
			c.Monitor.ProbeTimeout, c.Monitor.ProbeInterval)
	}

	// Production-specific validations
	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if !c.Webhook.RequireSignature {
			return fmt.Errorf("webhook.require_signature must be true in production")
		}
		// CORS must not use wildcard with credentials
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the host:port address for Redis
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
