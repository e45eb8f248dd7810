package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"predictive-maintenance-backend/internal/analytics"
	"predictive-maintenance-backend/internal/model"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Analytics  AnalyticsConfig  `yaml:"analytics"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Model      ModelConfig      `yaml:"model"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	Webhooks   []WebhookConfig  `yaml:"webhooks"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Influx     InfluxConfig     `yaml:"influx"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
	CacheTTLSeconds int      `yaml:"cache_ttl_seconds"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds the database connection configuration.
// Driver is "postgres" (default) or "sqlite".
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
}

// AnalyticsConfig tunes the statistics, anomaly, health and schedule rules.
type AnalyticsConfig struct {
	AnomalySigma            float64         `yaml:"anomaly_sigma"`
	AnomalyWindow           int             `yaml:"anomaly_window"`
	AnomalyMetrics          []string        `yaml:"anomaly_metrics"`
	HealthWindow            int             `yaml:"health_window"`
	HealthPenalties         []PenaltyConfig `yaml:"health_penalties"`
	DefaultHealthScore      float64         `yaml:"default_health_score"`
	MaintenanceIntervalDays int             `yaml:"maintenance_interval_days"`
	MaintenanceHistory      int             `yaml:"maintenance_history"`
	StatsMaxRows            int             `yaml:"stats_max_rows"`
	ZeroFillMissing         bool            `yaml:"zero_fill_missing"`
}

// PenaltyConfig is one linear health penalty.
type PenaltyConfig struct {
	Metric   string  `yaml:"metric"`
	Baseline float64 `yaml:"baseline"`
	Slope    float64 `yaml:"slope"`
}

// MonitorConfig controls the background health sweep.
type MonitorConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	PageSize        int           `yaml:"page_size"`
}

// ModelConfig points at an optional failure prediction model artifact.
type ModelConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig enables bearer-token auth on mutating routes when SecretKey is set.
type AuthConfig struct {
	SecretKey string `yaml:"secret_key"`
	Algorithm string `yaml:"algorithm"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WebhookConfig is one alert delivery target.
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// InfluxConfig controls mirroring of readings into InfluxDB.
type InfluxConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

// Load reads the configuration from the given path. A .env file in the
// working directory, when present, is loaded first so secrets can be kept
// out of the YAML file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	applyEnv(&cfg)
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets the environment override secrets and connection strings.
func applyEnv(cfg *Config) {
	overrides := []struct {
		env    string
		target *string
	}{
		{"DATABASE_URL", &cfg.Database.DSN},
		{"SECRET_KEY", &cfg.Auth.SecretKey},
		{"VAPID_PUBLIC_KEY", &cfg.Push.PublicKey},
		{"VAPID_PRIVATE_KEY", &cfg.Push.PrivateKey},
		{"INFLUXDB_URL", &cfg.Influx.URL},
		{"INFLUXDB_TOKEN", &cfg.Influx.Token},
		{"MODEL_PATH", &cfg.Model.Path},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.target = v
		}
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 20
	}
	if cfg.Server.CacheTTLSeconds < 0 {
		cfg.Server.CacheTTLSeconds = 0
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Driver != "postgres" && cfg.Database.Driver != "sqlite" {
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", cfg.Database.Driver)
	}

	if cfg.Monitor.IntervalSeconds <= 0 {
		cfg.Monitor.IntervalSeconds = 300
	}
	cfg.Monitor.Interval = time.Duration(cfg.Monitor.IntervalSeconds) * time.Second
	if cfg.Monitor.PageSize <= 0 {
		cfg.Monitor.PageSize = 100
	}

	if cfg.Auth.Algorithm == "" {
		cfg.Auth.Algorithm = "HS256"
	}
	if cfg.Auth.Algorithm != "HS256" {
		return fmt.Errorf("auth.algorithm %q is not supported, only HS256", cfg.Auth.Algorithm)
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.Influx.Enabled && (cfg.Influx.URL == "" || cfg.Influx.Org == "" || cfg.Influx.Bucket == "") {
		return fmt.Errorf("influx is enabled but url, org or bucket is missing")
	}

	if _, err := cfg.Analytics.Params(); err != nil {
		return err
	}
	return nil
}

// Params converts the YAML analytics section into analytics.Params.
// Unset values take the analytics package defaults.
func (c AnalyticsConfig) Params() (analytics.Params, error) {
	p := analytics.Params{
		AnomalySigma:        c.AnomalySigma,
		AnomalyWindow:       c.AnomalyWindow,
		HealthWindow:        c.HealthWindow,
		DefaultHealthScore:  c.DefaultHealthScore,
		MaintenanceInterval: c.MaintenanceIntervalDays,
		MaintenanceHistory:  c.MaintenanceHistory,
		StatsMaxRows:        c.StatsMaxRows,
		ZeroFillMissing:     c.ZeroFillMissing,
	}
	for _, name := range c.AnomalyMetrics {
		m, ok := model.ParseMetric(name)
		if !ok {
			return analytics.Params{}, fmt.Errorf("analytics.anomaly_metrics: unknown metric %q", name)
		}
		p.AnomalyMetrics = append(p.AnomalyMetrics, m)
	}
	for _, pc := range c.HealthPenalties {
		m, ok := model.ParseMetric(pc.Metric)
		if !ok {
			return analytics.Params{}, fmt.Errorf("analytics.health_penalties: unknown metric %q", pc.Metric)
		}
		if pc.Slope < 0 {
			return analytics.Params{}, fmt.Errorf("analytics.health_penalties: slope for %q must not be negative", pc.Metric)
		}
		p.HealthPenalties = append(p.HealthPenalties, analytics.Penalty{Metric: m, Baseline: pc.Baseline, Slope: pc.Slope})
	}
	return p, nil
}

// Analyzer builds the analytics engine for this configuration.
func (c *Config) Analyzer() (*analytics.Analyzer, error) {
	p, err := c.Analytics.Params()
	if err != nil {
		return nil, err
	}
	return analytics.New(p), nil
}
