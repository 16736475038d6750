package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
	coreagg "github.com/smart-student/stats-engine/internal/core/aggregation"
)

// Backends.
const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
	BackendMemory   = "memory"
)

// Config represents the top-level application config.
type Config struct {
	Server   ServerConfig          `koanf:"server"`
	Records  RecordsConfig         `koanf:"records"`
	Database DatabaseConfig        `koanf:"database"`
	Mongo    MongoConfig           `koanf:"mongo"`
	Cache    CacheConfig           `koanf:"cache"`
	Rebuild  RebuildConfig         `koanf:"rebuild"`
	Schedule ScheduleConfig        `koanf:"schedule"`
	Grading  coreagg.GradingPolicy `koanf:"grading"`
	Auth     AuthConfig            `koanf:"auth"`
	Trigger  TriggerConfig         `koanf:"trigger"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

// RecordsConfig selects where raw attendance and grade records are read from.
type RecordsConfig struct {
	Backend string `koanf:"backend"` // postgres | mongo | memory
	Fixture string `koanf:"fixture"` // YAML fixture for the memory backend
}

// DatabaseConfig is the PostgreSQL connection. An empty DSN is not a startup
// error: every rebuild then reports a configuration failure.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type MongoConfig struct {
	URI            string        `koanf:"uri"`
	Database       string        `koanf:"database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

type CacheConfig struct {
	Backend string `koanf:"backend"` // postgres | memory
}

type RebuildConfig struct {
	WorkerCount     int           `koanf:"worker_count"`
	MaxDuration     time.Duration `koanf:"max_duration"`
	OnDemandTimeout time.Duration `koanf:"on_demand_timeout"`
	CallableTimeout time.Duration `koanf:"callable_timeout"`
	Debounce        time.Duration `koanf:"debounce"`
	StaleAfter      time.Duration `koanf:"stale_after"`
}

type ScheduleConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Cron      string `koanf:"cron"`
	SweepCron string `koanf:"sweep_cron"`
	Timezone  string `koanf:"timezone"`
}

// Location resolves Timezone.
func (c ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// AuthConfig protects the callable surface. The callable route is not
// registered when JWTSecret is empty.
type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	Audience  string        `koanf:"audience"`
	Leeway    time.Duration `koanf:"leeway"`
}

type TriggerConfig struct {
	HTTPEnabled   bool          `koanf:"http_enabled"`
	ListenEnabled bool          `koanf:"listen_enabled"`
	Channel       string        `koanf:"channel"`
	Timeout       time.Duration `koanf:"timeout"`
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	switch c.Records.Backend {
	case BackendPostgres, BackendMongo:
	case BackendMemory:
		if c.Records.Fixture != "" {
			if _, err := os.Stat(c.Records.Fixture); err != nil {
				return fmt.Errorf("records.fixture %q is not accessible: %w", c.Records.Fixture, err)
			}
		}
	default:
		return fmt.Errorf("unsupported records.backend %q", c.Records.Backend)
	}
	if c.Cache.Backend != BackendPostgres && c.Cache.Backend != BackendMemory {
		return fmt.Errorf("unsupported cache.backend %q", c.Cache.Backend)
	}
	if c.Records.Backend == BackendMongo && strings.TrimSpace(c.Mongo.Database) == "" {
		return fmt.Errorf("mongo.database is required for the mongo records backend")
	}

	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if c.Rebuild.WorkerCount <= 0 {
		return fmt.Errorf("rebuild.worker_count must be > 0")
	}
	for name, d := range map[string]time.Duration{
		"rebuild.max_duration":      c.Rebuild.MaxDuration,
		"rebuild.on_demand_timeout": c.Rebuild.OnDemandTimeout,
		"rebuild.callable_timeout":  c.Rebuild.CallableTimeout,
		"rebuild.debounce":          c.Rebuild.Debounce,
		"rebuild.stale_after":       c.Rebuild.StaleAfter,
		"trigger.timeout":           c.Trigger.Timeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	if c.Rebuild.StaleAfter < c.Rebuild.MaxDuration {
		return fmt.Errorf("rebuild.stale_after (%s) must be >= rebuild.max_duration (%s)", c.Rebuild.StaleAfter, c.Rebuild.MaxDuration)
	}

	if c.Schedule.Enabled {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(c.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid schedule.cron %q: %w", c.Schedule.Cron, err)
		}
		if c.Schedule.SweepCron != "" {
			if _, err := parser.Parse(c.Schedule.SweepCron); err != nil {
				return fmt.Errorf("invalid schedule.sweep_cron %q: %w", c.Schedule.SweepCron, err)
			}
		}
		if _, err := c.Schedule.Location(); err != nil {
			return fmt.Errorf("invalid schedule.timezone %q: %w", c.Schedule.Timezone, err)
		}
	}

	if err := c.Grading.Validate(); err != nil {
		return fmt.Errorf("grading: %w", err)
	}

	if c.Trigger.ListenEnabled && strings.TrimSpace(c.Trigger.Channel) == "" {
		return fmt.Errorf("trigger.channel is required when trigger.listen_enabled is set")
	}
	return nil
}

// Load parses config from defaults, the optional YAML file and STATS_ env
// vars, in that order, then validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":               8080,
		"server.host":               "0.0.0.0",
		"server.max_body_size_mb":   1,
		"server.mode":               "release",
		"records.backend":           BackendPostgres,
		"records.fixture":           "",
		"database.dsn":              "",
		"database.max_open_conns":   25,
		"database.max_idle_conns":   25,
		"database.auto_migrate":     true,
		"mongo.uri":                 "",
		"mongo.database":            "smart_student",
		"mongo.connect_timeout":     "10s",
		"cache.backend":             BackendPostgres,
		"rebuild.worker_count":      8,
		"rebuild.max_duration":      "9m",
		"rebuild.on_demand_timeout": "60s",
		"rebuild.callable_timeout":  "540s",
		"rebuild.debounce":          "5m",
		"rebuild.stale_after":       "15m",
		"schedule.enabled":          true,
		"schedule.cron":             "0 2 * * *",
		"schedule.sweep_cron":       "@every 1m",
		"schedule.timezone":         "America/Santiago",
		"grading.mode":              coreagg.ModeLegacy,
		"grading.pass_percent":      60.0,
		"grading.numeric_min":       1.0,
		"grading.numeric_max":       7.0,
		"grading.numeric_pass":      4.0,
		"auth.jwt_secret":           "",
		"auth.issuer":               "",
		"auth.audience":             "",
		"auth.leeway":               "30s",
		"trigger.http_enabled":      true,
		"trigger.listen_enabled":    false,
		"trigger.channel":           "attendance_created",
		"trigger.timeout":           "9m",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("STATS_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STATS_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
