package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

const envPrefix = "AKIYA_"

// Reservation submission flows.
const (
	FlowDirect = "direct"
	FlowStaged = "staged"
)

// Draft store backends.
const (
	DraftStoreMemory = "memory"
	DraftStoreRedis  = "redis"
)

// Config captures environment driven configuration values for the reservation service.
type Config struct {
	HTTPPort      int           `env:"HTTP_PORT" envDefault:"8080"`
	SQLitePath    string        `env:"SQLITE_PATH" envDefault:"akiya.db"`
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SecureCookies bool          `env:"SECURE_COOKIES" envDefault:"true"`

	TimezoneName    string `env:"TIMEZONE" envDefault:"Asia/Tokyo"`
	ReservationFlow string `env:"RESERVATION_FLOW" envDefault:"direct"`

	DraftStore    string        `env:"DRAFT_STORE" envDefault:"memory"`
	DraftTTL      time.Duration `env:"DRAFT_TTL" envDefault:"30m"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`

	CatalogSnapshotTTL time.Duration `env:"CATALOG_SNAPSHOT_TTL" envDefault:"10m"`

	// LegacyAdminCode re-enables self-elevation at signup. Unsafe; empty disables it.
	LegacyAdminCode string   `env:"LEGACY_ADMIN_CODE"`
	CORSOrigins     []string `env:"CORS_ORIGINS" envSeparator:","`
	LogLevel        string   `env:"LOG_LEVEL" envDefault:"info"`

	Location *time.Location `env:"-"`
}

// Load parses configuration values from the current process environment.
func Load() (Config, error) {
	return load(env.Options{Prefix: envPrefix})
}

// LoadFromEnvironment parses configuration from the supplied key/value pairs
// instead of the process environment.
func LoadFromEnvironment(environment map[string]string) (Config, error) {
	return load(env.Options{Prefix: envPrefix, Environment: environment})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %w", err)
	}

	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 4)

	cfg.SessionSecret = strings.TrimSpace(cfg.SessionSecret)
	if cfg.SessionSecret == "" {
		missing = append(missing, envPrefix+"SESSION_SECRET")
	}
	if cfg.HTTPPort <= 0 {
		invalid = append(invalid, envPrefix+"HTTP_PORT")
	}
	if strings.TrimSpace(cfg.SQLitePath) == "" {
		invalid = append(invalid, envPrefix+"SQLITE_PATH")
	}
	if cfg.SessionTTL <= 0 {
		invalid = append(invalid, envPrefix+"SESSION_TTL")
	}
	if cfg.DraftTTL <= 0 {
		invalid = append(invalid, envPrefix+"DRAFT_TTL")
	}
	if cfg.CatalogSnapshotTTL <= 0 {
		invalid = append(invalid, envPrefix+"CATALOG_SNAPSHOT_TTL")
	}

	cfg.ReservationFlow = strings.ToLower(strings.TrimSpace(cfg.ReservationFlow))
	if cfg.ReservationFlow != FlowDirect && cfg.ReservationFlow != FlowStaged {
		invalid = append(invalid, envPrefix+"RESERVATION_FLOW")
	}

	cfg.DraftStore = strings.ToLower(strings.TrimSpace(cfg.DraftStore))
	if cfg.DraftStore != DraftStoreMemory && cfg.DraftStore != DraftStoreRedis {
		invalid = append(invalid, envPrefix+"DRAFT_STORE")
	}

	location, err := time.LoadLocation(strings.TrimSpace(cfg.TimezoneName))
	if err != nil {
		invalid = append(invalid, envPrefix+"TIMEZONE")
	} else {
		cfg.Location = location
	}

	origins := make([]string, 0, len(cfg.CORSOrigins))
	for _, origin := range cfg.CORSOrigins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	cfg.CORSOrigins = origins

	cfg.LegacyAdminCode = strings.TrimSpace(cfg.LegacyAdminCode)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("必須の環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("環境変数の値が不正です: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// LegacyAdminCodeEnabled reports whether signup may grant administrator rights.
func (c Config) LegacyAdminCodeEnabled() bool {
	return c.LegacyAdminCode != ""
}

// StagedFlow reports whether reservations go through the draft/confirm flow.
func (c Config) StagedFlow() bool {
	return c.ReservationFlow == FlowStaged
}
