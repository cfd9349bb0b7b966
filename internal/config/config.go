package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	IrisBaseURL string
	IrisWSURL   string

	BotPrefix string

	XUserID    string
	XUserEmail string
	XSessionID string

	// Record stores. Postgres wins over SQLite as the primary; Redis mirrors
	// whichever primary is in use, or stands alone.
	RedisURL    string
	DatabaseURL string
	SQLitePath  string

	// EgressMode is http, ws or auto.
	EgressMode   string
	EgressDryRun bool

	AllowedRooms []string

	Duel DuelConfig
}

// DuelConfig holds the game tunables.
type DuelConfig struct {
	InitialClock      time.Duration `env:"DUEL_INITIAL_CLOCK" envDefault:"10m"`
	OfferTTL          time.Duration `env:"DUEL_OFFER_TTL" envDefault:"5m"`
	WatchdogInterval  time.Duration `env:"DUEL_WATCHDOG_INTERVAL" envDefault:"10s"`
	InactivityTimeout time.Duration `env:"DUEL_INACTIVITY_TIMEOUT" envDefault:"120s"`
	SweepFlagFall     bool          `env:"DUEL_SWEEP_FLAG_FALL" envDefault:"false"`
	RecordTTL         time.Duration `env:"DUEL_RECORD_TTL" envDefault:"720h"`
	Ineligible        []string      `env:"DUEL_INELIGIBLE_IDS" envSeparator:","`
}

func (d DuelConfig) validate() error {
	switch {
	case d.InitialClock <= 0:
		return errors.New("DUEL_INITIAL_CLOCK must be positive")
	case d.OfferTTL <= 0:
		return errors.New("DUEL_OFFER_TTL must be positive")
	case d.WatchdogInterval <= 0:
		return errors.New("DUEL_WATCHDOG_INTERVAL must be positive")
	case d.InactivityTimeout <= 0:
		return errors.New("DUEL_INACTIVITY_TIMEOUT must be positive")
	}
	return nil
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{EgressMode: "http"}

	cfg.IrisBaseURL = strings.TrimSpace(os.Getenv("IRIS_BASE_URL"))
	cfg.IrisWSURL = strings.TrimSpace(os.Getenv("IRIS_WS_URL"))
	cfg.BotPrefix = strings.TrimSpace(os.Getenv("BOT_PREFIX"))

	cfg.XUserID = strings.TrimSpace(os.Getenv("X_USER_ID"))
	cfg.XUserEmail = strings.TrimSpace(os.Getenv("X_USER_EMAIL"))
	cfg.XSessionID = strings.TrimSpace(os.Getenv("X_SESSION_ID"))

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.SQLitePath = strings.TrimSpace(os.Getenv("SQLITE_PATH"))

	if v := strings.ToLower(strings.TrimSpace(os.Getenv("IRIS_EGRESS"))); v != "" {
		cfg.EgressMode = v
	}
	cfg.EgressDryRun = strings.EqualFold(strings.TrimSpace(os.Getenv("IRIS_EGRESS_DRYRUN")), "true")

	cfg.AllowedRooms = splitList(os.Getenv("ALLOWED_ROOMS"))
	if len(cfg.AllowedRooms) == 0 {
		cfg.AllowedRooms = splitList(os.Getenv("CHESS_ALLOWED_ROOMS"))
	}

	if err := env.Parse(&cfg.Duel); err != nil {
		return nil, fmt.Errorf("parse duel config: %w", err)
	}
	if err := cfg.Duel.validate(); err != nil {
		return nil, err
	}

	if cfg.IrisBaseURL == "" {
		return nil, errors.New("IRIS_BASE_URL is required")
	}
	if cfg.IrisWSURL == "" {
		return nil, errors.New("IRIS_WS_URL is required")
	}
	if cfg.BotPrefix == "" {
		return nil, errors.New("BOT_PREFIX is required")
	}

	return cfg, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
