// Package config loads roster service configuration from the process
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/example/cleaning-roster/internal/dates"
)

// Config captures environment driven configuration values for the roster
// service.
type Config struct {
	// HTTPPort is the listen port for the inbound action API.
	HTTPPort int `env:"ROSTER_HTTP_PORT" envDefault:"8080"`
	// SQLiteDSN locates the roster database.
	SQLiteDSN string `env:"ROSTER_SQLITE_DSN" envDefault:"file:roster.db?_pragma=foreign_keys(1)"`
	// Timezone is the single organizational timezone used for week windows
	// and the recurring triggers.
	Timezone string `env:"ROSTER_TIMEZONE" envDefault:"Europe/Prague"`
	// ManagerTokenHash is the bcrypt hash of the shared manager token that
	// gates manager-only actions.
	ManagerTokenHash string `env:"ROSTER_MANAGER_TOKEN_HASH"`
	// ChatBaseURL locates the chat gateway API. When empty the service
	// runs without chat delivery.
	ChatBaseURL string `env:"ROSTER_CHAT_URL"`
	// ChatToken authenticates calls to the chat gateway.
	ChatToken string `env:"ROSTER_CHAT_TOKEN"`
	// AuditChannelRef receives routine audit messages.
	AuditChannelRef string `env:"ROSTER_AUDIT_CHANNEL" envDefault:"audit"`
	// ImportantChannelRef receives messages that need manager attention.
	ImportantChannelRef string `env:"ROSTER_IMPORTANT_CHANNEL" envDefault:"important"`
	// SweepCron fires the weekly notification sweep.
	SweepCron string `env:"ROSTER_SWEEP_CRON" envDefault:"0 8 * * 1"`
	// ReportCron fires the daily report refresh.
	ReportCron string `env:"ROSTER_REPORT_CRON" envDefault:"0 0 * * *"`
	// SemesterURLs are timetable pages probed for the current semester
	// window, in order.
	SemesterURLs []string `env:"ROSTER_SEMESTER_URLS" envSeparator:","`
	// SemesterFallbackStart and SemesterFallbackEnd bound reports when no
	// semester window can be resolved.
	SemesterFallbackStart string `env:"ROSTER_SEMESTER_FALLBACK_START" envDefault:"2000-01-01"`
	SemesterFallbackEnd   string `env:"ROSTER_SEMESTER_FALLBACK_END" envDefault:"2100-01-01"`
	// NotifyTimeout bounds each outbound notification call.
	NotifyTimeout time.Duration `env:"ROSTER_NOTIFY_TIMEOUT" envDefault:"10s"`
	// SeedFile optionally points at a YAML seed applied after migration.
	SeedFile string `env:"ROSTER_SEED_FILE"`
}

// Load parses configuration from the current process environment.
//
// Optional fields fall back to defaults; required and malformed values are
// accumulated and reported together so a misconfigured deployment fails
// with one actionable message.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}

	var missing, invalid []string

	if strings.TrimSpace(cfg.ManagerTokenHash) == "" {
		missing = append(missing, "ROSTER_MANAGER_TOKEN_HASH")
	}
	if cfg.HTTPPort <= 0 {
		invalid = append(invalid, "ROSTER_HTTP_PORT")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		invalid = append(invalid, "ROSTER_TIMEZONE")
	}
	if _, err := dates.Parse(cfg.SemesterFallbackStart); err != nil {
		invalid = append(invalid, "ROSTER_SEMESTER_FALLBACK_START")
	}
	if _, err := dates.Parse(cfg.SemesterFallbackEnd); err != nil {
		invalid = append(invalid, "ROSTER_SEMESTER_FALLBACK_END")
	}
	if cfg.NotifyTimeout <= 0 {
		invalid = append(invalid, "ROSTER_NOTIFY_TIMEOUT")
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("config: required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// Location resolves the configured organizational timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SemesterFallback returns the configured wide-open report window.
func (c Config) SemesterFallback() dates.Span {
	return dates.Span{
		Start: dates.Date(c.SemesterFallbackStart),
		End:   dates.Date(c.SemesterFallbackEnd),
	}
}
