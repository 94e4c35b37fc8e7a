// Package config loads runtime settings from FRAMEBUDGET_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alexanderramin/framebudget/internal/aggregate"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// AliasesOff disables district aliasing when used as the whole
// FRAMEBUDGET_DISTRICT_ALIASES value.
const AliasesOff = "off"

// Config holds every runtime setting.
type Config struct {
	DBPath string `env:"FRAMEBUDGET_DB"`

	// CacheURL is a redis:// URL. Empty disables caching permanently.
	CacheURL              string        `env:"FRAMEBUDGET_CACHE_URL"`
	CacheTTL              time.Duration `env:"FRAMEBUDGET_CACHE_TTL" envDefault:"1h" validate:"gt=0"`
	CacheOpTimeout        time.Duration `env:"FRAMEBUDGET_CACHE_OP_TIMEOUT" envDefault:"500ms" validate:"gt=0"`
	CacheFailureThreshold int           `env:"FRAMEBUDGET_CACHE_FAILURE_THRESHOLD" envDefault:"3" validate:"gte=1"`
	CachePollInterval     time.Duration `env:"FRAMEBUDGET_CACHE_POLL_INTERVAL" envDefault:"60s" validate:"gt=0"`

	LivenessInterval time.Duration `env:"FRAMEBUDGET_LIVENESS_INTERVAL" envDefault:"60s" validate:"gt=0"`
	LivenessTimeout  time.Duration `env:"FRAMEBUDGET_LIVENESS_TIMEOUT" envDefault:"1s" validate:"gt=0,lte=5s"`

	NodeTimeout time.Duration `env:"FRAMEBUDGET_NODE_TIMEOUT" envDefault:"5s" validate:"gte=0"`
	Concurrency int           `env:"FRAMEBUDGET_CONCURRENCY" envDefault:"4" validate:"gte=1,lte=64"`

	// DistrictAliases are regular expressions with a (?P<district>...)
	// group, separated by ";". Unset uses the built-in rule.
	DistrictAliases []string `env:"FRAMEBUDGET_DISTRICT_ALIASES" envSeparator:";"`

	LogLevel slog.Level `env:"FRAMEBUDGET_LOG_LEVEL" envDefault:"WARN"`
}

// Load parses the environment, fills derived defaults and validates the
// result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".framebudget", "framebudget.db")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			parts := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return nil, fmt.Errorf("invalid configuration: %s", strings.Join(parts, ", "))
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// AliasRule compiles the configured district aliases.
func (c *Config) AliasRule() (*aggregate.AliasRule, error) {
	switch {
	case len(c.DistrictAliases) == 0:
		return aggregate.NewAliasRule(aggregate.DefaultDistrictAlias)
	case len(c.DistrictAliases) == 1 && strings.EqualFold(strings.TrimSpace(c.DistrictAliases[0]), AliasesOff):
		return aggregate.NewAliasRule()
	default:
		return aggregate.NewAliasRule(c.DistrictAliases...)
	}
}

// CacheEnabled reports whether a cache backing store is configured.
func (c *Config) CacheEnabled() bool {
	return strings.TrimSpace(c.CacheURL) != ""
}

// NewLogger returns the process logger: text to stderr at the configured
// level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}
