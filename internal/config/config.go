// Package config loads the server and CLI configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/kkyr/fig"

	"github.com/mmynk/wedplan/internal/calculator"
)

type Server struct {
	Port int `default:"8080"`
	// BaseURL is the public origin share links and download URLs are built on.
	BaseURL         string        `fig:"base_url" default:"http://localhost:8080"`
	CalculatorPath  string        `fig:"calculator_path" default:"/outils/boissons"`
	AllowedOrigins  []string      `fig:"allowed_origins" default:"[*]"`
	ShutdownTimeout time.Duration `fig:"shutdown_timeout" default:"10s"`
}

type DB struct {
	Path string `default:"./data/wedplan.db"`
}

type Auth struct {
	// SecretKey is the managed backend's HS256 secret. Exports need it.
	SecretKey string `fig:"secret_key"`
	Audience  string
}

type Log struct {
	Level string `default:"info"`
}

type Pricing struct {
	// File optionally overrides the built-in pricing table.
	File     string
	Currency string `default:"€"`
}

type Config struct {
	Server  Server
	DB      DB
	Auth    Auth
	Log     Log
	Pricing Pricing
}

const envPrefix = "WEDPLAN" // env prefix for env vars

var ErrConfiguration = errors.New("configuration error")

// Load reads fileName from the working directory or the home directory,
// then applies WEDPLAN_* environment overrides. A missing file is not an
// error; defaults and the environment are used instead.
func Load(fileName string) (*Config, error) {
	config := Config{}
	homeDir, _ := os.UserHomeDir()

	slog.Debug("Loading config", "file", fileName)

	err := fig.Load(&config, fig.File(fileName), fig.Dirs(".", homeDir), fig.UseEnv(envPrefix))
	if err != nil {
		if !strings.Contains(err.Error(), "file not found") {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		slog.Warn("Could not find config file", "file", fileName)

		config = Config{}
		if err := fig.Load(&config, fig.IgnoreFile(), fig.UseEnv(envPrefix)); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks values fig cannot express with tags.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server port %d out of range", ErrConfiguration, c.Server.Port)
	}
	if !strings.HasPrefix(c.Server.CalculatorPath, "/") {
		return fmt.Errorf("%w: calculator path %q must start with /", ErrConfiguration, c.Server.CalculatorPath)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrConfiguration, c.Log.Level)
	}
	return nil
}

// ShareBaseURL is the URL share links point at.
func (c *Config) ShareBaseURL() string {
	return strings.TrimSuffix(c.Server.BaseURL, "/") + c.Server.CalculatorPath
}

// DownloadURL is the prefix stored exports are served under.
func (c *Config) DownloadURL() string {
	return strings.TrimSuffix(c.Server.BaseURL, "/") + "/exports"
}

// PricingTable returns the configured pricing table, or the built-in one
// when no file is set.
func (c *Config) PricingTable() (*calculator.Table, error) {
	if c.Pricing.File == "" {
		return calculator.DefaultTable(), nil
	}

	f, err := os.Open(c.Pricing.File)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	defer f.Close()

	table, err := calculator.LoadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%w: pricing file %s: %w", ErrConfiguration, c.Pricing.File, err)
	}
	return table, nil
}
