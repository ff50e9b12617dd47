// Package config assembles the harness configuration.
//
// Precedence, lowest first: built-in defaults, the YAML file named by
// --config, a .env file, the process environment, command-line flags (the
// last layer is applied by the cli package).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eupholio/costparity/internal/parityerr"
)

// Environment variables.
const (
	EnvGoBin    = "GO_BIN"
	EnvCargoBin = "CARGO_BIN"
	EnvRoot     = "COSTPARITY_ROOT"
	EnvWorkers  = "COSTPARITY_WORKERS"
	EnvTimeout  = "COSTPARITY_TIMEOUT"
	EnvLogLevel = "LOG_LEVEL"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// DefaultCases are the fixtures checked when none are configured, relative
// to Root.
var DefaultCases = []string{
	"scripts/parity_fixture_case1.json",
	"scripts/parity_fixture_case3.json",
	"scripts/parity_fixture_transfer.json",
	"scripts/parity_fixture_fractional.json",
	"scripts/parity_fixture_carry_in.json",
	"scripts/parity_fixture_per_event_moving.json",
	"scripts/parity_fixture_per_event_total.json",
	"scripts/parity_fixture_per_year_total.json",
}

// Engine describes how to start one engine. An empty Argv selects the
// built-in command for that engine.
type Engine struct {
	Argv []string          `yaml:"argv"`
	Dir  string            `yaml:"dir"`
	Env  map[string]string `yaml:"env"`
}

// Config is the complete harness configuration.
type Config struct {
	Root       string        `yaml:"root"`
	Cases      []string      `yaml:"cases"`
	Reference  Engine        `yaml:"reference"`
	Candidate  Engine        `yaml:"candidate"`
	GoBin      string        `yaml:"go_bin"`
	CargoBin   string        `yaml:"cargo_bin"`
	Workers    int           `yaml:"workers"`
	Timeout    time.Duration `yaml:"timeout"`
	SpawnRate  float64       `yaml:"spawn_rate"`
	SpawnBurst int           `yaml:"spawn_burst"`
	Format     string        `yaml:"format"`
	LogLevel   string        `yaml:"log_level"`
	Journal    string        `yaml:"journal"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Root:       ".",
		Cases:      append([]string(nil), DefaultCases...),
		Workers:    1,
		// Both default engines compile through go run and cargo run on every call.
		Timeout:    30 * time.Second,
		SpawnBurst: 1,
		Format:     FormatText,
		LogLevel:   "info",
		Journal:    ":memory:",
	}
}

// Options controls Load.
type Options struct {
	// File is an optional YAML config file. A missing file is an error.
	File string
	// EnvFile is the .env file; empty means ".env". A missing file is
	// ignored.
	EnvFile string
	// LookupEnv reads the process environment; nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a Config from defaults, opts.File, the .env file and the
// environment. All failures are CONFIG errors.
func Load(opts Options) (*Config, error) {
	cfg := Default()

	if opts.File != "" {
		if err := cfg.mergeFile(opts.File); err != nil {
			return nil, err
		}
	}

	lookup, err := envLookup(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return parityerr.Wrap(parityerr.Config, path, "read config file", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return parityerr.Wrap(parityerr.Config, path, "decode config file", err)
	}
	return nil
}

// envLookup layers the .env file under the process environment: a key set
// in the environment always wins.
func envLookup(opts Options) (func(string) (string, bool), error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, parityerr.Wrap(parityerr.Config, envFile, "read env file", err)
		}
		dotenv = nil
	}
	return func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvRoot); ok && v != "" {
		c.Root = v
	}
	if v, ok := lookup(EnvGoBin); ok && v != "" {
		c.GoBin = v
	}
	if v, ok := lookup(EnvCargoBin); ok && v != "" {
		c.CargoBin = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup(EnvWorkers); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return parityerr.New(parityerr.Config, EnvWorkers, fmt.Sprintf("invalid integer %q", v))
		}
		c.Workers = n
	}
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return parityerr.New(parityerr.Config, EnvTimeout, fmt.Sprintf("invalid duration %q", v))
		}
		c.Timeout = d
	}
	return nil
}

// Validate checks value ranges. It does not touch the filesystem.
func (c *Config) Validate() error {
	switch {
	case c.Workers < 1:
		return parityerr.New(parityerr.Config, "workers", fmt.Sprintf("must be at least 1, got %d", c.Workers))
	case c.Timeout < 0:
		return parityerr.New(parityerr.Config, "timeout", fmt.Sprintf("must not be negative, got %s", c.Timeout))
	case c.SpawnRate < 0:
		return parityerr.New(parityerr.Config, "spawn_rate", fmt.Sprintf("must not be negative, got %g", c.SpawnRate))
	case c.Format != FormatText && c.Format != FormatJSON:
		return parityerr.New(parityerr.Config, "format", fmt.Sprintf("invalid format %q: must be one of [%s %s]", c.Format, FormatText, FormatJSON))
	case len(c.Cases) == 0:
		return parityerr.New(parityerr.Config, "cases", "no cases configured")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// CasePaths resolves Cases against Root; absolute paths are kept.
func (c *Config) CasePaths() []string {
	paths := make([]string, len(c.Cases))
	for i, p := range c.Cases {
		if filepath.IsAbs(p) {
			paths[i] = p
			continue
		}
		paths[i] = filepath.Join(c.Root, p)
	}
	return paths
}

// ParseLevel maps debug|info|warn|error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, parityerr.New(parityerr.Config, "log_level", fmt.Sprintf("unknown level %q", s))
	}
}
