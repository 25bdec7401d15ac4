// Package config loads todo settings from todo.yaml, environment variables
// and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/todolist/internal/datasource"
	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/store/jsonstore"
	"github.com/idilsaglam/todolist/internal/ui"
)

// DefaultFileName is looked up in the working directory when no --config is
// given.
const DefaultFileName = "todo.yaml"

// Config is the full set of user settings.
type Config struct {
	Source       string `yaml:"source"`
	Path         string `yaml:"path"`
	Addr         string `yaml:"addr"`
	LatencyMS    int    `yaml:"latencyMs"`
	StrictUpdate bool   `yaml:"strictUpdate"`
	// Seed is nil when the file has no seed key, which means the sample
	// items. An explicit `seed: []` starts empty.
	Seed     []model.CreateInput `yaml:"seed"`
	Theme    string              `yaml:"theme"`
	LogLevel string              `yaml:"logLevel"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Source:   string(datasource.KindEphemeral),
		Theme:    "classic",
		LogLevel: "warn",
	}
}

// Load reads path over the defaults. A missing file is not an error; an
// empty path means DefaultFileName in the working directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("getwd: %w", err)
		}
		path = filepath.Join(wd, DefaultFileName)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from TODO_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}
	set := func(k string, dst *string) {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			*dst = v
		}
	}
	set("TODO_SOURCE", &c.Source)
	set("TODO_PATH", &c.Path)
	set("TODO_ADDR", &c.Addr)
	set("TODO_THEME", &c.Theme)
	set("TODO_LOG_LEVEL", &c.LogLevel)
	if v := strings.TrimSpace(getenv("TODO_LATENCY_MS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TODO_LATENCY_MS: not a number: %q", v)
		}
		c.LatencyMS = n
	}
	if v := strings.TrimSpace(getenv("TODO_STRICT_UPDATE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TODO_STRICT_UPDATE: %w", err)
		}
		c.StrictUpdate = b
	}
	return nil
}

// Kind returns the configured data source kind.
func (c Config) Kind() (datasource.Kind, error) {
	return datasource.ParseKind(c.Source)
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	kind, err := c.Kind()
	if err != nil {
		return err
	}
	if c.LatencyMS < 0 {
		return fmt.Errorf("latency must not be negative: %d", c.LatencyMS)
	}
	if kind == datasource.KindRemote && c.Addr == "" {
		return errors.New("remote source needs an addr")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if c.Theme != "" && !slices.Contains(ui.Themes(), strings.ToLower(c.Theme)) {
		return fmt.Errorf("unknown theme %q (want one of %s)", c.Theme, strings.Join(ui.Themes(), ", "))
	}
	return nil
}

// DataSourceOptions converts the settings for datasource.New. File kinds
// without a path fall back to a file in the working directory.
func (c Config) DataSourceOptions() (datasource.Options, error) {
	opts := datasource.Options{
		Latency:      time.Duration(c.LatencyMS) * time.Millisecond,
		Seed:         c.Seed,
		StrictUpdate: c.StrictUpdate,
		Path:         c.Path,
		Addr:         c.Addr,
	}
	kind, err := c.Kind()
	if err != nil {
		return opts, err
	}
	if kind.NeedsPath() && opts.Path == "" {
		p, err := jsonstore.DefaultPath()
		if err != nil {
			return opts, err
		}
		if kind != datasource.KindJSON {
			p = strings.TrimSuffix(p, filepath.Ext(p)) + "." + string(kind)
		}
		opts.Path = p
	}
	return opts, nil
}

// Level returns the parsed log level, defaulting to warn.
func (c Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.WarnLevel
	}
	return lvl
}
