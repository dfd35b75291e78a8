// Package config loads rulemerge settings from defaults, an optional YAML or
// TOML file and RULEMERGE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	AppName   = "rulemerge"
	EnvPrefix = "RULEMERGE_"
)

type Config struct {
	Generator   string     `koanf:"generator"`
	RulesDir    string     `koanf:"rules_dir"`
	OutputDir   string     `koanf:"output_dir"`
	Concurrency int        `koanf:"concurrency"`
	Categories  []Category `koanf:"categories"`
	Fetch       Fetch      `koanf:"fetch"`
	Serve       Serve      `koanf:"serve"`
	Log         Log        `koanf:"log"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Category overrides discovery: Dir defaults to <rules_dir>/<name>, Output
// to <output_dir>/<name>.yaml.
type Category struct {
	Name   string `koanf:"name"`
	Dir    string `koanf:"dir"`
	Output string `koanf:"output"`
}

type Fetch struct {
	Timeout       time.Duration `koanf:"timeout"`
	MaxAttempts   int           `koanf:"max_attempts"`
	Backoff       time.Duration `koanf:"backoff"`
	MaxBackoff    time.Duration `koanf:"max_backoff"`
	Concurrency   int           `koanf:"concurrency"`
	RatePerSecond float64       `koanf:"rate_per_second"`
	Burst         int           `koanf:"burst"`
	UserAgent     string        `koanf:"user_agent"`
}

type Serve struct {
	HTTPAddr       string        `koanf:"http_addr"`
	GRPCAddr       string        `koanf:"grpc_addr"`
	Interval       time.Duration `koanf:"interval"`
	BuildTimeout   time.Duration `koanf:"build_timeout"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	Watch          bool          `koanf:"watch"`
	WatchDebounce  time.Duration `koanf:"watch_debounce"`
}

type Log struct {
	Verbosity int `koanf:"verbosity"`
}

var defaults = map[string]any{
	"generator":             AppName,
	"rules_dir":             "rules",
	"output_dir":            "output",
	"concurrency":           4,
	"fetch.timeout":         "30s",
	"fetch.max_attempts":    1,
	"fetch.backoff":         "2s",
	"fetch.max_backoff":     "30s",
	"fetch.concurrency":     4,
	"fetch.rate_per_second": 0,
	"fetch.burst":           1,
	"fetch.user_agent":      AppName + "/1.0",
	"serve.http_addr":       ":8080",
	"serve.grpc_addr":       ":9090",
	"serve.interval":        "6h",
	"serve.build_timeout":   "5m",
	"serve.initial_backoff": "30s",
	"serve.max_backoff":     "30m",
	"serve.watch":           true,
	"serve.watch_debounce":  "500ms",
	"log.verbosity":         0,
}

// Load builds the configuration. An explicit path must exist; otherwise the
// first of ./rulemerge.yaml, ./rulemerge.toml and
// $XDG_CONFIG_HOME/rulemerge/config.yaml that exists is used.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return Config{}, fmt.Errorf("load config from %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envKey maps RULEMERGE_FETCH__MAX_ATTEMPTS to fetch.max_attempts.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Parser()
	}
	return yaml.Parser()
}

func findConfigFile() string {
	candidates := []string{
		AppName + ".yaml",
		AppName + ".toml",
		filepath.Join(xdg.ConfigHome, AppName, "config.yaml"),
		filepath.Join(xdg.ConfigHome, AppName, "config.toml"),
	}
	for _, c := range candidates {
		if st, err := os.Stat(c); err == nil && !st.IsDir() {
			return c
		}
	}
	return ""
}

// Validate checks ranges and required values.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Generator) == "" {
		errs = append(errs, errors.New("generator must not be empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be >= 1, got %d", c.Concurrency))
	}

	seen := make(map[string]bool, len(c.Categories))
	for i, cat := range c.Categories {
		name := strings.TrimSpace(cat.Name)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("categories[%d]: name must not be empty", i))
		case strings.ContainsAny(name, `/\`):
			errs = append(errs, fmt.Errorf("categories[%d]: invalid name %q", i, name))
		case seen[name]:
			errs = append(errs, fmt.Errorf("categories[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		if cat.Dir == "" && c.RulesDir == "" {
			errs = append(errs, fmt.Errorf("categories[%d]: dir required when rules_dir is empty", i))
		}
	}
	if len(c.Categories) == 0 && c.RulesDir == "" {
		errs = append(errs, errors.New("rules_dir must not be empty"))
	}

	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be > 0, got %s", c.Fetch.Timeout))
	}
	if c.Fetch.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("fetch.max_attempts must be >= 1, got %d", c.Fetch.MaxAttempts))
	}
	if c.Fetch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("fetch.concurrency must be >= 1, got %d", c.Fetch.Concurrency))
	}
	if c.Fetch.RatePerSecond < 0 {
		errs = append(errs, fmt.Errorf("fetch.rate_per_second must be >= 0, got %v", c.Fetch.RatePerSecond))
	}

	if c.Serve.Interval < time.Minute {
		errs = append(errs, fmt.Errorf("serve.interval too small (%s), must be >=1m", c.Serve.Interval))
	}
	if c.Serve.Interval > 48*time.Hour {
		errs = append(errs, fmt.Errorf("serve.interval too large (%s), must be <=48h", c.Serve.Interval))
	}
	if c.Serve.BuildTimeout <= 0 {
		errs = append(errs, fmt.Errorf("serve.build_timeout must be > 0, got %s", c.Serve.BuildTimeout))
	}

	return errors.Join(errs...)
}
