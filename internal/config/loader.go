package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"tasksync/internal/statusutil"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tasksync.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Logging.Level, "TASKSYNC_LOG_LEVEL")
	setString(&cfg.Logging.Format, "TASKSYNC_LOG_FORMAT")
	setString(&cfg.Store.Driver, "TASKSYNC_STORE_DRIVER")
	setString(&cfg.Store.Dir, "TASKSYNC_DIR")
	setString(&cfg.Store.DSN, "DATABASE_URL")
	setString(&cfg.Store.DSN, "TASKSYNC_DSN")
	setString(&cfg.View.GroupBy, "TASKSYNC_GROUP_BY")
	setString(&cfg.View.ViewMode, "TASKSYNC_VIEW")
	setString(&cfg.View.SortBy, "TASKSYNC_SORT_BY")
	setString(&cfg.View.Tab, "TASKSYNC_TAB")
	setBool(&cfg.View.IncludeEmpty, "TASKSYNC_INCLUDE_EMPTY")
	setDuration(&cfg.Engine.GatewayTimeout, "TASKSYNC_GATEWAY_TIMEOUT")
	setString(&cfg.Member, "TASKSYNC_MEMBER")
}

// Validate normalizes enum fields and rejects unknown values.
func Validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case "", "sqlite":
		cfg.Store.Driver = "sqlite"
		if strings.TrimSpace(cfg.Store.Dir) == "" {
			return errors.New("store.dir is required for the sqlite driver")
		}
	case "postgres", "postgresql", "pg":
		cfg.Store.Driver = "postgres"
		if strings.TrimSpace(cfg.Store.DSN) == "" {
			return errors.New("store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown store.driver: %q", cfg.Store.Driver)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Format)) {
	case "", "text":
		cfg.Logging.Format = "text"
	case "json":
		cfg.Logging.Format = "json"
	default:
		return fmt.Errorf("unknown logging.format: %q", cfg.Logging.Format)
	}

	gb, err := statusutil.ParseGroupBy(cfg.View.GroupBy)
	if err != nil {
		return err
	}
	cfg.View.GroupBy = string(gb)
	vm, err := statusutil.ParseViewMode(cfg.View.ViewMode)
	if err != nil {
		return err
	}
	cfg.View.ViewMode = string(vm)
	sb, err := statusutil.ParseSortBy(cfg.View.SortBy)
	if err != nil {
		return err
	}
	cfg.View.SortBy = string(sb)
	tab, err := statusutil.ParseContextTab(cfg.View.Tab)
	if err != nil {
		return err
	}
	cfg.View.Tab = string(tab)

	if cfg.Engine.GatewayTimeout < 0 {
		return errors.New("engine.gateway_timeout must not be negative")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
