// Package config loads tasksync settings.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Logging Logging `yaml:"logging"`
	Store   Store   `yaml:"store"`
	View    View    `yaml:"view"`
	Engine  Engine  `yaml:"engine"`
	// Member is the current member id used by the mine/team context tabs.
	Member string `yaml:"member"`
}

type Logging struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|text
}

type Store struct {
	Driver string `yaml:"driver"` // sqlite|postgres
	Dir    string `yaml:"dir"`
	DSN    string `yaml:"dsn"`
}

type View struct {
	GroupBy      string `yaml:"group_by"`
	ViewMode     string `yaml:"view_mode"`
	SortBy       string `yaml:"sort_by"`
	Tab          string `yaml:"tab"`
	IncludeEmpty bool   `yaml:"include_empty"`
}

type Engine struct {
	// GatewayTimeout bounds each persistence call; zero leaves it to the backend.
	GatewayTimeout time.Duration `yaml:"gateway_timeout"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Logging: Logging{Level: "warn", Format: "text"},
		Store:   Store{Driver: "sqlite", Dir: ".tasksync"},
		View: View{
			GroupBy:      "status",
			ViewMode:     "list",
			Tab:          "all",
			IncludeEmpty: true,
		},
		Engine: Engine{GatewayTimeout: 15 * time.Second},
	}
}
