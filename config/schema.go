package config

import "time"

// Config represents the full duty engine configuration
type Config struct {
	Version string `yaml:"version" mapstructure:"version"`

	// HTTP server settings
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Storage settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Background fill scheduler settings
	Scheduler SchedulerConfig `yaml:"scheduler" mapstructure:"scheduler"`

	// Roster behavior settings
	Roster RosterConfig `yaml:"roster" mapstructure:"roster"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Port int    `yaml:"port" mapstructure:"port"`
	Host string `yaml:"host" mapstructure:"host"`
}

// DatabaseConfig configures SQLite storage
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SchedulerConfig configures the rolling-window occurrence fill
type SchedulerConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	CheckInterval time.Duration `yaml:"check_interval" mapstructure:"check_interval"`
	HorizonDays   int           `yaml:"horizon_days" mapstructure:"horizon_days"`
}

// RosterConfig holds roster-wide behavior settings
type RosterConfig struct {
	// DefaultAssignee receives occurrences for templates with no
	// assignee list. Empty means such templates produce no rows.
	DefaultAssignee string `yaml:"default_assignee" mapstructure:"default_assignee"`
}
