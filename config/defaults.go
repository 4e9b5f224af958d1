package config

import (
	"os"
	"time"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Server: ServerConfig{
			Port: 8080,
			Host: "",
		},
		Database: DatabaseConfig{
			Path: "duty.db",
		},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			CheckInterval: time.Hour,
			HorizonDays:   14,
		},
		Roster: RosterConfig{
			DefaultAssignee: "",
		},
	}
}

// WriteDefault writes the default configuration to a file
func WriteDefault(path string) error {
	content := `# Duty Engine Configuration
version: "1"

# HTTP server
server:
  port: 8080
  host: ""

# SQLite storage
database:
  path: duty.db

# Background occurrence fill
scheduler:
  enabled: true
  check_interval: 1h
  # How far ahead to materialize occurrences
  horizon_days: 14

# Roster behavior
roster:
  # Fallback assignee for templates without an assignee list.
  # Empty means such templates are skipped during fills.
  default_assignee: ""
`
	return os.WriteFile(path, []byte(content), 0644)
}
