package config

import "github.com/spf13/viper"

// Config holds all runtime configuration for a coverlay session.
// Values are populated from .coverlay.yaml, COVERLAY_* env vars, and CLI flags.
type Config struct {
	SearchRoot    string `mapstructure:"search_root"`
	ReportPath    string `mapstructure:"report_path"`
	DBPath        string `mapstructure:"db_path"`
	SnapshotPath  string `mapstructure:"snapshot_path"`
	TelemetryPath string `mapstructure:"telemetry_path"`
	WalkDepth     int    `mapstructure:"walk_depth"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() Config {
	viper.SetDefault("search_root", ".")
	viper.SetDefault("report_path", "")
	viper.SetDefault("db_path", ".coverlay.db")
	viper.SetDefault("snapshot_path", "")
	viper.SetDefault("telemetry_path", "")
	viper.SetDefault("walk_depth", 16)
	viper.SetDefault("verbose", false)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
