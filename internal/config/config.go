// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the service configuration
type Config struct {
	Portal    PortalConfig    `mapstructure:"portal"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// PortalConfig contains portal-level settings
type PortalConfig struct {
	// MaxSessions bounds the session registry.
	MaxSessions int `mapstructure:"max_sessions"`
	// BusName is the well-known D-Bus name to claim.
	BusName string `mapstructure:"bus_name"`
	// Backend overrides discovery; "auto" walks the priority list.
	Backend string `mapstructure:"backend"`
	// EventBacklog is the lifecycle broadcast buffer per subscriber.
	EventBacklog int `mapstructure:"event_backlog"`
}

// RateLimitConfig contains per-session admission control settings
type RateLimitConfig struct {
	MaxEventsPerSec int `mapstructure:"max_events_per_sec"`
	BurstLimit      int `mapstructure:"burst_limit"`
	WindowMs        int `mapstructure:"window_ms"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// MetricsConfig contains the Prometheus exporter settings
type MetricsConfig struct {
	// ListenAddress enables the /metrics endpoint when non-empty.
	ListenAddress string `mapstructure:"listen_address"`
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Portal: PortalConfig{
			MaxSessions:  16,
			BusName:      "org.freedesktop.impl.portal.desktop.wayportal",
			Backend:      "auto",
			EventBacklog: 64,
		},
		RateLimit: RateLimitConfig{
			MaxEventsPerSec: 1000,
			BurstLimit:      100,
			WindowMs:        1000,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Metrics: MetricsConfig{
			ListenAddress: "",
		},
	}

	cfg *Config
)

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wayportal")
	viper.SetConfigType("toml")

	viper.AddConfigPath("/etc/wayportal")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		viper.AddConfigPath(filepath.Join(xdg, "wayportal"))
	} else if home := os.Getenv("HOME"); home != "" {
		viper.AddConfigPath(filepath.Join(home, ".config", "wayportal"))
	}
	viper.AddConfigPath(".")

	viper.SetDefault("portal", DefaultConfig.Portal)
	viper.SetDefault("ratelimit", DefaultConfig.RateLimit)
	viper.SetDefault("log", DefaultConfig.Log)
	viper.SetDefault("metrics", DefaultConfig.Metrics)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		return &DefaultConfig
	}
	return cfg
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}
	if os.Getuid() == 0 {
		return "/etc/wayportal/wayportal.toml"
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wayportal", "wayportal.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/wayportal/wayportal.toml"
	}
	return filepath.Join(home, ".config", "wayportal", "wayportal.toml")
}
