package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Sweeper   SweeperConfig   `yaml:"sweeper"`
	Device    DeviceConfig    `yaml:"device"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Notify    NotifyConfig    `yaml:"notify"`
	Rooms     []RoomConfig    `yaml:"rooms"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// SweeperConfig holds the expiry sweeper configuration.
type SweeperConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// DeviceConfig holds the room controller transport configuration.
type DeviceConfig struct {
	DialTimeoutMS    int           `yaml:"dial_timeout_ms"`
	CommandTimeoutMS int           `yaml:"command_timeout_ms"`
	DialTimeout      time.Duration `yaml:"-"`
	CommandTimeout   time.Duration `yaml:"-"`
}

// TelemetryConfig holds the controller status poller configuration.
type TelemetryConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"`
}

// NotifyConfig holds the configuration for the lifecycle event worker pool.
type NotifyConfig struct {
	Workers int `yaml:"workers"`
	Buffer  int `yaml:"buffer"`
}

// RoomConfig describes a room to seed at startup, including the network
// address of its environment controller.
type RoomConfig struct {
	Name       string `yaml:"name"`
	Capacity   int    `yaml:"capacity"`
	Location   string `yaml:"location"`
	Equipment  string `yaml:"equipment"`
	Controller string `yaml:"controller"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	// Both periodic loops default to the kiosks' 5-second cadence.
	if cfg.Sweeper.IntervalSeconds <= 0 {
		cfg.Sweeper.IntervalSeconds = 5
	}
	cfg.Sweeper.Interval = time.Duration(cfg.Sweeper.IntervalSeconds) * time.Second

	if cfg.Telemetry.IntervalSeconds <= 0 {
		cfg.Telemetry.IntervalSeconds = 5
	}
	cfg.Telemetry.Interval = time.Duration(cfg.Telemetry.IntervalSeconds) * time.Second

	if cfg.Device.DialTimeoutMS <= 0 {
		cfg.Device.DialTimeoutMS = 1000
	}
	cfg.Device.DialTimeout = time.Duration(cfg.Device.DialTimeoutMS) * time.Millisecond

	if cfg.Device.CommandTimeoutMS <= 0 {
		cfg.Device.CommandTimeoutMS = 2000
	}
	cfg.Device.CommandTimeout = time.Duration(cfg.Device.CommandTimeoutMS) * time.Millisecond

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 5
	}

	if cfg.Notify.Workers <= 0 {
		log.Printf("notify.workers is not set or invalid; defaulting to 1")
		cfg.Notify.Workers = 1
	}
	if cfg.Notify.Buffer <= 0 {
		cfg.Notify.Buffer = 32
	}

	return &cfg, nil
}
