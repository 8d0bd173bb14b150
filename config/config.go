package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Remote     RemoteConfig     `yaml:"remote"`
	Engine     EngineConfig     `yaml:"engine"`
	Foreground ForegroundConfig `yaml:"foreground"`
	Background BackgroundConfig `yaml:"background"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the control/ingest API configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// RemoteConfig holds the attendance backend connection parameters. The
// timeout is the only latency bound on in-flight calls; there is no
// cancellation beyond context teardown.
type RemoteConfig struct {
	BaseURL        string        `yaml:"base_url"`
	AuthToken      string        `yaml:"auth_token"`
	Namespace      string        `yaml:"namespace"`
	UserID         string        `yaml:"user_id"`
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	Timeout        time.Duration `yaml:"-"`
}

// EngineConfig holds the attendance state machine tuning. The cooldown and
// lock windows are empirically chosen constants, kept configurable on
// purpose rather than derived from a stronger requirement.
type EngineConfig struct {
	MaxAccuracyMeters   float64 `yaml:"max_accuracy_meters"`
	MaxSpeedMPS         float64 `yaml:"max_speed_mps"`
	CooldownSeconds     int     `yaml:"cooldown_seconds"`
	WindowPadMinutes    int     `yaml:"window_pad_minutes"`
	NotifyDedupSeconds  int     `yaml:"notify_dedup_seconds"`
	DefaultWorkingHours string  `yaml:"default_working_hours"`
	Timezone            string  `yaml:"timezone"`
}

// ForegroundConfig tunes the foreground watcher path.
type ForegroundConfig struct {
	Enabled           bool `yaml:"enabled"`
	QueueSize         int  `yaml:"queue_size"`
	DebounceSeconds   int  `yaml:"debounce_seconds"`
	GlobalLockSeconds int  `yaml:"global_lock_seconds"`
}

// BackgroundConfig tunes the background runner path, which stands in for the
// OS-scheduled task and runs with no shared memory with the foreground path.
type BackgroundConfig struct {
	Enabled           bool          `yaml:"enabled"`
	IntervalSeconds   int           `yaml:"interval_seconds"`
	Interval          time.Duration `yaml:"-"`
	GlobalLockSeconds int           `yaml:"global_lock_seconds"`
}

// DatabaseConfig holds the shared persisted store connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
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

	if cfg.Remote.TimeoutSeconds <= 0 {
		cfg.Remote.TimeoutSeconds = 15
	}
	cfg.Remote.Timeout = time.Duration(cfg.Remote.TimeoutSeconds) * time.Second

	if cfg.Engine.MaxAccuracyMeters <= 0 {
		cfg.Engine.MaxAccuracyMeters = 100
	}
	if cfg.Engine.MaxSpeedMPS <= 0 {
		cfg.Engine.MaxSpeedMPS = 27.8 // ~100 km/h, a proxy for "in a vehicle"
	}
	if cfg.Engine.CooldownSeconds <= 0 {
		cfg.Engine.CooldownSeconds = 60
	}
	if cfg.Engine.WindowPadMinutes <= 0 {
		cfg.Engine.WindowPadMinutes = 60
	}
	if cfg.Engine.NotifyDedupSeconds <= 0 {
		cfg.Engine.NotifyDedupSeconds = 120
	}
	if cfg.Engine.DefaultWorkingHours == "" {
		cfg.Engine.DefaultWorkingHours = "08:00-17:00"
	}
	if cfg.Engine.Timezone == "" {
		cfg.Engine.Timezone = "Local"
	}

	if cfg.Foreground.QueueSize <= 0 {
		cfg.Foreground.QueueSize = 16
	}
	if cfg.Foreground.DebounceSeconds <= 0 {
		cfg.Foreground.DebounceSeconds = 3
	}
	if cfg.Foreground.GlobalLockSeconds <= 0 {
		cfg.Foreground.GlobalLockSeconds = 30
	}

	if cfg.Background.IntervalSeconds <= 0 {
		cfg.Background.IntervalSeconds = 300
	}
	cfg.Background.Interval = time.Duration(cfg.Background.IntervalSeconds) * time.Second
	if cfg.Background.GlobalLockSeconds <= 0 {
		cfg.Background.GlobalLockSeconds = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "./data/attendance.db"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}
