// Package config loads orchestrator configuration from the environment,
// with an optional YAML overlay for deployments that ship a config file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Docker    DockerConfig    `yaml:"docker"`
	Agent     AgentConfig     `yaml:"agent"`
	Redis     RedisConfig     `yaml:"redis"`
	Routing   RoutingConfig   `yaml:"routing"`
	VNC       VNCConfig       `yaml:"vnc"`
	Logging   LogConfig       `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port      string `envconfig:"PORT" default:"8080" yaml:"port"`
	Host      string `envconfig:"HOST" default:"0.0.0.0" yaml:"host"`
	PublicDNS string `envconfig:"PUBLIC_DNS" default:"" yaml:"public_dns"`
}

// DockerConfig holds browser container configuration.
type DockerConfig struct {
	Image         string        `envconfig:"CHROME_IMAGE" default:"abhipi04/custom-chrome-novnc" yaml:"image"`
	ShmSizeMB     int64         `envconfig:"CHROME_SHM_MB" default:"2048" yaml:"shm_size_mb"`
	LaunchTimeout time.Duration `envconfig:"CHROME_LAUNCH_TIMEOUT" default:"30s" yaml:"launch_timeout"`
	StopTimeout   time.Duration `envconfig:"CHROME_STOP_TIMEOUT" default:"5s" yaml:"stop_timeout"`
	ReapInterval  time.Duration `envconfig:"CHROME_REAP_INTERVAL" default:"1m" yaml:"reap_interval"`
}

// AgentConfig holds browsing agent subprocess configuration.
type AgentConfig struct {
	Command    string        `envconfig:"AGENT_COMMAND" default:"python3" yaml:"command"`
	Args       []string      `envconfig:"AGENT_ARGS" default:"-u,browsing_agent.py" yaml:"args"`
	WorkDir    string        `envconfig:"AGENT_DIR" default:"." yaml:"work_dir"`
	Model      string        `envconfig:"AGENT_MODEL" default:"gpt-4o" yaml:"model"`
	Timeout    time.Duration `envconfig:"SESSION_TIMEOUT" default:"80s" yaml:"timeout"`
	UsePTY     bool          `envconfig:"AGENT_PTY" default:"false" yaml:"use_pty"`
	KillGrace  time.Duration `envconfig:"AGENT_KILL_GRACE" default:"2s" yaml:"kill_grace"`
	Transcript string        `envconfig:"TRANSCRIPT_DIR" default:"/tmp/browsergrid/transcripts" yaml:"transcript_dir"`
}

// RedisConfig holds session routing store configuration.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"" yaml:"addr"`
	Password string `envconfig:"REDIS_PASSWORD" default:"" yaml:"password"`
	DB       int    `envconfig:"REDIS_DB" default:"0" yaml:"db"`
}

// RoutingConfig holds stickiness token configuration.
type RoutingConfig struct {
	TokenSecret string        `envconfig:"STICKINESS_SECRET" default:"" yaml:"token_secret"`
	TokenTTL    time.Duration `envconfig:"STICKINESS_TTL" default:"30m" yaml:"token_ttl"`
	RouteTTL    time.Duration `envconfig:"ROUTE_TTL" default:"5m" yaml:"route_ttl"`
}

// VNCConfig holds noVNC viewer configuration.
type VNCConfig struct {
	Password string `envconfig:"VNC_PASSWORD" default:"12345678" yaml:"password"`
	WSPath   string `envconfig:"VNC_WS_PATH" default:"websockify" yaml:"ws_path"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" yaml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" yaml:"enabled"`
}

// Load loads configuration from environment variables. If CONFIG_FILE
// names a YAML file, its values are applied on top of the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		Docker: DockerConfig{
			Image:         "abhipi04/custom-chrome-novnc",
			ShmSizeMB:     2048,
			LaunchTimeout: 30 * time.Second,
			StopTimeout:   5 * time.Second,
			ReapInterval:  time.Minute,
		},
		Agent: AgentConfig{
			Command:    "python3",
			Args:       []string{"-u", "browsing_agent.py"},
			WorkDir:    ".",
			Model:      "gpt-4o",
			Timeout:    80 * time.Second,
			KillGrace:  2 * time.Second,
			Transcript: "/tmp/browsergrid/transcripts",
		},
		Routing: RoutingConfig{
			TokenTTL: 30 * time.Minute,
			RouteTTL: 5 * time.Minute,
		},
		VNC: VNCConfig{
			Password: "12345678",
			WSPath:   "websockify",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// overlayFile applies a YAML config file over the current values.
func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
