// Package config loads server settings from an optional YAML file, an
// optional .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"

	"github.com/devvo333/Event-Venue-Generator-sub002/internal/middleware"
)

// Config is the server configuration.
type Config struct {
	Port                 int      `yaml:"port"`
	Domains              []string `yaml:"domains"`
	LogLevel             string   `yaml:"log_level"`
	MaxMessageSize       int      `yaml:"max_message_size"`
	MessagesPerSecond    float64  `yaml:"messages_per_second"`
	BurstSize            int      `yaml:"burst_size"`
	SendQueueSize        int      `yaml:"send_queue_size"`
	ConnectionsPerMinute int      `yaml:"connections_per_minute"` // per IP; 0 disables
	ConnectionBurst      int      `yaml:"connection_burst"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Port:              8080,
		LogLevel:          "info",
		MaxMessageSize:    middleware.DefaultMaxMessageSize,
		MessagesPerSecond: middleware.DefaultMessagesPerSecond,
		BurstSize:         middleware.DefaultBurstSize,
		SendQueueSize:     256,

		ConnectionsPerMinute: 10,
		ConnectionBurst:      middleware.DefaultIPBurst,
	}
}

// Load builds a Config. Either path may be empty; a missing .env file
// is not an error, a missing YAML file named explicitly is.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("DOMAINS"); ok {
		c.Domains = ParseDomains(v)
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("MAX_MESSAGE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_MESSAGE_SIZE: %w", err)
		}
		c.MaxMessageSize = n
	}
	if v, ok := os.LookupEnv("MESSAGES_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MESSAGES_PER_SECOND: %w", err)
		}
		c.MessagesPerSecond = f
	}
	if v, ok := os.LookupEnv("BURST_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BURST_SIZE: %w", err)
		}
		c.BurstSize = n
	}
	if v, ok := os.LookupEnv("SEND_QUEUE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SEND_QUEUE_SIZE: %w", err)
		}
		c.SendQueueSize = n
	}
	if v, ok := os.LookupEnv("CONNECTIONS_PER_MINUTE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONNECTIONS_PER_MINUTE: %w", err)
		}
		c.ConnectionsPerMinute = n
	}
	if v, ok := os.LookupEnv("CONNECTION_BURST"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CONNECTION_BURST: %w", err)
		}
		c.ConnectionBurst = n
	}
	return nil
}

// ParseDomains splits a comma separated origin list, dropping blanks.
func ParseDomains(s string) []string {
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// RateLimit returns the connection guard rails described by c.
func (c Config) RateLimit() *middleware.RateLimit {
	return middleware.NewRateLimit(c.MaxMessageSize, c.MessagesPerSecond, c.BurstSize, c.SendQueueSize)
}

// IPRateLimit returns the per-IP handshake limiter described by c.
func (c Config) IPRateLimit() *middleware.IPRateLimit {
	if c.ConnectionsPerMinute <= 0 {
		return middleware.NewIPRateLimit(0, 0, 0)
	}
	return middleware.NewIPRateLimit(time.Minute/time.Duration(c.ConnectionsPerMinute), c.ConnectionBurst, middleware.DefaultIPIdle)
}

// Level maps LogLevel onto the gommon log levels. Unknown names fall
// back to info.
func (c Config) Level() log.Lvl {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
