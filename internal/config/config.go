package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the kafkaops server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Jenkins   JenkinsConfig
	RateLimit RateLimitConfig
	Runs      RunsConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// JenkinsConfig describes the CI service every Kafka action runs through.
type JenkinsConfig struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	Poll     PollConfig
}

// PollConfig bounds the trigger and wait loops of the job client.
type PollConfig struct {
	QueueAttempts       int
	QueueInterval       time.Duration
	LatestBuildAttempts int
	LatestBuildInterval time.Duration
	StatusAttempts      int
	StatusInterval      time.Duration
	WaitTimeout         time.Duration
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

type RunsConfig struct {
	StatusTTL time.Duration
}

type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// DefaultPollConfig returns the poll bounds used when no overrides are set.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		QueueAttempts:       10,
		QueueInterval:       2 * time.Second,
		LatestBuildAttempts: 5,
		LatestBuildInterval: 10 * time.Second,
		StatusAttempts:      10,
		StatusInterval:      5 * time.Second,
		WaitTimeout:         300 * time.Second,
	}
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	poll := DefaultPollConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("KAFKAOPS_PORT", 8080),
			Env:  envString("KAFKAOPS_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Jenkins: JenkinsConfig{
			BaseURL:  strings.TrimRight(os.Getenv("JENKINS_URL"), "/"),
			Username: os.Getenv("JENKINS_USER"),
			Password: os.Getenv("JENKINS_PASSWORD"),
			Timeout:  envDuration("JENKINS_TIMEOUT", 30*time.Second),
			Poll: PollConfig{
				QueueAttempts:       envInt("JENKINS_QUEUE_ATTEMPTS", poll.QueueAttempts),
				QueueInterval:       envDuration("JENKINS_QUEUE_INTERVAL", poll.QueueInterval),
				LatestBuildAttempts: envInt("JENKINS_LATEST_BUILD_ATTEMPTS", poll.LatestBuildAttempts),
				LatestBuildInterval: envDuration("JENKINS_LATEST_BUILD_INTERVAL", poll.LatestBuildInterval),
				StatusAttempts:      envInt("JENKINS_STATUS_ATTEMPTS", poll.StatusAttempts),
				StatusInterval:      envDuration("JENKINS_STATUS_INTERVAL", poll.StatusInterval),
				WaitTimeout:         envDuration("JENKINS_WAIT_TIMEOUT", poll.WaitTimeout),
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Runs: RunsConfig{
			StatusTTL: envDuration("RUN_STATUS_TTL", 30*time.Minute),
		},
		Log: LogConfig{
			Level:      strings.ToLower(envString("LOG_LEVEL", "info")),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  envInt("LOG_FILE_MAX_MB", 100),
			MaxBackups: envInt("LOG_FILE_MAX_BACKUPS", 3),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Jenkins.BaseURL == "" {
		return fmt.Errorf("JENKINS_URL is required")
	}
	if !strings.HasPrefix(c.Jenkins.BaseURL, "http://") && !strings.HasPrefix(c.Jenkins.BaseURL, "https://") {
		return fmt.Errorf("JENKINS_URL must start with http:// or https://, got %q", c.Jenkins.BaseURL)
	}
	if (c.Jenkins.Username == "") != (c.Jenkins.Password == "") {
		return fmt.Errorf("JENKINS_USER and JENKINS_PASSWORD must be set together")
	}

	p := c.Jenkins.Poll
	if p.QueueAttempts < 0 || p.LatestBuildAttempts < 0 {
		return fmt.Errorf("JENKINS_QUEUE_ATTEMPTS and JENKINS_LATEST_BUILD_ATTEMPTS must not be negative")
	}
	if p.StatusAttempts <= 0 {
		return fmt.Errorf("JENKINS_STATUS_ATTEMPTS must be positive, got %d", p.StatusAttempts)
	}
	if p.WaitTimeout <= 0 {
		return fmt.Errorf("JENKINS_WAIT_TIMEOUT must be positive, got %s", p.WaitTimeout)
	}

	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.Log.Level)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
