package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the auction service tunables loaded from config.yaml.
// Environment variables cover deployment concerns (DB, NATS, port);
// the YAML file covers auction behavior.
type Config struct {
	Auction struct {
		CountdownSeconds      int     `yaml:"countdown_seconds"`
		BidIncrement          float64 `yaml:"bid_increment"`
		WindowDurationSeconds int     `yaml:"window_duration_seconds"`
	} `yaml:"auction"`
	Outbox struct {
		PollIntervalSeconds int   `yaml:"poll_interval_seconds"`
		BatchSize           int32 `yaml:"batch_size"`
	} `yaml:"outbox"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Auction.CountdownSeconds = 15
	cfg.Auction.BidIncrement = 0.5
	cfg.Auction.WindowDurationSeconds = 60
	cfg.Outbox.PollIntervalSeconds = 5
	cfg.Outbox.BatchSize = 100
	return &cfg
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

func (c *Config) Countdown() time.Duration {
	return time.Duration(c.Auction.CountdownSeconds) * time.Second
}

func (c *Config) WindowDuration() time.Duration {
	return time.Duration(c.Auction.WindowDurationSeconds) * time.Second
}

func (c *Config) OutboxPollInterval() time.Duration {
	return time.Duration(c.Outbox.PollIntervalSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
