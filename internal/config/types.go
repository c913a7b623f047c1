package config

import (
	"errors"
	"fmt"
	"strings"
)

// Default config values.
const (
	DefaultLoggerLevel          = LogLevelInfo
	DefaultLoggerFormat         = LogFormatJSON
	DefaultRequestTimeoutMs     = 5000
	DefaultPingIntervalSeconds  = 25
	DefaultHTTPTimeoutSeconds   = 30
	DefaultConfigFilePath       = "config/config.yml"
	DefaultWatchReconnectDelayS = 2
)

// LogLevel defines the type for logger levels.
type LogLevel string

// LogFormat defines the type for logger output formats.
type LogFormat string

// Defines the supported logger levels.
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Defines the supported logger output formats.
const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

// Config holds all configuration for the blockbookwatch binary.
type Config struct {
	Client ClientConfig `yaml:"client"`
	Logger LoggerConfig `yaml:"logger"`
	Watch  WatchConfig  `yaml:"watch"`
}

// ClientConfig holds all configuration for constructing the Blockbook client.
type ClientConfig struct {
	Nodes                 []string `yaml:"nodes"`
	DisableTypeValidation bool     `yaml:"disable_type_validation"`
	RequestTimeoutMs      int      `yaml:"request_timeout_ms"`
	PingIntervalSeconds   int      `yaml:"ping_interval_seconds"`
	HTTPTimeoutSeconds    int      `yaml:"http_timeout_seconds"`
}

// LoggerConfig holds all configuration related to logging.
type LoggerConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// WatchConfig holds configuration for the watch loop of the demo binary.
type WatchConfig struct {
	Addresses             []string `yaml:"addresses"`
	ReconnectDelaySeconds int      `yaml:"reconnect_delay_seconds"`
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if len(c.Client.Nodes) == 0 {
		return errors.New("node list (config key: client.nodes) cannot be empty")
	}
	for _, node := range c.Client.Nodes {
		if strings.TrimSpace(node) == "" {
			return errors.New("node list (config key: client.nodes) contains an empty entry")
		}
	}

	if c.Client.RequestTimeoutMs <= 0 {
		return errors.New("request timeout (config key: client.request_timeout_ms) must be greater than 0")
	}
	if c.Client.PingIntervalSeconds <= 0 {
		return errors.New("ping interval (config key: client.ping_interval_seconds) must be greater than 0")
	}
	if c.Client.HTTPTimeoutSeconds <= 0 {
		return errors.New("http timeout (config key: client.http_timeout_seconds) must be greater than 0")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(string(c.Logger.Level))] {
		return fmt.Errorf(
			"invalid logger level (config key: logger.level): '%s', must be one of: debug, info, warn, error",
			c.Logger.Level,
		)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(string(c.Logger.Format))] {
		return fmt.Errorf(
			"invalid logger format (config key: logger.format): '%s', must be one of: json, text",
			c.Logger.Format,
		)
	}

	if c.Watch.ReconnectDelaySeconds < 0 {
		return errors.New("reconnect delay (config key: watch.reconnect_delay_seconds) cannot be negative")
	}

	return nil
}
