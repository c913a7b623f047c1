// Package config implements application configuration loading and management.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads the configuration from a YAML file, filling every section
// with defaults first so a partial file only overrides what it names.
func LoadConfig(filePath string) (*Config, error) {
	cfg := &Config{
		Client: ClientConfig{
			RequestTimeoutMs:    DefaultRequestTimeoutMs,
			PingIntervalSeconds: DefaultPingIntervalSeconds,
			HTTPTimeoutSeconds:  DefaultHTTPTimeoutSeconds,
		},
		Logger: LoggerConfig{
			Level:  DefaultLoggerLevel,
			Format: DefaultLoggerFormat,
		},
		Watch: WatchConfig{
			ReconnectDelaySeconds: DefaultWatchReconnectDelayS,
		},
	}

	loadPath := filePath
	if loadPath == "" {
		loadPath = DefaultConfigFilePath
	}

	fileBytes, err := os.ReadFile(loadPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", loadPath, err)
	}

	type partialConfig struct {
		Client *ClientConfig `yaml:"client"`
		Logger *LoggerConfig `yaml:"logger"`
		Watch  *WatchConfig  `yaml:"watch"`
	}
	var pCfg partialConfig

	if err := yaml.Unmarshal(fileBytes, &pCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", loadPath, err)
	}

	if pCfg.Client != nil {
		cfg.Client.Nodes = pCfg.Client.Nodes
		cfg.Client.DisableTypeValidation = pCfg.Client.DisableTypeValidation
		if pCfg.Client.RequestTimeoutMs > 0 {
			cfg.Client.RequestTimeoutMs = pCfg.Client.RequestTimeoutMs
		}
		if pCfg.Client.PingIntervalSeconds > 0 {
			cfg.Client.PingIntervalSeconds = pCfg.Client.PingIntervalSeconds
		}
		if pCfg.Client.HTTPTimeoutSeconds > 0 {
			cfg.Client.HTTPTimeoutSeconds = pCfg.Client.HTTPTimeoutSeconds
		}
	}
	if pCfg.Logger != nil {
		if pCfg.Logger.Level != "" {
			cfg.Logger.Level = pCfg.Logger.Level
		}
		if pCfg.Logger.Format != "" {
			cfg.Logger.Format = pCfg.Logger.Format
		}
	}
	if pCfg.Watch != nil {
		cfg.Watch.Addresses = pCfg.Watch.Addresses
		if pCfg.Watch.ReconnectDelaySeconds > 0 {
			cfg.Watch.ReconnectDelaySeconds = pCfg.Watch.ReconnectDelaySeconds
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in '%s': %w", loadPath, err)
	}

	return cfg, nil
}
