package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ClientConfig is the TOML profile consumed by the CLI client.
type ClientConfig struct {
	Name               string  `toml:"name"`
	Addr               string  `toml:"addr"`
	MaxConnectAttempts int     `toml:"max_connect_attempts"`
	RetryDelaySeconds  float64 `toml:"retry_delay_seconds"`
	TimeoutSeconds     float64 `toml:"timeout_seconds"`
}

func LoadClientConfig(path string) (ClientConfig, error) {
	var cfg ClientConfig
	if err := loadToml(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if cfg.Name == "" {
		cfg.Name = "bridgectl"
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8765"
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("client config missing name")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return fmt.Errorf("client config missing addr")
	}
	if strings.HasPrefix(addr, ":") {
		return fmt.Errorf("client config addr requires a host")
	}
	if cfg.MaxConnectAttempts < 0 {
		return fmt.Errorf("client config max_connect_attempts must not be negative")
	}
	if cfg.RetryDelaySeconds < 0 {
		return fmt.Errorf("client config retry_delay_seconds must not be negative")
	}
	if cfg.TimeoutSeconds < 0 {
		return fmt.Errorf("client config timeout_seconds must not be negative")
	}
	return nil
}
