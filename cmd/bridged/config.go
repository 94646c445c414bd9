package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/bridgectl/internal/bridge"
)

// bridged config.toml key mapping to daemon runtime settings.
type fileConfig struct {
	Addr               string   `toml:"addr"`
	StopTimeoutSeconds float64  `toml:"stop_timeout_seconds"`
	SceneName          string   `toml:"scene_name"`
	HostVersion        string   `toml:"host_version"`
	Interpreter        string   `toml:"interpreter"`
	HeartbeatSeconds   float64  `toml:"heartbeat_seconds"`
	StatusEnabled      bool     `toml:"status_enabled"`
	StatusAddr         string   `toml:"status_addr"`
	StatusCORSOrigins  []string `toml:"status_cors_origins"`
}

// bridged loader for TOML config with default overlay.
func loadServiceConfig(path string) (bridge.ServiceConfig, error) {
	cfg := bridge.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return bridge.ServiceConfig{}, fmt.Errorf("load bridged config: %w", err)
	}

	if meta.IsDefined("addr") {
		cfg.Server.ListenAddr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("stop_timeout_seconds") {
		if raw.StopTimeoutSeconds <= 0 {
			return bridge.ServiceConfig{}, fmt.Errorf("load bridged config: stop_timeout_seconds must be positive")
		}
		cfg.Server.StopTimeout = time.Duration(raw.StopTimeoutSeconds * float64(time.Second))
	}
	if meta.IsDefined("scene_name") {
		cfg.SceneName = strings.TrimSpace(raw.SceneName)
	}
	if meta.IsDefined("host_version") {
		cfg.HostVersion = strings.TrimSpace(raw.HostVersion)
	}
	if meta.IsDefined("interpreter") {
		cfg.Interpreter = strings.TrimSpace(raw.Interpreter)
	}
	if meta.IsDefined("heartbeat_seconds") {
		if raw.HeartbeatSeconds <= 0 {
			return bridge.ServiceConfig{}, fmt.Errorf("load bridged config: heartbeat_seconds must be positive")
		}
		cfg.HeartbeatInterval = time.Duration(raw.HeartbeatSeconds * float64(time.Second))
	}
	if meta.IsDefined("status_enabled") {
		cfg.StatusEnabled = raw.StatusEnabled
	}
	if meta.IsDefined("status_addr") {
		cfg.StatusListenAddr = strings.TrimSpace(raw.StatusAddr)
	}
	if meta.IsDefined("status_cors_origins") {
		cfg.StatusCORSOrigins = raw.StatusCORSOrigins
	}

	if strings.TrimSpace(cfg.Server.ListenAddr) == "" {
		return bridge.ServiceConfig{}, fmt.Errorf("load bridged config: addr must not be empty")
	}
	if cfg.StatusEnabled && strings.TrimSpace(cfg.StatusListenAddr) == "" {
		return bridge.ServiceConfig{}, fmt.Errorf("load bridged config: status_addr is required when status_enabled=true")
	}
	return cfg, nil
}
