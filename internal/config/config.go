// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Anchor is the default geographic reference point used to project planar
// offsets until a mission supplies an authoritative base location.
type Anchor struct {
	Lat float64 `yaml:"lat"`
	Lon float64 `yaml:"lon"`
}

// Archive configures optional session recording.
type Archive struct {
	NodesPath    string `yaml:"nodes_path"`
	MissionsPath string `yaml:"missions_path"`
}

// ClientConfig is the root configuration for the ground-control client.
type ClientConfig struct {
	ServerURL        string  `yaml:"server_url"`
	StreamPath       string  `yaml:"stream_path"`
	ReconnectDelayMS int     `yaml:"reconnect_delay_ms"`
	HealthIntervalMS int     `yaml:"health_interval_ms"`
	TrailCapacity    int     `yaml:"trail_capacity"`
	Anchor           Anchor  `yaml:"anchor"`
	AdminAddr        string  `yaml:"admin_addr"`
	Archive          Archive `yaml:"archive"`
}

// ReconnectDelay returns the stream reconnect delay as a duration.
func (c *ClientConfig) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMS) * time.Millisecond
}

// HealthInterval returns the health probe interval as a duration.
func (c *ClientConfig) HealthInterval() time.Duration {
	return time.Duration(c.HealthIntervalMS) * time.Millisecond
}

// Load loads YAML config, validates it against a CUE schema, and applies
// defaults. The FALCONMESH_API environment variable overrides server_url.
func Load(configPath, cueSchemaPath string) (*ClientConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg ClientConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if env := os.Getenv("FALCONMESH_API"); env != "" {
		cfg.ServerURL = env
	}
	applyDefaults(&cfg)

	if cfg.ServerURL == "" {
		return nil, fmt.Errorf("server_url is required (or set FALCONMESH_API)")
	}
	return &cfg, nil
}

func applyDefaults(cfg *ClientConfig) {
	if cfg.StreamPath == "" {
		cfg.StreamPath = "/ws/telemetry"
	}
	if cfg.ReconnectDelayMS <= 0 {
		cfg.ReconnectDelayMS = 1500
	}
	if cfg.HealthIntervalMS <= 0 {
		cfg.HealthIntervalMS = 2000
	}
	if cfg.TrailCapacity <= 0 {
		cfg.TrailCapacity = 200
	}
	if cfg.AdminAddr == "" {
		cfg.AdminAddr = ":8090"
	}
}
