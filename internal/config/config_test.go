package config

import (
	"os"
	"path/filepath"
	"testing"
)

const testSchema = `
server_url?:         string
reconnect_delay_ms?: int & >=0
trail_capacity?:     int & >=0
anchor?: {
	lat: number & >=-90 & <=90
	lon: number & >=-180 & <=180
}
`

func writeFiles(t *testing.T, yamlBody string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "client.yaml")
	cuePath := filepath.Join(dir, "client.cue")
	if err := os.WriteFile(cfgPath, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	if err := os.WriteFile(cuePath, []byte(testSchema), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return cfgPath, cuePath
}

func TestLoadConfig_Valid(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `
server_url: "http://control-api:8000"
reconnect_delay_ms: 500
anchor:
  lat: 39.9334
  lon: 32.8597
`)

	cfg, err := Load(cfgPath, cuePath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ServerURL != "http://control-api:8000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.ReconnectDelayMS != 500 {
		t.Errorf("ReconnectDelayMS = %d, want 500", cfg.ReconnectDelayMS)
	}
	if cfg.Anchor.Lat != 39.9334 {
		t.Errorf("Anchor.Lat = %f", cfg.Anchor.Lat)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `server_url: "http://control-api:8000"`)

	cfg, err := Load(cfgPath, cuePath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ReconnectDelayMS != 1500 || cfg.HealthIntervalMS != 2000 {
		t.Errorf("delay defaults wrong: %+v", cfg)
	}
	if cfg.TrailCapacity != 200 {
		t.Errorf("TrailCapacity = %d, want 200", cfg.TrailCapacity)
	}
	if cfg.StreamPath != "/ws/telemetry" {
		t.Errorf("StreamPath = %q", cfg.StreamPath)
	}
}

func TestLoadConfig_SchemaViolation(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `
server_url: "http://control-api:8000"
anchor:
  lat: 200
  lon: 0
`)

	if _, err := Load(cfgPath, cuePath); err == nil {
		t.Error("expected schema validation error for lat=200")
	}
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	cfgPath, cuePath := writeFiles(t, `server_url: "http://control-api:8000"`)
	t.Setenv("FALCONMESH_API", "http://override:9000")

	cfg, err := Load(cfgPath, cuePath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.ServerURL != "http://override:9000" {
		t.Errorf("env override ignored: %q", cfg.ServerURL)
	}
}
