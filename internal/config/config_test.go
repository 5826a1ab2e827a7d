package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "engine: {}\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.DetectionThreshold != 0.6 {
		t.Errorf("Expected default detection threshold 0.6, got %v", cfg.Engine.DetectionThreshold)
	}
	if cfg.Engine.AutoBlockThreshold != 0.8 {
		t.Errorf("Expected default auto-block threshold 0.8, got %v", cfg.Engine.AutoBlockThreshold)
	}
	if cfg.Engine.AutoBlockDurationParsed() != time.Hour {
		t.Errorf("Expected default auto-block duration 1h, got %v", cfg.Engine.AutoBlockDurationParsed())
	}
	if cfg.Engine.NumWorkers != 4 {
		t.Errorf("Expected default worker count 4, got %d", cfg.Engine.NumWorkers)
	}
	if cfg.NATS.Subject != "shieldai.flows.raw" {
		t.Errorf("Unexpected default NATS subject %q", cfg.NATS.Subject)
	}
	if cfg.Ensemble.SupervisedWeight != 0.7 || cfg.Ensemble.AnomalyWeight != 0.3 {
		t.Errorf("Unexpected default ensemble weights %v/%v",
			cfg.Ensemble.SupervisedWeight, cfg.Ensemble.AnomalyWeight)
	}
	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("Unexpected default listen address %q", cfg.API.ListenAddr)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
engine:
  detection_threshold: 0.5
  auto_block_threshold: 0.9
  auto_block_duration: 30m
clickhouse:
  enabled: true
  flush_interval: 2s
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Engine.DetectionThreshold != 0.5 || cfg.Engine.AutoBlockThreshold != 0.9 {
		t.Errorf("Thresholds not overridden: %+v", cfg.Engine)
	}
	if cfg.Engine.AutoBlockDurationParsed() != 30*time.Minute {
		t.Errorf("Expected 30m auto-block duration, got %v", cfg.Engine.AutoBlockDurationParsed())
	}
	if !cfg.ClickHouse.Enabled || cfg.ClickHouse.FlushIntervalParsed() != 2*time.Second {
		t.Errorf("ClickHouse settings not applied: %+v", cfg.ClickHouse)
	}
}

func TestLoadConfigRejectsInvertedThresholds(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
engine:
  detection_threshold: 0.9
  auto_block_threshold: 0.7
`))
	if err == nil {
		t.Fatal("Expected an error for auto_block_threshold < detection_threshold")
	}
}

func TestLoadConfigRejectsBadDuration(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
engine:
  auto_block_duration: soon
`))
	if err == nil {
		t.Fatal("Expected an error for an unparseable auto_block_duration")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Expected an error for a missing config file")
	}
}
