package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig holds the scoring and mitigation thresholds plus the
// ingestion worker pool sizing.
type EngineConfig struct {
	// DetectionThreshold is the score at or above which a flow is marked
	// malicious and an alert is raised.
	DetectionThreshold float64 `yaml:"detection_threshold"`
	// AutoBlockThreshold is the score at or above which the mitigation
	// controller creates a block rule. Must be >= DetectionThreshold.
	AutoBlockThreshold float64 `yaml:"auto_block_threshold"`
	// AutoBlockDuration is how long an automatic block stays in force.
	AutoBlockDuration string `yaml:"auto_block_duration"`
	NumWorkers        int    `yaml:"num_workers"`
	SizeOfFlowChannel int    `yaml:"size_of_flow_channel"`
	// FlowHistory is how many scored flows the in-memory store keeps
	// per domain for dashboard queries.
	FlowHistory int `yaml:"flow_history"`
}

// EnsembleConfig holds the scoring ensemble combination policy.
type EnsembleConfig struct {
	// SupervisedWeight and AnomalyWeight are the fixed combination
	// weights. They are normalized at load time if they do not sum to 1.
	SupervisedWeight float64 `yaml:"supervised_weight"`
	AnomalyWeight    float64 `yaml:"anomaly_weight"`
	// DegradedScore is returned while no model is loaded. Low but
	// non-zero so the pipeline keeps flowing with degraded confidence.
	DegradedScore float64 `yaml:"degraded_score"`
	// ModelPath is where a trained model handle is persisted (gob).
	ModelPath string `yaml:"model_path"`
}

// NATSConfig holds the flow transport settings.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// ClickHouseConfig holds connection details for the scored-flow mirror.
type ClickHouseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// BatchSize flows are buffered before each insert.
	BatchSize int `yaml:"batch_size"`
	// FlushInterval bounds how long a partial batch may wait.
	FlushInterval string `yaml:"flush_interval"`
}

// BroadcasterConfig sizes the per-subscriber event queues.
type BroadcasterConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// BlocklistConfig controls the optional compaction sweep of the block store.
type BlocklistConfig struct {
	SweepInterval string `yaml:"sweep_interval"`
}

// SMTPConfig holds the settings for the alert email digest.
type SMTPConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// To is a comma-separated recipient list.
	To string `yaml:"to"`
	// DigestInterval is how often buffered alerts are flushed into one
	// summary email.
	DigestInterval string `yaml:"digest_interval"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Ensemble    EnsembleConfig    `yaml:"ensemble"`
	NATS        NATSConfig        `yaml:"nats"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	Broadcaster BroadcasterConfig `yaml:"broadcaster"`
	Blocklist   BlocklistConfig   `yaml:"blocklist"`
	SMTP        SMTPConfig        `yaml:"smtp"`
	API         APIConfig         `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file, applies defaults
// and validates the threshold invariant.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Engine.DetectionThreshold == 0 {
		c.Engine.DetectionThreshold = 0.6
	}
	if c.Engine.AutoBlockThreshold == 0 {
		c.Engine.AutoBlockThreshold = 0.8
	}
	if c.Engine.AutoBlockDuration == "" {
		c.Engine.AutoBlockDuration = "1h"
	}
	if c.Engine.NumWorkers <= 0 {
		c.Engine.NumWorkers = 4
	}
	if c.Engine.SizeOfFlowChannel <= 0 {
		c.Engine.SizeOfFlowChannel = 1024
	}
	if c.Engine.FlowHistory <= 0 {
		c.Engine.FlowHistory = 1000
	}
	if c.Ensemble.SupervisedWeight == 0 && c.Ensemble.AnomalyWeight == 0 {
		c.Ensemble.SupervisedWeight = 0.7
		c.Ensemble.AnomalyWeight = 0.3
	}
	if c.Ensemble.DegradedScore == 0 {
		c.Ensemble.DegradedScore = 0.1
	}
	if c.Broadcaster.QueueSize <= 0 {
		c.Broadcaster.QueueSize = 64
	}
	if c.ClickHouse.BatchSize <= 0 {
		c.ClickHouse.BatchSize = 500
	}
	if c.ClickHouse.FlushInterval == "" {
		c.ClickHouse.FlushInterval = "5s"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "shieldai.flows.raw"
	}
	if c.SMTP.DigestInterval == "" {
		c.SMTP.DigestInterval = "5m"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
}

// Validate checks invariants that cannot be repaired by defaulting.
func (c *Config) Validate() error {
	if c.Engine.AutoBlockThreshold < c.Engine.DetectionThreshold {
		return fmt.Errorf("auto_block_threshold (%.2f) must be >= detection_threshold (%.2f)",
			c.Engine.AutoBlockThreshold, c.Engine.DetectionThreshold)
	}
	if c.Engine.DetectionThreshold < 0 || c.Engine.DetectionThreshold > 1 {
		return fmt.Errorf("detection_threshold must be in [0,1], got %.2f", c.Engine.DetectionThreshold)
	}
	if c.Engine.AutoBlockThreshold > 1 {
		return fmt.Errorf("auto_block_threshold must be in [0,1], got %.2f", c.Engine.AutoBlockThreshold)
	}
	if _, err := time.ParseDuration(c.Engine.AutoBlockDuration); err != nil {
		return fmt.Errorf("invalid auto_block_duration: %w", err)
	}
	if s := c.Ensemble.SupervisedWeight + c.Ensemble.AnomalyWeight; s <= 0 {
		return fmt.Errorf("ensemble weights must sum to a positive value")
	}
	return nil
}

// AutoBlockDuration returns the parsed auto-block duration. Validate has
// already rejected unparseable values.
func (c *EngineConfig) AutoBlockDurationParsed() time.Duration {
	d, _ := time.ParseDuration(c.AutoBlockDuration)
	return d
}

// FlushIntervalParsed returns the parsed batch flush interval, falling
// back to the default when the value does not parse.
func (c *ClickHouseConfig) FlushIntervalParsed() time.Duration {
	d, err := time.ParseDuration(c.FlushInterval)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// DigestIntervalParsed returns the parsed digest interval, falling back
// to the default when the value does not parse.
func (c *SMTPConfig) DigestIntervalParsed() time.Duration {
	d, err := time.ParseDuration(c.DigestInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// SweepIntervalParsed returns the parsed block-store sweep interval.
// Zero disables the sweep.
func (c *BlocklistConfig) SweepIntervalParsed() time.Duration {
	if c.SweepInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 0
	}
	return d
}
