package config

import (
	"time"
)

type Config struct {
	// Node configuration
	NodeID   string `json:"node_id"`
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`

	// Telemetry configuration
	Telemetry TelemetryConfig `json:"telemetry"`

	// Attestation configuration
	Attestation AttestationConfig `json:"attestation"`

	// API configuration
	API APIConfig `json:"api"`
}

type TelemetryConfig struct {
	// Endpoint of the staking backend feed. Empty means the built-in
	// sample dataset serves instead.
	Endpoint           string        `json:"endpoint"`
	PollInterval       time.Duration `json:"poll_interval"`
	StalenessThreshold time.Duration `json:"staleness_threshold"`
}

type AttestationConfig struct {
	MaxRetryAttempts int           `json:"max_retry_attempts"`
	InitialBackoff   time.Duration `json:"initial_backoff"`
	MaxBackoff       time.Duration `json:"max_backoff"`
	BackoffFactor    float64       `json:"backoff_factor"`
}

type APIConfig struct {
	ListenAddr string  `json:"listen_addr"`
	EnableCORS bool    `json:"enable_cors"`
	WriteRate  float64 `json:"write_rate"`
	WriteBurst int     `json:"write_burst"`
}

// Load returns a default configuration
// TODO: Add file-based configuration loading
func Load() (*Config, error) {
	return &Config{
		NodeID:   "stakeguard-node",
		DataDir:  "./data",
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			PollInterval:       60 * time.Second,
			StalenessThreshold: 30 * time.Second,
		},
		Attestation: AttestationConfig{
			MaxRetryAttempts: 3,
			InitialBackoff:   200 * time.Millisecond,
			MaxBackoff:       5 * time.Second,
			BackoffFactor:    2.0,
		},
		API: APIConfig{
			ListenAddr: ":8547",
			EnableCORS: true,
			WriteRate:  5, // reports/sec across all clients
			WriteBurst: 10,
		},
	}, nil
}
