// telemetry/telemetry.go

// Validator telemetry ingestion
// Features:
// - ValidatorTelemetry records keyed by operator address
// - Pluggable Provider interface for chain-specific fetchers
// - Built-in sample dataset used as a fallback when no feed is reachable

package telemetry

import (
	"context"
)

// ValidatorTelemetry is one observation of a validator, immutable per
// fetch cycle. Zero values are score-neutral: the scoring path must
// produce an in-range score for an all-default record.
type ValidatorTelemetry struct {
	OperatorID        string  `json:"operator_id"`
	Jailed            bool    `json:"jailed"`
	Slashed           bool    `json:"slashed"`
	UptimePct         float64 `json:"uptime_pct"`
	MissedBlocks      int     `json:"missed_blocks"`
	RecentRewardCount int     `json:"recent_reward_count"`
	RecentVoteCount   int     `json:"recent_vote_count"`
}

// Provider fetches the current telemetry snapshot for all tracked
// validators. Implementations own transport and normalization.
type Provider interface {
	Fetch(ctx context.Context) ([]ValidatorTelemetry, error)
}

// ProviderFunc adapts a function to the Provider interface
type ProviderFunc func(ctx context.Context) ([]ValidatorTelemetry, error)

func (f ProviderFunc) Fetch(ctx context.Context) ([]ValidatorTelemetry, error) {
	return f(ctx)
}

// SampleDataset returns the built-in fallback dataset. Served when the
// real feed has never succeeded so score consumers always have a view.
func SampleDataset() []ValidatorTelemetry {
	return []ValidatorTelemetry{
		{
			OperatorID:        "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321",
			Jailed:            false,
			Slashed:           false,
			UptimePct:         99.95,
			MissedBlocks:      0,
			RecentRewardCount: 12,
			RecentVoteCount:   48,
		},
		{
			OperatorID:        "0x1f2e3d4c5b6a79881726354493827160aabbccdd",
			Jailed:            false,
			Slashed:           false,
			UptimePct:         98.40,
			MissedBlocks:      6,
			RecentRewardCount: 8,
			RecentVoteCount:   31,
		},
		{
			OperatorID:        "0x9988776655443322110f0e0d0c0b0a0908070605",
			Jailed:            true,
			Slashed:           false,
			UptimePct:         71.20,
			MissedBlocks:      15,
			RecentRewardCount: 0,
			RecentVoteCount:   0,
		},
	}
}

// SampleProvider serves the built-in dataset. Used in dev mode and as
// the monitor's fallback source.
type SampleProvider struct{}

func (SampleProvider) Fetch(ctx context.Context) ([]ValidatorTelemetry, error) {
	return SampleDataset(), nil
}
