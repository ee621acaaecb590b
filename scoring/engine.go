// scoring/engine.go

// Risk scoring engine for validator telemetry
// Features:
// - Fixed base-plus-adjustment scoring model, clamped to [0, 100]
// - Pure and total: any telemetry record scores, including all defaults
// - Single shared classification function (Safe / Monitor / Unsafe)
// - Deterministic: identical telemetry always yields identical score

package scoring

import (
	"github.com/stakeguard-labs/go-stakeguard/telemetry"
)

// Scoring model constants. These are contract, not configuration:
// every consumer of a score or label relies on the same thresholds.
const (
	BaseScore = 80

	JailedPenalty       = 40
	SlashedPenalty      = 50
	HighUptimeBonus     = 10
	SevereMissedPenalty = 20
	MinorMissedPenalty  = 10
	RewardBonus         = 5
	VoteBonus           = 5

	HighUptimeThreshold   = 99.9
	SevereMissedThreshold = 10
	MinorMissedThreshold  = 3

	MinScore = 0
	MaxScore = 100

	SafeThreshold    = 80
	MonitorThreshold = 50
)

// Classification is the three-tier action label derived from a score
type Classification string

const (
	ClassSafe    Classification = "safe"
	ClassMonitor Classification = "monitor"
	ClassUnsafe  Classification = "unsafe"
)

// RiskScore is a bounded score with its derived classification
type RiskScore struct {
	Value          int            `json:"value"`
	Classification Classification `json:"classification"`
}

// Score converts a telemetry record into a bounded risk score.
// Adjustments are independent and additive, applied in a fixed order,
// then clamped. There is no error path: missing fields are
// score-neutral zero values.
func Score(t telemetry.ValidatorTelemetry) RiskScore {
	value := BaseScore

	if t.Jailed {
		value -= JailedPenalty
	}
	if t.Slashed {
		value -= SlashedPenalty
	}
	if t.UptimePct >= HighUptimeThreshold {
		value += HighUptimeBonus
	}
	if t.MissedBlocks > SevereMissedThreshold {
		value -= SevereMissedPenalty
	} else if t.MissedBlocks > MinorMissedThreshold {
		value -= MinorMissedPenalty
	}
	if t.RecentRewardCount > 0 {
		value += RewardBonus
	}
	if t.RecentVoteCount > 0 {
		value += VoteBonus
	}

	value = Clamp(value)

	return RiskScore{
		Value:          value,
		Classification: Classify(value),
	}
}

// Classify maps a score value to its action label. This is the only
// place the thresholds live; every color or action label in the system
// derives from this function.
func Classify(value int) Classification {
	switch {
	case value >= SafeThreshold:
		return ClassSafe
	case value >= MonitorThreshold:
		return ClassMonitor
	default:
		return ClassUnsafe
	}
}

// Clamp bounds a score value to [MinScore, MaxScore]
func Clamp(value int) int {
	if value < MinScore {
		return MinScore
	}
	if value > MaxScore {
		return MaxScore
	}
	return value
}
