package scoring

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakeguard-labs/go-stakeguard/telemetry"
)

func TestScoreHealthyValidator(t *testing.T) {
	// 80 + 10 (uptime) + 5 (rewards) + 5 (votes) = 100
	risk := Score(telemetry.ValidatorTelemetry{
		OperatorID:        "V1",
		Jailed:            false,
		Slashed:           false,
		UptimePct:         99.95,
		MissedBlocks:      0,
		RecentRewardCount: 1,
		RecentVoteCount:   1,
	})

	require.Equal(t, 100, risk.Value)
	require.Equal(t, ClassSafe, risk.Classification)
}

func TestScoreJailedValidator(t *testing.T) {
	// max(0, 80 - 40 - 20) = 20
	risk := Score(telemetry.ValidatorTelemetry{
		OperatorID:        "V2",
		Jailed:            true,
		Slashed:           false,
		UptimePct:         50,
		MissedBlocks:      15,
		RecentRewardCount: 0,
		RecentVoteCount:   0,
	})

	require.Equal(t, 20, risk.Value)
	require.Equal(t, ClassUnsafe, risk.Classification)
}

func TestScoreDefaultTelemetry(t *testing.T) {
	// All-zero telemetry must score in range, no error path exists
	risk := Score(telemetry.ValidatorTelemetry{})

	require.Equal(t, BaseScore, risk.Value)
	require.Equal(t, ClassSafe, risk.Classification)
}

func TestScoreClampInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		rec := telemetry.ValidatorTelemetry{
			Jailed:            rng.Intn(2) == 0,
			Slashed:           rng.Intn(2) == 0,
			UptimePct:         rng.Float64() * 100,
			MissedBlocks:      rng.Intn(50),
			RecentRewardCount: rng.Intn(20),
			RecentVoteCount:   rng.Intn(20),
		}

		risk := Score(rec)
		require.GreaterOrEqual(t, risk.Value, MinScore)
		require.LessOrEqual(t, risk.Value, MaxScore)
		require.Equal(t, Classify(risk.Value), risk.Classification)
	}
}

func TestScoreIsPure(t *testing.T) {
	rec := telemetry.ValidatorTelemetry{
		Jailed:            true,
		UptimePct:         99.91,
		MissedBlocks:      5,
		RecentRewardCount: 2,
	}

	first := Score(rec)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, Score(rec))
	}
}

func TestScoreMissedBlocksMonotonic(t *testing.T) {
	base := telemetry.ValidatorTelemetry{
		UptimePct:         99.0,
		RecentRewardCount: 1,
		RecentVoteCount:   1,
	}

	prev := MaxScore
	for missed := 0; missed <= 30; missed++ {
		rec := base
		rec.MissedBlocks = missed
		value := Score(rec).Value
		require.LessOrEqual(t, value, prev,
			"increasing missedBlocks must never increase the score")
		prev = value
	}
}

func TestScoreJailedNeverHelps(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		rec := telemetry.ValidatorTelemetry{
			Slashed:           rng.Intn(2) == 0,
			UptimePct:         rng.Float64() * 100,
			MissedBlocks:      rng.Intn(30),
			RecentRewardCount: rng.Intn(5),
			RecentVoteCount:   rng.Intn(5),
		}

		free := rec
		free.Jailed = false
		jailed := rec
		jailed.Jailed = true

		require.LessOrEqual(t, Score(jailed).Value, Score(free).Value)
	}
}

func TestClassifyThresholds(t *testing.T) {
	tests := []struct {
		value int
		want  Classification
	}{
		{100, ClassSafe},
		{80, ClassSafe},
		{79, ClassMonitor},
		{50, ClassMonitor},
		{49, ClassUnsafe},
		{0, ClassUnsafe},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, Classify(tt.value), "value %d", tt.value)
	}
}
