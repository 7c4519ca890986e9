package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nwrslept/CallAnalyzer/internal/rules"
	"github.com/nwrslept/CallAnalyzer/internal/types"
)

func TestAdjustHighScoreClearsCriticalFail(t *testing.T) {
	for score := 7; score <= 10; score++ {
		in := types.Analysis{
			ManagerScore:    types.Score(score),
			IsCriticalFail:  true,
			CriticalComment: "yelled at the client",
		}
		out := rules.Adjust(in)
		assert.False(t, out.IsCriticalFail, "score %d", score)
		assert.Empty(t, out.CriticalComment, "score %d", score)
	}
}

func TestAdjustLowScoreKeepsCriticalFail(t *testing.T) {
	for score := 0; score <= 6; score++ {
		in := types.Analysis{
			ManagerScore:    types.Score(score),
			IsCriticalFail:  true,
			CriticalComment: "hung up mid-call",
		}
		out := rules.Adjust(in)
		assert.True(t, out.IsCriticalFail, "score %d", score)
		assert.Equal(t, "hung up mid-call", out.CriticalComment, "score %d", score)
	}
}

func TestAdjustIsPure(t *testing.T) {
	in := types.Analysis{ManagerScore: 9, IsCriticalFail: true, CriticalComment: "x"}
	_ = rules.Adjust(in)
	assert.True(t, in.IsCriticalFail)
	assert.Equal(t, "x", in.CriticalComment)
}

func TestAdjustDoesNotInventFailures(t *testing.T) {
	in := types.Analysis{ManagerScore: 3, IsCriticalFail: false}
	out := rules.Adjust(in)
	assert.False(t, out.IsCriticalFail)
}
