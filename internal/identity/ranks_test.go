package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTierFor_Boundaries(t *testing.T) {
	assert.Equal(t, "Lead III", TierFor(0))
	assert.Equal(t, "Lead III", TierFor(99))
	assert.Equal(t, "Lead II", TierFor(100))
	assert.Equal(t, "Pencil III", TierFor(300))
	assert.Equal(t, "Quill Pen I", TierFor(1700))
	assert.Equal(t, "Quill Pen I", TierFor(99999), "top division is open-ended")
}

func TestTierFor_NegativeClampsToLowest(t *testing.T) {
	assert.Equal(t, "Lead III", TierFor(-40))
}

func TestRankFor_ProgressWithinDivision(t *testing.T) {
	info := RankFor(150)
	assert.Equal(t, "Lead II", info.Tier)
	assert.Equal(t, 100, info.TierFloor)
	assert.Equal(t, 200, info.TierCeiling)
	assert.Equal(t, 50, info.ProgressPercent)
}

func TestRankFor_TopDivisionSaturates(t *testing.T) {
	info := RankFor(2500)
	assert.Equal(t, "Quill Pen I", info.Tier)
	assert.Equal(t, 100, info.ProgressPercent)
}
