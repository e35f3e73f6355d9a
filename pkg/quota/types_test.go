package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitAllows(t *testing.T) {
	assert.True(t, Unlimited().Allows(0))
	assert.True(t, Unlimited().Allows(1<<40))

	limit := Bounded(10)
	assert.True(t, limit.Allows(0))
	assert.True(t, limit.Allows(9))
	assert.False(t, limit.Allows(10))
	assert.False(t, limit.Allows(11))
}

func TestLimitFromStored(t *testing.T) {
	assert.True(t, limitFromStored(-1).IsUnlimited())
	assert.True(t, limitFromStored(-5).IsUnlimited())

	bounded := limitFromStored(42)
	assert.False(t, bounded.IsUnlimited())
	assert.Equal(t, int64(42), bounded.Value())

	zero := limitFromStored(0)
	assert.False(t, zero.IsUnlimited())
	assert.False(t, zero.Allows(0))
}

func TestPercentUsed(t *testing.T) {
	assert.Equal(t, float64(0), Unlimited().PercentUsed(1000000))
	assert.Equal(t, float64(50), Bounded(10).PercentUsed(5))
	assert.Equal(t, float64(100), Bounded(10).PercentUsed(10))
	assert.Equal(t, float64(150), Bounded(10).PercentUsed(15))

	// A zero-valued bound must not divide by zero.
	assert.Equal(t, float64(0), Bounded(0).PercentUsed(0))
	assert.Equal(t, float64(100), Bounded(0).PercentUsed(3))
}

func TestLevelForPercentage(t *testing.T) {
	assert.Equal(t, LevelLow, LevelForPercentage(0))
	assert.Equal(t, LevelLow, LevelForPercentage(79.9))
	assert.Equal(t, LevelMedium, LevelForPercentage(80))
	assert.Equal(t, LevelMedium, LevelForPercentage(89.9))
	assert.Equal(t, LevelHigh, LevelForPercentage(90))
	assert.Equal(t, LevelHigh, LevelForPercentage(99.9))
	assert.Equal(t, LevelCritical, LevelForPercentage(100))
	assert.Equal(t, LevelCritical, LevelForPercentage(120))
}
