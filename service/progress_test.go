package service

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress_MonotonicAndCapped(t *testing.T) {
	p := NewProgress(rand.New(rand.NewSource(1)))

	prev := 0.0
	for i := 0; i < 200; i++ {
		v := p.Step()
		require.GreaterOrEqual(t, v, prev)
		require.LessOrEqual(t, v, progressCeiling)
		if prev < progressCeiling {
			step := v - prev
			require.True(t, step > 0 && step < 3, "step %v out of range", step)
		}
		prev = v
	}
	assert.Equal(t, progressCeiling, p.Value())

	p.Complete()
	assert.Equal(t, progressDone, p.Value())
}

func TestTipRotator_NoRepeatUntilExhausted(t *testing.T) {
	r := NewTipRotator(nil, rand.New(rand.NewSource(7)))

	seen := map[string]bool{}
	for i := 0; i < len(DefaultTips); i++ {
		tip := r.Next()
		require.False(t, seen[tip], "tip %q repeated before the set was exhausted", tip)
		seen[tip] = true
	}
	assert.Len(t, seen, len(DefaultTips))

	// next round starts over
	assert.Contains(t, DefaultTips, r.Next())
}

func TestTipRotator_CustomTips(t *testing.T) {
	r := NewTipRotator([]string{"only"}, rand.New(rand.NewSource(1)))
	assert.Equal(t, "only", r.Next())
	assert.Equal(t, "only", r.Next())
}
