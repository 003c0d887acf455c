package latency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ZeroBoundsIsNone(t *testing.T) {
	assert.IsType(t, None{}, New(0, 0))
	assert.IsType(t, &Random{}, New(100, 1000))
}

func TestNewRandom_Clamps(t *testing.T) {
	r := NewRandom(-5, -10)
	assert.Equal(t, time.Duration(0), r.Min)
	assert.Equal(t, time.Duration(0), r.Max)

	r = NewRandom(300, 100)
	assert.Equal(t, 300*time.Millisecond, r.Min)
	assert.Equal(t, 300*time.Millisecond, r.Max)
}

func TestRandom_NextWithinBounds(t *testing.T) {
	r := NewRandom(100, 1000)
	for range 1000 {
		d := r.Next()
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.LessOrEqual(t, d, 1000*time.Millisecond)
	}
}

func TestRandom_WaitUsesSleep(t *testing.T) {
	var slept []time.Duration
	r := NewRandom(5, 10)
	r.Sleep = func(d time.Duration) { slept = append(slept, d) }

	r.Wait()
	r.Wait()

	require.Len(t, slept, 2)
	for _, d := range slept {
		assert.GreaterOrEqual(t, d, 5*time.Millisecond)
		assert.LessOrEqual(t, d, 10*time.Millisecond)
	}
}

func TestRandom_WaitSkipsZero(t *testing.T) {
	called := false
	r := &Random{Sleep: func(time.Duration) { called = true }}
	r.Wait()
	assert.False(t, called)
}
