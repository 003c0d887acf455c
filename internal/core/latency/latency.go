// Package latency injects artificial delay in front of auth operations so a
// local store behaves like a network-bound backend.
package latency

import (
	"math/rand/v2"
	"time"
)

type Delayer interface {
	Wait()
}

// None never waits. Use it in tests.
type None struct{}

func (None) Wait() {}

// Random sleeps for a uniformly random duration in [Min, Max].
type Random struct {
	Min, Max time.Duration
	Sleep    func(time.Duration) // defaults to time.Sleep
}

func NewRandom(minMs, maxMs int) *Random {
	if minMs < 0 {
		minMs = 0
	}
	if maxMs < minMs {
		maxMs = minMs
	}
	return &Random{
		Min: time.Duration(minMs) * time.Millisecond,
		Max: time.Duration(maxMs) * time.Millisecond,
	}
}

// Next returns the duration the next Wait would use.
func (r *Random) Next() time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.N(r.Max-r.Min+1)
}

func (r *Random) Wait() {
	d := r.Next()
	if d <= 0 {
		return
	}
	if r.Sleep != nil {
		r.Sleep(d)
		return
	}
	time.Sleep(d)
}

// New picks None when both bounds are zero.
func New(minMs, maxMs int) Delayer {
	if minMs <= 0 && maxMs <= 0 {
		return None{}
	}
	return NewRandom(minMs, maxMs)
}
