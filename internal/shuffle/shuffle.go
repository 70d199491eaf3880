// Package shuffle provides the deterministic per-user permutation used for the
// first pass of the brand feed and for the onboarding swipe deck.
//
// The permutation is a Fisher–Yates shuffle driven by a mulberry32 generator, so a
// given seed always yields the same order on every platform.
package shuffle

import (
	"time"
)

// Generator is a mulberry32 pseudo-random generator. Each call to Float64
// advances the state by exactly one step.
type Generator struct {
	state uint32
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed uint32) *Generator {
	return &Generator{state: seed}
}

// Float64 returns the next value in [0, 1).
func (g *Generator) Float64() float64 {
	g.state += 0x6D2B79F5
	t := g.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return float64(t^t>>14) / 4294967296.0
}

// Intn returns a value in [0, n). n must be positive.
func (g *Generator) Intn(n int) int {
	return int(g.Float64() * float64(n))
}

// Shuffle returns a new slice holding a permutation of items. The input is not
// modified. The same seed always produces the same permutation.
func Shuffle[T any](items []T, seed uint32) []T {
	out := make([]T, len(items))
	copy(out, items)

	rng := NewGenerator(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// SeedFor derives a shuffle seed for a user. A known user gets the sum of the
// character codes of their identifier, which is stable across sessions. An
// anonymous user (empty ID) gets the current wall-clock time in milliseconds.
func SeedFor(userID string, now func() time.Time) uint32 {
	if userID != "" {
		var sum uint32
		for _, r := range userID {
			sum += uint32(r)
		}
		return sum
	}
	if now == nil {
		now = time.Now
	}
	return uint32(now().UnixMilli())
}
