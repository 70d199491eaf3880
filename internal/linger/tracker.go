// Package linger measures how long each brand stays on screen and feeds the
// dwell time back into the engagement store.
package linger

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/metrics"
)

// Tracker records one open visit at a time. Every Enter is closed by exactly
// one Leave, whether explicit or implied by entering another brand. It is not
// safe for concurrent use.
type Tracker struct {
	store   *engagement.Store
	current string
	since   time.Time
	active  bool
}

// NewTracker creates a tracker writing into store.
func NewTracker(store *engagement.Store) *Tracker {
	return &Tracker{store: store}
}

// Enter starts a visit of brand at the given time. Entering the brand that is
// already open is a no-op; entering a different one closes the open visit
// first.
func (t *Tracker) Enter(brand string, at time.Time) {
	if t.active && t.current == brand {
		return
	}
	t.Leave(at)
	if brand == "" {
		return
	}
	t.current = brand
	t.since = at
	t.active = true
}

// Leave closes the open visit, adding its elapsed seconds to the brand's
// linger total and stamping LastSeen with at. It reports the closed brand and
// the seconds added; with no open visit it does nothing.
func (t *Tracker) Leave(at time.Time) (string, float64) {
	if !t.active {
		return "", 0
	}
	brand := t.current
	seconds := at.Sub(t.since).Seconds()
	if seconds < 0 {
		seconds = 0
	}
	t.active = false
	t.current = ""

	t.store.AddLinger(brand, seconds, at)
	metrics.LingerSeconds.Observe(seconds)
	log.Debug().Str("brand", brand).Float64("seconds", seconds).Msg("Linger recorded")
	return brand, seconds
}

// Current returns the brand of the open visit, if any.
func (t *Tracker) Current() (string, bool) {
	return t.current, t.active
}
