// Package recommend orders the brands of the feed.
//
// The first pass of a session is a per-user seeded shuffle, so every user sees a
// stable but unique opening order. Every later pass is re-ranked by engagement:
// brands the user saved, double-tapped or lingered on come first. Each pass
// contains every catalog brand exactly once.
package recommend

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/metrics"
	"github.com/fpang/brand-feed/internal/shuffle"
)

// Recommend returns the order in which brands are shown for one pass.
//
// With an empty seen set (cold start) the result is a seeded shuffle keyed by
// userID, or by the clock when userID is empty. Otherwise brands are sorted by
// engagement value descending, ties broken by most recent LastSeen, with
// never-seen brands after any seen one. The result always holds every distinct
// brand of all exactly once; an empty catalog yields an empty slice.
func Recommend(all []string, scores map[string]engagement.Score, seen map[string]struct{}, userID string, now func() time.Time) []string {
	brands := Dedupe(all)
	if len(brands) == 0 {
		return []string{}
	}

	if len(seen) == 0 {
		return shuffle.Shuffle(brands, shuffle.SeedFor(userID, now))
	}

	sort.SliceStable(brands, func(i, j int) bool {
		a, b := scores[brands[i]], scores[brands[j]]
		if av, bv := a.Value(), b.Value(); av != bv {
			return av > bv
		}
		return a.LastSeen.After(b.LastSeen)
	})
	return brands
}

// Dedupe returns brands with duplicates and empty IDs removed, keeping the
// first occurrence of each.
func Dedupe(brands []string) []string {
	seen := make(map[string]struct{}, len(brands))
	out := make([]string, 0, len(brands))
	for _, b := range brands {
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}

// Engine tracks the current pass for one feed session.
type Engine struct {
	mu      sync.Mutex
	catalog []string
	userID  string
	scores  *engagement.Store
	now     func() time.Time
	current Pass
	seen    map[string]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the clock used for anonymous seeds.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over catalog for userID. scores must not be nil.
func NewEngine(catalog []string, userID string, scores *engagement.Store, opts ...Option) *Engine {
	e := &Engine{
		catalog: Dedupe(catalog),
		userID:  userID,
		scores:  scores,
		now:     time.Now,
		seen:    map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins the first pass of the session with a cold-start shuffle.
func (e *Engine) Start() Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = map[string]struct{}{}
	return e.advance(0)
}

// NextPass re-ranks the catalog by engagement and makes the result current.
// The seen set is replaced with the brands of the new pass.
func (e *Engine) NextPass() Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.advance(e.current.Number)
}

// Current returns the pass being shown.
func (e *Engine) Current() Pass {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// ShouldRoll reports whether a settled vertical index has moved past the last
// entry of the current pass. An empty pass never rolls.
func (e *Engine) ShouldRoll(index int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.current.Len()
	return n > 0 && index >= n
}

// SetCatalog replaces the candidate brands. The current pass is left intact;
// the new catalog takes effect on the next pass.
func (e *Engine) SetCatalog(catalog []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog = Dedupe(catalog)
}

func (e *Engine) advance(prev int) Pass {
	kind := "warm"
	if len(e.seen) == 0 {
		kind = "cold"
	}
	order := Recommend(e.catalog, e.scores.Snapshot(), e.seen, e.userID, e.now)
	e.current = newPass(prev+1, order)
	e.seen = e.current.set()

	metrics.PassesStarted.WithLabelValues(kind).Inc()
	log.Debug().
		Int("pass", e.current.Number).
		Int("brands", len(order)).
		Str("kind", kind).
		Msg("Feed pass computed")
	return e.current
}
