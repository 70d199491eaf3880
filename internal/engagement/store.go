// Package engagement holds the per-session engagement signal used to re-rank
// brands between feed passes.
//
// A Store is created when a feed session starts and discarded (or persisted)
// when it ends. It is passed explicitly to the recommendation engine and the
// linger tracker; nothing in this package is global.
package engagement

import (
	"sync"
	"time"
)

// Signal weights for Score.Value.
const (
	SaveWeight      = 10
	DoubleTapWeight = 10
)

// Score is the accumulated engagement signal for one brand.
type Score struct {
	Saves      int       `json:"saves" dynamodbav:"saves"`
	DoubleTaps int       `json:"doubleTaps" dynamodbav:"doubleTaps"`
	Linger     float64   `json:"linger" dynamodbav:"linger"` // seconds
	LastSeen   time.Time `json:"lastSeen" dynamodbav:"lastSeen"`
}

// Value is the ranking score: 10*saves + 10*doubleTaps + linger seconds.
func (s Score) Value() float64 {
	return float64(SaveWeight*s.Saves+DoubleTapWeight*s.DoubleTaps) + s.Linger
}

// Store maps brand IDs to their Score. It is safe for concurrent use; every
// mutation replaces a whole record under the write lock, so readers never
// observe a partially updated Score.
type Store struct {
	mu     sync.RWMutex
	scores map[string]Score
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{scores: make(map[string]Score)}
}

// Get returns the score for brand. Brands never scored return the zero Score.
func (s *Store) Get(brand string) Score {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scores[brand]
}

// Snapshot returns a copy of every score.
func (s *Store) Snapshot() map[string]Score {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Score, len(s.scores))
	for k, v := range s.scores {
		out[k] = v
	}
	return out
}

// Len returns the number of brands with a recorded score.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scores)
}

// RecordSave increments the save count for brand.
func (s *Store) RecordSave(brand string) Score {
	return s.update(brand, func(sc *Score) { sc.Saves++ })
}

// RecordUnsave decrements the save count for brand, never below zero.
func (s *Store) RecordUnsave(brand string) Score {
	return s.update(brand, func(sc *Score) {
		if sc.Saves > 0 {
			sc.Saves--
		}
	})
}

// RecordDoubleTap increments the double-tap count for brand.
func (s *Store) RecordDoubleTap(brand string) Score {
	return s.update(brand, func(sc *Score) { sc.DoubleTaps++ })
}

// AddLinger adds seconds of dwell time to brand and stamps LastSeen with exit.
// Negative durations are ignored.
func (s *Store) AddLinger(brand string, seconds float64, exit time.Time) Score {
	return s.update(brand, func(sc *Score) {
		if seconds > 0 {
			sc.Linger += seconds
		}
		sc.LastSeen = exit
	})
}

// Touch stamps LastSeen without adding linger time.
func (s *Store) Touch(brand string, at time.Time) Score {
	return s.update(brand, func(sc *Score) { sc.LastSeen = at })
}

// Load merges previously persisted scores into the store, replacing existing
// records for the same brands. Negative counters are clamped to zero.
func (s *Store) Load(scores map[string]Score) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for brand, sc := range scores {
		if sc.Saves < 0 {
			sc.Saves = 0
		}
		if sc.DoubleTaps < 0 {
			sc.DoubleTaps = 0
		}
		if sc.Linger < 0 {
			sc.Linger = 0
		}
		s.scores[brand] = sc
	}
}

// Reset drops every score.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = make(map[string]Score)
}

func (s *Store) update(brand string, fn func(*Score)) Score {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.scores[brand]
	fn(&sc)
	s.scores[brand] = sc
	return sc
}
