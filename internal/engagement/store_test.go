package engagement

import (
	"sync"
	"testing"
	"time"
)

func TestScore_Value(t *testing.T) {
	tests := []struct {
		name  string
		score Score
		want  float64
	}{
		{"zero", Score{}, 0},
		{"saves only", Score{Saves: 2}, 20},
		{"linger only", Score{Linger: 500}, 500},
		{"mixed", Score{Saves: 1, DoubleTaps: 2, Linger: 3.5}, 33.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.score.Value(); got != tt.want {
				t.Errorf("Value() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStore_SaveUnsaveClamps(t *testing.T) {
	s := NewStore()
	s.RecordSave("a")
	s.RecordUnsave("a")
	if got := s.RecordUnsave("a").Saves; got != 0 {
		t.Errorf("Saves after extra unsave = %d, want 0", got)
	}
	if got := s.RecordUnsave("never-saved").Saves; got != 0 {
		t.Errorf("Saves for unknown brand = %d, want 0", got)
	}
}

func TestStore_DoubleTapAndLinger(t *testing.T) {
	s := NewStore()
	exit := time.UnixMilli(12000)
	s.RecordDoubleTap("a")
	s.AddLinger("a", 5, time.UnixMilli(5000))
	s.AddLinger("a", 2, exit)
	s.AddLinger("a", -3, exit)

	got := s.Get("a")
	if got.DoubleTaps != 1 {
		t.Errorf("DoubleTaps = %d, want 1", got.DoubleTaps)
	}
	if got.Linger != 7 {
		t.Errorf("Linger = %v, want 7", got.Linger)
	}
	if !got.LastSeen.Equal(exit) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, exit)
	}
}

func TestStore_GetUnknownIsZero(t *testing.T) {
	s := NewStore()
	if got := s.Get("missing"); got != (Score{}) {
		t.Errorf("Get(missing) = %+v, want zero", got)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0 (Get must not create records)", s.Len())
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := NewStore()
	s.RecordSave("a")
	snap := s.Snapshot()
	snap["a"] = Score{Saves: 99}
	if got := s.Get("a").Saves; got != 1 {
		t.Errorf("store mutated through snapshot: Saves = %d, want 1", got)
	}
}

func TestStore_LoadClampsAndReset(t *testing.T) {
	s := NewStore()
	s.Load(map[string]Score{
		"a": {Saves: -2, DoubleTaps: -1, Linger: -4},
		"b": {Saves: 3},
	})
	if got := s.Get("a"); got.Saves != 0 || got.DoubleTaps != 0 || got.Linger != 0 {
		t.Errorf("Load did not clamp: %+v", got)
	}
	if got := s.Get("b").Saves; got != 3 {
		t.Errorf("Saves(b) = %d, want 3", got)
	}
	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", s.Len())
	}
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.RecordSave("a")
		}()
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	if got := s.Get("a").Saves; got != 50 {
		t.Errorf("Saves = %d, want 50", got)
	}
}
