package linger

import (
	"testing"
	"time"

	"github.com/fpang/brand-feed/internal/engagement"
)

var epoch = time.UnixMilli(0).UTC()

func ms(n int64) time.Time { return epoch.Add(time.Duration(n) * time.Millisecond) }

func TestTracker_Accumulates(t *testing.T) {
	store := engagement.NewStore()
	tr := NewTracker(store)

	tr.Enter("x", ms(0))
	tr.Leave(ms(5000))
	tr.Enter("x", ms(10000))
	tr.Leave(ms(12000))

	got := store.Get("x")
	if got.Linger != 7 {
		t.Errorf("linger = %v, want 7", got.Linger)
	}
	if got.LastSeen.UnixMilli() != 12000 {
		t.Errorf("lastSeen = %d, want 12000", got.LastSeen.UnixMilli())
	}
}

func TestTracker_ReenterSameBrandIsNoop(t *testing.T) {
	store := engagement.NewStore()
	tr := NewTracker(store)

	tr.Enter("x", ms(0))
	tr.Enter("x", ms(1000)) // re-render without index change
	tr.Enter("x", ms(2000))
	tr.Leave(ms(3000))

	if got := store.Get("x").Linger; got != 3 {
		t.Errorf("linger = %v, want 3", got)
	}
}

func TestTracker_SwitchingBrandsClosesPrevious(t *testing.T) {
	store := engagement.NewStore()
	tr := NewTracker(store)

	tr.Enter("a", ms(0))
	tr.Enter("b", ms(4000))
	tr.Enter("a", ms(5500))

	if got := store.Get("a"); got.Linger != 4 || got.LastSeen.UnixMilli() != 4000 {
		t.Errorf("a = %+v, want linger 4 lastSeen 4000", got)
	}
	if got := store.Get("b").Linger; got != 1.5 {
		t.Errorf("b linger = %v, want 1.5", got)
	}
	if brand, ok := tr.Current(); !ok || brand != "a" {
		t.Errorf("Current() = (%q, %v), want (a, true)", brand, ok)
	}
}

func TestTracker_LeaveExactlyOnce(t *testing.T) {
	store := engagement.NewStore()
	tr := NewTracker(store)

	if brand, _ := tr.Leave(ms(100)); brand != "" {
		t.Errorf("Leave with nothing open returned %q", brand)
	}

	tr.Enter("x", ms(0))
	if brand, secs := tr.Leave(ms(2000)); brand != "x" || secs != 2 {
		t.Errorf("Leave = (%q, %v), want (x, 2)", brand, secs)
	}
	tr.Leave(ms(9000))

	if got := store.Get("x").Linger; got != 2 {
		t.Errorf("linger = %v after double leave, want 2", got)
	}
}

func TestTracker_ClockSkewClampsToZero(t *testing.T) {
	store := engagement.NewStore()
	tr := NewTracker(store)

	tr.Enter("x", ms(5000))
	tr.Leave(ms(1000))

	got := store.Get("x")
	if got.Linger != 0 {
		t.Errorf("linger = %v, want 0", got.Linger)
	}
	if got.LastSeen.UnixMilli() != 1000 {
		t.Errorf("lastSeen = %d, want 1000", got.LastSeen.UnixMilli())
	}
}

func TestTracker_EmptyBrandIgnored(t *testing.T) {
	store := engagement.NewStore()
	tr := NewTracker(store)

	tr.Enter("x", ms(0))
	tr.Enter("", ms(1000))

	if _, ok := tr.Current(); ok {
		t.Error("empty brand opened a visit")
	}
	if got := store.Get("x").Linger; got != 1 {
		t.Errorf("linger = %v, want 1", got)
	}
	if store.Len() != 1 {
		t.Errorf("store len = %d, want 1", store.Len())
	}
}
