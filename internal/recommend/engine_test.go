package recommend

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/fpang/brand-feed/internal/engagement"
	"github.com/fpang/brand-feed/internal/shuffle"
)

var fixedClock = func() time.Time { return time.UnixMilli(1_000_000) }

func seenOf(brands ...string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, b := range brands {
		out[b] = struct{}{}
	}
	return out
}

func TestRecommend_ColdStartIsSeededShuffle(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e", "f"}
	got := Recommend(all, nil, nil, "user-1", fixedClock)
	want := shuffle.Shuffle(all, shuffle.SeedFor("user-1", nil))
	if !slices.Equal(got, want) {
		t.Errorf("cold start = %v, want %v", got, want)
	}
}

func TestRecommend_WarmRankingOrder(t *testing.T) {
	scores := map[string]engagement.Score{
		"A": {Saves: 2},
		"B": {Linger: 500},
	}
	got := Recommend([]string{"A", "B", "C"}, scores, seenOf("A"), "u", fixedClock)
	want := []string{"B", "A", "C"}
	if !slices.Equal(got, want) {
		t.Errorf("Recommend = %v, want %v", got, want)
	}
}

func TestRecommend_TieBreakByRecency(t *testing.T) {
	scores := map[string]engagement.Score{
		"seen": {LastSeen: time.UnixMilli(100)},
	}
	got := Recommend([]string{"unseen", "seen"}, scores, seenOf("x"), "", fixedClock)
	want := []string{"seen", "unseen"}
	if !slices.Equal(got, want) {
		t.Errorf("Recommend = %v, want %v", got, want)
	}
}

func TestRecommend_FullCoverage(t *testing.T) {
	var all []string
	scores := map[string]engagement.Score{}
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("brand-%d", i)
		all = append(all, id)
		if i%3 == 0 {
			scores[id] = engagement.Score{Saves: i % 5, Linger: float64(i)}
		}
	}
	for _, seen := range []map[string]struct{}{nil, seenOf(all...)} {
		got := Recommend(all, scores, seen, "u", fixedClock)
		if len(got) != len(all) {
			t.Fatalf("len = %d, want %d", len(got), len(all))
		}
		sorted := slices.Clone(got)
		slices.Sort(sorted)
		want := slices.Clone(all)
		slices.Sort(want)
		if !slices.Equal(sorted, want) {
			t.Errorf("Recommend is not a permutation of the catalog: %v", got)
		}
	}
}

func TestRecommend_DedupesInput(t *testing.T) {
	got := Recommend([]string{"a", "b", "a", "", "c", "b"}, nil, seenOf("a"), "", fixedClock)
	want := []string{"a", "b", "c"}
	if !slices.Equal(got, want) {
		t.Errorf("Recommend = %v, want %v", got, want)
	}
}

func TestRecommend_EmptyCatalog(t *testing.T) {
	got := Recommend(nil, nil, nil, "u", fixedClock)
	if got == nil || len(got) != 0 {
		t.Errorf("Recommend(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestRecommend_IdempotentRepass(t *testing.T) {
	all := []string{"a", "b", "c", "d", "e"}
	scores := map[string]engagement.Score{
		"c": {Saves: 1},
		"e": {Linger: 3, LastSeen: time.UnixMilli(5)},
	}
	seen := seenOf(all...)
	first := Recommend(all, scores, seen, "u", fixedClock)
	second := Recommend(all, scores, seen, "u", fixedClock)
	if !slices.Equal(first, second) {
		t.Errorf("re-pass differs: %v vs %v", first, second)
	}
}

func TestEngine_PassLifecycle(t *testing.T) {
	store := engagement.NewStore()
	e := NewEngine([]string{"a", "b", "c"}, "user-7", store, WithClock(fixedClock))

	first := e.Start()
	if first.Number != 1 || first.Len() != 3 {
		t.Fatalf("first pass = %+v", first)
	}
	wantFirst := shuffle.Shuffle([]string{"a", "b", "c"}, shuffle.SeedFor("user-7", nil))
	if !slices.Equal(first.Brands, wantFirst) {
		t.Errorf("first pass = %v, want %v", first.Brands, wantFirst)
	}

	store.RecordSave("c")
	store.AddLinger("b", 4, time.UnixMilli(10))

	second := e.NextPass()
	if second.Number != 2 {
		t.Errorf("second pass number = %d, want 2", second.Number)
	}
	if !slices.Equal(second.Brands, []string{"c", "b", "a"}) {
		t.Errorf("second pass = %v, want [c b a]", second.Brands)
	}
	if !slices.Equal(e.Current().Brands, second.Brands) {
		t.Errorf("Current() = %v, want %v", e.Current().Brands, second.Brands)
	}
}

func TestEngine_ShouldRoll(t *testing.T) {
	e := NewEngine([]string{"a", "b", "c"}, "u", engagement.NewStore())
	e.Start()

	tests := []struct {
		index int
		want  bool
	}{
		{0, false},
		{1, false},
		{2, false},
		{3, true},
		{7, true},
	}
	for _, tt := range tests {
		if got := e.ShouldRoll(tt.index); got != tt.want {
			t.Errorf("ShouldRoll(%d) = %v, want %v", tt.index, got, tt.want)
		}
	}
}

func TestEngine_EmptyCatalogNeverRolls(t *testing.T) {
	e := NewEngine(nil, "u", engagement.NewStore())
	p := e.Start()
	if p.Len() != 0 {
		t.Fatalf("pass len = %d, want 0", p.Len())
	}
	if e.ShouldRoll(0) {
		t.Error("empty pass should never roll")
	}
}

func TestEngine_SetCatalogAppliesNextPass(t *testing.T) {
	e := NewEngine([]string{"a"}, "u", engagement.NewStore())
	e.Start()
	e.SetCatalog([]string{"a", "b"})
	if e.Current().Len() != 1 {
		t.Errorf("current pass changed by SetCatalog")
	}
	if got := e.NextPass().Len(); got != 2 {
		t.Errorf("next pass len = %d, want 2", got)
	}
}

func TestPass_Lookup(t *testing.T) {
	p := newPass(1, []string{"x", "y"})
	if p.At(1) != "y" || p.At(2) != "" || p.At(-1) != "" {
		t.Errorf("At returned unexpected values")
	}
	if !p.Contains("x") || p.Contains("z") {
		t.Errorf("Contains returned unexpected values")
	}
	if p.IndexOf("y") != 1 || p.IndexOf("z") != -1 {
		t.Errorf("IndexOf returned unexpected values")
	}
}
