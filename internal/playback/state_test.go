package playback

import (
	"testing"
)

func TestVerticalSettle_ActivatesVisibleBrand(t *testing.T) {
	s := NewState()
	next, cmds := s.VerticalSettle(2, "acme")

	if next.Visible != 2 || next.VisibleBrand != "acme" {
		t.Errorf("visible = (%d, %q), want (2, acme)", next.Visible, next.VisibleBrand)
	}
	if next.Last != 2 || next.LastBrand != "acme" {
		t.Errorf("last = (%d, %q), want (2, acme)", next.Last, next.LastBrand)
	}
	want := []Command{
		{Op: OpPauseOthers, Target: Key{"acme", 0}},
		{Op: OpPlay, Target: Key{"acme", 0}, Muted: false},
	}
	assertCommands(t, cmds, want)
}

func TestVerticalSettle_UsesRememberedMediaIndex(t *testing.T) {
	s := NewState()
	s, _ = s.HorizontalSettle("acme", 3)
	_, cmds := s.VerticalSettle(0, "acme")
	if len(cmds) != 2 || cmds[1].Target != (Key{"acme", 3}) {
		t.Errorf("cmds = %+v, want play of acme/3", cmds)
	}
}

func TestVerticalSettle_WhileUnfocusedOnlyRecords(t *testing.T) {
	s, _ := NewState().Blur()
	next, cmds := s.VerticalSettle(4, "zeta")
	if len(cmds) != 0 {
		t.Errorf("cmds = %+v, want none", cmds)
	}
	if next.Visible != NoBrand || next.Last != 4 || next.LastBrand != "zeta" {
		t.Errorf("state = %+v", next)
	}
}

func TestHorizontalSettle(t *testing.T) {
	s := NewState()
	s, _ = s.VerticalSettle(0, "acme")

	t.Run("visible brand activates", func(t *testing.T) {
		next, cmds := s.HorizontalSettle("acme", 1)
		if next.MediaIndex["acme"] != 1 {
			t.Errorf("media index = %d, want 1", next.MediaIndex["acme"])
		}
		assertCommands(t, cmds, []Command{
			{Op: OpPauseOthers, Target: Key{"acme", 1}},
			{Op: OpPlay, Target: Key{"acme", 1}},
		})
	})

	t.Run("other brand only records", func(t *testing.T) {
		next, cmds := s.HorizontalSettle("other", 2)
		if len(cmds) != 0 {
			t.Errorf("cmds = %+v, want none", cmds)
		}
		if next.MediaIndex["other"] != 2 {
			t.Errorf("media index = %d, want 2", next.MediaIndex["other"])
		}
	})

	t.Run("input state untouched", func(t *testing.T) {
		if _, ok := s.MediaIndex["other"]; ok {
			t.Error("transition mutated its receiver")
		}
	})
}

func TestBlurFocus_RestoresLastBrand(t *testing.T) {
	s := NewState()
	s, _ = s.VerticalSettle(1, "acme")
	s, _ = s.HorizontalSettle("acme", 2)

	s, cmds := s.Blur()
	assertCommands(t, cmds, []Command{{Op: OpPauseAll}})
	if s.Mode != Unfocused || s.Visible != NoBrand {
		t.Fatalf("after blur state = %+v", s)
	}
	if _, ok := s.Active(); ok {
		t.Error("Active() reported an element while unfocused")
	}

	s, cmds = s.Focus()
	if s.Mode != Focused || s.Visible != 1 || s.VisibleBrand != "acme" {
		t.Fatalf("after focus state = %+v", s)
	}
	assertCommands(t, cmds, []Command{
		{Op: OpPauseOthers, Target: Key{"acme", 2}},
		{Op: OpPlay, Target: Key{"acme", 2}},
	})
}

func TestFocus_NothingToRestore(t *testing.T) {
	s, _ := NewState().Blur()
	s, cmds := s.Focus()
	if len(cmds) != 0 || s.Visible != NoBrand || s.Mode != Focused {
		t.Errorf("state = %+v cmds = %+v", s, cmds)
	}
}

func TestToggleMute(t *testing.T) {
	s := NewState()
	s, cmds := s.ToggleMute()
	if !s.Muted || len(cmds) != 0 {
		t.Fatalf("toggle with nothing visible: muted=%v cmds=%+v", s.Muted, cmds)
	}

	s, _ = s.VerticalSettle(0, "acme")
	s, cmds = s.ToggleMute()
	if s.Muted {
		t.Error("expected unmuted after second toggle")
	}
	assertCommands(t, cmds, []Command{{Op: OpSetMuted, Target: Key{"acme", 0}, Muted: false}})

	// Later activations carry the current flag.
	s, _ = s.ToggleMute()
	_, cmds = s.VerticalSettle(1, "beta")
	if len(cmds) != 2 || !cmds[1].Muted {
		t.Errorf("activation after mute = %+v, want muted play", cmds)
	}
}

func TestRetain(t *testing.T) {
	s := NewState()
	s, _ = s.HorizontalSettle("keep", 1)
	s, _ = s.HorizontalSettle("drop", 2)
	s, _ = s.VerticalSettle(0, "keep")

	next := s.Retain(map[string]struct{}{"keep": {}})
	if _, ok := next.MediaIndex["drop"]; ok {
		t.Error("media index for dropped brand survived")
	}
	if next.MediaIndex["keep"] != 1 {
		t.Errorf("kept media index = %d, want 1", next.MediaIndex["keep"])
	}
	if next.Visible != NoBrand || next.Last != NoBrand {
		t.Errorf("positions not cleared: %+v", next)
	}
}

func TestActivate_WithoutPlay(t *testing.T) {
	cmds := Activate(Key{"a", 0}, true, false)
	assertCommands(t, cmds, []Command{{Op: OpPauseOthers, Target: Key{"a", 0}}})
}

func assertCommands(t *testing.T, got, want []Command) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d commands %+v, want %d %+v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
