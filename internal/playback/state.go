// Package playback decides which single media element of the feed is playing.
//
// Decision and effect are separated: State transitions are pure functions that
// return the next State plus the Commands needed to get there, and the
// Coordinator executes those commands against the registered handles. At most
// one handle is ever left playing.
package playback

// NoBrand is the sentinel vertical index meaning no brand is visible.
const NoBrand = -1

// Mode is whether the feed screen is in the foreground.
type Mode int

const (
	Focused Mode = iota
	Unfocused
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case Focused:
		return "focused"
	case Unfocused:
		return "unfocused"
	default:
		return "unknown"
	}
}

// Key identifies one media element: a brand and the position of the item in
// that brand's media list.
type Key struct {
	Brand string `json:"brand"`
	Media int    `json:"media"`
}

// Op is the kind of effect a Command asks for.
type Op int

const (
	// OpPauseAll pauses and mutes every known handle.
	OpPauseAll Op = iota
	// OpPauseOthers pauses and mutes every known handle except Target.
	OpPauseOthers
	// OpPlay starts Target with its mute flag set to Muted.
	OpPlay
	// OpSetMuted changes only the mute flag of Target.
	OpSetMuted
)

// String returns a human-readable name for the op.
func (o Op) String() string {
	switch o {
	case OpPauseAll:
		return "pause_all"
	case OpPauseOthers:
		return "pause_others"
	case OpPlay:
		return "play"
	case OpSetMuted:
		return "set_muted"
	default:
		return "unknown"
	}
}

// MarshalText encodes the op by name.
func (o Op) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Command is one side effect produced by a transition.
type Command struct {
	Op     Op   `json:"op"`
	Target Key  `json:"target"`
	Muted  bool `json:"muted"`
}

// State is the playback state of the feed screen.
type State struct {
	Mode Mode
	// Visible is the vertical index of the visible brand, or NoBrand.
	Visible int
	// VisibleBrand is the brand at Visible; empty when Visible is NoBrand.
	VisibleBrand string
	// Last is the last vertical index that was visible, restored on focus.
	Last      int
	LastBrand string
	// MediaIndex is the visible horizontal position per brand.
	MediaIndex map[string]int
	Muted      bool
}

// NewState returns the initial state: focused, nothing visible, unmuted.
func NewState() State {
	return State{
		Mode:       Focused,
		Visible:    NoBrand,
		Last:       NoBrand,
		MediaIndex: map[string]int{},
	}
}

// Active returns the media element that should be playing, if any.
func (s State) Active() (Key, bool) {
	if s.Mode != Focused || s.Visible == NoBrand {
		return Key{}, false
	}
	return Key{Brand: s.VisibleBrand, Media: s.MediaIndex[s.VisibleBrand]}, true
}

// Activate returns the commands that make target the only active element:
// every other handle is paused and muted first, then target is started when
// play is true.
func Activate(target Key, muted, play bool) []Command {
	cmds := []Command{{Op: OpPauseOthers, Target: target}}
	if play {
		cmds = append(cmds, Command{Op: OpPlay, Target: target, Muted: muted})
	}
	return cmds
}

// VerticalSettle handles the viewability callback reporting brand at index as
// the visible brand. While unfocused only the last-known position is updated.
func (s State) VerticalSettle(index int, brand string) (State, []Command) {
	next := s.clone()
	next.Last = index
	next.LastBrand = brand
	if s.Mode != Focused {
		return next, nil
	}
	next.Visible = index
	next.VisibleBrand = brand
	return next, Activate(Key{Brand: brand, Media: next.MediaIndex[brand]}, next.Muted, true)
}

// HorizontalSettle records the visible media position of brand. When brand is
// the visible brand of a focused screen, that media element is activated.
func (s State) HorizontalSettle(brand string, media int) (State, []Command) {
	next := s.clone()
	next.MediaIndex[brand] = media
	if s.Mode != Focused || s.Visible == NoBrand || s.VisibleBrand != brand {
		return next, nil
	}
	return next, Activate(Key{Brand: brand, Media: media}, next.Muted, true)
}

// Blur handles the screen losing focus: nothing is visible and every handle is
// paused and muted.
func (s State) Blur() (State, []Command) {
	next := s.clone()
	next.Mode = Unfocused
	next.Visible = NoBrand
	next.VisibleBrand = ""
	return next, []Command{{Op: OpPauseAll}}
}

// Focus handles the screen regaining focus. The last known brand is restored
// and re-activated.
func (s State) Focus() (State, []Command) {
	next := s.clone()
	next.Mode = Focused
	if next.Visible != NoBrand || next.Last == NoBrand {
		return next, nil
	}
	next.Visible = next.Last
	next.VisibleBrand = next.LastBrand
	return next, Activate(Key{Brand: next.VisibleBrand, Media: next.MediaIndex[next.VisibleBrand]}, next.Muted, true)
}

// ToggleMute flips the global mute flag. Only the active element changes
// immediately; later activations pick the flag up.
func (s State) ToggleMute() (State, []Command) {
	next := s.clone()
	next.Muted = !s.Muted
	active, ok := next.Active()
	if !ok {
		return next, nil
	}
	return next, []Command{{Op: OpSetMuted, Target: active, Muted: next.Muted}}
}

// Retain forgets media positions of brands not in keep and clears the visible
// and last positions, as happens when a new pass replaces the feed.
func (s State) Retain(keep map[string]struct{}) State {
	next := s.clone()
	for brand := range next.MediaIndex {
		if _, ok := keep[brand]; !ok {
			delete(next.MediaIndex, brand)
		}
	}
	next.Visible = NoBrand
	next.VisibleBrand = ""
	next.Last = NoBrand
	next.LastBrand = ""
	return next
}

func (s State) clone() State {
	next := s
	next.MediaIndex = make(map[string]int, len(s.MediaIndex))
	for k, v := range s.MediaIndex {
		next.MediaIndex[k] = v
	}
	return next
}
