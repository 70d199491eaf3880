package playback

import (
	"github.com/rs/zerolog/log"

	"github.com/fpang/brand-feed/internal/metrics"
)

// Coordinator applies playback transitions and executes the resulting
// commands against a Registry. It is not safe for concurrent use; callers
// serialize access.
type Coordinator struct {
	state    State
	registry *Registry
}

// NewCoordinator creates a coordinator in the initial state.
func NewCoordinator(registry *Registry) *Coordinator {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Coordinator{state: NewState(), registry: registry}
}

// State returns a copy of the current state.
func (c *Coordinator) State() State {
	return c.state.clone()
}

// Registry returns the handle registry driven by the coordinator.
func (c *Coordinator) Registry() *Registry {
	return c.registry
}

// VerticalSettle makes brand at index the visible brand and activates its
// current media.
func (c *Coordinator) VerticalSettle(index int, brand string) []Command {
	return c.apply(c.state.VerticalSettle(index, brand))
}

// HorizontalSettle moves brand's carousel to media and activates it when the
// brand is visible.
func (c *Coordinator) HorizontalSettle(brand string, media int) []Command {
	return c.apply(c.state.HorizontalSettle(brand, media))
}

// Blur pauses everything while the feed screen is hidden.
func (c *Coordinator) Blur() []Command {
	return c.apply(c.state.Blur())
}

// Focus resumes the visible brand's active media.
func (c *Coordinator) Focus() []Command {
	return c.apply(c.state.Focus())
}

// ToggleMute flips the global mute flag and applies it to the active media.
func (c *Coordinator) ToggleMute() []Command {
	return c.apply(c.state.ToggleMute())
}

// Retain drops state and handles of brands outside keep and pauses whatever
// is left. Used when a new pass replaces the rendered feed.
func (c *Coordinator) Retain(keep map[string]struct{}) []Command {
	removed := c.registry.RetainBrands(keep)
	if len(removed) > 0 {
		log.Debug().Int("removed", len(removed)).Msg("Dropped playback handles for brands outside the pass")
	}
	cmds := []Command{{Op: OpPauseAll}}
	c.state = c.state.Retain(keep)
	c.execute(cmds)
	return cmds
}

func (c *Coordinator) apply(next State, cmds []Command) []Command {
	c.state = next
	c.execute(cmds)
	return cmds
}

func (c *Coordinator) execute(cmds []Command) {
	for _, cmd := range cmds {
		switch cmd.Op {
		case OpPauseAll:
			c.pauseExcept(nil)
		case OpPauseOthers:
			target := cmd.Target
			c.pauseExcept(&target)
		case OpPlay:
			h, ok := c.registry.Get(cmd.Target)
			if !ok {
				// Images and not-yet-mounted videos have no handle.
				continue
			}
			h.SetMuted(cmd.Muted)
			h.Play()
			metrics.Activations.Inc()
			log.Debug().
				Str("brand", cmd.Target.Brand).
				Int("media", cmd.Target.Media).
				Bool("muted", cmd.Muted).
				Msg("Activated media")
		case OpSetMuted:
			if h, ok := c.registry.Get(cmd.Target); ok {
				h.SetMuted(cmd.Muted)
			}
		}
	}
}

func (c *Coordinator) pauseExcept(keep *Key) {
	for key, h := range c.registry.handles {
		if keep != nil && key == *keep {
			continue
		}
		h.Pause()
		h.SetMuted(true)
	}
}
