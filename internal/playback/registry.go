package playback

import (
	"sort"
	"sync"
)

// Handle is a live video player the coordinator can drive.
type Handle interface {
	Play()
	Pause()
	SetMuted(muted bool)
}

// Inspector is implemented by handles that can report their state.
type Inspector interface {
	IsPlaying() bool
	IsMuted() bool
}

// Registry holds the live handles of the feed keyed by brand and media index.
// Only video elements register; keys without a handle are ignored.
type Registry struct {
	handles map[Key]Handle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{handles: make(map[Key]Handle)}
}

// Register adds or replaces the handle for key.
func (r *Registry) Register(key Key, h Handle) {
	r.handles[key] = h
}

// Unregister pauses, mutes and removes the handle for key.
func (r *Registry) Unregister(key Key) {
	if h, ok := r.handles[key]; ok {
		h.Pause()
		h.SetMuted(true)
		delete(r.handles, key)
	}
}

// Get returns the handle for key.
func (r *Registry) Get(key Key) (Handle, bool) {
	h, ok := r.handles[key]
	return h, ok
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	return len(r.handles)
}

// Keys returns every registered key in brand, media order.
func (r *Registry) Keys() []Key {
	keys := make([]Key, 0, len(r.handles))
	for k := range r.handles {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Brand != keys[j].Brand {
			return keys[i].Brand < keys[j].Brand
		}
		return keys[i].Media < keys[j].Media
	})
	return keys
}

// RetainBrands tears down every handle whose brand is not in keep and returns
// the removed keys. Removed handles are paused and muted first.
func (r *Registry) RetainBrands(keep map[string]struct{}) []Key {
	var removed []Key
	for _, k := range r.Keys() {
		if _, ok := keep[k.Brand]; ok {
			continue
		}
		r.Unregister(k)
		removed = append(removed, k)
	}
	return removed
}

// Playing returns the keys of handles that report a playing state.
func (r *Registry) Playing() []Key {
	var out []Key
	for _, k := range r.Keys() {
		if in, ok := r.handles[k].(Inspector); ok && in.IsPlaying() {
			out = append(out, k)
		}
	}
	return out
}

// TrackedHandle is a Handle that only records what it was told to do. The
// server uses it to mirror client players; tests use it to inspect effects.
type TrackedHandle struct {
	mu      sync.Mutex
	playing bool
	muted   bool
	plays   int
}

// Compile-time interface checks.
var (
	_ Handle    = (*TrackedHandle)(nil)
	_ Inspector = (*TrackedHandle)(nil)
)

// NewTrackedHandle returns a paused, muted handle.
func NewTrackedHandle() *TrackedHandle {
	return &TrackedHandle{muted: true}
}

// Play starts playback.
func (h *TrackedHandle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = true
	h.plays++
}

// Pause stops playback.
func (h *TrackedHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = false
}

// SetMuted sets the audio mute state.
func (h *TrackedHandle) SetMuted(muted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.muted = muted
}

// IsPlaying reports whether the handle is playing.
func (h *TrackedHandle) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

// IsMuted reports whether the handle is muted.
func (h *TrackedHandle) IsMuted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.muted
}

// Plays returns how many times Play was called.
func (h *TrackedHandle) Plays() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.plays
}
