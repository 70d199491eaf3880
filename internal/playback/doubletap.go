package playback

import "time"

// DoubleTapWindow is the longest gap between two presses that still counts as
// a double tap.
const DoubleTapWindow = 300 * time.Millisecond

// DoubleTapDetector recognises two presses on the same media element within
// the window. A matched pair disarms the detector, so a third quick press
// starts a new pair rather than completing another one.
type DoubleTapDetector struct {
	window time.Duration
	last   Key
	lastAt time.Time
	armed  bool
}

// NewDoubleTapDetector creates a detector; a non-positive window means
// DoubleTapWindow.
func NewDoubleTapDetector(window time.Duration) *DoubleTapDetector {
	if window <= 0 {
		window = DoubleTapWindow
	}
	return &DoubleTapDetector{window: window}
}

// Press registers a press on key at the given time and reports whether it
// completed a double tap.
func (d *DoubleTapDetector) Press(key Key, at time.Time) bool {
	if d.armed && key == d.last {
		gap := at.Sub(d.lastAt)
		if gap >= 0 && gap < d.window {
			d.armed = false
			return true
		}
	}
	d.last = key
	d.lastAt = at
	d.armed = true
	return false
}
