// Package indent tracks narration nesting depth and renders it as indentation.
//
// A single Tracker is shared by the Narrator (which enters and leaves it
// around every beat) and by sinks that need the current indentation, such
// as the console adapter. Depth is display-only state: leaving below zero
// is clamped rather than reported.
package indent

import "strings"

// Config controls how depth is rendered.
type Config struct {
	// Char is the indentation character (default " ").
	Char string
	// Size is the number of Char per level (default 4).
	Size int
	// Enabled toggles rendering. When false Render always returns "".
	Enabled bool
}

// DefaultConfig returns the default indentation: four spaces per level.
func DefaultConfig() Config {
	return Config{
		Char:    " ",
		Size:    4,
		Enabled: true,
	}
}

// Tracker holds the current nesting depth.
// Not safe for concurrent use; one Tracker belongs to one Narrator.
type Tracker struct {
	level   int
	unit    string
	enabled bool
}

// NewTracker creates a tracker at depth zero.
// A negative Size is treated as zero.
func NewTracker(cfg Config) *Tracker {
	size := max(cfg.Size, 0)
	return &Tracker{
		unit:    strings.Repeat(cfg.Char, size),
		enabled: cfg.Enabled,
	}
}

// Enter increases the depth by one.
func (t *Tracker) Enter() {
	t.level++
}

// Leave decreases the depth by one, never below zero.
func (t *Tracker) Leave() {
	if t.level > 0 {
		t.level--
	}
}

// Next enters the next level and returns the matching leave func.
// The returned func is meant to be deferred; calling it again is a no-op.
//
//	defer tracker.Next()()
func (t *Tracker) Next() (leave func()) {
	t.Enter()
	left := false
	return func() {
		if left {
			return
		}
		left = true
		t.Leave()
	}
}

// Level returns the current depth.
func (t *Tracker) Level() int {
	return t.level
}

// Unit returns the whitespace for a single level.
func (t *Tracker) Unit() string {
	return t.unit
}

// Render returns the indentation prefix for the current depth,
// or "" when indentation is disabled.
func (t *Tracker) Render() string {
	if !t.enabled || t.level == 0 {
		return ""
	}
	return strings.Repeat(t.unit, t.level)
}

// String implements fmt.Stringer.
func (t *Tracker) String() string {
	return t.Render()
}
