// Package adapter defines the narration adapter boundary.
//
// Adapters are the Narrator's sinks: each one sees every channel invocation,
// may decorate the work being narrated, and hands back a Token that the
// Narrator closes exactly once when the invocation unwinds. The Narrator owns
// the ordering; adapters only see their own wraps and closes.
//
// Adapter tests use testify, as the narration tests do.
package adapter

import "fmt"

// Channel is one of the fixed narration kinds.
type Channel int

// Narration channels. The set is closed; adapters implement all four.
const (
	ChannelAct Channel = iota + 1
	ChannelScene
	ChannelBeat
	ChannelAside
)

// String returns the lowercase channel name.
func (c Channel) String() string {
	switch c {
	case ChannelAct:
		return "act"
	case ChannelScene:
		return "scene"
	case ChannelBeat:
		return "beat"
	case ChannelAside:
		return "aside"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// Channels returns all channels in declaration order.
func Channels() []Channel {
	return []Channel{ChannelAct, ChannelScene, ChannelBeat, ChannelAside}
}

// Gravitas is the severity of an act or scene.
// The zero value means unspecified; sinks treat it as GravitasNormal.
type Gravitas string

// Gravitas levels, lightest first.
const (
	GravitasAiry    Gravitas = "airy"
	GravitasLight   Gravitas = "light"
	GravitasNormal  Gravitas = "normal"
	GravitasHeavy   Gravitas = "heavy"
	GravitasExtreme Gravitas = "extreme"
)

// ParseGravitas parses a gravitas name. The empty string is valid (unspecified).
func ParseGravitas(s string) (Gravitas, error) {
	switch g := Gravitas(s); g {
	case "", GravitasAiry, GravitasLight, GravitasNormal, GravitasHeavy, GravitasExtreme:
		return g, nil
	default:
		return "", fmt.Errorf("invalid gravitas %q (must be airy, light, normal, heavy, or extreme)", s)
	}
}

// Work is a narrated unit of work. A non-nil error is a step failure and is
// always returned to the caller unchanged.
type Work func() (any, error)

// Token is an adapter's handle on one in-progress wrap.
// It is opaque to the Narrator, which passes it back to the same adapter's
// Close exactly once.
type Token any

// Adapter receives narration from the Narrator.
//
// Each Wrap method returns the work to run in place of the given work
// (possibly the same func) and a Token. Close(token) must release whatever
// the matching Wrap opened. Titles may repeat across a run; adapters must not
// assume any channel fires a fixed number of times.
//
// Adapters report contract violations by panicking; the Narrator does not
// recover them.
type Adapter interface {
	// WrapAct narrates an act, the outermost grouping of tests.
	WrapAct(work Work, title string, gravitas Gravitas) (Work, Token)

	// WrapScene narrates a scene, a subgroup of tests within an act.
	WrapScene(work Work, title string, gravitas Gravitas) (Work, Token)

	// WrapBeat narrates a beat, a single step of a test.
	WrapBeat(work Work, line string) (Work, Token)

	// WrapAside narrates an aside. The work is a no-op the adapter may decorate.
	WrapAside(work Work, line string) (Work, Token)

	// Close releases the resources behind a token returned by a Wrap call.
	Close(token Token)
}

// Noop returns work that does nothing. Asides are narrated around it.
func Noop() Work {
	return func() (any, error) { return nil, nil }
}
