// Package query sequences fetches for a single widget instance.
//
// At most one fetch is active at a time. Requests that arrive while a fetch is
// running are collapsed into one follow-up that runs with whatever
// configuration is current when the active fetch settles.
package query

import "fmt"

type Phase int

const (
	Idle Phase = iota
	Fetching
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is the whole of a coalescer's mutable state.
type State struct {
	Phase    Phase
	FollowUp bool
}

type Event int

const (
	EventRequest Event = iota
	EventSettle
)

// Action tells the owner of a State what to do after a transition.
type Action int

const (
	ActionNone Action = iota
	// ActionStart means a new fetch must be started with the latest configuration.
	ActionStart
	// ActionSupersede means the running fetch is no longer final and may be cancelled.
	ActionSupersede
)

// Transition is the coalescing state machine. It has no side effects.
func Transition(s State, e Event) (State, Action) {
	switch e {
	case EventRequest:
		if s.Phase == Idle {
			return State{Phase: Fetching}, ActionStart
		}
		return State{Phase: Fetching, FollowUp: true}, ActionSupersede
	case EventSettle:
		if s.Phase == Fetching && s.FollowUp {
			return State{Phase: Fetching}, ActionStart
		}
		return State{Phase: Idle}, ActionNone
	}
	return s, ActionNone
}

// Ticket identifies one started fetch.
type Ticket[C any] struct {
	Gen    uint64
	Config C
}

// Gate applies Transition to a configuration value. It is not safe for
// concurrent use; callers on an event loop use it directly, everyone else
// goes through Coalescer.
type Gate[C any] struct {
	state  State
	latest C
	gen    uint64
}

func (g *Gate[C]) State() State { return g.state }

// Latest returns the most recently requested configuration.
func (g *Gate[C]) Latest() C { return g.latest }

// Active reports whether a fetch is outstanding.
func (g *Gate[C]) Active() bool { return g.state.Phase == Fetching }

// Generation returns the generation of the most recently started fetch.
func (g *Gate[C]) Generation() uint64 { return g.gen }

// Request records cfg as the latest configuration. When the gate was idle the
// returned ticket must be started; otherwise a follow-up is owed and the
// caller may cancel the running fetch.
func (g *Gate[C]) Request(cfg C) (Ticket[C], bool) {
	g.latest = cfg
	var action Action
	g.state, action = Transition(g.state, EventRequest)
	if action != ActionStart {
		return Ticket[C]{}, false
	}
	return g.start(), true
}

// Settle marks the fetch with generation gen as finished, successfully or not.
// final is false when a newer request superseded it. When start is true the
// follow-up ticket carries the configuration visible now.
func (g *Gate[C]) Settle(gen uint64) (final bool, next Ticket[C], start bool) {
	if g.state.Phase != Fetching || gen != g.gen {
		// Stale settle from a fetch that was already replaced.
		return false, Ticket[C]{}, false
	}
	final = !g.state.FollowUp
	var action Action
	g.state, action = Transition(g.state, EventSettle)
	if action == ActionStart {
		return final, g.start(), true
	}
	return final, Ticket[C]{}, false
}

func (g *Gate[C]) start() Ticket[C] {
	g.gen++
	return Ticket[C]{Gen: g.gen, Config: g.latest}
}
