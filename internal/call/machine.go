package call

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrUnhandledEvent is returned by Fire when no transition is registered
// for the current state and event. It is fatal for the affected session
// only; the state is left unchanged.
var ErrUnhandledEvent = errors.New("no transition for event")

// State is one state of a call flow. Every instance carries a name that is
// unique within its session's machine, so the same state kind can appear
// several times in one flow with separate per-entry data.
//
// Cleanup releases whatever Enter acquired (running playback, broadcaster
// subscription). The machine calls it exactly when the state is left, so
// implementations never call it themselves.
type State interface {
	Name() string
	Enter(ctx context.Context)
	Cleanup(ctx context.Context)
	// OnHangup reacts to a hangup request on either leg. Non-terminal
	// states fire EventHangup; terminal states ignore it.
	OnHangup(ctx context.Context, channelID string)
}

// DigitHandler is implemented by states that react to DTMF digits.
type DigitHandler interface {
	OnDigit(ctx context.Context, channelID, digit string)
}

// PlaybackHandler is implemented by states that react to finished playbacks.
type PlaybackHandler interface {
	OnPlaybackFinished(ctx context.Context, playbackID string)
}

// ChannelUpHandler is implemented by states that wait for an originated
// leg to come up.
type ChannelUpHandler interface {
	OnChannelUp(ctx context.Context, channelID string)
}

// ChannelGoneHandler is implemented by states that wait for an originated
// leg to be destroyed before it came up (busy, rejected).
type ChannelGoneHandler interface {
	OnChannelGone(ctx context.Context, channelID string)
}

// RefuseHandler is implemented by states that react to an external refuse
// request (hardware block button).
type RefuseHandler interface {
	OnRefuseRequested(ctx context.Context)
}

type transitionKey struct {
	state string
	event Event
}

// Machine drives one call flow. Transitions are keyed by state name and
// event; each session builds its own machine with fresh state instances.
type Machine struct {
	transitions map[transitionKey]State
	current     State
	logger      *slog.Logger
}

// NewMachine creates an empty machine.
func NewMachine(logger *slog.Logger) *Machine {
	return &Machine{
		transitions: make(map[transitionKey]State),
		logger:      logger,
	}
}

// AddTransition registers src --event--> dst. Registering the same pair
// again silently overwrites the destination.
func (m *Machine) AddTransition(src State, event Event, dst State) {
	m.transitions[transitionKey{state: src.Name(), event: event}] = dst
}

// AddHangupTransitions registers the hangup transition for every given
// state. Terminal states are never passed here.
func (m *Machine) AddHangupTransitions(dst State, states ...State) {
	for _, src := range states {
		m.AddTransition(src, EventHangup, dst)
	}
}

// Start sets the initial state and enters it.
func (m *Machine) Start(ctx context.Context, initial State) {
	m.current = initial
	m.logger.Debug("entering state", "state", initial.Name())
	initial.Enter(ctx)
}

// Fire runs the transition for the event from the current state. The
// current state's Cleanup always completes before the next state's Enter
// begins. On a miss the current state is left unmodified and an
// ErrUnhandledEvent is returned.
func (m *Machine) Fire(ctx context.Context, event Event) error {
	next, ok := m.transitions[transitionKey{state: m.current.Name(), event: event}]
	if !ok {
		return fmt.Errorf("%w: state %s, event %s", ErrUnhandledEvent, m.current.Name(), event)
	}

	m.current.Cleanup(ctx)
	m.current = next
	m.logger.Debug("entering state", "state", next.Name(), "event", event)
	next.Enter(ctx)
	return nil
}

// HasTransition reports whether a transition exists. States with optional
// continuations (playback without a follow-up) use this to decide whether
// to advance.
func (m *Machine) HasTransition(src State, event Event) bool {
	_, ok := m.transitions[transitionKey{state: src.Name(), event: event}]
	return ok
}

// Current returns the active state.
func (m *Machine) Current() State {
	return m.current
}
