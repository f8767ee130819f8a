// Package callstate tracks the high-level state of the telephone line and
// publishes changes to interested collaborators (hardware indicators, web
// UI). It assumes a single concurrently active line; the broadcaster
// serializes all transitions, and overlapping calls beyond the first are
// not represented.
package callstate

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/synox/telewall/internal/number"
)

// State is the lifecycle state of the line.
type State string

const (
	Disconnected State = "disconnected"
	Ringing      State = "ringing"
	Connected    State = "connected"
	Refusing     State = "refusing"
)

// Snapshot is the broadcaster state handed to listeners.
type Snapshot struct {
	State  State
	Caller number.Number
}

// Listener receives the event name (permit, refuse, answer, hangup) and a
// snapshot taken right after the transition.
type Listener func(event string, s Snapshot)

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = fmt.Errorf("callstate: invalid transition")

type listenerEntry struct {
	id int
	fn Listener
}

// Broadcaster is the shared line-state machine. The zero value is not
// usable, create one with New and pass it explicitly to every component
// that needs it.
type Broadcaster struct {
	mu        sync.Mutex
	state     State
	caller    number.Number
	listeners []listenerEntry
	nextID    int
	logger    *slog.Logger
}

// New creates a broadcaster in the disconnected state.
func New(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		state:  Disconnected,
		logger: logger.With("subsystem", "callstate"),
	}
}

// Subscribe registers a listener and returns a function that removes it.
// Listeners are invoked synchronously on every transition, one at a time,
// in registration order.
func (b *Broadcaster) Subscribe(fn Listener) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.listeners = append(b.listeners, listenerEntry{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, e := range b.listeners {
			if e.id == id {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetCaller records the active caller's number.
func (b *Broadcaster) SetCaller(n number.Number) {
	b.mu.Lock()
	b.caller = n
	b.mu.Unlock()
}

// Current returns a snapshot of the state and caller.
func (b *Broadcaster) Current() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{State: b.state, Caller: b.caller}
}

// Permit moves disconnected -> ringing for an allowed caller.
func (b *Broadcaster) Permit() error {
	return b.transition("permit", Ringing, Disconnected)
}

// Refuse moves disconnected or connected -> refusing.
func (b *Broadcaster) Refuse() error {
	return b.transition("refuse", Refusing, Disconnected, Connected)
}

// Answer moves ringing -> connected.
func (b *Broadcaster) Answer() error {
	return b.transition("answer", Connected, Ringing)
}

// Hangup moves any state back to disconnected and clears the caller.
func (b *Broadcaster) Hangup() error {
	return b.transition("hangup", Disconnected,
		Disconnected, Ringing, Connected, Refusing)
}

// RefuseIfConnected refuses only when a call is currently connected. Used
// by the manual-block collaborator (hardware button) so pressing it while
// the line is idle does nothing.
func (b *Broadcaster) RefuseIfConnected() {
	b.mu.Lock()
	if b.state != Connected {
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	if err := b.Refuse(); err != nil {
		// A transition raced in between; the guard is best-effort.
		b.logger.Debug("refuse-if-connected lost race", "error", err)
	}
}

func (b *Broadcaster) transition(event string, to State, from ...State) error {
	b.mu.Lock()

	allowed := false
	for _, f := range from {
		if b.state == f {
			allowed = true
			break
		}
	}
	if !allowed {
		cur := b.state
		b.mu.Unlock()
		return fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, event, cur)
	}

	b.state = to
	if to == Disconnected {
		b.caller = number.Number{}
	}
	snap := Snapshot{State: b.state, Caller: b.caller}
	listeners := make([]listenerEntry, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	b.logger.Debug("line state changed", "event", event, "state", snap.State, "caller", snap.Caller.Full)

	for _, e := range listeners {
		b.notify(e, event, snap)
	}
	return nil
}

// notify invokes one listener, isolating panics so a broken collaborator
// cannot break the broadcast loop or the calling session.
func (b *Broadcaster) notify(e listenerEntry, event string, snap Snapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("listener panicked", "event", event, "panic", rec)
		}
	}()
	e.fn(event, snap)
}
