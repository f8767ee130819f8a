// Package call implements the per-call state machines that drive the
// telewall call flows: screening incoming calls, blocking and unblocking
// callers from the handset, and managing the recorded announcement. Each
// call is handled by one Session running on its own goroutine; events from
// the control server are delivered in order through a per-session queue.
package call

// Event triggers a transition between call states. Only the values defined
// here are used.
type Event string

const (
	// A party hung up.
	EventHangup Event = "hangup"
	// Playback of a sound or recording finished.
	EventPlaybackComplete Event = "playback_complete"
	// The main action of the state is complete.
	EventActionComplete Event = "action_complete"
	EventCallerAllowed  Event = "caller_allowed"
	EventCallerRefused  Event = "caller_refused"
	// The outgoing leg was answered.
	EventAnswer Event = "answer"
	// The outgoing leg is busy or rejected the call.
	EventBusy Event = "busy"
	// Dialed input did not validate.
	EventInvalidInput Event = "invalid_input"
)

// DigitEvent returns the transition event for a DTMF digit. ok is false
// for anything that is not a single digit, * or #.
func DigitEvent(digit string) (Event, bool) {
	switch digit {
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9", "*", "#":
		return Event(digit), true
	}
	return "", false
}
