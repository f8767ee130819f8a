// Package models holds the database entities.
package models

import "time"

// Block list source tags.
const (
	SourceUser   = "user"   // blocked via the web UI
	SourceDTMF   = "dtmf"   // blocked with # presses during a call
	SourcePhone  = "phone"  // blocked by dialing the block short code
	SourceButton = "button" // blocked with the hardware button
	SourceImport = "import" // imported from a published blacklist
)

// BlockedCaller is one entry of the block list. The telephone number in
// canonical international format is the primary key.
type BlockedCaller struct {
	TelephoneNumber string
	Comment         string
	Source          string
	Created         time.Time
}

// Call-handling outcomes recorded on each call record. They match the
// values written to the CDR(telewall_state) channel variable.
const (
	CallStateRefused  = "refused"
	CallStateAllowed  = "allowed"
	CallStateNoAnswer = "no_answer"
	CallStateAnswered = "answered"
	CallStateBusy     = "busy"
)

// CallRecord is one entry of the incoming call history.
type CallRecord struct {
	ID         int64
	Src        string // caller number as received
	CallerName string
	StartTime  time.Time
	EndTime    *time.Time
	Duration   int // seconds
	State      string // one of the CallState values
	Blocked    bool
}

// Missed reports whether the call was never picked up.
func (r CallRecord) Missed() bool {
	return r.State == CallStateNoAnswer || r.State == ""
}

// Answered reports whether the handset picked up.
func (r CallRecord) Answered() bool {
	return r.State == CallStateAnswered
}
