package call

import (
	"context"
	"testing"

	"github.com/synox/telewall/internal/ari"
	"github.com/synox/telewall/internal/callstate"
	"github.com/synox/telewall/internal/database/models"
)

func newScreeningSession(tel Telephony, bl *fakeBlocklist, hist *fakeHistory,
	lookup NameLookup, bc *callstate.Broadcaster, caller string) *Session {

	cfg := ScreeningConfig{HandsetEndpoint: "SIP/handset", BlockPresses: 2}
	factory := ScreeningFactory(cfg, bl, hist, lookup, bc, discardLogger())
	incoming := ari.ChannelInfo{ID: "in-1", Caller: ari.CallerID{Number: caller}}
	return factory(tel, incoming, nil)
}

// start runs the flow's entry state synchronously. Tests drive the session
// by calling handle directly instead of going through Run, which keeps
// them deterministic.
func start(s *Session) {
	s.machine.Start(context.Background(), s.initial)
}

func currentState(s *Session) string {
	return s.machine.Current().Name()
}

func TestScreeningBlockedCaller(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{}
	bl := newFakeBlocklist("+41315081100")
	hist := &fakeHistory{}
	lookup := &fakeLookup{name: "should not be used"}
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, bl, hist, lookup, bc, "+41315081100")
	if got := currentState(s); got != "CheckCaller" {
		t.Fatalf("initial state = %s, want CheckCaller", got)
	}

	start(s)

	if lookup.callCount() != 0 {
		t.Errorf("reverse lookup invoked %d times for blocked caller, want 0", lookup.callCount())
	}
	if got := currentState(s); got != "PlaybackRefused" {
		t.Fatalf("state after check = %s, want PlaybackRefused", got)
	}
	if !tel.has("setvar in-1 CDR(blocked)=1") {
		t.Errorf("blocked flag not set on incoming leg")
	}
	if !tel.has("play in-1 " + DefaultAnnouncement) {
		t.Errorf("default announcement not played, ops: %v", tel.ops)
	}

	s.handle(ctx, &ari.PlaybackFinished{Playback: ari.PlaybackInfo{ID: tel.lastPlayback()}})

	if got := currentState(s); got != "Ending" {
		t.Fatalf("state after announcement = %s, want Ending", got)
	}
	if !s.isEnded() {
		t.Errorf("session still running after terminal state")
	}

	records := hist.inserted()
	if len(records) != 1 {
		t.Fatalf("call records = %d, want 1", len(records))
	}
	if records[0].State != models.CallStateRefused || !records[0].Blocked {
		t.Errorf("call record = %+v, want refused and blocked", records[0])
	}
	if bc.Current().State != callstate.Disconnected {
		t.Errorf("line state after session = %s, want disconnected", bc.Current().State)
	}
}

func TestScreeningBlockedCallerCustomAnnouncement(t *testing.T) {
	tel := &fakeTelephony{recordingExists: true}
	bl := newFakeBlocklist("+41315081100")
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, bl, &fakeHistory{}, nil, bc, "+41315081100")
	start(s)

	if !tel.has("play in-1 recording:" + CustomAnnouncementRecording) {
		t.Errorf("custom announcement not played, ops: %v", tel.ops)
	}
}

func TestScreeningAllowedCaller(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{}
	bl := newFakeBlocklist()
	hist := &fakeHistory{}
	lookup := &fakeLookup{name: "Muster AG"}
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, bl, hist, lookup, bc, "+41791234567")
	start(s)

	if lookup.callCount() != 1 {
		t.Errorf("reverse lookup invoked %d times, want 1", lookup.callCount())
	}
	if got := currentState(s); got != "DialHandset" {
		t.Fatalf("state after check = %s, want DialHandset", got)
	}
	if !tel.has("originate SIP/handset callerid=Muster AG <0791234567>") {
		t.Errorf("handset not dialed with resolved caller ID, ops: %v", tel.ops)
	}
	if !tel.has("ring in-1") {
		t.Errorf("incoming leg not ringing")
	}
	if bc.Current().State != callstate.Ringing {
		t.Errorf("line state = %s, want ringing", bc.Current().State)
	}

	// Handset answers.
	s.handle(ctx, &ari.StasisStart{Channel: ari.ChannelInfo{ID: "out-1"}, Args: []string{originatedMarker}})

	if got := currentState(s); got != "Connected" {
		t.Fatalf("state after answer = %s, want Connected", got)
	}
	if !tel.has("answer in-1") || !tel.has("createbridge mixing,dtmf_events") || !tel.has("addchannels bridge-1 in-1,out-1") {
		t.Errorf("legs not bridged, ops: %v", tel.ops)
	}
	if bc.Current().State != callstate.Connected {
		t.Errorf("line state = %s, want connected", bc.Current().State)
	}

	// One # press does nothing, the second blocks.
	s.handle(ctx, &ari.ChannelDtmfReceived{Channel: ari.ChannelInfo{ID: "out-1"}, Digit: "#"})
	if bl.blockCalls != 0 {
		t.Fatalf("blocked after a single # press")
	}
	s.handle(ctx, &ari.ChannelDtmfReceived{Channel: ari.ChannelInfo{ID: "out-1"}, Digit: "#"})

	if bl.blockCalls != 1 {
		t.Errorf("block calls = %d, want 1", bl.blockCalls)
	}
	if !bl.contains("+41791234567") {
		t.Errorf("caller not in blocklist")
	}
	if got := currentState(s); got != "PlaybackRefused" {
		t.Fatalf("state after blocking = %s, want PlaybackRefused", got)
	}

	// A stale playback id must not advance the flow.
	s.handle(ctx, &ari.PlaybackFinished{Playback: ari.PlaybackInfo{ID: "bogus"}})
	if got := currentState(s); got != "PlaybackRefused" {
		t.Fatalf("state after stale playback event = %s, want PlaybackRefused", got)
	}

	s.handle(ctx, &ari.PlaybackFinished{Playback: ari.PlaybackInfo{ID: tel.lastPlayback()}})
	if got := currentState(s); got != "Ending" {
		t.Fatalf("final state = %s, want Ending", got)
	}
	if !s.isEnded() {
		t.Errorf("session still running after terminal state")
	}
	if !tel.has("destroybridge bridge-1") {
		t.Errorf("bridge not destroyed, ops: %v", tel.ops)
	}
}

func TestConnectedPressCounterResets(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{}
	bl := newFakeBlocklist()
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, bl, &fakeHistory{}, nil, bc, "+41791234567")
	start(s)
	s.handle(ctx, &ari.StasisStart{Channel: ari.ChannelInfo{ID: "out-1"}, Args: []string{originatedMarker}})

	for _, digit := range []string{"#", "1", "#"} {
		s.handle(ctx, &ari.ChannelDtmfReceived{Channel: ari.ChannelInfo{ID: "out-1"}, Digit: digit})
	}

	if bl.blockCalls != 0 {
		t.Errorf("non-consecutive # presses blocked the caller")
	}
	if got := currentState(s); got != "Connected" {
		t.Errorf("state = %s, want Connected", got)
	}
}

func TestConnectedIgnoresCallerDigits(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{}
	bl := newFakeBlocklist()
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, bl, &fakeHistory{}, nil, bc, "+41791234567")
	start(s)
	s.handle(ctx, &ari.StasisStart{Channel: ari.ChannelInfo{ID: "out-1"}, Args: []string{originatedMarker}})

	s.handle(ctx, &ari.ChannelDtmfReceived{Channel: ari.ChannelInfo{ID: "in-1"}, Digit: "#"})
	s.handle(ctx, &ari.ChannelDtmfReceived{Channel: ari.ChannelInfo{ID: "in-1"}, Digit: "#"})

	if bl.blockCalls != 0 {
		t.Errorf("caller-side digits blocked the caller")
	}
}

func TestConnectedHardwareButton(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{}
	bl := newFakeBlocklist()
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, bl, &fakeHistory{}, nil, bc, "+41791234567")
	start(s)
	s.handle(ctx, &ari.StasisStart{Channel: ari.ChannelInfo{ID: "out-1"}, Args: []string{originatedMarker}})

	// The button collaborator refuses through the shared line state; the
	// session picks the transition up from its queue.
	bc.RefuseIfConnected()

	select {
	case ev := <-s.queue:
		s.handle(ctx, ev)
	default:
		t.Fatal("refuse transition was not forwarded to the session")
	}

	if bl.blockCalls != 1 {
		t.Fatalf("block calls = %d, want 1", bl.blockCalls)
	}
	entry, _ := bl.Find(ctx, "+41791234567")
	if entry == nil || entry.Source != models.SourceButton {
		t.Errorf("blocklist entry = %+v, want source %q", entry, models.SourceButton)
	}
	if got := currentState(s); got != "PlaybackRefused" {
		t.Errorf("state = %s, want PlaybackRefused", got)
	}
}

func TestDialHandsetBusy(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{}
	bc := callstate.New(discardLogger())
	hist := &fakeHistory{}

	s := newScreeningSession(tel, newFakeBlocklist(), hist, nil, bc, "+41791234567")
	start(s)

	s.handle(ctx, &ari.ChannelDestroyed{Channel: ari.ChannelInfo{ID: "out-1"}})

	if got := currentState(s); got != "Ending" {
		t.Fatalf("state = %s, want Ending", got)
	}
	if !tel.has("hangup in-1 busy") {
		t.Errorf("incoming leg not rejected busy, ops: %v", tel.ops)
	}
	records := hist.inserted()
	if len(records) != 1 || records[0].State != models.CallStateBusy {
		t.Errorf("call record = %+v, want busy", records)
	}
}

func TestHangupWhileRingingReleasesBothLegs(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{}
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, newFakeBlocklist(), &fakeHistory{}, nil, bc, "+41791234567")
	start(s)

	s.handle(ctx, &ari.ChannelHangupRequest{Channel: ari.ChannelInfo{ID: "in-1"}})

	if got := currentState(s); got != "HungUp" {
		t.Fatalf("state = %s, want HungUp", got)
	}
	if !tel.has("hangup in-1") || !tel.has("hangup out-1") {
		t.Errorf("legs not released, ops: %v", tel.ops)
	}
	if !s.isEnded() {
		t.Errorf("session still running")
	}

	// A second hangup notification (one arrives per leg) must not release
	// anything twice.
	hangups := tel.count("hangup ")
	s.handle(ctx, &ari.ChannelHangupRequest{Channel: ari.ChannelInfo{ID: "out-1"}})
	if tel.count("hangup ") != hangups {
		t.Errorf("terminal state released resources again")
	}
}

func TestTeardownToleratesGoneResources(t *testing.T) {
	ctx := context.Background()
	tel := &fakeTelephony{hangupErr: &ari.StatusError{Code: 404}}
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, newFakeBlocklist(), &fakeHistory{}, nil, bc, "+41791234567")
	start(s)

	s.handle(ctx, &ari.ChannelHangupRequest{Channel: ari.ChannelInfo{ID: "in-1"}})

	if !s.isEnded() {
		t.Errorf("session did not end with already-gone legs")
	}
}

func TestBlocklistErrorFailsOpen(t *testing.T) {
	tel := &fakeTelephony{}
	bl := newFakeBlocklist("+41791234567")
	bl.isBlockedErr = context.DeadlineExceeded
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, bl, &fakeHistory{}, nil, bc, "+41791234567")
	start(s)

	if got := currentState(s); got != "DialHandset" {
		t.Errorf("state = %s, want DialHandset when the blocklist is unavailable", got)
	}
}

func TestUnhandledEventAbortsSessionOnly(t *testing.T) {
	tel := &fakeTelephony{}
	bc := callstate.New(discardLogger())

	s := newScreeningSession(tel, newFakeBlocklist(), &fakeHistory{}, nil, bc, "+41791234567")
	start(s)

	// DialHandset has no playback continuation; the miss must end this
	// session with a full teardown instead of panicking.
	s.fire(context.Background(), EventPlaybackComplete)

	if !s.isEnded() {
		t.Errorf("session still running after unhandled event")
	}
	if !tel.has("hangup in-1") {
		t.Errorf("legs not released on abort, ops: %v", tel.ops)
	}
}
