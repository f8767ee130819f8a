package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/synox/telewall/internal/ari"
	"github.com/synox/telewall/internal/callstate"
	"github.com/synox/telewall/internal/database"
	"github.com/synox/telewall/internal/database/models"
	"github.com/synox/telewall/internal/number"
)

// sessionQueueSize bounds the per-session event queue. Events for one
// session are rare (a handful per call), the buffer only has to absorb
// bursts while a state handler runs.
const sessionQueueSize = 32

// refuseSignal is delivered to a session when an external collaborator
// (hardware button) refuses the active call.
type refuseSignal struct{}

// Session is one handled call: the incoming leg, the optional outgoing
// handset leg, the optional bridge, the caller's number and the state
// machine driving the flow. All state handlers run on the session's own
// goroutine; events arrive in FIFO order through the queue, so a slow
// operation in one session never delays another.
type Session struct {
	app      string
	tel      Telephony
	logger   *slog.Logger
	incoming ari.ChannelInfo
	caller   number.Number

	machine *Machine
	initial State

	// Optional collaborators, set per application.
	broadcaster *callstate.Broadcaster
	history     database.CallHistory

	queue    chan any
	quit     chan struct{}
	quitOnce sync.Once

	// Routing fields read by the dispatcher goroutine.
	mu         sync.Mutex
	outgoingID string
	bridgeID   string
	playbacks  map[string]struct{}
	ended      bool

	// Touched only by the session goroutine.
	started    time.Time
	answeredAt time.Time
	audit      string
	blocked    bool

	onFinished func(*Session)
}

// newSession creates the base session for an incoming leg. The caller's
// number is parsed here; input that cannot be interpreted keeps its
// verbatim form, it never prevents handling the call.
func newSession(app string, tel Telephony, incoming ari.ChannelInfo, logger *slog.Logger) *Session {
	caller := number.Parse(incoming.Caller.Number)
	return &Session{
		app:      app,
		tel:      tel,
		incoming: incoming,
		caller:   caller,
		logger: logger.With(
			"channel_id", incoming.ID,
			"caller", caller.Full,
		),
		queue:     make(chan any, sessionQueueSize),
		playbacks: make(map[string]struct{}),
		quit:      make(chan struct{}),
		started:   time.Now(),
	}
}

// ID returns the incoming channel ID, which identifies the session.
func (s *Session) ID() string {
	return s.incoming.ID
}

// Caller returns the parsed caller number.
func (s *Session) Caller() number.Number {
	return s.caller
}

// Deliver enqueues an event for the session goroutine. It never blocks:
// when the queue is full the event is dropped with an error log, which
// beats stalling the shared dispatcher.
func (s *Session) Deliver(ev any) {
	s.mu.Lock()
	ended := s.ended
	s.mu.Unlock()
	if ended {
		return
	}

	select {
	case s.queue <- ev:
	default:
		s.logger.Error("session queue full, dropping event", "event", ev)
	}
}

// Run starts the flow and processes events until the session reaches a
// terminal state, is abandoned, or ctx ends. It must be called on its own
// goroutine, once.
func (s *Session) Run(ctx context.Context) {
	defer func() {
		if s.onFinished != nil {
			s.onFinished(s)
		}
	}()

	s.machine.Start(ctx, s.initial)
	if s.isEnded() {
		return
	}

	for {
		select {
		case ev := <-s.queue:
			s.handle(ctx, ev)
			if s.isEnded() {
				return
			}
		case <-s.quit:
			s.logger.Info("session abandoned")
			return
		case <-ctx.Done():
			return
		}
	}
}

// Abandon stops the session without teardown. Used when the control
// connection is lost and the legs cannot be reached anymore.
func (s *Session) Abandon() {
	s.quitOnce.Do(func() { close(s.quit) })
}

// handle dispatches one event to the current state. Capability checks
// replace the original's per-state event subscriptions: a state receives
// only the event kinds it implements a handler for.
func (s *Session) handle(ctx context.Context, ev any) {
	current := s.machine.Current()

	switch ev := ev.(type) {
	case *ari.ChannelHangupRequest:
		current.OnHangup(ctx, ev.Channel.ID)
	case *ari.ChannelDtmfReceived:
		if h, ok := current.(DigitHandler); ok {
			h.OnDigit(ctx, ev.Channel.ID, ev.Digit)
		}
	case *ari.StasisStart:
		if h, ok := current.(ChannelUpHandler); ok {
			h.OnChannelUp(ctx, ev.Channel.ID)
		}
	case *ari.ChannelDestroyed:
		if ev.Channel.ID == s.OutgoingID() {
			if h, ok := current.(ChannelGoneHandler); ok {
				h.OnChannelGone(ctx, ev.Channel.ID)
			}
			return
		}
		// The incoming leg can be destroyed without a preceding hangup
		// request; treat it the same way.
		current.OnHangup(ctx, ev.Channel.ID)
	case *ari.PlaybackFinished:
		if h, ok := current.(PlaybackHandler); ok {
			h.OnPlaybackFinished(ctx, ev.Playback.ID)
		}
	case refuseSignal:
		if h, ok := current.(RefuseHandler); ok {
			h.OnRefuseRequested(ctx)
		}
	default:
		s.logger.Warn("unexpected event kind", "event", ev)
	}
}

// fire runs a transition. An unhandled event aborts this session only:
// the error is logged, both legs and the bridge are released, and the
// session ends. Other sessions and the dispatcher are unaffected.
func (s *Session) fire(ctx context.Context, event Event) {
	if err := s.machine.Fire(ctx, event); err != nil {
		s.logger.Error("aborting call session", "error", err)
		s.teardown(ctx)
	}
}

// teardown idempotently hangs up both legs, destroys the bridge and ends
// the session. Resources already gone are tolerated.
func (s *Session) teardown(ctx context.Context) {
	s.safeHangup(ctx, s.incoming.ID, "")
	if out := s.OutgoingID(); out != "" {
		s.safeHangup(ctx, out, "")
	}
	if bridge := s.BridgeID(); bridge != "" {
		s.safeDestroyBridge(ctx, bridge)
	}
	s.notifyHangup()
	s.end(ctx)
}

// end marks the session finished and writes the call record. Safe to call
// more than once.
func (s *Session) end(ctx context.Context) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.mu.Unlock()

	s.recordCall(ctx)
	s.logger.Info("session ended", "outcome", s.audit)
}

func (s *Session) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// recordCall appends the call to the history, when the application keeps
// one.
func (s *Session) recordCall(ctx context.Context) {
	if s.history == nil {
		return
	}

	now := time.Now()
	duration := 0
	if !s.answeredAt.IsZero() {
		duration = int(now.Sub(s.answeredAt).Seconds())
	}
	rec := &models.CallRecord{
		Src:        s.caller.Full,
		CallerName: s.caller.Name,
		StartTime:  s.started,
		EndTime:    &now,
		Duration:   duration,
		State:      s.audit,
		Blocked:    s.blocked,
	}
	if err := s.history.Insert(ctx, rec); err != nil {
		s.logger.Error("recording call history failed", "error", err)
	}
}

// OutgoingID returns the handset leg ID, or "" before dialing.
func (s *Session) OutgoingID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outgoingID
}

func (s *Session) setOutgoing(id string) {
	s.mu.Lock()
	s.outgoingID = id
	s.mu.Unlock()
}

// BridgeID returns the audio bridge ID, or "" when no bridge exists.
func (s *Session) BridgeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridgeID
}

func (s *Session) setBridge(id string) {
	s.mu.Lock()
	s.bridgeID = id
	s.mu.Unlock()
}

// OwnsChannel reports whether the channel belongs to this session. The
// dispatcher uses it to route events.
func (s *Session) OwnsChannel(channelID string) bool {
	if channelID == s.incoming.ID {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outgoingID != "" && channelID == s.outgoingID
}

// OwnsPlayback reports whether the playback was started by this session.
func (s *Session) OwnsPlayback(playbackID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.playbacks[playbackID]
	return ok
}

func (s *Session) claimPlayback(playbackID string) {
	s.mu.Lock()
	s.playbacks[playbackID] = struct{}{}
	s.mu.Unlock()
}

func (s *Session) releasePlayback(playbackID string) {
	s.mu.Lock()
	delete(s.playbacks, playbackID)
	s.mu.Unlock()
}

// markAnswered remembers when the handset picked up, for the call record.
func (s *Session) markAnswered() {
	s.answeredAt = time.Now()
}

// setAuditState writes the CDR(telewall_state) channel variable on the
// incoming leg. Fire-and-forget: a failure is logged and otherwise
// ignored.
func (s *Session) setAuditState(ctx context.Context, state string) {
	s.audit = state
	if err := s.tel.SetChannelVar(ctx, s.incoming.ID, "CDR(telewall_state)", state); err != nil {
		s.logger.Warn("setting audit state failed", "state", state, "error", err)
	}
}

// setBlockedVar writes the CDR(blocked) channel variable on the incoming
// leg, fire-and-forget.
func (s *Session) setBlockedVar(ctx context.Context, blocked bool) {
	s.blocked = blocked
	value := "0"
	if blocked {
		value = "1"
	}
	if err := s.tel.SetChannelVar(ctx, s.incoming.ID, "CDR(blocked)", value); err != nil {
		s.logger.Warn("setting blocked flag failed", "error", err)
	}
}

// AnnouncementMedia resolves the media to play to a refused caller: the
// custom stored recording when one exists, the default announcement
// otherwise. Looked up on every refusal so a newly recorded announcement
// takes effect immediately.
func (s *Session) AnnouncementMedia(ctx context.Context) string {
	exists, err := s.tel.StoredRecordingExists(ctx, CustomAnnouncementRecording)
	if err != nil {
		s.logger.Warn("custom announcement lookup failed, using default", "error", err)
		return DefaultAnnouncement
	}
	if exists {
		return "recording:" + CustomAnnouncementRecording
	}
	return DefaultAnnouncement
}

// safeHangup hangs up a leg, tolerating a leg that is already gone.
func (s *Session) safeHangup(ctx context.Context, channelID, reason string) {
	if err := s.tel.HangupChannel(ctx, channelID, reason); err != nil && !ari.IsNotFound(err) {
		s.logger.Warn("hangup failed", "target", channelID, "error", err)
	}
}

// safeDestroyBridge destroys the bridge, tolerating one that is already
// gone.
func (s *Session) safeDestroyBridge(ctx context.Context, bridgeID string) {
	if err := s.tel.DestroyBridge(ctx, bridgeID); err != nil && !ari.IsNotFound(err) {
		s.logger.Warn("bridge destroy failed", "bridge", bridgeID, "error", err)
	}
}

// Broadcaster notification helpers. All are nil-safe because only the
// screening application shares the line state.

func (s *Session) broadcastCaller() {
	if s.broadcaster != nil {
		s.broadcaster.SetCaller(s.caller)
	}
}

func (s *Session) notifyPermit() {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Permit(); err != nil {
		s.logger.Debug("line state permit skipped", "error", err)
	}
}

func (s *Session) notifyRefuse() {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Refuse(); err != nil {
		s.logger.Debug("line state refuse skipped", "error", err)
	}
}

func (s *Session) notifyAnswer() {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Answer(); err != nil {
		s.logger.Debug("line state answer skipped", "error", err)
	}
}

func (s *Session) notifyHangup() {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Hangup(); err != nil {
		s.logger.Debug("line state hangup skipped", "error", err)
	}
}
