package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/synox/telewall/internal/ari"
)

// reconnectDelay is the fixed pause between attempts to reach the control
// server.
const reconnectDelay = 5 * time.Second

// SessionFactory builds one session for an incoming leg, with the flow's
// machine attached. args are the routing arguments from the session-start
// event.
type SessionFactory func(tel Telephony, incoming ari.ChannelInfo, args []string) *Session

// Connector opens the control connection for one application. It exists so
// tests can substitute a fake control server.
type Connector func(ctx context.Context) (*ari.Client, error)

// App runs one call-flow application: it holds the persistent control
// connection, spawns a session per incoming call and routes events to the
// session that owns the affected channel or playback. Routing is cheap;
// everything slow happens on the sessions' own goroutines.
type App struct {
	name    string
	connect Connector
	factory SessionFactory
	logger  *slog.Logger

	retryDelay time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	wg sync.WaitGroup
}

// NewApp creates an application runner.
func NewApp(name string, connect Connector, factory SessionFactory, logger *slog.Logger) *App {
	return &App{
		name:       name,
		connect:    connect,
		factory:    factory,
		logger:     logger.With("subsystem", "call", "app", name),
		retryDelay: reconnectDelay,
		sessions:   make(map[string]*Session),
	}
}

// Run connects and serves events until ctx ends. A lost connection is
// retried on a fixed delay, indefinitely; sessions in flight at disconnect
// time are abandoned.
func (a *App) Run(ctx context.Context) error {
	for {
		client, err := a.connect(ctx)
		if err != nil {
			a.logger.Error("connecting to control server failed", "error", err)
			if !a.sleep(ctx) {
				return ctx.Err()
			}
			continue
		}

		a.serve(ctx, client)
		a.abandonAll()

		if ctx.Err() != nil {
			a.wg.Wait()
			return ctx.Err()
		}
		a.logger.Warn("control connection lost, reconnecting")
		if !a.sleep(ctx) {
			a.wg.Wait()
			return ctx.Err()
		}
	}
}

func (a *App) sleep(ctx context.Context) bool {
	select {
	case <-time.After(a.retryDelay):
		return true
	case <-ctx.Done():
		return false
	}
}

// serve consumes the event stream until the connection drops or ctx ends.
func (a *App) serve(ctx context.Context, client *ari.Client) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := client.Listen(ctx); err != nil && ctx.Err() == nil {
			a.logger.Warn("event stream ended", "error", err)
		}
	}()

	for ev := range client.Events() {
		a.dispatch(ctx, client, ev)
	}
	<-done
}

// dispatch routes one event. A session-start for a fresh incoming leg
// spawns a session; everything else goes to the session owning the
// channel or playback.
func (a *App) dispatch(ctx context.Context, tel Telephony, ev ari.Event) {
	switch ev := ev.(type) {
	case *ari.StasisStart:
		if len(ev.Args) > 0 && ev.Args[0] == originatedMarker {
			// Second leg of a call already in progress.
			a.routeChannel(ev.Channel.ID, ev)
			return
		}
		a.startSession(ctx, tel, ev)
	case *ari.ChannelHangupRequest:
		a.routeChannel(ev.Channel.ID, ev)
	case *ari.ChannelDtmfReceived:
		a.routeChannel(ev.Channel.ID, ev)
	case *ari.ChannelDestroyed:
		a.routeChannel(ev.Channel.ID, ev)
	case *ari.PlaybackFinished:
		a.routePlayback(ev.Playback.ID, ev)
	default:
		a.logger.Debug("ignoring event", "type", ev.EventType())
	}
}

func (a *App) startSession(ctx context.Context, tel Telephony, ev *ari.StasisStart) {
	s := a.factory(tel, ev.Channel, ev.Args)
	s.onFinished = a.remove

	a.mu.Lock()
	a.sessions[s.ID()] = s
	count := len(a.sessions)
	a.mu.Unlock()

	a.logger.Info("new call", "channel_id", ev.Channel.ID,
		"caller", s.Caller().Full, "active_sessions", count)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		s.Run(ctx)
	}()
}

func (a *App) remove(s *Session) {
	a.mu.Lock()
	delete(a.sessions, s.ID())
	a.mu.Unlock()
}

func (a *App) routeChannel(channelID string, ev any) {
	if s := a.findChannel(channelID); s != nil {
		s.Deliver(ev)
		return
	}
	a.logger.Debug("event for unknown channel", "channel_id", channelID)
}

func (a *App) findChannel(channelID string) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.sessions {
		if s.OwnsChannel(channelID) {
			return s
		}
	}
	return nil
}

func (a *App) routePlayback(playbackID string, ev any) {
	a.mu.Lock()
	var target *Session
	for _, s := range a.sessions {
		if s.OwnsPlayback(playbackID) {
			target = s
			break
		}
	}
	a.mu.Unlock()

	if target != nil {
		target.Deliver(ev)
		return
	}
	a.logger.Debug("event for unknown playback", "playback_id", playbackID)
}

// abandonAll stops every session without teardown; the legs are
// unreachable once the connection is gone.
func (a *App) abandonAll() {
	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	a.mu.Unlock()

	if len(sessions) > 0 {
		a.logger.Warn("abandoning in-flight sessions", "count", len(sessions))
	}
	for _, s := range sessions {
		s.Abandon()
	}
}

// ActiveSessions reports how many calls are currently handled.
func (a *App) ActiveSessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}
