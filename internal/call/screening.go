package call

import (
	"log/slog"

	"github.com/synox/telewall/internal/ari"
	"github.com/synox/telewall/internal/callstate"
	"github.com/synox/telewall/internal/database"
)

// ScreeningConfig holds the parameters of the incoming-call flow.
type ScreeningConfig struct {
	// HandsetEndpoint is the control-server endpoint of the household
	// handset, e.g. SIP/handset.
	HandsetEndpoint string
	// BlockPresses is how many consecutive # presses block the caller.
	BlockPresses int
}

// ScreeningFactory builds sessions for the incoming-call screening flow:
//
//	CheckCaller -- allowed --> DialHandset -- answer --> Connected
//	     |                        |  busy                   |
//	  refused                   Ending                   refused
//	     |                                                  |
//	     +-----------> PlaybackRefused <--------------------+
//	                        |
//	                      Ending
func ScreeningFactory(cfg ScreeningConfig, blocklist database.Blocklist, history database.CallHistory,
	lookup NameLookup, bc *callstate.Broadcaster, logger *slog.Logger) SessionFactory {

	return func(tel Telephony, incoming ari.ChannelInfo, args []string) *Session {
		s := newSession(AppIncoming, tel, incoming, logger)
		s.broadcaster = bc
		s.history = history

		m := NewMachine(s.logger)
		check := NewCheckCaller(s, blocklist, lookup)
		dial := NewDialHandset(s, cfg.HandsetEndpoint)
		connected := NewConnected(s, blocklist, cfg.BlockPresses)
		refused := NewAnnouncementPlayback(s, "PlaybackRefused")
		hungUp := NewHungUp(s)
		ending := NewEnding(s)

		m.AddTransition(check, EventCallerRefused, refused)
		m.AddTransition(check, EventCallerAllowed, dial)
		m.AddTransition(dial, EventAnswer, connected)
		m.AddTransition(dial, EventBusy, ending)
		m.AddTransition(connected, EventCallerRefused, refused)
		m.AddTransition(refused, EventPlaybackComplete, ending)
		m.AddHangupTransitions(hungUp, check, dial, connected, refused)

		s.machine = m
		s.initial = check
		return s
	}
}
