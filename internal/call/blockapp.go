package call

import (
	"log/slog"
	"strings"

	"github.com/synox/telewall/internal/ari"
	"github.com/synox/telewall/internal/database"
)

// BlockConfig holds the handset menu codes of the blocking flow.
type BlockConfig struct {
	// BlockCode is the digits between * and # that block a caller,
	// e.g. "14" for *14#.
	BlockCode string
	// UnblockCode is the digits that introduce an unblocking extension,
	// e.g. "15" for *15*0311112233#.
	UnblockCode string
}

// BlockFactory builds sessions for the handset blocking flow. The dialed
// extension arrives as the first session-start argument and selects
// between blocking and unblocking; both end in a spoken confirmation or
// the invalid-input prompt.
func BlockFactory(cfg BlockConfig, blocklist database.Blocklist, history database.CallHistory,
	logger *slog.Logger) SessionFactory {

	return func(tel Telephony, incoming ari.ChannelInfo, args []string) *Session {
		s := newSession(AppBlock, tel, incoming, logger)

		dialed := ""
		if len(args) > 0 {
			dialed = args[0]
		}

		m := NewMachine(s.logger)
		hungUp := NewHungUp(s)
		ending := NewEnding(s)
		invalid := NewPlayback(s, "PlaybackInvalid", soundPhoneNumberInvalid)

		var action State
		var done *Playback
		if strings.HasPrefix(dialed, "*"+cfg.UnblockCode+"*") {
			action = NewUnblock(s, blocklist, cfg.UnblockCode, dialed)
			done = NewPlayback(s, "PlaybackUnblockDone", soundUnblockDone)
		} else {
			action = NewBlock(s, blocklist, history, cfg.BlockCode, dialed)
			done = NewPlayback(s, "PlaybackBlockDone", soundBlockDone)
		}

		m.AddTransition(action, EventActionComplete, done)
		m.AddTransition(action, EventInvalidInput, invalid)
		m.AddTransition(done, EventPlaybackComplete, ending)
		m.AddTransition(invalid, EventPlaybackComplete, ending)
		m.AddHangupTransitions(hungUp, action, done, invalid)

		s.machine = m
		s.initial = action
		return s
	}
}
