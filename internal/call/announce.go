package call

import (
	"log/slog"

	"github.com/synox/telewall/internal/ari"
)

// AnnounceFactory builds sessions for the announcement-management flow,
// reached by dialing the management extension from the handset:
//
//	Menu --1--> PlaybackInstruction --> Recording (until hangup)
//	  |  --2--> PlaybackListen --> Menu
//	  |  --3--> ResetRecording --1--> PlaybackResetDone --> Menu
func AnnounceFactory(logger *slog.Logger) SessionFactory {
	return func(tel Telephony, incoming ari.ChannelInfo, args []string) *Session {
		s := newSession(AppManageRecording, tel, incoming, logger)

		m := NewMachine(s.logger)
		menu := NewMenu(s, "Menu", soundMainMenu)
		instruction := NewPlayback(s, "PlaybackInstruction", soundRecordInstruction)
		recording := NewRecording(s)
		listen := NewAnnouncementPlayback(s, "PlaybackListen")
		reset := NewResetRecording(s, "ResetRecording")
		resetDone := NewPlayback(s, "PlaybackResetDone", soundResetDone)
		hungUp := NewHungUp(s)

		m.AddTransition(menu, Event("1"), instruction)
		m.AddTransition(menu, Event("2"), listen)
		m.AddTransition(menu, Event("3"), reset)
		m.AddTransition(instruction, EventPlaybackComplete, recording)
		m.AddTransition(listen, EventPlaybackComplete, menu)
		m.AddTransition(reset, EventActionComplete, resetDone)
		m.AddTransition(resetDone, EventPlaybackComplete, menu)
		m.AddHangupTransitions(hungUp, menu, instruction, recording, listen, reset, resetDone)

		s.machine = m
		s.initial = menu
		return s
	}
}
