package call

import (
	"context"

	"github.com/synox/telewall/internal/ari"
)

// Recording records the caller's announcement to the custom asset,
// overwriting any previous take. Recording runs until the user hangs up;
// the control server persists the file on its own.
type Recording struct {
	baseState
}

// NewRecording creates the announcement-recording state.
func NewRecording(s *Session) *Recording {
	return &Recording{baseState: baseState{name: "Recording", s: s}}
}

func (r *Recording) Enter(ctx context.Context) {
	s := r.s
	err := s.tel.RecordChannel(ctx, s.incoming.ID, ari.RecordRequest{
		Name:     CustomAnnouncementRecording,
		Format:   "wav",
		Beep:     true,
		IfExists: "overwrite",
	})
	if err != nil {
		s.logger.Error("starting announcement recording failed", "error", err)
		s.fire(ctx, EventHangup)
		return
	}
	s.logger.Info("recording announcement")
}
