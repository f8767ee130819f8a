package call

import (
	"context"

	"github.com/google/uuid"

	"github.com/synox/telewall/internal/ari"
)

// Playback answers the incoming leg and plays one media reference. When a
// transition for EventPlaybackComplete is registered the flow advances
// after the media finished; otherwise the state lingers, which menus rely
// on. Each Enter starts a fresh playback with its own ID, so a stale
// playback-finished event can never advance the flow.
type Playback struct {
	baseState
	media      func(ctx context.Context) string
	playbackID string
}

// NewPlayback creates a playback state for a fixed media reference.
func NewPlayback(s *Session, name, media string) *Playback {
	return &Playback{
		baseState: baseState{name: name, s: s},
		media:     func(context.Context) string { return media },
	}
}

// NewAnnouncementPlayback creates a playback state that resolves the
// refusal announcement on entry, so a newly recorded announcement is
// picked up immediately.
func NewAnnouncementPlayback(s *Session, name string) *Playback {
	return &Playback{
		baseState: baseState{name: name, s: s},
		media:     s.AnnouncementMedia,
	}
}

func (p *Playback) Enter(ctx context.Context) {
	s := p.s
	if err := s.tel.AnswerChannel(ctx, s.incoming.ID); err != nil {
		s.logger.Warn("answering incoming leg failed", "error", err)
	}

	p.playbackID = uuid.NewString()
	s.claimPlayback(p.playbackID)
	media := p.media(ctx)
	if err := s.tel.PlayOnChannel(ctx, s.incoming.ID, p.playbackID, media); err != nil {
		s.logger.Error("starting playback failed", "media", media, "error", err)
		s.releasePlayback(p.playbackID)
		p.playbackID = ""
		p.advance(ctx)
	}
}

// OnPlaybackFinished advances when the session's current playback ended.
// Finish events for any other playback are ignored.
func (p *Playback) OnPlaybackFinished(ctx context.Context, playbackID string) {
	if p.playbackID == "" || playbackID != p.playbackID {
		return
	}
	p.s.releasePlayback(p.playbackID)
	p.playbackID = ""
	p.advance(ctx)
}

func (p *Playback) advance(ctx context.Context) {
	if p.s.machine.HasTransition(p, EventPlaybackComplete) {
		p.s.fire(ctx, EventPlaybackComplete)
	}
}

// Cleanup stops a still-running playback, tolerating one that is already
// gone.
func (p *Playback) Cleanup(ctx context.Context) {
	if p.playbackID == "" {
		return
	}
	p.s.releasePlayback(p.playbackID)
	if err := p.s.tel.StopPlayback(ctx, p.playbackID); err != nil && !ari.IsNotFound(err) {
		p.s.logger.Warn("stopping playback failed", "error", err)
	}
	p.playbackID = ""
}

// Menu plays a prompt and waits for a digit choice. A digit is accepted
// only when a transition for it is registered; anything else is ignored
// and the prompt keeps playing or the state keeps waiting.
type Menu struct {
	Playback
}

// NewMenu creates a digit menu over the given prompt.
func NewMenu(s *Session, name, media string) *Menu {
	return &Menu{Playback: Playback{
		baseState: baseState{name: name, s: s},
		media:     func(context.Context) string { return media },
	}}
}

func (m *Menu) OnDigit(ctx context.Context, channelID, digit string) {
	ev, ok := DigitEvent(digit)
	if !ok || !m.s.machine.HasTransition(m, ev) {
		m.s.logger.Debug("ignoring menu digit", "digit", digit)
		return
	}
	m.s.fire(ctx, ev)
}

// ResetRecording plays a confirmation prompt; pressing 1 deletes the
// custom announcement and completes.
type ResetRecording struct {
	Playback
}

// NewResetRecording creates the announcement-reset confirmation state.
func NewResetRecording(s *Session, name string) *ResetRecording {
	return &ResetRecording{Playback: Playback{
		baseState: baseState{name: name, s: s},
		media:     func(context.Context) string { return soundResetConfirm },
	}}
}

func (r *ResetRecording) OnDigit(ctx context.Context, channelID, digit string) {
	if digit != "1" {
		return
	}
	s := r.s
	if err := s.tel.DeleteStoredRecording(ctx, CustomAnnouncementRecording); err != nil && !ari.IsNotFound(err) {
		s.logger.Error("deleting custom announcement failed", "error", err)
	} else {
		s.logger.Info("custom announcement reset")
	}
	s.fire(ctx, EventActionComplete)
}
