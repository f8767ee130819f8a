package call

import (
	"context"

	"github.com/synox/telewall/internal/ari"
)

// DialHandset rings the household handset for an allowed caller. The
// originated leg enters the same application carrying the dialed marker;
// its readiness or early destruction decides between Connected and Ending.
type DialHandset struct {
	baseState
	endpoint string
}

// NewDialHandset creates the dialing state for the configured handset
// endpoint.
func NewDialHandset(s *Session, endpoint string) *DialHandset {
	return &DialHandset{
		baseState: baseState{name: "DialHandset", s: s},
		endpoint:  endpoint,
	}
}

func (d *DialHandset) Enter(ctx context.Context) {
	s := d.s
	s.setAuditState(ctx, auditNoAnswer)

	out, err := s.tel.Originate(ctx, ari.OriginateRequest{
		Endpoint: d.endpoint,
		App:      s.app,
		AppArgs:  originatedMarker,
		CallerID: s.caller.CallerID(),
		Timeout:  -1,
	})
	if err != nil {
		s.logger.Error("originating handset leg failed", "endpoint", d.endpoint, "error", err)
		s.fire(ctx, EventBusy)
		return
	}
	s.setOutgoing(out.ID)

	if err := s.tel.RingChannel(ctx, s.incoming.ID); err != nil {
		s.logger.Warn("ringing incoming leg failed", "error", err)
	}
}

// OnChannelUp bridges the two legs once the handset answered.
func (d *DialHandset) OnChannelUp(ctx context.Context, channelID string) {
	s := d.s
	if channelID != s.OutgoingID() {
		return
	}

	s.markAnswered()
	s.setAuditState(ctx, auditAnswered)
	if err := s.tel.AnswerChannel(ctx, s.incoming.ID); err != nil {
		s.logger.Warn("answering incoming leg failed", "error", err)
	}

	bridge, err := s.tel.CreateBridge(ctx, "mixing,dtmf_events")
	if err != nil {
		s.logger.Error("creating bridge failed", "error", err)
		s.fire(ctx, EventHangup)
		return
	}
	s.setBridge(bridge.ID)
	if err := s.tel.AddBridgeChannels(ctx, bridge.ID, s.incoming.ID, channelID); err != nil {
		s.logger.Error("bridging legs failed", "error", err)
		s.fire(ctx, EventHangup)
		return
	}

	s.notifyAnswer()
	s.fire(ctx, EventAnswer)
}

// OnChannelGone handles the handset being busy or rejecting the call: the
// leg is destroyed before it ever came up.
func (d *DialHandset) OnChannelGone(ctx context.Context, channelID string) {
	s := d.s
	s.logger.Info("handset unavailable", "channel", channelID)
	s.setAuditState(ctx, auditBusy)
	s.safeHangup(ctx, s.incoming.ID, "busy")
	s.fire(ctx, EventBusy)
}
