package call

import (
	"context"

	"github.com/synox/telewall/internal/callstate"
	"github.com/synox/telewall/internal/database"
	"github.com/synox/telewall/internal/database/models"
)

// Connected is the bridged conversation. The handset can end and block the
// caller by pressing # the configured number of times in a row, or through
// the hardware button, which arrives as a refuse transition on the shared
// line state.
type Connected struct {
	baseState
	blocklist database.Blocklist
	threshold int
	presses   int
	cancelSub func()
}

// NewConnected creates the in-call state. threshold is the number of
// consecutive # presses that blocks the caller.
func NewConnected(s *Session, blocklist database.Blocklist, threshold int) *Connected {
	return &Connected{
		baseState: baseState{name: "Connected", s: s},
		blocklist: blocklist,
		threshold: threshold,
	}
}

func (c *Connected) Enter(ctx context.Context) {
	s := c.s
	c.presses = 0
	if s.broadcaster == nil {
		return
	}
	// The button collaborator refuses via the broadcaster. Forward the
	// transition into the session queue so it is handled in order with the
	// call's own events.
	c.cancelSub = s.broadcaster.Subscribe(func(event string, _ callstate.Snapshot) {
		if event == "refuse" {
			s.Deliver(refuseSignal{})
		}
	})
}

func (c *Connected) Cleanup(ctx context.Context) {
	if c.cancelSub != nil {
		c.cancelSub()
		c.cancelSub = nil
	}
}

// OnDigit counts # presses on the handset leg. Digits from the caller's
// leg never block.
func (c *Connected) OnDigit(ctx context.Context, channelID, digit string) {
	if channelID != c.s.OutgoingID() {
		return
	}
	if digit != "#" {
		c.presses = 0
		return
	}
	c.presses++
	if c.presses < c.threshold {
		return
	}
	c.refuse(ctx, models.SourceDTMF, true)
}

// OnRefuseRequested handles the hardware button. The broadcaster already
// moved to refusing, so the line state is not notified again.
func (c *Connected) OnRefuseRequested(ctx context.Context) {
	c.refuse(ctx, models.SourceButton, false)
}

func (c *Connected) refuse(ctx context.Context, source string, notify bool) {
	s := c.s
	caller := s.caller

	if caller.Anonymous() {
		s.logger.Warn("cannot block anonymous caller")
	} else {
		err := c.blocklist.Block(ctx, &models.BlockedCaller{
			TelephoneNumber: caller.Full,
			Comment:         caller.Name,
			Source:          source,
		})
		if err != nil {
			s.logger.Error("blocking caller failed", "error", err)
		} else {
			s.logger.Info("caller blocked", "source", source)
		}
	}

	s.setBlockedVar(ctx, true)
	s.setAuditState(ctx, auditRefused)
	if notify {
		s.notifyRefuse()
	}
	s.fire(ctx, EventCallerRefused)
}
