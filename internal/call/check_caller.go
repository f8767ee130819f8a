package call

import (
	"context"

	"github.com/synox/telewall/internal/database"
)

// CheckCaller decides whether the caller gets through. Blocked numbers are
// refused without any name lookup; allowed callers get a best-effort
// reverse-phonebook lookup before the handset rings.
type CheckCaller struct {
	baseState
	blocklist database.Blocklist
	lookup    NameLookup
}

// NewCheckCaller creates the screening entry state.
func NewCheckCaller(s *Session, blocklist database.Blocklist, lookup NameLookup) *CheckCaller {
	return &CheckCaller{
		baseState: baseState{name: "CheckCaller", s: s},
		blocklist: blocklist,
		lookup:    lookup,
	}
}

func (c *CheckCaller) Enter(ctx context.Context) {
	s := c.s
	s.broadcastCaller()

	blocked, err := c.blocklist.IsBlocked(ctx, s.caller.Full)
	if err != nil {
		// Fail open: a broken store must not silence the line.
		s.logger.Error("blocklist query failed, allowing caller", "error", err)
		blocked = false
	}

	if blocked {
		s.logger.Info("refusing blocked caller")
		s.setBlockedVar(ctx, true)
		s.setAuditState(ctx, auditRefused)
		s.notifyRefuse()
		s.fire(ctx, EventCallerRefused)
		return
	}

	if c.lookup != nil && !s.caller.Anonymous() {
		name, err := c.lookup.Lookup(ctx, s.caller.Full)
		if err != nil {
			s.logger.Debug("name lookup failed", "error", err)
		} else if name != "" {
			s.caller.Name = name
		}
	}

	s.setBlockedVar(ctx, false)
	s.setAuditState(ctx, auditAllowed)
	s.broadcastCaller()
	s.notifyPermit()
	s.fire(ctx, EventCallerAllowed)
}
