package call

import (
	"context"
	"regexp"

	"github.com/synox/telewall/internal/database"
)

// Unblock handles the handset unblocking code *<code>*<number>#. The
// embedded number is normalized and removed from the blocklist.
type Unblock struct {
	baseState
	blocklist database.Blocklist
	dialed    string
	pattern   *regexp.Regexp
}

// NewUnblock creates the unblocking state for the dialed extension.
func NewUnblock(s *Session, blocklist database.Blocklist, code, dialed string) *Unblock {
	return &Unblock{
		baseState: baseState{name: "Unblock", s: s},
		blocklist: blocklist,
		dialed:    dialed,
		pattern:   regexp.MustCompile(`^\*` + regexp.QuoteMeta(code) + `\*(\d+)#$`),
	}
}

func (u *Unblock) Enter(ctx context.Context) {
	s := u.s

	m := u.pattern.FindStringSubmatch(u.dialed)
	if m == nil {
		s.logger.Info("invalid unblocking code", "dialed", u.dialed)
		s.fire(ctx, EventInvalidInput)
		return
	}

	n := parseDialedNumber(m[1])
	if err := u.blocklist.Unblock(ctx, n.Full); err != nil {
		s.logger.Error("unblocking caller failed", "number", n.Full, "error", err)
		s.fire(ctx, EventInvalidInput)
		return
	}

	s.logger.Info("caller unblocked from handset", "number", n.Full)
	s.fire(ctx, EventActionComplete)
}
