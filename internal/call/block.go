package call

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/synox/telewall/internal/database"
	"github.com/synox/telewall/internal/database/models"
	"github.com/synox/telewall/internal/number"
)

// lastCallerWindow is how far back the bare blocking code reaches: dialing
// it blocks the most recent caller, but only shortly after the call.
const lastCallerWindow = 15 * time.Minute

// parseDialedNumber interprets digits dialed on the handset as a phone
// number. Digits without a leading zero are taken as a national number.
func parseDialedNumber(digits string) number.Number {
	if !strings.HasPrefix(digits, "0") {
		digits = "0" + digits
	}
	return number.Parse(digits)
}

// Block handles the handset blocking code. Two forms are accepted:
// *<code>*<number># blocks the embedded number, the bare *<code># blocks
// whoever called last within the recent window.
type Block struct {
	baseState
	blocklist database.Blocklist
	history   database.CallHistory
	dialed    string
	embedded  *regexp.Regexp
	bare      *regexp.Regexp
}

// NewBlock creates the blocking state for the dialed extension. code is
// the configured blocking menu code without the surrounding * and #.
func NewBlock(s *Session, blocklist database.Blocklist, history database.CallHistory, code, dialed string) *Block {
	quoted := regexp.QuoteMeta(code)
	return &Block{
		baseState: baseState{name: "Block", s: s},
		blocklist: blocklist,
		history:   history,
		dialed:    dialed,
		embedded:  regexp.MustCompile(`^\*` + quoted + `\*(\d+)#?$`),
		bare:      regexp.MustCompile(`^\*` + quoted + `#?$`),
	}
}

func (b *Block) Enter(ctx context.Context) {
	s := b.s

	target, ok := b.resolveTarget(ctx)
	if !ok {
		s.fire(ctx, EventInvalidInput)
		return
	}

	err := b.blocklist.Block(ctx, &models.BlockedCaller{
		TelephoneNumber: target.Full,
		Comment:         target.Name,
		Source:          models.SourcePhone,
	})
	if err != nil {
		s.logger.Error("blocking caller failed", "number", target.Full, "error", err)
		s.fire(ctx, EventInvalidInput)
		return
	}

	s.logger.Info("caller blocked from handset", "number", target.Full)
	s.fire(ctx, EventActionComplete)
}

// resolveTarget extracts the number to block from the dialed extension.
func (b *Block) resolveTarget(ctx context.Context) (number.Number, bool) {
	s := b.s

	if m := b.embedded.FindStringSubmatch(b.dialed); m != nil {
		n := parseDialedNumber(m[1])
		if n.Anonymous() {
			return number.Number{}, false
		}
		return n, true
	}

	if b.bare.MatchString(b.dialed) {
		rec, err := b.history.LastCaller(ctx, time.Now().Add(-lastCallerWindow))
		if err != nil {
			s.logger.Error("last caller lookup failed", "error", err)
			return number.Number{}, false
		}
		if rec == nil {
			s.logger.Info("no recent caller to block")
			return number.Number{}, false
		}
		n := number.Parse(rec.Src)
		n.Name = rec.CallerName
		if n.Anonymous() {
			return number.Number{}, false
		}
		return n, true
	}

	s.logger.Info("invalid blocking code", "dialed", b.dialed)
	return number.Number{}, false
}
