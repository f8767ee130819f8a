package call

import "context"

// baseState carries the name and session every state needs. Enter and
// Cleanup default to no-ops; OnHangup fires the hangup transition, which
// every non-terminal state registers.
type baseState struct {
	name string
	s    *Session
}

func (b *baseState) Name() string { return b.name }

func (b *baseState) Enter(ctx context.Context) {}

func (b *baseState) Cleanup(ctx context.Context) {}

func (b *baseState) OnHangup(ctx context.Context, channelID string) {
	b.s.fire(ctx, EventHangup)
}
