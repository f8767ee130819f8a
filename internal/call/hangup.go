package call

import "context"

// HungUp is the terminal state for a call ended by either party. Entry
// releases both legs and the bridge idempotently; repeated hangup events
// are ignored.
type HungUp struct {
	baseState
}

// NewHungUp creates the hangup terminal state.
func NewHungUp(s *Session) *HungUp {
	return &HungUp{baseState: baseState{name: "HungUp", s: s}}
}

func (h *HungUp) Enter(ctx context.Context) {
	h.s.logger.Info("call hung up")
	h.s.teardown(ctx)
}

func (h *HungUp) OnHangup(ctx context.Context, channelID string) {}

// Ending is the terminal state for a flow that ran to completion. Like
// HungUp it releases all resources, without the hangup log entry.
type Ending struct {
	baseState
}

// NewEnding creates the completion terminal state.
func NewEnding(s *Session) *Ending {
	return &Ending{baseState: baseState{name: "Ending", s: s}}
}

func (e *Ending) Enter(ctx context.Context) {
	e.s.teardown(ctx)
}

func (e *Ending) OnHangup(ctx context.Context, channelID string) {}
