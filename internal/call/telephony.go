package call

import (
	"context"

	"github.com/synox/telewall/internal/ari"
)

// Telephony is the control-server surface the call flows use. *ari.Client
// implements it; tests substitute a fake.
type Telephony interface {
	AnswerChannel(ctx context.Context, channelID string) error
	RingChannel(ctx context.Context, channelID string) error
	HangupChannel(ctx context.Context, channelID, reason string) error
	Originate(ctx context.Context, req ari.OriginateRequest) (ari.ChannelInfo, error)
	RecordChannel(ctx context.Context, channelID string, req ari.RecordRequest) error
	PlayOnChannel(ctx context.Context, channelID, playbackID, media string) error
	PlayOnBridge(ctx context.Context, bridgeID, playbackID, media string) error
	StopPlayback(ctx context.Context, playbackID string) error
	CreateBridge(ctx context.Context, bridgeType string) (ari.BridgeInfo, error)
	AddBridgeChannels(ctx context.Context, bridgeID string, channelIDs ...string) error
	DestroyBridge(ctx context.Context, bridgeID string) error
	SetChannelVar(ctx context.Context, channelID, name, value string) error
	StoredRecordingExists(ctx context.Context, name string) (bool, error)
	DeleteStoredRecording(ctx context.Context, name string) error
}

var _ Telephony = (*ari.Client)(nil)

// NameLookup resolves a caller's name, best effort. Implementations must
// bound their own latency; an error or empty name never blocks a call.
type NameLookup interface {
	Lookup(ctx context.Context, number string) (string, error)
}
