package ari

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// BridgeInfo describes a mixing bridge.
type BridgeInfo struct {
	ID         string   `json:"id"`
	Technology string   `json:"technology"`
	BridgeType string   `json:"bridge_type"`
	Channels   []string `json:"channels"`
}

// CreateBridge creates a bridge of the given type, e.g. "mixing,dtmf_events".
func (c *Client) CreateBridge(ctx context.Context, bridgeType string) (BridgeInfo, error) {
	q := url.Values{}
	q.Set("type", bridgeType)

	var b BridgeInfo
	if err := c.doRequest(ctx, http.MethodPost, "/bridges", q, &b); err != nil {
		return BridgeInfo{}, fmt.Errorf("creating bridge: %w", err)
	}
	return b, nil
}

// AddBridgeChannels adds channels to the bridge so the parties hear each other.
func (c *Client) AddBridgeChannels(ctx context.Context, bridgeID string, channelIDs ...string) error {
	q := url.Values{}
	q.Set("channel", strings.Join(channelIDs, ","))
	return c.doRequest(ctx, http.MethodPost, "/bridges/"+url.PathEscape(bridgeID)+"/addChannel", q, nil)
}

// DestroyBridge tears the bridge down.
func (c *Client) DestroyBridge(ctx context.Context, bridgeID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/bridges/"+url.PathEscape(bridgeID), nil, nil)
}

// PlayOnBridge starts a playback on the bridge with a caller-chosen
// playback ID.
func (c *Client) PlayOnBridge(ctx context.Context, bridgeID, playbackID, media string) error {
	q := url.Values{}
	q.Set("media", media)
	path := "/bridges/" + url.PathEscape(bridgeID) + "/play/" + url.PathEscape(playbackID)
	return c.doRequest(ctx, http.MethodPost, path, q, nil)
}
