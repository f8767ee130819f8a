package ari

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// OriginateRequest describes an outgoing call leg.
type OriginateRequest struct {
	Endpoint string // e.g. SIP/handset-line1
	App      string // stasis application receiving the new channel
	AppArgs  string // routing arguments, first element distinguishes the leg
	CallerID string // presented to the dialed endpoint
	Timeout  int    // seconds, 0 for the server default
}

// RecordRequest describes a live recording on a channel.
type RecordRequest struct {
	Name     string
	Format   string // e.g. wav
	Beep     bool
	IfExists string // fail, overwrite or append
}

// AnswerChannel answers the channel.
func (c *Client) AnswerChannel(ctx context.Context, channelID string) error {
	return c.doRequest(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/answer", nil, nil)
}

// RingChannel indicates ringing to the channel.
func (c *Client) RingChannel(ctx context.Context, channelID string) error {
	return c.doRequest(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/ring", nil, nil)
}

// HangupChannel hangs up the channel. reason may be empty for a normal
// hangup, or e.g. "busy" to signal the cause to the remote side.
func (c *Client) HangupChannel(ctx context.Context, channelID, reason string) error {
	q := url.Values{}
	if reason != "" {
		q.Set("reason", reason)
	}
	return c.doRequest(ctx, http.MethodDelete, "/channels/"+url.PathEscape(channelID), q, nil)
}

// Originate creates a new outgoing channel to the endpoint and hands it to
// the named application once it is up.
func (c *Client) Originate(ctx context.Context, req OriginateRequest) (ChannelInfo, error) {
	q := url.Values{}
	q.Set("endpoint", req.Endpoint)
	q.Set("app", req.App)
	if req.AppArgs != "" {
		q.Set("appArgs", req.AppArgs)
	}
	if req.CallerID != "" {
		q.Set("callerId", req.CallerID)
	}
	if req.Timeout > 0 {
		q.Set("timeout", strconv.Itoa(req.Timeout))
	}

	var ch ChannelInfo
	if err := c.doRequest(ctx, http.MethodPost, "/channels", q, &ch); err != nil {
		return ChannelInfo{}, fmt.Errorf("originating to %s: %w", req.Endpoint, err)
	}
	return ch, nil
}

// RecordChannel starts a live recording of the channel. Asterisk stops and
// stores the recording on its own when the channel hangs up.
func (c *Client) RecordChannel(ctx context.Context, channelID string, req RecordRequest) error {
	q := url.Values{}
	q.Set("name", req.Name)
	q.Set("format", req.Format)
	q.Set("beep", strconv.FormatBool(req.Beep))
	if req.IfExists != "" {
		q.Set("ifExists", req.IfExists)
	}
	return c.doRequest(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/record", q, nil)
}

// PlayOnChannel starts a playback with a caller-chosen playback ID so the
// matching PlaybackFinished event can be attributed.
func (c *Client) PlayOnChannel(ctx context.Context, channelID, playbackID, media string) error {
	q := url.Values{}
	q.Set("media", media)
	path := "/channels/" + url.PathEscape(channelID) + "/play/" + url.PathEscape(playbackID)
	return c.doRequest(ctx, http.MethodPost, path, q, nil)
}

// SetChannelVar sets a channel variable, e.g. a CDR field.
func (c *Client) SetChannelVar(ctx context.Context, channelID, name, value string) error {
	q := url.Values{}
	q.Set("variable", name)
	q.Set("value", value)
	return c.doRequest(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/variable", q, nil)
}
