package ari

import (
	"encoding/json"
	"fmt"
)

// Event is one decoded message from the application event stream.
type Event interface {
	EventType() string
}

// CallerID identifies the remote party of a channel.
type CallerID struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// ChannelInfo describes a channel as carried inside events.
type ChannelInfo struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	State  string   `json:"state"`
	Caller CallerID `json:"caller"`
}

// PlaybackInfo describes a playback as carried inside events.
type PlaybackInfo struct {
	ID       string `json:"id"`
	MediaURI string `json:"media_uri"`
	State    string `json:"state"`
}

// StasisStart signals that a channel entered this application's control.
// Args carries the routing arguments from the dialplan or originate call.
type StasisStart struct {
	Channel ChannelInfo `json:"channel"`
	Args    []string    `json:"args"`
}

func (StasisStart) EventType() string { return "StasisStart" }

// ChannelHangupRequest signals that a party asked to hang up a channel.
type ChannelHangupRequest struct {
	Channel ChannelInfo `json:"channel"`
	Cause   int         `json:"cause"`
	Soft    bool        `json:"soft"`
}

func (ChannelHangupRequest) EventType() string { return "ChannelHangupRequest" }

// ChannelDtmfReceived signals a DTMF digit on a channel.
type ChannelDtmfReceived struct {
	Channel    ChannelInfo `json:"channel"`
	Digit      string      `json:"digit"`
	DurationMs int         `json:"duration_ms"`
}

func (ChannelDtmfReceived) EventType() string { return "ChannelDtmfReceived" }

// ChannelDestroyed signals that a channel is gone. For an originated
// channel this arrives without a preceding StasisStart when the endpoint
// rejected the call.
type ChannelDestroyed struct {
	Channel  ChannelInfo `json:"channel"`
	Cause    int         `json:"cause"`
	CauseTxt string      `json:"cause_txt"`
}

func (ChannelDestroyed) EventType() string { return "ChannelDestroyed" }

// PlaybackFinished signals that a playback ran to completion.
type PlaybackFinished struct {
	Playback PlaybackInfo `json:"playback"`
}

func (PlaybackFinished) EventType() string { return "PlaybackFinished" }

// decodeEvent turns a raw websocket message into a typed event. Returns
// (nil, nil) for event types the client does not consume.
func decodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decoding event envelope: %w", err)
	}

	var ev Event
	switch envelope.Type {
	case "StasisStart":
		ev = &StasisStart{}
	case "ChannelHangupRequest":
		ev = &ChannelHangupRequest{}
	case "ChannelDtmfReceived":
		ev = &ChannelDtmfReceived{}
	case "ChannelDestroyed":
		ev = &ChannelDestroyed{}
	case "PlaybackFinished":
		ev = &PlaybackFinished{}
	default:
		return nil, nil
	}

	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", envelope.Type, err)
	}
	return ev, nil
}
