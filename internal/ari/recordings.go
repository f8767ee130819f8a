package ari

import (
	"context"
	"net/http"
	"net/url"
)

// StopPlayback stops a running playback. Returns a NotFound StatusError if
// the playback already finished.
func (c *Client) StopPlayback(ctx context.Context, playbackID string) error {
	return c.doRequest(ctx, http.MethodDelete, "/playbacks/"+url.PathEscape(playbackID), nil, nil)
}

// StoredRecordingExists checks whether a stored recording with the given
// name exists on the server.
func (c *Client) StoredRecordingExists(ctx context.Context, name string) (bool, error) {
	err := c.doRequest(ctx, http.MethodGet, "/recordings/stored/"+url.PathEscape(name), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// DeleteStoredRecording removes a stored recording. Returns a NotFound
// StatusError if it does not exist.
func (c *Client) DeleteStoredRecording(ctx context.Context, name string) error {
	return c.doRequest(ctx, http.MethodDelete, "/recordings/stored/"+url.PathEscape(name), nil, nil)
}
