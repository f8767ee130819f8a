// Package ari is a minimal client for the Asterisk REST Interface. It
// covers the subset telewall needs: the per-application websocket event
// stream plus REST commands for channels, bridges, playbacks and stored
// recordings.
package ari

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client talks to one Asterisk instance on behalf of one ARI application.
type Client struct {
	baseURL  string // e.g. http://localhost:8088
	app      string
	username string
	password string

	httpClient *http.Client
	logger     *slog.Logger

	conn   *websocket.Conn
	events chan Event
}

// Connect creates a client and opens the event websocket for the given
// application. The caller must run Listen to start receiving events.
func Connect(ctx context.Context, baseURL, app, username, password string, logger *slog.Logger) (*Client, error) {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		app:      app,
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("subsystem", "ari", "app", app),
		events: make(chan Event, 64),
	}

	wsURL, err := c.eventsURL()
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("connecting event stream (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("connecting event stream: %w", err)
	}
	c.conn = conn

	c.logger.Info("connected to control server", "url", c.baseURL)
	return c, nil
}

// eventsURL builds the websocket URL for the application event stream.
func (c *Client) eventsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = "/ari/events"
	q := url.Values{}
	q.Set("app", c.app)
	q.Set("api_key", c.username+":"+c.password)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Events returns the stream of decoded events. The channel is closed when
// Listen returns.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Listen reads events from the websocket until the connection fails or ctx
// is canceled. It always closes the event channel before returning, so a
// consumer ranging over Events sees the disconnect.
func (c *Client) Listen(ctx context.Context) error {
	defer close(c.events)
	defer c.conn.Close()

	// Unblock the read loop when the context ends.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-stop:
		}
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("event stream closed: %w", err)
		}

		ev, err := decodeEvent(data)
		if err != nil {
			c.logger.Warn("dropping undecodable event", "error", err)
			continue
		}
		if ev == nil {
			// Event type we do not care about.
			continue
		}

		select {
		case c.events <- ev:
		default:
			// A full buffer means the consumer stalled for 64 events; better
			// to lose one than to stop reading and time out the websocket.
			c.logger.Error("event buffer full, dropping event", "type", ev.EventType())
		}
	}
}

// Close tears down the websocket. Safe to call more than once.
func (c *Client) Close() error {
	return c.conn.Close()
}

// doRequest performs one REST call against /ari. A non-2xx response is
// returned as a *StatusError. If out is non-nil the response body is
// decoded into it.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, out any) error {
	reqURL := c.baseURL + "/ari" + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(body)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}
