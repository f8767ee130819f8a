// Package metrics exposes telewall state to Prometheus.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/synox/telewall/internal/callstate"
)

// SessionCounter exposes the number of in-flight call sessions of one
// application.
type SessionCounter interface {
	ActiveSessions() int
}

// EntryCounter counts persisted entries, optionally filtered.
type EntryCounter interface {
	Count(ctx context.Context, filter string) (int64, error)
}

// Collector is a prometheus.Collector that gathers telewall metrics at scrape time.
type Collector struct {
	apps      map[string]SessionCounter
	blocklist EntryCounter
	history   EntryCounter
	line      *callstate.Broadcaster
	startTime time.Time

	// Metric descriptors.
	activeSessionsDesc *prometheus.Desc
	blocklistSizeDesc  *prometheus.Desc
	callsTotalDesc     *prometheus.Desc
	lineStateDesc      *prometheus.Desc
	uptimeDesc         *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil if unavailable.
func NewCollector(
	apps map[string]SessionCounter,
	blocklist EntryCounter,
	history EntryCounter,
	line *callstate.Broadcaster,
	startTime time.Time,
) *Collector {
	return &Collector{
		apps:      apps,
		blocklist: blocklist,
		history:   history,
		line:      line,
		startTime: startTime,

		activeSessionsDesc: prometheus.NewDesc(
			"telewall_active_sessions",
			"Number of call sessions currently handled, per application",
			[]string{"app"}, nil,
		),
		blocklistSizeDesc: prometheus.NewDesc(
			"telewall_blocked_callers",
			"Number of entries on the block list",
			nil, nil,
		),
		callsTotalDesc: prometheus.NewDesc(
			"telewall_calls_total",
			"Total number of incoming calls recorded in the history",
			nil, nil,
		),
		lineStateDesc: prometheus.NewDesc(
			"telewall_line_state",
			"Current line state (1 for the active state, 0 otherwise)",
			[]string{"state"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"telewall_uptime_seconds",
			"Seconds since the telewall process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeSessionsDesc
	ch <- c.blocklistSizeDesc
	ch <- c.callsTotalDesc
	ch <- c.lineStateDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Per-application session gauges.
	for name, app := range c.apps {
		ch <- prometheus.MustNewConstMetric(
			c.activeSessionsDesc, prometheus.GaugeValue,
			float64(app.ActiveSessions()), name,
		)
	}

	// Block list size gauge.
	if c.blocklist != nil {
		count, err := c.blocklist.Count(ctx, "")
		if err != nil {
			slog.Error("metrics: failed to count blocked callers", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.blocklistSizeDesc, prometheus.GaugeValue,
				float64(count),
			)
		}
	}

	// Call volume counter.
	if c.history != nil {
		count, err := c.history.Count(ctx, "")
		if err != nil {
			slog.Error("metrics: failed to count call history", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.callsTotalDesc, prometheus.CounterValue,
				float64(count),
			)
		}
	}

	// Line state gauges (one metric per state, the active one set to 1).
	if c.line != nil {
		current := c.line.Current().State
		for _, state := range []callstate.State{
			callstate.Disconnected, callstate.Ringing, callstate.Connected, callstate.Refusing,
		} {
			val := 0.0
			if state == current {
				val = 1.0
			}
			ch <- prometheus.MustNewConstMetric(
				c.lineStateDesc, prometheus.GaugeValue, val, string(state),
			)
		}
	}

	// Uptime.
	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
