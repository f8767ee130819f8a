// Package importer loads published blacklists into the block list.
//
// The supported format is the semicolon-separated list derived from the
// K-Tipp cold-call blacklist: one number per line, optionally followed by
// a quoted company name. Comment lines start with '#'.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/synox/telewall/internal/database"
	"github.com/synox/telewall/internal/database/models"
	"github.com/synox/telewall/internal/number"
)

// DefaultURL is the published CSV rendering of the K-Tipp blacklist.
const DefaultURL = "http://trick77.com/tools/latest_cc_blacklist.txt"

const downloadTimeout = 30 * time.Second

// Stats summarizes one import run.
type Stats struct {
	Processed int // data rows read
	Added     int // entries newly inserted
	Skipped   int // rows dropped as invalid
}

// Importer reads blacklist files and persists the entries.
type Importer struct {
	blocklist database.Blocklist
	client    *http.Client
	logger    *slog.Logger
}

// New creates an Importer.
func New(blocklist database.Blocklist, logger *slog.Logger) *Importer {
	return &Importer{
		blocklist: blocklist,
		client:    &http.Client{Timeout: downloadTimeout},
		logger:    logger.With("subsystem", "importer"),
	}
}

// ImportURL downloads a blacklist and imports it.
func (im *Importer) ImportURL(ctx context.Context, url string) (Stats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Stats{}, fmt.Errorf("building download request: %w", err)
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return Stats{}, fmt.Errorf("downloading blacklist: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Stats{}, fmt.Errorf("downloading blacklist: unexpected status %s", resp.Status)
	}
	return im.ImportCSV(ctx, resp.Body)
}

// ImportCSV reads blacklist rows from r and bulk-inserts them. Numbers that
// are already blocked keep their existing entry.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader) (Stats, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var stats Stats
	var entries []*models.BlockedCaller

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("reading blacklist row: %w", err)
		}
		if len(row) == 0 {
			continue
		}
		stats.Processed++

		raw := strings.TrimSpace(row[0])
		// Rows starting with 000 are placeholders in the published list.
		if raw == "" || strings.HasPrefix(raw, "000") {
			stats.Skipped++
			continue
		}

		n := number.ParseValidated(raw)
		if !n.Valid {
			im.logger.Warn("skipping invalid number", "number", raw)
			stats.Skipped++
			continue
		}

		entries = append(entries, &models.BlockedCaller{
			TelephoneNumber: n.Full,
			Comment:         rowComment(row),
			Source:          models.SourceImport,
		})
	}

	added, err := im.blocklist.BlockAll(ctx, entries)
	if err != nil {
		return stats, fmt.Errorf("storing blacklist entries: %w", err)
	}
	stats.Added = added

	im.logger.Info("blacklist import finished",
		"processed", stats.Processed, "added", stats.Added, "skipped", stats.Skipped)
	return stats, nil
}

// rowComment extracts the company name from the second column. The published
// list wraps it in single quotes and prefixes company entries with "Firma".
func rowComment(row []string) string {
	if len(row) < 2 {
		return ""
	}
	c := strings.Trim(strings.TrimSpace(row[1]), "'")
	c = strings.TrimSpace(strings.TrimPrefix(c, "Firma"))
	return c
}
