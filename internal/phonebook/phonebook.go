// Package phonebook resolves caller names through the tel.search.ch
// reverse-lookup API. Lookups are best effort: the call flow proceeds
// unnamed whenever the service is slow, unreachable or has no match.
package phonebook

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultBaseURL is the public search API endpoint.
const DefaultBaseURL = "https://tel.search.ch/api/"

// lookupTimeout bounds one lookup. Callers are waiting on the line while
// this runs, so it is deliberately short.
const lookupTimeout = 3 * time.Second

// cacheSize is the number of recent lookups kept in memory. Repeat callers
// within a short span are common; anything bigger is wasted.
const cacheSize = 16

// Client queries the reverse phonebook.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger

	mu    sync.Mutex
	cache map[string]string
	order []string
}

// New creates a client. baseURL may be empty for the public API.
func New(baseURL, apiKey string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: lookupTimeout},
		logger:  logger.With("subsystem", "phonebook"),
		cache:   make(map[string]string),
	}
}

// feed is the subset of the Atom response the lookup needs. The OpenSearch
// Query element with role "correction" carries an alternative search term
// when the exact number has no entry (typical for company number ranges).
type feed struct {
	Entries []struct {
		Title string `xml:"title"`
	} `xml:"entry"`
	Queries []struct {
		Role        string `xml:"role,attr"`
		SearchTerms string `xml:"searchTerms,attr"`
	} `xml:"Query"`
}

func (f feed) correction() string {
	for _, q := range f.Queries {
		if q.Role == "correction" {
			return q.SearchTerms
		}
	}
	return ""
}

// Lookup returns the name listed for the number, or "" when the phonebook
// has no entry. When the API suggests a corrected search term the lookup is
// retried once and the resolved name prefixed with "?" to mark it as a
// guess. Results, including misses, are cached.
func (c *Client) Lookup(ctx context.Context, number string) (string, error) {
	c.mu.Lock()
	name, cached := c.cache[number]
	c.mu.Unlock()
	if cached {
		return name, nil
	}

	name, correction, err := c.query(ctx, number)
	if err != nil {
		return "", err
	}
	if name == "" && correction != "" {
		corrected, _, err := c.query(ctx, correction)
		if err != nil {
			return "", err
		}
		if corrected != "" {
			name = "?" + corrected
		}
	}

	c.store(number, name)
	return name, nil
}

func (c *Client) query(ctx context.Context, number string) (name, correction string, _ error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("was", number)
	q.Set("maxnum", "1")
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", "", fmt.Errorf("creating lookup request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("phonebook lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("phonebook lookup: unexpected status %d", resp.StatusCode)
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return "", "", fmt.Errorf("decoding phonebook response: %w", err)
	}

	if len(f.Entries) == 0 {
		c.logger.Debug("no phonebook entry", "number", number)
		return "", f.correction(), nil
	}
	return f.Entries[0].Title, "", nil
}

// store caches one result, evicting the oldest entry when full.
func (c *Client) store(number, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache[number]; ok {
		c.cache[number] = name
		return
	}
	if len(c.order) >= cacheSize {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.cache, oldest)
	}
	c.cache[number] = name
	c.order = append(c.order, number)
}
