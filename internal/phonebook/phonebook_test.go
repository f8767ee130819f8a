package phonebook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>tel.search.ch</title>
  <entry>
    <title>Muster AG</title>
  </entry>
</feed>`

const emptyFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>tel.search.ch</title>
</feed>`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLookup(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if got := r.URL.Query().Get("was"); got != "+41311234567" {
			t.Errorf("was = %q, want the looked-up number", got)
		}
		if got := r.URL.Query().Get("key"); got != "testkey" {
			t.Errorf("key = %q, want testkey", got)
		}
		fmt.Fprint(w, sampleFeed)
	}))
	defer srv.Close()

	c := New(srv.URL, "testkey", discardLogger())

	name, err := c.Lookup(context.Background(), "+41311234567")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if name != "Muster AG" {
		t.Errorf("name = %q, want Muster AG", name)
	}

	// Second lookup is served from the cache.
	if _, err := c.Lookup(context.Background(), "+41311234567"); err != nil {
		t.Fatalf("cached Lookup: %v", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1", requests)
	}
}

func TestLookupNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, emptyFeed)
	}))
	defer srv.Close()

	c := New(srv.URL, "", discardLogger())

	name, err := c.Lookup(context.Background(), "+41311234567")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if name != "" {
		t.Errorf("name = %q, want empty", name)
	}
}

func TestLookupFollowsCorrection(t *testing.T) {
	const correctionFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:openSearch="http://a9.com/-/spec/opensearchrss/1.0/">
  <title>tel.search.ch</title>
  <openSearch:Query role="request" searchTerms="+41313216199" totalResults="0"/>
  <openSearch:Query role="correction" searchTerms="032 321 61 **" totalResults="2"/>
</feed>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("was") == "032 321 61 **" {
			fmt.Fprint(w, sampleFeed)
			return
		}
		fmt.Fprint(w, correctionFeed)
	}))
	defer srv.Close()

	c := New(srv.URL, "", discardLogger())

	name, err := c.Lookup(context.Background(), "+41313216199")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if name != "?Muster AG" {
		t.Errorf("name = %q, want corrected match marked with ?", name)
	}
}

func TestLookupServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "", discardLogger())

	if _, err := c.Lookup(context.Background(), "+41311234567"); err == nil {
		t.Fatal("expected error on server failure")
	}
}

func TestCacheEviction(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, emptyFeed)
	}))
	defer srv.Close()

	c := New(srv.URL, "", discardLogger())

	for i := 0; i < cacheSize+1; i++ {
		number := fmt.Sprintf("+4131123%04d", i)
		if _, err := c.Lookup(context.Background(), number); err != nil {
			t.Fatalf("Lookup: %v", err)
		}
	}

	// The first number was evicted and triggers a fresh request.
	if _, err := c.Lookup(context.Background(), "+41311230000"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if requests != cacheSize+2 {
		t.Errorf("requests = %d, want %d", requests, cacheSize+2)
	}
}
