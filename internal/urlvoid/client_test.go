package urlvoid

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegrjumin/urlrisk/internal/logging"
	"github.com/olegrjumin/urlrisk/internal/signal"
	"github.com/olegrjumin/urlrisk/internal/urlnorm"
)

func mustParse(t *testing.T, raw string) *urlnorm.URL {
	t.Helper()
	u, err := urlnorm.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParseReport(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantScore   int
		wantReasons []string
	}{
		{
			name:        "some detections",
			body:        `<response><detections>2</detections><engines>30</engines></response>`,
			wantScore:   10,
			wantReasons: []string{"2/30 engines flagged domain"},
		},
		{
			name:        "boost is capped",
			body:        `<response><detections>25</detections><engines>30</engines></response>`,
			wantScore:   100,
			wantReasons: []string{"25/30 engines flagged domain"},
		},
		{
			name:        "clean",
			body:        `<response><detections>0</detections><engines>30</engines></response>`,
			wantScore:   0,
			wantReasons: []string{},
		},
		{
			name:        "missing counters",
			body:        `<response><error>Invalid host</error></response>`,
			wantScore:   0,
			wantReasons: []string{},
		},
		{
			name:        "zero engines",
			body:        `<detections>3</detections><engines>0</engines>`,
			wantScore:   0,
			wantReasons: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseReport(tt.body)
			assert.Equal(t, tt.wantScore, got.Score)
			assert.Equal(t, tt.wantReasons, got.Reasons)
		})
	}
}

func TestLookupQueriesHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/1000/secret/host/evil.example.net/", r.URL.Path)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?><response><detections>6</detections><engines>40</engines></response>`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "secret", BaseURL: srv.URL, Timeout: time.Second}, nil)
	got := c.Lookup(context.Background(), mustParse(t, "https://Evil.Example.NET/path?x=1"))

	assert.Equal(t, 23, got.Score)
	assert.Equal(t, []string{"6/40 engines flagged domain"}, got.Reasons)
}

func TestLookupUnavailable(t *testing.T) {
	t.Run("unconfigured", func(t *testing.T) {
		got := New(Config{}, nil).Lookup(context.Background(), mustParse(t, "https://example.com"))
		assert.Equal(t, signal.Unconfigured(SourceName), got)
	})

	t.Run("malformed", func(t *testing.T) {
		got := New(Config{APIKey: "k"}, nil).Lookup(context.Background(), nil)
		assert.Equal(t, signal.Failed(SourceName), got)
	})

	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<detections>9</detections><engines>10</engines>`))
		}))
		defer srv.Close()

		c := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, nil)
		assert.Equal(t, signal.Failed(SourceName), c.Lookup(context.Background(), mustParse(t, "https://example.com")))
	})

	t.Run("cancelled context", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		c := New(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second}, nil)
		assert.Equal(t, signal.Failed(SourceName), c.Lookup(ctx, mustParse(t, "https://example.com")))
	})
}

// closingServer accepts each request and drops the connection without replying
func closingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if !assert.NoError(t, err) {
			return
		}
		_ = conn.Close()
	}))
}

func TestLookupFailureKeepsKeyOutOfLogs(t *testing.T) {
	const key = "SUPERSECRETKEY"
	srv := closingServer(t)
	defer srv.Close()

	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "debug", Output: &buf})

	c := New(Config{APIKey: key, BaseURL: srv.URL, Timeout: time.Second}, logger)
	got := c.Lookup(context.Background(), mustParse(t, "https://example.com/login"))

	assert.Equal(t, signal.StatusFailed, got.Status)
	assert.Contains(t, buf.String(), "Lookup failed")
	assert.NotContains(t, buf.String(), key)
}
