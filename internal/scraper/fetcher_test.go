package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(baseURL string) *Fetcher {
	cfg := DefaultSourceConfig()
	cfg.BaseURL = baseURL
	cfg.Delay = time.Millisecond
	return NewFetcher(cfg, zerolog.Nop())
}

func TestFetcherURLs(t *testing.T) {
	f := newTestFetcher("https://www.example.co.th")
	assert.Equal(t, "https://www.example.co.th/events/2025-11/", f.MonthURL("2025-11"))
	assert.Equal(t, "https://www.example.co.th/events?page=3", f.PageURL(3))
}

func TestFetcherFetchURL(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	body := f.FetchURL(context.Background(), srv.URL+"/events/x")

	require.NotEmpty(t, body)
	assert.Contains(t, string(body), "ok")
	assert.Contains(t, userAgents, gotUA, "user agent must come from the rotation pool")
}

func TestFetcherFailedFetchYieldsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	assert.Empty(t, f.FetchURL(context.Background(), srv.URL+"/events/x"))
}

func TestFetcherCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher("https://www.example.co.th")
	assert.Nil(t, f.FetchURL(ctx, "https://www.example.co.th/events/x"))
}
