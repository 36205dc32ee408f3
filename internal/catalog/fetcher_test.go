package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNormalizeCatalogURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "http://example.com/thredds/catalog.html", want: "http://example.com/thredds/catalog.xml"},
		{in: "http://example.com/thredds/catalog.xml", want: "http://example.com/thredds/catalog.xml"},
		{in: "http://example.com/opendap/contents", want: "http://example.com/opendap/contents"},
	}
	for _, tc := range tests {
		require.Equal(t, tc.want, NormalizeCatalogURL(tc.in))
	}
}

func TestCollyFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("<catalog/>"))
	}))
	defer srv.Close()

	fetcher, err := NewCollyFetcher(FetcherConfig{
		UserAgent:      "test-agent",
		RequestTimeout: 5 * time.Second,
		Concurrency:    2,
	}, zap.NewNop())
	require.NoError(t, err)

	page, err := fetcher.Fetch(context.Background(), srv.URL+"/catalog.xml")
	require.NoError(t, err)
	require.Equal(t, 200, page.StatusCode)
	require.Equal(t, []byte("<catalog/>"), page.Body)
	require.Equal(t, srv.URL+"/catalog.xml", page.URL)
}

func TestCollyFetcherNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	fetcher, err := NewCollyFetcher(FetcherConfig{RequestTimeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	_, err = fetcher.Fetch(context.Background(), srv.URL+"/missing.xml")
	require.Error(t, err)
}

func TestCollyFetcherCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Write([]byte("late"))
	}))
	defer func() {
		close(release)
		srv.Close()
	}()

	fetcher, err := NewCollyFetcher(FetcherConfig{RequestTimeout: time.Minute}, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// Cancellation must interrupt the in-flight request, not wait for the
	// server to answer.
	start := time.Now()
	_, err = fetcher.Fetch(ctx, srv.URL+"/slow.xml")
	require.Error(t, err)
	require.Less(t, time.Since(start), 10*time.Second)
}

func TestCollyFetcherRepeatVisit(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	fetcher, err := NewCollyFetcher(FetcherConfig{RequestTimeout: 5 * time.Second}, zap.NewNop())
	require.NoError(t, err)

	// The same URL can be fetched more than once; revisit tracking belongs
	// to the traversal engine, not the fetcher.
	_, err = fetcher.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), srv.URL+"/page")
	require.NoError(t, err)
	require.Equal(t, 2, hits)
}
