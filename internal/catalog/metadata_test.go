package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetadataFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(sampleDAS))
	}))
	defer srv.Close()

	datasets := []Dataset{
		NewDataset("first", srv.URL+"/dodsC/first", ""),
		NewDataset("broken", srv.URL+"/dodsC/broken", ""),
		NewDataset("second", srv.URL+"/dodsC/second", ""),
	}

	das := NewDASClient(DASClientConfig{Timeout: 5 * time.Second, MaxRetries: 1}, zap.NewNop())
	fetcher := NewMetadataFetcher(das, 3, zap.NewNop(), nil, [16]byte{})

	successful := fetcher.Fetch(context.Background(), datasets)
	require.Equal(t, 2, successful)

	require.True(t, datasets[0].HasMetadata())
	require.False(t, datasets[1].HasMetadata())
	require.True(t, datasets[2].HasMetadata())
	require.Equal(t, StringValue("Sea Surface Temp"), datasets[0].Global["long_name"])
}

func TestMetadataFetcherEmpty(t *testing.T) {
	das := NewDASClient(DASClientConfig{Timeout: time.Second}, zap.NewNop())
	fetcher := NewMetadataFetcher(das, 2, zap.NewNop(), nil, [16]byte{})
	require.Zero(t, fetcher.Fetch(context.Background(), nil))
}
