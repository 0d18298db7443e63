package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/robalyx/apachemgr/internal/fetcher"
	"github.com/robalyx/apachemgr/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFetch(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.RawQuery {
		case "auto":
			_, _ = w.Write([]byte("BusyWorkers: 1\n"))
		case "":
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
		}
	}))
	t.Cleanup(server.Close)

	f := fetcher.New(time.Second, zap.NewNop())

	body, err := f.Fetch(context.Background(), server.URL+"/server-status")
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(body))

	body, err = f.Fetch(context.Background(), server.URL+"/server-status?auto")
	require.NoError(t, err)
	assert.Equal(t, "BusyWorkers: 1\n", string(body))

	_, err = f.Fetch(context.Background(), server.URL+"/server-status?deny")
	require.ErrorIs(t, err, status.ErrStatusFetch)

	var fetchErr *status.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
	assert.Contains(t, err.Error(), "got 403")
}

func TestFetchTransportError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := fetcher.New(time.Second, zap.NewNop()).Fetch(context.Background(), url)
	require.ErrorIs(t, err, status.ErrStatusFetch)

	var fetchErr *status.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.StatusCode)
}
