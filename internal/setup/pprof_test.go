package setup

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPprofServer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	srv, err := startPprofServer(ctx, 0, zap.NewNop())
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+srv.addr()+"/debug/pprof/", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, srv.shutdown(ctx))

	_, err = http.DefaultClient.Do(req)
	require.Error(t, err)
}
