// Package fetcher retrieves status pages over HTTP.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robalyx/apachemgr/internal/status"
	"go.uber.org/zap"
)

// Fetcher downloads status pages.
type Fetcher struct {
	client *http.Client
	logger *zap.Logger
}

// New creates a new Fetcher whose requests give up after timeout.
func New(timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("fetcher"),
	}
}

// Fetch returns the body of the page at url. Transport errors and responses other
// than 200 are reported as *status.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &status.FetchError{URL: url, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &status.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &status.FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &status.FetchError{URL: url, Err: err}
	}

	f.logger.Debug("Fetched status page",
		zap.String("url", url),
		zap.String("size", humanize.IBytes(uint64(len(body)))),
		zap.Duration("elapsed", time.Since(start)))

	return body, nil
}
