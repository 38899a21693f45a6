package recovery

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"contentforge/pkg/httpclient"
)

// HTTPDownloader implements Downloader over plain HTTP GET, built on the
// resilient httpclient.Client so a flaky provider CDN doesn't abort an
// otherwise-successful recovery prepass. A provider's status-probe API is
// not generic enough to give a default StatusProber implementation the
// same way — callers supply their own per §4.7's narrow StatusProber
// interface.
type HTTPDownloader struct {
	client *httpclient.Client
}

// NewHTTPDownloader builds an HTTPDownloader with the resilient client's
// default retry and circuit breaker policy.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{client: httpclient.NewWithDefaults()}
}

func (d *HTTPDownloader) Download(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := d.client.Get(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("recovery: downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("recovery: downloading %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("recovery: reading body for %s: %w", url, err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
