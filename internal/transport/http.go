package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// httpFetcher retrieves files over HTTP/HTTPS. CDDIS serves the IGS product
// archive this way.
type httpFetcher struct {
	client  *http.Client
	cfg     *config.TransportConfig
	logger  ports.Logger
	metrics ports.Metrics
}

func newHTTPFetcher(cfg *config.TransportConfig, logger ports.Logger, metrics ports.Metrics) *httpFetcher {
	return &httpFetcher{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, source entity.ProductSource, remotePath string) (io.ReadCloser, error) {
	url := fmt.Sprintf("%s://%s%s", source.Protocol, source.Host, remotePath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewPermanent("request", url, err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	if source.Username != "" {
		req.SetBasicAuth(source.Username, source.Password)
	}

	f.metrics.IncrementCounter("transport.http.requests", map[string]string{"host": source.Host})

	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.IncrementCounter("transport.http.errors", map[string]string{"host": source.Host, "error": "dial"})
		return nil, NewTransient("get", url, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		resp.Body.Close()
		f.metrics.IncrementCounter("transport.http.errors", map[string]string{"host": source.Host, "error": "not_found"})
		return nil, NewPermanent("get", url, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		resp.Body.Close()
		return nil, NewPermanent("get", url, fmt.Errorf("access denied: status %d", resp.StatusCode))
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		resp.Body.Close()
		f.metrics.IncrementCounter("transport.http.errors", map[string]string{"host": source.Host, "error": "server"})
		return nil, NewTransient("get", url, fmt.Errorf("server error: status %d", resp.StatusCode))
	default:
		resp.Body.Close()
		return nil, NewPermanent("get", url, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
}
