package transport

import (
	"context"
	"fmt"
	"io"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// Fetcher retrieves one remote file from a product source. Implementations
// stream the body; the caller owns the ReadCloser.
type Fetcher interface {
	// Fetch retrieves remotePath from the source. Failures carry an
	// ErrorKind classification.
	Fetch(ctx context.Context, source entity.ProductSource, remotePath string) (io.ReadCloser, error)
}

// Dialer selects the Fetcher for a source's protocol.
type Dialer struct {
	https *httpFetcher
	ftp   *ftpFetcher
	sftp  *sftpFetcher
}

// NewDialer builds a dialer covering all supported protocols.
func NewDialer(cfg *config.TransportConfig, logger ports.Logger, metrics ports.Metrics) *Dialer {
	return &Dialer{
		https: newHTTPFetcher(cfg, logger, metrics),
		ftp:   newFTPFetcher(cfg, logger, metrics),
		sftp:  newSFTPFetcher(cfg, logger, metrics),
	}
}

// Fetch dispatches on the source protocol.
func (d *Dialer) Fetch(ctx context.Context, source entity.ProductSource, remotePath string) (io.ReadCloser, error) {
	switch source.Protocol {
	case "https", "http":
		return d.https.Fetch(ctx, source, remotePath)
	case "ftp":
		return d.ftp.Fetch(ctx, source, remotePath)
	case "sftp":
		return d.sftp.Fetch(ctx, source, remotePath)
	default:
		return nil, NewPermanent("dial", source.Host,
			fmt.Errorf("unsupported protocol %q", source.Protocol))
	}
}
