package transport

import (
	"context"
	"errors"
	"io"
	"net/textproto"

	"github.com/jlaffaye/ftp"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// ftpFetcher retrieves files over anonymous or authenticated FTP. The IGS,
// CODE and BKG archives serve this way.
type ftpFetcher struct {
	cfg     *config.TransportConfig
	logger  ports.Logger
	metrics ports.Metrics
}

func newFTPFetcher(cfg *config.TransportConfig, logger ports.Logger, metrics ports.Metrics) *ftpFetcher {
	return &ftpFetcher{cfg: cfg, logger: logger, metrics: metrics}
}

func (f *ftpFetcher) Fetch(ctx context.Context, source entity.ProductSource, remotePath string) (io.ReadCloser, error) {
	addr := source.Host
	if _, _, ok := splitHostPort(addr); !ok {
		addr += ":21"
	}

	f.metrics.IncrementCounter("transport.ftp.requests", map[string]string{"host": source.Host})

	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(f.cfg.ConnectTimeout))
	if err != nil {
		f.metrics.IncrementCounter("transport.ftp.errors", map[string]string{"host": source.Host, "error": "dial"})
		return nil, NewTransient("dial", addr, err)
	}

	user, pass := source.Username, source.Password
	if user == "" {
		user, pass = "anonymous", "anonymous@"
	}
	if err := conn.Login(user, pass); err != nil {
		conn.Quit()
		f.metrics.IncrementCounter("transport.ftp.errors", map[string]string{"host": source.Host, "error": "login"})
		return nil, NewPermanent("login", addr, err)
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		conn.Quit()
		return nil, classifyFTPError(addr, remotePath, err)
	}

	return &ftpBody{resp: resp, conn: conn}, nil
}

// classifyFTPError maps the reply code to a retry class: 4xx replies are
// transient per RFC 959, 550 means the file does not exist.
func classifyFTPError(addr, path string, err error) error {
	var proto *textproto.Error
	if errors.As(err, &proto) {
		switch {
		case proto.Code == ftp.StatusFileUnavailable:
			return NewPermanent("retr", addr+path, ErrNotFound)
		case proto.Code >= 400 && proto.Code < 500:
			return NewTransient("retr", addr+path, err)
		case proto.Code >= 500:
			return NewPermanent("retr", addr+path, err)
		}
	}
	return NewTransient("retr", addr+path, err)
}

// ftpBody closes the data connection and quits the control connection once
// the body is consumed.
type ftpBody struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (b *ftpBody) Read(p []byte) (int, error) { return b.resp.Read(p) }

func (b *ftpBody) Close() error {
	err := b.resp.Close()
	if qerr := b.conn.Quit(); err == nil {
		err = qerr
	}
	return err
}

func splitHostPort(addr string) (host, port string, ok bool) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], true
		}
		if addr[i] < '0' || addr[i] > '9' {
			break
		}
	}
	return addr, "", false
}
