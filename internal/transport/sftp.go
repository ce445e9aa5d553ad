package transport

import (
	"context"
	"io"
	"os"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/ports"
)

// sftpFetcher retrieves files over SFTP for institutional mirrors that only
// expose SSH access.
type sftpFetcher struct {
	cfg     *config.TransportConfig
	logger  ports.Logger
	metrics ports.Metrics
}

func newSFTPFetcher(cfg *config.TransportConfig, logger ports.Logger, metrics ports.Metrics) *sftpFetcher {
	return &sftpFetcher{cfg: cfg, logger: logger, metrics: metrics}
}

func (f *sftpFetcher) Fetch(ctx context.Context, source entity.ProductSource, remotePath string) (io.ReadCloser, error) {
	addr := source.Host
	if _, _, ok := splitHostPort(addr); !ok {
		addr += ":22"
	}

	f.metrics.IncrementCounter("transport.sftp.requests", map[string]string{"host": source.Host})

	sshCfg := &ssh.ClientConfig{
		User: source.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(source.Password),
		},
		// Mirror hosts are pinned via source configuration, not known_hosts.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         f.cfg.ConnectTimeout,
	}

	sshConn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		f.metrics.IncrementCounter("transport.sftp.errors", map[string]string{"host": source.Host, "error": "dial"})
		return nil, NewTransient("dial", addr, err)
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, NewTransient("session", addr, err)
	}

	file, err := client.Open(remotePath)
	if err != nil {
		client.Close()
		sshConn.Close()
		if os.IsNotExist(err) {
			return nil, NewPermanent("open", addr+remotePath, ErrNotFound)
		}
		return nil, NewTransient("open", addr+remotePath, err)
	}

	return &sftpBody{file: file, client: client, conn: sshConn}, nil
}

// sftpBody tears the whole session down on Close.
type sftpBody struct {
	file   *sftp.File
	client *sftp.Client
	conn   *ssh.Client
}

func (b *sftpBody) Read(p []byte) (int, error) { return b.file.Read(p) }

func (b *sftpBody) Close() error {
	err := b.file.Close()
	if cerr := b.client.Close(); err == nil {
		err = cerr
	}
	if cerr := b.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
