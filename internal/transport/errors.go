// Package transport implements the protocol clients the downloader fetches
// product files with: HTTPS/HTTP, FTP and SFTP. Every failure is classified
// as transient (worth retrying against the same source) or permanent (move
// on to the next source).
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies a fetch failure for the retry decision.
type ErrorKind string

const (
	// KindTransient covers timeouts, connection resets and server-side
	// errors; the same source may work on the next attempt.
	KindTransient ErrorKind = "transient"
	// KindPermanent covers missing files, auth failures and malformed
	// requests; retrying the same source cannot help.
	KindPermanent ErrorKind = "permanent"
)

// Error wraps a fetch failure with its retry classification.
type Error struct {
	Kind    ErrorKind
	Op      string
	Addr    string
	Wrapped error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Wrapped)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// NewTransient wraps err as a retryable failure.
func NewTransient(op, addr string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Addr: addr, Wrapped: err}
}

// NewPermanent wraps err as a non-retryable failure.
func NewPermanent(op, addr string, err error) *Error {
	return &Error{Kind: KindPermanent, Op: op, Addr: addr, Wrapped: err}
}

// IsTransient reports whether err is a retryable transport failure.
// Unclassified errors default to transient so a flaky source is not
// abandoned on an unknown failure mode.
func IsTransient(err error) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return true
}

// IsPermanent reports whether err is a classified permanent failure.
func IsPermanent(err error) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == KindPermanent
}

// ErrNotFound marks a remote file that does not exist on the source.
var ErrNotFound = errors.New("remote file not found")
