// Package netutil holds the transport helpers shared by the outbound HTTP
// clients: the Bot API client and the object storage client.
package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
)

// ShouldRetry reports whether err is a transient transport failure worth
// another attempt: a failed dial, a reset or truncated connection, or a
// timeout. Cancellation and API-level errors are final. It is used both for
// Telegram API calls and for object storage traffic.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	// *url.Error and *net.OpError both implement net.Error.
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
