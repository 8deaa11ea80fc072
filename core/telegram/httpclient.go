package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/bookbot/core/telegram/netutil"
)

const (
	defaultResponseTimeout = 5 * time.Second
	defaultRetryAttempts   = 3
	defaultRetryBackoff    = 2 * time.Second
	// bounds document uploads of up to the large-file threshold
	defaultClientTimeout = 5 * time.Minute
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Long polling holds getUpdates open for the poll timeout, so the response
// header timeout only applies in webhook mode.
func BuildHTTPClient(longPoll bool) *http.Client {
	headerTimeout := defaultResponseTimeout
	if longPoll {
		headerTimeout = 0
	}
	return &http.Client{
		Timeout: defaultClientTimeout,
		Transport: netutil.NewTransport(netutil.TransportOptions{
			ResponseHeaderTimeout: headerTimeout,
			MaxRetries:            defaultRetryAttempts,
			Backoff:               defaultRetryBackoff,
		}),
	}
}
