package sender

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	require.NoError(t, d.Enqueue(context.Background(), Job{Action: "delete", Run: func() error {
		if calls.Add(1) < 3 {
			return dialErr
		}
		return nil
	}}))
	d.Close()

	assert.EqualValues(t, 3, calls.Load())
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 2, MaxRetries: 5, RetryBackoff: time.Millisecond})
	var calls atomic.Int32
	for range 3 {
		require.NoError(t, d.Enqueue(context.Background(), Job{Action: "delete", Run: func() error {
			calls.Add(1)
			return errors.New("telegram: Bad Request: chat not found (400)")
		}}))
	}
	d.Close()

	assert.EqualValues(t, 3, calls.Load(), "4xx errors are not retried")
	assert.EqualValues(t, 3, d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	assert.ErrorIs(t, d.Enqueue(context.Background(), Job{Run: func() error { return nil }}), ErrQueueClosed)
	assert.Error(t, d.Enqueue(context.Background(), Job{}))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "timeout", errorKind(context.DeadlineExceeded))
	assert.Equal(t, "dns", errorKind(&net.DNSError{Err: "no such host", Name: "api.telegram.org"}))
	assert.Equal(t, "dial", errorKind(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.Equal(t, "http_4xx", errorKind(errors.New("telegram: Bad Request: message to delete not found (400)")))
	assert.Equal(t, "http_5xx", errorKind(errors.New("telegram: Internal Server Error (502)")))
	assert.Equal(t, "unknown", errorKind(errors.New("boom")))
	assert.Empty(t, errorKind(nil))
}
