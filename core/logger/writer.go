package logger

import (
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// writeOp is either a line to write or, when ack is set, a flush barrier.
type writeOp struct {
	line []byte
	ack  chan error
}

// asyncWriter fans lines out to its sinks from a single goroutine so slow
// sinks never block the handler for longer than a channel send.
type asyncWriter struct {
	ops   chan writeOp
	done  chan struct{}
	sinks []io.Writer

	// mu guards closed and sends on ops
	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(sinks []io.Writer, queue int) *asyncWriter {
	if queue <= 0 {
		queue = 256
	}
	w := &asyncWriter{
		ops:  make(chan writeOp, queue),
		done: make(chan struct{}),
	}
	for _, s := range sinks {
		if s != nil {
			w.sinks = append(w.sinks, s)
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for op := range w.ops {
		if op.ack != nil {
			op.ack <- w.firstErr()
			continue
		}
		for _, s := range w.sinks {
			if _, err := s.Write(op.line); err != nil {
				w.fail(err)
			}
		}
	}
}

// Write queues a copy of p; it blocks only while the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	if err := w.firstErr(); err != nil {
		return err
	}
	w.ops <- writeOp{line: append([]byte(nil), p...)}
	return nil
}

// Flush returns once every line queued before it has been written.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return w.firstErr()
	}
	w.ops <- writeOp{ack: ack}
	w.mu.RUnlock()
	return <-ack
}

// Close drains the queue and stops the writer goroutine.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.ops)
	}
	w.mu.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) fail(err error) {
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) firstErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
