package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Enqueue after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the job buffer is saturated.
	ErrQueueFull = errors.New("telegram sender: queue full")

	botTokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options tunes NewDispatcher; zero values pick defaults.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

// Job is one fire-and-forget Bot API call.
type Job struct {
	// Action is the short name used in logs ("delete").
	Action string
	// Method is the Bot API method behind it ("deleteMessage").
	Method string
	// Run performs the call; it may be invoked more than once.
	Run func() error
}

type queued struct {
	ctx context.Context
	Job
}

// Dispatcher runs Jobs on a small worker pool with bounded retries.
type Dispatcher struct {
	opts   Options
	queue  chan queued
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	failed atomic.Uint64
}

// NewDispatcher starts the workers right away.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{
		opts:   opts,
		queue:  make(chan queued, opts.QueueSize),
		closed: make(chan struct{}),
	}
	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go func() {
			defer d.wg.Done()
			for q := range d.queue {
				d.process(q)
			}
		}()
	}
	return d
}

// Enqueue hands the job to a worker without blocking.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	if job.Run == nil {
		return errors.New("telegram sender: job without Run")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-d.closed:
		return ErrQueueClosed
	default:
	}
	select {
	case d.queue <- queued{ctx: ctx, Job: job}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount reports how many jobs failed after all retries.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close drains queued jobs and waits for the workers.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.closed)
		close(d.queue)
		d.wg.Wait()
	})
}

func (d *Dispatcher) process(q queued) {
	ctx := q.ctx
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts, err := d.runWithRetry(runCtx, q.Job)
	attrs := jobAttrs(q.Job, slog.Int("attempts", attempts), slog.Duration("duration", time.Since(start)))
	if err == nil {
		logger.Debug(ctx, "tg.sender", "send.ok", attrs...)
		return
	}
	d.failed.Add(1)
	logger.Error(ctx, "tg.sender", "send.fail", append(attrs,
		slog.String("err", RedactError(err)),
		slog.String("cause", errorKind(err)),
	)...)
}

func (d *Dispatcher) runWithRetry(ctx context.Context, job Job) (int, error) {
	limit := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; ; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt - 1, ctxErr
		}
		if err = job.Run(); err == nil {
			return attempt, nil
		}
		if attempt >= limit || !retryable(err) {
			return attempt, err
		}
		delay := d.backoff(err, attempt)
		logger.Debug(ctx, "tg.sender", "send.retry", jobAttrs(job,
			slog.Int("attempts", attempt),
			slog.Duration("backoff", delay),
			slog.String("cause", errorKind(err)),
		)...)
		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// backoff grows linearly; flood errors wait as long as Telegram asks.
func (d *Dispatcher) backoff(err error, attempt int) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return d.opts.RetryBackoff * time.Duration(attempt)
}

func retryable(err error) bool {
	if netutil.ShouldRetry(err) {
		return true
	}
	var flood tele.FloodError
	return errors.As(err, &flood)
}

func jobAttrs(job Job, extra ...slog.Attr) []slog.Attr {
	attrs := []slog.Attr{slog.String("op", job.Action)}
	if job.Method != "" {
		attrs = append(attrs, slog.String("method", job.Method))
	}
	return append(attrs, extra...)
}

// errorKind buckets an outbound failure for the "cause" log field.
func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	var (
		dnsErr *net.DNSError
		netErr net.Error
		opErr  *net.OpError
		alert  tls.AlertError
	)
	switch {
	case errors.As(err, &dnsErr):
		if dnsErr.IsTimeout {
			return "timeout"
		}
		return "dns"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &alert):
		return "tls"
	}
	switch code := apiStatus(err); {
	case code == http.StatusTooManyRequests:
		return "flood"
	case code >= 500:
		return "http_5xx"
	case code >= 400:
		return "http_4xx"
	}
	return "unknown"
}

// apiStatus extracts the HTTP-like code Telegram attaches to API errors.
func apiStatus(err error) int {
	var (
		apiErr *tele.Error
		flood  tele.FloodError
		group  tele.GroupError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Code
	case errors.As(err, &flood):
		return http.StatusTooManyRequests
	case errors.As(err, &group):
		return http.StatusBadRequest
	}
	// plain errors end with "(400)"
	msg := err.Error()
	open, end := strings.LastIndex(msg, "("), strings.LastIndex(msg, ")")
	if open < 0 || end <= open+1 {
		return 0
	}
	code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : end]))
	if convErr != nil {
		return 0
	}
	return code
}

// RedactError renders err with bot tokens inside request URLs masked.
func RedactError(err error) string {
	if err == nil {
		return ""
	}
	return botTokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
