package middleware

import (
	"context"
	"sync/atomic"

	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

type countersKey struct{}

// Counters tracks how many messages handlers sent or edited for one update.
type Counters struct {
	messages atomic.Int64
	keyboard atomic.Bool
}

// Inc records an outbound message; kb marks that it carried an inline keyboard.
func (m *Counters) Inc(kb bool) {
	if m == nil {
		return
	}
	m.messages.Add(1)
	if kb {
		m.keyboard.Store(true)
	}
}

// Snapshot returns the message count and whether any message carried a keyboard.
func (m *Counters) Snapshot() (int, bool) {
	if m == nil {
		return 0, false
	}
	return int(m.messages.Load()), m.keyboard.Load()
}

// WithCounters attaches counters to ctx.
func WithCounters(ctx context.Context, m *Counters) context.Context {
	return context.WithValue(ctx, countersKey{}, m)
}

// CountersFrom returns the counters carried by ctx, or nil.
func CountersFrom(ctx context.Context) *Counters {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(countersKey{}).(*Counters)
	return m
}

// MessageMetricsMiddleware attaches fresh counters to the update context.
// The outbound messenger increments them; the handler summary reads them.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if CountersFrom(ctx) == nil {
			tghelpers.StoreContext(c, WithCounters(ctx, &Counters{}))
		}
		return next(c)
	}
}

// GetCounters reads message count and keyboard presence flags from context.
func GetCounters(c tele.Context) (int, bool) {
	ctx, ok := tghelpers.ContextFrom(c)
	if !ok {
		return 0, false
	}
	return CountersFrom(ctx).Snapshot()
}
