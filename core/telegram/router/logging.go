package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/bookbot/core/logger"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
	"github.com/m3rciful/bookbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary produces the single "handler.handled" line written per update.
type summary struct {
	c       tele.Context
	handler string
	start   time.Time
	extras  []slog.Attr
}

func summarize(c tele.Context, handler string, start time.Time, extras ...slog.Attr) summary {
	return summary{c: c, handler: handler, start: start, extras: extras}
}

// run tags the update with the handler name, calls fn and logs its result.
func (s summary) run(fn func() error) error {
	tghelpers.WithHandler(s.c, s.handler)
	err := fn()
	s.write("", err)
	return err
}

// skip logs an update that no handler took.
func (s summary) skip() {
	s.write("skip", nil)
}

func (s summary) write(status string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	if status == "" {
		status = outcome
	}
	msgs, kb := middleware.GetCounters(s.c)
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	attrs = append(attrs, s.extras...)
	ctx := tghelpers.WithHandler(s.c, s.handler)
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

// handlerName turns "/find_by_title" into "find_by_title".
func handlerName(raw string) string {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "/")
	if raw == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(raw, " ", "_"))
}

// errorCode prefers an explicit Code() and falls back to the error's type name.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(t.Name())
}
