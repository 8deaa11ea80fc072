package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/bookbot/core/logger"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RecoverMiddleware catches panics in handlers and prevents the bot from crashing.
// Pending callback queries are answered so the client stops its spinner.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) (err error) {
		defer func() {
			if r := recover(); r != nil {
				ctx := tghelpers.BuildContext(c)
				logger.Error(ctx, "tg", "tg.panic",
					slog.Any("err", r),
					slog.String("stack", string(debug.Stack())),
				)
				if c.Callback() != nil {
					_ = c.Respond()
				}
				err = nil
			}
		}()
		return next(c)
	}
}
