package router

import (
	"log/slog"
	"time"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackRoute dispatches every inline button press by its registry key.
// Handlers answer the callback query themselves so they can attach status text.
func CallbackRoute(reg *tg.Registry) tg.Route {
	handler := func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}
		key, _ := middleware.CallbackKey(cb)
		extras := []slog.Attr{slog.String("cb_key", key)}

		h, ok := reg.GetCallback(key)
		if !ok {
			h = reg.CallbackNotFound()
			extras = append(extras, slog.String("cause", "not_found"))
		}
		s := summarize(c, "callback."+handlerName(key), time.Now(), extras...)
		if h == nil {
			_ = c.Respond()
			s.skip()
			return nil
		}
		return s.run(func() error { return h(c) })
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
