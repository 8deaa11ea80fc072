package router

import (
	"context"
	"time"

	tg "github.com/m3rciful/bookbot/core/telegram"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
	"github.com/m3rciful/bookbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the conversation owner consulted before command lookup.
type FSM interface {
	InProgress(ctx context.Context, userID int64) bool
	HandleMessage(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing.
// Non-admin commands win over an active conversation so /cancel always works;
// other text goes to the conversation owner, then to UnknownText.
func TextRoutes(fsmMgr FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()
		ctx := tghelpers.BuildContext(c)

		if reg != nil && len(text) > 0 && text[0] == '/' {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil && !cmd.AdminOnly {
				name := handlerName(key)
				return summarize(c, name, start).run(func() error {
					return cmd.Handler(c)
				})
			}
		}

		if fsmMgr != nil && c.Sender() != nil && fsmMgr.InProgress(ctx, c.Sender().ID) {
			return summarize(c, "fsm", start).run(func() error {
				return fsmMgr.HandleMessage(c)
			})
		}

		if opts.UnknownText != nil {
			return summarize(c, "unknown_text", start).run(func() error {
				return opts.UnknownText(c)
			})
		}

		summarize(c, "unknown_text", start).skip()
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownDocument != nil {
			return summarize(c, "unexpected_document", start).run(func() error {
				return opts.UnknownDocument(c)
			})
		}
		summarize(c, "unexpected_document", start).skip()
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}
