package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/bookbot/core/logger"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
	"github.com/m3rciful/bookbot/internal/pager"

	tele "gopkg.in/telebot.v4"
)

// Press is one button press in a chat.
type Press struct {
	Callback *tele.Callback
	UserID   int64
	ChatID   int64
	// MessageID is the message carrying the keyboard, 0 when unknown.
	MessageID int
	Data      string
}

// OnCallback is the single entry point for inline keyboard presses.
func (b *Bot) OnCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	p := Press{Callback: cb, Data: cb.Data}
	if c.Sender() != nil {
		p.UserID = c.Sender().ID
	}
	if cb.Message != nil {
		p.MessageID = cb.Message.ID
		if cb.Message.Chat != nil {
			p.ChatID = cb.Message.Chat.ID
		}
	}
	return b.HandlePress(tghelpers.BuildContext(c), p)
}

// HandlePress decodes the press data and runs the matching action.
// Malformed data is acknowledged and logged; it never fails the update.
func (b *Bot) HandlePress(ctx context.Context, p Press) error {
	tok, err := pager.Decode(p.Data)
	if err != nil {
		b.ack(ctx, p, textNavError)
		logger.Warn(ctx, "bot", "callback.decode",
			slog.String("payload", logger.SanitizeLimit(p.Data, 64)),
			slog.String("err", err.Error()),
		)
		return nil
	}
	if p.ChatID == 0 && tok.Action != pager.ActionIgnore {
		b.ack(ctx, p, "")
		return nil
	}

	switch tok.Action {
	case pager.ActionIgnore:
		b.ack(ctx, p, "")
		return nil
	case pager.ActionPage:
		f, err := b.pages.Resolve(ctx, tok)
		if err != nil {
			text := textNavError
			if errors.Is(err, pager.ErrRefExpired) {
				text = textNavExpired
			}
			b.ack(ctx, p, text)
			logger.Warn(ctx, "bot", "callback.resolve",
				slog.Int("page", tok.Page),
				slog.String("err", err.Error()),
			)
			return nil
		}
		b.ack(ctx, p, "")
		return b.pages.ChangePage(ctx, p.UserID, p.ChatID, p.MessageID, tok.Page, f)
	case pager.ActionDownload:
		b.ack(ctx, p, textDownloading)
		b.msg.Delete(ctx, p.ChatID, p.MessageID)
		_, err := b.deliver.Deliver(ctx, p.ChatID, tok.BookID)
		return err
	default:
		b.ack(ctx, p, "")
		logger.Warn(ctx, "bot", "callback.unknown", slog.String("payload", logger.SanitizeLimit(p.Data, 64)))
		return nil
	}
}

func (b *Bot) ack(ctx context.Context, p Press, text string) {
	if p.Callback == nil {
		return
	}
	if err := b.msg.Respond(ctx, p.Callback, text); err != nil {
		logger.Debug(ctx, "bot", "callback.ack", slog.String("status", "fail"), slog.String("err", err.Error()))
	}
}
