package bot

import (
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
	"github.com/m3rciful/bookbot/core/telegram/router"
	"github.com/m3rciful/bookbot/core/telegram/ui"

	tele "gopkg.in/telebot.v4"
)

var (
	_ ui.Fallbacks = (*Bot)(nil)
	_ router.FSM   = (*Conversations)(nil)
)

// UnknownText implements ui.Fallbacks.
func (b *Bot) UnknownText() tele.HandlerFunc { return b.reply(textUnknownText) }

// UnknownDocument implements ui.Fallbacks.
func (b *Bot) UnknownDocument() tele.HandlerFunc { return b.reply(textUnknownDoc) }

// UnknownCallback implements ui.Fallbacks.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		if cb := c.Callback(); cb != nil {
			_ = b.msg.Respond(tghelpers.BuildContext(c), cb, "")
		}
		return nil
	}
}

// RateLimited implements ui.Fallbacks.
func (b *Bot) RateLimited(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	if cb := c.Callback(); cb != nil {
		return b.msg.Respond(ctx, cb, textRateLimited)
	}
	if c.Chat() == nil {
		return nil
	}
	_, err := b.msg.Send(ctx, c.Chat().ID, textRateLimited, nil)
	return err
}

func (b *Bot) reply(text string) tele.HandlerFunc {
	return func(c tele.Context) error {
		if c.Chat() == nil {
			return nil
		}
		_, err := b.msg.Send(tghelpers.BuildContext(c), c.Chat().ID, text, nil)
		return err
	}
}
