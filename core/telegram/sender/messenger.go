package sender

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Messenger is the outbound surface used by conversation handlers.
type Messenger interface {
	// Send posts a new message and returns its id.
	Send(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) (int, error)
	// Edit replaces text and markup of an existing message.
	Edit(ctx context.Context, chatID int64, msgID int, text string, opts *tele.SendOptions) error
	// Delete removes a message in the background; failures are logged only.
	Delete(ctx context.Context, chatID int64, msgID int)
	// Respond answers a callback query with optional status text.
	Respond(ctx context.Context, cb *tele.Callback, text string) error
	// SendDocument uploads a file as a document attachment.
	SendDocument(ctx context.Context, chatID int64, doc *tele.Document) error
}

// BotAPI is the subset of *tele.Bot the messenger relies on.
type BotAPI interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// BotMessenger implements Messenger over telebot, deleting through the dispatcher.
type BotMessenger struct {
	api        BotAPI
	dispatcher *Dispatcher
}

// NewMessenger wires a messenger; a nil dispatcher makes deletes synchronous.
func NewMessenger(api BotAPI, dispatcher *Dispatcher) *BotMessenger {
	return &BotMessenger{api: api, dispatcher: dispatcher}
}

// Send implements Messenger.
func (m *BotMessenger) Send(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) (int, error) {
	var (
		msg *tele.Message
		err error
	)
	if opts != nil {
		msg, err = m.api.Send(tele.ChatID(chatID), text, opts)
	} else {
		msg, err = m.api.Send(tele.ChatID(chatID), text)
	}
	if err != nil {
		return 0, err
	}
	middleware.CountersFrom(ctx).Inc(hasKeyboard(opts))
	if msg == nil {
		return 0, nil
	}
	return msg.ID, nil
}

// Edit implements Messenger.
func (m *BotMessenger) Edit(ctx context.Context, chatID int64, msgID int, text string, opts *tele.SendOptions) error {
	target := &tele.Message{ID: msgID, Chat: &tele.Chat{ID: chatID}}
	var err error
	if opts != nil {
		_, err = m.api.Edit(target, text, opts)
	} else {
		_, err = m.api.Edit(target, text)
	}
	if err != nil {
		return err
	}
	middleware.CountersFrom(ctx).Inc(hasKeyboard(opts))
	return nil
}

// Delete implements Messenger.
func (m *BotMessenger) Delete(ctx context.Context, chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	run := func() error {
		err := m.api.Delete(&tele.Message{ID: msgID, Chat: &tele.Chat{ID: chatID}})
		if IsGone(err) {
			return nil
		}
		return err
	}
	if m.dispatcher == nil {
		if err := run(); err != nil {
			logger.Warn(ctx, "tg.sender", "delete.fail", slog.Int("msg_id", msgID), slog.String("err", RedactError(err)))
		}
		return
	}
	if err := m.dispatcher.Enqueue(ctx, Job{Action: "delete", Method: "deleteMessage", Run: run}); err != nil {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", "delete"),
			slog.String("err", err.Error()),
		)
		if err := run(); err != nil {
			logger.Warn(ctx, "tg.sender", "delete.fail", slog.Int("msg_id", msgID), slog.String("err", RedactError(err)))
		}
	}
}

// Respond implements Messenger.
func (m *BotMessenger) Respond(_ context.Context, cb *tele.Callback, text string) error {
	if cb == nil {
		return errors.New("telegram sender: nil callback")
	}
	if text == "" {
		return m.api.Respond(cb)
	}
	return m.api.Respond(cb, &tele.CallbackResponse{Text: text})
}

// SendDocument implements Messenger.
func (m *BotMessenger) SendDocument(ctx context.Context, chatID int64, doc *tele.Document) error {
	if doc == nil {
		return errors.New("telegram sender: nil document")
	}
	if _, err := m.api.Send(tele.ChatID(chatID), doc); err != nil {
		return err
	}
	middleware.CountersFrom(ctx).Inc(false)
	return nil
}

// IsNotModified reports the edit error Telegram returns when nothing changed.
func IsNotModified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, tele.ErrSameMessageContent) ||
		strings.Contains(err.Error(), "message is not modified")
}

// IsGone reports delete errors for messages that no longer exist or are too old.
func IsGone(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, tele.ErrNotFoundToDelete) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "message to delete not found") ||
		strings.Contains(msg, "message can't be deleted")
}

func hasKeyboard(opts *tele.SendOptions) bool {
	return opts != nil && opts.ReplyMarkup != nil && len(opts.ReplyMarkup.InlineKeyboard) > 0
}
