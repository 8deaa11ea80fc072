package bot

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/bookbot/core/logger"
	tghelpers "github.com/m3rciful/bookbot/core/telegram/helpers"
	"github.com/m3rciful/bookbot/core/telegram/state"

	tele "gopkg.in/telebot.v4"
)

// Conversations routes free text to the workflow that owns the user's
// session. A user has at most one live workflow.
type Conversations struct {
	flows []Workflow
	locks *state.Locker
}

// NewConversations groups workflows behind one per-user lock.
func NewConversations(flows ...Workflow) *Conversations {
	return &Conversations{flows: flows, locks: state.NewLocker()}
}

// Workflow returns the workflow registered under name.
func (c *Conversations) Workflow(name string) (Workflow, bool) {
	for _, w := range c.flows {
		if w.Name() == name {
			return w, true
		}
	}
	return nil, false
}

// InProgress reports whether any workflow has a live session for the user.
func (c *Conversations) InProgress(ctx context.Context, userID int64) bool {
	for _, w := range c.flows {
		ok, err := w.Active(ctx, userID)
		if err != nil {
			logger.Warn(ctx, "bot", "session.load",
				slog.String("workflow", w.Name()),
				slog.String("err", err.Error()),
			)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// Start begins workflow name for the user, dropping any other live session.
func (c *Conversations) Start(ctx context.Context, name string, userID, chatID int64) error {
	target, ok := c.Workflow(name)
	if !ok {
		return errors.New("bot: unknown workflow " + name)
	}
	unlock := c.locks.Lock(userID)
	defer unlock()
	c.cancelAll(ctx, userID, target)
	if err := target.Start(ctx, userID, chatID); err != nil {
		return err
	}
	logger.Debug(ctx, "bot", "search.start", slog.String("workflow", name))
	return nil
}

// Cancel drops every live session of the user and reports whether one existed.
func (c *Conversations) Cancel(ctx context.Context, userID int64) bool {
	unlock := c.locks.Lock(userID)
	defer unlock()
	return c.cancelAll(ctx, userID, nil)
}

func (c *Conversations) cancelAll(ctx context.Context, userID int64, keep Workflow) bool {
	cancelled := false
	for _, w := range c.flows {
		if w == keep {
			continue
		}
		ok, err := w.Cancel(ctx, userID)
		if err != nil {
			logger.Warn(ctx, "bot", "session.erase",
				slog.String("workflow", w.Name()),
				slog.String("err", err.Error()),
			)
		}
		cancelled = cancelled || ok
	}
	return cancelled
}

// Dispatch hands in to the first workflow that accepts it.
func (c *Conversations) Dispatch(ctx context.Context, in Input) (bool, error) {
	unlock := c.locks.Lock(in.UserID)
	defer unlock()
	for _, w := range c.flows {
		handled, err := w.Handle(ctx, in)
		if handled || err != nil {
			return handled, err
		}
	}
	return false, nil
}

// HandleMessage adapts Dispatch to telebot.
func (c *Conversations) HandleMessage(tc tele.Context) error {
	msg := tc.Message()
	if msg == nil || tc.Sender() == nil || tc.Chat() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(tc)
	_, err := c.Dispatch(ctx, Input{
		UserID:    tc.Sender().ID,
		ChatID:    tc.Chat().ID,
		MessageID: msg.ID,
		Text:      msg.Text,
	})
	return err
}
