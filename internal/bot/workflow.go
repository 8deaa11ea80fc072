package bot

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/sender"
	"github.com/m3rciful/bookbot/core/telegram/state"
	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/pager"

	tele "gopkg.in/telebot.v4"
)

// Catalog is the part of the book store the workflows use.
type Catalog interface {
	Count(ctx context.Context, f books.Filter) (int, error)
	DistinctValues(ctx context.Context, field books.Field, f books.Filter) ([]string, error)
	IncrementAuthor(ctx context.Context, author string) error
	IncrementTopic(ctx context.Context, topic string) error
	IncrementTitle(ctx context.Context, title string) (int64, error)
	TopAuthors(ctx context.Context, limit int) ([]books.Leader, error)
	TopTopics(ctx context.Context, limit int) ([]books.Leader, error)
	TopBooks(ctx context.Context, limit int) ([]books.Book, error)
}

// Input is one free-text message addressed to a conversation.
type Input struct {
	UserID    int64
	ChatID    int64
	MessageID int
	Text      string
}

// Workflow is a multi-step search conversation.
type Workflow interface {
	Name() string
	// Start resets the user's session and sends the first prompt.
	Start(ctx context.Context, userID, chatID int64) error
	// Active reports whether the user has a live session.
	Active(ctx context.Context, userID int64) (bool, error)
	// Handle consumes a message; handled is false when no session is live.
	Handle(ctx context.Context, in Input) (handled bool, err error)
	// Cancel erases the session and removes its tracked messages.
	Cancel(ctx context.Context, userID int64) (bool, error)
}

// deps are shared by all workflows.
type deps struct {
	catalog Catalog
	pages   *pager.Paginator
	msg     sender.Messenger
	topN    int
}

// storeFactory selects the session backend for a workflow.
type storeFactory struct {
	redis   redis.UniversalClient
	ttl     time.Duration
	sweeper []func(ctx context.Context, interval time.Duration)
}

func newStore[S comparable, F any](sf *storeFactory, name string) state.Store[S, F] {
	if sf.redis != nil {
		return state.NewRedisStore[S, F](sf.redis, "bookbot:session:"+name, sf.ttl)
	}
	mem := state.NewMemoryStore[S, F](sf.ttl)
	sf.sweeper = append(sf.sweeper, func(ctx context.Context, interval time.Duration) {
		mem.RunJanitor(ctx, interval, name)
	})
	return mem
}

// say sends plain text and returns the message id, 0 on failure.
func (d *deps) say(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) int {
	id, err := d.msg.Send(ctx, chatID, text, opts)
	if err != nil {
		logger.Warn(ctx, "bot", "send.fail", slog.String("err", err.Error()))
		return 0
	}
	return id
}

// board sends a leaderboard when there is one; errors are logged only.
func (d *deps) sendBoard(ctx context.Context, chatID int64, lb leaderboard) int {
	if lb == nil || d.topN <= 0 {
		return 0
	}
	text, err := lb(ctx, d.catalog, d.topN)
	if err != nil {
		logger.Warn(ctx, "bot", "leaderboard.fail", slog.String("err", err.Error()))
		return 0
	}
	if text == "" {
		return 0
	}
	return d.say(ctx, chatID, text, &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
}

func (d *deps) cleanup(ctx context.Context, chatID int64, ids ...int) {
	for _, id := range ids {
		d.msg.Delete(ctx, chatID, id)
	}
}

// countExact bumps the popularity counter of field when value equals one of
// the stored values under books.Normalize. Failures are logged only.
func (d *deps) countExact(ctx context.Context, field books.Field, value string, within books.Filter) {
	values, err := d.catalog.DistinctValues(ctx, field, within)
	if err != nil {
		logger.Warn(ctx, "bot", "popularity.lookup", slog.String("err", err.Error()))
		return
	}
	match, ok := books.MatchExact(value, values)
	if !ok {
		return
	}
	switch field {
	case books.FieldAuthor:
		err = d.catalog.IncrementAuthor(ctx, match)
	case books.FieldTopic:
		err = d.catalog.IncrementTopic(ctx, match)
	case books.FieldTitle:
		_, err = d.catalog.IncrementTitle(ctx, match)
	}
	if err != nil {
		logger.Warn(ctx, "bot", "popularity.count", slog.String("err", err.Error()))
		return
	}
	logger.Debug(ctx, "bot", "popularity.count",
		slog.String("status", "ok"),
		slog.String("field", string(field)),
		slog.String("value", logger.SanitizeLimit(match, 64)),
	)
}

// present shows the first page of results for f.
func (d *deps) present(ctx context.Context, in Input, f books.Filter) error {
	d.pages.SetUserPage(in.UserID, 0)
	_, err := d.pages.SendPage(ctx, in.UserID, in.ChatID, f)
	return err
}
