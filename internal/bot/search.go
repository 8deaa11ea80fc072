package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/state"
	"github.com/m3rciful/bookbot/internal/books"
)

type fieldState string

const (
	fieldIdle     fieldState = ""
	fieldAwaiting fieldState = "awaiting_value"
)

type fieldSession = state.Session[fieldState, struct{}]

// FieldSearch asks for one value and lists books whose field contains it.
type FieldSearch struct {
	*deps
	name   string
	field  books.Field
	prompt string
	lb     leaderboard
	store  state.Store[fieldState, struct{}]
}

func newFieldSearch(d *deps, sf *storeFactory, name string, field books.Field, prompt string, lb leaderboard) *FieldSearch {
	return &FieldSearch{
		deps:   d,
		name:   name,
		field:  field,
		prompt: prompt,
		lb:     lb,
		store:  newStore[fieldState, struct{}](sf, name),
	}
}

// Name implements Workflow.
func (w *FieldSearch) Name() string { return w.name }

// Start implements Workflow.
func (w *FieldSearch) Start(ctx context.Context, userID, chatID int64) error {
	if old, ok, err := w.store.Load(ctx, userID); err == nil && ok {
		w.cleanup(ctx, old.ChatID, old.Tracked...)
	}
	s := fieldSession{State: fieldAwaiting, ChatID: chatID}
	s.Track(w.sendBoard(ctx, chatID, w.lb))
	s.Track(w.say(ctx, chatID, w.prompt, nil))
	if err := w.store.Save(ctx, userID, s); err != nil {
		return fmt.Errorf("%s: save session: %w", w.name, err)
	}
	return nil
}

// Active implements Workflow.
func (w *FieldSearch) Active(ctx context.Context, userID int64) (bool, error) {
	s, ok, err := w.store.Load(ctx, userID)
	return ok && s.State != fieldIdle, err
}

// Handle implements Workflow.
func (w *FieldSearch) Handle(ctx context.Context, in Input) (bool, error) {
	s, ok, err := w.store.Load(ctx, in.UserID)
	if err != nil {
		return false, fmt.Errorf("%s: load session: %w", w.name, err)
	}
	if !ok || s.State != fieldAwaiting {
		return false, nil
	}
	w.cleanup(ctx, in.ChatID, append([]int{in.MessageID}, s.TakeTracked()...)...)

	value := strings.TrimSpace(in.Text)
	if value == "" {
		s.Track(w.say(ctx, in.ChatID, textInvalidInput, nil))
		if err := w.store.Save(ctx, in.UserID, s); err != nil {
			return true, fmt.Errorf("%s: save session: %w", w.name, err)
		}
		logger.Debug(ctx, "bot", "search.reprompt",
			slog.String("workflow", w.name),
			slog.String("state", string(s.State)),
		)
		return true, nil
	}

	f := books.Like(w.field, value)
	w.countExact(ctx, w.field, value, f)
	err = w.present(ctx, in, f)
	if eraseErr := w.store.Erase(ctx, in.UserID); eraseErr != nil {
		logger.Warn(ctx, "bot", "session.erase", slog.String("workflow", w.name), slog.String("err", eraseErr.Error()))
	}
	logger.Info(ctx, "bot", "search.done",
		slog.String("workflow", w.name),
		slog.String("query", logger.SanitizeLimit(value, 64)),
	)
	return true, err
}

// Cancel implements Workflow.
func (w *FieldSearch) Cancel(ctx context.Context, userID int64) (bool, error) {
	s, ok, err := w.store.Load(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	w.cleanup(ctx, s.ChatID, s.Tracked...)
	return s.State != fieldIdle, w.store.Erase(ctx, userID)
}

type findState string

const (
	findIdle           findState = ""
	findAwaitingAuthor findState = "awaiting_author"
	findAwaitingTitle  findState = "awaiting_title"
)

type findFields struct {
	Author string `json:"author,omitempty"`
}

type findSession = state.Session[findState, findFields]

// AuthorTitleSearch asks for an author, then a title, and lists books
// matching both.
type AuthorTitleSearch struct {
	*deps
	store state.Store[findState, findFields]
}

func newAuthorTitleSearch(d *deps, sf *storeFactory) *AuthorTitleSearch {
	return &AuthorTitleSearch{deps: d, store: newStore[findState, findFields](sf, "find")}
}

// Name implements Workflow.
func (w *AuthorTitleSearch) Name() string { return "find" }

// Start implements Workflow.
func (w *AuthorTitleSearch) Start(ctx context.Context, userID, chatID int64) error {
	if old, ok, err := w.store.Load(ctx, userID); err == nil && ok {
		w.cleanup(ctx, old.ChatID, old.Tracked...)
	}
	s := findSession{State: findAwaitingAuthor, ChatID: chatID}
	s.Track(w.say(ctx, chatID, promptFindAuthor, nil))
	if err := w.store.Save(ctx, userID, s); err != nil {
		return fmt.Errorf("find: save session: %w", err)
	}
	return nil
}

// Active implements Workflow.
func (w *AuthorTitleSearch) Active(ctx context.Context, userID int64) (bool, error) {
	s, ok, err := w.store.Load(ctx, userID)
	return ok && s.State != findIdle, err
}

// Handle implements Workflow.
func (w *AuthorTitleSearch) Handle(ctx context.Context, in Input) (bool, error) {
	s, ok, err := w.store.Load(ctx, in.UserID)
	if err != nil {
		return false, fmt.Errorf("find: load session: %w", err)
	}
	if !ok || s.State == findIdle {
		return false, nil
	}
	w.cleanup(ctx, in.ChatID, append([]int{in.MessageID}, s.TakeTracked()...)...)
	value := strings.TrimSpace(in.Text)

	switch s.State {
	case findAwaitingAuthor:
		if value == "" {
			s.Track(w.say(ctx, in.ChatID, textInvalidInput, nil))
		} else {
			s.Fields.Author = value
			s.State = findAwaitingTitle
			s.Track(w.say(ctx, in.ChatID, promptFindTitle, nil))
		}
		return true, w.save(ctx, in.UserID, s)
	case findAwaitingTitle:
		if value == "" {
			s.Track(w.say(ctx, in.ChatID, textInvalidTitle, nil))
			return true, w.save(ctx, in.UserID, s)
		}
	default:
		return false, w.store.Erase(ctx, in.UserID)
	}

	f := books.Like(books.FieldAuthor, s.Fields.Author).And(books.Like(books.FieldTitle, value))
	w.countExact(ctx, books.FieldAuthor, s.Fields.Author, f)
	w.countExact(ctx, books.FieldTitle, value, f)
	err = w.present(ctx, in, f)
	if eraseErr := w.store.Erase(ctx, in.UserID); eraseErr != nil {
		logger.Warn(ctx, "bot", "session.erase", slog.String("workflow", "find"), slog.String("err", eraseErr.Error()))
	}
	logger.Info(ctx, "bot", "search.done",
		slog.String("workflow", "find"),
		slog.String("author", logger.SanitizeLimit(s.Fields.Author, 64)),
		slog.String("title", logger.SanitizeLimit(value, 64)),
	)
	return true, err
}

func (w *AuthorTitleSearch) save(ctx context.Context, userID int64, s findSession) error {
	if err := w.store.Save(ctx, userID, s); err != nil {
		return fmt.Errorf("find: save session: %w", err)
	}
	logger.Debug(ctx, "bot", "search.step",
		slog.String("workflow", "find"),
		slog.String("state", string(s.State)),
	)
	return nil
}

// Cancel implements Workflow.
func (w *AuthorTitleSearch) Cancel(ctx context.Context, userID int64) (bool, error) {
	s, ok, err := w.store.Load(ctx, userID)
	if err != nil || !ok {
		return false, err
	}
	w.cleanup(ctx, s.ChatID, s.Tracked...)
	return s.State != findIdle, w.store.Erase(ctx, userID)
}
