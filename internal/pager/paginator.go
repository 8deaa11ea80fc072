// Package pager renders catalog search results as paged Telegram messages
// and owns the callback token format of their navigation buttons.
package pager

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/sender"
	"github.com/m3rciful/bookbot/internal/books"

	tele "gopkg.in/telebot.v4"
)

// DefaultPageSize is used when Options.PageSize is not set.
const DefaultPageSize = 10

// Catalog is the query surface the paginator reads from.
type Catalog interface {
	Page(ctx context.Context, f books.Filter, page, size int) ([]books.Book, error)
	Count(ctx context.Context, f books.Filter) (int, error)
}

// Options tunes a Paginator.
type Options struct {
	PageSize int
	// Refs keeps filters that do not fit into callback data. Optional.
	Refs    RefStore
	Tracker *Tracker
}

// Paginator loads, renders and sends result pages.
type Paginator struct {
	catalog Catalog
	msg     sender.Messenger
	size    int
	refs    RefStore
	pages   *Tracker
}

// New builds a Paginator.
func New(catalog Catalog, msg sender.Messenger, opts Options) *Paginator {
	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	pages := opts.Tracker
	if pages == nil {
		pages = NewTracker()
	}
	return &Paginator{catalog: catalog, msg: msg, size: size, refs: opts.Refs, pages: pages}
}

// PageSize returns the configured page size.
func (p *Paginator) PageSize() int { return p.size }

// Tracker exposes the per-user page index store.
func (p *Paginator) Tracker() *Tracker { return p.pages }

// SetUserPage stores the page the next SendPage will show.
func (p *Paginator) SetUserPage(userID int64, page int) { p.pages.Set(userID, page) }

// LoadPage returns the records of a zero-based page.
func (p *Paginator) LoadPage(ctx context.Context, f books.Filter, page int) ([]books.Book, error) {
	return p.catalog.Page(ctx, f, page, p.size)
}

// LoadTotalCount returns the number of records matching f.
func (p *Paginator) LoadTotalCount(ctx context.Context, f books.Filter) (int, error) {
	return p.catalog.Count(ctx, f)
}

// Rendered is a formatted page ready to send.
type Rendered struct {
	Text   string
	Markup *tele.ReplyMarkup
	Page   int
	Total  int
	Count  int
}

// Render loads the page and the total concurrently and builds text and markup.
func (p *Paginator) Render(ctx context.Context, f books.Filter, page int) (Rendered, error) {
	var (
		list  []books.Book
		count int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = p.LoadPage(gctx, f, page)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = p.LoadTotalCount(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return Rendered{}, err
	}

	total := TotalPages(count, p.size)
	out := Rendered{Text: FormatPage(list, page, total, p.size), Page: page, Total: total, Count: count}
	if len(list) == 0 {
		return out, nil
	}

	var prev, next string
	if page > 0 {
		tok, err := p.PageToken(ctx, page-1, f)
		if err != nil {
			return Rendered{}, err
		}
		prev = tok
	}
	if page+1 < total {
		tok, err := p.PageToken(ctx, page+1, f)
		if err != nil {
			return Rendered{}, err
		}
		next = tok
	}
	out.Markup = BuildNavigation(list, page, total, prev, next)
	return out, nil
}

// PageToken encodes a page token, moving the filter into the ref store
// when the inline form exceeds MaxCallbackData.
func (p *Paginator) PageToken(ctx context.Context, page int, f books.Filter) (string, error) {
	tok := EncodePage(page, f)
	if len(tok) <= MaxCallbackData {
		return tok, nil
	}
	if p.refs == nil {
		return "", fmt.Errorf("%w: %d bytes", ErrTokenTooLong, len(tok))
	}
	ref, err := p.refs.Put(ctx, f)
	if err != nil {
		return "", err
	}
	return EncodePageRef(page, ref), nil
}

// Resolve returns the filter carried by a page token.
func (p *Paginator) Resolve(ctx context.Context, tok Token) (books.Filter, error) {
	f := tok.Filter
	if tok.Ref != "" {
		if p.refs == nil {
			return books.Filter{}, ErrRefExpired
		}
		var err error
		if f, err = p.refs.Get(ctx, tok.Ref); err != nil {
			return books.Filter{}, err
		}
	}
	if err := f.Validate(); err != nil {
		return books.Filter{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return f, nil
}

func markdownOpts(markup *tele.ReplyMarkup) *tele.SendOptions {
	return &tele.SendOptions{ParseMode: tele.ModeMarkdownV2, ReplyMarkup: markup}
}

// SendPage sends the user's current page (0 when unknown) as a new message.
// On a data-store failure the user gets TextDBError and the error is returned.
func (p *Paginator) SendPage(ctx context.Context, userID, chatID int64, f books.Filter) (int, error) {
	start := time.Now()
	page := p.pages.Get(userID)
	r, err := p.Render(ctx, f, page)
	if err != nil {
		p.reportFailure(ctx, chatID, "page.send", err)
		return 0, err
	}
	id, err := p.msg.Send(ctx, chatID, r.Text, markdownOpts(r.Markup))
	if err != nil {
		logger.Warn(ctx, "pager", "page.send",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return 0, err
	}
	logger.Debug(ctx, "pager", "page.send",
		slog.String("status", "ok"),
		slog.Int("page", r.Page),
		slog.Int("pages", r.Total),
		slog.Int("count", r.Count),
		slog.Duration("duration", logger.Took(start)),
	)
	return id, nil
}

// ChangePage re-renders page in place and remembers it for the user.
// An edit that changes nothing is not an error.
func (p *Paginator) ChangePage(ctx context.Context, userID, chatID int64, msgID, page int, f books.Filter) error {
	r, err := p.Render(ctx, f, page)
	if err != nil {
		p.reportFailure(ctx, chatID, "page.change", err)
		return err
	}
	p.pages.Set(userID, page)
	if err := p.msg.Edit(ctx, chatID, msgID, r.Text, markdownOpts(r.Markup)); err != nil {
		if sender.IsNotModified(err) {
			return nil
		}
		logger.Warn(ctx, "pager", "page.change",
			slog.String("status", "fail"),
			slog.Int("page", page),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

func (p *Paginator) reportFailure(ctx context.Context, chatID int64, event string, err error) {
	logger.Error(ctx, "pager", event,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
	if _, sendErr := p.msg.Send(ctx, chatID, TextDBError, nil); sendErr != nil {
		logger.Warn(ctx, "pager", "notify.fail", slog.String("err", sendErr.Error()))
	}
}
