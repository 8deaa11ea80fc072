// Package delivery sends catalog files to users as Telegram documents.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m3rciful/bookbot/core/logger"
	"github.com/m3rciful/bookbot/core/telegram/format"
	"github.com/m3rciful/bookbot/core/telegram/sender"
	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/pager"
	"github.com/m3rciful/bookbot/internal/remote"

	tele "gopkg.in/telebot.v4"
)

// User-facing texts.
const (
	TextNotFound   = "Книга не найдена."
	TextSendFailed = "Произошла ошибка во время отправки книги"
)

// DefaultMaxSendBytes is the largest file sent as a document; bigger files get a link.
const DefaultMaxSendBytes = 50 * 1024 * 1024

// Catalog resolves book ids. Deliveries never touch popularity counters.
type Catalog interface {
	ByID(ctx context.Context, id int64) (books.Book, error)
}

// Storage is the remote file store.
type Storage interface {
	Stat(ctx context.Context, filePath string) (int64, error)
	Download(ctx context.Context, filePath, dir string) (string, error)
	EnsureExists(ctx context.Context, filePath string) error
	PublicURL(ctx context.Context, filePath string) (string, error)
}

// Options tunes a Deliverer.
type Options struct {
	CacheDir     string
	MaxSendBytes int64
}

// Deliverer resolves a book and sends its file or a download link.
type Deliverer struct {
	catalog  Catalog
	storage  Storage
	msg      sender.Messenger
	cacheDir string
	maxBytes int64
}

// New builds a Deliverer.
func New(catalog Catalog, storage Storage, msg sender.Messenger, opts Options) *Deliverer {
	maxBytes := opts.MaxSendBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxSendBytes
	}
	dir := opts.CacheDir
	if dir == "" {
		dir = "cache"
	}
	return &Deliverer{catalog: catalog, storage: storage, msg: msg, cacheDir: dir, maxBytes: maxBytes}
}

// Outcome describes how a delivery ended.
type Outcome string

const (
	OutcomeSent     Outcome = "sent"
	OutcomeLink     Outcome = "link"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Deliver sends book id to chatID. Every failure is reported to the user and
// logged here; the returned error only feeds handler summaries.
func (d *Deliverer) Deliver(ctx context.Context, chatID, id int64) (Outcome, error) {
	b, err := d.catalog.ByID(ctx, id)
	if errors.Is(err, books.ErrNotFound) {
		d.notify(ctx, chatID, TextNotFound, nil)
		logger.Info(ctx, "delivery", "book.lookup",
			slog.String("status", "skip"),
			slog.Int64("book_id", id),
		)
		return OutcomeNotFound, nil
	}
	if err != nil {
		d.notify(ctx, chatID, pager.TextDBError, nil)
		logger.Error(ctx, "delivery", "book.lookup",
			slog.String("status", "fail"),
			slog.Int64("book_id", id),
			slog.String("err", err.Error()),
		)
		return OutcomeFailed, err
	}

	start := time.Now()
	outcome, err := d.send(ctx, chatID, b)
	if err != nil {
		d.notify(ctx, chatID, TextSendFailed, nil)
		logger.Error(ctx, "delivery", "book.send",
			slog.String("status", "fail"),
			slog.Int64("book_id", b.ID),
			slog.String("title", b.Title),
			slog.String("author", b.Author),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return OutcomeFailed, err
	}

	logger.Info(ctx, "delivery", "book.send",
		slog.String("status", "ok"),
		slog.String("mode", string(outcome)),
		slog.Int64("book_id", b.ID),
		slog.String("title", b.Title),
		slog.Duration("duration", logger.Took(start)),
	)
	return outcome, nil
}

func (d *Deliverer) send(ctx context.Context, chatID int64, b books.Book) (Outcome, error) {
	size, err := d.storage.Stat(ctx, b.FilePath)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("stat: %w", err)
	}
	if size > d.maxBytes {
		return OutcomeLink, d.sendLink(ctx, chatID, b)
	}

	local, err := d.cached(ctx, b)
	if err != nil {
		return OutcomeFailed, err
	}
	name := filepath.Base(local)
	doc := &tele.Document{
		File:     tele.FromDisk(local),
		FileName: name,
		MIME:     MIMEType(name),
	}
	if err := d.msg.SendDocument(ctx, chatID, doc); err != nil {
		return OutcomeFailed, fmt.Errorf("send document: %w", err)
	}
	return OutcomeSent, nil
}

// cached returns the local copy of the file, downloading it when absent.
// Two concurrent requests for the same file may both download it; the
// later rename wins and both copies are identical.
func (d *Deliverer) cached(ctx context.Context, b books.Book) (string, error) {
	local := filepath.Join(d.cacheDir, remote.CacheName(b.FilePath))
	if info, err := os.Stat(local); err == nil && info.Size() > 0 {
		logger.Debug(ctx, "delivery", "cache.hit",
			slog.String("cache", "hit"),
			slog.Int64("book_id", b.ID),
		)
		return local, nil
	}
	got, err := d.storage.Download(ctx, b.FilePath, d.cacheDir)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	logger.Debug(ctx, "delivery", "cache.miss",
		slog.String("cache", "miss"),
		slog.Int64("book_id", b.ID),
	)
	return got, nil
}

func (d *Deliverer) sendLink(ctx context.Context, chatID int64, b books.Book) error {
	if err := d.storage.EnsureExists(ctx, b.FilePath); err != nil {
		return fmt.Errorf("ensure exists: %w", err)
	}
	link, err := d.storage.PublicURL(ctx, b.FilePath)
	if err != nil {
		return fmt.Errorf("public url: %w", err)
	}
	_, err = d.msg.Send(ctx, chatID, BigFileText(link), &tele.SendOptions{ParseMode: tele.ModeMarkdownV2})
	if err != nil {
		return fmt.Errorf("send link: %w", err)
	}
	return nil
}

// BigFileText renders the download-link message (MarkdownV2).
func BigFileText(link string) string {
	return "*Файл слишком большой\\!* 😢\n\nПоэтому держи ссылку для скачивания:\n\n" + format.EscapeV2(link)
}

func (d *Deliverer) notify(ctx context.Context, chatID int64, text string, opts *tele.SendOptions) {
	if _, err := d.msg.Send(ctx, chatID, text, opts); err != nil {
		logger.Warn(ctx, "delivery", "notify.fail", slog.String("err", err.Error()))
	}
}

// MIMEType picks the document type from the file extension.
func MIMEType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".epub":
		return "application/epub+zip"
	case ".txt":
		return "text/plain"
	}
	return "application/octet-stream"
}
