package books

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/bookbot/core/logger"
)

// Store runs catalog queries through sqlx.
type Store struct {
	db *sqlx.DB
	qb QueryBuilder
}

// NewStore wraps an open database handle.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, qb: NewQueryBuilder(db.DriverName())}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Page loads one zero-based page; pages past the end are empty.
func (s *Store) Page(ctx context.Context, f Filter, page, size int) ([]Book, error) {
	q, args, err := s.qb.Page(f, page, size)
	if err != nil {
		return nil, queryErr("page", err)
	}
	start := time.Now()
	list := make([]Book, 0, size)
	if err := s.db.SelectContext(ctx, &list, q, args...); err != nil {
		return nil, queryErr("page", err)
	}
	logger.Debug(ctx, "books", "books.page",
		slog.Int("page", page),
		slog.Int("count", len(list)),
		slog.Duration("duration", logger.Took(start)),
	)
	return list, nil
}

// Count returns the number of records matching f.
func (s *Store) Count(ctx context.Context, f Filter) (int, error) {
	q, args, err := s.qb.Count(f)
	if err != nil {
		return 0, queryErr("count", err)
	}
	var n int
	if err := s.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, queryErr("count", err)
	}
	return n, nil
}

// ByID fetches one record.
func (s *Store) ByID(ctx context.Context, id int64) (Book, error) {
	var b Book
	q := s.db.Rebind("SELECT id, title, author, topic, file_path, request_count FROM books WHERE id = ?")
	err := s.db.GetContext(ctx, &b, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrNotFound
	}
	if err != nil {
		return Book{}, queryErr("by_id", err)
	}
	return b, nil
}

// DistinctValues lists distinct values of field among records matching f.
func (s *Store) DistinctValues(ctx context.Context, field Field, f Filter) ([]string, error) {
	q, args, err := s.qb.Distinct(field, f)
	if err != nil {
		return nil, queryErr("distinct", err)
	}
	var values []string
	if err := s.db.SelectContext(ctx, &values, q, args...); err != nil {
		return nil, queryErr("distinct", err)
	}
	return values, nil
}

const (
	upsertAuthor = `INSERT INTO author_requests (author_key, author, request_count) VALUES (?, ?, 1)
ON CONFLICT (author_key) DO UPDATE SET request_count = author_requests.request_count + 1`
	upsertTopic = `INSERT INTO topic_requests (topic_key, topic, request_count) VALUES (?, ?, 1)
ON CONFLICT (topic_key) DO UPDATE SET request_count = topic_requests.request_count + 1`
)

// IncrementAuthor bumps the popularity counter of author.
func (s *Store) IncrementAuthor(ctx context.Context, author string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertAuthor), Normalize(author), author)
	return queryErr("increment_author", err)
}

// IncrementTopic bumps the popularity counter of topic.
func (s *Store) IncrementTopic(ctx context.Context, topic string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(upsertTopic), Normalize(topic), topic)
	return queryErr("increment_topic", err)
}

// IncrementTitle bumps request_count of every book titled exactly title.
func (s *Store) IncrementTitle(ctx context.Context, title string) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE books SET request_count = request_count + 1 WHERE title = ?"), title)
	if err != nil {
		return 0, queryErr("increment_title", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// TopAuthors returns the most requested authors.
func (s *Store) TopAuthors(ctx context.Context, limit int) ([]Leader, error) {
	return s.leaders(ctx, "top_authors",
		"SELECT author AS name, request_count FROM author_requests ORDER BY request_count DESC, author LIMIT ?", limit)
}

// TopTopics returns the most requested topics.
func (s *Store) TopTopics(ctx context.Context, limit int) ([]Leader, error) {
	return s.leaders(ctx, "top_topics",
		"SELECT topic AS name, request_count FROM topic_requests ORDER BY request_count DESC, topic LIMIT ?", limit)
}

func (s *Store) leaders(ctx context.Context, op, q string, limit int) ([]Leader, error) {
	var out []Leader
	if err := s.db.SelectContext(ctx, &out, s.db.Rebind(q), limit); err != nil {
		return nil, queryErr(op, err)
	}
	return out, nil
}

// TopBooks returns the most requested books; never-requested books are skipped.
func (s *Store) TopBooks(ctx context.Context, limit int) ([]Book, error) {
	var out []Book
	q := s.db.Rebind(`SELECT id, title, author, topic, file_path, request_count FROM books
WHERE request_count > 0 ORDER BY request_count DESC, id LIMIT ?`)
	if err := s.db.SelectContext(ctx, &out, q, limit); err != nil {
		return nil, queryErr("top_books", err)
	}
	return out, nil
}

// Seed inserts records that are not present yet, keyed by file_path.
// It returns the number of inserted rows.
func (s *Store) Seed(ctx context.Context, list []Book) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, queryErr("seed", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind(`INSERT INTO books (title, author, topic, file_path) VALUES (?, ?, ?, ?)
ON CONFLICT (file_path) DO NOTHING`)
	inserted := 0
	for _, b := range list {
		res, err := tx.ExecContext(ctx, q, b.Title, b.Author, b.Topic, b.FilePath)
		if err != nil {
			return 0, queryErr("seed", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, queryErr("seed", err)
	}
	return inserted, nil
}
