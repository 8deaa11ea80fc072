// Package books is the catalog data layer: records, filters, query building
// and the sqlx-backed store.
package books

import "errors"

// ErrNotFound is returned when a book id has no record.
var ErrNotFound = errors.New("book not found")

// Book is one catalog record.
type Book struct {
	ID           int64  `db:"id" yaml:"-"`
	Title        string `db:"title" yaml:"title"`
	Author       string `db:"author" yaml:"author"`
	Topic        string `db:"topic" yaml:"topic"`
	FilePath     string `db:"file_path" yaml:"file_path"`
	RequestCount int64  `db:"request_count" yaml:"-"`
}

// Leader is a popularity leaderboard row for an author or topic.
type Leader struct {
	Name         string `db:"name"`
	RequestCount int64  `db:"request_count"`
}

// QueryError wraps a failed catalog query.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string { return "books: " + e.Op + ": " + e.Err.Error() }

func (e *QueryError) Unwrap() error { return e.Err }

// Code is reported as err_code in handler summaries.
func (e *QueryError) Code() string { return "DB_QUERY" }

func queryErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &QueryError{Op: op, Err: err}
}
