package books

import (
	"math"
	"strings"

	"github.com/jmoiron/sqlx"
)

// QueryBuilder renders catalog queries for one SQL dialect.
type QueryBuilder struct {
	driver   string
	postgres bool
}

// NewQueryBuilder returns a builder for the given database/sql driver name.
func NewQueryBuilder(driver string) QueryBuilder {
	return QueryBuilder{driver: driver, postgres: sqlx.BindType(driver) == sqlx.DOLLAR}
}

func (b QueryBuilder) cond(field Field) string {
	if b.postgres {
		return string(field) + " ILIKE ?"
	}
	return "casefold(" + string(field) + ") LIKE casefold(?)"
}

func (b QueryBuilder) where(f Filter) (string, []any, error) {
	fields, err := f.Fields()
	if err != nil {
		return "", nil, err
	}
	if len(fields) == 0 {
		return "", nil, nil
	}
	conds := make([]string, len(fields))
	args := make([]any, len(fields))
	for i, field := range fields {
		conds[i] = b.cond(field)
		args[i] = f.Params[i]
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (b QueryBuilder) rebind(q string) string {
	return sqlx.Rebind(sqlx.BindType(b.driver), q)
}

// Page selects up to size records of the zero-based page, ordered by id.
// A page whose offset overflows int selects nothing.
func (b QueryBuilder) Page(f Filter, page, size int) (string, []any, error) {
	where, args, err := b.where(f)
	if err != nil {
		return "", nil, err
	}
	if page < 0 {
		page = 0
	}
	offset := page * size
	if size > 0 && page > math.MaxInt/size {
		offset = math.MaxInt
	}
	q := "SELECT id, title, author, topic, file_path, request_count FROM books" + where +
		" ORDER BY id LIMIT ? OFFSET ?"
	return b.rebind(q), append(args, size, offset), nil
}

// Count counts the records matching f.
func (b QueryBuilder) Count(f Filter) (string, []any, error) {
	where, args, err := b.where(f)
	if err != nil {
		return "", nil, err
	}
	return b.rebind("SELECT COUNT(*) FROM books" + where), args, nil
}

// Distinct lists the distinct values of field among records matching f.
func (b QueryBuilder) Distinct(field Field, f Filter) (string, []any, error) {
	if !field.Valid() {
		return "", nil, ErrBadFilter
	}
	where, args, err := b.where(f)
	if err != nil {
		return "", nil, err
	}
	q := "SELECT DISTINCT " + string(field) + " FROM books" + where + " ORDER BY " + string(field)
	return b.rebind(q), args, nil
}
