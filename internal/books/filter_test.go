package books

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeAndJoin(t *testing.T) {
	f := Like(FieldAuthor, "Роулинг").And(Like(FieldTitle, "Гарри"))
	assert.Equal(t, "author LIKE ? AND title LIKE ?", f.Clause)
	assert.Equal(t, []string{"%Роулинг%", "%Гарри%"}, f.Params)

	fields, err := f.Fields()
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldAuthor, FieldTitle}, fields)

	assert.Equal(t, f, Filter{}.And(f))
	assert.True(t, Filter{}.IsZero())
	assert.NoError(t, Filter{}.Validate())
}

func TestFilterValidateRejects(t *testing.T) {
	cases := []Filter{
		{Clause: "file_path LIKE ?", Params: []string{"x"}},
		{Clause: "author = ?", Params: []string{"x"}},
		{Clause: "author LIKE ?; DROP TABLE books", Params: []string{"x"}},
		{Clause: "author LIKE ? AND title LIKE ?", Params: []string{"x"}},
		{Clause: "", Params: []string{"x"}},
		{Clause: "author LIKE ? OR 1=1", Params: []string{"x"}},
	}
	for _, f := range cases {
		assert.ErrorIs(t, f.Validate(), ErrBadFilter, f.Clause)
	}
}

func TestQueryBuilderDialects(t *testing.T) {
	f := Like(FieldTitle, "физика")

	pg := NewQueryBuilder("postgres")
	q, args, err := pg.Page(f, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, title, author, topic, file_path, request_count FROM books WHERE title ILIKE $1 ORDER BY id LIMIT $2 OFFSET $3", q)
	assert.Equal(t, []any{"%физика%", 10, 20}, args)

	lite := NewQueryBuilder("sqlite3")
	q, args, err = lite.Count(f)
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM books WHERE casefold(title) LIKE casefold(?)", q)
	assert.Equal(t, []any{"%физика%"}, args)

	q, args, err = lite.Page(Filter{}, -1, 5)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, title, author, topic, file_path, request_count FROM books ORDER BY id LIMIT ? OFFSET ?", q)
	assert.Equal(t, []any{5, 0}, args)

	_, args, err = lite.Page(Filter{}, math.MaxInt/5+1, 5)
	require.NoError(t, err)
	assert.Equal(t, []any{5, math.MaxInt}, args)

	_, _, err = lite.Page(Filter{Clause: "id > ?", Params: []string{"1"}}, 0, 5)
	assert.ErrorIs(t, err, ErrBadFilter)
}

func TestNormalizeAndMatchExact(t *testing.T) {
	assert.Equal(t, "дж.к.роулинг", Normalize("  Дж. К.\tРоулинг "))
	assert.Equal(t, Normalize("ДЖ.К.РОУЛИНГ"), Normalize("дж. к. роулинг"))

	got, ok := MatchExact("дж.к. роулинг", []string{"Стивен Кинг", "Дж. К. Роулинг"})
	assert.True(t, ok)
	assert.Equal(t, "Дж. К. Роулинг", got)

	_, ok = MatchExact("роулинг", []string{"Дж. К. Роулинг"})
	assert.False(t, ok, "substring is not an exact match")
	_, ok = MatchExact("   ", []string{""})
	assert.False(t, ok)
}
