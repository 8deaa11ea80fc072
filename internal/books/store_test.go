package books_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/books/bookstest"
)

func catalog() []books.Book {
	return []books.Book{
		{Title: "Гарри Поттер и философский камень", Author: "Дж. К. Роулинг", Topic: "Фэнтези", FilePath: "/books/hp1.pdf"},
		{Title: "Гарри Поттер и тайная комната", Author: "Дж. К. Роулинг", Topic: "Фэнтези", FilePath: "/books/hp2.epub"},
		{Title: "Занимательная физика", Author: "Я. И. Перельман", Topic: "Физика", FilePath: "/books/perelman.pdf"},
	}
}

func TestStorePageAndCount(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, catalog()...)

	n, err := store.Count(ctx, books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	page, err := store.Page(ctx, books.Filter{}, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Less(t, page[0].ID, page[1].ID)

	page, err = store.Page(ctx, books.Filter{}, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	page, err = store.Page(ctx, books.Filter{}, 5, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestStoreCaseInsensitiveCyrillic(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, catalog()...)

	f := books.Like(books.FieldAuthor, "роулинг")
	n, err := store.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f = books.Like(books.FieldAuthor, "роулинг").And(books.Like(books.FieldTitle, "ТАЙНАЯ"))
	page, err := store.Page(ctx, f, 0, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "/books/hp2.epub", page[0].FilePath)
}

func TestStorePagesCoverCount(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, bookstest.Numbered(23, "Автор", "Тема")...)

	total, err := store.Count(ctx, books.Filter{})
	require.NoError(t, err)
	const size = 10
	pages := (total + size - 1) / size

	nonEmpty := 0
	for p := 0; ; p++ {
		list, err := store.Page(ctx, books.Filter{}, p, size)
		require.NoError(t, err)
		if len(list) == 0 {
			break
		}
		nonEmpty++
	}
	assert.Equal(t, pages, nonEmpty)
	assert.Equal(t, 3, pages)
}

func TestStoreByID(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, catalog()...)

	b, err := store.ByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Занимательная физика", b.Title)

	_, err = store.ByID(ctx, 99)
	assert.ErrorIs(t, err, books.ErrNotFound)
}

func TestStoreCountersAndLeaders(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, catalog()...)

	require.NoError(t, store.IncrementAuthor(ctx, "Дж. К. Роулинг"))
	require.NoError(t, store.IncrementAuthor(ctx, "дж.к. роулинг"))
	require.NoError(t, store.IncrementAuthor(ctx, "Я. И. Перельман"))
	require.NoError(t, store.IncrementTopic(ctx, "Физика"))

	authors, err := store.TopAuthors(ctx, 10)
	require.NoError(t, err)
	require.Len(t, authors, 2, "spelling variants share one counter")
	assert.Equal(t, "Дж. К. Роулинг", authors[0].Name)
	assert.EqualValues(t, 2, authors[0].RequestCount)

	topics, err := store.TopTopics(ctx, 10)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Физика", topics[0].Name)

	top, err := store.TopBooks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)

	n, err := store.IncrementTitle(ctx, "Занимательная физика")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = store.IncrementTitle(ctx, "Занимательная физика")
	require.NoError(t, err)
	_, err = store.IncrementTitle(ctx, "Гарри Поттер и философский камень")
	require.NoError(t, err)

	top, err = store.TopBooks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Занимательная физика", top[0].Title)
	assert.EqualValues(t, 2, top[0].RequestCount)
}

func TestStoreDistinctValues(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, catalog()...)

	authors, err := store.DistinctValues(ctx, books.FieldAuthor, books.Like(books.FieldAuthor, "роулинг"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Дж. К. Роулинг"}, authors)

	_, err = store.DistinctValues(ctx, books.Field("file_path"), books.Filter{})
	var qe *books.QueryError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "DB_QUERY", qe.Code())
}

func TestStoreSeedIdempotent(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, catalog()...)

	n, err := store.Seed(ctx, append(catalog(), books.Book{Title: "Новая", FilePath: "/books/new.txt"}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	total, err := store.Count(ctx, books.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
}
