package books_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/books/bookstest"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestSeedFromFile(t *testing.T) {
	path := writeSeed(t, `
books:
  - title: " Занимательная физика "
    author: Я. И. Перельман
    topic: Физика
    file_path: /books/perelman.pdf
  - title: Мастер и Маргарита
    author: М. А. Булгаков
    topic: Роман
    file_path: /books/master.epub
`)
	store := bookstest.NewStore(t)

	n, err := books.SeedFromFile(context.Background(), store, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = books.SeedFromFile(context.Background(), store, path)
	require.NoError(t, err)
	assert.Zero(t, n)

	b, err := store.ByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Занимательная физика", b.Title)
}

func TestLoadSeedRejectsIncomplete(t *testing.T) {
	path := writeSeed(t, "books:\n  - title: Без файла\n")
	_, err := books.LoadSeed(path)
	assert.ErrorContains(t, err, "file_path")

	_, err = books.LoadSeed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
