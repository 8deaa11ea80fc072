// Package bookstest opens migrated throwaway catalogs for tests.
package bookstest

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/bookbot/core/config"
	coredatabase "github.com/m3rciful/bookbot/core/database"
	"github.com/m3rciful/bookbot/internal/books"
)

// Open returns a migrated sqlite database in t.TempDir.
func Open(t testing.TB) *sqlx.DB {
	t.Helper()
	cfg := coreconfig.DatabaseConfig{
		Driver: coreconfig.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "books.db"),
	}
	db, err := coredatabase.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, coredatabase.RunMigrations(db, coreconfig.DriverSQLite))
	return db
}

// NewStore returns a store seeded with list in the given order.
func NewStore(t testing.TB, list ...books.Book) *books.Store {
	t.Helper()
	store := books.NewStore(Open(t))
	if len(list) > 0 {
		n, err := store.Seed(context.Background(), list)
		require.NoError(t, err)
		require.Equal(t, len(list), n)
	}
	return store
}

// Numbered builds n distinct records titled "Книга 1".."Книга n".
func Numbered(n int, author, topic string) []books.Book {
	out := make([]books.Book, n)
	for i := range out {
		out[i] = books.Book{
			Title:    fmt.Sprintf("Книга %d", i+1),
			Author:   author,
			Topic:    topic,
			FilePath: fmt.Sprintf("/books/%03d.pdf", i+1),
		}
	}
	return out
}

