package books

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/bookbot/core/logger"
)

// SeedFile is the YAML layout of a catalog seed:
//
//	books:
//	  - title: Занимательная физика
//	    author: Я. И. Перельман
//	    topic: Физика
//	    file_path: /books/perelman.pdf
type SeedFile struct {
	Books []Book `yaml:"books"`
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) ([]Book, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	out := make([]Book, 0, len(file.Books))
	for i, b := range file.Books {
		b.Title = strings.TrimSpace(b.Title)
		b.Author = strings.TrimSpace(b.Author)
		b.Topic = strings.TrimSpace(b.Topic)
		b.FilePath = strings.TrimSpace(b.FilePath)
		if b.Title == "" || b.FilePath == "" {
			return nil, fmt.Errorf("seed %s: entry %d: title and file_path are required", path, i+1)
		}
		out = append(out, b)
	}
	return out, nil
}

// SeedFromFile loads path into the store; existing file paths are left untouched.
func SeedFromFile(ctx context.Context, store *Store, path string) (int, error) {
	list, err := LoadSeed(path)
	if err != nil {
		return 0, err
	}
	n, err := store.Seed(ctx, list)
	if err != nil {
		return 0, err
	}
	logger.SEED.Info("catalog seeded",
		slog.String("event", "seed.books"),
		slog.String("path", path),
		slog.Int("count", n),
		slog.Int("total", len(list)),
	)
	return n, nil
}
