package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/bookbot/core/telegram/format"
	"github.com/m3rciful/bookbot/internal/books"
)

// leaderboard renders a top-N message or "" when there is nothing to show.
type leaderboard func(ctx context.Context, catalog Catalog, n int) (string, error)

func topBooks(ctx context.Context, catalog Catalog, n int) (string, error) {
	list, err := catalog.TopBooks(ctx, n)
	if err != nil || len(list) == 0 {
		return "", err
	}
	lines := make([]string, len(list))
	for i, b := range list {
		lines[i] = fmt.Sprintf("%d\\. %s — %s", i+1, format.EscapeV2(b.Title), format.EscapeV2(b.Author))
	}
	return board(headerTopBooks, n, lines), nil
}

func topAuthors(ctx context.Context, catalog Catalog, n int) (string, error) {
	list, err := catalog.TopAuthors(ctx, n)
	return leaders(headerTopAuthors, n, list, err)
}

func topTopics(ctx context.Context, catalog Catalog, n int) (string, error) {
	list, err := catalog.TopTopics(ctx, n)
	return leaders(headerTopTopics, n, list, err)
}

func leaders(header string, n int, list []books.Leader, err error) (string, error) {
	if err != nil || len(list) == 0 {
		return "", err
	}
	lines := make([]string, len(list))
	for i, l := range list {
		lines[i] = fmt.Sprintf("%d\\. %s", i+1, format.EscapeV2(l.Name))
	}
	return board(header, n, lines), nil
}

func board(header string, n int, lines []string) string {
	return fmt.Sprintf(header, n) + "\n\n" + strings.Join(lines, "\n")
}
