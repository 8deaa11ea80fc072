package pager_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/core/telegram/sender/sendertest"
	"github.com/m3rciful/bookbot/internal/books"
	"github.com/m3rciful/bookbot/internal/books/bookstest"
	"github.com/m3rciful/bookbot/internal/pager"

	tele "gopkg.in/telebot.v4"
)

const (
	userID = int64(100)
	chatID = int64(200)
)

func TestSendPageNoResults(t *testing.T) {
	rec := &sendertest.Recorder{}
	p := pager.New(bookstest.NewStore(t), rec, pager.Options{})

	_, err := p.SendPage(context.Background(), userID, chatID, books.Like(books.FieldTitle, "нет"))
	require.NoError(t, err)

	msg, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, pager.TextNoResults, msg.Text)
	assert.Nil(t, msg.Opts.ReplyMarkup)
	assert.Equal(t, tele.ModeMarkdownV2, msg.Opts.ParseMode)
}

func TestRenderExactlyOnePage(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, bookstest.Numbered(10, "Автор", "Тема")...)
	p := pager.New(store, &sendertest.Recorder{}, pager.Options{PageSize: 10})

	r, err := p.Render(ctx, books.Filter{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Total)
	assert.Equal(t, 10, r.Count)
	require.NotNil(t, r.Markup)
	assert.Len(t, r.Markup.InlineKeyboard, 11)
	nav := r.Markup.InlineKeyboard[10]
	assert.Equal(t, pager.IgnoreToken, nav[0].Data)
	assert.Equal(t, pager.IgnoreToken, nav[2].Data)

	r, err = p.Render(ctx, books.Filter{}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Total)
	assert.Equal(t, pager.TextNoResults, r.Text)
	assert.Nil(t, r.Markup)

	r, err = p.Render(ctx, books.Filter{}, math.MaxInt/10+1)
	require.NoError(t, err)
	assert.Equal(t, pager.TextNoResults, r.Text)
	assert.Nil(t, r.Markup)
}

func TestSendPageUsesTrackedPage(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, bookstest.Numbered(25, "Автор", "Тема")...)
	rec := &sendertest.Recorder{}
	p := pager.New(store, rec, pager.Options{PageSize: 10})

	p.SetUserPage(userID, 1)
	_, err := p.SendPage(ctx, userID, chatID, books.Filter{})
	require.NoError(t, err)

	msg, _ := rec.Last()
	assert.True(t, strings.HasPrefix(msg.Text, "*Список книг — страница 2/3 :*"))
	assert.Contains(t, msg.Text, "11\\. *Книга 11*")

	nav := msg.Opts.ReplyMarkup.InlineKeyboard[10]
	prev, err := pager.Decode(nav[0].Data)
	require.NoError(t, err)
	assert.Equal(t, 0, prev.Page)
	next, err := pager.Decode(nav[2].Data)
	require.NoError(t, err)
	assert.Equal(t, 2, next.Page)
}

func TestChangePageEditsInPlace(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t, bookstest.Numbered(15, "Автор", "Тема")...)
	rec := &sendertest.Recorder{}
	p := pager.New(store, rec, pager.Options{PageSize: 10})

	require.NoError(t, p.ChangePage(ctx, userID, chatID, 55, 1, books.Filter{}))
	require.Len(t, rec.Edits, 1)
	assert.Equal(t, 55, rec.Edits[0].ID)
	assert.Contains(t, rec.Edits[0].Text, "страница 2/2")
	assert.Len(t, rec.Edits[0].Opts.ReplyMarkup.InlineKeyboard, 6)
	assert.Equal(t, 1, p.Tracker().Get(userID))

	rec.EditErr = errors.New("telegram: Bad Request: message is not modified (400)")
	assert.NoError(t, p.ChangePage(ctx, userID, chatID, 55, 1, books.Filter{}))
}

type brokenCatalog struct{}

func (brokenCatalog) Page(context.Context, books.Filter, int, int) ([]books.Book, error) {
	return nil, &books.QueryError{Op: "page", Err: errors.New("no such table")}
}

func (brokenCatalog) Count(context.Context, books.Filter) (int, error) {
	return 0, nil
}

func TestSendPageDatabaseError(t *testing.T) {
	rec := &sendertest.Recorder{}
	p := pager.New(brokenCatalog{}, rec, pager.Options{})

	_, err := p.SendPage(context.Background(), userID, chatID, books.Filter{})
	var qe *books.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, []string{pager.TextDBError}, rec.Texts())
}

func TestRowlingExample(t *testing.T) {
	ctx := context.Background()
	store := bookstest.NewStore(t,
		books.Book{Title: "Гарри Поттер и философский камень", Author: "Дж. К. Роулинг", Topic: "Фэнтези", FilePath: "/b/1.pdf"},
		books.Book{Title: "Гарри Поттер и тайная комната", Author: "Дж. К. Роулинг", Topic: "Фэнтези", FilePath: "/b/2.pdf"},
	)
	rec := &sendertest.Recorder{}
	p := pager.New(store, rec, pager.Options{})

	_, err := p.SendPage(ctx, userID, chatID, books.Like(books.FieldAuthor, "роулинг"))
	require.NoError(t, err)

	msg, _ := rec.Last()
	assert.Contains(t, msg.Text, "страница 1/1")
	kb := msg.Opts.ReplyMarkup.InlineKeyboard
	require.Len(t, kb, 3)
	assert.Equal(t, pager.IgnoreToken, kb[2][0].Data)
	assert.Equal(t, pager.IgnoreToken, kb[2][2].Data)
}

func TestPageTokenFallsBackToRef(t *testing.T) {
	ctx := context.Background()
	long := books.Like(books.FieldAuthor, "Антуан де Сент-Экзюпери").And(books.Like(books.FieldTitle, "Маленький принц"))

	p := pager.New(brokenCatalog{}, &sendertest.Recorder{}, pager.Options{})
	_, err := p.PageToken(ctx, 1, long)
	assert.ErrorIs(t, err, pager.ErrTokenTooLong)

	p = pager.New(brokenCatalog{}, &sendertest.Recorder{}, pager.Options{Refs: pager.NewMemoryRefStore(time.Hour)})
	data, err := p.PageToken(ctx, 1, long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(data), pager.MaxCallbackData)

	tok, err := pager.Decode(data)
	require.NoError(t, err)
	require.NotEmpty(t, tok.Ref)
	got, err := p.Resolve(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, long, got)

	short := books.Like(books.FieldTitle, "Оно")
	data, err = p.PageToken(ctx, 0, short)
	require.NoError(t, err)
	assert.Equal(t, pager.EncodePage(0, short), data)
}

func TestResolveRejectsForeignClause(t *testing.T) {
	p := pager.New(brokenCatalog{}, &sendertest.Recorder{}, pager.Options{})
	tok, err := pager.Decode("page_0|1=1 OR title LIKE ?|x")
	require.NoError(t, err)
	_, err = p.Resolve(context.Background(), tok)
	assert.ErrorIs(t, err, pager.ErrBadToken)

	_, err = p.Resolve(context.Background(), pager.Token{Action: pager.ActionPage, Ref: "gone"})
	assert.ErrorIs(t, err, pager.ErrRefExpired)
}

func TestRedisRefStore(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	refs := pager.NewRedisRefStore(client, "bookbot:pageref", time.Minute)
	f := books.Like(books.FieldTopic, "Фэнтези")

	ref, err := refs.Put(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, pager.RefFor(f), ref)
	assert.Len(t, ref, 22)

	got, err := refs.Get(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	mr.FastForward(2 * time.Minute)
	_, err = refs.Get(ctx, ref)
	assert.ErrorIs(t, err, pager.ErrRefExpired)
}
