package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/bookbot/core/telegram"
	"github.com/m3rciful/bookbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

type fakeFSM struct {
	active  bool
	handled []string
}

func (f *fakeFSM) InProgress(context.Context, int64) bool { return f.active }

func (f *fakeFSM) HandleMessage(c tele.Context) error {
	f.handled = append(f.handled, c.Text())
	return nil
}

func newBot(t *testing.T) *tele.Bot {
	t.Helper()
	b, err := tele.NewBot(tele.Settings{Offline: true})
	require.NoError(t, err)
	return b
}

func textUpdate(b *tele.Bot, text string) tele.Context {
	return b.NewContext(tele.Update{ID: 5, Message: &tele.Message{
		ID:     1,
		Text:   text,
		Sender: &tele.User{ID: 42},
		Chat:   &tele.Chat{ID: 42},
	}})
}

func TestTextRoutesPrecedence(t *testing.T) {
	b := newBot(t)
	reg := tg.NewRegistry()
	var cancelled, stats int
	reg.RegisterCommand("/cancel", commands.Command{Description: "Отмена", Handler: func(tele.Context) error { cancelled++; return nil }})
	reg.RegisterCommand("/stats", commands.Command{Description: "Статистика", AdminOnly: true, Handler: func(tele.Context) error { stats++; return nil }})

	fsm := &fakeFSM{active: true}
	var unknown []string
	routes := TextRoutes(fsm, reg, TextOptions{UnknownText: func(c tele.Context) error {
		unknown = append(unknown, c.Text())
		return nil
	}})
	require.Len(t, routes, 2)
	onText := routes[0].Handler

	require.NoError(t, onText(textUpdate(b, "/cancel")))
	assert.Equal(t, 1, cancelled, "commands win over an active conversation")

	require.NoError(t, onText(textUpdate(b, "/stats")))
	assert.Zero(t, stats, "admin commands are only reachable through their own route")

	require.NoError(t, onText(textUpdate(b, "Роулинг")))
	assert.Equal(t, []string{"/stats", "Роулинг"}, fsm.handled)

	fsm.active = false
	require.NoError(t, onText(textUpdate(b, "привет")))
	assert.Equal(t, []string{"привет"}, unknown)
}

func TestCallbackRouteDispatchesByKey(t *testing.T) {
	b := newBot(t)
	reg := tg.NewRegistry()
	var got []string
	require.NoError(t, reg.RegisterCallback("page", func(c tele.Context) error {
		got = append(got, c.Callback().Data)
		return nil
	}))
	var missing int
	reg.SetCallbackNotFound(func(tele.Context) error { missing++; return nil })

	h := CallbackRoute(reg).Handler
	press := func(data string) tele.Context {
		return b.NewContext(tele.Update{ID: 9, Callback: &tele.Callback{
			ID:     "cb",
			Data:   data,
			Sender: &tele.User{ID: 42},
		}})
	}
	require.NoError(t, h(press("page_2|author LIKE ?|%a%")))
	require.NoError(t, h(press("zoom_1")))

	assert.Equal(t, []string{"page_2|author LIKE ?|%a%"}, got)
	assert.Equal(t, 1, missing)
}

type codedErr struct{}

func (codedErr) Error() string { return "query failed" }
func (codedErr) Code() string  { return "db query" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestErrorCodeAndHandlerName(t *testing.T) {
	assert.Equal(t, "DB_QUERY", errorCode(codedErr{}))
	assert.Equal(t, "PLAINERR", errorCode(&plainErr{}))
	assert.Equal(t, "ERRORSTRING", errorCode(errors.New("x")))

	assert.Equal(t, "find_by_title", handlerName("/find_by_title"))
	assert.Equal(t, "unknown", handlerName(" "))
}
