package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

type fakeAPI struct {
	mu        sync.Mutex
	sent      []any
	sendOpts  [][]any
	edited    []string
	deleted   []int
	responded []string
	deleteErr error
	nextID    int
}

func (f *fakeAPI) Send(_ tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, what)
	f.sendOpts = append(f.sendOpts, opts)
	return &tele.Message{ID: f.nextID}, nil
}

func (f *fakeAPI) Edit(_ tele.Editable, what interface{}, _ ...interface{}) (*tele.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, what.(string))
	return &tele.Message{}, nil
}

func (f *fakeAPI) Delete(msg tele.Editable) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := msg.MessageSig()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, len(id))
	return nil
}

func (f *fakeAPI) Respond(_ *tele.Callback, resp ...*tele.CallbackResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	text := ""
	if len(resp) > 0 {
		text = resp[0].Text
	}
	f.responded = append(f.responded, text)
	return nil
}

func TestMessengerSendCountsMessages(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api, nil)
	counters := &middleware.Counters{}
	ctx := middleware.WithCounters(context.Background(), counters)

	id, err := m.Send(ctx, 10, "plain", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, id)
	assert.Empty(t, api.sendOpts[0], "nil options must not be forwarded")

	markup := &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{{Text: "x", Data: "ignore"}}}}
	id, err = m.Send(ctx, 10, "*md*", &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: markup})
	require.NoError(t, err)
	assert.Equal(t, 2, id)
	require.Len(t, api.sendOpts[1], 1)

	require.NoError(t, m.Edit(ctx, 10, 2, "edited", nil))
	assert.Equal(t, []string{"edited"}, api.edited)

	msgs, kb := middleware.GetCounters(nil)
	assert.Zero(t, msgs)
	assert.False(t, kb)
	msgs, kb = counters.Snapshot()
	assert.Equal(t, 3, msgs)
	assert.True(t, kb)
}

func TestMessengerRespond(t *testing.T) {
	api := &fakeAPI{}
	m := NewMessenger(api, nil)
	cb := &tele.Callback{ID: "1"}

	require.NoError(t, m.Respond(context.Background(), cb, ""))
	require.NoError(t, m.Respond(context.Background(), cb, "Загрузка книги..."))
	assert.Equal(t, []string{"", "Загрузка книги..."}, api.responded)
	assert.Error(t, m.Respond(context.Background(), nil, ""))
}

func TestMessengerDeleteThroughDispatcher(t *testing.T) {
	api := &fakeAPI{}
	d := NewDispatcher(Options{Workers: 1, QueueSize: 4, RetryBackoff: time.Millisecond})
	m := NewMessenger(api, d)

	m.Delete(context.Background(), 1, 42)
	m.Delete(context.Background(), 1, 0)
	d.Close()

	assert.Len(t, api.deleted, 1, "zero ids are skipped")
	assert.Zero(t, d.ErrorCount())
}

func TestMessengerDeleteSwallowsGoneMessages(t *testing.T) {
	api := &fakeAPI{deleteErr: tele.ErrNotFoundToDelete}
	d := NewDispatcher(Options{Workers: 1})
	m := NewMessenger(api, d)

	m.Delete(context.Background(), 1, 7)
	d.Close()
	assert.Zero(t, d.ErrorCount())
}

func TestErrorClassifiers(t *testing.T) {
	assert.True(t, IsNotModified(errors.New("telegram: Bad Request: message is not modified (400)")))
	assert.False(t, IsNotModified(nil))
	assert.True(t, IsGone(errors.New("telegram: Bad Request: message can't be deleted (400)")))
	assert.False(t, IsGone(errors.New("boom")))
	assert.Equal(t, "bot<redacted>/x", RedactError(errors.New("bot123:AbC_d-e/x")))
}
