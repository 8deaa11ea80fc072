// Package sendertest provides an in-memory sender.Messenger for tests.
package sendertest

import (
	"context"
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Message is one recorded Send or Edit call.
type Message struct {
	ChatID int64
	ID     int
	Text   string
	Opts   *tele.SendOptions
}

// Recorder captures outbound calls. Set the *Err fields to inject failures.
type Recorder struct {
	mu sync.Mutex

	Sent      []Message
	Edits     []Message
	Deleted   []int
	Responses []string
	Documents []*tele.Document

	SendErr     error
	EditErr     error
	DocumentErr error

	nextID int
}

// Send implements sender.Messenger.
func (r *Recorder) Send(_ context.Context, chatID int64, text string, opts *tele.SendOptions) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SendErr != nil {
		return 0, r.SendErr
	}
	r.nextID++
	r.Sent = append(r.Sent, Message{ChatID: chatID, ID: r.nextID, Text: text, Opts: opts})
	return r.nextID, nil
}

// Edit implements sender.Messenger.
func (r *Recorder) Edit(_ context.Context, chatID int64, msgID int, text string, opts *tele.SendOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.EditErr != nil {
		return r.EditErr
	}
	r.Edits = append(r.Edits, Message{ChatID: chatID, ID: msgID, Text: text, Opts: opts})
	return nil
}

// Delete implements sender.Messenger.
func (r *Recorder) Delete(_ context.Context, _ int64, msgID int) {
	if msgID == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Deleted = append(r.Deleted, msgID)
}

// Respond implements sender.Messenger.
func (r *Recorder) Respond(_ context.Context, _ *tele.Callback, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses = append(r.Responses, text)
	return nil
}

// SendDocument implements sender.Messenger.
func (r *Recorder) SendDocument(_ context.Context, _ int64, doc *tele.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DocumentErr != nil {
		return r.DocumentErr
	}
	r.Documents = append(r.Documents, doc)
	return nil
}

// Texts returns the text of every sent message in order.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Sent))
	for i, m := range r.Sent {
		out[i] = m.Text
	}
	return out
}

// Last returns the most recent sent message.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sent) == 0 {
		return Message{}, false
	}
	return r.Sent[len(r.Sent)-1], true
}
