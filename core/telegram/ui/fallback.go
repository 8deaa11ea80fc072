// Package ui declares the user-facing hooks the Telegram runtime falls back on.
package ui

import tele "gopkg.in/telebot.v4"

// Fallbacks answers updates that no command, callback or conversation claimed,
// and updates dropped by the rate limiter.
type Fallbacks interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	// UnknownCallback acks presses whose key is not registered.
	UnknownCallback() tele.HandlerFunc
	RateLimited(c tele.Context) error
}
