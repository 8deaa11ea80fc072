// Package state keeps per-user conversation sessions for Telegram bots.
// Each workflow owns a Store keyed by user id, so two workflows of the same
// user never share state. Sessions idle longer than the store TTL are dropped.
package state
