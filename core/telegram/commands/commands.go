// Package commands describes the slash commands a bot registers.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is one registry entry. Description doubles as the menu text.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands are gated by the admin middleware and bypass an
	// active conversation only for the admin.
	AdminOnly bool
	// Hidden commands work when typed but are left out of the menu.
	Hidden  bool
	Aliases []string
}

// InMenu reports whether the command is published with SetCommands.
func (c Command) InMenu() bool {
	return !c.Hidden && !c.AdminOnly
}
