package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/bookbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

func noop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/find", commands.Command{Handler: noop, Description: "Поиск", Aliases: []string{"search"}})
	reg.RegisterCommand("/stats", commands.Command{Handler: noop, Description: "Статистика", AdminOnly: true})
	reg.RegisterCommand("catalog", commands.Command{Handler: noop, Description: "no slash"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})
	reg.RegisterCommand("/find", commands.Command{Handler: noop, Description: "duplicate"})

	require.Len(t, reg.Commands(), 2)
	assert.Equal(t, "Поиск", reg.Commands()["/find"].Description)

	visible := reg.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "find", visible[0].Text)
	assert.Len(t, reg.ListCommands(false), 2)

	key, _, ok := reg.LookupCommand("/find@bookbot Роулинг")
	assert.True(t, ok)
	assert.Equal(t, "/find", key)
	key, _, ok = reg.LookupCommand("search")
	assert.True(t, ok)
	assert.Equal(t, "/find", key)
	_, _, ok = reg.LookupCommand("  ")
	assert.False(t, ok)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("page", noop))
	require.NoError(t, reg.RegisterCallback("download", noop))
	assert.Error(t, reg.RegisterCallback("page", noop))
	assert.Error(t, reg.RegisterCallback("", noop))
	assert.Error(t, reg.RegisterCallback("ignore", nil))

	_, ok := reg.GetCallback("page")
	assert.True(t, ok)
	_, ok = reg.GetCallback("ignore")
	assert.False(t, ok)
	assert.Equal(t, []string{"download", "page"}, reg.ListCallbacks())

	assert.NotNil(t, reg.CallbackNotFound())
	reg.SetCallbackNotFound(nil)
	assert.NotNil(t, reg.CallbackNotFound(), "nil keeps the default")
}
