package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMenu(t *testing.T) {
	assert.True(t, Command{Description: "Каталог книг"}.InMenu())
	assert.False(t, Command{Description: "Статистика", AdminOnly: true}.InMenu())
	assert.False(t, Command{Description: "Отладка", Hidden: true}.InMenu())
}
