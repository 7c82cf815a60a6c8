package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	p := NewCommandParser()

	tests := []struct {
		text    string
		cmd     string
		args    []string
		command bool
	}{
		{"!награды", "награды", nil, true},
		{".Забрать", "забрать", nil, true},
		{"/start@rewards_bot", "start", nil, true},
		{"  !login секрет  ", "login", []string{"секрет"}, true},
		{"/ инфо", "инфо", nil, true},
		{"привет всем", "", nil, false},
		{"!", "", nil, false},
		{"", "", nil, false},
	}
	for _, tt := range tests {
		cmd, args, ok := p.ParseCommand(tt.text)
		assert.Equal(t, tt.command, ok, tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}

func TestRoutes(t *testing.T) {
	b := &Bot{}
	routes := b.buildRoutes()

	for _, cmd := range []string{
		"награды", "календарь", "забрать", "возврат", "вход", "инфо", "серия",
		"баланс", "транзакции", "уровень", "инвентарь", "start", "help", "помощь",
	} {
		assert.Contains(t, routes, cmd)
	}
	assert.NotContains(t, routes, "login", "вход в админку обрабатывает панель")
}
