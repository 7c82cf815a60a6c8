package payout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNames map[int64]string

func (n staticNames) Mention(_ context.Context, userID int64) string { return n[userID] }

type postFunc func(string) error

func (f postFunc) Post(text string) error { return f(text) }

type roleRecorder map[int64]string

func (r roleRecorder) AssignRole(_ context.Context, userID int64, role string) error {
	r[userID] = role
	return nil
}

type giveRecorder map[string]int

func (g giveRecorder) Give(_ context.Context, _ int64, itemID string, count int) error {
	g[itemID] += count
	return nil
}

func TestRender(t *testing.T) {
	assert.Equal(t, "say @anna молодец", Render("/say {player} молодец", "@anna"))
	assert.Equal(t, "give сундук 2", Render("  give сундук 2  ", "@anna"))
	assert.Equal(t, "role @anna vip", Render("role {player} vip", "@anna"))
	assert.Empty(t, Render("   ", "@anna"))
	assert.Empty(t, Render("/", "@anna"))
}

func TestCommandRunner_Run(t *testing.T) {
	var posted []string
	roles := roleRecorder{}
	items := giveRecorder{}

	r := NewCommandRunner(staticNames{7: "@anna"})
	r.Handle("say", SayExecutor(postFunc(func(text string) error {
		posted = append(posted, text)
		return nil
	})))
	r.Handle("role", RoleExecutor(roles))
	r.Handle("GIVE", GiveExecutor(items))

	err := r.Run(context.Background(), 7, []string{
		"/say {player} держит серию уже 30 дней!",
		"",
		"role {player} легенда чата",
		"give сундук 2",
		"Give ключ",
		"teleport {player}",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"@anna держит серию уже 30 дней!"}, posted)
	assert.Equal(t, "легенда чата", roles[7])
	assert.Equal(t, giveRecorder{"сундук": 2, "ключ": 1}, items)
}

func TestCommandRunner_MentionWithSpaces(t *testing.T) {
	var posted []string
	roles := roleRecorder{}

	r := NewCommandRunner(staticNames{7: "Анна Мария"})
	r.Handle("say", SayExecutor(postFunc(func(text string) error {
		posted = append(posted, text)
		return nil
	})))
	r.Handle("role", RoleExecutor(roles))

	err := r.Run(context.Background(), 7, []string{
		"role {player} vip",
		"say {player}  получает VIP",
	})
	require.NoError(t, err)

	assert.Equal(t, "vip", roles[7], "имя игрока не попадает в роль")
	assert.Equal(t, []string{"Анна Мария  получает VIP"}, posted)
}

func TestCommandRunner_ErrorsDoNotStopOthers(t *testing.T) {
	items := giveRecorder{}
	r := NewCommandRunner(staticNames{})
	r.Handle("say", SayExecutor(postFunc(func(string) error { return errors.New("chat down") })))
	r.Handle("give", GiveExecutor(items))
	r.Handle("role", RoleExecutor(roleRecorder{}))

	err := r.Run(context.Background(), 1, []string{"say привет", "give сундук x", "role", "give ключ 3"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat down")
	assert.Contains(t, err.Error(), "некорректное количество")
	assert.Contains(t, err.Error(), "формат: role")
	assert.Equal(t, 3, items["ключ"])
}
