package admin

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/config"
	"serotonyl.ru/rewards-bot/internal/features/members"
	"serotonyl.ru/rewards-bot/internal/features/progress"
	"serotonyl.ru/rewards-bot/internal/features/rewards"
)

const (
	adminID    int64 = 1
	chatUserID int64 = 2
	password         = "секрет"
)

type fakeSessions struct {
	mu       sync.Mutex
	sessions []*AdminSession
	failed   []time.Time
	now      func() time.Time
}

func (f *fakeSessions) CreateSession(_ context.Context, s *AdminSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.IsActive = true
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeSessions) GetActiveSession(_ context.Context, userID int64, now time.Time) (*AdminSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID && s.IsActive && s.ExpiresAt.After(now) {
			return s, nil
		}
	}
	return nil, errNoSession
}

func (f *fakeSessions) DeactivateSession(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.UserID == userID {
			s.IsActive = false
		}
	}
	return nil
}

func (f *fakeSessions) UpdateActivity(context.Context, int64) error { return nil }

func (f *fakeSessions) LogAttempt(_ context.Context, _ int64, success bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !success {
		f.failed = append(f.failed, f.now())
	}
	return nil
}

func (f *fakeSessions) CountFailedSince(_ context.Context, _ int64, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.failed {
		if !t.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakeMembers struct {
	all   []*members.Member
	roles map[int64]string
}

func newFakeMembers() *fakeMembers {
	role := "VIP"
	return &fakeMembers{
		all: []*members.Member{
			{UserID: adminID, Username: "boss", IsAdmin: true},
			{UserID: chatUserID, Username: "anna"},
			{UserID: 3, FirstName: "Олег", Role: &role},
		},
		roles: make(map[int64]string),
	}
}

func (f *fakeMembers) GetByUserID(_ context.Context, userID int64) (*members.Member, error) {
	for _, m := range f.all {
		if m.UserID == userID {
			return m, nil
		}
	}
	return nil, common.ErrUserNotFound
}

func (f *fakeMembers) GetUsersWithoutRole(context.Context) ([]*members.Member, error) {
	var out []*members.Member
	for _, m := range f.all {
		if m.Role == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembers) GetUsersWithRole(context.Context) ([]*members.Member, error) {
	var out []*members.Member
	for _, m := range f.all {
		if m.Role != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMembers) GetAll(context.Context) ([]*members.Member, error) { return f.all, nil }

func (f *fakeMembers) AssignRole(_ context.Context, userID int64, role string) error {
	if len([]rune(role)) > members.MaxRoleLength {
		return common.ErrRoleTooLong
	}
	f.roles[userID] = role
	return nil
}

type fakeRewards struct {
	reset, deleted []int64
	reloadErr      error
}

func (f *fakeRewards) ResetPlayer(_ context.Context, userID int64) (*progress.Record, error) {
	f.reset = append(f.reset, userID)
	return progress.NewRecord(userID), nil
}

func (f *fakeRewards) DeletePlayer(_ context.Context, userID int64) error {
	f.deleted = append(f.deleted, userID)
	return nil
}

func (f *fakeRewards) Reload() (*rewards.Tables, error) {
	if f.reloadErr != nil {
		return nil, f.reloadErr
	}
	return rewards.Compile(config.DefaultRewards()), nil
}

func (f *fakeRewards) Info(_ context.Context, userID int64) (*rewards.CalendarView, error) {
	return &rewards.CalendarView{UserID: userID, CurrentDay: 4, TotalDays: 7, Streak: 3, LongestStreak: 5, TotalClaimed: 3, CanClaim: true}, nil
}

type captureSender struct {
	texts []string
}

func (c *captureSender) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m, ok := msg.(tgbotapi.MessageConfig); ok {
		c.texts = append(c.texts, m.Text)
	}
	return tgbotapi.Message{}, nil
}

func (c *captureSender) last() string {
	if len(c.texts) == 0 {
		return ""
	}
	return c.texts[len(c.texts)-1]
}

type fixture struct {
	now      time.Time
	sessions *fakeSessions
	members  *fakeMembers
	rewards  *fakeRewards
	service  *Service
	sender   *captureSender
	handler  *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)

	f := &fixture{
		now:     time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		members: newFakeMembers(),
		rewards: &fakeRewards{},
		sender:  &captureSender{},
	}
	clock := func() time.Time { return f.now }
	f.sessions = &fakeSessions{now: clock}
	f.service = NewService(f.sessions, f.members, f.rewards, hash)
	f.service.now = clock
	f.handler = NewHandler(f.service, f.sender)
	return f
}

func (f *fixture) say(text string) bool {
	return f.handler.HandleAdminMessage(context.Background(), adminID, adminID, text)
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword(password)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$"))

	assert.True(t, VerifyHash(password, hash))
	assert.False(t, VerifyHash("не тот", hash))
	assert.False(t, VerifyHash(password, "мусор"))
	assert.False(t, VerifyHash(password, "$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA"))

	other, err := HashPassword(password)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "соль каждый раз новая")

	_, err = HashPassword("")
	assert.Error(t, err)
}

func TestVerifyPassword_BruteForce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < maxFailedLogins; i++ {
		assert.ErrorIs(t, f.service.VerifyPassword(ctx, adminID, "неверный"), common.ErrWrongPassword)
	}
	assert.ErrorIs(t, f.service.VerifyPassword(ctx, adminID, password), common.ErrTooManyAttempts)
	assert.False(t, f.service.HasActiveSession(ctx, adminID))

	f.now = f.now.Add(failedLoginsSpan + time.Minute)
	require.NoError(t, f.service.VerifyPassword(ctx, adminID, password))
	assert.True(t, f.service.HasActiveSession(ctx, adminID))

	f.now = f.now.Add(sessionTTL + time.Minute)
	assert.False(t, f.service.HasActiveSession(ctx, adminID), "сессия истекла")
}

func TestStateExpires(t *testing.T) {
	f := newFixture(t)
	f.service.SetState(adminID, StateStatsSelect, nil)
	require.NotNil(t, f.service.GetState(adminID))

	f.now = f.now.Add(stateTTL + time.Second)
	assert.Nil(t, f.service.GetState(adminID))
}

func TestHandler_IgnoresNonAdminsAndCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.handler.HandleAdminMessage(ctx, chatUserID, chatUserID, "/login"))
	assert.False(t, f.handler.HandleAdminMessage(ctx, 99, 99, "админ"))
	assert.False(t, f.say("!награды"), "без сессии обычные команды идут дальше")
	assert.Empty(t, f.sender.texts)
}

func TestHandler_LoginFlow(t *testing.T) {
	f := newFixture(t)

	require.True(t, f.say("/login"))
	assert.Contains(t, f.sender.last(), "Введите пароль")

	require.True(t, f.say("неверный"))
	assert.Equal(t, "❌ "+common.ErrWrongPassword.Error(), f.sender.last())

	require.True(t, f.say("/login "+password))
	assert.Equal(t, "✅ Админ-панель открыта", f.sender.last())
	assert.True(t, f.service.HasActiveSession(context.Background(), adminID))

	assert.False(t, f.say("!награды"), "с сессией обычные команды тоже идут дальше")

	require.True(t, f.say(ButtonClose))
	assert.False(t, f.service.HasActiveSession(context.Background(), adminID))
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, f.service.VerifyPassword(context.Background(), adminID, password))
}

func TestHandler_ResetProgress(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.True(t, f.say(ButtonReset))
	assert.Contains(t, f.sender.last(), "2. @anna")

	require.True(t, f.say("9"))
	assert.Contains(t, f.sender.last(), "Неверный номер")

	require.True(t, f.say("2"))
	assert.Contains(t, f.sender.last(), "Сбросить прогресс наград @anna?")

	require.True(t, f.say("Да"))
	assert.Equal(t, "✅ Прогресс @anna сброшен", f.sender.last())
	assert.Equal(t, []int64{chatUserID}, f.rewards.reset)
	assert.Nil(t, f.service.GetState(adminID))
}

func TestHandler_DeleteProgressCancelled(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.True(t, f.say(ButtonDelete))
	require.True(t, f.say("2"))
	require.True(t, f.say("нет"))
	assert.Equal(t, "Отменено", f.sender.last())
	assert.Empty(t, f.rewards.deleted)
}

func TestHandler_AssignRole(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.True(t, f.say(ButtonAssignRole))
	assert.NotContains(t, f.sender.last(), "Олег", "в списке только участники без роли")

	require.True(t, f.say("2"))
	require.True(t, f.say(strings.Repeat("я", members.MaxRoleLength+1)))
	assert.Equal(t, "❌ "+common.ErrRoleTooLong.Error(), f.sender.last())

	require.True(t, f.say("  Легенда  "))
	assert.Equal(t, "✅ Роль назначена: @anna → Легенда", f.sender.last())
	assert.Equal(t, "Легенда", f.members.roles[chatUserID])
}

func TestHandler_ChangeRole(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.True(t, f.say(ButtonChangeRole))
	assert.Contains(t, f.sender.last(), "1. Олег - VIP")
	require.True(t, f.say("1"))
	assert.Contains(t, f.sender.last(), "Текущая роль: VIP")
	require.True(t, f.say("VIP+"))
	assert.Equal(t, "✅ Роль изменена: Олег → VIP+", f.sender.last())
}

func TestHandler_ReloadAndStats(t *testing.T) {
	f := newFixture(t)
	f.login(t)

	require.True(t, f.say(ButtonReload))
	assert.True(t, strings.HasPrefix(f.sender.last(), "🔄 Награды перезагружены"))

	f.rewards.reloadErr = errors.New("toml: line 3")
	require.True(t, f.say(ButtonReload))
	assert.Contains(t, f.sender.last(), "действуют прежние таблицы")

	require.True(t, f.say(ButtonStats))
	require.True(t, f.say("2"))
	assert.Equal(t, strings.Join([]string{
		"📊 @anna",
		"День календаря: 4 из 7",
		"Серия: 3, рекорд: 5",
		"Всего наград: 3",
		"Последний вход: никогда",
		"Награда за сегодня: не получена",
	}, "\n"), f.sender.last())
}
