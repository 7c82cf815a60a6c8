package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"serotonyl.ru/rewards-bot/internal/common"
)

// memRepo — репозиторий в памяти с возможностью сломать Upsert.
type memRepo struct {
	mu      sync.Mutex
	rows    map[int64]Record
	failErr error
	upserts int
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[int64]Record)}
}

func (m *memRepo) Get(_ context.Context, id int64) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, common.ErrProgressNotFound
	}
	return &r, nil
}

func (m *memRepo) Upsert(_ context.Context, r *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.failErr != nil {
		return m.failErr
	}
	m.rows[r.UserID] = *r
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, id)
	return nil
}

func (m *memRepo) List(_ context.Context) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Record, 0, len(m.rows))
	for _, r := range m.rows {
		r := r
		out = append(out, &r)
	}
	return out, nil
}

func TestStore_LoadOrCreateNewRecord(t *testing.T) {
	store := NewStore(newMemRepo())

	rec, err := store.LoadOrCreate(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.UserID)
	assert.Equal(t, 1, rec.CurrentDay)
	assert.Empty(t, rec.ClaimedDays)

	// Повторный вызов отдаёт тот же объект из кэша
	again, err := store.LoadOrCreate(context.Background(), 42)
	require.NoError(t, err)
	assert.Same(t, rec, again)
}

func TestStore_NewRecordIsFlushedBySaveAll(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)

	_, err := store.LoadOrCreate(context.Background(), 7)
	require.NoError(t, err)

	saved, err := store.SaveAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	_, err = repo.Get(context.Background(), 7)
	assert.NoError(t, err)

	// Второй проход ничего не пишет
	saved, err = store.SaveAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, saved)
}

func TestStore_SaveFailureKeepsRecordDirty(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	ctx := context.Background()

	rec, err := store.LoadOrCreate(ctx, 1)
	require.NoError(t, err)
	rec.Streak = 5

	repo.failErr = errors.New("db down")
	err = store.Save(ctx, rec)
	require.Error(t, err)
	assert.False(t, store.Evict(1), "несохранённую запись выгружать нельзя")

	repo.failErr = nil
	saved, err := store.SaveAll(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	stored, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, stored.Streak)
	assert.True(t, store.Evict(1))
}

func TestStore_SaveAllUsesPlayerLock(t *testing.T) {
	store := NewStore(newMemRepo())
	_, err := store.LoadOrCreate(context.Background(), 3)
	require.NoError(t, err)

	var locked []int64
	lock := func(id int64) func() {
		locked = append(locked, id)
		return func() {}
	}
	_, err = store.SaveAll(context.Background(), lock)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, locked)
}

func TestStore_ResetKeepsIdentity(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	ctx := context.Background()

	rec, err := store.LoadOrCreate(ctx, 9)
	require.NoError(t, err)
	rec.CurrentDay = 12
	rec.Streak = 4
	rec.LongestStreak = 10
	rec.ClaimedDays = NewDaySet(1, 2, 3)
	rec.PendingReturnReward = true
	rec.AbsenceDays = 8

	reset, err := store.Reset(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), reset.UserID)
	assert.Equal(t, 1, reset.CurrentDay)
	assert.Zero(t, reset.Streak)
	assert.Zero(t, reset.LongestStreak)
	assert.Empty(t, reset.ClaimedDays)
	assert.False(t, reset.PendingReturnReward)
	assert.Zero(t, reset.AbsenceDays)

	stored, err := repo.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentDay)
}

func TestStore_DeleteRemovesEverywhere(t *testing.T) {
	repo := newMemRepo()
	store := NewStore(repo)
	ctx := context.Background()

	rec, err := store.LoadOrCreate(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, rec))

	require.NoError(t, store.Delete(ctx, 5))
	assert.Equal(t, 0, store.Cached())
	_, err = repo.Get(ctx, 5)
	assert.ErrorIs(t, err, common.ErrProgressNotFound)
}

func TestStore_EvictIdle(t *testing.T) {
	store := NewStore(newMemRepo())
	ctx := context.Background()

	old, err := store.LoadOrCreate(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, old))
	store.Seen(1, time.Now().Add(-48*time.Hour))

	fresh, err := store.LoadOrCreate(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, fresh))

	evicted := store.EvictIdle(time.Now().Add(-24 * time.Hour))
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Cached())
}

func TestRecord_ClaimsOn(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	rec := NewRecord(1)
	assert.Zero(t, rec.ClaimsOn(today))

	rec.ClaimsToday = 2
	rec.ClaimsDate = &yesterday
	assert.Zero(t, rec.ClaimsOn(today), "счётчик за вчера сегодня не считается")

	rec.ClaimsDate = &today
	assert.Equal(t, 2, rec.ClaimsOn(today))
}
