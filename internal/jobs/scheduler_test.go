package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProgress struct {
	saves   int
	saveErr error
	before  time.Time
}

func (f *fakeProgress) SaveAll(context.Context) (int, error) {
	f.saves++
	return 2, f.saveErr
}

func (f *fakeProgress) EvictIdle(before time.Time) int {
	f.before = before
	return 1
}

func TestScheduler_StartRegistersJobs(t *testing.T) {
	p := &fakeProgress{}
	s := NewScheduler(p, time.UTC)
	require.NoError(t, s.Start(context.Background(), 5*time.Minute, 4*time.Hour+30*time.Minute))
	assert.Len(t, s.cron.Entries(), 2)

	s.Stop(context.Background())
	assert.Equal(t, 1, p.saves, "при остановке прогресс сохраняется")
}

func TestScheduler_Reschedule(t *testing.T) {
	p := &fakeProgress{}
	s := NewScheduler(p, time.UTC)
	require.NoError(t, s.Start(context.Background(), 5*time.Minute, 4*time.Hour+30*time.Minute))
	t.Cleanup(func() { s.Stop(context.Background()) })
	assert.Equal(t, "@every 5m", s.saveSpec)
	assert.Equal(t, "30 4 * * *", s.cleanupSpec)
	first := append([]cron.EntryID(nil), s.entries...)

	// те же значения — расписание не трогаем
	require.NoError(t, s.Reschedule(5*time.Minute, 4*time.Hour+30*time.Minute))
	assert.Equal(t, first, s.entries)

	require.NoError(t, s.Reschedule(10*time.Minute, 6*time.Hour))
	assert.Equal(t, "@every 10m", s.saveSpec)
	assert.Equal(t, "0 6 * * *", s.cleanupSpec)
	assert.NotEqual(t, first, s.entries)
	assert.Len(t, s.cron.Entries(), 2, "старые задачи удалены")
}

func TestScheduler_Cleanup(t *testing.T) {
	p := &fakeProgress{}
	s := NewScheduler(p, time.UTC)
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.cleanup()
	assert.Equal(t, now.Add(-idleEviction), p.before)
}

func TestScheduler_AutoSaveError(t *testing.T) {
	p := &fakeProgress{saveErr: errors.New("db down")}
	s := NewScheduler(p, time.UTC)

	assert.NotPanics(t, func() { s.autoSave(context.Background()) })
	assert.Equal(t, 1, p.saves)
}
