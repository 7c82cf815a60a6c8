// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает автосохранение прогресса и выгрузку неактивных игроков.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// idleEviction — сколько игрок должен молчать, чтобы его запись выгрузили из памяти.
const idleEviction = 24 * time.Hour

// Progress — то, что нужно планировщику от сервиса наград.
type Progress interface {
	SaveAll(ctx context.Context) (int, error)
	EvictIdle(before time.Time) int
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	progress Progress
	now      func() time.Time

	mu          sync.Mutex
	ctx         context.Context
	entries     []cron.EntryID
	saveSpec    string
	cleanupSpec string
}

// NewScheduler создаёт планировщик в часовом поясе игрового дня.
func NewScheduler(progress Progress, loc *time.Location) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		progress: progress,
		now:      time.Now,
		ctx:      context.Background(),
	}
}

// Start регистрирует задачи и запускает cron.
// resetAt — начало игрового дня от местной полуночи.
func (s *Scheduler) Start(ctx context.Context, saveEvery, resetAt time.Duration) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.Reschedule(saveEvery, resetAt); err != nil {
		return err
	}
	s.cron.Start()
	log.Info("Планировщик задач запущен")
	return nil
}

// Reschedule заменяет расписание автосохранения и очистки.
// Вызывается после перезагрузки rewards.toml. При ошибке остаётся прежнее расписание.
func (s *Scheduler) Reschedule(saveEvery, resetAt time.Duration) error {
	minutes := int(saveEvery / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	saveSpec := fmt.Sprintf("@every %dm", minutes)
	// на границе игрового дня выгружаем тех, кто давно не заходил
	cleanupSpec := fmt.Sprintf("%d %d * * *", int(resetAt.Minutes())%60, int(resetAt.Hours()))

	s.mu.Lock()
	defer s.mu.Unlock()
	if saveSpec == s.saveSpec && cleanupSpec == s.cleanupSpec {
		return nil
	}

	ctx := s.ctx
	saveID, err := s.cron.AddFunc(saveSpec, func() { s.autoSave(ctx) })
	if err != nil {
		return fmt.Errorf("ошибка регистрации автосохранения: %w", err)
	}
	cleanupID, err := s.cron.AddFunc(cleanupSpec, s.cleanup)
	if err != nil {
		s.cron.Remove(saveID)
		return fmt.Errorf("ошибка регистрации очистки: %w", err)
	}

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = []cron.EntryID{saveID, cleanupID}
	s.saveSpec, s.cleanupSpec = saveSpec, cleanupSpec

	log.WithFields(log.Fields{
		"autosave_min": minutes,
		"cleanup":      cleanupSpec,
	}).Info("Расписание задач обновлено")
	return nil
}

func (s *Scheduler) autoSave(ctx context.Context) {
	n, err := s.progress.SaveAll(ctx)
	if err != nil {
		log.WithError(err).WithField("saved", n).Error("[CRON] Ошибка автосохранения")
		return
	}
	if n > 0 {
		log.WithField("saved", n).Debug("[CRON] Прогресс сохранён")
	}
}

func (s *Scheduler) cleanup() {
	n := s.progress.EvictIdle(s.now().Add(-idleEviction))
	log.WithField("evicted", n).Info("[CRON] Неактивные игроки выгружены из памяти")
}

// Stop останавливает планировщик, дожидается текущих задач и сохраняет прогресс в последний раз.
func (s *Scheduler) Stop(ctx context.Context) {
	<-s.cron.Stop().Done()

	n, err := s.progress.SaveAll(ctx)
	if err != nil {
		log.WithError(err).WithField("saved", n).Error("Ошибка сохранения прогресса при остановке")
	} else {
		log.WithField("saved", n).Info("Прогресс сохранён при остановке")
	}
	log.Info("Планировщик задач остановлен")
}
