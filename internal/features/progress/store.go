// Package progress — store.go держит записи игроков в памяти поверх Repository.
// Store отвечает за loadOrCreate/save/delete и периодическое сохранение «грязных» записей.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
)

type cached struct {
	rec   *Record
	dirty bool
	seen  time.Time // последняя активность, читается без блокировки игрока
}

// Store — кэш записей прогресса.
// Эфемерные поля Record живут, пока запись лежит в кэше.
type Store struct {
	repo Repository

	mu      sync.Mutex
	records map[int64]*cached
}

// NewStore создаёт кэш поверх репозитория.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:    repo,
		records: make(map[int64]*cached),
	}
}

// LoadOrCreate возвращает запись игрока. Новая запись сразу помечается как несохранённая.
func (s *Store) LoadOrCreate(ctx context.Context, userID int64) (*Record, error) {
	s.mu.Lock()
	if c, ok := s.records[userID]; ok {
		s.mu.Unlock()
		return c.rec, nil
	}
	s.mu.Unlock()

	rec, err := s.repo.Get(ctx, userID)
	dirty := false
	switch {
	case errors.Is(err, common.ErrProgressNotFound):
		rec = NewRecord(userID)
		dirty = true
		log.WithField("user_id", userID).Debug("Создан новый прогресс")
	case err != nil:
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Пока читали из БД, запись мог загрузить кто-то ещё
	if c, ok := s.records[userID]; ok {
		return c.rec, nil
	}
	s.records[userID] = &cached{rec: rec, dirty: dirty, seen: time.Now()}
	return rec, nil
}

// Save пишет запись в репозиторий. При ошибке запись остаётся «грязной»,
// и её подберёт следующий SaveAll.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	c, ok := s.records[rec.UserID]
	if !ok {
		c = &cached{rec: rec, seen: time.Now()}
		s.records[rec.UserID] = c
	}
	c.dirty = true
	s.mu.Unlock()

	if err := s.repo.Upsert(ctx, rec); err != nil {
		return err
	}

	s.mu.Lock()
	// запись могли выгрузить или заменить, пока шёл запрос
	if cur, ok := s.records[rec.UserID]; ok && cur.rec == rec {
		cur.dirty = false
	}
	s.mu.Unlock()
	return nil
}

// MarkDirty помечает запись как требующую сохранения.
func (s *Store) MarkDirty(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.records[rec.UserID]; ok {
		c.dirty = true
		return
	}
	s.records[rec.UserID] = &cached{rec: rec, dirty: true, seen: time.Now()}
}

// Delete удаляет запись из кэша и хранилища.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	s.mu.Lock()
	delete(s.records, userID)
	s.mu.Unlock()
	return s.repo.Delete(ctx, userID)
}

// Reset обнуляет прогресс игрока (админская команда) и сразу сохраняет.
func (s *Store) Reset(ctx context.Context, userID int64) (*Record, error) {
	rec, err := s.LoadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec.Reset()
	if err := s.Save(ctx, rec); err != nil {
		return rec, fmt.Errorf("прогресс сброшен, но не сохранён: %w", err)
	}
	return rec, nil
}

// LockFunc захватывает блокировку игрока и возвращает функцию её снятия.
type LockFunc func(userID int64) (unlock func())

// SaveAll сохраняет все «грязные» записи. Возвращает число сохранённых
// и первую ошибку; остальные записи всё равно пытаемся сохранить.
// lock (может быть nil) не даёт сохранить запись посреди её изменения.
func (s *Store) SaveAll(ctx context.Context, lock LockFunc) (int, error) {
	s.mu.Lock()
	pending := make([]*Record, 0)
	for _, c := range s.records {
		if c.dirty {
			pending = append(pending, c.rec)
		}
	}
	s.mu.Unlock()

	saved := 0
	var firstErr error
	for _, rec := range pending {
		err := s.saveLocked(ctx, rec, lock)
		if err != nil {
			log.WithError(err).WithField("user_id", rec.UserID).Error("Автосохранение прогресса не удалось")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		saved++
	}
	return saved, firstErr
}

func (s *Store) saveLocked(ctx context.Context, rec *Record, lock LockFunc) error {
	if lock != nil {
		unlock := lock(rec.UserID)
		defer unlock()
	}
	return s.Save(ctx, rec)
}

// Evict выгружает запись из кэша. Несохранённые записи не выгружаются.
func (s *Store) Evict(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[userID]
	if !ok || c.dirty {
		return false
	}
	delete(s.records, userID)
	return true
}

// Seen отмечает активность игрока для EvictIdle.
func (s *Store) Seen(userID int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.records[userID]; ok {
		c.seen = at
	}
}

// EvictIdle выгружает сохранённые записи, не активные с момента before.
func (s *Store) EvictIdle(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.records {
		if !c.dirty && c.seen.Before(before) {
			delete(s.records, id)
			n++
		}
	}
	return n
}

// List возвращает все записи из хранилища, подменяя их кэшированными версиями.
func (s *Store) List(ctx context.Context) ([]*Record, error) {
	recs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range recs {
		if c, ok := s.records[r.UserID]; ok {
			recs[i] = c.rec
		}
	}
	return recs, nil
}

// Cached возвращает число записей в кэше.
func (s *Store) Cached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
