package inventory

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
)

// ErrBadGive — некорректные аргументы команды give.
var ErrBadGive = errors.New("нужны предмет и количество больше нуля")

// Store — хранилище инвентаря. Реализация — Repository.
type Store interface {
	Add(ctx context.Context, userID int64, itemID string, count int) error
	List(ctx context.Context, userID int64) ([]Item, error)
}

// Service выдаёт предметы.
type Service struct {
	repo Store
}

// NewService создаёт сервис инвентаря.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Deliver выдаёт предметы по строкам из rewards.toml.
// Некорректные строки пропускаются с предупреждением, остальные выдаются.
// Возвращает все ошибки хранилища одной.
func (s *Service) Deliver(ctx context.Context, userID int64, entries []string) error {
	var errs []error
	for _, e := range entries {
		item, err := ParseItem(e)
		if err != nil {
			log.WithError(err).WithField("user_id", userID).Warn("Предмет пропущен")
			continue
		}
		if err := s.repo.Add(ctx, userID, item.ID, item.Count); err != nil {
			errs = append(errs, err)
			continue
		}
		log.WithFields(log.Fields{
			"user_id": userID,
			"item":    item.ID,
			"count":   item.Count,
		}).Debug("Предмет выдан")
	}
	return errors.Join(errs...)
}

// Give выдаёт count предметов itemID (команда give).
func (s *Service) Give(ctx context.Context, userID int64, itemID string, count int) error {
	if itemID == "" || count < 1 {
		return ErrBadGive
	}
	return s.repo.Add(ctx, userID, itemID, count)
}

// List возвращает предметы участника.
func (s *Service) List(ctx context.Context, userID int64) ([]Item, error) {
	return s.repo.List(ctx, userID)
}
