package levels

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
)

// Store — хранилище опыта. Реализация — Repository.
type Store interface {
	Ping(ctx context.Context) error
	Add(ctx context.Context, userID, xp int64) (int64, error)
	Get(ctx context.Context, userID int64) (int64, error)
}

// Service начисляет опыт и сообщает о новых уровнях.
type Service struct {
	repo Store
}

// NewService создаёт сервис уровней.
func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// Ping проверяет, доступно ли хранилище опыта.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// AddExperience начисляет опыт. Возвращает прогресс после начисления.
func (s *Service) AddExperience(ctx context.Context, userID, xp int64, reason string) (Progress, error) {
	if xp <= 0 {
		return Progress{}, common.ErrInvalidAmount
	}
	total, err := s.repo.Add(ctx, userID, xp)
	if err != nil {
		return Progress{}, err
	}

	after := ProgressFor(total)
	if before := ProgressFor(total - xp); after.Level > before.Level {
		log.WithFields(log.Fields{
			"user_id": userID,
			"level":   after.Level,
			"reason":  reason,
		}).Info("Новый уровень")
	}
	return after, nil
}

// Progress возвращает уровень участника.
func (s *Service) Progress(ctx context.Context, userID int64) (Progress, error) {
	xp, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Progress{}, err
	}
	return ProgressFor(xp), nil
}
