// Package admin — service.go содержит логику аутентификации, управления сессиями
// и state-машину для пошаговых админ-диалогов.
package admin

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"serotonyl.ru/rewards-bot/internal/common"
	"serotonyl.ru/rewards-bot/internal/features/members"
	"serotonyl.ru/rewards-bot/internal/features/progress"
	"serotonyl.ru/rewards-bot/internal/features/rewards"
)

// Параметры Argon2id для новых хешей
const (
	argonMemory      uint32 = 64 * 1024
	argonIterations  uint32 = 3
	argonParallelism uint8  = 2
	argonKeyLength   uint32 = 32
	argonSaltLength         = 16
)

// SessionStore — хранилище сессий и попыток входа. Реализация — Repository.
type SessionStore interface {
	CreateSession(ctx context.Context, session *AdminSession) error
	GetActiveSession(ctx context.Context, userID int64, now time.Time) (*AdminSession, error)
	DeactivateSession(ctx context.Context, userID int64) error
	UpdateActivity(ctx context.Context, userID int64) error
	LogAttempt(ctx context.Context, userID int64, success bool) error
	CountFailedSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

// MemberDirectory — участники чата. Реализация — members.Service.
type MemberDirectory interface {
	GetByUserID(ctx context.Context, userID int64) (*members.Member, error)
	GetUsersWithoutRole(ctx context.Context) ([]*members.Member, error)
	GetUsersWithRole(ctx context.Context) ([]*members.Member, error)
	GetAll(ctx context.Context) ([]*members.Member, error)
	AssignRole(ctx context.Context, userID int64, role string) error
}

// RewardsAdmin — админские операции над наградами. Реализация — rewards.Service.
type RewardsAdmin interface {
	ResetPlayer(ctx context.Context, userID int64) (*progress.Record, error)
	DeletePlayer(ctx context.Context, userID int64) error
	Reload() (*rewards.Tables, error)
	Info(ctx context.Context, userID int64) (*rewards.CalendarView, error)
}

// Service управляет админ-панелью.
type Service struct {
	repo         SessionStore
	members      MemberDirectory
	rewards      RewardsAdmin
	passwordHash string
	now          func() time.Time

	states   map[int64]*AdminState // Состояния диалогов (in-memory)
	statesMu sync.RWMutex
}

// NewService создаёт сервис админ-панели.
func NewService(repo SessionStore, memberDir MemberDirectory, rewardsAdmin RewardsAdmin, passwordHash string) *Service {
	return &Service{
		repo:         repo,
		members:      memberDir,
		rewards:      rewardsAdmin,
		passwordHash: passwordHash,
		now:          time.Now,
		states:       make(map[int64]*AdminState),
	}
}

// IsAdmin проверяет, что пользователь отмечен администратором.
func (s *Service) IsAdmin(ctx context.Context, userID int64) bool {
	m, err := s.members.GetByUserID(ctx, userID)
	return err == nil && m.IsAdmin
}

// VerifyPassword проверяет пароль и открывает сессию на 24 часа.
// Защита от перебора: 3 неудачные попытки за час блокируют вход.
func (s *Service) VerifyPassword(ctx context.Context, userID int64, password string) error {
	now := s.now()
	failed, err := s.repo.CountFailedSince(ctx, userID, now.Add(-failedLoginsSpan))
	if err != nil {
		return err
	}
	if failed >= maxFailedLogins {
		return common.ErrTooManyAttempts
	}

	match := VerifyHash(password, s.passwordHash)
	if err := s.repo.LogAttempt(ctx, userID, match); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("Не удалось записать попытку входа")
	}
	if !match {
		log.WithField("user_id", userID).Warn("Неверный пароль админки")
		return common.ErrWrongPassword
	}

	session := &AdminSession{
		UserID:       userID,
		SessionToken: generateSecureToken(),
		ExpiresAt:    now.Add(sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return err
	}
	log.WithField("user_id", userID).Info("Администратор вошёл в панель")
	return nil
}

// HasActiveSession проверяет, есть ли у пользователя действующая сессия.
func (s *Service) HasActiveSession(ctx context.Context, userID int64) bool {
	session, err := s.repo.GetActiveSession(ctx, userID, s.now())
	if err != nil && !errors.Is(err, errNoSession) {
		log.WithError(err).WithField("user_id", userID).Error("Ошибка проверки сессии")
	}
	return err == nil && session != nil
}

// TouchSession продлевает активность сессии.
func (s *Service) TouchSession(ctx context.Context, userID int64) {
	if err := s.repo.UpdateActivity(ctx, userID); err != nil {
		log.WithError(err).WithField("user_id", userID).Debug("Не удалось обновить активность сессии")
	}
}

// Logout закрывает сессию и сбрасывает диалог.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	s.ClearState(userID)
	return s.repo.DeactivateSession(ctx, userID)
}

// GetState возвращает текущее состояние диалога или nil, если оно истекло.
func (s *Service) GetState(userID int64) *AdminState {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()

	state, ok := s.states[userID]
	if !ok || s.now().After(state.ExpiresAt) {
		return nil
	}
	return state
}

// SetState устанавливает состояние диалога на 5 минут.
func (s *Service) SetState(userID int64, stateName string, data any) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	s.states[userID] = &AdminState{
		State:     stateName,
		Data:      data,
		ExpiresAt: s.now().Add(stateTTL),
	}
}

// ClearState сбрасывает состояние диалога.
func (s *Service) ClearState(userID int64) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	delete(s.states, userID)
}

// GetUsersWithoutRole возвращает участников без роли.
func (s *Service) GetUsersWithoutRole(ctx context.Context) ([]*members.Member, error) {
	return s.members.GetUsersWithoutRole(ctx)
}

// GetUsersWithRole возвращает участников с ролью.
func (s *Service) GetUsersWithRole(ctx context.Context) ([]*members.Member, error) {
	return s.members.GetUsersWithRole(ctx)
}

// GetAllMembers возвращает всех участников.
func (s *Service) GetAllMembers(ctx context.Context) ([]*members.Member, error) {
	return s.members.GetAll(ctx)
}

// AssignRole назначает роль участнику.
func (s *Service) AssignRole(ctx context.Context, userID int64, role string) error {
	return s.members.AssignRole(ctx, userID, role)
}

// ResetProgress обнуляет прогресс наград участника.
func (s *Service) ResetProgress(ctx context.Context, adminID, userID int64) error {
	if _, err := s.rewards.ResetPlayer(ctx, userID); err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "user_id": userID}).Info("Админ сбросил прогресс наград")
	return nil
}

// DeleteProgress удаляет прогресс наград участника.
func (s *Service) DeleteProgress(ctx context.Context, adminID, userID int64) error {
	if err := s.rewards.DeletePlayer(ctx, userID); err != nil {
		return err
	}
	log.WithFields(log.Fields{"admin_id": adminID, "user_id": userID}).Info("Админ удалил прогресс наград")
	return nil
}

// ReloadRewards перечитывает rewards.toml и возвращает сводку новых таблиц.
func (s *Service) ReloadRewards() (string, error) {
	t, err := s.rewards.Reload()
	if err != nil {
		return "", err
	}
	return t.Summary(), nil
}

// PlayerStats возвращает состояние календаря участника.
func (s *Service) PlayerStats(ctx context.Context, userID int64) (*rewards.CalendarView, error) {
	return s.rewards.Info(ctx, userID)
}

// HashPassword возвращает хеш Argon2id в формате
// $argon2id$v=19$m=65536,t=3,p=2$<salt_base64>$<hash_base64>.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("пустой пароль")
	}
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("ошибка генерации соли: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonIterations, argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyHash проверяет пароль по хешу Argon2id.
func VerifyHash(password, encodedHash string) bool {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	var (
		memory      uint32
		iterations  uint32
		parallelism uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism); err != nil {
		log.WithError(err).Error("Ошибка разбора параметров Argon2id")
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expected)))
	// сравнение за постоянное время
	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// generateSecureToken генерирует случайный токен сессии.
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
	}
	return base64.URLEncoding.EncodeToString(b)
}
