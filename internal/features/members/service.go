// Package members — service.go содержит бизнес-логику работы с участниками:
// регистрацию, роли и права для VIP-уровней.
package members

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/rewards-bot/internal/common"
)

// Store — хранилище участников. Реализация — Repository.
type Store interface {
	Create(ctx context.Context, m *Member) error
	GetByUserID(ctx context.Context, userID int64) (*Member, error)
	GetByUsername(ctx context.Context, username string) (*Member, error)
	Exists(ctx context.Context, userID int64) (bool, error)
	UpdateInfo(ctx context.Context, userID int64, info UpdateInfo) error
	UpdateRole(ctx context.Context, userID int64, role string) error
	SetAdmin(ctx context.Context, userID int64, isAdmin bool) error
	GetUsersWithoutRole(ctx context.Context) ([]*Member, error)
	GetUsersWithRole(ctx context.Context) ([]*Member, error)
	GetAll(ctx context.Context) ([]*Member, error)
}

// Service управляет участниками чата.
type Service struct {
	repo     Store
	adminIDs map[int64]bool
}

// NewService создаёт сервис участников. adminIDs получают право "admin".
func NewService(repo Store, adminIDs []int64) *Service {
	ids := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = true
	}
	return &Service{repo: repo, adminIDs: ids}
}

// HandleNewMember регистрирует участника или обновляет имя уже известного.
func (s *Service) HandleNewMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	existing, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrUserNotFound) {
		return err
	}
	if existing != nil {
		log.WithField("user_id", userID).Debug("Участник уже известен, обновляем данные")
		return s.repo.UpdateInfo(ctx, userID, UpdateInfo{
			Username:  username,
			FirstName: firstName,
			LastName:  lastName,
		})
	}

	member := &Member{
		UserID:    userID,
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		IsAdmin:   s.adminIDs[userID],
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return fmt.Errorf("ошибка регистрации нового участника: %w", err)
	}
	if member.IsAdmin {
		if err := s.repo.SetAdmin(ctx, userID, true); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"username": username,
	}).Info("Новый участник зарегистрирован")
	return nil
}

// EnsureMember гарантирует, что пользователь есть в базе.
// Вызывается на каждое сообщение в чате.
func (s *Service) EnsureMember(ctx context.Context, userID int64, username, firstName, lastName string) error {
	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return s.HandleNewMember(ctx, userID, username, firstName, lastName)
}

// IsMember проверяет, является ли пользователь участником чата.
// Используется для допуска в личные сообщения.
func (s *Service) IsMember(ctx context.Context, userID int64) (bool, error) {
	return s.repo.Exists(ctx, userID)
}

// GetByUserID возвращает участника по Telegram user ID.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Member, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetByUsername возвращает участника по @username (можно с @).
func (s *Service) GetByUsername(ctx context.Context, username string) (*Member, error) {
	return s.repo.GetByUsername(ctx, strings.TrimPrefix(username, "@"))
}

// Permissions возвращает права участника для VIP-уровней.
// Незарегистрированный пользователь прав не имеет.
func (s *Service) Permissions(ctx context.Context, userID int64) ([]string, error) {
	m, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, common.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m.Permissions(), nil
}

// Mention возвращает имя участника для шаблона {player}.
func (s *Service) Mention(ctx context.Context, userID int64) string {
	m, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return (&Member{UserID: userID}).Mention()
	}
	return m.Mention()
}

// AssignRole назначает роль. Пустая роль и роль длиннее 64 символов отклоняются.
func (s *Service) AssignRole(ctx context.Context, userID int64, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return fmt.Errorf("роль не может быть пустой")
	}
	if utf8.RuneCountInString(role) > MaxRoleLength {
		return common.ErrRoleTooLong
	}
	if err := s.repo.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": userID, "role": role}).Info("Роль назначена")
	return nil
}

// GetUsersWithoutRole возвращает участников без роли.
func (s *Service) GetUsersWithoutRole(ctx context.Context) ([]*Member, error) {
	return s.repo.GetUsersWithoutRole(ctx)
}

// GetUsersWithRole возвращает участников с ролью.
func (s *Service) GetUsersWithRole(ctx context.Context) ([]*Member, error) {
	return s.repo.GetUsersWithRole(ctx)
}

// GetAll возвращает всех активных участников.
func (s *Service) GetAll(ctx context.Context) ([]*Member, error) {
	return s.repo.GetAll(ctx)
}
