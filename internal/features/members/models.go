// Package members управляет участниками чата: регистрация, роли, права.
// models.go описывает структуру записи в таблице members.
package members

import (
	"strconv"
	"time"
)

// MaxRoleLength — максимальная длина роли в символах.
const MaxRoleLength = 64

// PermissionAdmin — право, которое получают администраторы (для VIP-уровней).
const PermissionAdmin = "admin"

// Member представляет участника чата в базе данных.
// Каждый пользователь, написавший в FLOOD_CHAT_ID, автоматически
// попадает в эту таблицу.
type Member struct {
	ID        int64     `db:"id"`         // Внутренний ID записи
	UserID    int64     `db:"user_id"`    // Telegram user ID (уникальный)
	Username  string    `db:"username"`   // @username (может быть пустым)
	FirstName string    `db:"first_name"` // Имя
	LastName  string    `db:"last_name"`  // Фамилия (может быть пустой)
	Role      *string   `db:"role"`       // Роль, она же VIP-право (до 64 символов, может быть nil)
	IsAdmin   bool      `db:"is_admin"`
	IsBanned  bool      `db:"is_banned"`
	JoinedAt  time.Time `db:"joined_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// UpdateInfo содержит данные для обновления имени и username.
type UpdateInfo struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName возвращает отображаемое имя: @username или имя с фамилией.
func (m *Member) DisplayName() string {
	if m.Username != "" {
		return "@" + m.Username
	}
	name := m.FirstName
	if m.LastName != "" {
		name += " " + m.LastName
	}
	return name
}

// Mention возвращает имя для подстановки в команды наград:
// @username, иначе имя, иначе числовой ID.
func (m *Member) Mention() string {
	switch {
	case m.Username != "":
		return "@" + m.Username
	case m.FirstName != "":
		return m.FirstName
	default:
		return strconv.FormatInt(m.UserID, 10)
	}
}

// Permissions возвращает права участника: роль и "admin" для администраторов.
func (m *Member) Permissions() []string {
	var perms []string
	if m.Role != nil && *m.Role != "" {
		perms = append(perms, *m.Role)
	}
	if m.IsAdmin {
		perms = append(perms, PermissionAdmin)
	}
	return perms
}

// Migration — DDL таблицы участников.
const Migration = `
CREATE TABLE IF NOT EXISTS members (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT UNIQUE NOT NULL,
    username VARCHAR(64) NOT NULL DEFAULT '',
    first_name VARCHAR(128) NOT NULL DEFAULT '',
    last_name VARCHAR(128) NOT NULL DEFAULT '',
    role VARCHAR(64),
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    is_banned BOOLEAN NOT NULL DEFAULT FALSE,
    joined_at TIMESTAMP NOT NULL DEFAULT NOW(),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_username ON members(LOWER(username));
`
