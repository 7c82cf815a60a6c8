// Package admin реализует админ-панель с парольной аутентификацией.
// models.go описывает структуры сессий, попыток входа и состояния диалога.
package admin

import "time"

// AdminSession — активная сессия администратора.
type AdminSession struct {
	ID              int64     `db:"id"`
	UserID          int64     `db:"user_id"`
	SessionToken    string    `db:"session_token"`
	AuthenticatedAt time.Time `db:"authenticated_at"`
	ExpiresAt       time.Time `db:"expires_at"`
	LastActivity    time.Time `db:"last_activity"`
	IsActive        bool      `db:"is_active"`
}

// LoginAttempt — попытка входа (для защиты от brute-force).
type LoginAttempt struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// AdminState — состояние диалога с админом (конечный автомат).
// Панель работает по шагам: выбор действия → выбор участника → ввод роли или подтверждение.
type AdminState struct {
	State     string // Текущее состояние
	Data      any    // Список участников или выбранный участник
	ExpiresAt time.Time
}

// Возможные состояния админ-диалога
const (
	StateNone             = ""
	StateAwaitingPassword = "awaiting_password"
	StateAssignRoleSelect = "assign_role_select" // Ждём номер участника без роли
	StateAssignRoleText   = "assign_role_text"
	StateChangeRoleSelect = "change_role_select" // Ждём номер участника с ролью
	StateChangeRoleText   = "change_role_text"
	StateResetSelect      = "reset_select"
	StateResetConfirm     = "reset_confirm"
	StateDeleteSelect     = "delete_select"
	StateDeleteConfirm    = "delete_confirm"
	StateStatsSelect      = "stats_select"
)

// Кнопки клавиатуры админ-панели
const (
	ButtonAssignRole = "Назначить роль"
	ButtonChangeRole = "Сменить роль"
	ButtonReset      = "Сбросить прогресс"
	ButtonDelete     = "Удалить прогресс"
	ButtonReload     = "Перезагрузить награды"
	ButtonStats      = "Статистика"
	ButtonClose      = "Закрыть панель"
)

// Параметры сессий и защиты от перебора
const (
	sessionTTL       = 24 * time.Hour
	stateTTL         = 5 * time.Minute
	maxFailedLogins  = 3
	failedLoginsSpan = time.Hour
)

// Migration — DDL таблиц админки.
const Migration = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    session_token VARCHAR(128) NOT NULL UNIQUE,
    authenticated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMP NOT NULL,
    last_activity TIMESTAMP NOT NULL DEFAULT NOW(),
    is_active BOOLEAN NOT NULL DEFAULT TRUE
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_user ON admin_sessions(user_id, is_active);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    attempt_time TIMESTAMP NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_login_attempts_user ON admin_login_attempts(user_id, attempt_time DESC);
`
