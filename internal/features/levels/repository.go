package levels

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository хранит опыт в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий опыта.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Ping проверяет соединение с БД.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Add прибавляет опыт и возвращает новое значение.
func (r *Repository) Add(ctx context.Context, userID, xp int64) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO experience (user_id, xp) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET xp = experience.xp + EXCLUDED.xp, updated_at = NOW()
		RETURNING xp
	`, userID, xp).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления опыта: %w", err)
	}
	return total, nil
}

// Get возвращает опыт участника. Нет записи — ноль.
func (r *Repository) Get(ctx context.Context, userID int64) (int64, error) {
	var xp int64
	err := r.db.QueryRow(ctx, `SELECT xp FROM experience WHERE user_id = $1`, userID).Scan(&xp)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения опыта: %w", err)
	}
	return xp, nil
}
