package inventory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository хранит инвентарь в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий инвентаря.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Add добавляет count предметов itemID.
func (r *Repository) Add(ctx context.Context, userID int64, itemID string, count int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO inventory (user_id, item_id, count) VALUES ($1, $2, $3)
		ON CONFLICT (user_id, item_id) DO UPDATE
		SET count = inventory.count + EXCLUDED.count, updated_at = NOW()
	`, userID, itemID, count)
	if err != nil {
		return fmt.Errorf("ошибка выдачи предмета %q: %w", itemID, err)
	}
	return nil
}

// List возвращает предметы участника по алфавиту.
func (r *Repository) List(ctx context.Context, userID int64) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT item_id, count FROM inventory WHERE user_id = $1 ORDER BY item_id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения инвентаря: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.Count); err != nil {
			return nil, fmt.Errorf("ошибка сканирования предмета: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
