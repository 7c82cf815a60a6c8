// Package progress — repository.go выполняет операции с таблицей player_progress.
package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/rewards-bot/internal/common"
)

// Repository — долговременное хранилище записей прогресса.
type Repository interface {
	// Get возвращает запись или common.ErrProgressNotFound.
	Get(ctx context.Context, userID int64) (*Record, error)
	// Upsert создаёт или полностью перезаписывает запись.
	Upsert(ctx context.Context, r *Record) error
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]*Record, error)
}

// PostgresRepository хранит прогресс в PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository создаёт репозиторий прогресса.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectProgress = `
	SELECT user_id, current_day, streak, longest_streak, last_login_date, last_claim_date,
	       claimed_days, total_claimed, pending_return_reward, absence_days, updated_at
	FROM player_progress
`

// Get возвращает прогресс игрока.
func (r *PostgresRepository) Get(ctx context.Context, userID int64) (*Record, error) {
	row := r.db.QueryRow(ctx, selectProgress+` WHERE user_id = $1`, userID)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("прогресс не прочитан (user_id=%d): %w", userID, err)
	}
	return rec, nil
}

// Upsert сохраняет запись целиком.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO player_progress (user_id, current_day, streak, longest_streak,
		                             last_login_date, last_claim_date, claimed_days, total_claimed,
		                             pending_return_reward, absence_days, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET current_day = EXCLUDED.current_day,
		    streak = EXCLUDED.streak,
		    longest_streak = EXCLUDED.longest_streak,
		    last_login_date = EXCLUDED.last_login_date,
		    last_claim_date = EXCLUDED.last_claim_date,
		    claimed_days = EXCLUDED.claimed_days,
		    total_claimed = EXCLUDED.total_claimed,
		    pending_return_reward = EXCLUDED.pending_return_reward,
		    absence_days = EXCLUDED.absence_days,
		    updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		rec.UserID, rec.CurrentDay, rec.Streak, rec.LongestStreak,
		rec.LastLoginDate, rec.LastClaimDate, toInt32s(rec.ClaimedDays), rec.TotalClaimed,
		rec.PendingReturnReward, rec.AbsenceDays,
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения прогресса (user_id=%d): %w", rec.UserID, err)
	}
	return nil
}

// Delete удаляет прогресс игрока.
func (r *PostgresRepository) Delete(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM player_progress WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("ошибка удаления прогресса: %w", err)
	}
	return nil
}

// List возвращает все записи. Используется админской статистикой.
func (r *PostgresRepository) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.Query(ctx, selectProgress+` ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения прогресса: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec     Record
		claimed []int32
	)
	err := row.Scan(
		&rec.UserID, &rec.CurrentDay, &rec.Streak, &rec.LongestStreak,
		&rec.LastLoginDate, &rec.LastClaimDate, &claimed, &rec.TotalClaimed,
		&rec.PendingReturnReward, &rec.AbsenceDays, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.ClaimedDays = make(DaySet, len(claimed))
	for _, d := range claimed {
		rec.ClaimedDays.Add(int(d))
	}
	rec.LastLoginDate = dateOrNil(rec.LastLoginDate)
	rec.LastClaimDate = dateOrNil(rec.LastClaimDate)
	return &rec, nil
}

func toInt32s(s DaySet) []int32 {
	days := s.Sorted()
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

// dateOrNil приводит DATE из БД к полуночи UTC.
func dateOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := common.DateOnly(*t)
	return &d
}

// Migration — DDL таблицы прогресса для PostgreSQL.
const Migration = `
CREATE TABLE IF NOT EXISTS player_progress (
    user_id BIGINT PRIMARY KEY,
    current_day INTEGER NOT NULL DEFAULT 1,
    streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_login_date DATE,
    last_claim_date DATE,
    claimed_days INTEGER[] NOT NULL DEFAULT '{}',
    total_claimed INTEGER NOT NULL DEFAULT 0,
    pending_return_reward BOOLEAN NOT NULL DEFAULT FALSE,
    absence_days INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_player_progress_updated_at ON player_progress(updated_at DESC);
`
