package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"serotonyl.ru/rewards-bot/internal/common"
)

const sqliteDateLayout = "2006-01-02"

// SQLiteRepository хранит прогресс в локальном файле SQLite.
// Подходит для одного инстанса бота без PostgreSQL.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository создаёт репозиторий поверх открытой базы (см. db/sqlite).
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SQLiteMigration — DDL таблицы прогресса для SQLite.
const SQLiteMigration = `
CREATE TABLE IF NOT EXISTS player_progress (
    user_id               INTEGER PRIMARY KEY,
    current_day           INTEGER NOT NULL DEFAULT 1,
    streak                INTEGER NOT NULL DEFAULT 0,
    longest_streak        INTEGER NOT NULL DEFAULT 0,
    last_login_date       TEXT,
    last_claim_date       TEXT,
    claimed_days          TEXT NOT NULL DEFAULT '',
    total_claimed         INTEGER NOT NULL DEFAULT 0,
    pending_return_reward INTEGER NOT NULL DEFAULT 0,
    absence_days          INTEGER NOT NULL DEFAULT 0,
    updated_at            INTEGER NOT NULL
)`

const sqliteSelect = `
	SELECT user_id, current_day, streak, longest_streak, last_login_date, last_claim_date,
	       claimed_days, total_claimed, pending_return_reward, absence_days, updated_at
	FROM player_progress`

// Get возвращает прогресс игрока.
func (r *SQLiteRepository) Get(ctx context.Context, userID int64) (*Record, error) {
	row := r.db.QueryRowContext(ctx, sqliteSelect+` WHERE user_id = ?`, userID)
	rec, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("прогресс не прочитан (user_id=%d): %w", userID, err)
	}
	return rec, nil
}

// Upsert сохраняет запись целиком.
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO player_progress (user_id, current_day, streak, longest_streak,
		       last_login_date, last_claim_date, claimed_days, total_claimed,
		       pending_return_reward, absence_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		    current_day = excluded.current_day,
		    streak = excluded.streak,
		    longest_streak = excluded.longest_streak,
		    last_login_date = excluded.last_login_date,
		    last_claim_date = excluded.last_claim_date,
		    claimed_days = excluded.claimed_days,
		    total_claimed = excluded.total_claimed,
		    pending_return_reward = excluded.pending_return_reward,
		    absence_days = excluded.absence_days,
		    updated_at = excluded.updated_at`,
		rec.UserID, rec.CurrentDay, rec.Streak, rec.LongestStreak,
		formatDate(rec.LastLoginDate), formatDate(rec.LastClaimDate),
		joinDays(rec.ClaimedDays), rec.TotalClaimed,
		rec.PendingReturnReward, rec.AbsenceDays, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("ошибка сохранения прогресса (user_id=%d): %w", rec.UserID, err)
	}
	return nil
}

// Delete удаляет прогресс игрока.
func (r *SQLiteRepository) Delete(ctx context.Context, userID int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM player_progress WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("ошибка удаления прогресса: %w", err)
	}
	return nil
}

// List возвращает все записи.
func (r *SQLiteRepository) List(ctx context.Context) ([]*Record, error) {
	rows, err := r.db.QueryContext(ctx, sqliteSelect+` ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения прогресса: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner) (*Record, error) {
	var (
		rec                  Record
		lastLogin, lastClaim sql.NullString
		claimed              string
		updatedAt            int64
	)
	err := row.Scan(
		&rec.UserID, &rec.CurrentDay, &rec.Streak, &rec.LongestStreak,
		&lastLogin, &lastClaim, &claimed, &rec.TotalClaimed,
		&rec.PendingReturnReward, &rec.AbsenceDays, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.LastLoginDate, err = parseDate(lastLogin); err != nil {
		return nil, err
	}
	if rec.LastClaimDate, err = parseDate(lastClaim); err != nil {
		return nil, err
	}
	if rec.ClaimedDays, err = splitDays(claimed); err != nil {
		return nil, err
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return &rec, nil
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(sqliteDateLayout)
}

func parseDate(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteDateLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("некорректная дата %q: %w", s.String, err)
	}
	return &t, nil
}

// joinDays кодирует множество дней как "1,2,5".
func joinDays(s DaySet) string {
	days := s.Sorted()
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func splitDays(s string) (DaySet, error) {
	out := make(DaySet)
	if s == "" {
		return out, nil
	}
	for _, p := range strings.Split(s, ",") {
		d, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("некорректный день %q: %w", p, err)
		}
		out.Add(d)
	}
	return out, nil
}
