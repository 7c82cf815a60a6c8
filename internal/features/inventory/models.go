// Package inventory хранит предметы, выданные участникам наградами.
package inventory

import (
	"fmt"
	"strconv"
	"strings"

	"serotonyl.ru/rewards-bot/internal/common"
)

// Item — предмет и его количество.
type Item struct {
	ID    string `db:"item_id"`
	Count int    `db:"count"`
}

// ParseItem разбирает строку предмета из rewards.toml.
// Формат "id:count": количество берётся из последней части, если это число,
// иначе количество 1 и вся строка — идентификатор.
//
//	"сундук:3"        → сундук ×3
//	"ключ:редкий"     → "ключ:редкий" ×1
//	"mod:меч:2"       → "mod:меч" ×2
func ParseItem(s string) (Item, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Item{}, fmt.Errorf("%w: пустая строка", common.ErrBadItem)
	}

	item := Item{ID: s, Count: 1}
	if i := strings.LastIndex(s, ":"); i >= 0 {
		if n, err := strconv.Atoi(strings.TrimSpace(s[i+1:])); err == nil {
			item.ID = strings.TrimSpace(s[:i])
			item.Count = n
		}
	}

	if item.ID == "" {
		return Item{}, fmt.Errorf("%w: %q без идентификатора", common.ErrBadItem, s)
	}
	if item.Count < 1 {
		return Item{}, fmt.Errorf("%w: %q, количество должно быть больше нуля", common.ErrBadItem, s)
	}
	return item, nil
}

// Migration — DDL таблицы инвентаря.
const Migration = `
CREATE TABLE IF NOT EXISTS inventory (
    user_id BIGINT NOT NULL,
    item_id VARCHAR(128) NOT NULL,
    count INTEGER NOT NULL CHECK (count > 0),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, item_id)
);
`
