// Package levels ведёт опыт участников и считает по нему уровень.
package levels

import "time"

// Experience — опыт участника.
type Experience struct {
	UserID    int64     `db:"user_id"`
	XP        int64     `db:"xp"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Progress — уровень и прогресс до следующего.
type Progress struct {
	Level int
	XP    int64 // Всего опыта
	Into  int64 // Опыта набрано на текущем уровне
	Need  int64 // Сколько нужно на текущем уровне до следующего
}

// xpPerLevel — уровень n → n+1 стоит n*xpPerLevel опыта.
const xpPerLevel = 100

// ProgressFor раскладывает опыт по уровням. Уровни начинаются с 1.
//
//	ProgressFor(0)   → уровень 1, 0/100
//	ProgressFor(250) → уровень 2, 150/200
func ProgressFor(xp int64) Progress {
	if xp < 0 {
		xp = 0
	}
	p := Progress{Level: 1, XP: xp}
	rest := xp
	for {
		need := int64(p.Level) * xpPerLevel
		if rest < need {
			p.Into = rest
			p.Need = need
			return p
		}
		rest -= need
		p.Level++
	}
}

// Migration — DDL таблицы опыта.
const Migration = `
CREATE TABLE IF NOT EXISTS experience (
    user_id BIGINT PRIMARY KEY,
    xp BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);
`
