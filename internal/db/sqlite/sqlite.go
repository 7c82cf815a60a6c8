// Package sqlite открывает локальную базу SQLite для хранения прогресса
// без PostgreSQL (один инстанс бота, тесты).
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // драйвер на чистом Go, без CGO
)

// Open создаёт или открывает базу по пути path и применяет миграции по порядку.
// Включает WAL и busy timeout 5 секунд.
func Open(path string, migrations ...string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("не удалось создать каталог данных: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// SQLite — один писатель
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			db.Close()
			return nil, fmt.Errorf("миграция sqlite %d: %w", i+1, err)
		}
	}

	log.WithField("path", path).Info("SQLite открыта")
	return db, nil
}
