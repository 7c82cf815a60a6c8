package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// debounceDelay — редакторы пишут файл в несколько приёмов, ждём, пока всё уляжется.
const debounceDelay = time.Second

// WatchRewards следит за rewards.toml и вызывает onChange после каждого изменения.
// Следим за каталогом, а не за файлом: многие редакторы сохраняют через rename.
// Блокируется до отмены ctx.
func WatchRewards(ctx context.Context, path string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("не удалось создать watcher: %w", err)
	}
	defer watcher.Close()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("не удалось получить абсолютный путь: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("не удалось следить за %s: %w", absPath, err)
	}

	log.WithField("path", absPath).Info("Слежение за файлом наград запущено")

	timer := time.NewTimer(debounceDelay)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounceDelay)

		case <-timer.C:
			log.WithField("path", absPath).Info("Файл наград изменён, перечитываем")
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Error("Ошибка слежения за файлом наград")
		}
	}
}
