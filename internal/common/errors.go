// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Обработчики сравнивают их через errors.Is и отвечают пользователю понятным текстом.
package common

import "errors"

// Ошибки прогресса наград
var (
	// ErrProgressNotFound — у игрока ещё нет записи прогресса
	ErrProgressNotFound = errors.New("прогресс игрока не найден")
	// ErrRewardsConfig — файл наград не удалось прочитать или разобрать
	ErrRewardsConfig = errors.New("ошибка конфигурации наград")
	// ErrUnknownPlayer — игрок не найден среди участников
	ErrUnknownPlayer = errors.New("игрок не найден")
)

// Ошибки экономики (пленки)
var (
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — у пользователя нет баланса
	ErrUserNotFound = errors.New("пользователь не найден")
)

// Ошибки провайдеров выдачи наград
var (
	// ErrNoProvider — ни один провайдер не доступен
	ErrNoProvider = errors.New("нет доступного провайдера")
	// ErrProviderUnavailable — выбранный провайдер сейчас недоступен
	ErrProviderUnavailable = errors.New("провайдер недоступен")
	// ErrBadItem — строка предмета не разобрана
	ErrBadItem = errors.New("некорректный предмет")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrRoleTooLong — роль длиннее 64 символов
	ErrRoleTooLong = errors.New("роль слишком длинная (максимум 64 символа)")
)
