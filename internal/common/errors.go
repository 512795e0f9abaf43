// Package common — errors.go определяет ошибки, общие для всех модулей.
// Транспорты (бот и HTTP) различают их через errors.Is и показывают
// пользователю понятный текст вместо внутренней ошибки.
package common

import "errors"

// Ошибки оценок и ленты
var (
	// ErrInvalidRating — оценка вне диапазона 1..10
	ErrInvalidRating = errors.New("оценка должна быть от 1 до 10")
	// ErrInvalidSource — неизвестный источник оценки
	ErrInvalidSource = errors.New("неизвестный источник оценки")
	// ErrPhotoNotFound — фотография не найдена или удалена
	ErrPhotoNotFound = errors.New("фотография не найдена")
	// ErrInvalidComment — пустой или слишком длинный комментарий
	ErrInvalidComment = errors.New("некорректный комментарий")
	// ErrInvalidModeration — неизвестный статус модерации
	ErrInvalidModeration = errors.New("неизвестный статус модерации")
)

// Ошибки экономики (кредиты, показы)
var (
	// ErrInvalidAmount — некорректная сумма (ноль или отрицательная)
	ErrInvalidAmount = errors.New("сумма должна быть положительной")
	// ErrUserNotFound — пользователь не найден в базе
	ErrUserNotFound = errors.New("пользователь не найден")
	// ErrInvalidDays — число дней премиума не положительное
	ErrInvalidDays = errors.New("число дней должно быть положительным")
)

// Ошибки настроек экономики
var (
	// ErrUnknownSetting — ключ настройки не существует
	ErrUnknownSetting = errors.New("неизвестная настройка")
	// ErrInvalidSetting — значение не парсится или вне допустимого диапазона
	ErrInvalidSetting = errors.New("некорректное значение настройки")
)

// Ошибки итогов
var (
	// ErrInvalidResultsKey — неизвестный период/скоуп или пустой ключ
	ErrInvalidResultsKey = errors.New("некорректный ключ итогов")
)

// Ошибки админки
var (
	// ErrNotAdmin — пользователь не является администратором
	ErrNotAdmin = errors.New("у вас нет прав администратора")
	// ErrWrongPassword — неверный пароль
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток входа
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите 1 час")
	// ErrSessionExpired — сессия истекла
	ErrSessionExpired = errors.New("сессия истекла, авторизуйтесь заново")
)
