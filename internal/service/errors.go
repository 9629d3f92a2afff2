// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — запись не найдена или принадлежит другому владельцу.
	// Оба случая неразличимы: существование чужой записи не раскрывается.
	ErrNotFound = errors.New("запись анализа не найдена")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrUnavailable — хранилище недоступно (сетевая ошибка, таймаут).
	ErrUnavailable = errors.New("хранилище недоступно")
)
