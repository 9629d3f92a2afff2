// selector.go — маршрутизация операций между серверным и локальным
// хранилищем по состоянию аутентификации.
//
// Правила:
//   - без аутентификации все операции идут в локальное хранилище;
//   - с аутентификацией операции идут на сервер;
//   - чтения (Get, List) при недоступном сервере возвращают локальную
//     копию — режим read-only fallback;
//   - мутации (Create, Update, Delete) на локальную копию НЕ
//     переключаются: расхождение двух хранилищ хуже отказа.
//   - записи с локальным id всегда обслуживаются локально, независимо
//     от состояния аутентификации.
package anclient

import (
	"context"
	"errors"
	"log/slog"
)

// AuthState сообщает текущее состояние аутентификации пользователя.
type AuthState func() bool

// Selector — Store, выбирающий между Remote и Local.
type Selector struct {
	remote Store
	local  Store
	authed AuthState
	logger *slog.Logger
}

// NewSelector создаёт маршрутизатор хранилищ.
func NewSelector(remote, local Store, authed AuthState, logger *slog.Logger) *Selector {
	return &Selector{
		remote: remote,
		local:  local,
		authed: authed,
		logger: logger.With(slog.String("component", "anclient_selector")),
	}
}

// Create сохраняет запись: на сервере при аутентификации, иначе локально.
// На локальную копию при недоступном сервере не переключается.
func (s *Selector) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	if s.authed() {
		return s.remote.Create(ctx, req)
	}
	return s.local.Create(ctx, req)
}

// Get возвращает запись. При недоступном сервере аутентифицированное
// чтение обслуживается локальной копией (если запись там есть).
func (s *Selector) Get(ctx context.Context, id string) (*Record, error) {
	if IsLocalID(id) {
		return s.local.Get(ctx, id)
	}
	if !s.authed() {
		return s.local.Get(ctx, id)
	}

	rec, err := s.remote.Get(ctx, id)
	if err != nil && errors.Is(err, ErrUnavailable) {
		s.logger.Warn("Сервер недоступен, чтение из локальной копии",
			slog.String("record_id", id),
		)
		return s.local.Get(ctx, id)
	}
	return rec, err
}

// List возвращает страницу записей с тем же fallback-правилом, что и Get.
func (s *Selector) List(ctx context.Context, page, limit int) (*Page, error) {
	if !s.authed() {
		return s.local.List(ctx, page, limit)
	}

	result, err := s.remote.List(ctx, page, limit)
	if err != nil && errors.Is(err, ErrUnavailable) {
		s.logger.Warn("Сервер недоступен, список из локальной копии")
		return s.local.List(ctx, page, limit)
	}
	return result, err
}

// Update обновляет запись. Мутации при недоступном сервере не
// переключаются на локальную копию — ошибка возвращается вызывающему.
func (s *Selector) Update(ctx context.Context, id string, req UpdateRequest) (*Record, error) {
	if IsLocalID(id) {
		return s.local.Update(ctx, id, req)
	}
	if s.authed() {
		return s.remote.Update(ctx, id, req)
	}
	return s.local.Update(ctx, id, req)
}

// Delete удаляет запись по тем же правилам, что и Update.
func (s *Selector) Delete(ctx context.Context, id string) error {
	if IsLocalID(id) {
		return s.local.Delete(ctx, id)
	}
	if s.authed() {
		return s.remote.Delete(ctx, id)
	}
	return s.local.Delete(ctx, id)
}
