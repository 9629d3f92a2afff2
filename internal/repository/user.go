package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UserRepository — доступ к таблице users.
// Analysis Module не управляет пользователями: таблица наполняется
// внешним сервисом аутентификации, здесь — только разрешение subject.
type UserRepository interface {
	// Exists проверяет, что пользователь с указанным UUID существует.
	// Используется Credential Verifier'ом: токен с subject удалённого
	// аккаунта отклоняется.
	Exists(ctx context.Context, userID string) (bool, error)
}

// userRepo — реализация UserRepository через pgx.
type userRepo struct {
	db DBTX
}

// NewUserRepository создаёт репозиторий пользователей.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Exists(ctx context.Context, userID string) (bool, error) {
	// Не-UUID subject гарантированно не существует; без проверки
	// сравнение с колонкой uuid завершилось бы ошибкой типа.
	if _, err := uuid.Parse(userID); err != nil {
		return false, nil
	}

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	if err := r.db.QueryRow(ctx, query, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("ошибка проверки пользователя: %w", err)
	}
	return exists, nil
}
