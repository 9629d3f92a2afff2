// storage_guard.go — middleware, закрывающий операции с записями,
// когда PostgreSQL недоступен. Вместо ошибки на глубине стека вызывающий
// получает немедленный 503 с подсказкой о локальном режиме клиента.
//
// Результат проверки кэшируется на StorageGuardTTL: ping на каждый запрос
// превратил бы health check в источник нагрузки на умирающую базу.
package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	apierrors "github.com/bigkaa/goanstore/analysis-module/internal/api/errors"
)

// storageUnavailableMessage — текст 503 для операций с записями.
// Подсказка о локальном хранилище — контракт с клиентской библиотекой:
// по этому коду клиент переключает чтение на локальную копию.
const storageUnavailableMessage = "Хранилище записей временно недоступно, чтение возможно только из локальной копии клиента"

// StorageChecker проверяет готовность хранилища.
// Реализуется database.ReadinessChecker.
type StorageChecker interface {
	CheckReady() (status, message string)
}

// StorageGuard — middleware-гейт доступности хранилища.
type StorageGuard struct {
	checker StorageChecker
	ttl     time.Duration
	logger  *slog.Logger

	mu        sync.Mutex
	lastCheck time.Time
	lastOK    bool
}

// NewStorageGuard создаёт гейт с кэшированием результата проверки на ttl.
func NewStorageGuard(checker StorageChecker, ttl time.Duration, logger *slog.Logger) *StorageGuard {
	return &StorageGuard{
		checker: checker,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "storage_guard")),
	}
}

// ready возвращает кэшированный результат проверки хранилища,
// обновляя его по истечении TTL.
func (g *StorageGuard) ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if time.Since(g.lastCheck) < g.ttl {
		return g.lastOK
	}

	status, message := g.checker.CheckReady()
	ok := status == "ok"
	if !ok {
		g.logger.Warn("Хранилище не прошло проверку готовности",
			slog.String("status", status),
			slog.String("message", message),
		)
	}

	g.lastCheck = time.Now()
	g.lastOK = ok
	return ok
}

// Middleware возвращает HTTP middleware: при недоступном хранилище
// запрос завершается 503 до обращения к БД.
func (g *StorageGuard) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.ready() {
				apierrors.StorageUnavailable(w, storageUnavailableMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
