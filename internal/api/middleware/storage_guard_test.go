package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeChecker — мок StorageChecker с подсчётом вызовов.
type fakeChecker struct {
	status  string
	message string
	calls   int
}

func (f *fakeChecker) CheckReady() (string, string) {
	f.calls++
	return f.status, f.message
}

func guardRequest(guard *StorageGuard) *httptest.ResponseRecorder {
	handler := guard.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analysis", nil))
	return rec
}

// TestStorageGuard_Available проверяет пропуск запросов при доступном хранилище.
func TestStorageGuard_Available(t *testing.T) {
	checker := &fakeChecker{status: "ok"}
	guard := NewStorageGuard(checker, time.Minute, slog.Default())

	rec := guardRequest(guard)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, ожидался 200", rec.Code)
	}
}

// TestStorageGuard_Unavailable проверяет 503 при недоступном хранилище.
func TestStorageGuard_Unavailable(t *testing.T) {
	checker := &fakeChecker{status: "fail", message: "connection refused"}
	guard := NewStorageGuard(checker, time.Minute, slog.Default())

	rec := guardRequest(guard)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, ожидался 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "STORAGE_UNAVAILABLE") {
		t.Errorf("тело не содержит код STORAGE_UNAVAILABLE: %s", rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "локальной копии") {
		t.Errorf("тело не содержит подсказку о локальном режиме: %s", rec.Body.String())
	}
}

// TestStorageGuard_CachesResult проверяет кэширование результата на TTL.
func TestStorageGuard_CachesResult(t *testing.T) {
	checker := &fakeChecker{status: "ok"}
	guard := NewStorageGuard(checker, time.Minute, slog.Default())

	for i := 0; i < 5; i++ {
		guardRequest(guard)
	}
	if checker.calls != 1 {
		t.Errorf("CheckReady вызван %d раз, ожидался 1 (кэш на TTL)", checker.calls)
	}
}

// TestStorageGuard_TTLExpiry проверяет повторную проверку после истечения TTL.
func TestStorageGuard_TTLExpiry(t *testing.T) {
	checker := &fakeChecker{status: "fail"}
	guard := NewStorageGuard(checker, 10*time.Millisecond, slog.Default())

	guardRequest(guard)
	if checker.calls != 1 {
		t.Fatalf("CheckReady вызван %d раз, ожидался 1", checker.calls)
	}

	// Хранилище восстановилось — после TTL гейт должен это увидеть
	checker.status = "ok"
	time.Sleep(20 * time.Millisecond)

	rec := guardRequest(guard)
	if checker.calls != 2 {
		t.Errorf("CheckReady вызван %d раз, ожидался 2 после истечения TTL", checker.calls)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, ожидался 200 после восстановления", rec.Code)
	}
}
