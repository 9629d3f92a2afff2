// handler.go — основной обработчик API модуля анализа.
// Объединяет health и бизнес-обработчики, содержит общие хелперы
// сериализации и пагинации.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bigkaa/goanstore/analysis-module/internal/analyzer"
	"github.com/bigkaa/goanstore/analysis-module/internal/domain/model"
	"github.com/bigkaa/goanstore/analysis-module/internal/service"
)

// APIHandler — основной обработчик API модуля анализа.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	analysisService *service.AnalysisService
	analyzer        *analyzer.Analyzer
	health          *HealthHandler
	logger          *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
// an может быть nil — тогда POST /api/v1/analyze отвечает 503.
func NewAPIHandler(
	analysisService *service.AnalysisService,
	an *analyzer.Analyzer,
	health *HealthHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		analysisService: analysisService,
		analyzer:        an,
		health:          health,
		logger:          logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — liveness probe.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- API-типы записей анализа ---

// recordResponse — представление записи анализа во внешнем контракте (camelCase).
type recordResponse struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Keywords        []string  `json:"keywords"`
	MarkdownContent string    `json:"markdownContent"`
	InputContent    string    `json:"inputContent"`
	InputType       string    `json:"inputType"`
	OriginalURL     *string   `json:"originalUrl,omitempty"`
	FileName        *string   `json:"fileName,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// paginationResponse — метаданные пагинации списка записей.
type paginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// recordToResponse конвертирует domain-модель в API-тип.
// owner_id во внешний контракт не попадает: идентичность владельца
// определяется токеном, а не телом ответа.
func recordToResponse(rec *model.AnalysisRecord) recordResponse {
	keywords := rec.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return recordResponse{
		ID:              rec.ID,
		Title:           rec.Title,
		Summary:         rec.Summary,
		Keywords:        keywords,
		MarkdownContent: rec.MarkdownContent,
		InputContent:    rec.InputContent,
		InputType:       rec.InputType,
		OriginalURL:     rec.OriginalURL,
		FileName:        rec.FileName,
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

// recordsToResponse конвертирует страницу записей в API-типы.
func recordsToResponse(records []*model.AnalysisRecord) []recordResponse {
	items := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, recordToResponse(rec))
	}
	return items
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// parsePagination извлекает page и limit из query-параметров.
// Нечисловые и выходящие за границы значения нормализуются
// (service.NormalizePage), не отклоняются.
func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = service.DefaultPageLimit

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	return service.NormalizePage(page, limit)
}
