// analysis.go — обработчики CRUD записей анализа.
// GET/POST /api/v1/analysis, GET/PUT/DELETE /api/v1/analysis/{id}.
// Владелец определяется исключительно по sub верифицированного токена
// (middleware.SubjectFromContext), тело запроса на владение не влияет.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goanstore/analysis-module/internal/api/errors"
	"github.com/bigkaa/goanstore/analysis-module/internal/api/middleware"
	"github.com/bigkaa/goanstore/analysis-module/internal/service"
)

// createRecordRequest — тело POST /api/v1/analysis.
type createRecordRequest struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	MarkdownContent string   `json:"markdownContent"`
	InputContent    string   `json:"inputContent"`
	InputType       string   `json:"inputType"`
	OriginalURL     *string  `json:"originalUrl"`
	FileName        *string  `json:"fileName"`
}

// updateRecordRequest — тело PUT /api/v1/analysis/{id}.
// Разрешены только перечисленные поля: всё прочее в теле игнорируется
// при десериализации. nil — поле не передано.
type updateRecordRequest struct {
	Title           *string   `json:"title"`
	Summary         *string   `json:"summary"`
	Keywords        *[]string `json:"keywords"`
	MarkdownContent *string   `json:"markdownContent"`
}

// listRecordsResponse — ответ GET /api/v1/analysis.
type listRecordsResponse struct {
	Records    []recordResponse   `json:"records"`
	Pagination paginationResponse `json:"pagination"`
}

// recordEnvelope — ответ GET /api/v1/analysis/{id}.
type recordEnvelope struct {
	Record recordResponse `json:"record"`
}

// mutationResponse — ответ мутирующих операций.
type mutationResponse struct {
	Message string          `json:"message"`
	Record  *recordResponse `json:"record,omitempty"`
}

// ListRecords — GET /api/v1/analysis.
// Страница записей текущего владельца, новейшие первыми.
func (h *APIHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.SubjectFromContext(r.Context())
	page, limit := parsePagination(r)

	result, err := h.analysisService.List(r.Context(), ownerID, page, limit)
	if err != nil {
		h.writeServiceError(w, "получение списка записей", err)
		return
	}

	writeJSON(w, http.StatusOK, listRecordsResponse{
		Records: recordsToResponse(result.Records),
		Pagination: paginationResponse{
			Page:  result.Page,
			Limit: result.Limit,
			Total: result.Total,
			Pages: result.Pages,
		},
	})
}

// GetRecord — GET /api/v1/analysis/{id}.
func (h *APIHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")

	rec, err := h.analysisService.Get(r.Context(), ownerID, id)
	if err != nil {
		h.writeServiceError(w, "получение записи", err)
		return
	}

	writeJSON(w, http.StatusOK, recordEnvelope{Record: recordToResponse(rec)})
}

// CreateRecord — POST /api/v1/analysis.
func (h *APIHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.SubjectFromContext(r.Context())

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	rec, err := h.analysisService.Create(r.Context(), ownerID, service.CreateInput{
		Title:           req.Title,
		Summary:         req.Summary,
		Keywords:        req.Keywords,
		MarkdownContent: req.MarkdownContent,
		InputContent:    req.InputContent,
		InputType:       req.InputType,
		OriginalURL:     req.OriginalURL,
		FileName:        req.FileName,
	})
	if err != nil {
		h.writeServiceError(w, "создание записи", err)
		return
	}

	resp := recordToResponse(rec)
	writeJSON(w, http.StatusCreated, mutationResponse{
		Message: "Запись анализа сохранена",
		Record:  &resp,
	})
}

// UpdateRecord — PUT /api/v1/analysis/{id}.
// Частичное обновление: применяются только переданные непустые поля.
func (h *APIHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	rec, err := h.analysisService.Update(r.Context(), ownerID, id, service.UpdateInput{
		Title:           req.Title,
		Summary:         req.Summary,
		Keywords:        req.Keywords,
		MarkdownContent: req.MarkdownContent,
	})
	if err != nil {
		h.writeServiceError(w, "обновление записи", err)
		return
	}

	resp := recordToResponse(rec)
	writeJSON(w, http.StatusOK, mutationResponse{
		Message: "Запись анализа обновлена",
		Record:  &resp,
	})
}

// DeleteRecord — DELETE /api/v1/analysis/{id}.
func (h *APIHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.SubjectFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.analysisService.Delete(r.Context(), ownerID, id); err != nil {
		h.writeServiceError(w, "удаление записи", err)
		return
	}

	writeJSON(w, http.StatusOK, mutationResponse{Message: "Запись анализа удалена"})
}

// writeServiceError транслирует ошибку сервисного слоя в HTTP-ответ
// согласно таксономии: NotFound → 404, Validation → 400,
// Unavailable → 503, всё прочее → 500 без деталей.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Запись анализа не найдена")
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrUnavailable):
		apierrors.StorageUnavailable(w, "Хранилище записей временно недоступно, чтение возможно только из локальной копии клиента")
	default:
		h.logger.Error("Ошибка операции с записью",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
