// analyze.go — обработчик POST /api/v1/analyze.
// Анализ контента через OpenAI без аутентификации: результат не
// сохраняется, сохранение — отдельный шаг через POST /api/v1/analysis
// уже с токеном.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/goanstore/analysis-module/internal/api/errors"
	"github.com/bigkaa/goanstore/analysis-module/internal/domain/model"
)

// analyzeRequest — тело POST /api/v1/analyze.
type analyzeRequest struct {
	Content   string `json:"content"`
	InputType string `json:"inputType"`
}

// analyzeResponse — результат анализа (не сохранён).
type analyzeResponse struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	Sentiment       string   `json:"sentiment"`
	MarkdownContent string   `json:"markdownContent"`
}

// AnalyzeContent — POST /api/v1/analyze.
func (h *APIHandler) AnalyzeContent(w http.ResponseWriter, r *http.Request) {
	if !h.analyzer.Enabled() {
		apierrors.AnalyzerDisabled(w, "Анализ контента не сконфигурирован на сервере")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON в теле запроса")
		return
	}

	if strings.TrimSpace(req.Content) == "" {
		apierrors.ValidationError(w, "Поле content обязательно")
		return
	}
	if req.InputType == "" {
		req.InputType = model.InputTypeText
	}
	if !model.ValidInputType(req.InputType) {
		apierrors.ValidationError(w, "Недопустимый inputType, допустимые: text, url, file")
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), req.Content, req.InputType)
	if err != nil {
		h.logger.Error("Ошибка анализа контента",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Анализ контента не выполнен")
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Title:           result.Title,
		Summary:         result.Summary,
		Keywords:        result.Keywords,
		Sentiment:       result.Sentiment,
		MarkdownContent: result.MarkdownContent,
	})
}
