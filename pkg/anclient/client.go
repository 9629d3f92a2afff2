// Пакет anclient — клиентская библиотека записей анализа.
// Три уровня:
//   - Remote — HTTP-клиент серверного API (/api/v1/analysis);
//   - Local — локальное файловое хранилище на случай работы без
//     аутентификации или недоступности сервера;
//   - Selector — маршрутизация операций между ними по состоянию
//     аутентификации, с read-only fallback на локальную копию.
package anclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Ошибки клиентской библиотеки. Remote транслирует в них статусы API,
// Selector принимает по ним решение о fallback.
var (
	// ErrUnauthenticated — запрос отклонён сервером как неаутентифицированный (401).
	ErrUnauthenticated = errors.New("требуется аутентификация")
	// ErrNotFound — запись не существует или принадлежит другому владельцу (404).
	ErrNotFound = errors.New("запись не найдена")
	// ErrValidation — сервер отклонил входные данные (400).
	ErrValidation = errors.New("некорректные входные данные")
	// ErrUnavailable — сервер или его хранилище недоступны (503, сетевые ошибки).
	ErrUnavailable = errors.New("сервер недоступен")
)

// TokenProvider — функция, возвращающая JWT для авторизации запросов.
// Пустая строка без ошибки означает «токена нет» (не аутентифицирован).
type TokenProvider func(ctx context.Context) (string, error)

// Record — запись анализа во внешнем контракте API (camelCase).
type Record struct {
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

// CreateRequest — данные создания записи.
type CreateRequest struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	MarkdownContent string   `json:"markdownContent"`
	InputContent    string   `json:"inputContent"`
	InputType       string   `json:"inputType"`
	OriginalURL     *string  `json:"originalUrl,omitempty"`
	FileName        *string  `json:"fileName,omitempty"`
}

// UpdateRequest — частичное обновление. nil — поле не передаётся.
type UpdateRequest struct {
	Title           *string   `json:"title,omitempty"`
	Summary         *string   `json:"summary,omitempty"`
	Keywords        *[]string `json:"keywords,omitempty"`
	MarkdownContent *string   `json:"markdownContent,omitempty"`
}

// Pagination — метаданные страницы списка.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// Page — страница записей.
type Page struct {
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}

// Store — операции над записями анализа.
// Реализуется Remote, Local и Selector.
type Store interface {
	Create(ctx context.Context, req CreateRequest) (*Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, page, limit int) (*Page, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Record, error)
	Delete(ctx context.Context, id string) error
}

// Remote — HTTP-клиент серверного API записей анализа.
type Remote struct {
	baseURL       string
	httpClient    *http.Client
	tokenProvider TokenProvider
	logger        *slog.Logger
}

// NewRemote создаёт клиент серверного API.
// baseURL — адрес модуля анализа (trailing slash отбрасывается).
// tokenProvider — источник JWT (nil — запросы уходят без Authorization).
func NewRemote(baseURL string, tokenProvider TokenProvider, logger *slog.Logger) *Remote {
	return &Remote{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		tokenProvider: tokenProvider,
		logger:        logger.With(slog.String("component", "anclient_remote")),
	}
}

// errorEnvelope — формат тела ошибки API.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// mutationEnvelope — ответ мутирующих операций API.
type mutationEnvelope struct {
	Message string  `json:"message"`
	Record  *Record `json:"record"`
}

// recordEnvelope — ответ GET одной записи.
type recordEnvelope struct {
	Record Record `json:"record"`
}

// do выполняет запрос к API: авторизация, сериализация тела,
// трансляция статусов в ошибки библиотеки. Сетевые ошибки —
// ErrUnavailable: с точки зрения вызывающего сервер недоступен.
func (c *Remote) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("сериализация тела запроса: %w", err)
		}
		reqBody = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.tokenProvider != nil {
		token, err := c.tokenProvider(ctx)
		if err != nil {
			return fmt.Errorf("получение токена: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("Сервер недоступен",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.statusError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("декодирование ответа: %w", err)
		}
	}
	return nil
}

// statusError транслирует HTTP-статус ошибки в ошибку библиотеки.
func (c *Remote) statusError(resp *http.Response) error {
	var envelope errorEnvelope
	message := ""
	if body, err := io.ReadAll(resp.Body); err == nil {
		if json.Unmarshal(body, &envelope) == nil {
			message = envelope.Error.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrValidation, message)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %s", ErrUnavailable, message)
	default:
		return fmt.Errorf("сервер вернул статус %d: %s", resp.StatusCode, message)
	}
}

// Create — POST /api/v1/analysis.
func (c *Remote) Create(ctx context.Context, req CreateRequest) (*Record, error) {
	var envelope mutationEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/v1/analysis", req, &envelope); err != nil {
		return nil, err
	}
	if envelope.Record == nil {
		return nil, errors.New("ответ сервера не содержит записи")
	}
	return envelope.Record, nil
}

// Get — GET /api/v1/analysis/{id}.
func (c *Remote) Get(ctx context.Context, id string) (*Record, error) {
	var envelope recordEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/v1/analysis/"+id, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Record, nil
}

// List — GET /api/v1/analysis?page=N&limit=M.
func (c *Remote) List(ctx context.Context, page, limit int) (*Page, error) {
	var result Page
	path := fmt.Sprintf("/api/v1/analysis?page=%d&limit=%d", page, limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update — PUT /api/v1/analysis/{id}.
func (c *Remote) Update(ctx context.Context, id string, req UpdateRequest) (*Record, error) {
	var envelope mutationEnvelope
	if err := c.do(ctx, http.MethodPut, "/api/v1/analysis/"+id, req, &envelope); err != nil {
		return nil, err
	}
	if envelope.Record == nil {
		return nil, errors.New("ответ сервера не содержит записи")
	}
	return envelope.Record, nil
}

// Delete — DELETE /api/v1/analysis/{id}.
func (c *Remote) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/analysis/"+id, nil, nil)
}
