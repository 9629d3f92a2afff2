// Package analyzer — анализ контента через OpenAI Chat Completions API.
//
// Принимает исходный контент (текст, URL или содержимое файла) и
// возвращает структурированный результат: заголовок, краткое содержание,
// ключевые слова и markdown-разбор. Модель обязана отвечать JSON-объектом
// (response_format=json_object), ответ парсится в Result.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

// maxTokens — лимит токенов ответа модели.
const maxTokens = 4096

// ErrNotConfigured возвращается, если API-ключ OpenAI не задан.
var ErrNotConfigured = errors.New("анализатор не сконфигурирован: отсутствует AN_OPENAI_API_KEY")

// Result — структурированный результат анализа контента.
// Поля соответствуют JSON-ответу модели.
type Result struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Keywords        []string `json:"keywords"`
	Sentiment       string   `json:"sentiment"`
	MarkdownContent string   `json:"markdownContent"`
}

// Analyzer — клиент анализа контента поверх OpenAI API.
type Analyzer struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// New создаёт анализатор. Если apiKey пуст, возвращает nil —
// вызывающий код должен проверять доступность через Enabled().
// timeout ограничивает HTTP-запрос к OpenAI API.
func New(apiKey, model string, timeout time.Duration, logger *slog.Logger) *Analyzer {
	if apiKey == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Analyzer{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.With(slog.String("component", "analyzer")),
	}
}

// Enabled сообщает, готов ли анализатор к работе.
// nil-receiver безопасен: незаконфигурированный анализатор — false.
func (a *Analyzer) Enabled() bool {
	return a != nil
}

// Analyze отправляет контент модели и парсит структурированный результат.
// inputType управляет формулировкой промпта (text/url/file).
func (a *Analyzer) Analyze(ctx context.Context, content, inputType string) (*Result, error) {
	if a == nil {
		return nil, ErrNotConfigured
	}

	model := a.model
	if model == "" {
		model = openai.GPT4oMini
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(content, inputType)},
		},
	}
	// Reasoning-модели (o1/o3/o4/gpt-5*) принимают MaxCompletionTokens вместо MaxTokens
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") ||
		strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("запрос chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("модель вернула пустой ответ")
	}

	result, err := parseResult(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("Анализ контента выполнен",
		slog.String("model", model),
		slog.Int("keywords", len(result.Keywords)),
	)

	return result, nil
}

// parseResult разбирает JSON-ответ модели и проверяет обязательные поля.
func parseResult(raw string) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("разбор ответа модели: %w", err)
	}
	if result.Title == "" || result.Summary == "" || result.MarkdownContent == "" {
		return nil, errors.New("ответ модели неполный: title, summary и markdownContent обязательны")
	}
	if result.Keywords == nil {
		result.Keywords = []string{}
	}
	switch result.Sentiment {
	case "positive", "neutral", "negative":
	default:
		result.Sentiment = "neutral"
	}
	return &result, nil
}
