package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// TestNew_EmptyAPIKey проверяет, что без ключа анализатор отключён.
func TestNew_EmptyAPIKey(t *testing.T) {
	a := New("", "gpt-4o-mini", time.Minute, slog.Default())
	if a != nil {
		t.Fatal("New без API-ключа должен возвращать nil")
	}
	if a.Enabled() {
		t.Error("Enabled() = true для незаконфигурированного анализатора")
	}

	_, err := a.Analyze(context.Background(), "текст", "text")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ошибка = %v, ожидалась ErrNotConfigured", err)
	}
}

// TestUserPrompt проверяет формирование промпта по типу входа.
func TestUserPrompt(t *testing.T) {
	tests := []struct {
		inputType string
		wantPart  string
	}{
		{"text", "following text"},
		{"url", "web page at this URL"},
		{"file", "document contents"},
		{"unknown", "following text"}, // неизвестный тип трактуется как text
	}

	for _, tt := range tests {
		t.Run(tt.inputType, func(t *testing.T) {
			got := userPrompt("содержимое", tt.inputType)
			if !strings.Contains(got, tt.wantPart) {
				t.Errorf("userPrompt(%q) = %q, ожидалась подстрока %q", tt.inputType, got, tt.wantPart)
			}
			if !strings.Contains(got, "содержимое") {
				t.Error("промпт не содержит исходный контент")
			}
		})
	}
}

// TestParseResult проверяет разбор JSON-ответа модели.
func TestParseResult(t *testing.T) {
	raw := `{
		"title": "Обзор Go",
		"summary": "Статья о конкурентности в Go.",
		"keywords": ["go", "goroutines"],
		"sentiment": "positive",
		"markdownContent": "# Обзор\n\n- Горутины"
	}`

	result, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult ошибка: %v", err)
	}
	if result.Title != "Обзор Go" {
		t.Errorf("Title = %q, ожидался %q", result.Title, "Обзор Go")
	}
	if len(result.Keywords) != 2 {
		t.Errorf("Keywords count = %d, ожидался 2", len(result.Keywords))
	}
	if result.Sentiment != "positive" {
		t.Errorf("Sentiment = %q, ожидался %q", result.Sentiment, "positive")
	}
}

// TestParseResult_MissingKeywords проверяет нормализацию отсутствующих keywords.
func TestParseResult_MissingKeywords(t *testing.T) {
	raw := `{"title": "T", "summary": "S", "markdownContent": "# M"}`

	result, err := parseResult(raw)
	if err != nil {
		t.Fatalf("parseResult ошибка: %v", err)
	}
	if result.Keywords == nil {
		t.Error("Keywords = nil, ожидался пустой массив")
	}
	if result.Sentiment != "neutral" {
		t.Errorf("Sentiment = %q, ожидался neutral по умолчанию", result.Sentiment)
	}
}

// TestParseResult_Invalid проверяет отклонение некорректных ответов.
func TestParseResult_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"не JSON", "вот ваш анализ: ..."},
		{"пустой title", `{"title": "", "summary": "S", "markdownContent": "M"}`},
		{"нет markdownContent", `{"title": "T", "summary": "S"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseResult(tt.raw); err == nil {
				t.Error("ожидалась ошибка разбора")
			}
		})
	}
}
