package repository

import (
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

// TestBuildUpdateSet проверяет нумерацию placeholder-ов и состав SET.
func TestBuildUpdateSet(t *testing.T) {
	title := "Заголовок"
	summary := "Содержание"
	kw := []string{"go"}
	md := "# Обзор"

	tests := []struct {
		name     string
		fields   UpdateFields
		startArg int
		wantSet  string
		wantArgs int
	}{
		{
			name:     "все поля",
			fields:   UpdateFields{Title: &title, Summary: &summary, Keywords: &kw, MarkdownContent: &md},
			startArg: 1,
			wantSet:  "title = $1, summary = $2, keywords = $3, markdown_content = $4, updated_at = now()",
			wantArgs: 4,
		},
		{
			name:     "только title",
			fields:   UpdateFields{Title: &title},
			startArg: 1,
			wantSet:  "title = $1, updated_at = now()",
			wantArgs: 1,
		},
		{
			name:     "пропуск полей сохраняет сквозную нумерацию",
			fields:   UpdateFields{Summary: &summary, MarkdownContent: &md},
			startArg: 1,
			wantSet:  "summary = $1, markdown_content = $2, updated_at = now()",
			wantArgs: 2,
		},
		{
			name:     "startArg смещает нумерацию",
			fields:   UpdateFields{Title: &title, Keywords: &kw},
			startArg: 3,
			wantSet:  "title = $3, keywords = $4, updated_at = now()",
			wantArgs: 2,
		},
		{
			name:     "пустой patch — только updated_at",
			fields:   UpdateFields{},
			startArg: 1,
			wantSet:  "updated_at = now()",
			wantArgs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, args := buildUpdateSet(tt.fields, tt.startArg)
			if set != tt.wantSet {
				t.Errorf("setClause = %q, ожидается %q", set, tt.wantSet)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args count = %d, ожидается %d", len(args), tt.wantArgs)
			}
		})
	}
}

// TestUpdateFields_Empty проверяет определение пустого patch.
func TestUpdateFields_Empty(t *testing.T) {
	if !(UpdateFields{}).Empty() {
		t.Error("пустая структура должна быть Empty")
	}
	if (UpdateFields{Title: strPtr("x")}).Empty() {
		t.Error("структура с title не должна быть Empty")
	}
	kw := []string{}
	if (UpdateFields{Keywords: &kw}).Empty() {
		t.Error("структура с keywords (даже пустым массивом) не должна быть Empty")
	}
}

// TestAnalysisColumns проверяет согласованность списка колонок SELECT
// с порядком сканирования.
func TestAnalysisColumns(t *testing.T) {
	want := []string{
		"id", "owner_id", "title", "summary", "keywords", "markdown_content",
		"input_content", "input_type", "original_url", "file_name",
		"created_at", "updated_at",
	}
	got := strings.Split(analysisColumns, ",")
	if len(got) != len(want) {
		t.Fatalf("колонок %d, ожидается %d", len(got), len(want))
	}
	for i, col := range got {
		if strings.TrimSpace(col) != want[i] {
			t.Errorf("колонка %d = %q, ожидается %q", i, strings.TrimSpace(col), want[i])
		}
	}
}
