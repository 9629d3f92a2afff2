// Пакет model — доменные модели Analysis Module.
package model

import "time"

// Типы входных данных анализа.
const (
	// InputTypeText — сырой текст, переданный пользователем.
	InputTypeText = "text"
	// InputTypeURL — текст, извлечённый из веб-страницы.
	InputTypeURL = "url"
	// InputTypeFile — текст, извлечённый из загруженного файла.
	InputTypeFile = "file"
)

// ValidInputType проверяет, что тип входных данных допустим.
func ValidInputType(t string) bool {
	switch t {
	case InputTypeText, InputTypeURL, InputTypeFile:
		return true
	}
	return false
}

// AnalysisRecord — сохранённый результат анализа текста.
// Хранится в таблице analysis_records. Каждая запись принадлежит
// ровно одному владельцу; все операции чтения и записи фильтруются
// по паре (id, owner_id).
type AnalysisRecord struct {
	// ID — UUID записи (присваивается при создании, неизменяем)
	ID string
	// OwnerID — UUID владельца (из верифицированного токена, неизменяем)
	OwnerID string
	// Title — заголовок анализа
	Title string
	// Summary — краткое резюме
	Summary string
	// Keywords — ключевые слова (порядок сохраняется, может быть пустым)
	Keywords []string
	// MarkdownContent — полный отчёт в Markdown
	MarkdownContent string
	// InputContent — исходный текст или его идентифицирующий фрагмент
	InputContent string
	// InputType — тип входных данных (text, url, file), неизменяем
	InputType string
	// OriginalURL — исходный URL (только для input_type = url)
	OriginalURL *string
	// FileName — имя исходного файла (только для input_type = file)
	FileName *string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления (>= CreatedAt)
	UpdatedAt time.Time
}
