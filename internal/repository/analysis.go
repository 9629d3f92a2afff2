package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goanstore/analysis-module/internal/domain/model"
)

// analysisColumns — список столбцов таблицы analysis_records для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const analysisColumns = `id, owner_id, title, summary, keywords, markdown_content,
	input_content, input_type, original_url, file_name, created_at, updated_at`

// UpdateFields — частичное обновление записи анализа.
// Все поля — указатели, nil = поле не меняется. Разрешены только
// title, summary, keywords, markdown_content; остальные поля записи
// (input_type, input_content, owner_id) неизменяемы после создания.
type UpdateFields struct {
	// Title — новый заголовок
	Title *string
	// Summary — новое резюме
	Summary *string
	// Keywords — новый список ключевых слов (заменяется целиком)
	Keywords *[]string
	// MarkdownContent — новый Markdown-отчёт
	MarkdownContent *string
}

// Empty возвращает true, если ни одно поле не задано.
func (u UpdateFields) Empty() bool {
	return u.Title == nil && u.Summary == nil && u.Keywords == nil && u.MarkdownContent == nil
}

// AnalysisRepository — интерфейс доступа к записям анализа.
// Все операции принимают owner_id верифицированного вызывающего;
// идентификатор владельца из тела запроса никогда не используется.
type AnalysisRepository interface {
	// Create сохраняет новую запись. Поля CreatedAt/UpdatedAt
	// заполняются значениями из БД.
	Create(ctx context.Context, rec *model.AnalysisRecord) error
	// GetByID возвращает запись владельца или ErrNotFound.
	GetByID(ctx context.Context, ownerID, id string) (*model.AnalysisRecord, error)
	// ListPage возвращает страницу записей владельца (created_at DESC)
	// и общее количество его записей без учёта пагинации.
	ListPage(ctx context.Context, ownerID string, limit, offset int) ([]*model.AnalysisRecord, int, error)
	// UpdatePartial обновляет заданные поля и refresh-ит updated_at.
	// Возвращает обновлённую запись или ErrNotFound.
	UpdatePartial(ctx context.Context, ownerID, id string, fields UpdateFields) (*model.AnalysisRecord, error)
	// Delete удаляет запись владельца. ErrNotFound, если записи нет —
	// повторное удаление того же id сообщает ErrNotFound, не успех.
	Delete(ctx context.Context, ownerID, id string) error
}

// analysisRepo — реализация AnalysisRepository через pgx.
type analysisRepo struct {
	db DBTX
}

// NewAnalysisRepository создаёт репозиторий записей анализа.
func NewAnalysisRepository(db DBTX) AnalysisRepository {
	return &analysisRepo{db: db}
}

func (r *analysisRepo) Create(ctx context.Context, rec *model.AnalysisRecord) error {
	query := `
		INSERT INTO analysis_records (id, owner_id, title, summary, keywords,
			markdown_content, input_content, input_type, original_url, file_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.OwnerID, rec.Title, rec.Summary, rec.Keywords,
		rec.MarkdownContent, rec.InputContent, rec.InputType, rec.OriginalURL, rec.FileName,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("ошибка сохранения записи анализа: %w", err)
	}
	return nil
}

// validUUID отсекает не-UUID идентификаторы до запроса: сравнение
// произвольной строки с колонкой uuid завершилось бы ошибкой типа,
// а контракт для несуществующего id — ErrNotFound.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *analysisRepo) GetByID(ctx context.Context, ownerID, id string) (*model.AnalysisRecord, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}

	query := fmt.Sprintf(
		`SELECT %s FROM analysis_records WHERE id = $1 AND owner_id = $2`,
		analysisColumns,
	)

	rec := &model.AnalysisRecord{}
	err := r.db.QueryRow(ctx, query, id, ownerID).Scan(
		&rec.ID, &rec.OwnerID, &rec.Title, &rec.Summary, &rec.Keywords, &rec.MarkdownContent,
		&rec.InputContent, &rec.InputType, &rec.OriginalURL, &rec.FileName, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения записи анализа: %w", err)
	}
	return rec, nil
}

func (r *analysisRepo) ListPage(ctx context.Context, ownerID string, limit, offset int) ([]*model.AnalysisRecord, int, error) {
	// Запрос данных: новейшие первыми, id DESC — стабильный tiebreak
	// для записей с одинаковым created_at.
	dataQuery := fmt.Sprintf(`
		SELECT %s FROM analysis_records
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, analysisColumns)

	rows, err := r.db.Query(ctx, dataQuery, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка записей: %w", err)
	}
	defer rows.Close()

	var result []*model.AnalysisRecord
	for rows.Next() {
		rec := &model.AnalysisRecord{}
		if err := rows.Scan(
			&rec.ID, &rec.OwnerID, &rec.Title, &rec.Summary, &rec.Keywords, &rec.MarkdownContent,
			&rec.InputContent, &rec.InputType, &rec.OriginalURL, &rec.FileName, &rec.CreatedAt, &rec.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	// Общее количество записей владельца (без LIMIT/OFFSET) —
	// по нему вызывающий код вычисляет количество страниц.
	var total int
	countQuery := `SELECT COUNT(*) FROM analysis_records WHERE owner_id = $1`
	if err := r.db.QueryRow(ctx, countQuery, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта записей: %w", err)
	}

	return result, total, nil
}

func (r *analysisRepo) UpdatePartial(ctx context.Context, ownerID, id string, fields UpdateFields) (*model.AnalysisRecord, error) {
	if !validUUID(id) {
		return nil, ErrNotFound
	}

	set, args := buildUpdateSet(fields, 1)
	argNum := len(args) + 1

	query := fmt.Sprintf(`
		UPDATE analysis_records
		SET %s
		WHERE id = $%d AND owner_id = $%d
		RETURNING %s`, set, argNum, argNum+1, analysisColumns)
	args = append(args, id, ownerID)

	rec := &model.AnalysisRecord{}
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&rec.ID, &rec.OwnerID, &rec.Title, &rec.Summary, &rec.Keywords, &rec.MarkdownContent,
		&rec.InputContent, &rec.InputType, &rec.OriginalURL, &rec.FileName, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления записи анализа: %w", err)
	}
	return rec, nil
}

func (r *analysisRepo) Delete(ctx context.Context, ownerID, id string) error {
	if !validUUID(id) {
		return ErrNotFound
	}

	query := `DELETE FROM analysis_records WHERE id = $1 AND owner_id = $2`

	tag, err := r.db.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления записи анализа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// buildUpdateSet строит SET-часть UPDATE и аргументы для частичного обновления.
// startArg — номер первого $-параметра (для корректной нумерации).
// updated_at обновляется всегда, даже при пустом наборе полей.
func buildUpdateSet(fields UpdateFields, startArg int) (setClause string, args []any) {
	var parts []string
	argNum := startArg

	if fields.Title != nil {
		parts = append(parts, fmt.Sprintf("title = $%d", argNum))
		args = append(args, *fields.Title)
		argNum++
	}
	if fields.Summary != nil {
		parts = append(parts, fmt.Sprintf("summary = $%d", argNum))
		args = append(args, *fields.Summary)
		argNum++
	}
	if fields.Keywords != nil {
		parts = append(parts, fmt.Sprintf("keywords = $%d", argNum))
		args = append(args, *fields.Keywords)
		argNum++
	}
	if fields.MarkdownContent != nil {
		parts = append(parts, fmt.Sprintf("markdown_content = $%d", argNum))
		args = append(args, *fields.MarkdownContent)
	}

	parts = append(parts, "updated_at = now()")
	return strings.Join(parts, ", "), args
}
