// analysis.go — сервис записей анализа.
// Координирует repository, LRU cache и Prometheus-метрики.
// Валидация create/update выполняется здесь, до обращения к БД;
// owner_id всегда берётся из верифицированного токена вызывающего,
// никогда — из тела запроса.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goanstore/analysis-module/internal/domain/model"
	"github.com/bigkaa/goanstore/analysis-module/internal/repository"
)

// Prometheus-метрики записей анализа.
var (
	recordsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "an_records_created_total",
		Help: "Общее количество созданных записей анализа.",
	})
	recordsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "an_records_deleted_total",
		Help: "Общее количество удалённых записей анализа.",
	})
	listDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "an_list_duration_seconds",
		Help:    "Длительность запросов списка записей.",
		Buckets: prometheus.DefBuckets,
	})
)

// Границы пагинации.
const (
	// DefaultPageLimit — размер страницы по умолчанию.
	DefaultPageLimit = 10
	// MaxPageLimit — максимальный размер страницы.
	MaxPageLimit = 100
)

// CreateInput — входные данные создания записи анализа.
type CreateInput struct {
	Title           string
	Summary         string
	Keywords        []string
	MarkdownContent string
	InputContent    string
	InputType       string
	OriginalURL     *string
	FileName        *string
}

// UpdateInput — частичное обновление. nil = поле не передано.
// Разрешены только title, summary, keywords, markdownContent —
// попытки изменить остальные поля отбрасываются на уровне декодирования
// запроса и до сервиса не доходят.
type UpdateInput struct {
	Title           *string
	Summary         *string
	Keywords        *[]string
	MarkdownContent *string
}

// ListResult — страница записей с метаданными пагинации.
type ListResult struct {
	// Records — записи страницы (created_at DESC)
	Records []*model.AnalysisRecord
	// Page — номер страницы (1-индексация)
	Page int
	// Limit — запрошенный размер страницы
	Limit int
	// Total — общее количество записей владельца
	Total int
	// Pages — количество страниц: ceil(Total/Limit)
	Pages int
}

// AnalysisService — бизнес-логика CRUD записей анализа.
type AnalysisService struct {
	repo   repository.AnalysisRepository
	cache  *CacheService
	logger *slog.Logger
}

// NewAnalysisService создаёт сервис записей анализа.
func NewAnalysisService(
	repo repository.AnalysisRepository,
	cache *CacheService,
	logger *slog.Logger,
) *AnalysisService {
	return &AnalysisService{
		repo:   repo,
		cache:  cache,
		logger: logger.With(slog.String("component", "analysis_service")),
	}
}

// Create валидирует входные данные и сохраняет новую запись.
// Присваивает UUID; created_at/updated_at заполняет БД (равны при создании).
func (s *AnalysisService) Create(ctx context.Context, ownerID string, in CreateInput) (*model.AnalysisRecord, error) {
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	rec := &model.AnalysisRecord{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Title:           strings.TrimSpace(in.Title),
		Summary:         strings.TrimSpace(in.Summary),
		Keywords:        in.Keywords,
		MarkdownContent: in.MarkdownContent,
		InputContent:    in.InputContent,
		InputType:       in.InputType,
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}

	// original_url и file_name имеют смысл только для соответствующего
	// типа входных данных — лишние значения отбрасываются молча.
	if in.InputType == model.InputTypeURL {
		rec.OriginalURL = in.OriginalURL
	}
	if in.InputType == model.InputTypeFile {
		rec.FileName = in.FileName
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, s.wrapStoreError("создание записи", err)
	}

	recordsCreatedTotal.Inc()
	s.cache.Set(rec)

	s.logger.Debug("Запись анализа создана",
		slog.String("record_id", rec.ID),
		slog.String("input_type", rec.InputType),
	)

	return rec, nil
}

// Get возвращает запись владельца.
// Сначала проверяет LRU-кэш, при промахе — запрос к PostgreSQL.
// Чужая запись неотличима от несуществующей: ErrNotFound в обоих случаях.
func (s *AnalysisService) Get(ctx context.Context, ownerID, id string) (*model.AnalysisRecord, error) {
	if rec, ok := s.cache.Get(ownerID, id); ok {
		s.logger.Debug("Кэш hit для записи", slog.String("record_id", id))
		return rec, nil
	}

	rec, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.wrapStoreError("получение записи", err)
	}

	s.cache.Set(rec)
	return rec, nil
}

// List возвращает страницу записей владельца (новейшие первыми)
// и метаданные пагинации. page — 1-индексированный; значения вне
// допустимых границ нормализуются.
func (s *AnalysisService) List(ctx context.Context, ownerID string, page, limit int) (*ListResult, error) {
	start := time.Now()

	page, limit = NormalizePage(page, limit)
	offset := (page - 1) * limit

	records, total, err := s.repo.ListPage(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, s.wrapStoreError("получение списка записей", err)
	}

	listDuration.Observe(time.Since(start).Seconds())

	if records == nil {
		records = []*model.AnalysisRecord{}
	}

	return &ListResult{
		Records: records,
		Page:    page,
		Limit:   limit,
		Total:   total,
		Pages:   TotalPages(total, limit),
	}, nil
}

// Update применяет частичное обновление и refresh-ит updated_at.
// Пустые после trim строки отбрасываются (поле остаётся прежним) —
// семантика «только непустые поля из patch».
func (s *AnalysisService) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.AnalysisRecord, error) {
	fields := repository.UpdateFields{
		Keywords:        in.Keywords,
		MarkdownContent: in.MarkdownContent,
	}
	if in.Title != nil {
		if t := strings.TrimSpace(*in.Title); t != "" {
			fields.Title = &t
		}
	}
	if in.Summary != nil {
		if sm := strings.TrimSpace(*in.Summary); sm != "" {
			fields.Summary = &sm
		}
	}
	if in.MarkdownContent != nil && *in.MarkdownContent == "" {
		fields.MarkdownContent = nil
	}

	rec, err := s.repo.UpdatePartial(ctx, ownerID, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, s.wrapStoreError("обновление записи", err)
	}

	s.cache.Set(rec)

	s.logger.Debug("Запись анализа обновлена", slog.String("record_id", rec.ID))
	return rec, nil
}

// Delete безвозвратно удаляет запись владельца.
// Повторное удаление того же id возвращает ErrNotFound, не успех —
// выбор зафиксирован сознательно: вызывающий код после успешного
// удаления трактует ErrNotFound как «уже удалено».
func (s *AnalysisService) Delete(ctx context.Context, ownerID, id string) error {
	err := s.repo.Delete(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return s.wrapStoreError("удаление записи", err)
	}

	recordsDeletedTotal.Inc()
	s.cache.Delete(ownerID, id)

	s.logger.Debug("Запись анализа удалена", slog.String("record_id", id))
	return nil
}

// wrapStoreError классифицирует ошибку хранилища: сетевые ошибки и
// таймауты — ErrUnavailable (503 на внешнем контракте), остальное —
// внутренняя ошибка с контекстом операции.
func (s *AnalysisService) wrapStoreError(op string, err error) error {
	if isUnavailable(err) {
		s.logger.Warn("PostgreSQL недоступен",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isUnavailable определяет сетевой класс ошибки: dial/timeout —
// база недоступна, а не «запрос некорректен».
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// validateCreate проверяет обязательные поля создания записи.
// Поле считается пустым, если после trim не осталось символов.
func validateCreate(in CreateInput) error {
	var missing []string
	if strings.TrimSpace(in.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(in.Summary) == "" {
		missing = append(missing, "summary")
	}
	if strings.TrimSpace(in.MarkdownContent) == "" {
		missing = append(missing, "markdownContent")
	}
	if strings.TrimSpace(in.InputContent) == "" {
		missing = append(missing, "inputContent")
	}
	if strings.TrimSpace(in.InputType) == "" {
		missing = append(missing, "inputType")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: обязательные поля не заполнены: %s",
			ErrValidation, strings.Join(missing, ", "))
	}

	if !model.ValidInputType(in.InputType) {
		return fmt.Errorf("%w: недопустимый inputType %q, допустимые: text, url, file",
			ErrValidation, in.InputType)
	}
	return nil
}

// NormalizePage приводит параметры пагинации к допустимым границам.
// page < 1 → 1; limit < 1 → DefaultPageLimit; limit > MaxPageLimit → MaxPageLimit.
func NormalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// TotalPages вычисляет количество страниц: ceil(total/limit).
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return pages
}
