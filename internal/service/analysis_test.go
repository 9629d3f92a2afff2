package service

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/bigkaa/goanstore/analysis-module/internal/domain/model"
	"github.com/bigkaa/goanstore/analysis-module/internal/repository"
)

// --- Fake repository ---

// fakeAnalysisRepo — in-memory реализация AnalysisRepository для unit-тестов.
// Повторяет семантику PostgreSQL-реализации: фильтрация по (id, owner_id),
// сортировка created_at DESC, ErrNotFound при отсутствии строки.
type fakeAnalysisRepo struct {
	records map[string]*model.AnalysisRecord
	failErr error // если задана — все операции возвращают эту ошибку
	seq     int
}

func newFakeRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{records: make(map[string]*model.AnalysisRecord)}
}

func (f *fakeAnalysisRepo) Create(_ context.Context, rec *model.AnalysisRecord) error {
	if f.failErr != nil {
		return f.failErr
	}
	f.seq++
	cp := *rec
	// монотонные created_at, чтобы сортировка была детерминированной
	cp.CreatedAt = time.Unix(int64(1700000000+f.seq), 0)
	cp.UpdatedAt = cp.CreatedAt
	f.records[cp.ID] = &cp
	rec.CreatedAt = cp.CreatedAt
	rec.UpdatedAt = cp.UpdatedAt
	return nil
}

func (f *fakeAnalysisRepo) GetByID(_ context.Context, ownerID, id string) (*model.AnalysisRecord, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	rec, ok := f.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeAnalysisRepo) ListPage(_ context.Context, ownerID string, limit, offset int) ([]*model.AnalysisRecord, int, error) {
	if f.failErr != nil {
		return nil, 0, f.failErr
	}
	var owned []*model.AnalysisRecord
	for _, rec := range f.records {
		if rec.OwnerID == ownerID {
			cp := *rec
			owned = append(owned, &cp)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	total := len(owned)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return owned[offset:end], total, nil
}

func (f *fakeAnalysisRepo) UpdatePartial(_ context.Context, ownerID, id string, fields repository.UpdateFields) (*model.AnalysisRecord, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	rec, ok := f.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	if fields.Title != nil {
		rec.Title = *fields.Title
	}
	if fields.Summary != nil {
		rec.Summary = *fields.Summary
	}
	if fields.Keywords != nil {
		rec.Keywords = *fields.Keywords
	}
	if fields.MarkdownContent != nil {
		rec.MarkdownContent = *fields.MarkdownContent
	}
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Second)
	cp := *rec
	return &cp, nil
}

func (f *fakeAnalysisRepo) Delete(_ context.Context, ownerID, id string) error {
	if f.failErr != nil {
		return f.failErr
	}
	rec, ok := f.records[id]
	if !ok || rec.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(f.records, id)
	return nil
}

func newTestService(repo repository.AnalysisRepository) *AnalysisService {
	cache := NewCacheService(100, 5*time.Minute)
	return NewAnalysisService(repo, cache, slog.Default())
}

func validInput() CreateInput {
	return CreateInput{
		Title:           "Обзор статьи",
		Summary:         "Краткое содержание",
		Keywords:        []string{"go", "postgres"},
		MarkdownContent: "# Обзор\n\nТекст.",
		InputContent:    "Исходный текст статьи",
		InputType:       model.InputTypeText,
	}
}

// --- Тесты AnalysisService ---

// TestAnalysisService_Create проверяет создание записи с присвоением UUID.
func TestAnalysisService_Create(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	rec, err := svc.Create(context.Background(), "owner-1", validInput())
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}
	if rec.ID == "" {
		t.Error("ID не присвоен")
	}
	if rec.OwnerID != "owner-1" {
		t.Errorf("OwnerID = %q, ожидался %q", rec.OwnerID, "owner-1")
	}
	if rec.CreatedAt.IsZero() || !rec.CreatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("при создании created_at и updated_at должны совпадать: %v / %v",
			rec.CreatedAt, rec.UpdatedAt)
	}
}

// TestAnalysisService_Create_TrimsFields проверяет trim title и summary.
func TestAnalysisService_Create_TrimsFields(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	in := validInput()
	in.Title = "  Обзор  "
	in.Summary = "\tКратко\n"

	rec, err := svc.Create(context.Background(), "owner-1", in)
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}
	if rec.Title != "Обзор" {
		t.Errorf("Title = %q, ожидался %q", rec.Title, "Обзор")
	}
	if rec.Summary != "Кратко" {
		t.Errorf("Summary = %q, ожидался %q", rec.Summary, "Кратко")
	}
}

// TestAnalysisService_Create_Validation проверяет отклонение неполных данных.
func TestAnalysisService_Create_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateInput)
	}{
		{"пустой title", func(in *CreateInput) { in.Title = "" }},
		{"title из пробелов", func(in *CreateInput) { in.Title = "   " }},
		{"пустой summary", func(in *CreateInput) { in.Summary = "" }},
		{"пустой markdownContent", func(in *CreateInput) { in.MarkdownContent = "" }},
		{"пустой inputContent", func(in *CreateInput) { in.InputContent = "" }},
		{"пустой inputType", func(in *CreateInput) { in.InputType = "" }},
		{"недопустимый inputType", func(in *CreateInput) { in.InputType = "video" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			svc := newTestService(repo)

			in := validInput()
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), "owner-1", in)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("ошибка = %v, ожидалась ErrValidation", err)
			}
			if len(repo.records) != 0 {
				t.Error("невалидная запись не должна сохраняться")
			}
		})
	}
}

// TestAnalysisService_Create_InputTypeExtras проверяет, что original_url
// и file_name сохраняются только для соответствующего типа входа.
func TestAnalysisService_Create_InputTypeExtras(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	url := "https://example.com/article"
	name := "doc.pdf"

	in := validInput()
	in.InputType = model.InputTypeText
	in.OriginalURL = &url
	in.FileName = &name

	rec, err := svc.Create(context.Background(), "owner-1", in)
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}
	if rec.OriginalURL != nil || rec.FileName != nil {
		t.Error("для inputType=text original_url и file_name должны отбрасываться")
	}

	in = validInput()
	in.InputType = model.InputTypeURL
	in.OriginalURL = &url

	rec, err = svc.Create(context.Background(), "owner-1", in)
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}
	if rec.OriginalURL == nil || *rec.OriginalURL != url {
		t.Errorf("OriginalURL = %v, ожидался %q", rec.OriginalURL, url)
	}
}

// TestAnalysisService_OwnershipIsolation проверяет изоляцию владельцев:
// чужая запись неотличима от несуществующей во всех операциях.
func TestAnalysisService_OwnershipIsolation(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	recA, err := svc.Create(context.Background(), "owner-a", validInput())
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}

	// Get чужой записи
	_, err = svc.Get(context.Background(), "owner-b", recA.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get чужой записи: ошибка = %v, ожидалась ErrNotFound", err)
	}

	// Update чужой записи
	title := "Взлом"
	_, err = svc.Update(context.Background(), "owner-b", recA.ID, UpdateInput{Title: &title})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Update чужой записи: ошибка = %v, ожидалась ErrNotFound", err)
	}

	// Delete чужой записи
	err = svc.Delete(context.Background(), "owner-b", recA.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete чужой записи: ошибка = %v, ожидалась ErrNotFound", err)
	}

	// Запись владельца не пострадала
	got, err := svc.Get(context.Background(), "owner-a", recA.ID)
	if err != nil {
		t.Fatalf("Get своей записи ошибка: %v", err)
	}
	if got.Title != recA.Title {
		t.Errorf("Title = %q, запись изменена чужим вызовом", got.Title)
	}

	// List чужого владельца пуст
	result, err := svc.List(context.Background(), "owner-b", 1, 10)
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if result.Total != 0 || len(result.Records) != 0 {
		t.Errorf("List owner-b: Total = %d, записей %d, ожидался пустой список",
			result.Total, len(result.Records))
	}
}

// TestAnalysisService_List_Pagination проверяет корректность пагинации:
// непересекающиеся страницы, новейшие первыми, стабильные метаданные.
func TestAnalysisService_List_Pagination(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	const total = 7
	for i := 0; i < total; i++ {
		if _, err := svc.Create(context.Background(), "owner-1", validInput()); err != nil {
			t.Fatalf("Create ошибка: %v", err)
		}
	}

	seen := make(map[string]bool)
	var prev time.Time

	for page := 1; page <= 3; page++ {
		result, err := svc.List(context.Background(), "owner-1", page, 3)
		if err != nil {
			t.Fatalf("List page=%d ошибка: %v", page, err)
		}
		if result.Total != total {
			t.Errorf("page=%d: Total = %d, ожидался %d", page, result.Total, total)
		}
		if result.Pages != 3 {
			t.Errorf("page=%d: Pages = %d, ожидался 3", page, result.Pages)
		}
		for _, rec := range result.Records {
			if seen[rec.ID] {
				t.Errorf("запись %s встретилась на нескольких страницах", rec.ID)
			}
			seen[rec.ID] = true
			if !prev.IsZero() && rec.CreatedAt.After(prev) {
				t.Error("нарушен порядок created_at DESC между страницами")
			}
			prev = rec.CreatedAt
		}
	}
	if len(seen) != total {
		t.Errorf("по страницам получено %d записей, ожидалось %d", len(seen), total)
	}

	// Страница за пределами данных — пустой список, не ошибка
	result, err := svc.List(context.Background(), "owner-1", 99, 3)
	if err != nil {
		t.Fatalf("List page=99 ошибка: %v", err)
	}
	if len(result.Records) != 0 {
		t.Errorf("page=99: записей %d, ожидался пустой список", len(result.Records))
	}
	if result.Total != total {
		t.Errorf("page=99: Total = %d, ожидался %d", result.Total, total)
	}
}

// TestAnalysisService_Update_PartialRestriction проверяет частичное
// обновление: изменяются только переданные непустые поля, остальные
// сохраняют значение, updated_at обновляется.
func TestAnalysisService_Update_PartialRestriction(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	rec, err := svc.Create(context.Background(), "owner-1", validInput())
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}

	title := "Новый заголовок"
	empty := ""
	updated, err := svc.Update(context.Background(), "owner-1", rec.ID, UpdateInput{
		Title:   &title,
		Summary: &empty, // пустая строка — поле не меняется
	})
	if err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}

	if updated.Title != title {
		t.Errorf("Title = %q, ожидался %q", updated.Title, title)
	}
	if updated.Summary != rec.Summary {
		t.Errorf("Summary = %q, пустое значение не должно затирать поле", updated.Summary)
	}
	if updated.MarkdownContent != rec.MarkdownContent {
		t.Error("MarkdownContent изменён без запроса")
	}
	if !updated.UpdatedAt.After(rec.UpdatedAt) {
		t.Error("updated_at не обновлён")
	}
	if !updated.CreatedAt.Equal(rec.CreatedAt) {
		t.Error("created_at не должен меняться при обновлении")
	}

	// Пустой patch — валидный no-op, updated_at всё равно refresh-ится
	updated2, err := svc.Update(context.Background(), "owner-1", rec.ID, UpdateInput{})
	if err != nil {
		t.Fatalf("Update (пустой patch) ошибка: %v", err)
	}
	if updated2.Title != title {
		t.Errorf("Title = %q, пустой patch изменил поле", updated2.Title)
	}
}

// TestAnalysisService_Update_Keywords проверяет замену keywords,
// включая явную очистку пустым массивом.
func TestAnalysisService_Update_Keywords(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	rec, err := svc.Create(context.Background(), "owner-1", validInput())
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}

	kw := []string{}
	updated, err := svc.Update(context.Background(), "owner-1", rec.ID, UpdateInput{Keywords: &kw})
	if err != nil {
		t.Fatalf("Update ошибка: %v", err)
	}
	if len(updated.Keywords) != 0 {
		t.Errorf("Keywords = %v, ожидался пустой массив", updated.Keywords)
	}
}

// TestAnalysisService_Delete_Terminality проверяет безвозвратность
// удаления: повторные операции с тем же id возвращают ErrNotFound.
func TestAnalysisService_Delete_Terminality(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	rec, err := svc.Create(context.Background(), "owner-1", validInput())
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}

	if err := svc.Delete(context.Background(), "owner-1", rec.ID); err != nil {
		t.Fatalf("Delete ошибка: %v", err)
	}

	if _, err := svc.Get(context.Background(), "owner-1", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get после удаления: ошибка = %v, ожидалась ErrNotFound", err)
	}
	if err := svc.Delete(context.Background(), "owner-1", rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("повторное Delete: ошибка = %v, ожидалась ErrNotFound", err)
	}

	result, err := svc.List(context.Background(), "owner-1", 1, 10)
	if err != nil {
		t.Fatalf("List ошибка: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("Total = %d после удаления единственной записи", result.Total)
	}
}

// TestAnalysisService_Get_CacheHit проверяет получение из кэша
// и инвалидацию кэша при удалении.
func TestAnalysisService_Get_CacheHit(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)

	rec, err := svc.Create(context.Background(), "owner-1", validInput())
	if err != nil {
		t.Fatalf("Create ошибка: %v", err)
	}

	// Create кладёт запись в кэш — Get обслуживается без БД
	repo.failErr = errors.New("БД отключена")
	got, err := svc.Get(context.Background(), "owner-1", rec.ID)
	if err != nil {
		t.Fatalf("Get (из кэша) ошибка: %v", err)
	}
	if got.ID != rec.ID {
		t.Errorf("ID = %q, ожидался %q", got.ID, rec.ID)
	}

	// Кэш не должен обходить изоляцию владельцев
	if _, ok := svc.cache.Get("owner-b", rec.ID); ok {
		t.Error("кэш вернул запись чужому владельцу")
	}
}

// TestAnalysisService_Unavailable проверяет классификацию сетевых
// ошибок хранилища как ErrUnavailable.
func TestAnalysisService_Unavailable(t *testing.T) {
	repo := newFakeRepo()
	repo.failErr = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	svc := newTestService(repo)

	_, err := svc.List(context.Background(), "owner-1", 1, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("ошибка = %v, ожидалась ErrUnavailable", err)
	}

	_, err = svc.Create(context.Background(), "owner-1", validInput())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Create при недоступной БД: ошибка = %v, ожидалась ErrUnavailable", err)
	}

	// Не-сетевая ошибка — внутренняя, не Unavailable
	repo.failErr = errors.New("duplicate key")
	_, err = svc.List(context.Background(), "owner-1", 1, 10)
	if errors.Is(err, ErrUnavailable) {
		t.Error("не-сетевая ошибка не должна классифицироваться как ErrUnavailable")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("внутренняя ошибка не должна классифицироваться как ErrNotFound")
	}
}

// TestNormalizePage проверяет нормализацию параметров пагинации.
func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name                string
		page, limit         int
		wantPage, wantLimit int
	}{
		{"валидные значения", 2, 20, 2, 20},
		{"page ноль", 0, 10, 1, 10},
		{"page отрицательный", -5, 10, 1, 10},
		{"limit ноль", 1, 0, 1, DefaultPageLimit},
		{"limit превышает максимум", 1, 1000, 1, MaxPageLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := NormalizePage(tt.page, tt.limit)
			if page != tt.wantPage || limit != tt.wantLimit {
				t.Errorf("NormalizePage(%d, %d) = (%d, %d), ожидалось (%d, %d)",
					tt.page, tt.limit, page, limit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

// TestTotalPages проверяет вычисление количества страниц.
func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, limit, want int
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{25, 10, 3},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.limit); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, ожидалось %d", tt.total, tt.limit, got, tt.want)
		}
	}
}
