// local.go — локальное файловое хранилище записей анализа.
// Используется без аутентификации и как read-only источник при
// недоступности сервера. Все записи — один JSON-файл; запись на диск
// атомарна: temp файл → fsync → rename.
package anclient

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// localIDPrefix — префикс идентификаторов локальных записей.
// Отличает их от серверных UUID: локальная запись никогда не путается
// с сохранённой на сервере.
const localIDPrefix = "local-"

// Local — файловое хранилище записей анализа.
// Потокобезопасно: индекс в памяти под RWMutex, диск — источник истины
// при открытии.
type Local struct {
	path string

	mu      sync.RWMutex
	records map[string]*Record
}

// localFile — формат файла хранилища.
type localFile struct {
	Records []*Record `json:"records"`
}

// OpenLocal открывает (или создаёт) локальное хранилище в файле path.
func OpenLocal(path string) (*Local, error) {
	l := &Local{
		path:    path,
		records: make(map[string]*Record),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("чтение локального хранилища %s: %w", path, err)
	}

	var file localFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("разбор локального хранилища %s: %w", path, err)
	}
	for _, rec := range file.Records {
		l.records[rec.ID] = rec
	}

	return l, nil
}

// flush записывает все записи на диск атомарно.
// Паттерн: temp файл → запись → fsync → atomic rename.
// Вызывается под записывающей блокировкой.
func (l *Local) flush() error {
	records := make([]*Record, 0, len(l.records))
	for _, rec := range l.records {
		records = append(records, rec)
	}
	sortNewestFirst(records)

	data, err := json.MarshalIndent(localFile{Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("сериализация локального хранилища: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("создание каталога %s: %w", dir, err)
		}
	}

	tmpPath := l.path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("создание temp файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("запись temp файла: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("закрытие temp файла: %w", err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}

// sortNewestFirst сортирует записи по created_at DESC, затем id DESC —
// тот же порядок, что у серверного списка.
func sortNewestFirst(records []*Record) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

// Create сохраняет новую запись с локальным идентификатором.
func (l *Local) Create(_ context.Context, req CreateRequest) (*Record, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" || strings.TrimSpace(req.Summary) == "" ||
		strings.TrimSpace(req.MarkdownContent) == "" ||
		strings.TrimSpace(req.InputContent) == "" || req.InputType == "" {
		return nil, fmt.Errorf("%w: обязательные поля не заполнены", ErrValidation)
	}

	now := time.Now().UTC()
	rec := &Record{
		ID:              localIDPrefix + uuid.NewString(),
		Title:           title,
		Summary:         strings.TrimSpace(req.Summary),
		Keywords:        req.Keywords,
		MarkdownContent: req.MarkdownContent,
		InputContent:    req.InputContent,
		InputType:       req.InputType,
		OriginalURL:     req.OriginalURL,
		FileName:        req.FileName,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if rec.Keywords == nil {
		rec.Keywords = []string{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[rec.ID] = rec
	if err := l.flush(); err != nil {
		delete(l.records, rec.ID)
		return nil, err
	}

	cp := *rec
	return &cp, nil
}

// Get возвращает запись по id.
func (l *Local) Get(_ context.Context, id string) (*Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// List возвращает страницу записей, новейшие первыми.
func (l *Local) List(_ context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	all := make([]*Record, 0, len(l.records))
	for _, rec := range l.records {
		all = append(all, rec)
	}
	sortNewestFirst(all)

	total := len(all)
	pages := 0
	if total > 0 {
		pages = (total + limit - 1) / limit
	}

	offset := (page - 1) * limit
	items := []Record{}
	if offset < total {
		end := offset + limit
		if end > total {
			end = total
		}
		for _, rec := range all[offset:end] {
			items = append(items, *rec)
		}
	}

	return &Page{
		Records: items,
		Pagination: Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: pages,
		},
	}, nil
}

// Update применяет частичное обновление: только непустые переданные поля.
func (l *Local) Update(_ context.Context, id string, req UpdateRequest) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return nil, ErrNotFound
	}

	prev := *rec
	if req.Title != nil {
		if t := strings.TrimSpace(*req.Title); t != "" {
			rec.Title = t
		}
	}
	if req.Summary != nil {
		if s := strings.TrimSpace(*req.Summary); s != "" {
			rec.Summary = s
		}
	}
	if req.Keywords != nil {
		rec.Keywords = *req.Keywords
	}
	if req.MarkdownContent != nil && *req.MarkdownContent != "" {
		rec.MarkdownContent = *req.MarkdownContent
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := l.flush(); err != nil {
		*rec = prev
		return nil, err
	}

	cp := *rec
	return &cp, nil
}

// Delete безвозвратно удаляет запись.
func (l *Local) Delete(_ context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[id]
	if !ok {
		return ErrNotFound
	}

	delete(l.records, id)
	if err := l.flush(); err != nil {
		l.records[id] = rec
		return err
	}
	return nil
}

// IsLocalID сообщает, является ли id идентификатором локальной записи.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}
