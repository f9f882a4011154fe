package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/export"
	"github.com/bigkaa/talentdesk/internal/repository"
	"github.com/bigkaa/talentdesk/internal/session"
	"github.com/bigkaa/talentdesk/internal/table/selection"
)

// --- Mock repository ---

// mockRecordRepo — мок RecordRepository для unit-тестов.
type mockRecordRepo struct {
	listFn  func(ctx context.Context, table string, limit int) ([]model.Record, error)
	countFn func(ctx context.Context, table string) (int64, error)
}

func (m *mockRecordRepo) List(ctx context.Context, table string, limit int) ([]model.Record, error) {
	if m.listFn != nil {
		return m.listFn(ctx, table, limit)
	}
	return nil, nil
}

func (m *mockRecordRepo) Count(ctx context.Context, table string) (int64, error) {
	if m.countFn != nil {
		return m.countFn(ctx, table)
	}
	return 0, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func candidateRecords() []model.Record {
	return []model.Record{
		model.NewRecord("id", int64(1), "full_name", "Bob", "age", int64(40),
			"photo_url", "https://files.example.com/p/bob.jpg", "created_at", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)),
		model.NewRecord("id", int64(2), "full_name", "alice", "age", int64(31),
			"photo_url", "/p/alice.png", "created_at", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		model.NewRecord("id", int64(3), "full_name", "Carol", "age", nil,
			"photo_url", "", "created_at", time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)),
	}
}

// fileExporter — экспортёр с заранее заданными файлами по ссылке.
func fileExporter(files map[string]string) *export.Orchestrator {
	fetcher := export.FetcherFunc(func(_ context.Context, link string) (export.Blob, error) {
		data, ok := files[link]
		if !ok {
			return export.Blob{}, export.ErrUnexpectedStatus
		}
		return export.Blob{Data: []byte(data), FileName: filepath.Base(link)}, nil
	})
	return export.NewOrchestrator(fetcher, export.NewLinkViewer("https://files.example.com", testLogger()), 2, testLogger())
}

func newTestService(t *testing.T, repo repository.RecordRepository, cfg TableServiceConfig) *TableService {
	t.Helper()
	store := session.NewStore(16, time.Minute, testLogger())
	exporter := fileExporter(map[string]string{
		"https://files.example.com/p/bob.jpg": "bob-photo",
		"/p/alice.png":                        "alice-photo",
	})
	if cfg.ExportDir == "" {
		cfg.ExportDir = t.TempDir()
	}
	if cfg.FileOrigin == "" {
		cfg.FileOrigin = "https://files.example.com"
	}
	return NewTableService(repo, DefaultCatalog(), store, exporter, cfg, testLogger())
}

func TestTableService_Open(t *testing.T) {
	repo := &mockRecordRepo{
		listFn: func(_ context.Context, table string, limit int) ([]model.Record, error) {
			if table != "candidates" {
				t.Errorf("table = %q, ожидалась candidates", table)
			}
			if limit != 50 {
				t.Errorf("limit = %d, ожидался 50", limit)
			}
			return candidateRecords(), nil
		},
	}
	svc := newTestService(t, repo, TableServiceConfig{RowLimit: 100})

	sess, err := svc.Open(context.Background(), OpenParams{Table: "candidates", Limit: 50, Owner: "user-1"})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if sess.ID == "" || sess.Owner != "user-1" || sess.Table != "candidates" {
		t.Errorf("сессия = %+v", sess)
	}

	// Профиль candidates: сортировка created_at desc
	sort := sess.Renderer.Sort()
	if sort == nil || sort.Field != "created_at" || sort.Direction != model.Desc {
		t.Fatalf("Sort() = %+v, ожидается created_at desc", sort)
	}
	rows := sess.Renderer.Rows()
	if name, _ := rows[0].String("full_name"); name != "alice" {
		t.Errorf("первая строка = %q, ожидается alice (самая поздняя дата)", name)
	}

	col, ok := sess.Renderer.Plan().Column("photo_url")
	if !ok || !col.IsMediaColumn || col.MediaKind != model.MediaImage {
		t.Errorf("photo_url = %+v, ожидается файловая колонка image", col)
	}
	if name, ok := sess.Renderer.Plan().Column("full_name"); !ok || name.IsMediaColumn {
		t.Error("full_name не должна быть файловой колонкой")
	}
}

func TestTableService_Open_DefaultsAndErrors(t *testing.T) {
	var gotLimit int
	repo := &mockRecordRepo{
		listFn: func(_ context.Context, table string, limit int) ([]model.Record, error) {
			gotLimit = limit
			if table == "secrets" {
				return nil, repository.ErrUnknownTable
			}
			return nil, nil
		},
	}
	svc := newTestService(t, repo, TableServiceConfig{RowLimit: 10})

	sess, err := svc.Open(context.Background(), OpenParams{Table: "agents"})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if gotLimit != 10 {
		t.Errorf("limit = %d, ожидается RowLimit 10", gotLimit)
	}
	if sess.Owner != AnonymousOwner {
		t.Errorf("Owner = %q, ожидается %q", sess.Owner, AnonymousOwner)
	}
	if sess.Renderer.Len() != 0 {
		t.Error("пустой источник должен давать пустое представление")
	}

	if _, err := svc.Open(context.Background(), OpenParams{Table: "agents", Limit: 11}); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("Open(limit > RowLimit) ошибка = %v, ожидается ErrInvalidLimit", err)
	}
	if _, err := svc.Open(context.Background(), OpenParams{Table: "agents", Limit: -1}); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("Open(limit < 0) ошибка = %v, ожидается ErrInvalidLimit", err)
	}
	if _, err := svc.Open(context.Background(), OpenParams{Table: "secrets"}); !errors.Is(err, repository.ErrUnknownTable) {
		t.Errorf("Open(secrets) ошибка = %v, ожидается ErrUnknownTable", err)
	}
}

func TestTableService_Open_CallerOverrides(t *testing.T) {
	repo := &mockRecordRepo{
		listFn: func(context.Context, string, int) ([]model.Record, error) { return candidateRecords(), nil },
	}
	svc := newTestService(t, repo, TableServiceConfig{})

	sess, err := svc.Open(context.Background(), OpenParams{
		Table: "candidates",
		Sort:  &model.SortSpec{Field: "full_name", Direction: model.Asc},
		Hints: map[string]model.ColumnHint{"photo_url": {Media: model.Bool(false)}},
	})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if s := sess.Renderer.Sort(); s == nil || s.Field != "full_name" {
		t.Errorf("Sort() = %+v, ожидается full_name", s)
	}
	if col, _ := sess.Renderer.Plan().Column("photo_url"); col.IsMediaColumn {
		t.Error("подсказка вызывающего кода должна отключать файловую колонку")
	}
	rows := sess.Renderer.Rows()
	names := make([]string, len(rows))
	for i, r := range rows {
		names[i], _ = r.String("full_name")
	}
	if strings.Join(names, ",") != "alice,Bob,Carol" {
		t.Errorf("порядок = %v, ожидается сортировка без учёта регистра", names)
	}
}

func TestTableService_GetCloseOwnership(t *testing.T) {
	repo := &mockRecordRepo{
		listFn: func(context.Context, string, int) ([]model.Record, error) { return candidateRecords(), nil },
	}
	svc := newTestService(t, repo, TableServiceConfig{})
	sess, err := svc.Open(context.Background(), OpenParams{Table: "candidates", Owner: "owner"})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}

	if _, err := svc.Get(sess.ID, "owner"); err != nil {
		t.Errorf("Get() владельцем ошибка: %v", err)
	}
	if _, err := svc.Get(sess.ID, "intruder"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Get() чужим пользователем ошибка = %v, ожидается ErrForbidden", err)
	}
	if _, err := svc.Get("missing", "owner"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get(missing) ошибка = %v, ожидается ErrSessionNotFound", err)
	}
	if err := svc.Close(sess.ID, "intruder"); !errors.Is(err, ErrForbidden) {
		t.Errorf("Close() чужим пользователем ошибка = %v", err)
	}
	if err := svc.Close(sess.ID, "owner"); err != nil {
		t.Errorf("Close() ошибка: %v", err)
	}
	if _, err := svc.Get(sess.ID, "owner"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("после Close Get() ошибка = %v, ожидается ErrSessionNotFound", err)
	}
}

func TestTableService_Reload_KeepsSelection(t *testing.T) {
	records := candidateRecords()
	repo := &mockRecordRepo{
		listFn: func(context.Context, string, int) ([]model.Record, error) { return records, nil },
	}
	svc := newTestService(t, repo, TableServiceConfig{Keying: selection.KeyingURL})
	sess, err := svc.Open(context.Background(), OpenParams{Table: "candidates"})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if _, err := sess.Renderer.Toggle(0, "photo_url"); err != nil {
		t.Fatalf("Toggle() ошибка: %v", err)
	}

	records = append(records, model.NewRecord("id", int64(4), "full_name", "Dan",
		"photo_url", "/p/dan.jpg", "created_at", time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)))

	reloaded, err := svc.Reload(context.Background(), sess.ID, "")
	if err != nil {
		t.Fatalf("Reload() ошибка: %v", err)
	}
	if reloaded.Renderer.Len() != 4 {
		t.Errorf("Len() = %d, ожидается 4 после Reload", reloaded.Renderer.Len())
	}
	if reloaded.Renderer.SelectedCount("photo_url") != 1 {
		t.Error("выбор должен сохраняться после Reload")
	}
}

func TestTableService_Reload_KeepsLimit(t *testing.T) {
	var limits []int
	repo := &mockRecordRepo{
		listFn: func(_ context.Context, _ string, limit int) ([]model.Record, error) {
			limits = append(limits, limit)
			return candidateRecords()[:limit], nil
		},
	}
	svc := newTestService(t, repo, TableServiceConfig{RowLimit: 1000})
	sess, err := svc.Open(context.Background(), OpenParams{Table: "candidates", Limit: 2})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if _, err := svc.Reload(context.Background(), sess.ID, ""); err != nil {
		t.Fatalf("Reload() ошибка: %v", err)
	}

	if len(limits) != 2 || limits[0] != 2 || limits[1] != 2 {
		t.Errorf("ограничения, переданные источнику записей = %v, ожидается [2 2]", limits)
	}
	if sess.Renderer.Len() != 2 {
		t.Errorf("Len() = %d после Reload, ожидается 2", sess.Renderer.Len())
	}
}

func TestTableService_MediaTerms(t *testing.T) {
	svc := newTestService(t, &mockRecordRepo{}, TableServiceConfig{VocabularyExtra: []string{"scan"}})
	terms := svc.MediaTerms()
	if len(terms) == 0 || terms[len(terms)-1] != "scan" {
		t.Errorf("MediaTerms() = %v, ожидается словарь с scan в конце", terms)
	}
	terms[0] = "изменено"
	if svc.MediaTerms()[0] == "изменено" {
		t.Error("MediaTerms() должен возвращать копию")
	}
}

func TestTableService_ExportZip(t *testing.T) {
	repo := &mockRecordRepo{
		listFn: func(context.Context, string, int) ([]model.Record, error) { return candidateRecords(), nil },
	}
	svc := newTestService(t, repo, TableServiceConfig{})
	sess, err := svc.Open(context.Background(), OpenParams{Table: "candidates"})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if _, err := sess.Renderer.ToggleAll("photo_url"); err != nil {
		t.Fatalf("ToggleAll() ошибка: %v", err)
	}

	var buf bytes.Buffer
	results, err := svc.ExportZip(context.Background(), sess, "photo_url", &buf)
	if err != nil {
		t.Fatalf("ExportZip() ошибка: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("результатов = %d, ожидается 2 (пустая ячейка не выбирается)", len(results))
	}
	for _, r := range results {
		if !r.Succeeded() {
			t.Errorf("скачивание %s неуспешно: %s", r.URL, r.Error)
		}
	}
	if sess.Renderer.SelectedCount("photo_url") != 0 {
		t.Error("после экспорта выбор должен быть очищен")
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("чтение архива: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names[export.ManifestName] || len(zr.File) != 3 {
		t.Errorf("файлы архива = %v, ожидается 2 файла и опись", names)
	}
}

func TestTableService_ExportDir(t *testing.T) {
	repo := &mockRecordRepo{
		listFn: func(context.Context, string, int) ([]model.Record, error) { return candidateRecords(), nil },
	}
	root := t.TempDir()
	svc := newTestService(t, repo, TableServiceConfig{ExportDir: root})
	sess, err := svc.Open(context.Background(), OpenParams{Table: "candidates"})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}
	if _, err := sess.Renderer.ToggleAll("photo_url"); err != nil {
		t.Fatalf("ToggleAll() ошибка: %v", err)
	}

	m, dir, err := svc.ExportDir(context.Background(), sess, "photo_url")
	if err != nil {
		t.Fatalf("ExportDir() ошибка: %v", err)
	}
	if m.Succeeded != 2 || m.Failed != 0 {
		t.Errorf("опись = %d/%d, ожидается 2/0", m.Succeeded, m.Failed)
	}
	if filepath.Dir(dir) != root {
		t.Errorf("каталог пакета %q вне %q", dir, root)
	}
	if _, err := os.Stat(filepath.Join(dir, export.ManifestName)); err != nil {
		t.Errorf("опись не записана: %v", err)
	}

	// Колонка без выбора — пустой экспорт
	m, _, err = svc.ExportDir(context.Background(), sess, "photo_url")
	if err != nil || len(m.Items) != 0 {
		t.Errorf("повторный экспорт = %d элементов, %v", len(m.Items), err)
	}
}

func TestTableService_Workbook(t *testing.T) {
	repo := &mockRecordRepo{
		listFn: func(context.Context, string, int) ([]model.Record, error) { return candidateRecords(), nil },
	}
	svc := newTestService(t, repo, TableServiceConfig{})
	sess, err := svc.Open(context.Background(), OpenParams{Table: "candidates"})
	if err != nil {
		t.Fatalf("Open() ошибка: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.Workbook(sess, &buf); err != nil {
		t.Fatalf("Workbook() ошибка: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("чтение книги: %v", err)
	}
	defer f.Close()

	// Первая строка данных — alice (created_at desc), ссылка разрешена относительно origin
	rows, err := f.GetRows("Sheet1")
	if err != nil || len(rows) != 4 {
		t.Fatalf("строк = %d, %v; ожидается заголовок и 3 строки", len(rows), err)
	}
	col := -1
	for i, h := range rows[0] {
		if h == "Photo URL" {
			col = i
		}
	}
	if col < 0 {
		t.Fatalf("заголовок Photo URL не найден: %v", rows[0])
	}
	cell, _ := excelize.CoordinatesToCellName(col+1, 2)
	ok, link, err := f.GetCellHyperLink("Sheet1", cell)
	if err != nil || !ok || link != "https://files.example.com/p/alice.png" {
		t.Errorf("гиперссылка = %v %q %v", ok, link, err)
	}
}

func TestTableService_ResolveLink(t *testing.T) {
	svc := newTestService(t, &mockRecordRepo{}, TableServiceConfig{FileOrigin: "https://cdn.example.com/base/"})

	tests := map[string]string{
		"/a/b.pdf":                "https://cdn.example.com/a/b.pdf",
		"https://x.example/y.jpg": "https://x.example/y.jpg",
		"javascript:alert(1)":     export.InvalidURL,
	}
	for in, want := range tests {
		if got := svc.ResolveLink(in); got != want {
			t.Errorf("ResolveLink(%q) = %q, ожидается %q", in, got, want)
		}
	}
}
