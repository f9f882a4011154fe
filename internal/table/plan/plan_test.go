package plan

import (
	"testing"
	"time"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

func testPlan() *Plan {
	return Build([]model.ColumnDescriptor{
		{Key: "name", Header: "Name", Sortable: true, MediaKind: model.MediaNone},
		{Key: "photo_url", Header: "Photo URL", IsMediaColumn: true, MediaKind: model.MediaImage},
		{Key: "video", Header: "", IsMediaColumn: true, MediaKind: model.MediaVideo},
	})
}

// TestBuild_Strategies проверяет выбор стратегии и заголовок по умолчанию.
func TestBuild_Strategies(t *testing.T) {
	p := testPlan()

	cols := p.Columns()
	if len(cols) != 3 {
		t.Fatalf("колонок = %d, ожидалось 3", len(cols))
	}
	if cols[0].Strategy != StrategyText || cols[1].Strategy != StrategyMedia {
		t.Errorf("стратегии = %q, %q", cols[0].Strategy, cols[1].Strategy)
	}
	if cols[2].Header != "video" {
		t.Errorf("пустой заголовок должен замениться ключом, получено %q", cols[2].Header)
	}
	if len(p.MediaColumns()) != 2 {
		t.Errorf("MediaColumns = %d, ожидалось 2", len(p.MediaColumns()))
	}
	if !p.Sortable("name") || p.Sortable("photo_url") || p.Sortable("unknown") {
		t.Error("неверная сортируемость колонок")
	}
}

// TestRenderRow_MediaCell проверяет имя файла, размер и доступность превью.
func TestRenderRow_MediaCell(t *testing.T) {
	p := testPlan()
	r := model.NewRecord(
		"name", "Anna",
		"photo_url", "https://cdn.example.com/photos/anna%20k.jpg?sig=1#top",
		"photo_size", int64(1536),
		"video", "https://cdn.example.com/v/intro.mp4",
	)
	cells := p.RenderRow(r)

	if cells[0].Text != "Anna" || cells[0].Media != nil {
		t.Errorf("текстовая ячейка = %+v", cells[0])
	}

	photo := cells[1]
	if photo.Media == nil {
		t.Fatal("ожидалась файловая ячейка")
	}
	if photo.Media.FileName != "anna k.jpg" {
		t.Errorf("FileName = %q, ожидалось %q", photo.Media.FileName, "anna k.jpg")
	}
	if photo.Media.SizeLabel != "1.5 KB" {
		t.Errorf("SizeLabel = %q, ожидалось 1.5 KB", photo.Media.SizeLabel)
	}
	if !photo.Media.Previewable {
		t.Error("image-ячейка должна поддерживать превью")
	}

	if cells[2].Media == nil || cells[2].Media.Previewable {
		t.Errorf("video-ячейка не должна поддерживать превью: %+v", cells[2].Media)
	}
}

// TestRenderCell_MalformedMedia — нестроковые и пустые значения дают пустую ячейку.
func TestRenderCell_MalformedMedia(t *testing.T) {
	col, _ := testPlan().Column("photo_url")

	for _, v := range []any{nil, "", 42, map[string]any{"u": "x"}} {
		cell := RenderCell(model.NewRecord("photo_url", v), col)
		if !cell.Empty || cell.Media != nil {
			t.Errorf("значение %v: ожидалась пустая ячейка, получено %+v", v, cell)
		}
	}
	if cell := RenderCell(model.NewRecord("name", "x"), col); !cell.Empty {
		t.Error("отсутствующий ключ должен давать пустую ячейку")
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"http://x/a.jpg":          "a.jpg",
		"/files/cv.pdf?dl=1":      "cv.pdf",
		"https://example.com":     DefaultFileName,
		"https://example.com/":    DefaultFileName,
		"":                        DefaultFileName,
		"report.xlsx":             "report.xlsx",
		"https://x/docs/folder/":  "folder",
		"/files/%D0%BF%D0%B0.pdf": "па.pdf",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, ожидалось %q", in, got, want)
		}
	}
}

func TestSizeAnnotation(t *testing.T) {
	tests := []struct {
		name   string
		record model.Record
		key    string
		want   string
		ok     bool
	}{
		{"по ключу колонки", model.NewRecord("cv_size", 2048), "cv", "2.0 KB", true},
		{"база без _url", model.NewRecord("photo_size", "100"), "photo_url", "100 B", true},
		{"общий file_size", model.NewRecord("file_size", 3*1024*1024.0), "doc", "3.0 MB", true},
		{"готовая строка", model.NewRecord("size", "1.2 MB"), "doc", "1.2 MB", true},
		{"отрицательный", model.NewRecord("size_bytes", -1), "doc", "", false},
		{"нет поля", model.NewRecord("name", "x"), "doc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SizeAnnotation(tt.record, tt.key)
			if got != tt.want || ok != tt.ok {
				t.Errorf("SizeAnnotation = (%q, %v), ожидалось (%q, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{true, "true"},
		{42, "42"},
		{1.5, "1.5"},
		{ts, "2024-03-01T10:00:00Z"},
		{map[string]any{"a": 1}, `{"a":1}`},
		{[]any{1, "b"}, `[1,"b"]`},
		{int16(7), "7"},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}
