package selection

import (
	"sync"
	"testing"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// TestToggle_SelectAndDeselect проверяет переключение одного элемента.
func TestToggle_SelectAndDeselect(t *testing.T) {
	s := NewStore(KeyingURL)
	it := Item{RowKey: "row-0", URL: "http://x/a.jpg"}

	if !s.Toggle("photo_url", it) {
		t.Error("первый Toggle должен выбрать элемент")
	}
	if !s.IsSelected("photo_url", it) || s.SelectedCount("photo_url") != 1 {
		t.Error("элемент должен быть выбран")
	}
	if s.Toggle("photo_url", it) {
		t.Error("второй Toggle должен снять выбор")
	}
	if s.SelectedCount("photo_url") != 0 {
		t.Errorf("SelectedCount = %d, ожидался 0", s.SelectedCount("photo_url"))
	}
	if s.Toggle("photo_url", Item{RowKey: "row-1"}) {
		t.Error("элемент без ссылки не должен выбираться")
	}
}

// TestToggleAll_SingleSelectedClears — единственная выбранная ссылка
// равна полному набору, поэтому ToggleAll очищает выбор.
func TestToggleAll_SingleSelectedClears(t *testing.T) {
	s := NewStore(KeyingURL)
	valid := []Item{{RowKey: "row-0", URL: "http://x/a.jpg"}}

	s.Toggle("photo_url", valid[0])
	if s.ToggleAll("photo_url", valid) {
		t.Error("ToggleAll при полном выборе должен очистить выбор")
	}
	if s.SelectedCount("photo_url") != 0 {
		t.Errorf("SelectedCount = %d, ожидался 0", s.SelectedCount("photo_url"))
	}
}

// TestToggleAll_Idempotent — двойной вызов возвращает исходное состояние.
func TestToggleAll_Idempotent(t *testing.T) {
	s := NewStore(KeyingURL)
	valid := []Item{
		{RowKey: "row-0", URL: "http://x/a.jpg"},
		{RowKey: "row-1", URL: "http://x/b.jpg"},
		{RowKey: "row-2", URL: ""},
	}

	if !s.ToggleAll("photo_url", valid) {
		t.Fatal("первый ToggleAll должен выбрать всё")
	}
	if s.SelectedCount("photo_url") != 2 {
		t.Fatalf("SelectedCount = %d, ожидалось 2 (пустые ссылки недопустимы)", s.SelectedCount("photo_url"))
	}
	if s.State("photo_url", valid) != StateFull {
		t.Errorf("State = %q, ожидался full", s.State("photo_url", valid))
	}

	s.ToggleAll("photo_url", valid)
	if s.SelectedCount("photo_url") != 0 {
		t.Error("второй ToggleAll должен очистить выбор")
	}

	s.ToggleAll("photo_url", valid)
	if s.SelectedCount("photo_url") != 2 {
		t.Error("третий ToggleAll должен снова выбрать всё")
	}
}

// TestToggleAll_PartialBecomesFull — частичный выбор дополняется до полного.
func TestToggleAll_PartialBecomesFull(t *testing.T) {
	s := NewStore(KeyingURL)
	valid := []Item{{URL: "a"}, {URL: "b"}}

	s.Toggle("c", valid[1])
	if s.State("c", valid) != StatePartial {
		t.Errorf("State = %q, ожидался partial", s.State("c", valid))
	}
	s.ToggleAll("c", valid)
	got := s.SelectedURLs("c")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("SelectedURLs = %v, ожидалось [a b] в порядке view", got)
	}
}

// TestToggleAll_EmptyValid — без допустимых ссылок выбор очищается.
func TestToggleAll_EmptyValid(t *testing.T) {
	s := NewStore(KeyingURL)
	s.Toggle("c", Item{URL: "a"})
	if s.ToggleAll("c", nil) {
		t.Error("ToggleAll без допустимых ссылок не должен ничего выбирать")
	}
	if s.State("c", nil) != StateIdle {
		t.Errorf("State = %q, ожидался idle", s.State("c", nil))
	}
}

// TestColumnsIndependent — выбор в одной колонке не влияет на другую.
func TestColumnsIndependent(t *testing.T) {
	s := NewStore(KeyingURL)
	it := Item{URL: "http://x/shared.pdf"}

	s.Toggle("cv_url", it)
	if s.IsSelected("passport_url", it) {
		t.Error("выбор не должен распространяться на другую колонку")
	}
	s.Clear("passport_url")
	if !s.IsSelected("cv_url", it) {
		t.Error("Clear другой колонки не должен затрагивать cv_url")
	}
}

// TestKeying_DuplicateURLs — в режиме url одинаковые ссылки выбираются вместе,
// в режиме row — независимо.
func TestKeying_DuplicateURLs(t *testing.T) {
	a := Item{RowKey: "1", URL: "http://x/same.pdf"}
	b := Item{RowKey: "2", URL: "http://x/same.pdf"}

	byURL := NewStore(KeyingURL)
	byURL.Toggle("cv", a)
	if !byURL.IsSelected("cv", b) {
		t.Error("режим url: строка с той же ссылкой должна считаться выбранной")
	}

	byRow := NewStore(KeyingRow)
	byRow.Toggle("cv", a)
	if byRow.IsSelected("cv", b) {
		t.Error("режим row: другая строка не должна считаться выбранной")
	}
	byRow.Toggle("cv", b)
	if byRow.SelectedCount("cv") != 2 {
		t.Errorf("SelectedCount = %d, ожидалось 2", byRow.SelectedCount("cv"))
	}
}

// TestDeselect_KeepsOtherItems — Deselect снимает только переданные ссылки,
// в том числе со всех строк с той же ссылкой в режиме row.
func TestDeselect_KeepsOtherItems(t *testing.T) {
	s := NewStore(KeyingRow)
	s.Toggle("photo_url", Item{RowKey: "row-0", URL: "http://x/a.jpg"})
	s.Toggle("photo_url", Item{RowKey: "row-1", URL: "http://x/a.jpg"})
	s.Toggle("photo_url", Item{RowKey: "row-2", URL: "http://x/b.jpg"})
	s.Toggle("cv_url", Item{RowKey: "row-0", URL: "http://x/a.jpg"})

	s.Deselect("photo_url", []string{"http://x/a.jpg"})

	if got := s.SelectedURLs("photo_url"); len(got) != 1 || got[0] != "http://x/b.jpg" {
		t.Errorf("SelectedURLs = %v, ожидалась только http://x/b.jpg", got)
	}
	if s.SelectedCount("cv_url") != 1 {
		t.Error("выбор другой колонки не должен меняться")
	}

	s.Deselect("photo_url", []string{"http://x/b.jpg"})
	if s.SelectedCount("photo_url") != 0 {
		t.Error("после снятия всех ссылок выбор должен быть пуст")
	}
	s.Deselect("missing", []string{"http://x/b.jpg"})
}

func TestParseKeying(t *testing.T) {
	if k, err := ParseKeying(""); err != nil || k != KeyingURL {
		t.Errorf("ParseKeying(\"\") = (%q, %v)", k, err)
	}
	if k, err := ParseKeying("ROW"); err != nil || k != KeyingRow {
		t.Errorf("ParseKeying(ROW) = (%q, %v)", k, err)
	}
	if _, err := ParseKeying("cell"); err == nil {
		t.Error("ожидалась ошибка для неизвестного режима")
	}
}

// TestValidItems проверяет сбор допустимых ссылок в порядке view.
func TestValidItems(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 10, "cv", "http://x/a.pdf"),
		model.NewRecord("id", 11, "cv", ""),
		model.NewRecord("id", 12, "cv", 5),
		model.NewRecord("id", 13, "cv", "http://x/d.pdf"),
	}

	items := ValidItems(records, []int{3, 2, 1, 0}, "cv", FieldRowKey("id"))
	if len(items) != 2 {
		t.Fatalf("items = %d, ожидалось 2", len(items))
	}
	if items[0].RowKey != "13" || items[1].URL != "http://x/a.pdf" {
		t.Errorf("items = %+v", items)
	}

	items = ValidItems(records, nil, "cv", nil)
	if items[0].RowKey != "row-0" {
		t.Errorf("RowKey = %q, ожидался row-0", items[0].RowKey)
	}
}

// TestStore_Concurrent проверяет отсутствие гонок (go test -race).
func TestStore_Concurrent(t *testing.T) {
	s := NewStore(KeyingRow)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Toggle("cv", Item{RowKey: IndexRowKey(i, model.Record{}), URL: "u"})
			_ = s.SelectedCount("cv")
		}(i)
	}
	wg.Wait()
	if s.SelectedCount("cv") != 50 {
		t.Errorf("SelectedCount = %d, ожидалось 50", s.SelectedCount("cv"))
	}
}
