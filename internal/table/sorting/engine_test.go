package sorting

import (
	"fmt"
	"testing"
	"time"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

func ids(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		v, _ := r.Get("id")
		out[i] = fmt.Sprint(v)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func spec(field string, dir model.Direction) *model.SortSpec {
	return &model.SortSpec{Field: field, Direction: dir}
}

// TestSort_NilSpecKeepsOrder — без сортировки порядок входа сохраняется.
func TestSort_NilSpecKeepsOrder(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 2), model.NewRecord("id", 1),
	}
	got := NewEngine().Sort(records, nil)
	if !equal(ids(got), []string{"2", "1"}) {
		t.Errorf("порядок = %v, ожидался [2 1]", ids(got))
	}
	got[0] = model.NewRecord("id", 99)
	if v, _ := records[0].Get("id"); v != 2 {
		t.Error("Sort не должен возвращать исходный срез")
	}
}

// TestSort_ByNameCaseInsensitive — сортировка строк без учёта регистра.
func TestSort_ByNameCaseInsensitive(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "name", "B", "photo_url", "http://x/a.jpg"),
		model.NewRecord("id", 2, "name", "A", "photo_url", ""),
		model.NewRecord("id", 3, "name", "a"),
		model.NewRecord("id", 4, "name", "c"),
	}
	got := ids(NewEngine().Sort(records, spec("name", model.Asc)))
	if !equal(got, []string{"2", "3", "1", "4"}) {
		t.Errorf("порядок = %v, ожидался [2 3 1 4]", got)
	}
}

// TestSort_NumericStrings — "9" раньше "10" для известного числового поля.
func TestSort_NumericStrings(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "amount", "10"),
		model.NewRecord("id", 2, "amount", "9"),
		model.NewRecord("id", 3, "amount", 9.5),
	}
	got := ids(NewEngine().Sort(records, spec("amount", model.Asc)))
	if !equal(got, []string{"2", "3", "1"}) {
		t.Errorf("порядок = %v, ожидался [2 3 1]", got)
	}
}

// TestSort_AutoNumericStrings — в авто-режиме числовые строки тоже сравниваются как числа.
func TestSort_AutoNumericStrings(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "score", "100"),
		model.NewRecord("id", 2, "score", "20"),
	}
	got := ids(NewEngine().Sort(records, spec("score", model.Asc)))
	if !equal(got, []string{"2", "1"}) {
		t.Errorf("порядок = %v, ожидался [2 1]", got)
	}
}

// TestSort_NullsLastBothDirections — отсутствующие значения всегда в конце.
func TestSort_NullsLastBothDirections(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "age", nil),
		model.NewRecord("id", 2, "age", 30),
		model.NewRecord("id", 3),
		model.NewRecord("id", 4, "age", 25),
	}
	e := NewEngine()

	asc := ids(e.Sort(records, spec("age", model.Asc)))
	if !equal(asc, []string{"4", "2", "1", "3"}) {
		t.Errorf("asc = %v, ожидался [4 2 1 3]", asc)
	}
	desc := ids(e.Sort(records, spec("age", model.Desc)))
	if !equal(desc, []string{"2", "4", "1", "3"}) {
		t.Errorf("desc = %v, ожидался [2 4 1 3]", desc)
	}
}

// TestSort_DescIsReverseOfAsc — без null desc точно разворачивает asc,
// включая равные значения.
func TestSort_DescIsReverseOfAsc(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "status", "new"),
		model.NewRecord("id", 2, "status", "hired"),
		model.NewRecord("id", 3, "status", "New"),
		model.NewRecord("id", 4, "status", "interview"),
		model.NewRecord("id", 5, "status", "hired"),
	}
	e := NewEngine()
	asc := ids(e.Sort(records, spec("status", model.Asc)))
	desc := ids(e.Sort(records, spec("status", model.Desc)))

	for i := range asc {
		if asc[i] != desc[len(desc)-1-i] {
			t.Fatalf("desc %v не является разворотом asc %v", desc, asc)
		}
	}
}

// TestSort_Dates — даты сравниваются как моменты времени.
func TestSort_Dates(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "created_at", "2024-10-01"),
		model.NewRecord("id", 2, "created_at", "2024-09-15T12:00:00Z"),
		model.NewRecord("id", 3, "created_at", time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)),
	}
	got := ids(NewEngine(WithDateFields("created_at")).Sort(records, spec("created_at", model.Asc)))
	if !equal(got, []string{"2", "3", "1"}) {
		t.Errorf("порядок = %v, ожидался [2 3 1]", got)
	}

	// Авто-режим распознаёт даты без явной настройки
	got = ids(NewEngine().Sort(records, spec("created_at", model.Asc)))
	if !equal(got, []string{"2", "3", "1"}) {
		t.Errorf("авто: порядок = %v, ожидался [2 3 1]", got)
	}
}

// TestSort_MixedTypesDoNotPanic — несравнимые типы сравниваются через строку.
func TestSort_MixedTypesDoNotPanic(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "meta", map[string]any{"k": "v"}),
		model.NewRecord("id", 2, "meta", "abc"),
		model.NewRecord("id", 3, "meta", true),
		model.NewRecord("id", 4, "meta", []any{1}),
	}
	got := NewEngine().Sort(records, spec("meta", model.Asc))
	if len(got) != 4 {
		t.Fatalf("записей = %d, ожидалось 4", len(got))
	}
}

// TestSort_NumericFieldWithGarbage — нечисловые значения после чисел.
func TestSort_NumericFieldWithGarbage(t *testing.T) {
	records := []model.Record{
		model.NewRecord("id", 1, "amount", "n/a"),
		model.NewRecord("id", 2, "amount", 5),
	}
	got := ids(NewEngine().Sort(records, spec("amount", model.Asc)))
	if !equal(got, []string{"2", "1"}) {
		t.Errorf("порядок = %v, ожидался [2 1]", got)
	}
}

func TestEngine_Compare(t *testing.T) {
	e := NewEngine(WithFieldKind("code", KindText))
	if e.Compare("code", "10", "9") >= 0 {
		t.Error("KindText: \"10\" должно быть меньше \"9\" лексически")
	}
	if e.Compare("amount", nil, 1) <= 0 {
		t.Error("nil должен быть больше любого значения")
	}
	if e.Compare("x", false, true) >= 0 {
		t.Error("false должно быть меньше true")
	}
	if e.KindOf("Amount") != KindNumeric {
		t.Errorf("KindOf(Amount) = %q", e.KindOf("Amount"))
	}
}

// TestSort_AutoMixedColumnTotalOrder — в смешанной колонке порядок не
// зависит от исходного порядка записей: числа, затем даты, логические, текст.
func TestSort_AutoMixedColumnTotalOrder(t *testing.T) {
	values := []any{"10", "5a", true, "9", "2024-01-02", "Abc", 7}
	want := []string{"7", "9", "10", "2024-01-02", "true", "5a", "Abc"}

	perms := [][]int{
		{0, 1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1, 0},
		{1, 3, 0, 6, 2, 5, 4},
		{3, 1, 0, 4, 6, 2, 5},
	}
	for _, perm := range perms {
		records := make([]model.Record, 0, len(perm))
		for _, i := range perm {
			records = append(records, model.NewRecord("v", values[i]))
		}
		sorted := NewEngine().Sort(records, spec("v", model.Asc))
		got := make([]string, 0, len(sorted))
		for _, r := range sorted {
			v, _ := r.Get("v")
			got = append(got, fmt.Sprint(v))
		}
		if !equal(got, want) {
			t.Errorf("перестановка %v: порядок = %v, ожидается %v", perm, got, want)
		}
	}
}
