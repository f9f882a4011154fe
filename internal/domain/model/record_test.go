package model

import (
	"testing"
)

// TestRecord_WithDoesNotMutate проверяет, что With не изменяет исходную запись.
func TestRecord_WithDoesNotMutate(t *testing.T) {
	base := NewRecord("id", 1, "name", "B")
	changed := base.With("name", "C").With("email", "c@example.com")

	if v, _ := base.Get("name"); v != "B" {
		t.Errorf("base name = %v, ожидался B", v)
	}
	if base.Len() != 2 {
		t.Errorf("base Len = %d, ожидался 2", base.Len())
	}
	if v, _ := changed.Get("name"); v != "C" {
		t.Errorf("changed name = %v, ожидался C", v)
	}
	keys := changed.Keys()
	if len(keys) != 3 || keys[0] != "id" || keys[1] != "name" || keys[2] != "email" {
		t.Errorf("Keys = %v, ожидался [id name email]", keys)
	}
}

// TestRecord_GetMissingVsNil проверяет различие отсутствующего ключа и nil.
func TestRecord_GetMissingVsNil(t *testing.T) {
	r := NewRecord("photo_url", nil)

	if v, ok := r.Get("photo_url"); !ok || v != nil {
		t.Errorf("Get(photo_url) = (%v, %v), ожидалось (nil, true)", v, ok)
	}
	if _, ok := r.Get("absent"); ok {
		t.Error("Get(absent) вернул ok=true")
	}

	var zero Record
	if _, ok := zero.Get("id"); ok {
		t.Error("нулевая запись не должна содержать ключей")
	}
}

// TestRecord_String проверяет, что String возвращает только непустые строки.
func TestRecord_String(t *testing.T) {
	r := NewRecord("a", "x", "b", "", "c", 42)

	if s, ok := r.String("a"); !ok || s != "x" {
		t.Errorf("String(a) = (%q, %v)", s, ok)
	}
	if _, ok := r.String("b"); ok {
		t.Error("пустая строка должна считаться отсутствующей")
	}
	if _, ok := r.String("c"); ok {
		t.Error("число не должно возвращаться как строка")
	}
}

// TestRecord_MarshalJSONKeepsOrder проверяет порядок ключей в JSON.
func TestRecord_MarshalJSONKeepsOrder(t *testing.T) {
	r := NewRecord("z", 1, "a", "x", "m", nil)

	data, err := r.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON ошибка: %v", err)
	}
	want := `{"z":1,"a":"x","m":null}`
	if string(data) != want {
		t.Errorf("JSON = %s, ожидался %s", data, want)
	}
}

// TestUnionKeys проверяет объединение ключей в порядке первого появления.
func TestUnionKeys(t *testing.T) {
	records := []Record{
		NewRecord("id", 1, "name", "A"),
		NewRecord("id", 2, "email", "b@example.com"),
	}
	keys := UnionKeys(records)
	if len(keys) != 3 || keys[0] != "id" || keys[1] != "name" || keys[2] != "email" {
		t.Errorf("UnionKeys = %v", keys)
	}
}
