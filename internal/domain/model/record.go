// Пакет model — доменные модели talentdesk.
// Record — строка табличных данных из внешней БД: упорядоченный набор
// пар «ключ колонки → значение». Ядро таблицы Record только читает.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record — упорядоченное отображение ключ колонки → скалярное значение.
// Значения: string, числа, bool, time.Time, nil или вложенные структуры
// (для отображения сериализуются в строку).
// Нулевое значение Record — пустая запись, готовая к использованию.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord создаёт запись из чередующихся пар ключ/значение:
// NewRecord("id", 1, "name", "B"). Нечётный хвост игнорируется,
// нестроковый ключ приводится через fmt.Sprint.
func NewRecord(pairs ...any) Record {
	r := Record{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			key = fmt.Sprint(pairs[i])
		}
		r = r.With(key, pairs[i+1])
	}
	return r
}

// With возвращает копию записи с установленным значением ключа.
// Исходная запись не изменяется. Новый ключ добавляется в конец.
func (r Record) With(key string, value any) Record {
	out := Record{
		keys:   make([]string, len(r.keys), len(r.keys)+1),
		values: make(map[string]any, len(r.values)+1),
	}
	copy(out.keys, r.keys)
	for k, v := range r.values {
		out.values[k] = v
	}
	if _, exists := out.values[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.values[key] = value
	return out
}

// Get возвращает значение колонки. ok = false, если ключ отсутствует.
// Присутствующий ключ со значением nil возвращает (nil, true).
func (r Record) Get(key string) (any, bool) {
	if r.values == nil {
		return nil, false
	}
	v, ok := r.values[key]
	return v, ok
}

// String возвращает значение колонки, если это непустая строка.
// Значения других типов считаются отсутствующими.
func (r Record) String(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Keys возвращает ключи колонок в исходном порядке (копия).
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len — количество колонок в записи.
func (r Record) Len() int {
	return len(r.keys)
}

// MarshalJSON сериализует запись в JSON-объект с сохранением порядка ключей.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			// Несериализуемое значение — выводим строковое представление
			vb, _ = json.Marshal(fmt.Sprint(r.values[k]))
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnionKeys возвращает объединение ключей набора записей в порядке
// первого появления. Для однородных наборов совпадает с ключами первой записи.
func UnionKeys(records []Record) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, r := range records {
		for _, k := range r.keys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}
