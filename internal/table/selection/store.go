// Пакет selection — хранилище выбранных ссылок на файлы по колонкам.
//
// Для каждой колонки ведётся независимое упорядоченное множество
// (порядок добавления сохраняется и определяет порядок пакетного экспорта).
// Идентичность выбора задаётся режимом Keying:
//   - KeyingURL — сама ссылка (две строки с одинаковым URL выбираются вместе);
//   - KeyingRow — стабильный идентификатор строки.
package selection

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// Keying — режим идентичности выбора.
type Keying string

const (
	KeyingURL Keying = "url"
	KeyingRow Keying = "row"
)

// ParseKeying разбирает режим; неизвестное значение — ошибка.
func ParseKeying(s string) (Keying, error) {
	switch Keying(strings.ToLower(strings.TrimSpace(s))) {
	case "", KeyingURL:
		return KeyingURL, nil
	case KeyingRow:
		return KeyingRow, nil
	default:
		return "", fmt.Errorf("неизвестный режим выбора %q (допустимо: url, row)", s)
	}
}

// State — состояние выбора колонки.
type State string

const (
	StateIdle    State = "idle"
	StatePartial State = "partial"
	StateFull    State = "full"
)

// Item — выбираемый элемент: ссылка и идентификатор строки.
type Item struct {
	RowKey string `json:"row_key"`
	URL    string `json:"url"`
}

// orderedSet — множество элементов с сохранением порядка добавления.
type orderedSet struct {
	order []string
	items map[string]Item
}

func newOrderedSet() *orderedSet {
	return &orderedSet{items: make(map[string]Item)}
}

func (s *orderedSet) add(id string, it Item) {
	if _, ok := s.items[id]; ok {
		return
	}
	s.items[id] = it
	s.order = append(s.order, id)
}

func (s *orderedSet) remove(id string) {
	if _, ok := s.items[id]; !ok {
		return
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Store — хранилище выбора. Безопасно для конкурентного использования.
type Store struct {
	mu      sync.Mutex
	keying  Keying
	columns map[string]*orderedSet
}

// NewStore создаёт пустое хранилище с указанным режимом идентичности.
func NewStore(keying Keying) *Store {
	if keying != KeyingRow {
		keying = KeyingURL
	}
	return &Store{
		keying:  keying,
		columns: make(map[string]*orderedSet),
	}
}

// Keying возвращает режим идентичности хранилища.
func (s *Store) Keying() Keying {
	return s.keying
}

func (s *Store) identity(it Item) string {
	if s.keying == KeyingRow {
		return it.RowKey
	}
	return it.URL
}

// Toggle переключает выбор элемента в колонке. Возвращает true,
// если после вызова элемент выбран. Элемент без ссылки игнорируется.
func (s *Store) Toggle(column string, it Item) bool {
	if it.URL == "" {
		return false
	}
	id := s.identity(it)

	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.columns[column]
	if set == nil {
		set = newOrderedSet()
		s.columns[column] = set
	}
	if _, ok := set.items[id]; ok {
		set.remove(id)
		return false
	}
	set.add(id, it)
	return true
}

// ToggleAll — «всё или ничего»: если текущий выбор колонки совпадает
// с полным набором допустимых элементов, выбор очищается, иначе
// устанавливается полный набор. Возвращает true, если набор выбран.
func (s *Store) ToggleAll(column string, valid []Item) bool {
	full := newOrderedSet()
	for _, it := range valid {
		if it.URL != "" {
			full.add(s.identity(it), it)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.columns[column]
	if len(full.order) == 0 || (current != nil && sameIdentities(current, full)) {
		delete(s.columns, column)
		return false
	}
	s.columns[column] = full
	return true
}

func sameIdentities(a, b *orderedSet) bool {
	if len(a.items) != len(b.items) {
		return false
	}
	for id := range b.items {
		if _, ok := a.items[id]; !ok {
			return false
		}
	}
	return true
}

// Clear очищает выбор колонки.
func (s *Store) Clear(column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.columns, column)
}

// Deselect снимает выбор с элементов колонки, чьи ссылки входят в urls.
// Элементы с другими ссылками остаются выбранными.
func (s *Store) Deselect(column string, urls []string) {
	drop := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		drop[u] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.columns[column]
	if set == nil {
		return
	}
	for _, id := range slices.Clone(set.order) {
		if _, ok := drop[set.items[id].URL]; ok {
			set.remove(id)
		}
	}
	if len(set.order) == 0 {
		delete(s.columns, column)
	}
}

// IsSelected — выбран ли элемент в колонке.
func (s *Store) IsSelected(column string, it Item) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.columns[column]
	if set == nil {
		return false
	}
	_, ok := set.items[s.identity(it)]
	return ok
}

// SelectedCount — количество выбранных элементов колонки.
func (s *Store) SelectedCount(column string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set := s.columns[column]; set != nil {
		return len(set.order)
	}
	return 0
}

// Selected возвращает выбранные элементы в порядке выбора (копия).
func (s *Store) Selected(column string) []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.columns[column]
	if set == nil {
		return nil
	}
	out := make([]Item, 0, len(set.order))
	for _, id := range set.order {
		out = append(out, set.items[id])
	}
	return out
}

// SelectedURLs возвращает ссылки выбранных элементов в порядке выбора.
func (s *Store) SelectedURLs(column string) []string {
	items := s.Selected(column)
	urls := make([]string, len(items))
	for i, it := range items {
		urls[i] = it.URL
	}
	return urls
}

// State вычисляет состояние выбора колонки относительно допустимых элементов.
func (s *Store) State(column string, valid []Item) State {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.columns[column]
	if set == nil || len(set.order) == 0 {
		return StateIdle
	}
	full := newOrderedSet()
	for _, it := range valid {
		if it.URL != "" {
			full.add(s.identity(it), it)
		}
	}
	if sameIdentities(set, full) {
		return StateFull
	}
	return StatePartial
}

// RowKeyFunc возвращает стабильный идентификатор строки.
type RowKeyFunc func(index int, r model.Record) string

// IndexRowKey — идентификатор строки по её позиции во входном наборе.
func IndexRowKey(index int, _ model.Record) string {
	return fmt.Sprintf("row-%d", index)
}

// FieldRowKey — идентификатор строки по значению поля (например, "id");
// при отсутствии поля используется позиция.
func FieldRowKey(field string) RowKeyFunc {
	return func(index int, r model.Record) string {
		if v, ok := r.Get(field); ok && v != nil {
			return fmt.Sprint(v)
		}
		return IndexRowKey(index, r)
	}
}

// ValidItems собирает допустимые элементы колонки: непустые строковые
// значения в порядке view. indexes — позиции записей во входном наборе
// (nil — порядок совпадает с records).
func ValidItems(records []model.Record, indexes []int, column string, rowKey RowKeyFunc) []Item {
	if rowKey == nil {
		rowKey = IndexRowKey
	}
	var items []Item
	visit := func(i int) {
		if i < 0 || i >= len(records) {
			return
		}
		if link, ok := records[i].String(column); ok {
			items = append(items, Item{RowKey: rowKey(i, records[i]), URL: link})
		}
	}
	if indexes == nil {
		for i := range records {
			visit(i)
		}
	} else {
		for _, i := range indexes {
			visit(i)
		}
	}
	return items
}
