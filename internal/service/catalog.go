// Пакет service — бизнес-логика talentdesk: каталог таблиц,
// сессии рендеринга, мониторинг зависимостей.
package service

import (
	"maps"
	"slices"

	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/table/sorting"
)

// TableProfile — известные сведения о таблице источника.
// Подсказки профиля имеют приоритет над эвристиками классификатора.
type TableProfile struct {
	// Name — имя таблицы в БД
	Name string
	// Title — заголовок для UI
	Title string
	// NumericFields — поля, которые всегда сравниваются как числа
	NumericFields []string
	// DateFields — поля, которые сравниваются как даты
	DateFields []string
	// Hints — подсказки классификации по ключу колонки
	Hints map[string]model.ColumnHint
	// DefaultSort — сортировка при открытии (nil — порядок источника)
	DefaultSort *model.SortSpec
	// RowKeyField — поле, идентифицирующее строку в режиме выбора row
	RowKeyField string
}

// SortOptions возвращает опции сортировщика для профиля.
func (p TableProfile) SortOptions() []sorting.Option {
	var opts []sorting.Option
	if len(p.NumericFields) > 0 {
		opts = append(opts, sorting.WithNumericFields(p.NumericFields...))
	}
	if len(p.DateFields) > 0 {
		opts = append(opts, sorting.WithDateFields(p.DateFields...))
	}
	return opts
}

// MergeHints объединяет подсказки профиля с подсказками вызывающего кода.
// Подсказки вызывающего кода побеждают.
func (p TableProfile) MergeHints(extra map[string]model.ColumnHint) map[string]model.ColumnHint {
	out := make(map[string]model.ColumnHint, len(p.Hints)+len(extra))
	maps.Copy(out, p.Hints)
	maps.Copy(out, extra)
	return out
}

// Catalog — набор профилей таблиц.
type Catalog struct {
	profiles map[string]TableProfile
}

// NewCatalog создаёт каталог из профилей.
func NewCatalog(profiles ...TableProfile) *Catalog {
	c := &Catalog{profiles: make(map[string]TableProfile, len(profiles))}
	for _, p := range profiles {
		c.profiles[p.Name] = p
	}
	return c
}

// Profile возвращает профиль таблицы. Для таблицы без профиля
// возвращается пустой профиль с именем и RowKeyField "id".
func (c *Catalog) Profile(table string) TableProfile {
	if p, ok := c.profiles[table]; ok {
		return p
	}
	return TableProfile{Name: table, Title: table, RowKeyField: "id"}
}

// Names возвращает имена таблиц с профилями в алфавитном порядке.
func (c *Catalog) Names() []string {
	return slices.Sorted(maps.Keys(c.profiles))
}

// DefaultCatalog — профили таблиц рекрутингового агентства.
func DefaultCatalog() *Catalog {
	return NewCatalog(
		TableProfile{
			Name:          "candidates",
			Title:         "Кандидаты",
			NumericFields: []string{"age", "photo_size", "cv_size"},
			DateFields:    []string{"created_at"},
			Hints: map[string]model.ColumnHint{
				"email":         {Header: model.Str("E-mail")},
				"passport_scan": {Media: model.Bool(true), MediaKind: model.Kind(model.MediaDocument)},
				"cv_url":        {Header: model.Str("CV")},
			},
			DefaultSort: &model.SortSpec{Field: "created_at", Direction: model.Desc},
			RowKeyField: "id",
		},
		TableProfile{
			Name:          "agents",
			Title:         "Агенты",
			NumericFields: []string{"commission"},
			DateFields:    []string{"created_at"},
			Hints: map[string]model.ColumnHint{
				"email":      {Header: model.Str("E-mail")},
				"avatar_url": {Media: model.Bool(true), MediaKind: model.Kind(model.MediaImage)},
			},
			RowKeyField: "id",
		},
		TableProfile{
			Name:       "employers",
			Title:      "Работодатели",
			DateFields: []string{"created_at"},
			Hints: map[string]model.ColumnHint{
				"contract_doc": {Header: model.Str("Договор"), Media: model.Bool(true), MediaKind: model.Kind(model.MediaDocument)},
			},
			DefaultSort: &model.SortSpec{Field: "company_name", Direction: model.Asc},
			RowKeyField: "id",
		},
		TableProfile{
			Name:          "transactions",
			Title:         "Транзакции",
			NumericFields: []string{"amount"},
			DateFields:    []string{"occurred_at"},
			Hints: map[string]model.ColumnHint{
				"receipt_url": {Header: model.Str("Квитанция"), MediaKind: model.Kind(model.MediaDocument)},
			},
			DefaultSort: &model.SortSpec{Field: "occurred_at", Direction: model.Desc},
			RowKeyField: "id",
		},
	)
}
