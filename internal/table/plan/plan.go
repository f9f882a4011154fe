// Пакет plan — план отображения таблицы: для каждой классифицированной
// колонки определяет заголовок, сортируемость и стратегию вывода значения.
// Форматирование ячеек не бросает ошибок: неожиданные значения
// приводятся к строке, отсутствующие ссылки выводятся как пустые ячейки.
package plan

import (
	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// Strategy — стратегия вывода значения колонки.
type Strategy string

const (
	// StrategyText — значение выводится как текст.
	StrategyText Strategy = "text"
	// StrategyMedia — значение трактуется как ссылка на файл:
	// имя файла, размер, превью и скачивание.
	StrategyMedia Strategy = "media"
)

// Column — колонка плана отображения.
type Column struct {
	model.ColumnDescriptor
	Strategy Strategy `json:"strategy"`
}

// Plan — неизменяемый план отображения одного прохода рендеринга.
type Plan struct {
	columns []Column
	index   map[string]int
}

// Build строит план из дескрипторов колонок (порядок сохраняется).
func Build(descriptors []model.ColumnDescriptor) *Plan {
	p := &Plan{
		columns: make([]Column, 0, len(descriptors)),
		index:   make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		strategy := StrategyText
		if d.IsMediaColumn {
			strategy = StrategyMedia
		}
		if d.Header == "" {
			d.Header = d.Key
		}
		p.index[d.Key] = len(p.columns)
		p.columns = append(p.columns, Column{ColumnDescriptor: d, Strategy: strategy})
	}
	return p
}

// Columns возвращает колонки плана (копия).
func (p *Plan) Columns() []Column {
	out := make([]Column, len(p.columns))
	copy(out, p.columns)
	return out
}

// Column возвращает колонку по ключу.
func (p *Plan) Column(key string) (Column, bool) {
	i, ok := p.index[key]
	if !ok {
		return Column{}, false
	}
	return p.columns[i], true
}

// MediaColumns возвращает только файловые колонки.
func (p *Plan) MediaColumns() []Column {
	var out []Column
	for _, c := range p.columns {
		if c.Strategy == StrategyMedia {
			out = append(out, c)
		}
	}
	return out
}

// Sortable — допускает ли колонка сортировку по заголовку.
// Неизвестный ключ не сортируется.
func (p *Plan) Sortable(key string) bool {
	c, ok := p.Column(key)
	return ok && c.Sortable
}

// RenderRow форматирует все ячейки записи в порядке колонок плана.
func (p *Plan) RenderRow(r model.Record) []Cell {
	cells := make([]Cell, len(p.columns))
	for i, c := range p.columns {
		cells[i] = RenderCell(r, c)
	}
	return cells
}
