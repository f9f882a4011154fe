package renderer

import (
	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/table/plan"
	"github.com/bigkaa/talentdesk/internal/table/selection"
)

// ColumnView — колонка снимка представления.
type ColumnView struct {
	plan.Column
	// SortDirection — направление активной сортировки по колонке ("" — не активна)
	SortDirection model.Direction `json:"sort_direction,omitempty"`
	// SelectionState — состояние выбора (только для файловых колонок)
	SelectionState selection.State `json:"selection_state,omitempty"`
	// SelectedCount — количество выбранных ссылок
	SelectedCount int `json:"selected_count,omitempty"`
}

// CellView — ячейка снимка представления.
type CellView struct {
	plan.Cell
	Selected bool `json:"selected,omitempty"`
	Loading  bool `json:"loading,omitempty"`
}

// RowView — строка снимка представления.
type RowView struct {
	// Index — позиция в представлении
	Index int `json:"index"`
	// Source — позиция во входном наборе записей
	Source int        `json:"source"`
	Cells  []CellView `json:"cells"`
}

// View — снимок состояния таблицы для отображения.
type View struct {
	Columns []ColumnView     `json:"columns"`
	Rows    []RowView        `json:"rows"`
	Sort    *model.SortSpec  `json:"sort,omitempty"`
	Keying  selection.Keying `json:"selection_keying"`
	Total   int              `json:"total"`
}

// Snapshot строит снимок представления: отформатированные ячейки,
// отметки выбора и загрузки, состояние сортировки и выбора по колонкам.
func (r *Renderer) Snapshot() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := View{
		Keying: r.selection.Keying(),
		Total:  len(r.view),
		Rows:   make([]RowView, 0, len(r.view)),
	}
	if r.sort != nil {
		s := *r.sort
		v.Sort = &s
	}

	for _, c := range r.plan.Columns() {
		cv := ColumnView{Column: c}
		if r.sort != nil && r.sort.Field == c.Key {
			cv.SortDirection = r.sort.Direction
		}
		if c.Strategy == plan.StrategyMedia {
			cv.SelectionState = r.selection.State(c.Key, r.validItems(c.Key))
			cv.SelectedCount = r.selection.SelectedCount(c.Key)
		}
		v.Columns = append(v.Columns, cv)
	}

	for i, source := range r.view {
		record := r.records[source]
		cells := r.plan.RenderRow(record)
		row := RowView{Index: i, Source: source, Cells: make([]CellView, len(cells))}
		for j, cell := range cells {
			cv := CellView{Cell: cell}
			if cell.Media != nil {
				it := selection.Item{RowKey: r.rowKey(source, record), URL: cell.Media.URL}
				cv.Selected = r.selection.IsSelected(cell.Key, it)
				cv.Loading = r.loading[cellRef{source: source, column: cell.Key}]
			}
			row.Cells[j] = cv
		}
		v.Rows = append(v.Rows, row)
	}
	return v
}
