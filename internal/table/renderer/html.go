package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/export"
	"github.com/bigkaa/talentdesk/internal/table/plan"
	"github.com/bigkaa/talentdesk/internal/table/selection"
)

// Иконки категорий файлов.
var mediaIcons = map[model.MediaKind]string{
	model.MediaImage:    "🖼",
	model.MediaDocument: "📄",
	model.MediaVideo:    "🎞",
	model.MediaAudio:    "🎵",
	model.MediaGeneric:  "📎",
}

// rowTrigger — клик строки, кроме кликов по элементам управления ячеек.
const rowTrigger = "click[!event.target.closest('input,a,button,form')]"

// htmlWriter накапливает первую ошибку записи.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + "=\"" + templ.EscapeString(value) + "\"")
}

// TableView — HTML-представление таблицы (HTMX-разметка).
// basePath — префикс маршрутов сессии, например "/api/v1/sessions/<id>".
// Клики по встроенным элементам управления не порождают клик строки:
// фильтр hx-trigger строки пропускает input, a, button и form.
func TableView(v View, basePath string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}

		h.raw(`<div class="smart-table" id="smart-table"`)
		h.attr("hx-target", "#smart-table")
		h.attr("hx-swap", "outerHTML")
		h.raw(">")

		if len(v.Rows) == 0 {
			h.raw(`<p class="smart-table__empty">Нет данных</p></div>`)
			return h.err
		}

		h.raw(`<table><thead><tr>`)
		for _, c := range v.Columns {
			writeHeader(h, c, basePath)
		}
		h.raw(`</tr></thead><tbody>`)

		for _, row := range v.Rows {
			h.raw(`<tr class="smart-table__row"`)
			h.attr("data-row", strconv.Itoa(row.Index))
			h.attr("hx-post", fmt.Sprintf("%s/rows/%d/click", basePath, row.Index))
			h.attr("hx-vals", hxVals(map[string]any{"region": "cell"}))
			h.attr("hx-swap", "none")
			h.raw(">")
			for i, cell := range row.Cells {
				writeCell(h, v.Columns[i], cell, row.Index, basePath)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></div>`)
		return h.err
	})
}

func writeHeader(h *htmlWriter, c ColumnView, basePath string) {
	h.raw(`<th`)
	h.attr("data-column", c.Key)
	if c.Sortable && c.SortDirection != "" {
		h.attr("aria-sort", ariaSort(c.SortDirection))
	}
	h.raw(">")

	if c.Strategy == plan.StrategyMedia {
		h.raw(`<input type="checkbox" class="select-all"`)
		h.attr("hx-post", fmt.Sprintf("%s/selection/%s/toggle-all", basePath, url.PathEscape(c.Key)))
		if c.SelectionState == selection.StateFull {
			h.raw(" checked")
		}
		if c.SelectionState == selection.StatePartial {
			h.raw(` data-indeterminate="true"`)
		}
		h.raw(">")
	}

	if c.Sortable {
		h.raw(`<button type="button" class="sort"`)
		h.attr("hx-post", basePath+"/sort")
		h.attr("hx-vals", hxVals(map[string]any{"field": c.Key}))
		h.raw(">")
	}
	h.text(c.Header)
	if c.SortDirection == model.Asc {
		h.raw(" ▲")
	} else if c.SortDirection == model.Desc {
		h.raw(" ▼")
	}
	if c.Sortable {
		h.raw(`</button>`)
	}

	// Архив скачивается обычной отправкой формы: ответ не подставляется в таблицу
	if c.Strategy == plan.StrategyMedia && c.SelectedCount > 0 {
		h.raw(`<form class="export" method="post" hx-disable`)
		h.attr("action", fmt.Sprintf("%s/export/%s?format=zip", basePath, url.PathEscape(c.Key)))
		h.raw(`><button type="submit">`)
		h.text(fmt.Sprintf("Скачать (%d)", c.SelectedCount))
		h.raw(`</button></form>`)
	}
	h.raw(`</th>`)
}

func writeCell(h *htmlWriter, c ColumnView, cell CellView, row int, basePath string) {
	h.raw(`<td`)
	h.attr("data-column", cell.Key)
	h.raw(">")
	defer h.raw(`</td>`)

	if cell.Empty {
		h.raw(`<span class="empty">—</span>`)
		return
	}
	if cell.Media == nil {
		h.text(cell.Text)
		return
	}

	m := cell.Media
	cellPath := fmt.Sprintf("%s/rows/%d/cells/%s", basePath, row, url.PathEscape(c.Key))

	h.raw(`<input type="checkbox" class="select"`)
	h.attr("hx-post", fmt.Sprintf("%s/selection/%s/toggle", basePath, url.PathEscape(c.Key)))
	h.attr("hx-vals", hxVals(map[string]any{"row": row}))
	h.attr("hx-trigger", "click consume")
	if cell.Selected {
		h.raw(" checked")
	}
	h.raw(">")

	h.raw(`<span class="media-icon">`)
	h.text(mediaIcons[m.Kind])
	h.raw(`</span><span class="file-name"`)
	h.attr("title", export.SafeURL(m.URL))
	h.raw(">")
	h.text(m.FileName)
	h.raw(`</span>`)
	if m.SizeLabel != "" {
		h.raw(`<span class="file-size">`)
		h.text(m.SizeLabel)
		h.raw(`</span>`)
	}

	if m.Previewable {
		h.raw(`<a class="preview" target="_blank" rel="noopener"`)
		h.attr("href", cellPath+"/preview")
		h.raw(`>Просмотр</a>`)
	}

	if cell.Loading {
		h.raw(`<span class="loading" aria-busy="true">…</span>`)
		return
	}
	h.raw(`<a class="download"`)
	h.attr("href", cellPath+"/download")
	h.raw(`>Скачать</a>`)
}

// hxVals кодирует параметры hx-vals в JSON.
func hxVals(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func ariaSort(d model.Direction) string {
	if d == model.Desc {
		return "descending"
	}
	return "ascending"
}
