// ui.go — HTML-страница сессии: таблица с HTMX-взаимодействием.
package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/bigkaa/talentdesk/internal/api/generated"
	"github.com/bigkaa/talentdesk/internal/session"
	"github.com/bigkaa/talentdesk/internal/table/renderer"
)

// htmxScriptURL — адрес скрипта HTMX.
const htmxScriptURL = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

// pageStyle — минимальные стили таблицы.
const pageStyle = `body{font-family:sans-serif;margin:1.5rem}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #ddd;padding:.35rem .5rem;text-align:left;vertical-align:top}
th button.sort{background:none;border:0;font-weight:bold;cursor:pointer}
tr.smart-table__row:hover{background:#f6f8fa;cursor:pointer}
.file-size{color:#666;margin-left:.3rem}
.empty{color:#aaa}
.toolbar a{margin-right:1rem}`

// sessionPage — полная HTML-страница сессии.
func sessionPage(sess *session.Session, view renderer.View) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		base := sessionPath(sess.ID)
		title := templ.EscapeString(sess.Table)

		head := `<!DOCTYPE html><html lang="ru"><head><meta charset="utf-8">` +
			`<title>` + title + ` — talentdesk</title>` +
			`<script src="` + htmxScriptURL + `"></script>` +
			`<style>` + pageStyle + `</style></head><body>` +
			`<h1>` + title + `</h1><nav class="toolbar">` +
			`<a href="` + templ.EscapeString(base+"/workbook") + `">Выгрузить в XLSX</a>` +
			`<a href="#" hx-post="` + templ.EscapeString(base+"/reload") + `" hx-target="#smart-table" hx-swap="outerHTML">Обновить</a>` +
			`</nav>`
		if _, err := io.WriteString(w, head); err != nil {
			return err
		}
		if err := renderer.TableView(view, base).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// GetSessionPage — HTML-страница таблицы сессии.
func (h *APIHandler) GetSessionPage(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId) {
	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := sessionPage(sess, sess.Renderer.Snapshot()).Render(r.Context(), w); err != nil {
		h.logger.Warn("Ошибка отрисовки страницы",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}
