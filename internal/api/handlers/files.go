// files.go — скачивание и превью файлов ячеек, пакетный экспорт, выгрузка XLSX.
package handlers

import (
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/talentdesk/internal/api/errors"
	"github.com/bigkaa/talentdesk/internal/api/generated"
	"github.com/bigkaa/talentdesk/internal/export"
)

const (
	contentTypeZip  = "application/zip"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// attachmentWriter выставляет заголовки вложения при первой записи.
// Пока ничего не записано, обработчик может ответить ошибкой в JSON.
type attachmentWriter struct {
	w           http.ResponseWriter
	contentType string
	fileName    string
	started     bool
}

func (a *attachmentWriter) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		a.w.Header().Set("Content-Type", a.contentType)
		a.w.Header().Set("Content-Disposition", contentDisposition(a.fileName))
		a.w.WriteHeader(http.StatusOK)
	}
	return a.w.Write(p)
}

// contentDisposition формирует заголовок вложения (RFC 6266, filename* для не-ASCII).
func contentDisposition(name string) string {
	if name == "" {
		name = "file"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

// DownloadCell — скачивание файла ячейки. При неудаче клиент
// перенаправляется на внешнее открытие ссылки.
func (h *APIHandler) DownloadCell(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId, row generated.Row, column generated.Column) {
	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	blob, res, err := sess.Renderer.Download(r.Context(), row, column)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if !res.Succeeded() {
		if res.FallbackURL != "" && res.FallbackURL != export.InvalidURL {
			h.logger.Debug("Скачивание не удалось, переход к внешнему открытию",
				slog.String("session_id", sess.ID),
				slog.String("url", res.URL),
				slog.String("error", res.Error),
			)
			http.Redirect(w, r, res.FallbackURL, http.StatusFound)
			return
		}
		apierrors.BadGateway(w, "Не удалось получить файл: "+res.Error)
		return
	}

	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", contentDisposition(blob.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(blob.Data); err != nil {
		h.logger.Debug("Клиент прервал скачивание", slog.String("error", err.Error()))
	}
}

// PreviewCell — переход к безопасной ссылке для просмотра файла
// (только категории image и document).
func (h *APIHandler) PreviewCell(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId, row generated.Row, column generated.Column) {
	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	link, err := sess.Renderer.Preview(r.Context(), row, column)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if link == "" || link == export.InvalidURL {
		apierrors.ValidationError(w, "Ссылка на файл недопустима")
		return
	}
	http.Redirect(w, r, link, http.StatusFound)
}

// ExportSelected — пакетный экспорт выбранных файлов колонки:
// format=zip — ZIP-архив с описью manifest.json в теле ответа,
// format=dir — сохранение в каталог экспорта и опись в JSON.
// После экспорта выбор колонки очищается независимо от результата.
func (h *APIHandler) ExportSelected(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId, column generated.Column, params generated.ExportSelectedParams) {
	format := generated.ExportSelectedParamsFormatZip
	if params.Format != nil {
		format = *params.Format
	}

	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}

	switch format {
	case generated.ExportSelectedParamsFormatDir:
		m, dir, err := h.tables.ExportDir(r.Context(), sess, column)
		if err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, exportDirResponse{Manifest: m, Dir: dir})

	case generated.ExportSelectedParamsFormatZip:
		aw := &attachmentWriter{w: w, contentType: contentTypeZip, fileName: sess.Table + "-" + column + ".zip"}
		results, err := h.tables.ExportZip(r.Context(), sess, column, aw)
		if err != nil {
			if !aw.started {
				h.writeError(w, err)
				return
			}
			// Заголовки уже отправлены: архив оборван, остаётся только лог
			h.logger.Error("Ошибка записи архива",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()),
			)
			return
		}
		h.logger.Info("Архив экспорта отправлен",
			slog.String("session_id", sess.ID),
			slog.String("column", column),
			slog.Int("items", len(results)),
		)

	default:
		apierrors.ValidationError(w, "Недопустимый формат экспорта: "+string(format))
	}
}

// exportDirResponse — опись пакета и каталог экспорта.
type exportDirResponse struct {
	export.Manifest
	Dir string `json:"dir"`
}

// DownloadWorkbook — выгрузка текущего представления в XLSX.
func (h *APIHandler) DownloadWorkbook(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId) {
	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	aw := &attachmentWriter{w: w, contentType: contentTypeXLSX, fileName: sess.Table + ".xlsx"}
	if err := h.tables.Workbook(sess, aw); err != nil {
		if !aw.started {
			h.writeError(w, err)
			return
		}
		h.logger.Error("Ошибка записи XLSX",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}
