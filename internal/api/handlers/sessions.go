// sessions.go — открытие и закрытие сессий, сортировка, клики по строкам.
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/talentdesk/internal/api/errors"
	"github.com/bigkaa/talentdesk/internal/api/generated"
	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/service"
	"github.com/bigkaa/talentdesk/internal/session"
	"github.com/bigkaa/talentdesk/internal/table/renderer"
)

// sessionViewResponse — снимок сессии в JSON.
type sessionViewResponse struct {
	SessionID string        `json:"session_id"`
	Table     string        `json:"table"`
	CreatedAt time.Time     `json:"created_at"`
	View      renderer.View `json:"view"`
}

func newSessionView(sess *session.Session) sessionViewResponse {
	return sessionViewResponse{
		SessionID: sess.ID,
		Table:     sess.Table,
		CreatedAt: sess.CreatedAt,
		View:      sess.Renderer.Snapshot(),
	}
}

// ListTables — список доступных таблиц.
func (h *APIHandler) ListTables(w http.ResponseWriter, _ *http.Request) {
	catalog := h.tables.Catalog()
	resp := generated.TableList{Tables: []generated.TableInfo{}, MediaVocabulary: h.tables.MediaTerms()}
	for _, name := range catalog.Names() {
		resp.Tables = append(resp.Tables, generated.TableInfo{
			Name:  name,
			Title: catalog.Profile(name).Title,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// OpenSession — открытие таблицы в новой сессии рендеринга.
// Клиенту HTMX возвращается HX-Redirect на страницу сессии.
func (h *APIHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req generated.OpenSessionRequest
	err := decodeRequest(r, &req, func(form url.Values) error {
		req.Table = form.Get("table")
		if v := form.Get("limit"); v != "" {
			limit, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("limit: некорректное целое число %q", v)
			}
			req.Limit = &limit
		}
		if v := form.Get("sort_field"); v != "" {
			req.SortField = &v
		}
		if v := form.Get("sort_direction"); v != "" {
			req.SortDirection = &v
		}
		return nil
	})
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if req.Table == "" {
		apierrors.ValidationError(w, "Не указана таблица")
		return
	}

	params := service.OpenParams{Table: req.Table, Owner: owner(r)}
	if req.Limit != nil {
		params.Limit = *req.Limit
	}
	if req.SortField != nil && *req.SortField != "" {
		spec := model.SortSpec{Field: *req.SortField, Direction: model.Asc}
		if req.SortDirection != nil {
			spec.Direction = model.ParseDirection(*req.SortDirection)
		}
		params.Sort = &spec
	}

	sess, err := h.tables.Open(r.Context(), params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Location", sessionPath(sess.ID))
	if isHTMX(r) {
		w.Header().Set("HX-Redirect", "/ui/sessions/"+sess.ID)
	}
	writeJSON(w, http.StatusCreated, newSessionView(sess))
}

// GetSession — снимок таблицы сессии.
func (h *APIHandler) GetSession(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId) {
	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	h.respondTable(w, r, sess, http.StatusOK, newSessionView(sess))
}

// CloseSession — закрытие сессии.
func (h *APIHandler) CloseSession(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId) {
	if err := h.tables.Close(sessionId.String(), owner(r)); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReloadSession — перечитывание записей с сохранением выбора и сортировки.
func (h *APIHandler) ReloadSession(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId) {
	sess, err := h.tables.Reload(r.Context(), sessionId.String(), owner(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondTable(w, r, sess, http.StatusOK, newSessionView(sess))
}

// ActivateSort — активация заголовка колонки: повторная активация
// меняет направление, новая колонка сортируется по возрастанию.
func (h *APIHandler) ActivateSort(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId) {
	var req generated.SortRequest
	err := decodeRequest(r, &req, func(form url.Values) error {
		req.Field = form.Get("field")
		return nil
	})
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if req.Field == "" {
		apierrors.ValidationError(w, "Не указано поле сортировки")
		return
	}

	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	spec, err := sess.Renderer.ActivateHeader(req.Field)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondTable(w, r, sess, http.StatusOK, spec)
}

// ClickRow — клик по строке. Клик по области ячейки поднимает событие
// выбора строки (200), клик по элементу управления поглощается (204).
// Клиенту HTMX событие передаётся заголовком HX-Trigger.
func (h *APIHandler) ClickRow(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId, row generated.Row) {
	var req generated.ClickRequest
	err := decodeRequest(r, &req, func(form url.Values) error {
		if v := form.Get("region"); v != "" {
			req.Region = &v
		}
		return nil
	})
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	region := renderer.RegionCell
	if req.Region != nil {
		region = renderer.ParseRegion(*req.Region)
	}

	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	ev, err := sess.Renderer.Click(row, region)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ev == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if isHTMX(r) {
		trigger, err := json.Marshal(map[string]any{"rowSelected": ev})
		if err == nil {
			w.Header().Set("HX-Trigger", string(trigger))
		} else {
			h.logger.Debug("Событие строки не сериализовано", slog.String("error", err.Error()))
		}
	}
	writeJSON(w, http.StatusOK, ev)
}
