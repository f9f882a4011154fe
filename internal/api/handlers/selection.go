// selection.go — выбор файлов в файловых колонках.
package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	apierrors "github.com/bigkaa/talentdesk/internal/api/errors"
	"github.com/bigkaa/talentdesk/internal/api/generated"
	"github.com/bigkaa/talentdesk/internal/session"
)

func selectionResponse(sess *session.Session, column string, selected *bool) generated.SelectionResponse {
	return generated.SelectionResponse{
		Column:        column,
		Selected:      selected,
		State:         string(sess.Renderer.SelectionState(column)),
		SelectedCount: sess.Renderer.SelectedCount(column),
	}
}

// ToggleSelection — переключение выбора файловой ячейки строки.
func (h *APIHandler) ToggleSelection(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId, column generated.Column) {
	var req generated.ToggleRequest
	req.Row = -1
	err := decodeRequest(r, &req, func(form url.Values) error {
		v := form.Get("row")
		row, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("row: некорректное целое число %q", v)
		}
		req.Row = row
		return nil
	})
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}
	if req.Row < 0 {
		apierrors.ValidationError(w, "Не указана строка")
		return
	}

	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	selected, err := sess.Renderer.Toggle(req.Row, column)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondTable(w, r, sess, http.StatusOK, selectionResponse(sess, column, &selected))
}

// ToggleAllSelection — «выбрать всё / снять всё» для колонки.
func (h *APIHandler) ToggleAllSelection(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId, column generated.Column) {
	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	selected, err := sess.Renderer.ToggleAll(column)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.respondTable(w, r, sess, http.StatusOK, selectionResponse(sess, column, &selected))
}

// ClearSelection — очистка выбора колонки.
func (h *APIHandler) ClearSelection(w http.ResponseWriter, r *http.Request, sessionId generated.SessionId, column generated.Column) {
	sess, ok := h.session(w, r, sessionId)
	if !ok {
		return
	}
	if err := sess.Renderer.ClearSelection(column); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondTable(w, r, sess, http.StatusOK, selectionResponse(sess, column, nil))
}
