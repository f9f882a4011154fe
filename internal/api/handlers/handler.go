// handler.go — основной обработчик API, реализующий generated.ServerInterface.
// Объединяет health и обработчики сессий таблиц.
// Клиентам HTMX (заголовок HX-Request) операции над таблицей отвечают
// HTML-фрагментом таблицы, остальным — JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	apierrors "github.com/bigkaa/talentdesk/internal/api/errors"
	"github.com/bigkaa/talentdesk/internal/api/generated"
	"github.com/bigkaa/talentdesk/internal/api/middleware"
	"github.com/bigkaa/talentdesk/internal/repository"
	"github.com/bigkaa/talentdesk/internal/service"
	"github.com/bigkaa/talentdesk/internal/session"
	"github.com/bigkaa/talentdesk/internal/table/renderer"
)

// Проверка соответствия интерфейсу.
var _ generated.ServerInterface = (*APIHandler)(nil)

// APIHandler — основной обработчик API talentdesk.
// Реализует generated.ServerInterface, делегируя запросы в сервисный слой.
type APIHandler struct {
	health *HealthHandler
	tables *service.TableService
	logger *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	tables *service.TableService,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health: health,
		tables: tables,
		logger: logger.With(slog.String("component", "api_handler")),
	}
}

// --- Health endpoints (делегируются в HealthHandler) ---

// HealthLive — проверка живости процесса.
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — проверка готовности зависимостей.
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики.
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// owner возвращает владельца сессий для запроса.
func owner(r *http.Request) string {
	return middleware.SubjectFromContext(r.Context())
}

// isHTMX — запрос отправлен HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sessionPath — префикс маршрутов сессии.
func sessionPath(id string) string {
	return "/api/v1/sessions/" + id
}

// session возвращает сессию владельца запроса, при ошибке пишет ответ.
func (h *APIHandler) session(w http.ResponseWriter, r *http.Request, id generated.SessionId) (*session.Session, bool) {
	sess, err := h.tables.Get(id.String(), owner(r))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return sess, true
}

// respondTable отвечает HTML-фрагментом таблицы клиенту HTMX
// или JSON-телом data остальным клиентам.
func (h *APIHandler) respondTable(w http.ResponseWriter, r *http.Request, sess *session.Session, status int, data any) {
	if !isHTMX(r) {
		writeJSON(w, status, data)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	view := renderer.TableView(sess.Renderer.Snapshot(), sessionPath(sess.ID))
	if err := view.Render(r.Context(), w); err != nil {
		h.logger.Warn("Ошибка отрисовки таблицы",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}

// decodeRequest разбирает тело запроса: JSON или форму HTMX.
// fromForm заполняет структуру из значений формы.
func decodeRequest(r *http.Request, dst any, fromForm func(url.Values) error) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("разбор формы: %w", err)
		}
		return fromForm(r.PostForm)
	default:
		if r.Body == nil || r.Body == http.NoBody {
			return nil
		}
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(dst); err != nil {
			return fmt.Errorf("разбор JSON: %w", err)
		}
		return nil
	}
}

// writeError сопоставляет ошибку сервисного слоя HTTP-ответу.
func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		apierrors.SessionNotFound(w, "Сессия не найдена или истекла")
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, "Сессия принадлежит другому пользователю")
	case errors.Is(err, service.ErrInvalidLimit),
		errors.Is(err, repository.ErrUnknownTable):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, renderer.ErrRowOutOfRange),
		errors.Is(err, renderer.ErrUnknownColumn),
		errors.Is(err, renderer.ErrEmptyCell):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, renderer.ErrNotMediaColumn):
		apierrors.NotMediaColumn(w, err.Error())
	case errors.Is(err, renderer.ErrNotSortable):
		apierrors.NotSortable(w, err.Error())
	case errors.Is(err, renderer.ErrNotPreviewable):
		apierrors.NotPreviewable(w, err.Error())
	case errors.Is(err, renderer.ErrNoExporter):
		apierrors.ExportDisabled(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}
