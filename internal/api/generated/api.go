// Пакет generated — типы, интерфейс сервера и chi-маршрутизация
// по контракту openapi.yaml (стиль oapi-codegen chi-server).
// Привязка path/query параметров выполняется oapi-codegen/runtime.
package generated

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
)

//go:embed openapi.yaml
var specYAML []byte

// --- Типы параметров ---

// SessionId — идентификатор сессии рендеринга.
type SessionId = openapi_types.UUID

// Column — ключ колонки таблицы.
type Column = string

// Row — позиция строки в текущем представлении.
type Row = int

// ExportSelectedParamsFormat — формат пакетного экспорта.
type ExportSelectedParamsFormat string

const (
	ExportSelectedParamsFormatZip ExportSelectedParamsFormat = "zip"
	ExportSelectedParamsFormatDir ExportSelectedParamsFormat = "dir"
)

// ExportSelectedParams — query-параметры exportSelected.
type ExportSelectedParams struct {
	Format *ExportSelectedParamsFormat `form:"format,omitempty" json:"format,omitempty"`
}

// --- Тела запросов ---

// OpenSessionRequest — тело openSession.
type OpenSessionRequest struct {
	Table         string  `json:"table"`
	Limit         *int    `json:"limit,omitempty"`
	SortField     *string `json:"sort_field,omitempty"`
	SortDirection *string `json:"sort_direction,omitempty"`
}

// SortRequest — тело activateSort.
type SortRequest struct {
	Field string `json:"field"`
}

// ToggleRequest — тело toggleSelection.
type ToggleRequest struct {
	Row int `json:"row"`
}

// ClickRequest — тело clickRow.
type ClickRequest struct {
	Region *string `json:"region,omitempty"`
}

// --- Ответы ---

// TableInfo — элемент списка таблиц.
type TableInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// TableList — ответ listTables.
type TableList struct {
	Tables          []TableInfo `json:"tables"`
	MediaVocabulary []string    `json:"media_vocabulary,omitempty"`
}

// SelectionResponse — состояние выбора колонки.
type SelectionResponse struct {
	Column        string `json:"column"`
	Selected      *bool  `json:"selected,omitempty"`
	State         string `json:"state"`
	SelectedCount int    `json:"selected_count"`
}

// ServerInterface — обработчики всех операций контракта.
type ServerInterface interface {
	// (GET /health/live)
	HealthLive(w http.ResponseWriter, r *http.Request)
	// (GET /health/ready)
	HealthReady(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	GetMetrics(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/tables)
	ListTables(w http.ResponseWriter, r *http.Request)
	// (POST /api/v1/sessions)
	OpenSession(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/sessions/{session_id})
	GetSession(w http.ResponseWriter, r *http.Request, sessionId SessionId)
	// (DELETE /api/v1/sessions/{session_id})
	CloseSession(w http.ResponseWriter, r *http.Request, sessionId SessionId)
	// (POST /api/v1/sessions/{session_id}/reload)
	ReloadSession(w http.ResponseWriter, r *http.Request, sessionId SessionId)
	// (POST /api/v1/sessions/{session_id}/sort)
	ActivateSort(w http.ResponseWriter, r *http.Request, sessionId SessionId)
	// (DELETE /api/v1/sessions/{session_id}/selection/{column})
	ClearSelection(w http.ResponseWriter, r *http.Request, sessionId SessionId, column Column)
	// (POST /api/v1/sessions/{session_id}/selection/{column}/toggle)
	ToggleSelection(w http.ResponseWriter, r *http.Request, sessionId SessionId, column Column)
	// (POST /api/v1/sessions/{session_id}/selection/{column}/toggle-all)
	ToggleAllSelection(w http.ResponseWriter, r *http.Request, sessionId SessionId, column Column)
	// (POST /api/v1/sessions/{session_id}/rows/{row}/click)
	ClickRow(w http.ResponseWriter, r *http.Request, sessionId SessionId, row Row)
	// (GET /api/v1/sessions/{session_id}/rows/{row}/cells/{column}/download)
	DownloadCell(w http.ResponseWriter, r *http.Request, sessionId SessionId, row Row, column Column)
	// (GET /api/v1/sessions/{session_id}/rows/{row}/cells/{column}/preview)
	PreviewCell(w http.ResponseWriter, r *http.Request, sessionId SessionId, row Row, column Column)
	// (POST /api/v1/sessions/{session_id}/export/{column})
	ExportSelected(w http.ResponseWriter, r *http.Request, sessionId SessionId, column Column, params ExportSelectedParams)
	// (GET /api/v1/sessions/{session_id}/workbook)
	DownloadWorkbook(w http.ResponseWriter, r *http.Request, sessionId SessionId)
	// (GET /ui/sessions/{session_id})
	GetSessionPage(w http.ResponseWriter, r *http.Request, sessionId SessionId)
}

// InvalidParamFormatError — параметр запроса не соответствует контракту.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Некорректный формат параметра %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ChiServerOptions — параметры маршрутизации.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// ServerInterfaceWrapper привязывает параметры и вызывает обработчик.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) sessionID(w http.ResponseWriter, r *http.Request) (SessionId, bool) {
	var sessionId SessionId
	err := runtime.BindStyledParameterWithOptions("simple", "session_id", chi.URLParam(r, "session_id"), &sessionId,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "session_id", Err: err})
		return sessionId, false
	}
	return sessionId, true
}

func (siw *ServerInterfaceWrapper) column(w http.ResponseWriter, r *http.Request) (Column, bool) {
	var column Column
	err := runtime.BindStyledParameterWithOptions("simple", "column", chi.URLParam(r, "column"), &column,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "column", Err: err})
		return column, false
	}
	return column, true
}

func (siw *ServerInterfaceWrapper) row(w http.ResponseWriter, r *http.Request) (Row, bool) {
	var row Row
	err := runtime.BindStyledParameterWithOptions("simple", "row", chi.URLParam(r, "row"), &row,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "row", Err: err})
		return row, false
	}
	return row, true
}

// HealthLive operation middleware
func (siw *ServerInterfaceWrapper) HealthLive(w http.ResponseWriter, r *http.Request) {
	siw.Handler.HealthLive(w, r)
}

// HealthReady operation middleware
func (siw *ServerInterfaceWrapper) HealthReady(w http.ResponseWriter, r *http.Request) {
	siw.Handler.HealthReady(w, r)
}

// GetMetrics operation middleware
func (siw *ServerInterfaceWrapper) GetMetrics(w http.ResponseWriter, r *http.Request) {
	siw.Handler.GetMetrics(w, r)
}

// ListTables operation middleware
func (siw *ServerInterfaceWrapper) ListTables(w http.ResponseWriter, r *http.Request) {
	siw.Handler.ListTables(w, r)
}

// OpenSession operation middleware
func (siw *ServerInterfaceWrapper) OpenSession(w http.ResponseWriter, r *http.Request) {
	siw.Handler.OpenSession(w, r)
}

// GetSession operation middleware
func (siw *ServerInterfaceWrapper) GetSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.GetSession(w, r, id)
	}
}

// CloseSession operation middleware
func (siw *ServerInterfaceWrapper) CloseSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.CloseSession(w, r, id)
	}
}

// ReloadSession operation middleware
func (siw *ServerInterfaceWrapper) ReloadSession(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.ReloadSession(w, r, id)
	}
}

// ActivateSort operation middleware
func (siw *ServerInterfaceWrapper) ActivateSort(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.ActivateSort(w, r, id)
	}
}

// ClearSelection operation middleware
func (siw *ServerInterfaceWrapper) ClearSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	if column, ok := siw.column(w, r); ok {
		siw.Handler.ClearSelection(w, r, id, column)
	}
}

// ToggleSelection operation middleware
func (siw *ServerInterfaceWrapper) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	if column, ok := siw.column(w, r); ok {
		siw.Handler.ToggleSelection(w, r, id, column)
	}
}

// ToggleAllSelection operation middleware
func (siw *ServerInterfaceWrapper) ToggleAllSelection(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	if column, ok := siw.column(w, r); ok {
		siw.Handler.ToggleAllSelection(w, r, id, column)
	}
}

// ClickRow operation middleware
func (siw *ServerInterfaceWrapper) ClickRow(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	if row, ok := siw.row(w, r); ok {
		siw.Handler.ClickRow(w, r, id, row)
	}
}

// DownloadCell operation middleware
func (siw *ServerInterfaceWrapper) DownloadCell(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	row, ok := siw.row(w, r)
	if !ok {
		return
	}
	if column, ok := siw.column(w, r); ok {
		siw.Handler.DownloadCell(w, r, id, row, column)
	}
}

// PreviewCell operation middleware
func (siw *ServerInterfaceWrapper) PreviewCell(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	row, ok := siw.row(w, r)
	if !ok {
		return
	}
	if column, ok := siw.column(w, r); ok {
		siw.Handler.PreviewCell(w, r, id, row, column)
	}
}

// ExportSelected operation middleware
func (siw *ServerInterfaceWrapper) ExportSelected(w http.ResponseWriter, r *http.Request) {
	id, ok := siw.sessionID(w, r)
	if !ok {
		return
	}
	column, ok := siw.column(w, r)
	if !ok {
		return
	}

	var params ExportSelectedParams
	err := runtime.BindQueryParameter("form", true, false, "format", r.URL.Query(), &params.Format)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "format", Err: err})
		return
	}
	siw.Handler.ExportSelected(w, r, id, column, params)
}

// DownloadWorkbook operation middleware
func (siw *ServerInterfaceWrapper) DownloadWorkbook(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.DownloadWorkbook(w, r, id)
	}
}

// GetSessionPage operation middleware
func (siw *ServerInterfaceWrapper) GetSessionPage(w http.ResponseWriter, r *http.Request) {
	if id, ok := siw.sessionID(w, r); ok {
		siw.Handler.GetSessionPage(w, r, id)
	}
}

// HandlerFromMux регистрирует маршруты контракта в переданном chi.Router.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{BaseRouter: r})
}

// HandlerWithOptions регистрирует маршруты с параметрами.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}
	base := options.BaseURL

	r.Get(base+"/health/live", wrapper.HealthLive)
	r.Get(base+"/health/ready", wrapper.HealthReady)
	r.Get(base+"/metrics", wrapper.GetMetrics)

	r.Get(base+"/api/v1/tables", wrapper.ListTables)
	r.Post(base+"/api/v1/sessions", wrapper.OpenSession)
	r.Get(base+"/api/v1/sessions/{session_id}", wrapper.GetSession)
	r.Delete(base+"/api/v1/sessions/{session_id}", wrapper.CloseSession)
	r.Post(base+"/api/v1/sessions/{session_id}/reload", wrapper.ReloadSession)
	r.Post(base+"/api/v1/sessions/{session_id}/sort", wrapper.ActivateSort)
	r.Delete(base+"/api/v1/sessions/{session_id}/selection/{column}", wrapper.ClearSelection)
	r.Post(base+"/api/v1/sessions/{session_id}/selection/{column}/toggle", wrapper.ToggleSelection)
	r.Post(base+"/api/v1/sessions/{session_id}/selection/{column}/toggle-all", wrapper.ToggleAllSelection)
	r.Post(base+"/api/v1/sessions/{session_id}/rows/{row}/click", wrapper.ClickRow)
	r.Get(base+"/api/v1/sessions/{session_id}/rows/{row}/cells/{column}/download", wrapper.DownloadCell)
	r.Get(base+"/api/v1/sessions/{session_id}/rows/{row}/cells/{column}/preview", wrapper.PreviewCell)
	r.Post(base+"/api/v1/sessions/{session_id}/export/{column}", wrapper.ExportSelected)
	r.Get(base+"/api/v1/sessions/{session_id}/workbook", wrapper.DownloadWorkbook)
	r.Get(base+"/ui/sessions/{session_id}", wrapper.GetSessionPage)

	return r
}

var (
	swaggerOnce sync.Once
	swaggerDoc  *openapi3.T
	swaggerErr  error
)

// GetSwagger возвращает разобранный контракт openapi.yaml.
func GetSwagger() (*openapi3.T, error) {
	swaggerOnce.Do(func() {
		loader := openapi3.NewLoader()
		swaggerDoc, swaggerErr = loader.LoadFromData(specYAML)
		if swaggerErr != nil {
			swaggerErr = fmt.Errorf("ошибка загрузки openapi.yaml: %w", swaggerErr)
		}
	})
	return swaggerDoc, swaggerErr
}

// SpecYAML возвращает исходный текст контракта.
func SpecYAML() []byte {
	return specYAML
}
