// Пакет errors — ответы об ошибках HTTP API talentdesk в формате
// {"error": {"code": "...", "message": "..."}}.
package errors //nolint:revive // импортируется как apierrors

import (
	"encoding/json"
	"net/http"
)

// Машиночитаемые коды ошибок из OpenAPI-контракта.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotMediaColumn  = "NOT_MEDIA_COLUMN"
	CodeNotSortable     = "NOT_SORTABLE"
	CodeNotPreviewable  = "NOT_PREVIEWABLE"
	CodeExportDisabled  = "EXPORT_DISABLED"
	CodeBadGateway      = "BAD_GATEWAY"
	CodeInternalError   = "INTERNAL_ERROR"
)

// statusByCode — HTTP-статус для каждого кода.
var statusByCode = map[string]int{
	CodeValidationError: http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodeSessionNotFound: http.StatusNotFound,
	CodeUnauthorized:    http.StatusUnauthorized,
	CodeForbidden:       http.StatusForbidden,
	CodeNotMediaColumn:  http.StatusBadRequest,
	CodeNotSortable:     http.StatusBadRequest,
	CodeNotPreviewable:  http.StatusConflict,
	CodeExportDisabled:  http.StatusServiceUnavailable,
	CodeBadGateway:      http.StatusBadGateway,
	CodeInternalError:   http.StatusInternalServerError,
}

// StatusFor возвращает HTTP-статус кода; неизвестный код — 500.
func StatusFor(code string) int {
	if s, ok := statusByCode[code]; ok {
		return s
	}
	return http.StatusInternalServerError
}

type body struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteError пишет ошибку с явным статусом.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	var b body
	b.Error.Code, b.Error.Message = code, message

	// HTMX не подменяет разметку ответом об ошибке
	w.Header().Set("HX-Reswap", "none")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(b)
}

func writer(code string) func(http.ResponseWriter, string) {
	return func(w http.ResponseWriter, message string) {
		WriteError(w, StatusFor(code), code, message)
	}
}

// Ответы для типовых ошибок; статус берётся из statusByCode.
var (
	ValidationError = writer(CodeValidationError)
	NotFound        = writer(CodeNotFound)
	SessionNotFound = writer(CodeSessionNotFound)
	Unauthorized    = writer(CodeUnauthorized)
	Forbidden       = writer(CodeForbidden)
	NotMediaColumn  = writer(CodeNotMediaColumn) // выбор или экспорт по нефайловой колонке
	NotSortable     = writer(CodeNotSortable)
	NotPreviewable  = writer(CodeNotPreviewable)
	ExportDisabled  = writer(CodeExportDisabled) // получение файлов не настроено
	BadGateway      = writer(CodeBadGateway)     // источник файлов ответил ошибкой
	InternalError   = writer(CodeInternalError)
)
