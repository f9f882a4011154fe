// health.go — пробы talentdesk и /metrics.
// Готовность определяется источником записей (PostgreSQL); провайдер
// аутентификации влияет только на degraded.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/talentdesk/internal/config"
)

// ReadinessChecker — проверка одной зависимости.
type ReadinessChecker interface {
	// CheckReady возвращает "ok", "degraded" или "fail" и пояснение.
	CheckReady() (status, message string)
}

// SessionCounter — число открытых сессий рендеринга (session.Store).
type SessionCounter interface {
	Len() int
}

const (
	serviceName = "talentdesk"

	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// dependencyCheck — именованная проверка. Отказ некритичной зависимости
// понижается до degraded.
type dependencyCheck struct {
	name     string
	checker  ReadinessChecker
	critical bool
}

// HealthHandler обслуживает /health/live, /health/ready и /metrics.
type HealthHandler struct {
	checks      []dependencyCheck
	sessions    SessionCounter
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик проб. records — источник записей
// (nil даёт fail), jwks — провайдер аутентификации (nil — не проверяется).
func NewHealthHandler(records, jwks ReadinessChecker) *HealthHandler {
	h := &HealthHandler{promHandler: promhttp.Handler()}
	h.checks = append(h.checks, dependencyCheck{name: "postgresql", checker: records, critical: true})
	if jwks != nil {
		// ключи уже в кэше keyfunc, новые токены проверяются и без провайдера
		h.checks = append(h.checks, dependencyCheck{name: "jwks", checker: jwks})
	}
	return h
}

// WithCheck добавляет некритичную проверку: её fail даёт degraded.
func (h *HealthHandler) WithCheck(name string, c ReadinessChecker) *HealthHandler {
	h.checks = append(h.checks, dependencyCheck{name: name, checker: c})
	return h
}

// WithSessions добавляет в liveness число открытых сессий.
func (h *HealthHandler) WithSessions(c SessionCounter) *HealthHandler {
	h.sessions = c
	return h
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type liveResponse struct {
	Status       string `json:"status"`
	Service      string `json:"service"`
	Version      string `json:"version"`
	Timestamp    string `json:"timestamp"`
	OpenSessions *int   `json:"open_sessions,omitempty"`
}

type readyResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks"`
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// HealthLive всегда 200, пока процесс обслуживает запросы.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := liveResponse{
		Status:    statusOK,
		Service:   serviceName,
		Version:   config.Version,
		Timestamp: now(),
	}
	if h.sessions != nil {
		n := h.sessions.Len()
		resp.OpenSessions = &n
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthReady опрашивает зависимости параллельно: 200 для ok и degraded,
// 503 для fail.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	results := h.runChecks(r.Context())

	overall := statusOK
	for _, res := range results {
		switch res.Status {
		case statusFail:
			overall = statusFail
		case statusDegraded:
			if overall == statusOK {
				overall = statusDegraded
			}
		}
	}

	code := http.StatusOK
	if overall == statusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, readyResponse{
		Status:    overall,
		Service:   serviceName,
		Version:   config.Version,
		Timestamp: now(),
		Checks:    results,
	})
}

func (h *HealthHandler) runChecks(ctx context.Context) map[string]checkResult {
	out := make([]checkResult, len(h.checks))
	g, _ := errgroup.WithContext(ctx)
	for i, c := range h.checks {
		g.Go(func() error {
			if c.checker == nil {
				out[i] = checkResult{Status: statusFail, Message: "не инициализирован"}
				return nil
			}
			status, msg := c.checker.CheckReady()
			if status == statusFail && !c.critical {
				status = statusDegraded
			}
			out[i] = checkResult{Status: status, Message: msg}
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string]checkResult, len(h.checks))
	for i, c := range h.checks {
		results[c.name] = out[i]
	}
	return results
}

// GetMetrics отдаёт метрики Prometheus.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
