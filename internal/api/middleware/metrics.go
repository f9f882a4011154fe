// metrics.go — HTTP-метрики talentdesk. Путь в лейблах — шаблон маршрута
// chi, поэтому id сессий и номера строк не размножают серии.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const unmatchedRoute = "unmatched"

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "td_http_requests_total",
		Help: "HTTP-запросы к talentdesk по маршруту и статусу",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "td_http_request_duration_seconds",
		Help:    "Длительность HTTP-запросов, секунды",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// ZIP-выгрузки бывают в сотни мегабайт
	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "td_http_response_size_bytes",
		Help:    "Размер тела ответа, байты",
		Buckets: prometheus.ExponentialBuckets(256, 8, 8),
	}, []string{"path"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "td_http_requests_in_flight",
		Help: "Запросы в обработке",
	})
)

// MetricsMiddleware считает запросы, длительность, размер ответа
// и число одновременных запросов.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			route := normalizePath(r)
			httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			httpResponseSize.WithLabelValues(route).Observe(float64(rw.written))
		})
	}
}

// normalizePath — шаблон маршрута chi, например
// /api/v1/sessions/{session_id}/rows/{row}/click. Известен только после
// маршрутизации; без совпадения — unmatched.
func normalizePath(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return unmatchedRoute
}
