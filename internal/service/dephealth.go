// dephealth.go — граф зависимостей talentdesk для topologymetrics.
//
// Вершины: postgresql (источник записей, critical, проверка через общий
// pgxpool) и file-origin (хранилище фото и резюме, не critical: без него
// таблицы открываются, скачивания уходят в просмотр по ссылке).
// Метрики app_dependency_health и app_dependency_latency_seconds
// отдаются на /metrics.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // фабрика HTTP checker
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// Имена зависимостей в графе.
const (
	DepPostgres   = "postgresql"
	DepFileOrigin = "file-origin"
)

// DephealthConfig — параметры мониторинга.
type DephealthConfig struct {
	ServiceID     string
	Group         string // TD_DEPHEALTH_GROUP
	PgConnURL     string // только для лейблов host/port
	FileOriginURL string // пусто — хранилище не мониторится
	CheckInterval time.Duration
	IsEntry       bool // лейбл isentry=yes
}

// DephealthService — мониторинг зависимостей talentdesk.
type DephealthService struct {
	dh     *dephealth.DepHealth
	deps   []string
	logger *slog.Logger
}

// NewDephealthService регистрирует метрики в глобальном registry.
// db — адаптер pgxpool (stdlib.OpenDBFromPool).
func NewDephealthService(cfg DephealthConfig, db *sql.DB, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger)
}

// NewDephealthServiceWithRegisterer — то же с отдельным registry (тесты).
func NewDephealthServiceWithRegisterer(cfg DephealthConfig, db *sql.DB, logger *slog.Logger, reg prometheus.Registerer) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger, dephealth.WithRegisterer(reg))
}

// fileOriginOptions — проверка хранилища GET на путь из URL origin.
func fileOriginOptions(origin string) []dephealth.DependencyOption {
	opts := []dephealth.DependencyOption{dephealth.FromURL(origin), dephealth.Critical(false)}
	u, err := url.Parse(origin)
	if err != nil {
		return opts
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	opts = append(opts, dephealth.WithHTTPHealthPath(path))
	if u.Scheme == "https" {
		opts = append(opts, dephealth.WithHTTPTLSSkipVerify(false))
	}
	return opts
}

func newDephealthService(cfg DephealthConfig, db *sql.DB, logger *slog.Logger, extra ...dephealth.Option) (*DephealthService, error) {
	shared := []dephealth.DependencyOption{dephealth.CheckInterval(cfg.CheckInterval)}
	if cfg.IsEntry {
		shared = append(shared, dephealth.WithLabel("isentry", "yes"))
	}

	pgOpts := append([]dephealth.DependencyOption{dephealth.FromURL(cfg.PgConnURL), dephealth.Critical(true)}, shared...)
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		dephealth.AddDependency(DepPostgres, dephealth.TypePostgres, pgcheck.New(pgcheck.WithDB(db)), pgOpts...),
	}
	deps := []string{DepPostgres}

	if cfg.FileOriginURL != "" {
		opts = append(opts, dephealth.HTTP(DepFileOrigin, append(fileOriginOptions(cfg.FileOriginURL), shared...)...))
		deps = append(deps, DepFileOrigin)
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, append(opts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("topologymetrics: %w", err)
	}
	return &DephealthService{
		dh:     dh,
		deps:   deps,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает периодические проверки и сразу возвращается.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен", slog.Any("dependencies", ds.deps))
	return ds.dh.Start(ctx)
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health — последнее состояние по ключам "dependency:host:port".
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// Monitors сообщает, есть ли зависимость в графе.
func (ds *DephealthService) Monitors(dep string) bool {
	return slices.Contains(ds.deps, dep)
}

// dependencyHealthy сводит ключи одной зависимости: found — есть хотя бы
// один результат, ok — все результаты успешны.
func dependencyHealthy(health map[string]bool, dep string) (ok, found bool) {
	for key, healthy := range health {
		if key != dep && !strings.HasPrefix(key, dep+":") {
			continue
		}
		if !healthy {
			return false, true
		}
		found = true
	}
	return found, found
}

// DependencyChecker — проверка готовности по последнему результату
// topologymetrics (для /health/ready).
type DependencyChecker struct {
	dep    string
	health func() map[string]bool
}

// Checker возвращает проверку зависимости dep.
func (ds *DephealthService) Checker(dep string) *DependencyChecker {
	return &DependencyChecker{dep: dep, health: ds.Health}
}

// CheckReady: ok — последняя проверка успешна, fail — неуспешна,
// degraded — результатов ещё нет.
func (c *DependencyChecker) CheckReady() (status, message string) {
	ok, found := dependencyHealthy(c.health(), c.dep)
	switch {
	case !found:
		return "degraded", c.dep + ": проверка ещё не выполнялась"
	case !ok:
		return "fail", c.dep + ": недоступно"
	default:
		return "ok", c.dep + ": доступно"
	}
}
