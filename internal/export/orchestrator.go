package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// DefaultConcurrency — ограничение параллельных скачиваний по умолчанию.
const DefaultConcurrency = 4

// Prometheus-метрики экспорта.
var (
	exportItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "td_export_items_total",
		Help: "Количество элементов пакетного экспорта (по итогу).",
	}, []string{"outcome"})

	exportBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "td_export_batch_duration_seconds",
		Help:    "Длительность пакетного экспорта (до завершения всех элементов).",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
	})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "td_downloads_total",
		Help: "Количество одиночных скачиваний ячеек (по итогу).",
	}, []string{"outcome"})

	fetchBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "td_fetch_bytes_total",
		Help: "Общее количество полученных байт файлов.",
	})

	activeFetches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "td_active_fetches",
		Help: "Количество выполняющихся запросов файлов.",
	})
)

// SelectionSource — источник выбора колонки для пакетного экспорта.
// Реализуется selection.Store.
type SelectionSource interface {
	SelectedURLs(column string) []string
	// Deselect снимает выбор только с переданных ссылок
	Deselect(column string, urls []string)
}

// Orchestrator — пакетный экспорт выбранных ссылок.
//
// Каждая ссылка скачивается независимо: ошибка одной не отменяет остальные.
// Результаты возвращаются в порядке выбора, по одному на ссылку.
// При неудаче ссылка передаётся Viewer для открытия во внешнем контексте.
type Orchestrator struct {
	fetcher     Fetcher
	viewer      Viewer
	concurrency int
	logger      *slog.Logger
}

// NewOrchestrator создаёт оркестратор. concurrency <= 0 — без ограничения
// (все ссылки запускаются одновременно).
func NewOrchestrator(fetcher Fetcher, viewer Viewer, concurrency int, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		fetcher:     fetcher,
		viewer:      viewer,
		concurrency: concurrency,
		logger:      logger.With(slog.String("component", "export_orchestrator")),
	}
}

// Concurrency — ограничение параллелизма (<= 0 — без ограничения).
func (o *Orchestrator) Concurrency() int {
	return o.concurrency
}

// ExportSelected экспортирует выбранные ссылки колонки и после завершения
// всех скачиваний безусловно снимает выбор с экспортированных ссылок.
// Ссылки, выбранные во время экспорта, остаются выбранными.
// saver = nil — файлы только скачиваются (результаты без сохранения).
func (o *Orchestrator) ExportSelected(ctx context.Context, sel SelectionSource, column string, saver Saver) []model.DownloadResult {
	urls := sel.SelectedURLs(column)
	defer sel.Deselect(column, urls)

	results := o.Export(ctx, urls, saver)

	o.logger.Info("Пакетный экспорт завершён",
		slog.String("column", column),
		slog.Int("total", len(results)),
		slog.Int("failed", countFailed(results)),
	)
	return results
}

// Export скачивает ссылки с ограниченным параллелизмом и ждёт завершения всех.
// Отмена ctx не прерывает уже запланированные скачивания.
func (o *Orchestrator) Export(ctx context.Context, urls []string, saver Saver) []model.DownloadResult {
	start := time.Now()
	results := make([]model.DownloadResult, len(urls))
	if len(urls) == 0 {
		return results
	}

	// Скачивания доводятся до конца независимо от отмены запроса
	runCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	} else {
		g.SetLimit(-1)
	}

	for i, link := range urls {
		g.Go(func() error {
			results[i] = o.exportOne(runCtx, i, link, saver)
			// Ошибка элемента не должна отменять группу
			return nil
		})
	}
	_ = g.Wait()

	exportBatchDuration.Observe(time.Since(start).Seconds())
	return results
}

// exportOne скачивает и сохраняет одну ссылку. Ошибка сохранения
// считается неудачей элемента.
func (o *Orchestrator) exportOne(ctx context.Context, index int, link string, saver Saver) model.DownloadResult {
	blob, res := o.fetch(ctx, link)
	if res.Succeeded() && saver != nil {
		name, err := saver.Save(ctx, index, blob)
		if err != nil {
			res = o.fail(ctx, link, err)
		} else {
			res.FileName = name
		}
	}
	exportItemsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

// DownloadOne скачивает одну ссылку ячейки. При неудаче результат содержит
// FallbackURL для открытия во внешнем контексте.
func (o *Orchestrator) DownloadOne(ctx context.Context, link string) (Blob, model.DownloadResult) {
	blob, res := o.fetch(ctx, link)
	downloadsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return blob, res
}

// Open передаёт ссылку Viewer (превью).
func (o *Orchestrator) Open(ctx context.Context, link string) (string, error) {
	if o.viewer == nil {
		return SafeURL(link), nil
	}
	return o.viewer.Open(ctx, link)
}

func (o *Orchestrator) fetch(ctx context.Context, link string) (Blob, model.DownloadResult) {
	activeFetches.Inc()
	defer activeFetches.Dec()

	blob, err := o.fetcher.Fetch(ctx, link)
	if err != nil {
		return Blob{}, o.fail(ctx, link, err)
	}
	if blob.FileName == "" {
		blob.FileName = blobFileName("", link)
	}
	fetchBytesTotal.Add(float64(len(blob.Data)))

	return blob, model.DownloadResult{
		URL:      link,
		Outcome:  model.OutcomeSuccess,
		FileName: blob.FileName,
		Bytes:    int64(len(blob.Data)),
	}
}

// fail фиксирует неудачу и выполняет откат на внешнее открытие.
func (o *Orchestrator) fail(ctx context.Context, link string, cause error) model.DownloadResult {
	res := model.DownloadResult{
		URL:     link,
		Outcome: model.OutcomeFailure,
		Error:   cause.Error(),
	}

	o.logger.Warn("Скачивание не удалось, откат на внешнее открытие",
		slog.String("url", link),
		slog.String("error", cause.Error()),
	)

	if o.viewer != nil {
		fallback, err := o.viewer.Open(ctx, link)
		if err != nil {
			o.logger.Debug("Внешнее открытие недоступно",
				slog.String("url", link),
				slog.String("error", err.Error()),
			)
		} else {
			res.FallbackURL = fallback
		}
	}
	return res
}

func countFailed(results []model.DownloadResult) int {
	n := 0
	for _, r := range results {
		if !r.Succeeded() {
			n++
		}
	}
	return n
}
