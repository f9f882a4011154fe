package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/export"
	"github.com/bigkaa/talentdesk/internal/repository"
	"github.com/bigkaa/talentdesk/internal/session"
	"github.com/bigkaa/talentdesk/internal/table/classify"
	"github.com/bigkaa/talentdesk/internal/table/renderer"
	"github.com/bigkaa/talentdesk/internal/table/selection"
	"github.com/bigkaa/talentdesk/internal/table/sorting"
)

// AnonymousOwner — владелец сессий при отключённой аутентификации.
const AnonymousOwner = "anonymous"

// Ошибки сервиса таблиц.
var (
	// ErrSessionNotFound — сессия не существует или истекла.
	ErrSessionNotFound = errors.New("сессия не найдена")
	// ErrForbidden — сессия принадлежит другому пользователю.
	ErrForbidden = errors.New("сессия принадлежит другому пользователю")
	// ErrInvalidLimit — лимит строк вне допустимого диапазона.
	ErrInvalidLimit = errors.New("некорректный лимит строк")
)

// Prometheus-метрики сервиса таблиц.
var (
	sessionsOpenedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "td_sessions_opened_total",
		Help: "Открытые сессии рендеринга по таблице.",
	}, []string{"table"})
	rowEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "td_row_events_total",
		Help: "События таблицы по типу (row_selected, sort_changed).",
	}, []string{"kind"})
	mediaColumnsClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "td_media_columns_classified_total",
		Help: "Колонки, классифицированные как файловые, по категории.",
	}, []string{"kind"})
)

// TableServiceConfig — параметры сервиса таблиц.
type TableServiceConfig struct {
	// SampleSize — размер выборки классификатора
	SampleSize int
	// VocabularyExtra — дополнительные термины словаря файловых колонок
	VocabularyExtra []string
	// Keying — идентичность выбора (url или row)
	Keying selection.Keying
	// RowLimit — максимальное число строк сессии
	RowLimit int
	// ExportDir — корневой каталог экспорта в режиме dir
	ExportDir string
	// FileOrigin — базовый URL относительных ссылок на файлы
	FileOrigin string
}

// OpenParams — параметры открытия сессии.
type OpenParams struct {
	Table string
	// Limit — число строк (0 — RowLimit)
	Limit int
	Owner string
	// Sort — начальная сортировка (nil — сортировка профиля таблицы)
	Sort *model.SortSpec
	// Hints — подсказки вызывающего кода, перекрывают профиль
	Hints map[string]model.ColumnHint
}

// TableService — открытие таблиц и управление сессиями рендеринга.
type TableService struct {
	repo      repository.RecordRepository
	catalog   *Catalog
	sessions  *session.Store
	exporter  renderer.Exporter
	predicate classify.MediaPredicate
	terms     []string
	cfg       TableServiceConfig
	origin    *url.URL
	logger    *slog.Logger
}

// NewTableService создаёт сервис таблиц.
func NewTableService(
	repo repository.RecordRepository,
	catalog *Catalog,
	sessions *session.Store,
	exporter renderer.Exporter,
	cfg TableServiceConfig,
	logger *slog.Logger,
) *TableService {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = classify.DefaultSampleSize
	}
	if cfg.RowLimit <= 0 {
		cfg.RowLimit = 1000
	}
	vocabulary := classify.DefaultVocabulary().Extend(cfg.VocabularyExtra...)
	s := &TableService{
		repo:      repo,
		catalog:   catalog,
		sessions:  sessions,
		exporter:  exporter,
		predicate: vocabulary,
		terms:     vocabulary.Terms(),
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "table_service")),
	}
	if cfg.FileOrigin != "" {
		if u, err := url.Parse(cfg.FileOrigin); err == nil && u.IsAbs() {
			s.origin = u
		}
	}
	return s
}

// Catalog возвращает каталог таблиц.
func (s *TableService) Catalog() *Catalog {
	return s.catalog
}

// MediaTerms — подстроки словаря файловых колонок, с учётом TD_MEDIA_VOCABULARY_EXTRA.
func (s *TableService) MediaTerms() []string {
	return slices.Clone(s.terms)
}

// Open загружает записи таблицы и открывает новую сессию рендеринга.
func (s *TableService) Open(ctx context.Context, p OpenParams) (*session.Session, error) {
	limit := p.Limit
	if limit == 0 {
		limit = s.cfg.RowLimit
	}
	if limit < 0 || limit > s.cfg.RowLimit {
		return nil, fmt.Errorf("%w: %d (допустимо 1..%d)", ErrInvalidLimit, limit, s.cfg.RowLimit)
	}
	owner := p.Owner
	if owner == "" {
		owner = AnonymousOwner
	}

	records, err := s.repo.List(ctx, p.Table, limit)
	if err != nil {
		return nil, err
	}

	profile := s.catalog.Profile(p.Table)
	id := uuid.New().String()
	logger := s.logger.With(slog.String("session_id", id), slog.String("table", p.Table))

	initial := profile.DefaultSort
	if p.Sort != nil {
		initial = p.Sort
	}

	r := renderer.New(records, renderer.Options{
		Classifier:  classify.New(s.predicate, classify.WithSampleSize(s.cfg.SampleSize), classify.WithLogger(logger)),
		Sorter:      sorting.NewEngine(profile.SortOptions()...),
		Keying:      s.cfg.Keying,
		RowKey:      s.rowKey(profile),
		Hints:       profile.MergeHints(p.Hints),
		InitialSort: initial,
		Exporter:    s.exporter,
		OnEvent:     s.eventLogger(logger),
		Logger:      logger,
	})

	for _, c := range r.Plan().MediaColumns() {
		mediaColumnsClassified.WithLabelValues(string(c.MediaKind)).Inc()
	}

	sess := &session.Session{
		ID:        id,
		Owner:     owner,
		Table:     p.Table,
		Limit:     limit,
		CreatedAt: time.Now().UTC(),
		Renderer:  r,
	}
	s.sessions.Put(sess)
	sessionsOpenedTotal.WithLabelValues(p.Table).Inc()

	logger.Info("Сессия открыта",
		slog.String("owner", owner),
		slog.Int("rows", len(records)),
		slog.Int("media_columns", len(r.Plan().MediaColumns())),
	)
	return sess, nil
}

func (s *TableService) rowKey(profile TableProfile) selection.RowKeyFunc {
	if s.cfg.Keying != selection.KeyingRow || profile.RowKeyField == "" {
		return nil
	}
	return selection.FieldRowKey(profile.RowKeyField)
}

// eventLogger — получатель событий таблицы: события строк и сортировки
// пишутся в лог и считаются в метриках.
func (s *TableService) eventLogger(logger *slog.Logger) renderer.Listener {
	return func(ev renderer.Event) {
		rowEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
		switch ev.Kind {
		case renderer.EventRowSelected:
			logger.Debug("Выбрана строка", slog.Int("row", ev.Row))
		case renderer.EventSortChanged:
			logger.Debug("Изменена сортировка",
				slog.String("field", ev.Sort.Field),
				slog.String("direction", string(ev.Sort.Direction)),
			)
		}
	}
}

// Get возвращает сессию владельца и продлевает её TTL.
func (s *TableService) Get(id, owner string) (*session.Session, error) {
	if owner == "" {
		owner = AnonymousOwner
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if sess.Owner != owner {
		return nil, ErrForbidden
	}
	s.sessions.Put(sess)
	return sess, nil
}

// Close закрывает сессию владельца.
func (s *TableService) Close(id, owner string) error {
	if _, err := s.Get(id, owner); err != nil {
		return err
	}
	s.sessions.Delete(id)
	s.logger.Info("Сессия закрыта", slog.String("session_id", id))
	return nil
}

// Reload перечитывает записи таблицы сессии и выполняет новый проход
// рендеринга с ограничением строк, заданным при открытии.
// Выбор и сортировка сохраняются.
func (s *TableService) Reload(ctx context.Context, id, owner string) (*session.Session, error) {
	sess, err := s.Get(id, owner)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.List(ctx, sess.Table, sess.Limit)
	if err != nil {
		return nil, err
	}
	sess.Renderer.SetRecords(records)
	return sess, nil
}

// ExportZip выполняет пакетный экспорт выбранных файлов колонки
// в ZIP-архив, записываемый в w. Архив содержит опись manifest.json.
func (s *TableService) ExportZip(ctx context.Context, sess *session.Session, column string, w io.Writer) ([]model.DownloadResult, error) {
	zs := export.NewZipSaver(w)
	results, err := sess.Renderer.ExportSelected(ctx, column, zs)
	if err != nil {
		return nil, err
	}
	if err := zs.Finish(export.NewManifest(uuid.New().String(), column, results)); err != nil {
		return results, err
	}
	return results, nil
}

// ExportDir выполняет пакетный экспорт в каталог ExportDir/<batch_id>.
// Возвращает опись пакета и каталог.
func (s *TableService) ExportDir(ctx context.Context, sess *session.Session, column string) (export.Manifest, string, error) {
	batchID := uuid.New().String()
	ds, err := export.NewDirSaver(s.cfg.ExportDir, batchID)
	if err != nil {
		return export.Manifest{}, "", err
	}
	results, err := sess.Renderer.ExportSelected(ctx, column, ds)
	if err != nil {
		return export.Manifest{}, "", err
	}
	m := export.NewManifest(batchID, column, results)
	if err := ds.WriteManifest(m); err != nil {
		return m, ds.Dir(), err
	}
	s.logger.Info("Экспорт сохранён в каталог",
		slog.String("session_id", sess.ID),
		slog.String("dir", ds.Dir()),
		slog.Int("succeeded", m.Succeeded),
		slog.Int("failed", m.Failed),
	)
	return m, ds.Dir(), nil
}

// Workbook выгружает текущее представление сессии в XLSX.
func (s *TableService) Workbook(sess *session.Session, w io.Writer) error {
	r := sess.Renderer
	return export.WriteWorkbook(w, r.Plan(), r.Rows(), s.ResolveLink)
}

// ResolveLink приводит ссылку на файл к абсолютной безопасной ссылке.
// Недопустимая ссылка превращается в export.InvalidURL.
func (s *TableService) ResolveLink(link string) string {
	u, err := export.ResolveURL(s.origin, link)
	if err != nil {
		return export.InvalidURL
	}
	return export.SafeURL(u.String())
}
