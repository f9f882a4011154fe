// Пакет renderer — корень композиции таблицы: связывает классификацию
// колонок, план отображения, сортировку, выбор и экспорт файлов
// в одно состояние сессии рендеринга.
//
// Строки адресуются позицией в текущем представлении (view), то есть
// после сортировки. Все методы безопасны для конкурентного вызова;
// скачивания выполняются без удержания блокировки состояния.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bigkaa/talentdesk/internal/domain/model"
	"github.com/bigkaa/talentdesk/internal/export"
	"github.com/bigkaa/talentdesk/internal/table/classify"
	"github.com/bigkaa/talentdesk/internal/table/plan"
	"github.com/bigkaa/talentdesk/internal/table/selection"
	"github.com/bigkaa/talentdesk/internal/table/sorting"
)

// Ошибки renderer.
var (
	// ErrRowOutOfRange — позиция строки вне текущего представления.
	ErrRowOutOfRange = errors.New("строка вне диапазона представления")
	// ErrUnknownColumn — колонка отсутствует в плане.
	ErrUnknownColumn = errors.New("колонка не найдена")
	// ErrNotMediaColumn — операция допустима только для файловой колонки.
	ErrNotMediaColumn = errors.New("колонка не является файловой")
	// ErrNotSortable — колонка не допускает сортировку.
	ErrNotSortable = errors.New("колонка не сортируется")
	// ErrNotPreviewable — категория файлов колонки не поддерживает превью.
	ErrNotPreviewable = errors.New("превью недоступно для категории файлов")
	// ErrEmptyCell — в ячейке нет ссылки на файл.
	ErrEmptyCell = errors.New("ячейка не содержит ссылки на файл")
	// ErrNoExporter — renderer создан без экспортёра.
	ErrNoExporter = errors.New("экспорт файлов не настроен")
)

// Region — область строки, по которой пришёл клик.
type Region string

const (
	// RegionCell — неинтерактивная часть ячейки: клик поднимается как событие строки.
	RegionCell Region = "cell"
	// RegionCheckbox, RegionDownload, RegionPreview — встроенные элементы управления,
	// клик по ним не порождает событие строки.
	RegionCheckbox Region = "checkbox"
	RegionDownload Region = "download"
	RegionPreview  Region = "preview"
)

// ParseRegion разбирает область клика; неизвестное значение — RegionCell.
func ParseRegion(s string) Region {
	switch Region(s) {
	case RegionCheckbox, RegionDownload, RegionPreview:
		return Region(s)
	default:
		return RegionCell
	}
}

// EventKind — тип события для вызывающего кода.
type EventKind string

const (
	EventRowSelected EventKind = "row_selected"
	EventSortChanged EventKind = "sort_changed"
)

// Event — событие, поднимаемое вызывающему коду.
type Event struct {
	Kind EventKind `json:"kind"`
	// Row — позиция строки в представлении (для row_selected)
	Row int `json:"row"`
	// Record — запись строки (для row_selected)
	Record *model.Record `json:"record,omitempty"`
	// Sort — новая сортировка (для sort_changed)
	Sort *model.SortSpec `json:"sort,omitempty"`
}

// Listener — получатель событий. Вызывается вне блокировки состояния.
type Listener func(Event)

// Exporter — скачивание файлов ячеек и пакетный экспорт.
// Реализуется export.Orchestrator.
type Exporter interface {
	ExportSelected(ctx context.Context, sel export.SelectionSource, column string, saver export.Saver) []model.DownloadResult
	DownloadOne(ctx context.Context, link string) (export.Blob, model.DownloadResult)
	Open(ctx context.Context, link string) (string, error)
}

// Options — параметры Renderer.
type Options struct {
	// Classifier — классификатор колонок (nil — стандартный словарь)
	Classifier *classify.Classifier
	// Sorter — сортировщик (nil — NewEngine())
	Sorter *sorting.Engine
	// Keying — идентичность выбора (url по умолчанию)
	Keying selection.Keying
	// RowKey — идентификатор строки для режима row (nil — позиция во входном наборе)
	RowKey selection.RowKeyFunc
	// Columns — явный порядок колонок (nil — объединение ключей записей)
	Columns []string
	// Hints — подсказки классификации по ключу колонки
	Hints map[string]model.ColumnHint
	// ExternalSort — сортировкой владеет вызывающий код: активация заголовка
	// только поднимает событие, порядок строк не меняется
	ExternalSort bool
	// InitialSort — сортировка при открытии
	InitialSort *model.SortSpec
	// Exporter — скачивание и экспорт (nil — операции с файлами недоступны)
	Exporter Exporter
	// OnEvent — получатель событий строки и сортировки
	OnEvent Listener
	// Logger — логгер (nil — slog.Default())
	Logger *slog.Logger
}

// cellRef — адрес ячейки по исходной позиции записи.
type cellRef struct {
	source int
	column string
}

// Renderer — состояние одной сессии рендеринга таблицы.
type Renderer struct {
	classifier   *classify.Classifier
	sorter       *sorting.Engine
	rowKey       selection.RowKeyFunc
	columns      []string
	hints        map[string]model.ColumnHint
	externalSort bool
	exporter     Exporter
	onEvent      Listener
	logger       *slog.Logger

	selection *selection.Store

	mu      sync.Mutex
	records []model.Record
	plan    *plan.Plan
	sort    *model.SortSpec
	view    []int
	loading map[cellRef]bool
}

// New создаёт Renderer и выполняет первый проход рендеринга.
func New(records []model.Record, opts Options) *Renderer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{
		classifier:   opts.Classifier,
		sorter:       opts.Sorter,
		rowKey:       opts.RowKey,
		columns:      opts.Columns,
		hints:        opts.Hints,
		externalSort: opts.ExternalSort,
		exporter:     opts.Exporter,
		onEvent:      opts.OnEvent,
		logger:       logger.With(slog.String("component", "table_renderer")),
		selection:    selection.NewStore(opts.Keying),
		loading:      make(map[cellRef]bool),
	}
	if r.classifier == nil {
		r.classifier = classify.New(nil, classify.WithLogger(logger))
	}
	if r.sorter == nil {
		r.sorter = sorting.NewEngine()
	}
	if r.rowKey == nil {
		r.rowKey = selection.IndexRowKey
	}
	if opts.InitialSort != nil && opts.InitialSort.Field != "" {
		s := *opts.InitialSort
		r.sort = &s
	}

	r.mu.Lock()
	r.renderPass(records)
	r.mu.Unlock()
	return r
}

// renderPass пересчитывает классификацию, план и порядок строк.
// Вызывается под r.mu.
func (r *Renderer) renderPass(records []model.Record) {
	r.records = records
	descriptors := r.classifier.Classify(records, r.columns, r.hints)
	r.plan = plan.Build(descriptors)

	// Сортировка по колонке, исчезнувшей из плана, сбрасывается
	if r.sort != nil && !r.plan.Sortable(r.sort.Field) {
		r.sort = nil
	}
	r.reorder()
	r.loading = make(map[cellRef]bool)
}

// reorder пересчитывает view. Вызывается под r.mu.
func (r *Renderer) reorder() {
	if r.externalSort {
		r.view = r.sorter.Order(r.records, nil)
		return
	}
	r.view = r.sorter.Order(r.records, r.sort)
}

// SetRecords выполняет новый проход рендеринга с новыми данными.
// Выбор сохраняется: идентичность выбранных элементов не зависит от порядка.
func (r *Renderer) SetRecords(records []model.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renderPass(records)
}

// Plan возвращает текущий план отображения.
func (r *Renderer) Plan() *plan.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plan
}

// Sort возвращает текущую сортировку (nil — без сортировки).
func (r *Renderer) Sort() *model.SortSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sort == nil {
		return nil
	}
	s := *r.sort
	return &s
}

// Rows возвращает записи в порядке представления.
func (r *Renderer) Rows() []model.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Record, len(r.view))
	for i, idx := range r.view {
		out[i] = r.records[idx]
	}
	return out
}

// Len — количество строк представления.
func (r *Renderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.view)
}

// ActivateHeader обрабатывает активацию заголовка колонки:
// повторная активация той же колонки меняет направление,
// новая колонка начинает с asc.
func (r *Renderer) ActivateHeader(field string) (model.SortSpec, error) {
	r.mu.Lock()
	col, ok := r.plan.Column(field)
	if !ok {
		r.mu.Unlock()
		return model.SortSpec{}, fmt.Errorf("%w: %s", ErrUnknownColumn, field)
	}
	if !col.Sortable {
		r.mu.Unlock()
		return model.SortSpec{}, fmt.Errorf("%w: %s", ErrNotSortable, field)
	}

	next := model.SortSpec{Field: field, Direction: model.Asc}
	if r.sort != nil && r.sort.Field == field {
		next.Direction = r.sort.Direction.Opposite()
	}
	r.sort = &next
	r.reorder()
	r.mu.Unlock()

	spec := next
	r.emit(Event{Kind: EventSortChanged, Sort: &spec})
	return next, nil
}

// SetSort устанавливает сортировку напрямую (nil — без сортировки).
// Используется, когда сортировкой владеет вызывающий код. Событие не поднимается.
func (r *Renderer) SetSort(spec *model.SortSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if spec == nil || spec.Field == "" {
		r.sort = nil
	} else {
		s := *spec
		r.sort = &s
	}
	r.reorder()
}

// resolveCell находит запись и колонку по позиции в представлении.
// Вызывается под r.mu.
func (r *Renderer) resolveCell(row int, column string) (int, plan.Column, error) {
	if row < 0 || row >= len(r.view) {
		return 0, plan.Column{}, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	col, ok := r.plan.Column(column)
	if !ok {
		return 0, plan.Column{}, fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	return r.view[row], col, nil
}

// mediaItem возвращает элемент выбора для файловой ячейки. Вызывается под r.mu.
func (r *Renderer) mediaItem(row int, column string) (selection.Item, plan.Column, int, error) {
	source, col, err := r.resolveCell(row, column)
	if err != nil {
		return selection.Item{}, col, 0, err
	}
	if col.Strategy != plan.StrategyMedia {
		return selection.Item{}, col, 0, fmt.Errorf("%w: %s", ErrNotMediaColumn, column)
	}
	link, ok := r.records[source].String(column)
	if !ok {
		return selection.Item{}, col, 0, fmt.Errorf("%w: строка %d, колонка %s", ErrEmptyCell, row, column)
	}
	return selection.Item{RowKey: r.rowKey(source, r.records[source]), URL: link}, col, source, nil
}

// validItems — допустимые элементы колонки в порядке представления. Вызывается под r.mu.
func (r *Renderer) validItems(column string) []selection.Item {
	return selection.ValidItems(r.records, r.view, column, r.rowKey)
}

// mediaColumn проверяет, что колонка файловая. Вызывается под r.mu.
func (r *Renderer) mediaColumn(column string) error {
	col, ok := r.plan.Column(column)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownColumn, column)
	}
	if col.Strategy != plan.StrategyMedia {
		return fmt.Errorf("%w: %s", ErrNotMediaColumn, column)
	}
	return nil
}

// Toggle переключает выбор файловой ячейки. Возвращает true, если ячейка выбрана.
func (r *Renderer) Toggle(row int, column string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, _, _, err := r.mediaItem(row, column)
	if err != nil {
		return false, err
	}
	return r.selection.Toggle(column, it), nil
}

// ToggleAll — «выбрать всё / снять всё» для файловой колонки
// по допустимым ссылкам текущего представления.
func (r *Renderer) ToggleAll(column string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mediaColumn(column); err != nil {
		return false, err
	}
	return r.selection.ToggleAll(column, r.validItems(column)), nil
}

// ClearSelection очищает выбор колонки.
func (r *Renderer) ClearSelection(column string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.mediaColumn(column); err != nil {
		return err
	}
	r.selection.Clear(column)
	return nil
}

// SelectionState — состояние выбора колонки (idle / partial / full).
func (r *Renderer) SelectionState(column string) selection.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selection.State(column, r.validItems(column))
}

// SelectedCount — количество выбранных ссылок колонки.
func (r *Renderer) SelectedCount(column string) int {
	return r.selection.SelectedCount(column)
}

// Click обрабатывает клик по строке. Клик по неинтерактивной области
// поднимает EventRowSelected; клики по встроенным элементам управления
// поглощаются. Возвращает поднятое событие (nil, если поглощено).
func (r *Renderer) Click(row int, region Region) (*Event, error) {
	r.mu.Lock()
	if row < 0 || row >= len(r.view) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrRowOutOfRange, row)
	}
	record := r.records[r.view[row]]
	r.mu.Unlock()

	if region != RegionCell {
		return nil, nil
	}
	ev := Event{Kind: EventRowSelected, Row: row, Record: &record}
	r.emit(ev)
	return &ev, nil
}

// Preview возвращает безопасную ссылку для открытия файла во внешнем
// контексте. Доступно только для категорий image и document.
func (r *Renderer) Preview(ctx context.Context, row int, column string) (string, error) {
	r.mu.Lock()
	it, col, _, err := r.mediaItem(row, column)
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	if !col.MediaKind.Previewable() {
		return "", fmt.Errorf("%w: %s", ErrNotPreviewable, col.MediaKind)
	}
	if r.exporter == nil {
		return export.SafeURL(it.URL), nil
	}
	return r.exporter.Open(ctx, it.URL)
}

// Download скачивает файл ячейки. Пока скачивание выполняется, ячейка
// помечена как загружаемая. При неудаче результат содержит FallbackURL.
func (r *Renderer) Download(ctx context.Context, row int, column string) (export.Blob, model.DownloadResult, error) {
	if r.exporter == nil {
		return export.Blob{}, model.DownloadResult{}, ErrNoExporter
	}

	r.mu.Lock()
	it, _, source, err := r.mediaItem(row, column)
	if err != nil {
		r.mu.Unlock()
		return export.Blob{}, model.DownloadResult{}, err
	}
	ref := cellRef{source: source, column: column}
	r.loading[ref] = true
	loading := r.loading
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		// Новый проход рендеринга заменяет карту, старые отметки не переносятся
		delete(loading, ref)
		r.mu.Unlock()
	}()

	blob, res := r.exporter.DownloadOne(ctx, it.URL)
	return blob, res, nil
}

// IsLoading — выполняется ли скачивание ячейки.
func (r *Renderer) IsLoading(row int, column string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row < 0 || row >= len(r.view) {
		return false
	}
	return r.loading[cellRef{source: r.view[row], column: column}]
}

// ExportSelected выполняет пакетный экспорт выбранных ссылок колонки.
// После завершения всех скачиваний с экспортированных ссылок снимается выбор.
func (r *Renderer) ExportSelected(ctx context.Context, column string, saver export.Saver) ([]model.DownloadResult, error) {
	if r.exporter == nil {
		return nil, ErrNoExporter
	}
	r.mu.Lock()
	err := r.mediaColumn(column)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.exporter.ExportSelected(ctx, r.selection, column, saver), nil
}

func (r *Renderer) emit(ev Event) {
	if r.onEvent == nil {
		return
	}
	r.onEvent(ev)
}
