// Пакет sorting — упорядочивание записей таблицы по одному полю.
//
// Правила:
//   - отсутствующие значения (nil, нет ключа, NaN) всегда идут последними,
//     в любом направлении, в исходном относительном порядке;
//   - asc — стабильная сортировка, desc — точный разворот asc
//     для присутствующих значений;
//   - строки сравниваются без учёта регистра;
//   - числовые поля сравниваются как числа ("9" < "10"), поля-даты — как моменты времени;
//   - в поле без объявленного типа значения сначала упорядочиваются по классу
//     (числа, даты, логические, текст), затем внутри класса;
//   - несравнимые типы сравниваются по строковому представлению, без паники.
package sorting

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// FieldKind — способ сравнения значений поля.
type FieldKind string

const (
	// KindAuto — тип определяется по самим значениям.
	KindAuto FieldKind = "auto"
	// KindNumeric — значения приводятся к числу.
	KindNumeric FieldKind = "numeric"
	// KindDate — значения разбираются как дата/время.
	KindDate FieldKind = "date"
	// KindText — значения сравниваются как строки без учёта регистра.
	KindText FieldKind = "text"
)

// DefaultNumericFields — поля, известные как числовые.
var DefaultNumericFields = []string{"amount", "age", "salary", "commission", "fee", "experience_years"}

// dateLayouts — поддерживаемые форматы дат в строковых значениях.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// Engine — сортировщик записей. После создания не изменяется,
// безопасен для конкурентного использования.
type Engine struct {
	kinds map[string]FieldKind
}

// Option — опция Engine.
type Option func(*Engine)

// WithFieldKind закрепляет способ сравнения для поля.
func WithFieldKind(field string, kind FieldKind) Option {
	return func(e *Engine) {
		e.kinds[strings.ToLower(field)] = kind
	}
}

// WithNumericFields помечает поля как числовые.
func WithNumericFields(fields ...string) Option {
	return func(e *Engine) {
		for _, f := range fields {
			e.kinds[strings.ToLower(f)] = KindNumeric
		}
	}
}

// WithDateFields помечает поля как даты.
func WithDateFields(fields ...string) Option {
	return func(e *Engine) {
		for _, f := range fields {
			e.kinds[strings.ToLower(f)] = KindDate
		}
	}
}

// NewEngine создаёт сортировщик. DefaultNumericFields применяются всегда,
// опции могут их переопределить.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{kinds: make(map[string]FieldKind)}
	for _, f := range DefaultNumericFields {
		e.kinds[f] = KindNumeric
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// KindOf возвращает способ сравнения поля.
func (e *Engine) KindOf(field string) FieldKind {
	if k, ok := e.kinds[strings.ToLower(field)]; ok {
		return k
	}
	return KindAuto
}

// Order возвращает перестановку индексов records согласно spec.
// spec == nil или пустое поле — тождественная перестановка.
func (e *Engine) Order(records []model.Record, spec *model.SortSpec) []int {
	order := make([]int, 0, len(records))
	if spec == nil || spec.Field == "" {
		for i := range records {
			order = append(order, i)
		}
		return order
	}

	// 1. Разделяем присутствующие и отсутствующие значения
	kind := e.KindOf(spec.Field)
	var nulls []int
	for i, r := range records {
		v, ok := r.Get(spec.Field)
		if !ok || isNull(v) {
			nulls = append(nulls, i)
			continue
		}
		order = append(order, i)
	}

	// 2. Стабильная сортировка по возрастанию
	slices.SortStableFunc(order, func(a, b int) int {
		va, _ := records[a].Get(spec.Field)
		vb, _ := records[b].Get(spec.Field)
		return compareKind(kind, va, vb)
	})

	// 3. desc — точный разворот asc
	if spec.Direction == model.Desc {
		slices.Reverse(order)
	}

	// 4. Отсутствующие значения — в конце, в исходном порядке
	return append(order, nulls...)
}

// Sort возвращает новый срез записей в порядке spec. Исходный срез не изменяется.
func (e *Engine) Sort(records []model.Record, spec *model.SortSpec) []model.Record {
	order := e.Order(records, spec)
	out := make([]model.Record, len(order))
	for i, idx := range order {
		out[i] = records[idx]
	}
	return out
}

// Compare сравнивает два значения поля по правилам Engine.
// Отсутствующие значения больше любых присутствующих.
func (e *Engine) Compare(field string, a, b any) int {
	na, nb := isNull(a), isNull(b)
	switch {
	case na && nb:
		return 0
	case na:
		return 1
	case nb:
		return -1
	}
	return compareKind(e.KindOf(field), a, b)
}

func isNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	}
	return false
}

func compareKind(kind FieldKind, a, b any) int {
	switch kind {
	case KindNumeric:
		fa, okA := toFloat(a)
		fb, okB := toFloat(b)
		switch {
		case okA && okB:
			return cmp.Compare(fa, fb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return compareText(a, b)
	case KindDate:
		ta, okA := toTime(a)
		tb, okB := toTime(b)
		switch {
		case okA && okB:
			return ta.Compare(tb)
		case okA:
			return -1
		case okB:
			return 1
		}
		return compareText(a, b)
	case KindText:
		return compareText(a, b)
	default:
		return compareAuto(a, b)
	}
}

// valueClass — класс значения при автоопределении типа. Классы
// упорядочены: числа < даты < логические < текст.
type valueClass int

const (
	classNumber valueClass = iota
	classDate
	classBool
	classText
)

func classOf(v any) valueClass {
	if _, ok := toFloat(v); ok {
		return classNumber
	}
	if _, ok := toTime(v); ok {
		return classDate
	}
	if _, ok := v.(bool); ok {
		return classBool
	}
	return classText
}

// compareAuto сравнивает сначала классы значений, затем значения внутри
// класса. Так порядок остаётся полным и в смешанной колонке ("9", "10", "5a").
func compareAuto(a, b any) int {
	ca, cb := classOf(a), classOf(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch ca {
	case classNumber:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		return cmp.Compare(fa, fb)
	case classDate:
		ta, _ := toTime(a)
		tb, _ := toTime(b)
		return ta.Compare(tb)
	case classBool:
		return compareBools(a.(bool), b.(bool))
	default:
		return compareText(a, b)
	}
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareText сравнивает строковые представления без учёта регистра.
func compareText(a, b any) int {
	return strings.Compare(strings.ToLower(toText(a)), strings.ToLower(toText(b)))
}

func toText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return fmt.Sprint(x)
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), !math.IsNaN(float64(x))
	case float64:
		return x, !math.IsNaN(x)
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
