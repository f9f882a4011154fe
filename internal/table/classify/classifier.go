package classify

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// DefaultSampleSize — сколько первых записей просматривается при подтверждении.
const DefaultSampleSize = 5

// Classifier — классификатор колонок. Чистая функция входных данных,
// безопасен для конкурентного использования.
type Classifier struct {
	predicate  MediaPredicate
	sampleSize int
	logger     *slog.Logger
}

// Option — опция классификатора.
type Option func(*Classifier)

// WithSampleSize задаёт размер выборки (значения < 1 игнорируются).
func WithSampleSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.sampleSize = n
		}
	}
}

// WithLogger задаёт логгер для диагностики неоднозначных колонок.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger.With(slog.String("component", "column_classifier"))
		}
	}
}

// New создаёт классификатор. predicate = nil — стандартный словарь.
func New(predicate MediaPredicate, opts ...Option) *Classifier {
	if predicate == nil {
		predicate = DefaultVocabulary()
	}
	c := &Classifier{
		predicate:  predicate,
		sampleSize: DefaultSampleSize,
		logger:     slog.Default().With(slog.String("component", "column_classifier")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify строит дескрипторы для указанных ключей колонок.
// keys = nil — ключи берутся из самих записей (объединение в порядке появления).
// hints — подсказки вызывающего кода по ключу колонки (может быть nil).
//
// Колонка признаётся файловой, только если:
//  1. ключ совпадает со словарём (MediaPredicate), и
//  2. среди первых sampleSize записей есть непустая строка, похожая на путь/URL.
//
// Подсказка Media=true с закреплённым MediaKind обходит эвристику целиком.
func (c *Classifier) Classify(records []model.Record, keys []string, hints map[string]model.ColumnHint) []model.ColumnDescriptor {
	if keys == nil {
		keys = model.UnionKeys(records)
	}

	sample := records
	if len(sample) > c.sampleSize {
		sample = sample[:c.sampleSize]
	}

	descriptors := make([]model.ColumnDescriptor, 0, len(keys))
	for _, key := range keys {
		hint := hints[key]
		d := model.ColumnDescriptor{
			Key:       key,
			Header:    HeaderLabel(key),
			MediaKind: model.MediaNone,
		}

		switch {
		case hint.Media != nil && !*hint.Media:
			// Вызывающий код явно запретил файловую интерпретацию
		case hint.Media != nil && *hint.Media:
			d.IsMediaColumn = true
			d.MediaKind = c.predicate.KindOf(key)
			if hint.MediaKind != nil {
				d.MediaKind = *hint.MediaKind
			}
		case c.predicate.MatchesKey(key):
			if hasLocationSample(sample, key) {
				d.IsMediaColumn = true
				d.MediaKind = c.predicate.KindOf(key)
				if hint.MediaKind != nil {
					d.MediaKind = *hint.MediaKind
				}
			} else {
				// Похожа по имени, но нет подтверждающих значений — обычная колонка
				c.logger.Debug("Колонка похожа на файловую, но не подтверждена выборкой",
					slog.String("column", key),
					slog.Int("sample_size", len(sample)),
				)
			}
		}

		// Файловые колонки по умолчанию не сортируются, обычные — сортируются
		d.Sortable = !d.IsMediaColumn
		if hint.Sortable != nil {
			d.Sortable = *hint.Sortable
		}
		if hint.Header != nil && *hint.Header != "" {
			d.Header = *hint.Header
		}

		descriptors = append(descriptors, d)
	}
	return descriptors
}

// hasLocationSample — есть ли в выборке непустая строка, похожая на путь/URL.
// Значения нестрокового типа игнорируются.
func hasLocationSample(sample []model.Record, key string) bool {
	for _, r := range sample {
		if s, ok := r.String(key); ok && LooksLikeLocation(s) {
			return true
		}
	}
	return false
}

// LooksLikeLocation — похоже ли значение на путь или URL:
// начинается с "http" или "/", либо содержит точку (расширение, домен).
func LooksLikeLocation(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return strings.HasPrefix(strings.ToLower(s), "http") ||
		strings.HasPrefix(s, "/") ||
		strings.Contains(s, ".")
}

// Аббревиатуры, которые в заголовках пишутся заглавными.
var upperWords = map[string]bool{
	"id": true, "url": true, "cv": true, "pdf": true, "uuid": true, "api": true,
}

// HeaderLabel строит заголовок из ключа колонки:
// "photo_url" → "Photo URL", "createdAt" → "Created At".
func HeaderLabel(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	prevLower := false
	for _, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
			prevLower = false
		case unicode.IsUpper(r) && prevLower:
			flush()
			cur = append(cur, r)
			prevLower = false
		default:
			cur = append(cur, r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	flush()

	for i, w := range words {
		lower := strings.ToLower(w)
		if upperWords[lower] {
			words[i] = strings.ToUpper(lower)
			continue
		}
		runes := []rune(lower)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	if len(words) == 0 {
		return key
	}
	return strings.Join(words, " ")
}
