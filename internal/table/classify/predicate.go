// Пакет classify — классификация колонок табличных данных:
// определяет, содержит ли колонка ссылки на файлы («медиа-колонка»),
// и какую категорию файлов.
//
// Признак «колонка по имени похожа на файловую» вынесен в интерфейс
// MediaPredicate; словарь подстрок — лишь одна из реализаций по умолчанию.
package classify

import (
	"strings"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// MediaPredicate — стратегия распознавания файловых колонок по ключу.
type MediaPredicate interface {
	// MatchesKey — похож ли ключ колонки на файловый.
	MatchesKey(key string) bool
	// KindOf — категория файлов для ключа, уже признанного файловым.
	KindOf(key string) model.MediaKind
}

// DefaultTerms — словарь подстрок имени колонки по умолчанию.
var DefaultTerms = []string{
	"url", "photo", "image", "document", "file", "attachment", "media",
	"avatar", "picture", "pic", "pdf", "doc", "video", "audio", "logo",
}

// kindRule — правило второго прохода: подстроки → категория.
type kindRule struct {
	kind  model.MediaKind
	terms []string
}

// defaultKindRules — порядок важен: первое совпадение определяет категорию.
var defaultKindRules = []kindRule{
	{kind: model.MediaImage, terms: []string{"photo", "image", "avatar", "picture", "pic"}},
	{kind: model.MediaDocument, terms: []string{"pdf", "doc", "document"}},
	{kind: model.MediaVideo, terms: []string{"video"}},
	{kind: model.MediaAudio, terms: []string{"audio"}},
}

// Vocabulary — MediaPredicate на основе регистронезависимого поиска подстрок.
// Значение неизменяемо: Extend возвращает новый словарь.
type Vocabulary struct {
	terms []string
	rules []kindRule
}

// DefaultVocabulary возвращает словарь со стандартным набором подстрок.
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(DefaultTerms)
}

// NewVocabulary создаёт словарь с указанными подстроками имени
// и стандартными правилами определения категории.
func NewVocabulary(terms []string) *Vocabulary {
	v := &Vocabulary{rules: defaultKindRules}
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			v.terms = append(v.terms, t)
		}
	}
	return v
}

// Extend возвращает новый словарь с дополнительными подстроками.
func (v *Vocabulary) Extend(terms ...string) *Vocabulary {
	merged := make([]string, 0, len(v.terms)+len(terms))
	merged = append(merged, v.terms...)
	merged = append(merged, terms...)
	out := NewVocabulary(merged)
	out.rules = v.rules
	return out
}

// Terms возвращает копию подстрок словаря.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// MatchesKey — true, если ключ содержит хотя бы одну подстроку словаря.
func (v *Vocabulary) MatchesKey(key string) bool {
	lower := strings.ToLower(key)
	for _, t := range v.terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// KindOf определяет категорию вторым проходом по подстрокам.
func (v *Vocabulary) KindOf(key string) model.MediaKind {
	lower := strings.ToLower(key)
	for _, rule := range v.rules {
		for _, t := range rule.terms {
			if strings.Contains(lower, t) {
				return rule.kind
			}
		}
	}
	return model.MediaGeneric
}

// PredicateFunc адаптирует функцию к MediaPredicate;
// категорию определяет стандартный словарь.
type PredicateFunc func(key string) bool

// MatchesKey вызывает функцию.
func (f PredicateFunc) MatchesKey(key string) bool { return f(key) }

// KindOf делегирует стандартным правилам категорий.
func (f PredicateFunc) KindOf(key string) model.MediaKind {
	return DefaultVocabulary().KindOf(key)
}
