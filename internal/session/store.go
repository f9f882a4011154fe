// Пакет session — хранилище сессий рендеринга таблиц.
// Обёртка над hashicorp/golang-lru/v2/expirable: сессия живёт до
// явного закрытия, вытеснения по размеру или истечения TTL.
package session

import (
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/talentdesk/internal/table/renderer"
)

// Prometheus-метрики сессий.
var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "td_sessions_active",
		Help: "Количество открытых сессий рендеринга.",
	})
	sessionLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "td_session_lookups_total",
		Help: "Обращения к сессиям по результату (hit, miss).",
	}, []string{"result"})
	sessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "td_sessions_evicted_total",
		Help: "Сессии, удалённые из хранилища (закрытие, TTL, вытеснение).",
	})
)

// Session — открытая таблица одного владельца.
type Session struct {
	// ID — идентификатор сессии (UUID)
	ID string
	// Owner — subject JWT владельца или "anonymous"
	Owner string
	// Table — имя исходной таблицы
	Table string
	// Limit — ограничение строк, с которым сессия открыта; повторяется при перечитывании
	Limit int
	// CreatedAt — время открытия
	CreatedAt time.Time
	// Renderer — состояние таблицы
	Renderer *renderer.Renderer
}

// Store — LRU-хранилище сессий с TTL.
type Store struct {
	cache  *expirable.LRU[string, *Session]
	logger *slog.Logger
}

// NewStore создаёт хранилище.
// maxSize — максимальное число одновременно открытых сессий.
// ttl — время жизни сессии после последнего сохранения.
func NewStore(maxSize int, ttl time.Duration, logger *slog.Logger) *Store {
	s := &Store{logger: logger.With(slog.String("component", "session_store"))}
	s.cache = expirable.NewLRU[string, *Session](maxSize, s.onEvict, ttl)
	return s
}

func (s *Store) onEvict(id string, sess *Session) {
	sessionsActive.Dec()
	sessionsEvictedTotal.Inc()
	s.logger.Debug("Сессия удалена",
		slog.String("session_id", id),
		slog.String("table", sess.Table),
	)
}

// Put сохраняет сессию. Повторное сохранение продлевает TTL.
func (s *Store) Put(sess *Session) {
	if !s.cache.Contains(sess.ID) {
		sessionsActive.Inc()
	}
	s.cache.Add(sess.ID, sess)
}

// Get возвращает сессию по ID.
func (s *Store) Get(id string) (*Session, bool) {
	sess, ok := s.cache.Get(id)
	if ok {
		sessionLookupsTotal.WithLabelValues("hit").Inc()
		return sess, true
	}
	sessionLookupsTotal.WithLabelValues("miss").Inc()
	return nil, false
}

// Delete закрывает сессию. Возвращает false, если сессии не было.
func (s *Store) Delete(id string) bool {
	return s.cache.Remove(id)
}

// Len возвращает число открытых сессий.
func (s *Store) Len() int {
	return s.cache.Len()
}
