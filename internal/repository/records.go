package repository

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/bigkaa/talentdesk/internal/domain/model"
)

// Таблицы, доступные для просмотра. Имя таблицы из запроса
// используется в SQL только после проверки по этому списку.
var allowedTables = []string{"agents", "candidates", "employers", "transactions"}

// Tables возвращает имена разрешённых таблиц.
func Tables() []string {
	return slices.Clone(allowedTables)
}

// IsAllowedTable сообщает, разрешена ли таблица.
func IsAllowedTable(table string) bool {
	return slices.Contains(allowedTables, table)
}

// RecordRepository — источник записей для табличных сессий.
type RecordRepository interface {
	// List возвращает не более limit записей таблицы в порядке первичного ключа.
	// Порядок полей записи совпадает с порядком колонок таблицы.
	List(ctx context.Context, table string, limit int) ([]model.Record, error)
	// Count возвращает общее число строк таблицы.
	Count(ctx context.Context, table string) (int64, error)
}

// recordRepo — реализация RecordRepository.
type recordRepo struct {
	db DBTX
}

// NewRecordRepository создаёт репозиторий записей.
func NewRecordRepository(db DBTX) RecordRepository {
	return &recordRepo{db: db}
}

// List читает строки таблицы как упорядоченные записи.
func (r *recordRepo) List(ctx context.Context, table string, limit int) ([]model.Record, error) {
	if !IsAllowedTable(table) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("некорректный лимит: %d", limit)
	}

	query := fmt.Sprintf(`SELECT * FROM %s ORDER BY id LIMIT $1`, pgx.Identifier{table}.Sanitize())

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	keys := make([]string, len(fields))
	for i, fd := range fields {
		keys[i] = fd.Name
	}

	var records []model.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения строки %s: %w", table, err)
		}
		pairs := make([]any, 0, 2*len(values))
		for i, v := range values {
			pairs = append(pairs, keys[i], NativeValue(v))
		}
		records = append(records, model.NewRecord(pairs...))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации по таблице %s: %w", table, err)
	}

	return records, nil
}

// Count возвращает число строк таблицы.
func (r *recordRepo) Count(ctx context.Context, table string) (int64, error) {
	if !IsAllowedTable(table) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	var n int64
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, pgx.Identifier{table}.Sanitize())
	if err := r.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта строк %s: %w", table, err)
	}
	return n, nil
}

// NativeValue приводит значения драйвера pgx к типам Go,
// которые понимают сортировка и форматирование ячеек.
// NUMERIC становится float64, UUID — строкой, NULL — nil.
func NativeValue(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case pgtype.Numeric:
		if !x.Valid || x.NaN {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	case []byte:
		return string(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		if math.IsNaN(float64(x)) {
			return nil
		}
		return float64(x)
	case pgtype.Interval:
		if !x.Valid {
			return nil
		}
		d := time.Duration(x.Microseconds)*time.Microsecond +
			time.Duration(x.Days)*24*time.Hour
		return d.String()
	case pgtype.Date:
		if !x.Valid {
			return nil
		}
		return x.Time
	default:
		return v
	}
}
