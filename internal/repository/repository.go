// Пакет repository — чтение записей таблиц рекрутинга из PostgreSQL.
// Чистый SQL через pgx; имена таблиц проходят через белый список.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrUnknownTable — таблица отсутствует в белом списке.
var ErrUnknownTable = errors.New("неизвестная таблица")

// DBTX — чтение через *pgxpool.Pool или pgx.Tx.
// Источник записей только читает, поэтому Exec не требуется.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
