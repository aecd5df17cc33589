// Package postgres - TableRepository implementation.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/edgeapi/internal/application/pagination"
	"github.com/Haleralex/edgeapi/internal/application/ports"
	"github.com/Haleralex/edgeapi/internal/domain/entities"
	domainErrors "github.com/Haleralex/edgeapi/internal/domain/errors"
	"github.com/Haleralex/edgeapi/internal/infrastructure/persistence/rowmap"
)

const (
	idColumn         = "id"
	createdAtColumn  = "created_at"
	deletedAtColumn  = "deleted_at"
	totalCountColumn = "total_count"
)

// Compile-time check
var _ ports.ResourceRepository[entities.Project] = (*TableRepository[entities.Project])(nil)

// TableRepository реализует ports.ResourceRepository[T] поверх одной таблицы.
//
// Схема таблицы: колонки из rowmap.Mapper.Columns() плюс deleted_at.
// Строки с deleted_at IS NOT NULL невидимы для всех операций.
//
// Transaction-aware: автоматически использует транзакцию из context если есть.
type TableRepository[T entities.Resource[T]] struct {
	pool       *pgxpool.Pool
	table      string
	mapper     *rowmap.Mapper[T]
	exactCount bool

	selectCols string
}

// NewTableRepository создаёт репозиторий для таблицы table.
// exactCount добавляет в List оконный count(*), иначе hasMore
// вычисляется эвристикой по размеру страницы.
func NewTableRepository[T entities.Resource[T]](
	pool *pgxpool.Pool,
	table string,
	mapper *rowmap.Mapper[T],
	exactCount bool,
) *TableRepository[T] {
	return &TableRepository[T]{
		pool:       pool,
		table:      pgx.Identifier{table}.Sanitize(),
		mapper:     mapper,
		exactCount: exactCount,
		selectCols: identList(mapper.Columns()),
	}
}

// querier - абстракция для выполнения запросов.
// Позволяет использовать как pool, так и transaction.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// getQuerier возвращает querier из context (transaction) или pool.
func (r *TableRepository[T]) getQuerier(ctx context.Context) querier {
	if tx := extractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// Insert добавляет новую запись.
func (r *TableRepository[T]) Insert(ctx context.Context, record T) error {
	row, err := r.mapper.ToRow(record)
	if err != nil {
		return err
	}

	columns := r.mapper.Columns()
	args := make([]any, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		args[i] = row[col]
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		r.table, r.selectCols, strings.Join(placeholders, ", "),
	)

	if _, err := r.getQuerier(ctx).Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err, "") {
			return fmt.Errorf("%s %s: %w", r.mapper.Entity(), record.GetIdentity().ID, domainErrors.ErrEntityAlreadyExists)
		}
		return fmt.Errorf("failed to insert %s: %w", r.mapper.Entity(), err)
	}

	return nil
}

// FindByID загружает запись по ID.
// Внутри транзакции строка блокируется (FOR UPDATE) до её завершения.
func (r *TableRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = $1 AND %s IS NULL",
		r.selectCols, r.table, ident(idColumn), ident(deletedAtColumn),
	)
	if hasTx(ctx) {
		query += " FOR UPDATE"
	}

	rows, err := r.getQuerier(ctx).Query(ctx, query, id)
	if err != nil {
		return zero, fmt.Errorf("failed to find %s: %w", r.mapper.Entity(), err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return zero, fmt.Errorf("failed to scan %s: %w", r.mapper.Entity(), err)
	}
	if len(found) == 0 {
		return zero, domainErrors.ErrEntityNotFound
	}

	return r.mapper.FromRow(toRow(found[0]))
}

// Update перезаписывает все колонки записи, кроме id.
func (r *TableRepository[T]) Update(ctx context.Context, record T) error {
	row, err := r.mapper.ToRow(record)
	if err != nil {
		return err
	}

	id := record.GetIdentity().ID
	args := []any{id}
	var sets []string
	for _, col := range r.mapper.Columns() {
		if col == idColumn {
			continue
		}
		args = append(args, row[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", ident(col), len(args)))
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = $1 AND %s IS NULL",
		r.table, strings.Join(sets, ", "), ident(idColumn), ident(deletedAtColumn),
	)

	tag, err := r.getQuerier(ctx).Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", r.mapper.Entity(), err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEntityNotFound
	}

	return nil
}

// SoftDelete проставляет deleted_at в колонке и в payload.
func (r *TableRepository[T]) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := fmt.Sprintf(
		`UPDATE %s
		SET %s = $2,
			%s = jsonb_set(%s, '{deletedAt}', to_jsonb($2::timestamptz))
		WHERE %s = $1 AND %s IS NULL`,
		r.table,
		ident(deletedAtColumn),
		ident(rowmap.PayloadColumn), ident(rowmap.PayloadColumn),
		ident(idColumn), ident(deletedAtColumn),
	)

	tag, err := r.getQuerier(ctx).Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.mapper.Entity(), err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEntityNotFound
	}

	return nil
}

// List возвращает окно [cursor, cursor+limit) в порядке создания.
func (r *TableRepository[T]) List(ctx context.Context, page pagination.Page) (ports.ListResult[T], error) {
	q := r.getQuerier(ctx)

	cols := r.selectCols
	if r.exactCount {
		cols += ", count(*) OVER() AS " + ident(totalCountColumn)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s IS NULL ORDER BY %s, %s OFFSET $1 LIMIT $2",
		cols, r.table, ident(deletedAtColumn), ident(createdAtColumn), ident(idColumn),
	)

	rows, err := q.Query(ctx, query, page.Offset(), page.Limit)
	if err != nil {
		return ports.ListResult[T]{}, fmt.Errorf("failed to list %s: %w", r.mapper.Entity(), err)
	}

	found, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return ports.ListResult[T]{}, fmt.Errorf("failed to scan %s: %w", r.mapper.Entity(), err)
	}

	result := ports.ListResult[T]{Items: make([]T, 0, len(found))}
	var total *int

	for _, raw := range found {
		if r.exactCount && total == nil {
			if n, ok := raw[totalCountColumn].(int64); ok {
				v := int(n)
				total = &v
			}
		}
		delete(raw, totalCountColumn)

		item, err := r.mapper.FromRow(toRow(raw))
		if err != nil {
			return ports.ListResult[T]{}, err
		}
		result.Items = append(result.Items, item)
	}

	// Окно за концом таблицы не несёт count(*) OVER(), считаем отдельно.
	if r.exactCount && total == nil {
		n, err := r.count(ctx, q)
		if err != nil {
			return ports.ListResult[T]{}, err
		}
		total = &n
	}
	result.Total = total

	return result, nil
}

func (r *TableRepository[T]) count(ctx context.Context, q querier) (int, error) {
	query := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s IS NULL", r.table, ident(deletedAtColumn))

	var n int64
	if err := q.QueryRow(ctx, query).Scan(&n); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to count %s: %w", r.mapper.Entity(), err)
	}
	return int(n), nil
}

func toRow(raw map[string]any) rowmap.Row {
	row := make(rowmap.Row, len(raw))
	for k, v := range raw {
		row[k] = normalizeValue(v)
	}
	return row
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = ident(n)
	}
	return strings.Join(quoted, ", ")
}
