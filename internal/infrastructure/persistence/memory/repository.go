// Package memory - хранилище в памяти процесса.
//
// Используется в тестах handlers и для локального запуска без PostgreSQL
// (database.driver=memory). Записи хранятся как rowmap.Row, то есть проходят
// тот же путь ToRow/FromRow, что и строки таблиц.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Haleralex/edgeapi/internal/application/pagination"
	"github.com/Haleralex/edgeapi/internal/application/ports"
	"github.com/Haleralex/edgeapi/internal/domain/entities"
	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
	"github.com/Haleralex/edgeapi/internal/infrastructure/persistence/rowmap"
)

const deletedAtColumn = "deleted_at"

// Repository реализует ports.ResourceRepository[T].
type Repository[T entities.Resource[T]] struct {
	mu         sync.RWMutex
	mapper     *rowmap.Mapper[T]
	rows       []rowmap.Row // в порядке вставки
	index      map[string]int
	exactCount bool
}

// NewRepository создаёт пустое хранилище. exactCount включает
// отдачу точного числа записей в List.
func NewRepository[T entities.Resource[T]](mapper *rowmap.Mapper[T], exactCount bool) *Repository[T] {
	return &Repository[T]{
		mapper:     mapper,
		index:      make(map[string]int),
		exactCount: exactCount,
	}
}

var _ ports.ResourceRepository[entities.Project] = (*Repository[entities.Project])(nil)

// Seed кладёт готовую строку как есть. Нужен для проверки чтения
// строк, записанных старыми версиями схемы.
func (r *Repository[T]) Seed(id string, row rowmap.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.index[id]; ok {
		r.rows[i] = row
		return
	}
	r.index[id] = len(r.rows)
	r.rows = append(r.rows, row)
}

func (r *Repository[T]) Insert(ctx context.Context, record T) error {
	row, err := r.mapper.ToRow(record)
	if err != nil {
		return err
	}

	id := record.GetIdentity().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.index[id]; exists {
		return fmt.Errorf("%s %s: %w", r.mapper.Entity(), id, domainerrors.ErrEntityAlreadyExists)
	}
	r.index[id] = len(r.rows)
	r.rows = append(r.rows, row)
	return nil
}

func (r *Repository[T]) FindByID(ctx context.Context, id string) (T, error) {
	var zero T

	r.mu.RLock()
	row, ok := r.live(id)
	r.mu.RUnlock()

	if !ok {
		return zero, domainerrors.ErrEntityNotFound
	}
	return r.mapper.FromRow(row)
}

func (r *Repository[T]) Update(ctx context.Context, record T) error {
	row, err := r.mapper.ToRow(record)
	if err != nil {
		return err
	}

	id := record.GetIdentity().ID

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live(id); !ok {
		return domainerrors.ErrEntityNotFound
	}
	r.rows[r.index[id]] = row
	return nil
}

func (r *Repository[T]) SoftDelete(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row, ok := r.live(id)
	if !ok {
		return domainerrors.ErrEntityNotFound
	}

	updated := make(rowmap.Row, len(row))
	for k, v := range row {
		updated[k] = v
	}
	updated[deletedAtColumn] = at
	r.rows[r.index[id]] = updated
	return nil
}

func (r *Repository[T]) List(ctx context.Context, page pagination.Page) (ports.ListResult[T], error) {
	r.mu.RLock()
	visible := make([]rowmap.Row, 0, len(r.rows))
	for _, row := range r.rows {
		if row[deletedAtColumn] == nil {
			visible = append(visible, row)
		}
	}
	r.mu.RUnlock()

	window := pagination.Slice(visible, page)
	items := make([]T, 0, len(window))
	for _, row := range window {
		item, err := r.mapper.FromRow(row)
		if err != nil {
			return ports.ListResult[T]{}, err
		}
		items = append(items, item)
	}

	result := ports.ListResult[T]{Items: items}
	if r.exactCount {
		total := len(visible)
		result.Total = &total
	}
	return result, nil
}

// live возвращает строку, если она есть и не удалена. Вызывать под мьютексом.
func (r *Repository[T]) live(id string) (rowmap.Row, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	row := r.rows[i]
	if row[deletedAtColumn] != nil {
		return nil, false
	}
	return row, true
}

// UnitOfWork для памяти: транзакций нет, fn выполняется как есть.
type UnitOfWork struct{}

func (UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}
