// Package ports определяет интерфейсы (порты) для внешних зависимостей.
// Эти интерфейсы реализуются в Infrastructure Layer.
//
// Pattern: Repository Pattern + Ports & Adapters (Hexagonal Architecture)
package ports

import (
	"context"
	"time"

	"github.com/Haleralex/edgeapi/internal/application/pagination"
)

// ListResult - страница записей.
//
// Total - точное число видимых записей, если хранилище умеет его посчитать,
// иначе nil. От этого зависит, как вычисляется hasMore.
type ListResult[T any] struct {
	Items []T
	Total *int
}

// ResourceRepository определяет контракт хранения одной сущности.
//
// Мягко удалённые записи для всех методов не существуют:
// FindByID/Update/SoftDelete возвращают ErrEntityNotFound, List их пропускает.
type ResourceRepository[T any] interface {
	// Insert сохраняет новую запись.
	// Возвращает ErrEntityAlreadyExists при совпадении ID.
	Insert(ctx context.Context, record T) error

	// FindByID загружает запись по ID.
	FindByID(ctx context.Context, id string) (T, error)

	// Update перезаписывает существующую запись целиком.
	Update(ctx context.Context, record T) error

	// SoftDelete помечает запись удалённой.
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// List возвращает окно [page.Cursor, page.RangeEnd()] в порядке создания.
	List(ctx context.Context, page pagination.Page) (ListResult[T], error)
}
