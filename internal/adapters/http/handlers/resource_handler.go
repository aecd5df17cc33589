// Package handlers - HTTP handlers ресурсов.
//
// Handlers не знают о транспорте: они получают нормализованный
// common.Request от adapter и возвращают common.Result. Один и тот же
// handler обслуживает gin и API Gateway.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
	"github.com/Haleralex/edgeapi/internal/application/pagination"
	"github.com/Haleralex/edgeapi/internal/application/usecases/resource"
	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
)

// IDParam - имя path параметра с ID записи.
const IDParam = "id"

// ============================================
// Use Case Interface
// ============================================

// ResourceService - use cases одной сущности.
type ResourceService[T any] interface {
	Entity() string
	Create(ctx context.Context, input T) (T, error)
	Get(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, id string, body map[string]any, mode resource.MergeMode) (T, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, page pagination.Page) (resource.Page[T], error)
}

// ============================================
// Resource Handler
// ============================================

// ResourceHandler обрабатывает запросы к коллекции и к отдельной записи.
//
// Pattern: Adapter (Hexagonal Architecture)
// - Преобразует Request в Use Case вызовы
// - Преобразует результаты в Result
type ResourceHandler[T any] struct {
	svc ResourceService[T]
}

// NewResourceHandler создаёт новый ResourceHandler.
func NewResourceHandler[T any](svc ResourceService[T]) *ResourceHandler[T] {
	return &ResourceHandler[T]{svc: svc}
}

// CollectionRoutes - маршруты для /<resources>.
func (h *ResourceHandler[T]) CollectionRoutes() common.Routes {
	return common.Routes{
		common.MethodGet:  h.List,
		common.MethodPost: h.Create,
	}
}

// ItemRoutes - маршруты для /<resources>/{id}.
func (h *ResourceHandler[T]) ItemRoutes() common.Routes {
	return common.Routes{
		common.MethodGet:    h.Get,
		common.MethodPut:    h.Replace,
		common.MethodPatch:  h.Patch,
		common.MethodDelete: h.Delete,
	}
}

// ============================================
// Handlers
// ============================================

// List возвращает страницу записей.
//
// Query: limit (1..100, default 25), cursor (смещение, default 0).
// Response: 200 {"data": [...], "cursor": <next offset>, "hasMore": bool}
func (h *ResourceHandler[T]) List(ctx context.Context, req *common.Request) (common.Result, error) {
	page := pagination.FromQuery(req.Query("limit"), req.Query("cursor"))

	result, err := h.svc.List(ctx, page)
	if err != nil {
		return h.fail(err)
	}

	return common.List(result.Items, result.Cursor, result.HasMore), nil
}

// Create создаёт запись. Response: 201 {"data": {...}}
func (h *ResourceHandler[T]) Create(ctx context.Context, req *common.Request) (common.Result, error) {
	var input T
	if err := req.Bind(&input); err != nil {
		return common.Result{}, err
	}

	created, err := h.svc.Create(ctx, input)
	if err != nil {
		return h.fail(err)
	}

	return common.Created(created), nil
}

// Get возвращает запись по ID. Response: 200 {"data": {...}}
func (h *ResourceHandler[T]) Get(ctx context.Context, req *common.Request) (common.Result, error) {
	record, err := h.svc.Get(ctx, req.Param(IDParam))
	if err != nil {
		return h.fail(err)
	}

	return common.OK(record), nil
}

// Replace заменяет запись телом запроса (PUT).
func (h *ResourceHandler[T]) Replace(ctx context.Context, req *common.Request) (common.Result, error) {
	return h.update(ctx, req, resource.MergeReplace)
}

// Patch накладывает тело запроса на запись (PATCH, JSON merge patch).
func (h *ResourceHandler[T]) Patch(ctx context.Context, req *common.Request) (common.Result, error) {
	return h.update(ctx, req, resource.MergePatch)
}

func (h *ResourceHandler[T]) update(ctx context.Context, req *common.Request, mode resource.MergeMode) (common.Result, error) {
	if req.Body() == nil {
		return common.Result{}, common.ErrEmptyBody
	}
	body, ok := req.Body().(map[string]any)
	if !ok {
		return common.Result{}, domainerrors.ErrEmptyPatch
	}

	updated, err := h.svc.Update(ctx, req.Param(IDParam), body, mode)
	if err != nil {
		return h.fail(err)
	}

	return common.OK(updated), nil
}

// Delete мягко удаляет запись. Response: 204 без тела.
func (h *ResourceHandler[T]) Delete(ctx context.Context, req *common.Request) (common.Result, error) {
	if err := h.svc.Delete(ctx, req.Param(IDParam)); err != nil {
		return h.fail(err)
	}

	return common.NoContent(), nil
}

// fail переводит ошибки, для которых нужен текст с именем сущности.
// Остальные уходят в adapter как есть.
func (h *ResourceHandler[T]) fail(err error) (common.Result, error) {
	switch {
	case domainerrors.IsNotFound(err):
		return common.Fail(http.StatusNotFound, h.svc.Entity()+" not found"), nil
	case errors.Is(err, domainerrors.ErrEntityAlreadyExists):
		return common.Fail(http.StatusConflict, h.svc.Entity()+" already exists"), nil
	default:
		return common.Result{}, err
	}
}
