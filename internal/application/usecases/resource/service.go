// Package resource содержит use cases, общие для всех сущностей API:
// создание, чтение, обновление, мягкое удаление и постраничный список.
//
// Pattern: Use Case (Interactor)
// - Оркестрирует domain entities
// - Управляет транзакциями
// - Не знает о HTTP и о конкретном хранилище
package resource

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Haleralex/edgeapi/internal/application/pagination"
	"github.com/Haleralex/edgeapi/internal/application/ports"
	"github.com/Haleralex/edgeapi/internal/domain/entities"
	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
)

// Page - результат List, готовый к отдаче клиенту.
type Page[T any] struct {
	Items   []T
	Cursor  int // смещение следующей страницы
	HasMore bool
}

// Service - use cases одной сущности.
type Service[T entities.Resource[T]] struct {
	entity    string
	repo      ports.ResourceRepository[T]
	uow       ports.UnitOfWork
	validator *Validator
	now       func() time.Time
}

// NewService создаёт Service. entity - имя сущности для ошибок ("Project").
func NewService[T entities.Resource[T]](
	entity string,
	repo ports.ResourceRepository[T],
	uow ports.UnitOfWork,
	validator *Validator,
) *Service[T] {
	return &Service[T]{
		entity:    entity,
		repo:      repo,
		uow:       uow,
		validator: validator,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Entity возвращает имя сущности.
func (s *Service[T]) Entity() string { return s.entity }

// Create создаёт запись из входных данных.
//
// Errors:
//   - ValidationErrors: невалидные данные
//   - ErrEntityAlreadyExists: конфликт ID
func (s *Service[T]) Create(ctx context.Context, input T) (T, error) {
	var zero T

	now := s.now()
	record := input.Normalize().WithIdentity(entities.Identity{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	})

	if err := s.validator.Struct(record); err != nil {
		return zero, err
	}

	if err := s.repo.Insert(ctx, record); err != nil {
		return zero, fmt.Errorf("failed to create %s: %w", s.entity, err)
	}

	return record, nil
}

// Get загружает запись по ID.
func (s *Service[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	if err := checkID(id); err != nil {
		return zero, err
	}

	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return zero, fmt.Errorf("failed to get %s %s: %w", s.entity, id, err)
	}
	return record, nil
}

// Update накладывает body на сохранённую запись (см. MergeMode).
// Чтение и запись идут в одной транзакции.
func (s *Service[T]) Update(ctx context.Context, id string, body map[string]any, mode MergeMode) (T, error) {
	var zero T

	if err := checkID(id); err != nil {
		return zero, err
	}
	if body == nil {
		return zero, domainerrors.ErrEmptyPatch
	}

	return ports.ExecuteWithResult(ctx, s.uow, func(txCtx context.Context) (T, error) {
		current, err := s.repo.FindByID(txCtx, id)
		if err != nil {
			return zero, fmt.Errorf("failed to get %s %s: %w", s.entity, id, err)
		}

		merged, err := merge(current, body, mode)
		if err != nil {
			return zero, fmt.Errorf("failed to apply update to %s: %w", s.entity, err)
		}

		identity := current.GetIdentity()
		identity.UpdatedAt = s.now()
		record := merged.Normalize().WithIdentity(identity)

		if err := s.validator.Struct(record); err != nil {
			return zero, err
		}

		if err := s.repo.Update(txCtx, record); err != nil {
			return zero, fmt.Errorf("failed to update %s %s: %w", s.entity, id, err)
		}
		return record, nil
	})
}

// Delete мягко удаляет запись.
func (s *Service[T]) Delete(ctx context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", s.entity, id, err)
	}
	return nil
}

// List возвращает страницу записей.
//
// hasMore берётся из точного числа записей, если хранилище его отдало,
// иначе страница считается не последней, когда она заполнена.
func (s *Service[T]) List(ctx context.Context, page pagination.Page) (Page[T], error) {
	result, err := s.repo.List(ctx, page)
	if err != nil {
		return Page[T]{}, fmt.Errorf("failed to list %s: %w", s.entity, err)
	}

	items := result.Items
	if items == nil {
		items = []T{}
	}

	return Page[T]{
		Items:   items,
		Cursor:  page.NextCursor(len(items)),
		HasMore: page.HasMore(len(items), result.Total),
	}, nil
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", domainerrors.ErrInvalidEntityID, id)
	}
	return nil
}
