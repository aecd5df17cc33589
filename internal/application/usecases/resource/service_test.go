// Package resource_test проверяет generic use cases на моках и на
// хранилище в памяти.
package resource_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/edgeapi/internal/application/pagination"
	"github.com/Haleralex/edgeapi/internal/application/ports"
	"github.com/Haleralex/edgeapi/internal/application/usecases/resource"
	"github.com/Haleralex/edgeapi/internal/domain/entities"
	domainerrors "github.com/Haleralex/edgeapi/internal/domain/errors"
	"github.com/Haleralex/edgeapi/internal/infrastructure/persistence/memory"
	"github.com/Haleralex/edgeapi/internal/infrastructure/persistence/rowmap"
)

// ============================================
// Mock Implementations (Test Doubles)
// ============================================

// MockRepository - mock реализация ResourceRepository для тестов.
type MockRepository[T any] struct {
	InsertFunc     func(ctx context.Context, record T) error
	FindByIDFunc   func(ctx context.Context, id string) (T, error)
	UpdateFunc     func(ctx context.Context, record T) error
	SoftDeleteFunc func(ctx context.Context, id string, at time.Time) error
	ListFunc       func(ctx context.Context, page pagination.Page) (ports.ListResult[T], error)
}

func (m *MockRepository[T]) Insert(ctx context.Context, record T) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, record)
	}
	return nil
}

func (m *MockRepository[T]) FindByID(ctx context.Context, id string) (T, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	var zero T
	return zero, domainerrors.ErrEntityNotFound
}

func (m *MockRepository[T]) Update(ctx context.Context, record T) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, record)
	}
	return nil
}

func (m *MockRepository[T]) SoftDelete(ctx context.Context, id string, at time.Time) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id, at)
	}
	return nil
}

func (m *MockRepository[T]) List(ctx context.Context, page pagination.Page) (ports.ListResult[T], error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, page)
	}
	return ports.ListResult[T]{}, nil
}

// MockUnitOfWork - mock для unit of work.
type MockUnitOfWork struct {
	ExecuteFunc func(ctx context.Context, fn func(context.Context) error) error
	Calls       int
}

func (m *MockUnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	m.Calls++
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, fn)
	}
	return fn(ctx)
}

const missingID = "8b7c1f4e-2d3a-4c5b-9e6f-7a8b9c0d1e2f"

func newProjectService(repo ports.ResourceRepository[entities.Project], uow ports.UnitOfWork) *resource.Service[entities.Project] {
	return resource.NewService[entities.Project]("Project", repo, uow, resource.NewValidator())
}

func newMemoryProjectService(exact bool) *resource.Service[entities.Project] {
	repo := memory.NewRepository(rowmap.MustNew[entities.Project]("Project"), exact)
	return newProjectService(repo, memory.UnitOfWork{})
}

// ============================================
// Create
// ============================================

func TestService_Create_Success(t *testing.T) {
	var saved entities.Project
	repo := &MockRepository[entities.Project]{
		InsertFunc: func(ctx context.Context, record entities.Project) error {
			saved = record
			return nil
		},
	}
	svc := newProjectService(repo, &MockUnitOfWork{})

	created, err := svc.Create(context.Background(), entities.Project{
		ID:   "client-chosen",
		Name: "  Apollo ",
		Tags: []string{"go"},
	})
	require.NoError(t, err)

	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Len(t, created.ID, 36)
	assert.Equal(t, "Apollo", created.Name)
	assert.Equal(t, entities.ProjectStatusActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)
	assert.Nil(t, created.DeletedAt)
	assert.Equal(t, created, saved)
}

func TestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   entities.Project
		message string
	}{
		{"EmptyName", entities.Project{Name: ""}, "name is required"},
		{"BlankName", entities.Project{Name: "   "}, "name is required"},
		{"BadStatus", entities.Project{Name: "x", Status: "DONE"}, "status must be one of: ACTIVE, ARCHIVED"},
		{"BadOwner", entities.Project{Name: "x", OwnerID: "nope"}, "ownerId must be a valid UUID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inserted := false
			repo := &MockRepository[entities.Project]{
				InsertFunc: func(ctx context.Context, record entities.Project) error {
					inserted = true
					return nil
				},
			}
			svc := newProjectService(repo, &MockUnitOfWork{})

			_, err := svc.Create(context.Background(), tt.input)

			var valErrs domainerrors.ValidationErrors
			require.True(t, errors.As(err, &valErrs))
			assert.Equal(t, tt.message, valErrs[0].Message)
			assert.False(t, inserted)
		})
	}
}

func TestService_Create_ProfileValidation(t *testing.T) {
	repo := &MockRepository[entities.Profile]{}
	svc := resource.NewService[entities.Profile]("Profile", repo, &MockUnitOfWork{}, resource.NewValidator())

	_, err := svc.Create(context.Background(), entities.Profile{DisplayName: "Ada", Email: "not-an-email"})

	var valErrs domainerrors.ValidationErrors
	require.True(t, errors.As(err, &valErrs))
	assert.Equal(t, "email", valErrs[0].Field)
	assert.Equal(t, "email must be a valid email address", valErrs[0].Message)
}

func TestService_Create_RepositoryError(t *testing.T) {
	repo := &MockRepository[entities.Project]{
		InsertFunc: func(ctx context.Context, record entities.Project) error {
			return errors.New("connection refused")
		},
	}
	svc := newProjectService(repo, &MockUnitOfWork{})

	_, err := svc.Create(context.Background(), entities.Project{Name: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create Project")
}

// ============================================
// Get / Delete
// ============================================

func TestService_Get(t *testing.T) {
	svc := newMemoryProjectService(true)
	ctx := context.Background()

	created, err := svc.Create(ctx, entities.Project{Name: "x"})
	require.NoError(t, err)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.Get(ctx, missingID)
	assert.True(t, domainerrors.IsNotFound(err))

	_, err = svc.Get(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidEntityID)
}

func TestService_Delete(t *testing.T) {
	svc := newMemoryProjectService(true)
	ctx := context.Background()

	created, err := svc.Create(ctx, entities.Project{Name: "x"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.True(t, domainerrors.IsNotFound(err))

	err = svc.Delete(ctx, created.ID)
	assert.True(t, domainerrors.IsNotFound(err))
}

// ============================================
// Update
// ============================================

func TestService_Update_Patch(t *testing.T) {
	svc := newMemoryProjectService(true)
	ctx := context.Background()

	created, err := svc.Create(ctx, entities.Project{Name: "x", Description: "keep me", Tags: []string{"a"}})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, map[string]any{
		"name":      "renamed",
		"tags":      nil,
		"id":        "hijack",
		"createdAt": "1999-01-01T00:00:00Z",
	}, resource.MergePatch)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, "keep me", updated.Description)
	assert.Nil(t, updated.Tags)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(created.UpdatedAt))

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestService_Update_Replace(t *testing.T) {
	svc := newMemoryProjectService(true)
	ctx := context.Background()

	created, err := svc.Create(ctx, entities.Project{Name: "x", Description: "dropped"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, created.ID, map[string]any{"name": "y"}, resource.MergeReplace)
	require.NoError(t, err)

	assert.Equal(t, "y", updated.Name)
	assert.Empty(t, updated.Description)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestService_Update_Errors(t *testing.T) {
	svc := newMemoryProjectService(true)
	ctx := context.Background()

	created, err := svc.Create(ctx, entities.Project{Name: "x"})
	require.NoError(t, err)

	t.Run("ValidationAfterMerge", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, map[string]any{"name": ""}, resource.MergePatch)
		assert.True(t, domainerrors.IsValidationError(err))
	})

	t.Run("WrongType", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, map[string]any{"name": 42}, resource.MergePatch)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to apply update to Project")
	})

	t.Run("NilBody", func(t *testing.T) {
		_, err := svc.Update(ctx, created.ID, nil, resource.MergePatch)
		assert.ErrorIs(t, err, domainerrors.ErrEmptyPatch)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := svc.Update(ctx, missingID, map[string]any{"name": "z"}, resource.MergePatch)
		assert.True(t, domainerrors.IsNotFound(err))
	})
}

func TestService_Update_RunsInsideUnitOfWork(t *testing.T) {
	txErr := errors.New("serialization failure")
	uow := &MockUnitOfWork{
		ExecuteFunc: func(ctx context.Context, fn func(context.Context) error) error {
			if err := fn(ctx); err != nil {
				return err
			}
			return txErr
		},
	}
	repo := &MockRepository[entities.Project]{
		FindByIDFunc: func(ctx context.Context, id string) (entities.Project, error) {
			return entities.Project{ID: id, Name: "x", CreatedAt: time.Now()}, nil
		},
	}
	svc := newProjectService(repo, uow)

	_, err := svc.Update(context.Background(), missingID, map[string]any{"name": "y"}, resource.MergePatch)

	assert.ErrorIs(t, err, txErr)
	assert.Equal(t, 1, uow.Calls)
}

// ============================================
// List
// ============================================

func TestService_List_ExactCount(t *testing.T) {
	svc := newMemoryProjectService(true)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := svc.Create(ctx, entities.Project{Name: "p"})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, pagination.FromQuery("200", "10"))
	require.NoError(t, err)

	assert.Len(t, page.Items, 5)
	assert.Equal(t, 15, page.Cursor)
	assert.False(t, page.HasMore)

	page, err = svc.List(ctx, pagination.FromQuery("5", "5"))
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 10, page.Cursor)
	assert.True(t, page.HasMore)
}

func TestService_List_HeuristicWithoutCount(t *testing.T) {
	svc := newMemoryProjectService(false)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := svc.Create(ctx, entities.Project{Name: "p"})
		require.NoError(t, err)
	}

	// Полная последняя страница: без точного числа это неотличимо от
	// "есть ещё", поэтому hasMore=true.
	page, err := svc.List(ctx, pagination.Page{Cursor: 5, Limit: 5})
	require.NoError(t, err)
	assert.True(t, page.HasMore)

	page, err = svc.List(ctx, pagination.Page{Cursor: 10, Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.False(t, page.HasMore)
	assert.Equal(t, 10, page.Cursor)
}

func TestService_List_RepositoryError(t *testing.T) {
	repo := &MockRepository[entities.Project]{
		ListFunc: func(ctx context.Context, page pagination.Page) (ports.ListResult[entities.Project], error) {
			return ports.ListResult[entities.Project]{}, errors.New("timeout")
		},
	}
	svc := newProjectService(repo, &MockUnitOfWork{})

	_, err := svc.List(context.Background(), pagination.Page{Limit: 10})
	assert.ErrorContains(t, err, "failed to list Project")
}
