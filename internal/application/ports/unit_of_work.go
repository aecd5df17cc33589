// Package ports - UnitOfWork паттерн для управления транзакциями.
//
// Pattern: Unit of Work
// - Один UnitOfWork = одна БД-транзакция
// - Автоматический rollback при ошибке
package ports

import "context"

// UnitOfWork определяет контракт для управления транзакциями.
//
// Пример использования:
//
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    current, err := repo.FindByID(txCtx, id)
//	    if err != nil {
//	        return err // rollback
//	    }
//	    return repo.Update(txCtx, merge(current, patch))
//	})
type UnitOfWork interface {
	// Execute выполняет fn внутри транзакции.
	//
	// Переданный в fn context содержит транзакцию,
	// все операции внутри fn должны использовать именно его.
	Execute(ctx context.Context, fn func(context.Context) error) error
}

// ExecuteWithResult - Execute, возвращающий значение из транзакции.
func ExecuteWithResult[T any](ctx context.Context, uow UnitOfWork, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := uow.Execute(ctx, func(txCtx context.Context) error {
		var err error
		result, err = fn(txCtx)
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}
