// Package postgres - UnitOfWork implementation для PostgreSQL.
//
// Unit of Work Pattern:
// - Управляет границами транзакций
// - Автоматический ROLLBACK при ошибках
// - Automatic COMMIT при успехе
//
// Usage:
//
//	err := uow.Execute(ctx, func(txCtx context.Context) error {
//	    // Все операции с репозиториями используют txCtx
//	    current, _ := repo.FindByID(txCtx, id)
//	    return repo.Update(txCtx, current)
//	})
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Haleralex/edgeapi/internal/application/ports"
)

// Compile-time check
var _ ports.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork реализует ports.UnitOfWork с PostgreSQL транзакциями.
type UnitOfWork struct {
	pool       *pgxpool.Pool
	opts       pgx.TxOptions
	maxRetries int
}

// NewUnitOfWork создаёт UnitOfWork с READ COMMITTED и без повторов.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{
		pool: pool,
		opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted},
	}
}

// WithIsolation возвращает копию с другим уровнем изоляции.
func (u *UnitOfWork) WithIsolation(isolation pgx.TxIsoLevel) *UnitOfWork {
	cp := *u
	cp.opts.IsoLevel = isolation
	return &cp
}

// ParseIsolation переводит имя из конфигурации (read_committed,
// repeatable_read, serializable) в pgx.TxIsoLevel.
func ParseIsolation(name string) (pgx.TxIsoLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "read_committed":
		return pgx.ReadCommitted, nil
	case "repeatable_read":
		return pgx.RepeatableRead, nil
	case "serializable":
		return pgx.Serializable, nil
	default:
		return "", fmt.Errorf("unknown transaction isolation: %q", name)
	}
}

// WithRetries возвращает копию, которая повторяет транзакцию до n раз
// при serialization failure, deadlock и потере соединения.
func (u *UnitOfWork) WithRetries(n int) *UnitOfWork {
	cp := *u
	cp.maxRetries = n
	return &cp
}

// Execute выполняет функцию внутри транзакции.
//
// Поведение:
// - Если в context уже есть транзакция, fn выполняется в ней
// - Если fn возвращает nil: COMMIT
// - Если fn возвращает error: ROLLBACK
// - Если panic: ROLLBACK + re-panic
//
// ВАЖНО: Все repositories внутри fn должны использовать переданный txCtx!
func (u *UnitOfWork) Execute(ctx context.Context, fn func(context.Context) error) error {
	if hasTx(ctx) {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 0; attempt <= u.maxRetries; attempt++ {
		err := u.executeOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if u.maxRetries == 0 || !isRetryableError(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (u *UnitOfWork) executeOnce(ctx context.Context, fn func(context.Context) error) error {
	tx, err := u.pool.BeginTx(ctx, u.opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if err := fn(injectTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
