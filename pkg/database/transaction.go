package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxFunc is the unit of work executed inside a transaction
type TxFunc func(pgx.Tx) error

// WithTransaction runs fn inside a transaction taken from the pool.
//   - fn returns an error -> rollback
//   - fn panics -> rollback, panic is re-raised
//   - otherwise -> commit
func WithTransaction(ctx context.Context, pool *pgxpool.Pool, fn TxFunc) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// TxManager lets services open a transaction without holding the pool.
// Repositories receive the pgx.Tx explicitly.
type TxManager interface {
	WithinTx(ctx context.Context, fn TxFunc) error
}

type poolTxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) TxManager {
	return &poolTxManager{pool: pool}
}

func (m *poolTxManager) WithinTx(ctx context.Context, fn TxFunc) error {
	return WithTransaction(ctx, m.pool, fn)
}

// WithSavepoint runs fn in a nested transaction (SAVEPOINT).
// A failure inside fn rolls back to the savepoint and leaves the outer tx usable.
func WithSavepoint(ctx context.Context, tx pgx.Tx, fn TxFunc) (err error) {
	if tx == nil {
		return fn(nil)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	defer func() {
		if err != nil {
			_ = sp.Rollback(ctx)
		}
	}()

	if err = fn(sp); err != nil {
		return err
	}

	if err = sp.Commit(ctx); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
