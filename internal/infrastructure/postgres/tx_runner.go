package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ledger"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/stocktake"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// Ensure TxRunner implements ledger.TxRunner y stocktake.TxRunner.
var _ ledger.TxRunner = (*TxRunner)(nil)
var _ stocktake.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool      *pgxpool.Pool
	isolation pgx.TxIsoLevel
}

// NewTxRunner construye el runner con el pool. isolation aplica a RunIsolated:
// "serializable" o, por defecto, "repeatable_read".
func NewTxRunner(pool *pgxpool.Pool, isolation string) *TxRunner {
	return &TxRunner{pool: pool, isolation: IsolationLevel(isolation)}
}

// IsolationLevel traduce el nombre de configuración al nivel de pgx.
func IsolationLevel(name string) pgx.TxIsoLevel {
	if name == "serializable" {
		return pgx.Serializable
	}
	return pgx.RepeatableRead
}

// NewStores arma el registro de repositorios sobre un pool o una tx.
func NewStores(q Querier) repository.Stores {
	return repository.Stores{
		Materials:   NewMaterialRepository(q),
		Locations:   NewLocationRepository(q),
		Items:       NewWarehouseItemRepository(q),
		Logs:        NewInventoryLogRepository(q),
		Stocktakes:  NewStocktakeRepository(q),
		Assignments: NewAssignmentRepository(q),
		Results:     NewResultRepository(q),
		Users:       NewUserRepository(q),
	}
}

// Run inicia una transacción READ COMMITTED, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// Entradas y salidas usan este nivel: la consistencia la dan los SELECT FOR UPDATE.
func (r *TxRunner) Run(ctx context.Context, fn func(s repository.Stores) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// RunIsolated igual que Run pero con el nivel de aislamiento configurado (snapshot).
func (r *TxRunner) RunIsolated(ctx context.Context, fn func(s repository.Stores) error) error {
	return r.run(ctx, pgx.TxOptions{IsoLevel: r.isolation}, fn)
}

func (r *TxRunner) run(ctx context.Context, opts pgx.TxOptions, fn func(s repository.Stores) error) error {
	tx, err := r.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewStores(tx)); err != nil {
		return asConflict(err)
	}
	if err := tx.Commit(ctx); err != nil {
		if c := asConflict(err); c != err {
			return c
		}
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
