package stocktake

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// TxRunner ejecuta callbacks transaccionales con los repositorios atados a la tx.
// RunIsolated usa aislamiento de snapshot (REPEATABLE READ o SERIALIZABLE):
// lo usan inicio y cierre. Los envíos de conteo van por Run y se ordenan con el bloqueo del conteo.
type TxRunner interface {
	Run(ctx context.Context, fn func(s repository.Stores) error) error
	RunIsolated(ctx context.Context, fn func(s repository.Stores) error) error
}
