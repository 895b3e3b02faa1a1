package ledger

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace rollback y no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(s repository.Stores) error) error
}
