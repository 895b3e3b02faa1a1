package repository

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// StockDrift es un material cuyo stock cacheado no coincide con la suma por ubicación.
type StockDrift struct {
	MaterialID string
	Code       string
	Stock      decimal.Decimal
	ItemsTotal decimal.Decimal
}

// MaterialRepository define el puerto del catálogo de materiales y su stock agregado.
// Los getters devuelven (nil, nil) cuando el material no existe.
type MaterialRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Material, error)
	// GetForUpdate bloquea la fila del material (SELECT FOR UPDATE) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Material, error)
	// AddStock suma delta (con signo) al stock agregado.
	AddStock(ctx context.Context, id string, delta decimal.Decimal) error
	// RecomputeStock fija stock = SUM(quantity) de sus ítems de bodega y devuelve el nuevo valor.
	RecomputeStock(ctx context.Context, id string) (decimal.Decimal, error)
	// ListDrift lista materiales con stock distinto a la suma de sus ítems.
	ListDrift(ctx context.Context) ([]StockDrift, error)
}
