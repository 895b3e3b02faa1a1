package repository

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
)

// InventoryLogRepository es el kardex append-only: no expone update ni delete.
type InventoryLogRepository interface {
	Append(ctx context.Context, log *entity.InventoryLog) error
	// ListByMaterial devuelve el historial más reciente primero.
	ListByMaterial(ctx context.Context, materialID string, limit, offset int) ([]*entity.InventoryLog, error)
}
