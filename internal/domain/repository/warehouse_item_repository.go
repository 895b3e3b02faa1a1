package repository

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
)

// WarehouseItemRepository define el puerto de cantidades por (ubicación, material).
// Usado dentro de transacciones; Get* devuelven (nil, nil) si no hay fila.
type WarehouseItemRepository interface {
	Get(ctx context.Context, locationID, materialID string) (*entity.WarehouseItem, error)
	GetForUpdate(ctx context.Context, locationID, materialID string) (*entity.WarehouseItem, error)
	// ListByLocation devuelve los ítems de la ubicación ordenados por material.
	ListByLocation(ctx context.Context, locationID string) ([]*entity.WarehouseItem, error)
	// ListByMaterialForUpdate bloquea y devuelve los ítems del material ordenados por código de ubicación.
	ListByMaterialForUpdate(ctx context.Context, materialID string) ([]*entity.WarehouseItem, error)
	// Upsert fija la cantidad absoluta de la fila, creándola si no existe.
	Upsert(ctx context.Context, item *entity.WarehouseItem) error
	Delete(ctx context.Context, locationID, materialID string) error
}
