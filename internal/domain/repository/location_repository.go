package repository

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
)

// LocationRepository es el directorio de ubicaciones de bodega.
type LocationRepository interface {
	GetByID(ctx context.Context, id string) (*entity.WarehouseLocation, error)
}
