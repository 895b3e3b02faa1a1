package entity

import "time"

// Estados de una ubicación de bodega.
const (
	LocationStatusActive   = "ACTIVE"
	LocationStatusInactive = "INACTIVE"
)

// WarehouseLocation representa una ubicación física (estante, bin) dentro de la bodega.
type WarehouseLocation struct {
	ID        string
	Code      string
	Status    string
	CreatedAt time.Time
}

// IsActive indica si la ubicación admite movimientos y conteos.
func (l *WarehouseLocation) IsActive() bool {
	return l.Status == LocationStatusActive
}
