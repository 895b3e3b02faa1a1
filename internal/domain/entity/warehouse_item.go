package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// WarehouseItem es la cantidad de un material en una ubicación.
// Clave única (LocationID, MaterialID); Quantity >= 0. La fila se elimina al llegar a 0.
type WarehouseItem struct {
	LocationID string
	MaterialID string
	Quantity   decimal.Decimal
	UpdatedAt  time.Time

	// LocationCode se llena en lecturas con JOIN (orden de consumo en salidas).
	LocationCode string
}
