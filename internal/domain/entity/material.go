package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material representa un material del catálogo. Stock es el agregado cacheado:
// debe ser igual a la suma de WarehouseItem.Quantity del material en cada punto de commit.
type Material struct {
	ID        string
	Code      string
	Name      string
	Stock     decimal.Decimal
	UnitID    *string // unidad de medida; nil = sin unidad (bloquea el conteo)
	UpdatedAt time.Time
}

// HasUnit indica si el material tiene unidad de medida asignada.
func (m *Material) HasUnit() bool {
	return m.UnitID != nil && *m.UnitID != ""
}
