package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de registro del kardex.
const (
	LogTypeInbound       = "inbound"
	LogTypeOutbound      = "outbound"
	LogTypeAdjustmentIn  = "adjustment_in"
	LogTypeAdjustmentOut = "adjustment_out"
)

// InventoryLog es una fila append-only del kardex: nunca se actualiza ni se borra.
type InventoryLog struct {
	ID         string
	MaterialID string
	LocationID string          // vacío si el movimiento no es por ubicación
	Quantity   decimal.Decimal // delta con signo
	Type       string
	Reference  string // documento de origen (código de conteo, remisión, etc.)
	Date       time.Time
	Actor      string
}
