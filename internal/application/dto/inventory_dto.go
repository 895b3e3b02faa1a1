package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementLineRequest una línea del documento de movimiento.
type MovementLineRequest struct {
	MaterialID string          `json:"material_id" validate:"required,uuid"`
	LocationID string          `json:"location_id,omitempty" validate:"omitempty,uuid"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
}

// MovementRequest body para POST /api/inventory/inbound y /outbound.
type MovementRequest struct {
	Reference string                `json:"reference,omitempty" validate:"max=60"`
	Lines     []MovementLineRequest `json:"lines" validate:"required,min=1,max=200,dive"`
}

// InventoryLogResponse fila del kardex.
type InventoryLogResponse struct {
	ID         string          `json:"id"`
	MaterialID string          `json:"material_id"`
	LocationID string          `json:"location_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	Type       string          `json:"type"`
	Reference  string          `json:"reference"`
	Date       time.Time       `json:"date"`
	Actor      string          `json:"actor,omitempty"`
}

// MovementResponse resultado de aplicar un documento.
type MovementResponse struct {
	Reference string                 `json:"reference"`
	Logs      []InventoryLogResponse `json:"logs"`
}

// StockDriftResponse material cuyo stock no cuadra con sus ítems de bodega.
type StockDriftResponse struct {
	MaterialID string          `json:"material_id"`
	Code       string          `json:"code"`
	Stock      decimal.Decimal `json:"stock"`
	ItemsTotal decimal.Decimal `json:"items_total"`
}

// ConsistencyResponse reporte de cuadre del kardex.
type ConsistencyResponse struct {
	Consistent bool                 `json:"consistent"`
	Drift      []StockDriftResponse `json:"drift"`
}
