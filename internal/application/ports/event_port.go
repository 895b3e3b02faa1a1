package ports

import (
	"context"
	"time"
)

// Tipos de evento que emite el motor después del commit.
const (
	EventInventoryInbound   = "inventory.inbound"
	EventInventoryOutbound  = "inventory.outbound"
	EventStocktakeStarted   = "stocktake.started"
	EventStocktakeCompleted = "stocktake.completed"
)

// Event es el mensaje publicado hacia consumidores externos (reportes, notificaciones).
type Event struct {
	Type       string         `json:"type"`
	Reference  string         `json:"reference"`
	Actor      string         `json:"actor,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

// EventPublisher puerto de salida para eventos del kardex.
// Se invoca solo con la transacción ya confirmada; un error aquí no revierte nada.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
