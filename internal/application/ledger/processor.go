// Package ledger aplica entradas y salidas sobre el stock: Material.stock, WarehouseItem y kardex
// cambian juntos en una sola transacción.
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ports"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// MovementLine una línea de un documento de movimiento.
// En salidas LocationID es opcional: vacío = consumir por orden de código de ubicación.
type MovementLine struct {
	MaterialID string
	LocationID string
	Quantity   decimal.Decimal
}

// MovementDocument documento de entrada o salida. Todas sus líneas se aplican o ninguna.
type MovementDocument struct {
	Reference string
	Actor     string
	Lines     []MovementLine
}

// MovementProcessor registra entradas y salidas manteniendo stock == Σ ítems de bodega.
type MovementProcessor struct {
	tx     TxRunner
	events ports.EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewMovementProcessor construye el procesador. events puede ser nil.
func NewMovementProcessor(tx TxRunner, events ports.EventPublisher, log zerolog.Logger) *MovementProcessor {
	return &MovementProcessor{tx: tx, events: events, log: log, now: time.Now}
}

// ApplyInbound registra una recepción: por cada línea suma stock, suma (o crea) el ítem de la
// ubicación y agrega un kardex inbound con cantidad positiva.
func (p *MovementProcessor) ApplyInbound(ctx context.Context, doc MovementDocument) ([]*entity.InventoryLog, error) {
	if err := validateDocument(doc, true); err != nil {
		return nil, err
	}
	doc.Reference = reference(doc.Reference)
	now := p.now()

	var logs []*entity.InventoryLog
	err := p.tx.Run(ctx, func(s repository.Stores) error {
		logs = logs[:0]
		if _, err := lockMaterials(ctx, s, doc.Lines); err != nil {
			return err
		}
		for i, line := range doc.Lines {
			l, err := p.inbound(ctx, s, doc, line, now)
			if err != nil {
				return domain.AtEntry(i, err)
			}
			logs = append(logs, l)
		}
		return nil
	})
	if err != nil {
		p.log.Warn().Err(err).Str("reference", doc.Reference).Msg("entrada rechazada")
		return nil, err
	}

	p.log.Info().Str("reference", doc.Reference).Int("lines", len(doc.Lines)).Msg("entrada aplicada")
	p.publish(ctx, ports.EventInventoryInbound, doc, now)
	return logs, nil
}

// ApplyOutbound registra una salida. Falla con ErrInsufficientStock si el stock del material
// (o de la ubicación indicada) no cubre la cantidad.
func (p *MovementProcessor) ApplyOutbound(ctx context.Context, doc MovementDocument) ([]*entity.InventoryLog, error) {
	if err := validateDocument(doc, false); err != nil {
		return nil, err
	}
	doc.Reference = reference(doc.Reference)
	now := p.now()

	var logs []*entity.InventoryLog
	err := p.tx.Run(ctx, func(s repository.Stores) error {
		logs = logs[:0]
		stock, err := lockMaterials(ctx, s, doc.Lines)
		if err != nil {
			return err
		}
		for i, line := range doc.Lines {
			available := stock[line.MaterialID]
			if available.LessThan(line.Quantity) {
				return domain.AtEntry(i, domain.InsufficientStock(line.MaterialID, available, line.Quantity))
			}
			out, err := p.outbound(ctx, s, doc, line, now)
			if err != nil {
				return domain.AtEntry(i, err)
			}
			stock[line.MaterialID] = available.Sub(line.Quantity)
			logs = append(logs, out...)
		}
		return nil
	})
	if err != nil {
		p.log.Warn().Err(err).Str("reference", doc.Reference).Msg("salida rechazada")
		return nil, err
	}

	p.log.Info().Str("reference", doc.Reference).Int("lines", len(doc.Lines)).Msg("salida aplicada")
	p.publish(ctx, ports.EventInventoryOutbound, doc, now)
	return logs, nil
}

func (p *MovementProcessor) inbound(ctx context.Context, s repository.Stores, doc MovementDocument, line MovementLine, now time.Time) (*entity.InventoryLog, error) {
	loc, err := s.Locations.GetByID(ctx, line.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.NotFound("ubicación %s", line.LocationID)
	}
	if !loc.IsActive() {
		return nil, domain.Validation("ubicación %s inactiva", loc.Code)
	}

	item, err := s.Items.GetForUpdate(ctx, line.LocationID, line.MaterialID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		item = &entity.WarehouseItem{LocationID: line.LocationID, MaterialID: line.MaterialID, Quantity: decimal.Zero}
	}
	item.Quantity = item.Quantity.Add(line.Quantity)
	item.UpdatedAt = now
	if err := s.Items.Upsert(ctx, item); err != nil {
		return nil, err
	}
	if err := s.Materials.AddStock(ctx, line.MaterialID, line.Quantity); err != nil {
		return nil, err
	}

	l := &entity.InventoryLog{
		ID:         uuid.New().String(),
		MaterialID: line.MaterialID,
		LocationID: line.LocationID,
		Quantity:   line.Quantity,
		Type:       entity.LogTypeInbound,
		Reference:  doc.Reference,
		Date:       now,
		Actor:      doc.Actor,
	}
	return l, s.Logs.Append(ctx, l)
}

// outbound descuenta de la ubicación indicada o, sin ubicación, de todas por orden de código.
// Deja una fila de kardex por ubicación afectada.
func (p *MovementProcessor) outbound(ctx context.Context, s repository.Stores, doc MovementDocument, line MovementLine, now time.Time) ([]*entity.InventoryLog, error) {
	var items []*entity.WarehouseItem
	if line.LocationID != "" {
		loc, err := s.Locations.GetByID(ctx, line.LocationID)
		if err != nil {
			return nil, err
		}
		if loc == nil {
			return nil, domain.NotFound("ubicación %s", line.LocationID)
		}
		item, err := s.Items.GetForUpdate(ctx, line.LocationID, line.MaterialID)
		if err != nil {
			return nil, err
		}
		if item == nil || item.Quantity.LessThan(line.Quantity) {
			have := decimal.Zero
			if item != nil {
				have = item.Quantity
			}
			return nil, domain.InsufficientStock(line.MaterialID, have, line.Quantity)
		}
		items = []*entity.WarehouseItem{item}
	} else {
		var err error
		items, err = s.Items.ListByMaterialForUpdate(ctx, line.MaterialID)
		if err != nil {
			return nil, err
		}
		total := decimal.Zero
		for _, it := range items {
			total = total.Add(it.Quantity)
		}
		if total.LessThan(line.Quantity) {
			return nil, domain.InsufficientStock(line.MaterialID, total, line.Quantity)
		}
	}

	remaining := line.Quantity
	var logs []*entity.InventoryLog
	for _, it := range items {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(it.Quantity, remaining)
		if !take.IsPositive() {
			continue
		}
		it.Quantity = it.Quantity.Sub(take)
		it.UpdatedAt = now
		if it.Quantity.IsPositive() {
			if err := s.Items.Upsert(ctx, it); err != nil {
				return nil, err
			}
		} else if err := s.Items.Delete(ctx, it.LocationID, it.MaterialID); err != nil {
			return nil, err
		}
		l := &entity.InventoryLog{
			ID:         uuid.New().String(),
			MaterialID: line.MaterialID,
			LocationID: it.LocationID,
			Quantity:   take.Neg(),
			Type:       entity.LogTypeOutbound,
			Reference:  doc.Reference,
			Date:       now,
			Actor:      doc.Actor,
		}
		if err := s.Logs.Append(ctx, l); err != nil {
			return nil, err
		}
		logs = append(logs, l)
		remaining = remaining.Sub(take)
	}

	if err := s.Materials.AddStock(ctx, line.MaterialID, line.Quantity.Neg()); err != nil {
		return nil, err
	}
	return logs, nil
}

// lockMaterials bloquea los materiales del documento en orden ascendente de id y devuelve su stock.
// El mismo orden usa el cierre de conteos, así entradas/salidas y cierre no se bloquean mutuamente.
func lockMaterials(ctx context.Context, s repository.Stores, lines []MovementLine) (map[string]decimal.Decimal, error) {
	first := make(map[string]int, len(lines))
	ids := make([]string, 0, len(lines))
	for i, l := range lines {
		if _, ok := first[l.MaterialID]; !ok {
			first[l.MaterialID] = i
			ids = append(ids, l.MaterialID)
		}
	}
	sort.Strings(ids)

	stock := make(map[string]decimal.Decimal, len(ids))
	for _, id := range ids {
		m, err := s.Materials.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, domain.AtEntry(first[id], domain.NotFound("material %s", id))
		}
		stock[id] = m.Stock
	}
	return stock, nil
}

func validateDocument(doc MovementDocument, inbound bool) error {
	if len(doc.Lines) == 0 {
		return domain.Validation("el documento no tiene líneas")
	}
	for i, l := range doc.Lines {
		if l.MaterialID == "" {
			return domain.AtEntry(i, domain.Validation("material requerido"))
		}
		if !l.Quantity.IsPositive() {
			return domain.AtEntry(i, domain.Validation("la cantidad debe ser mayor a cero, llegó %s", l.Quantity.String()))
		}
		if !domain.ValidScale(l.Quantity) {
			return domain.AtEntry(i, domain.Validation("la cantidad admite hasta %d decimales, llegó %s", domain.QuantityScale, l.Quantity.String()))
		}
		if inbound && l.LocationID == "" {
			return domain.AtEntry(i, domain.Validation("la entrada requiere ubicación"))
		}
	}
	return nil
}

func reference(ref string) string {
	if ref != "" {
		return ref
	}
	return "MOV-" + uuid.New().String()[:8]
}

func (p *MovementProcessor) publish(ctx context.Context, typ string, doc MovementDocument, now time.Time) {
	if p.events == nil {
		return
	}
	lines := make([]map[string]any, 0, len(doc.Lines))
	for _, l := range doc.Lines {
		lines = append(lines, map[string]any{
			"material_id": l.MaterialID,
			"location_id": l.LocationID,
			"quantity":    l.Quantity.String(),
		})
	}
	evt := ports.Event{Type: typ, Reference: doc.Reference, Actor: doc.Actor, OccurredAt: now, Data: map[string]any{"lines": lines}}
	if err := p.events.Publish(ctx, evt); err != nil {
		p.log.Error().Err(err).Str("event", typ).Str("reference", doc.Reference).Msg("no se pudo publicar evento")
	}
}
