package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

var _ repository.InventoryLogRepository = (*InventoryLogRepo)(nil)

// InventoryLogRepo kardex append-only. La tabla además tiene un trigger que rechaza UPDATE y DELETE.
type InventoryLogRepo struct {
	q Querier
}

// NewInventoryLogRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryLogRepository(q Querier) *InventoryLogRepo {
	return &InventoryLogRepo{q: q}
}

// Append persiste una fila del kardex.
func (r *InventoryLogRepo) Append(ctx context.Context, l *entity.InventoryLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	query := `
		INSERT INTO inventory_logs (id, material_id, location_id, quantity, type, reference, date, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		l.ID, l.MaterialID, nullIfEmpty(l.LocationID), l.Quantity, l.Type, l.Reference, l.Date, l.Actor,
	)
	if err != nil {
		return fmt.Errorf("append inventory log: %w", err)
	}
	return nil
}

// ListByMaterial historial del material, más reciente primero.
func (r *InventoryLogRepo) ListByMaterial(ctx context.Context, materialID string, limit, offset int) ([]*entity.InventoryLog, error) {
	if !validID(materialID) {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, material_id, location_id, quantity, type, reference, date, actor
		FROM inventory_logs
		WHERE material_id = $1
		ORDER BY date DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.q.Query(ctx, query, materialID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list inventory logs: %w", err)
	}
	defer rows.Close()

	var out []*entity.InventoryLog
	for rows.Next() {
		var l entity.InventoryLog
		var locationID *string
		if err := rows.Scan(&l.ID, &l.MaterialID, &locationID, &l.Quantity, &l.Type, &l.Reference, &l.Date, &l.Actor); err != nil {
			return nil, fmt.Errorf("scan inventory log: %w", err)
		}
		if locationID != nil {
			l.LocationID = *locationID
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}
