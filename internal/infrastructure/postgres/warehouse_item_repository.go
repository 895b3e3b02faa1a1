package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

var _ repository.WarehouseItemRepository = (*WarehouseItemRepo)(nil)

// WarehouseItemRepo cantidades por (ubicación, material) sobre PostgreSQL (usable con pool o tx).
type WarehouseItemRepo struct {
	q Querier
}

// NewWarehouseItemRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWarehouseItemRepository(q Querier) *WarehouseItemRepo {
	return &WarehouseItemRepo{q: q}
}

const itemSelect = `
	SELECT w.location_id, w.material_id, w.quantity, w.updated_at, l.code
	FROM warehouse_items w
	JOIN warehouse_locations l ON l.id = w.location_id`

func scanItem(row pgx.Row) (*entity.WarehouseItem, error) {
	var it entity.WarehouseItem
	if err := row.Scan(&it.LocationID, &it.MaterialID, &it.Quantity, &it.UpdatedAt, &it.LocationCode); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *WarehouseItemRepo) get(ctx context.Context, locationID, materialID, suffix string) (*entity.WarehouseItem, error) {
	if !validID(locationID) || !validID(materialID) {
		return nil, nil
	}
	it, err := scanItem(r.q.QueryRow(ctx, itemSelect+` WHERE w.location_id = $1 AND w.material_id = $2`+suffix, locationID, materialID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get warehouse item: %w", err)
	}
	return it, nil
}

// Get obtiene el ítem o nil si la ubicación no tiene ese material.
func (r *WarehouseItemRepo) Get(ctx context.Context, locationID, materialID string) (*entity.WarehouseItem, error) {
	return r.get(ctx, locationID, materialID, "")
}

// GetForUpdate obtiene el ítem y bloquea la fila (SELECT FOR UPDATE).
func (r *WarehouseItemRepo) GetForUpdate(ctx context.Context, locationID, materialID string) (*entity.WarehouseItem, error) {
	return r.get(ctx, locationID, materialID, ` FOR UPDATE OF w`)
}

// ListByLocation ítems de una ubicación ordenados por material.
func (r *WarehouseItemRepo) ListByLocation(ctx context.Context, locationID string) ([]*entity.WarehouseItem, error) {
	return r.list(ctx, itemSelect+` WHERE w.location_id = $1 ORDER BY w.material_id`, locationID)
}

// ListByMaterialForUpdate bloquea los ítems del material en orden de código de ubicación.
func (r *WarehouseItemRepo) ListByMaterialForUpdate(ctx context.Context, materialID string) ([]*entity.WarehouseItem, error) {
	return r.list(ctx, itemSelect+` WHERE w.material_id = $1 ORDER BY l.code, w.location_id FOR UPDATE OF w`, materialID)
}

func (r *WarehouseItemRepo) list(ctx context.Context, query, id string) ([]*entity.WarehouseItem, error) {
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list warehouse items: %w", err)
	}
	defer rows.Close()

	var out []*entity.WarehouseItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan warehouse item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Upsert inserta o actualiza la cantidad (absoluta) de la fila.
func (r *WarehouseItemRepo) Upsert(ctx context.Context, item *entity.WarehouseItem) error {
	query := `
		INSERT INTO warehouse_items (location_id, material_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (location_id, material_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	if _, err := r.q.Exec(ctx, query, item.LocationID, item.MaterialID, item.Quantity); err != nil {
		return fmt.Errorf("upsert warehouse item: %w", err)
	}
	return nil
}

// Delete elimina la fila del ítem.
func (r *WarehouseItemRepo) Delete(ctx context.Context, locationID, materialID string) error {
	_, err := r.q.Exec(ctx, `DELETE FROM warehouse_items WHERE location_id = $1 AND material_id = $2`, locationID, materialID)
	if err != nil {
		return fmt.Errorf("delete warehouse item: %w", err)
	}
	return nil
}
