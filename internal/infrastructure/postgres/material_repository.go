package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

var _ repository.MaterialRepository = (*MaterialRepo)(nil)

// MaterialRepo implementación de MaterialRepository sobre PostgreSQL (usable con pool o tx).
type MaterialRepo struct {
	q Querier
}

// NewMaterialRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMaterialRepository(q Querier) *MaterialRepo {
	return &MaterialRepo{q: q}
}

const materialColumns = `id, code, name, stock, unit_id, updated_at`

func scanMaterial(row pgx.Row) (*entity.Material, error) {
	var m entity.Material
	if err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Stock, &m.UnitID, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetByID obtiene un material por ID.
func (r *MaterialRepo) GetByID(ctx context.Context, id string) (*entity.Material, error) {
	if !validID(id) {
		return nil, nil
	}
	m, err := scanMaterial(r.q.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get material: %w", err)
	}
	return m, nil
}

// GetForUpdate obtiene el material y bloquea la fila (SELECT FOR UPDATE).
func (r *MaterialRepo) GetForUpdate(ctx context.Context, id string) (*entity.Material, error) {
	if !validID(id) {
		return nil, nil
	}
	m, err := scanMaterial(r.q.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get material for update: %w", err)
	}
	return m, nil
}

// AddStock suma delta al stock agregado.
func (r *MaterialRepo) AddStock(ctx context.Context, id string, delta decimal.Decimal) error {
	tag, err := r.q.Exec(ctx, `UPDATE materials SET stock = stock + $2, updated_at = now() WHERE id = $1`, id, delta)
	if err != nil {
		return fmt.Errorf("add material stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("material %s", id)
	}
	return nil
}

// RecomputeStock lee la suma de los ítems y la escribe en el material. Debe correr con la fila
// del material bloqueada y en aislamiento de snapshot para que ningún movimiento se cuele entre lectura y escritura.
func (r *MaterialRepo) RecomputeStock(ctx context.Context, id string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM warehouse_items WHERE material_id = $1`, id,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum warehouse items: %w", err)
	}
	tag, err := r.q.Exec(ctx, `UPDATE materials SET stock = $2, updated_at = now() WHERE id = $1`, id, total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("recompute material stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return decimal.Zero, domain.NotFound("material %s", id)
	}
	return total, nil
}

// ListDrift lista materiales cuyo stock no coincide con la suma de sus ítems.
func (r *MaterialRepo) ListDrift(ctx context.Context) ([]repository.StockDrift, error) {
	query := `
		SELECT m.id, m.code, m.stock, COALESCE(SUM(w.quantity), 0) AS items_total
		FROM materials m
		LEFT JOIN warehouse_items w ON w.material_id = m.id
		GROUP BY m.id, m.code, m.stock
		HAVING m.stock <> COALESCE(SUM(w.quantity), 0)
		ORDER BY m.code`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stock drift: %w", err)
	}
	defer rows.Close()

	var out []repository.StockDrift
	for rows.Next() {
		var d repository.StockDrift
		if err := rows.Scan(&d.MaterialID, &d.Code, &d.Stock, &d.ItemsTotal); err != nil {
			return nil, fmt.Errorf("scan stock drift: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
