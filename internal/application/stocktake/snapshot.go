package stocktake

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// buildSnapshot arma una línea por cada ítem de bodega de cada ubicación asignada,
// con la cantidad en libros congelada. Un material sin unidad aborta todo el inicio.
func buildSnapshot(ctx context.Context, r repository.Stores, st *entity.Stocktake, assignments []*entity.StocktakeAssignment, now time.Time) ([]*entity.StocktakeResult, error) {
	materials := map[string]*entity.Material{}
	var results []*entity.StocktakeResult

	for _, a := range assignments {
		items, err := r.Items.ListByLocation(ctx, a.LocationID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			m, ok := materials[it.MaterialID]
			if !ok {
				m, err = r.Materials.GetByID(ctx, it.MaterialID)
				if err != nil {
					return nil, err
				}
				if m == nil {
					return nil, domain.NotFound("material %s", it.MaterialID)
				}
				materials[it.MaterialID] = m
			}
			if !m.HasUnit() {
				return nil, domain.MissingUnit("material %s (%s)", m.Code, m.ID)
			}
			results = append(results, &entity.StocktakeResult{
				ID:             uuid.New().String(),
				StocktakeID:    st.ID,
				MaterialID:     it.MaterialID,
				LocationID:     a.LocationID,
				UnitID:         *m.UnitID,
				BookQuantity:   it.Quantity,
				ActualQuantity: decimal.Zero,
				Variance:       decimal.Zero,
				Version:        1,
				UpdatedAt:      now,
			})
		}
	}
	return results, nil
}
