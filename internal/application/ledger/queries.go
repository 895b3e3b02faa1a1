package ledger

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// MaxHistoryPage tope de filas por página del kardex.
const MaxHistoryPage = 200

// History devuelve el kardex del material, más reciente primero.
func (p *MovementProcessor) History(ctx context.Context, materialID string, limit, offset int) ([]*entity.InventoryLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > MaxHistoryPage {
		limit = MaxHistoryPage
	}
	if offset < 0 {
		return nil, domain.Validation("offset no puede ser negativo")
	}
	var logs []*entity.InventoryLog
	err := p.tx.Run(ctx, func(s repository.Stores) error {
		m, err := s.Materials.GetByID(ctx, materialID)
		if err != nil {
			return err
		}
		if m == nil {
			return domain.NotFound("material %s", materialID)
		}
		logs, err = s.Logs.ListByMaterial(ctx, materialID, limit, offset)
		return err
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// Consistency lista los materiales cuyo stock no coincide con la suma de sus ítems de bodega.
// Vacío significa que el kardex está cuadrado.
func (p *MovementProcessor) Consistency(ctx context.Context) ([]repository.StockDrift, error) {
	var drift []repository.StockDrift
	err := p.tx.Run(ctx, func(s repository.Stores) error {
		var err error
		drift, err = s.Materials.ListDrift(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(drift) > 0 {
		p.log.Warn().Int("materials", len(drift)).Msg("stock descuadrado frente a ítems de bodega")
	}
	return drift, nil
}
