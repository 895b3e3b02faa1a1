package stocktake

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ports"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
	rules "github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/stocktake"
)

// Complete cierra un conteo en RECONCILING aplicando las diferencias al stock:
// fija cada ítem con la cantidad contada, recalcula Material.stock como suma de sus ítems
// y deja un ajuste en el kardex por línea. Cualquier falla revierte todo.
func (s *Service) Complete(ctx context.Context, stocktakeID, actor string) (*CompletionSummary, error) {
	sum := &CompletionSummary{}
	err := s.tx.RunIsolated(ctx, func(r repository.Stores) error {
		sum.Logs = sum.Logs[:0]
		st, err := lockStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		if err := rules.Transition(st, entity.StocktakeStatusCompleted); err != nil {
			return err
		}

		results, err := r.Results.ListWithVariance(ctx, st.ID)
		if err != nil {
			return err
		}
		// Mismo orden de bloqueo que las entradas/salidas: materiales por id ascendente y luego ítems.
		sort.Slice(results, func(i, j int) bool {
			if results[i].MaterialID != results[j].MaterialID {
				return results[i].MaterialID < results[j].MaterialID
			}
			return results[i].LocationID < results[j].LocationID
		})
		var materialIDs []string
		for _, res := range results {
			if n := len(materialIDs); n == 0 || materialIDs[n-1] != res.MaterialID {
				materialIDs = append(materialIDs, res.MaterialID)
			}
		}
		for _, id := range materialIDs {
			m, err := r.Materials.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if m == nil {
				return domain.NotFound("material %s", id)
			}
		}

		now := s.now()
		for _, res := range results {
			item, err := r.Items.GetForUpdate(ctx, res.LocationID, res.MaterialID)
			if err != nil {
				return err
			}
			if item == nil {
				return domain.MissingWarehouseItem("ubicación %s, material %s", res.LocationID, res.MaterialID)
			}
			if res.ActualQuantity.IsZero() {
				err = r.Items.Delete(ctx, res.LocationID, res.MaterialID)
			} else {
				item.Quantity = res.ActualQuantity
				item.UpdatedAt = now
				err = r.Items.Upsert(ctx, item)
			}
			if err != nil {
				return err
			}

			l := &entity.InventoryLog{
				ID:         uuid.New().String(),
				MaterialID: res.MaterialID,
				LocationID: res.LocationID,
				Quantity:   res.Variance,
				Type:       rules.AdjustmentType(res.Variance),
				Reference:  st.Code,
				Date:       now,
				Actor:      actor,
			}
			if err := r.Logs.Append(ctx, l); err != nil {
				return err
			}
			sum.Logs = append(sum.Logs, l)
		}
		for _, id := range materialIDs {
			if _, err := r.Materials.RecomputeStock(ctx, id); err != nil {
				return err
			}
		}

		assignments, err := r.Assignments.ListByStocktake(ctx, st.ID)
		if err != nil {
			return err
		}
		for _, a := range assignments {
			if a.Status == entity.AssignmentStatusCompleted {
				continue
			}
			a.Status = entity.AssignmentStatusCompleted
			a.CompletedAt = &now
			if err := r.Assignments.Update(ctx, a); err != nil {
				return err
			}
		}

		st.Status = entity.StocktakeStatusCompleted
		st.CompletedAt = &now
		st.UpdatedAt = now
		sum.Stocktake = st
		sum.Adjusted = len(results)
		return r.Stocktakes.Update(ctx, st)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("stocktake_id", stocktakeID).Msg("no se pudo cerrar el conteo")
		return nil, err
	}

	st := sum.Stocktake
	s.log.Info().Str("stocktake_id", st.ID).Str("code", st.Code).Int("adjusted", sum.Adjusted).Msg("conteo cerrado")
	s.publish(ctx, ports.Event{
		Type:       ports.EventStocktakeCompleted,
		Reference:  st.Code,
		Actor:      actor,
		OccurredAt: *st.CompletedAt,
		Data:       map[string]any{"stocktake_id": st.ID, "adjusted": sum.Adjusted},
	})
	return sum, nil
}
