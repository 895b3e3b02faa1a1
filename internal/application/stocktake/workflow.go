package stocktake

import (
	"context"

	"github.com/google/uuid"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ports"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
	rules "github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/stocktake"
)

// Create registra un conteo en DRAFT con su código KK-<año>-<secuencia>.
// Dos creaciones simultáneas con la misma secuencia terminan en ErrConflict (índice único).
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Stocktake, error) {
	if in.AreaID == "" {
		return nil, domain.Validation("área requerida")
	}
	if in.TakeDate.IsZero() {
		return nil, domain.Validation("fecha de conteo requerida")
	}
	if in.Actor == "" {
		return nil, domain.Validation("creador requerido")
	}
	for i, a := range in.Assignments {
		if a.LocationID == "" || a.AssigneeID == "" {
			return nil, domain.AtEntry(i, domain.Validation("la asignación requiere ubicación y contador"))
		}
	}

	now := s.now()
	st := &entity.Stocktake{
		ID:        uuid.New().String(),
		Status:    entity.StocktakeStatusDraft,
		AreaID:    in.AreaID,
		TakeDate:  in.TakeDate,
		Notes:     in.Notes,
		CreatedBy: in.Actor,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.tx.Run(ctx, func(r repository.Stores) error {
		creator, err := r.Users.GetByID(ctx, in.Actor)
		if err != nil {
			return err
		}
		if creator == nil {
			return domain.NotFound("usuario %s", in.Actor)
		}

		last, err := r.Stocktakes.MaxCodeSequence(ctx, rules.CodePrefix(s.cfg.CodePrefix, in.TakeDate))
		if err != nil {
			return err
		}
		st.Code = rules.Code(s.cfg.CodePrefix, in.TakeDate, last)
		if err := r.Stocktakes.Create(ctx, st); err != nil {
			return err
		}
		for i, a := range in.Assignments {
			if _, err := s.addAssignment(ctx, r, st, a); err != nil {
				return domain.AtEntry(i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("stocktake_id", st.ID).Str("code", st.Code).Int("assignments", len(in.Assignments)).Msg("conteo creado")
	return st, nil
}

// AddAssignment agrega una ubicación al conteo. Solo en DRAFT.
func (s *Service) AddAssignment(ctx context.Context, stocktakeID string, in AssignmentInput) (*entity.StocktakeAssignment, error) {
	if in.LocationID == "" || in.AssigneeID == "" {
		return nil, domain.Validation("la asignación requiere ubicación y contador")
	}
	var out *entity.StocktakeAssignment
	err := s.tx.Run(ctx, func(r repository.Stores) error {
		st, err := lockStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		if st.Status != entity.StocktakeStatusDraft {
			return domain.InvalidState("conteo %s en %s: las asignaciones solo cambian en DRAFT", st.Code, st.Status)
		}
		out, err = s.addAssignment(ctx, r, st, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("stocktake_id", stocktakeID).Str("location_id", in.LocationID).Msg("asignación agregada")
	return out, nil
}

func (s *Service) addAssignment(ctx context.Context, r repository.Stores, st *entity.Stocktake, in AssignmentInput) (*entity.StocktakeAssignment, error) {
	loc, err := r.Locations.GetByID(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, domain.NotFound("ubicación %s", in.LocationID)
	}
	if !loc.IsActive() {
		return nil, domain.Validation("ubicación %s inactiva", loc.Code)
	}
	assignee, err := r.Users.GetByID(ctx, in.AssigneeID)
	if err != nil {
		return nil, err
	}
	if assignee == nil {
		return nil, domain.NotFound("usuario %s", in.AssigneeID)
	}

	existing, err := r.Assignments.Get(ctx, st.ID, in.LocationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.DuplicateAssignment("la ubicación %s ya está asignada en %s", loc.Code, st.Code)
	}
	other, err := r.Assignments.FindActiveByLocation(ctx, in.LocationID, st.ID)
	if err != nil {
		return nil, err
	}
	if other != "" {
		return nil, domain.DuplicateAssignment("la ubicación %s ya está en el conteo activo %s", loc.Code, other)
	}

	a := &entity.StocktakeAssignment{
		ID:          uuid.New().String(),
		StocktakeID: st.ID,
		LocationID:  in.LocationID,
		AssigneeID:  in.AssigneeID,
		Status:      entity.AssignmentStatusPending,
		CreatedAt:   s.now(),
	}
	return a, r.Assignments.Create(ctx, a)
}

// RemoveAssignment quita una ubicación del conteo. Solo en DRAFT.
func (s *Service) RemoveAssignment(ctx context.Context, stocktakeID, locationID string) error {
	return s.tx.Run(ctx, func(r repository.Stores) error {
		st, err := lockStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		if st.Status != entity.StocktakeStatusDraft {
			return domain.InvalidState("conteo %s en %s: las asignaciones solo cambian en DRAFT", st.Code, st.Status)
		}
		a, err := r.Assignments.Get(ctx, stocktakeID, locationID)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.NotFound("asignación de ubicación %s", locationID)
		}
		return r.Assignments.Delete(ctx, stocktakeID, locationID)
	})
}

// Start pasa DRAFT -> COUNTING: toma la foto de saldos, abre las asignaciones y marca StartedAt.
// Todo ocurre en una transacción aislada: o queda la foto completa o nada.
func (s *Service) Start(ctx context.Context, stocktakeID string) (*entity.Stocktake, error) {
	var (
		st    *entity.Stocktake
		lines int
	)
	err := s.tx.RunIsolated(ctx, func(r repository.Stores) error {
		var err error
		st, err = lockStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		if err := rules.Transition(st, entity.StocktakeStatusCounting); err != nil {
			return err
		}
		assignments, err := r.Assignments.ListByStocktake(ctx, st.ID)
		if err != nil {
			return err
		}
		if len(assignments) == 0 {
			return domain.EmptyAssignment("conteo %s", st.Code)
		}

		now := s.now()
		results, err := buildSnapshot(ctx, r, st, assignments, now)
		if err != nil {
			return err
		}
		if len(results) > 0 {
			if err := r.Results.CreateBatch(ctx, results); err != nil {
				return err
			}
		}
		lines = len(results)

		for _, a := range assignments {
			a.Status = entity.AssignmentStatusCounting
			if err := r.Assignments.Update(ctx, a); err != nil {
				return err
			}
		}
		st.Status = entity.StocktakeStatusCounting
		st.StartedAt = &now
		st.UpdatedAt = now
		return r.Stocktakes.Update(ctx, st)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("stocktake_id", stocktakeID).Msg("no se pudo iniciar el conteo")
		return nil, err
	}

	s.log.Info().Str("stocktake_id", st.ID).Str("code", st.Code).Int("lines", lines).Msg("conteo iniciado")
	s.publish(ctx, ports.Event{
		Type:       ports.EventStocktakeStarted,
		Reference:  st.Code,
		OccurredAt: *st.StartedAt,
		Data:       map[string]any{"stocktake_id": st.ID, "lines": lines},
	})
	return st, nil
}

// CompleteAssignment marca como terminada la ubicación de un contador. Solo en COUNTING.
func (s *Service) CompleteAssignment(ctx context.Context, stocktakeID, locationID string) (*entity.StocktakeAssignment, error) {
	var out *entity.StocktakeAssignment
	err := s.tx.Run(ctx, func(r repository.Stores) error {
		st, err := lockStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		if st.Status != entity.StocktakeStatusCounting {
			return domain.InvalidState("conteo %s en %s: solo se cierran asignaciones en COUNTING", st.Code, st.Status)
		}
		a, err := r.Assignments.Get(ctx, stocktakeID, locationID)
		if err != nil {
			return err
		}
		if a == nil {
			return domain.NotFound("asignación de ubicación %s", locationID)
		}
		if a.Status == entity.AssignmentStatusCompleted {
			return domain.InvalidState("la asignación de %s ya está completada", locationID)
		}
		now := s.now()
		a.Status = entity.AssignmentStatusCompleted
		a.CompletedAt = &now
		out = a
		return r.Assignments.Update(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// BeginReconciliation pasa COUNTING -> RECONCILING. Solo valida el estado.
func (s *Service) BeginReconciliation(ctx context.Context, stocktakeID string) (*entity.Stocktake, error) {
	st, err := s.transition(ctx, stocktakeID, entity.StocktakeStatusReconciling)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("stocktake_id", st.ID).Str("code", st.Code).Msg("conteo en conciliación")
	return st, nil
}

// Cancel pasa DRAFT -> CANCELLED.
func (s *Service) Cancel(ctx context.Context, stocktakeID string) (*entity.Stocktake, error) {
	st, err := s.transition(ctx, stocktakeID, entity.StocktakeStatusCancelled)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("stocktake_id", st.ID).Str("code", st.Code).Msg("conteo cancelado")
	return st, nil
}

func (s *Service) transition(ctx context.Context, stocktakeID, to string) (*entity.Stocktake, error) {
	var st *entity.Stocktake
	err := s.tx.Run(ctx, func(r repository.Stores) error {
		var err error
		st, err = lockStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		if err := rules.Transition(st, to); err != nil {
			return err
		}
		now := s.now()
		switch to {
		case entity.StocktakeStatusReconciling:
			st.ReconcilingAt = &now
		case entity.StocktakeStatusCancelled:
			st.CancelledAt = &now
		}
		st.Status = to
		st.UpdatedAt = now
		return r.Stocktakes.Update(ctx, st)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Delete elimina un conteo en DRAFT o CANCELLED junto con sus asignaciones.
func (s *Service) Delete(ctx context.Context, stocktakeID string) error {
	return s.tx.Run(ctx, func(r repository.Stores) error {
		st, err := lockStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		if !rules.Deletable(st.Status) {
			return domain.InvalidState("conteo %s en %s: solo se elimina en DRAFT o CANCELLED", st.Code, st.Status)
		}
		if err := r.Assignments.DeleteByStocktake(ctx, st.ID); err != nil {
			return err
		}
		return r.Stocktakes.Delete(ctx, st.ID)
	})
}

func lockStocktake(ctx context.Context, r repository.Stores, id string) (*entity.Stocktake, error) {
	st, err := r.Stocktakes.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.NotFound("conteo %s", id)
	}
	return st, nil
}
