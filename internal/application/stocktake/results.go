package stocktake

import (
	"context"
	"time"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
	rules "github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/stocktake"
)

// SubmitResult registra la cantidad contada de una línea.
// Con token vencido devuelve ErrConflict y la fila queda intacta; BookQuantity nunca cambia.
func (s *Service) SubmitResult(ctx context.Context, resultID string, in SubmitInput) (*entity.StocktakeResult, error) {
	if err := validateSubmit(in); err != nil {
		return nil, err
	}
	var out *entity.StocktakeResult
	err := s.tx.Run(ctx, func(r repository.Stores) error {
		found, err := r.Results.GetByID(ctx, resultID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.NotFound("resultado %s", resultID)
		}
		st, err := acceptingStocktake(ctx, r, found.StocktakeID)
		if err != nil {
			return err
		}
		// Releer con el conteo bloqueado: un envío concurrente ya confirmado no cuenta como conflicto.
		res, err := r.Results.GetByID(ctx, resultID)
		if err != nil {
			return err
		}
		now := s.now()
		if out, err = s.applySubmit(ctx, r, res, in, now); err != nil {
			return err
		}
		return touch(ctx, r, st, now)
	})
	if err != nil {
		s.logSubmitError(err, resultID)
		return nil, err
	}
	return out, nil
}

// SubmitResultsBulk aplica hasta BulkLimit envíos en una sola transacción READ COMMITTED:
// el bloqueo del conteo ordena los envíos y el CAS por versión detecta tokens vencidos.
// Cualquier id ausente, de otro conteo, inválido o con token vencido aborta el lote completo;
// el error indica el índice de la entrada que falló.
func (s *Service) SubmitResultsBulk(ctx context.Context, stocktakeID string, entries []BulkEntry) ([]*entity.StocktakeResult, error) {
	if len(entries) == 0 {
		return nil, domain.Validation("el lote está vacío")
	}
	if len(entries) > s.cfg.BulkLimit {
		return nil, domain.Validation("el lote tiene %d líneas, máximo %d", len(entries), s.cfg.BulkLimit)
	}
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ResultID == "" {
			return nil, domain.AtEntry(i, domain.Validation("id de resultado requerido"))
		}
		if _, dup := seen[e.ResultID]; dup {
			return nil, domain.AtEntry(i, domain.Validation("resultado %s repetido en el lote", e.ResultID))
		}
		seen[e.ResultID] = struct{}{}
		if err := validateSubmit(e.SubmitInput); err != nil {
			return nil, domain.AtEntry(i, err)
		}
	}

	out := make([]*entity.StocktakeResult, 0, len(entries))
	err := s.tx.Run(ctx, func(r repository.Stores) error {
		out = out[:0]
		st, err := acceptingStocktake(ctx, r, stocktakeID)
		if err != nil {
			return err
		}
		now := s.now()
		for i, e := range entries {
			res, err := r.Results.GetByID(ctx, e.ResultID)
			if err != nil {
				return domain.AtEntry(i, err)
			}
			if res == nil || res.StocktakeID != stocktakeID {
				return domain.AtEntry(i, domain.NotFound("resultado %s en el conteo", e.ResultID))
			}
			updated, err := s.applySubmit(ctx, r, res, e.SubmitInput, now)
			if err != nil {
				return domain.AtEntry(i, err)
			}
			out = append(out, updated)
		}
		return touch(ctx, r, st, now)
	})
	if err != nil {
		s.logSubmitError(err, stocktakeID)
		return nil, err
	}

	s.log.Info().Str("stocktake_id", stocktakeID).Int("entries", len(out)).Msg("lote de conteo registrado")
	return out, nil
}

// applySubmit compara el token y escribe con CAS sobre la versión leída en esta tx,
// así una escritura concurrente entre la lectura y el UPDATE también se detecta.
func (s *Service) applySubmit(ctx context.Context, r repository.Stores, res *entity.StocktakeResult, in SubmitInput, now time.Time) (*entity.StocktakeResult, error) {
	if in.ExpectedVersion != nil && *in.ExpectedVersion != res.Version {
		return nil, domain.Conflict("resultado %s: versión esperada %d, actual %d", res.ID, *in.ExpectedVersion, res.Version)
	}
	if in.ExpectedUpdatedAt != nil && !in.ExpectedUpdatedAt.Equal(res.UpdatedAt) {
		return nil, domain.Conflict("resultado %s modificado por otro usuario", res.ID)
	}

	// updated_at también sirve de token: nunca se repite aunque dos escrituras caigan en el mismo microsegundo.
	if !now.After(res.UpdatedAt) {
		now = res.UpdatedAt.Add(time.Microsecond)
	}

	readVersion := res.Version
	upd := *res
	upd.ActualQuantity = in.ActualQuantity
	upd.Variance = rules.Variance(res.BookQuantity, in.ActualQuantity)
	if in.Notes != nil {
		upd.Notes = *in.Notes
	}
	if in.Actor != "" {
		upd.CountedByID = in.Actor
	}
	upd.Version = readVersion + 1
	upd.UpdatedAt = now

	ok, err := r.Results.UpdateCount(ctx, &upd, readVersion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Conflict("resultado %s modificado por otro usuario", res.ID)
	}
	return &upd, nil
}

// acceptingStocktake bloquea el conteo: un registro y el cierre del mismo conteo no se cruzan.
func acceptingStocktake(ctx context.Context, r repository.Stores, id string) (*entity.Stocktake, error) {
	st, err := lockStocktake(ctx, r, id)
	if err != nil {
		return nil, err
	}
	if !rules.AcceptsResults(st.Status) {
		return nil, domain.InvalidState("conteo %s en %s: no admite registrar cantidades", st.Code, st.Status)
	}
	return st, nil
}

// touch marca actividad en el conteo. La escritura hace que un cierre con snapshot anterior
// falle por serialización en lugar de conciliar sin ver este registro.
func touch(ctx context.Context, r repository.Stores, st *entity.Stocktake, now time.Time) error {
	st.UpdatedAt = now
	return r.Stocktakes.Update(ctx, st)
}

func validateSubmit(in SubmitInput) error {
	if in.ActualQuantity.IsNegative() {
		return domain.Validation("la cantidad contada no puede ser negativa, llegó %s", in.ActualQuantity.String())
	}
	if !domain.ValidScale(in.ActualQuantity) {
		return domain.Validation("la cantidad contada admite hasta %d decimales, llegó %s", domain.QuantityScale, in.ActualQuantity.String())
	}
	return nil
}

func (s *Service) logSubmitError(err error, ref string) {
	ev := s.log.Warn().Err(err).Str("ref", ref)
	if i, ok := domain.EntryOf(err); ok {
		ev = ev.Int("entry", i)
	}
	ev.Msg("envío de conteo rechazado")
}
