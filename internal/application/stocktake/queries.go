package stocktake

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
	rules "github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/stocktake"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Get devuelve el conteo con asignaciones y líneas.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	st, err := s.stores.Stocktakes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, domain.NotFound("conteo %s", id)
	}
	assignments, err := s.stores.Assignments.ListByStocktake(ctx, id)
	if err != nil {
		return nil, err
	}
	results, err := s.stores.Results.ListByStocktake(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Detail{Stocktake: st, Assignments: assignments, Results: results}, nil
}

// List lista conteos, más recientes primero.
func (s *Service) List(ctx context.Context, f repository.StocktakeFilter) ([]*entity.Stocktake, error) {
	if f.Status != "" && !rules.ValidStatus(f.Status) {
		return nil, domain.Validation("estado desconocido: %s", f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.stores.Stocktakes.List(ctx, f)
}

// Progress resume el avance por conteo y por ubicación.
func (s *Service) Progress(ctx context.Context, id string) (*Progress, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p := &Progress{StocktakeID: d.Stocktake.ID, Code: d.Stocktake.Code, Status: d.Stocktake.Status}

	byLocation := make(map[string]*AssignmentProgress, len(d.Assignments))
	p.Assignments = make([]AssignmentProgress, 0, len(d.Assignments))
	for _, a := range d.Assignments {
		p.Assignments = append(p.Assignments, AssignmentProgress{LocationID: a.LocationID, AssigneeID: a.AssigneeID, Status: a.Status})
	}
	for i := range p.Assignments {
		byLocation[p.Assignments[i].LocationID] = &p.Assignments[i]
	}

	for _, r := range d.Results {
		p.TotalLines++
		counted := r.Version > 1
		if counted {
			p.CountedLines++
		}
		if !r.Variance.IsZero() {
			p.VarianceLines++
		}
		if ap, ok := byLocation[r.LocationID]; ok {
			ap.Lines++
			if counted {
				ap.Counted++
			}
		}
	}
	return p, nil
}
