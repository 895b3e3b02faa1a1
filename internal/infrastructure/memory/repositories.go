package memory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
	rules "github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/stocktake"
)

var (
	_ repository.MaterialRepository      = (*materialRepo)(nil)
	_ repository.LocationRepository      = (*locationRepo)(nil)
	_ repository.WarehouseItemRepository = (*itemRepo)(nil)
	_ repository.InventoryLogRepository  = (*logRepo)(nil)
	_ repository.StocktakeRepository     = (*stocktakeRepo)(nil)
	_ repository.AssignmentRepository    = (*assignmentRepo)(nil)
	_ repository.ResultRepository        = (*resultRepo)(nil)
	_ repository.UserRepository          = (*userRepo)(nil)
)

// ─── materiales ──────────────────────────────────────────────────────────────

type materialRepo struct{ v view }

func (r *materialRepo) GetByID(_ context.Context, id string) (*entity.Material, error) {
	var out *entity.Material
	err := r.v.do(func(st *state) error {
		if m, ok := st.materials[id]; ok {
			out = &m
		}
		return nil
	})
	return out, err
}

func (r *materialRepo) GetForUpdate(ctx context.Context, id string) (*entity.Material, error) {
	return r.GetByID(ctx, id)
}

func (r *materialRepo) AddStock(_ context.Context, id string, delta decimal.Decimal) error {
	return r.v.do(func(st *state) error {
		m, ok := st.materials[id]
		if !ok {
			return domain.NotFound("material %s", id)
		}
		m.Stock = m.Stock.Add(delta)
		st.materials[id] = m
		return nil
	})
}

func (r *materialRepo) RecomputeStock(_ context.Context, id string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.v.do(func(st *state) error {
		m, ok := st.materials[id]
		if !ok {
			return domain.NotFound("material %s", id)
		}
		total = itemsTotal(st, id)
		m.Stock = total
		st.materials[id] = m
		return nil
	})
	return total, err
}

func (r *materialRepo) ListDrift(_ context.Context) ([]repository.StockDrift, error) {
	var out []repository.StockDrift
	err := r.v.do(func(st *state) error {
		for _, m := range st.materials {
			total := itemsTotal(st, m.ID)
			if !total.Equal(m.Stock) {
				out = append(out, repository.StockDrift{MaterialID: m.ID, Code: m.Code, Stock: m.Stock, ItemsTotal: total})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

// ─── ubicaciones y usuarios ──────────────────────────────────────────────────

type locationRepo struct{ v view }

func (r *locationRepo) GetByID(_ context.Context, id string) (*entity.WarehouseLocation, error) {
	var out *entity.WarehouseLocation
	err := r.v.do(func(st *state) error {
		if l, ok := st.locations[id]; ok {
			out = &l
		}
		return nil
	})
	return out, err
}

type userRepo struct{ v view }

func (r *userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.v.do(func(st *state) error {
		if u, ok := st.users[id]; ok {
			out = &u
		}
		return nil
	})
	return out, err
}

// ─── ítems de bodega ─────────────────────────────────────────────────────────

type itemRepo struct{ v view }

func (r *itemRepo) Get(_ context.Context, locationID, materialID string) (*entity.WarehouseItem, error) {
	var out *entity.WarehouseItem
	err := r.v.do(func(st *state) error {
		if it, ok := st.items[itemKey{locationID, materialID}]; ok {
			it.LocationCode = st.locations[locationID].Code
			out = &it
		}
		return nil
	})
	return out, err
}

func (r *itemRepo) GetForUpdate(ctx context.Context, locationID, materialID string) (*entity.WarehouseItem, error) {
	return r.Get(ctx, locationID, materialID)
}

func (r *itemRepo) ListByLocation(_ context.Context, locationID string) ([]*entity.WarehouseItem, error) {
	var out []*entity.WarehouseItem
	err := r.v.do(func(st *state) error {
		for k, it := range st.items {
			if k.location == locationID {
				it := it
				it.LocationCode = st.locations[locationID].Code
				out = append(out, &it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].MaterialID < out[j].MaterialID })
	return out, err
}

func (r *itemRepo) ListByMaterialForUpdate(_ context.Context, materialID string) ([]*entity.WarehouseItem, error) {
	var out []*entity.WarehouseItem
	err := r.v.do(func(st *state) error {
		for k, it := range st.items {
			if k.material == materialID {
				it := it
				it.LocationCode = st.locations[k.location].Code
				out = append(out, &it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationCode != out[j].LocationCode {
			return out[i].LocationCode < out[j].LocationCode
		}
		return out[i].LocationID < out[j].LocationID
	})
	return out, err
}

func (r *itemRepo) Upsert(_ context.Context, item *entity.WarehouseItem) error {
	return r.v.do(func(st *state) error {
		if item.Quantity.IsNegative() {
			return domain.Validation("cantidad negativa en ubicación %s", item.LocationID)
		}
		cp := *item
		cp.LocationCode = ""
		st.items[itemKey{item.LocationID, item.MaterialID}] = cp
		return nil
	})
}

func (r *itemRepo) Delete(_ context.Context, locationID, materialID string) error {
	return r.v.do(func(st *state) error {
		delete(st.items, itemKey{locationID, materialID})
		return nil
	})
}

// ─── kardex ──────────────────────────────────────────────────────────────────

type logRepo struct{ v view }

func (r *logRepo) Append(_ context.Context, l *entity.InventoryLog) error {
	return r.v.do(func(st *state) error {
		st.logs = append(st.logs, *l)
		return nil
	})
}

func (r *logRepo) ListByMaterial(_ context.Context, materialID string, limit, offset int) ([]*entity.InventoryLog, error) {
	var out []*entity.InventoryLog
	err := r.v.do(func(st *state) error {
		for i := len(st.logs) - 1; i >= 0; i-- {
			if st.logs[i].MaterialID == materialID {
				l := st.logs[i]
				out = append(out, &l)
			}
		}
		return nil
	})
	return page(out, limit, offset), err
}

// ─── conteos ─────────────────────────────────────────────────────────────────

type stocktakeRepo struct{ v view }

func (r *stocktakeRepo) Create(_ context.Context, s *entity.Stocktake) error {
	return r.v.do(func(st *state) error {
		for _, other := range st.stocktakes {
			if other.Code == s.Code {
				return domain.Conflict("el código %s ya existe", s.Code)
			}
		}
		st.stocktakes[s.ID] = *s
		return nil
	})
}

func (r *stocktakeRepo) GetByID(_ context.Context, id string) (*entity.Stocktake, error) {
	var out *entity.Stocktake
	err := r.v.do(func(st *state) error {
		if s, ok := st.stocktakes[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *stocktakeRepo) GetForUpdate(ctx context.Context, id string) (*entity.Stocktake, error) {
	return r.GetByID(ctx, id)
}

func (r *stocktakeRepo) Update(_ context.Context, s *entity.Stocktake) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.stocktakes[s.ID]; !ok {
			return domain.NotFound("conteo %s", s.ID)
		}
		st.stocktakes[s.ID] = *s
		return nil
	})
}

func (r *stocktakeRepo) Delete(_ context.Context, id string) error {
	return r.v.do(func(st *state) error {
		delete(st.stocktakes, id)
		for k, res := range st.results {
			if res.StocktakeID == id {
				delete(st.results, k)
			}
		}
		return nil
	})
}

func (r *stocktakeRepo) MaxCodeSequence(_ context.Context, prefix string) (int, error) {
	max := 0
	err := r.v.do(func(st *state) error {
		for _, s := range st.stocktakes {
			if n, ok := rules.Sequence(s.Code, prefix); ok && n > max {
				max = n
			}
		}
		return nil
	})
	return max, err
}

func (r *stocktakeRepo) List(_ context.Context, f repository.StocktakeFilter) ([]*entity.Stocktake, error) {
	var out []*entity.Stocktake
	err := r.v.do(func(st *state) error {
		for _, s := range st.stocktakes {
			if f.Status != "" && s.Status != f.Status {
				continue
			}
			if f.AreaID != "" && s.AreaID != f.AreaID {
				continue
			}
			s := s
			out = append(out, &s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Code > out[j].Code
	})
	return page(out, f.Limit, f.Offset), err
}

// ─── asignaciones ────────────────────────────────────────────────────────────

type assignmentRepo struct{ v view }

func (r *assignmentRepo) Create(_ context.Context, a *entity.StocktakeAssignment) error {
	return r.v.do(func(st *state) error {
		for _, other := range st.assignments {
			if other.StocktakeID == a.StocktakeID && other.LocationID == a.LocationID {
				return domain.DuplicateAssignment("la ubicación %s ya está asignada en el conteo", a.LocationID)
			}
		}
		st.assignments[a.ID] = *a
		return nil
	})
}

func (r *assignmentRepo) Get(_ context.Context, stocktakeID, locationID string) (*entity.StocktakeAssignment, error) {
	var out *entity.StocktakeAssignment
	err := r.v.do(func(st *state) error {
		for _, a := range st.assignments {
			if a.StocktakeID == stocktakeID && a.LocationID == locationID {
				a := a
				out = &a
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *assignmentRepo) ListByStocktake(_ context.Context, stocktakeID string) ([]*entity.StocktakeAssignment, error) {
	var out []*entity.StocktakeAssignment
	err := r.v.do(func(st *state) error {
		for _, a := range st.assignments {
			if a.StocktakeID == stocktakeID {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].LocationID < out[j].LocationID
	})
	return out, err
}

func (r *assignmentRepo) Update(_ context.Context, a *entity.StocktakeAssignment) error {
	return r.v.do(func(st *state) error {
		if _, ok := st.assignments[a.ID]; !ok {
			return domain.NotFound("asignación %s", a.ID)
		}
		st.assignments[a.ID] = *a
		return nil
	})
}

func (r *assignmentRepo) Delete(_ context.Context, stocktakeID, locationID string) error {
	return r.v.do(func(st *state) error {
		for k, a := range st.assignments {
			if a.StocktakeID == stocktakeID && a.LocationID == locationID {
				delete(st.assignments, k)
			}
		}
		return nil
	})
}

func (r *assignmentRepo) DeleteByStocktake(_ context.Context, stocktakeID string) error {
	return r.v.do(func(st *state) error {
		for k, a := range st.assignments {
			if a.StocktakeID == stocktakeID {
				delete(st.assignments, k)
			}
		}
		return nil
	})
}

func (r *assignmentRepo) FindActiveByLocation(_ context.Context, locationID, excludeStocktakeID string) (string, error) {
	code := ""
	err := r.v.do(func(st *state) error {
		for _, a := range st.assignments {
			if a.LocationID != locationID || a.StocktakeID == excludeStocktakeID {
				continue
			}
			s, ok := st.stocktakes[a.StocktakeID]
			if ok && s.IsActive() {
				code = s.Code
				return nil
			}
		}
		return nil
	})
	return code, err
}

// ─── resultados ──────────────────────────────────────────────────────────────

type resultRepo struct{ v view }

func (r *resultRepo) CreateBatch(_ context.Context, results []*entity.StocktakeResult) error {
	return r.v.do(func(st *state) error {
		for _, res := range results {
			for _, other := range st.results {
				if other.StocktakeID == res.StocktakeID && other.LocationID == res.LocationID && other.MaterialID == res.MaterialID {
					return domain.Conflict("resultado duplicado para ubicación %s y material %s", res.LocationID, res.MaterialID)
				}
			}
			st.results[res.ID] = *res
		}
		return nil
	})
}

func (r *resultRepo) GetByID(_ context.Context, id string) (*entity.StocktakeResult, error) {
	var out *entity.StocktakeResult
	err := r.v.do(func(st *state) error {
		if res, ok := st.results[id]; ok {
			out = &res
		}
		return nil
	})
	return out, err
}

func (r *resultRepo) ListByStocktake(_ context.Context, stocktakeID string) ([]*entity.StocktakeResult, error) {
	return r.list(stocktakeID, false)
}

func (r *resultRepo) ListWithVariance(_ context.Context, stocktakeID string) ([]*entity.StocktakeResult, error) {
	return r.list(stocktakeID, true)
}

func (r *resultRepo) list(stocktakeID string, onlyVariance bool) ([]*entity.StocktakeResult, error) {
	var out []*entity.StocktakeResult
	err := r.v.do(func(st *state) error {
		for _, res := range st.results {
			if res.StocktakeID != stocktakeID || (onlyVariance && res.Variance.IsZero()) {
				continue
			}
			res := res
			out = append(out, &res)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].MaterialID < out[j].MaterialID
	})
	return out, err
}

func (r *resultRepo) UpdateCount(_ context.Context, res *entity.StocktakeResult, expectedVersion int64) (bool, error) {
	ok := false
	err := r.v.do(func(st *state) error {
		cur, found := st.results[res.ID]
		if !found || cur.Version != expectedVersion {
			return nil
		}
		cur.ActualQuantity = res.ActualQuantity
		cur.Variance = res.Variance
		cur.Notes = res.Notes
		cur.CountedByID = res.CountedByID
		cur.Version = res.Version
		cur.UpdatedAt = res.UpdatedAt
		st.results[res.ID] = cur
		ok = true
		return nil
	})
	return ok, err
}

func page[T any](in []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
