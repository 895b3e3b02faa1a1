package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

var _ repository.StocktakeRepository = (*StocktakeRepo)(nil)

// StocktakeRepo conteos físicos sobre PostgreSQL (usable con pool o tx).
type StocktakeRepo struct {
	q Querier
}

// NewStocktakeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStocktakeRepository(q Querier) *StocktakeRepo {
	return &StocktakeRepo{q: q}
}

const stocktakeColumns = `id, code, status, area_id, take_date, notes, created_by,
	started_at, reconciling_at, completed_at, cancelled_at, created_at, updated_at`

func scanStocktake(row pgx.Row) (*entity.Stocktake, error) {
	var s entity.Stocktake
	err := row.Scan(&s.ID, &s.Code, &s.Status, &s.AreaID, &s.TakeDate, &s.Notes, &s.CreatedBy,
		&s.StartedAt, &s.ReconcilingAt, &s.CompletedAt, &s.CancelledAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create persiste el conteo. Un código repetido (índice único) se informa como conflicto.
func (r *StocktakeRepo) Create(ctx context.Context, s *entity.Stocktake) error {
	query := `
		INSERT INTO stocktakes (id, code, status, area_id, take_date, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query, s.ID, s.Code, s.Status, s.AreaID, s.TakeDate, s.Notes, s.CreatedBy, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Conflict("el código %s ya fue tomado por otro conteo", s.Code)
		}
		return fmt.Errorf("create stocktake: %w", err)
	}
	return nil
}

func (r *StocktakeRepo) get(ctx context.Context, id, suffix string) (*entity.Stocktake, error) {
	if !validID(id) {
		return nil, nil
	}
	s, err := scanStocktake(r.q.QueryRow(ctx, `SELECT `+stocktakeColumns+` FROM stocktakes WHERE id = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stocktake: %w", err)
	}
	return s, nil
}

// GetByID obtiene un conteo por ID.
func (r *StocktakeRepo) GetByID(ctx context.Context, id string) (*entity.Stocktake, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate obtiene el conteo y bloquea la fila: serializa las transiciones de un mismo conteo.
func (r *StocktakeRepo) GetForUpdate(ctx context.Context, id string) (*entity.Stocktake, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

// Update persiste estado, notas y marcas de tiempo.
func (r *StocktakeRepo) Update(ctx context.Context, s *entity.Stocktake) error {
	query := `
		UPDATE stocktakes SET status = $2, notes = $3, started_at = $4, reconciling_at = $5,
			completed_at = $6, cancelled_at = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query, s.ID, s.Status, s.Notes, s.StartedAt, s.ReconcilingAt, s.CompletedAt, s.CancelledAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update stocktake: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("conteo %s", s.ID)
	}
	return nil
}

// Delete elimina el conteo; asignaciones y resultados caen por ON DELETE CASCADE.
func (r *StocktakeRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stocktakes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete stocktake: %w", err)
	}
	return nil
}

// MaxCodeSequence devuelve la secuencia más alta usada con el prefijo (p. ej. "KK-2026-").
func (r *StocktakeRepo) MaxCodeSequence(ctx context.Context, prefix string) (int, error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(code FROM $2::int) AS INTEGER)), 0)
		FROM stocktakes
		WHERE code LIKE $1 || '%' AND SUBSTRING(code FROM $2::int) ~ '^[0-9]+$'`
	var n int
	if err := r.q.QueryRow(ctx, query, prefix, len(prefix)+1).Scan(&n); err != nil {
		return 0, fmt.Errorf("max stocktake code: %w", err)
	}
	return n, nil
}

// List lista conteos con filtros opcionales, más recientes primero.
func (r *StocktakeRepo) List(ctx context.Context, f repository.StocktakeFilter) ([]*entity.Stocktake, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.AreaID != "" {
		args = append(args, f.AreaID)
		where = append(where, fmt.Sprintf("area_id = $%d", len(args)))
	}
	query := `SELECT ` + stocktakeColumns + ` FROM stocktakes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, code DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stocktakes: %w", err)
	}
	defer rows.Close()

	var out []*entity.Stocktake
	for rows.Next() {
		s, err := scanStocktake(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stocktake: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ──────────────────────────────────────────────────────────────────────────────
// Asignaciones
// ──────────────────────────────────────────────────────────────────────────────

var _ repository.AssignmentRepository = (*AssignmentRepo)(nil)

// AssignmentRepo asignaciones ubicación-contador.
type AssignmentRepo struct {
	q Querier
}

// NewAssignmentRepository construye el adaptador.
func NewAssignmentRepository(q Querier) *AssignmentRepo {
	return &AssignmentRepo{q: q}
}

const assignmentColumns = `id, stocktake_id, location_id, assignee_id, status, completed_at, created_at`

func scanAssignment(row pgx.Row) (*entity.StocktakeAssignment, error) {
	var a entity.StocktakeAssignment
	if err := row.Scan(&a.ID, &a.StocktakeID, &a.LocationID, &a.AssigneeID, &a.Status, &a.CompletedAt, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create persiste la asignación; (conteo, ubicación) repetido es asignación duplicada.
func (r *AssignmentRepo) Create(ctx context.Context, a *entity.StocktakeAssignment) error {
	query := `
		INSERT INTO stocktake_assignments (id, stocktake_id, location_id, assignee_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(ctx, query, a.ID, a.StocktakeID, a.LocationID, a.AssigneeID, a.Status, a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.DuplicateAssignment("la ubicación %s ya está asignada en el conteo", a.LocationID)
		}
		return fmt.Errorf("create stocktake assignment: %w", err)
	}
	return nil
}

// Get obtiene la asignación de una ubicación en el conteo.
func (r *AssignmentRepo) Get(ctx context.Context, stocktakeID, locationID string) (*entity.StocktakeAssignment, error) {
	if !validID(stocktakeID) || !validID(locationID) {
		return nil, nil
	}
	a, err := scanAssignment(r.q.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM stocktake_assignments WHERE stocktake_id = $1 AND location_id = $2`,
		stocktakeID, locationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stocktake assignment: %w", err)
	}
	return a, nil
}

// ListByStocktake asignaciones del conteo en orden de creación.
func (r *AssignmentRepo) ListByStocktake(ctx context.Context, stocktakeID string) ([]*entity.StocktakeAssignment, error) {
	if !validID(stocktakeID) {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+assignmentColumns+` FROM stocktake_assignments WHERE stocktake_id = $1 ORDER BY created_at, location_id`,
		stocktakeID)
	if err != nil {
		return nil, fmt.Errorf("list stocktake assignments: %w", err)
	}
	defer rows.Close()

	var out []*entity.StocktakeAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stocktake assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update persiste estado y fecha de cierre de la asignación.
func (r *AssignmentRepo) Update(ctx context.Context, a *entity.StocktakeAssignment) error {
	_, err := r.q.Exec(ctx,
		`UPDATE stocktake_assignments SET status = $2, completed_at = $3 WHERE id = $1`,
		a.ID, a.Status, a.CompletedAt)
	if err != nil {
		return fmt.Errorf("update stocktake assignment: %w", err)
	}
	return nil
}

// Delete elimina la asignación de una ubicación.
func (r *AssignmentRepo) Delete(ctx context.Context, stocktakeID, locationID string) error {
	_, err := r.q.Exec(ctx,
		`DELETE FROM stocktake_assignments WHERE stocktake_id = $1 AND location_id = $2`, stocktakeID, locationID)
	if err != nil {
		return fmt.Errorf("delete stocktake assignment: %w", err)
	}
	return nil
}

// DeleteByStocktake elimina todas las asignaciones del conteo.
func (r *AssignmentRepo) DeleteByStocktake(ctx context.Context, stocktakeID string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM stocktake_assignments WHERE stocktake_id = $1`, stocktakeID); err != nil {
		return fmt.Errorf("delete stocktake assignments: %w", err)
	}
	return nil
}

// FindActiveByLocation devuelve el código de otro conteo no terminal que tenga la ubicación asignada.
func (r *AssignmentRepo) FindActiveByLocation(ctx context.Context, locationID, excludeStocktakeID string) (string, error) {
	query := `
		SELECT s.code
		FROM stocktake_assignments a
		JOIN stocktakes s ON s.id = a.stocktake_id
		WHERE a.location_id = $1 AND a.stocktake_id <> $2
		  AND s.status IN ('DRAFT', 'COUNTING', 'RECONCILING')
		ORDER BY s.created_at
		LIMIT 1`
	var code string
	err := r.q.QueryRow(ctx, query, locationID, excludeStocktakeID).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("find active assignment: %w", err)
	}
	return code, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resultados
// ──────────────────────────────────────────────────────────────────────────────

var _ repository.ResultRepository = (*ResultRepo)(nil)

// ResultRepo líneas de conteo con token de versión.
type ResultRepo struct {
	q Querier
}

// NewResultRepository construye el adaptador.
func NewResultRepository(q Querier) *ResultRepo {
	return &ResultRepo{q: q}
}

const resultColumns = `id, stocktake_id, material_id, location_id, unit_id, counted_by_id,
	book_quantity, actual_quantity, variance, notes, version, updated_at`

func scanResult(row pgx.Row) (*entity.StocktakeResult, error) {
	var res entity.StocktakeResult
	var countedBy *string
	err := row.Scan(&res.ID, &res.StocktakeID, &res.MaterialID, &res.LocationID, &res.UnitID, &countedBy,
		&res.BookQuantity, &res.ActualQuantity, &res.Variance, &res.Notes, &res.Version, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if countedBy != nil {
		res.CountedByID = *countedBy
	}
	return &res, nil
}

// CreateBatch inserta la foto de saldos en un solo viaje (pgx.Batch).
func (r *ResultRepo) CreateBatch(ctx context.Context, results []*entity.StocktakeResult) error {
	query := `
		INSERT INTO stocktake_results (id, stocktake_id, material_id, location_id, unit_id,
			book_quantity, actual_quantity, variance, notes, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	b := &pgx.Batch{}
	for _, res := range results {
		b.Queue(query, res.ID, res.StocktakeID, res.MaterialID, res.LocationID, res.UnitID,
			res.BookQuantity, res.ActualQuantity, res.Variance, res.Notes, res.Version, res.UpdatedAt)
	}
	br := r.q.SendBatch(ctx, b)
	defer br.Close()
	for range results {
		if _, err := br.Exec(); err != nil {
			if isUniqueViolation(err) {
				return domain.Conflict("resultado duplicado en el conteo (%s)", constraintName(err))
			}
			return fmt.Errorf("create stocktake results: %w", err)
		}
	}
	return nil
}

// GetByID obtiene una línea por ID.
func (r *ResultRepo) GetByID(ctx context.Context, id string) (*entity.StocktakeResult, error) {
	if !validID(id) {
		return nil, nil
	}
	res, err := scanResult(r.q.QueryRow(ctx, `SELECT `+resultColumns+` FROM stocktake_results WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stocktake result: %w", err)
	}
	return res, nil
}

// ListByStocktake líneas del conteo ordenadas por ubicación y material.
func (r *ResultRepo) ListByStocktake(ctx context.Context, stocktakeID string) ([]*entity.StocktakeResult, error) {
	return r.list(ctx, `WHERE stocktake_id = $1`, stocktakeID)
}

// ListWithVariance líneas con diferencia distinta de cero.
func (r *ResultRepo) ListWithVariance(ctx context.Context, stocktakeID string) ([]*entity.StocktakeResult, error) {
	return r.list(ctx, `WHERE stocktake_id = $1 AND variance <> 0`, stocktakeID)
}

func (r *ResultRepo) list(ctx context.Context, where, stocktakeID string) ([]*entity.StocktakeResult, error) {
	if !validID(stocktakeID) {
		return nil, nil
	}
	rows, err := r.q.Query(ctx,
		`SELECT `+resultColumns+` FROM stocktake_results `+where+` ORDER BY location_id, material_id`, stocktakeID)
	if err != nil {
		return nil, fmt.Errorf("list stocktake results: %w", err)
	}
	defer rows.Close()

	var out []*entity.StocktakeResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stocktake result: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// UpdateCount escribe la cantidad contada solo si la versión sigue siendo expectedVersion (CAS).
func (r *ResultRepo) UpdateCount(ctx context.Context, res *entity.StocktakeResult, expectedVersion int64) (bool, error) {
	query := `
		UPDATE stocktake_results
		SET actual_quantity = $3, variance = $4, notes = $5, counted_by_id = $6, version = $7, updated_at = $8
		WHERE id = $1 AND version = $2`
	tag, err := r.q.Exec(ctx, query, res.ID, expectedVersion,
		res.ActualQuantity, res.Variance, res.Notes, nullIfEmpty(res.CountedByID), res.Version, res.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("update stocktake result: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
