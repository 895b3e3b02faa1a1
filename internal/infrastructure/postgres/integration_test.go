//go:build integration

package postgres_test

// Pruebas contra PostgreSQL real levantado con testcontainers.
// Ejecutar con: go test -tags integration ./internal/infrastructure/postgres/... -v

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"golang.org/x/sync/errgroup"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ledger"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/stocktake"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/infrastructure/postgres"
)

// ── Entorno ──────────────────────────────────────────────────────────────────

type pgEnv struct {
	pool      *pgxpool.Pool
	tx        *postgres.TxRunner
	ledger    *ledger.MovementProcessor
	stocktake *stocktake.Service
	unitID    string
	userID    string
}

func setupPostgres(t *testing.T) *pgEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcPostgres.WithDatabase("inventory_test"),
		tcPostgres.WithUsername("inventory"),
		tcPostgres.WithPassword("inventory"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPoolFromDSN(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	applied, err := postgres.Migrate(ctx, pool, zerolog.Nop())
	require.NoError(t, err)
	require.Greater(t, applied, 0)

	// Segunda corrida no aplica nada.
	again, err := postgres.Migrate(ctx, pool, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	env := &pgEnv{pool: pool, unitID: uuid.NewString(), userID: uuid.NewString()}
	_, err = pool.Exec(ctx, `INSERT INTO units (id, code, name) VALUES ($1, 'UND', 'Unidad')`, env.unitID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO users (id, name) VALUES ($1, 'Bodeguero')`, env.userID)
	require.NoError(t, err)

	env.tx = postgres.NewTxRunner(pool, "repeatable_read")
	env.ledger = ledger.NewMovementProcessor(env.tx, nil, zerolog.Nop())
	env.stocktake = stocktake.NewService(env.tx, postgres.NewStores(pool), nil, zerolog.Nop(), stocktake.Config{})
	return env
}

func (e *pgEnv) material(t *testing.T, code string, withUnit bool) string {
	t.Helper()
	id := uuid.NewString()
	var unit *string
	if withUnit {
		unit = &e.unitID
	}
	_, err := e.pool.Exec(context.Background(),
		`INSERT INTO materials (id, code, name, unit_id) VALUES ($1, $2, $2, $3)`, id, code, unit)
	require.NoError(t, err)
	return id
}

func (e *pgEnv) location(t *testing.T, code string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := e.pool.Exec(context.Background(), `INSERT INTO warehouse_locations (id, code) VALUES ($1, $2)`, id, code)
	require.NoError(t, err)
	return id
}

func (e *pgEnv) receive(t *testing.T, mat, loc, qty string) {
	t.Helper()
	_, err := e.ledger.ApplyInbound(context.Background(), ledger.MovementDocument{
		Actor: e.userID,
		Lines: []ledger.MovementLine{{MaterialID: mat, LocationID: loc, Quantity: decimal.RequireFromString(qty)}},
	})
	require.NoError(t, err)
}

func (e *pgEnv) assertNoDrift(t *testing.T) {
	t.Helper()
	drift, err := postgres.NewMaterialRepository(e.pool).ListDrift(context.Background())
	require.NoError(t, err)
	assert.Empty(t, drift)
}

// ── Pruebas ──────────────────────────────────────────────────────────────────

func TestPostgres_MovimientosYConciliacion(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	mat := env.material(t, "MAT-001", true)
	locA := env.location(t, "A-01")
	locB := env.location(t, "B-01")
	env.receive(t, mat, locA, "10")
	env.receive(t, mat, locB, "5")

	_, err := env.ledger.ApplyOutbound(ctx, ledger.MovementDocument{
		Lines: []ledger.MovementLine{{MaterialID: mat, Quantity: decimal.RequireFromString("20")}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	env.assertNoDrift(t)

	st, err := env.stocktake.Create(ctx, stocktake.CreateInput{
		AreaID:   "BODEGA-1",
		TakeDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Actor:    env.userID,
		Assignments: []stocktake.AssignmentInput{
			{LocationID: locA, AssigneeID: env.userID},
			{LocationID: locB, AssigneeID: env.userID},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "KK-2026-0001", st.Code)

	_, err = env.stocktake.Start(ctx, st.ID)
	require.NoError(t, err)

	detail, err := env.stocktake.Get(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, detail.Results, 2)

	for _, res := range detail.Results {
		qty := "8"
		if res.LocationID == locB {
			qty = "0"
		}
		_, err := env.stocktake.SubmitResult(ctx, res.ID, stocktake.SubmitInput{
			ActualQuantity: decimal.RequireFromString(qty),
			Actor:          env.userID,
		})
		require.NoError(t, err)
	}

	_, err = env.stocktake.BeginReconciliation(ctx, st.ID)
	require.NoError(t, err)
	summary, err := env.stocktake.Complete(ctx, st.ID, env.userID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Adjusted)
	assert.Equal(t, entity.StocktakeStatusCompleted, summary.Stocktake.Status)

	m, err := postgres.NewMaterialRepository(env.pool).GetByID(ctx, mat)
	require.NoError(t, err)
	assert.True(t, m.Stock.Equal(decimal.RequireFromString("8")), "stock = %s", m.Stock)

	item, err := postgres.NewWarehouseItemRepository(env.pool).Get(ctx, locB, mat)
	require.NoError(t, err)
	assert.Nil(t, item, "conteo en cero elimina el ítem")
	env.assertNoDrift(t)

	logs, err := postgres.NewInventoryLogRepository(env.pool).ListByMaterial(ctx, mat, 0, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 4)
}

func TestPostgres_KardexEsAppendOnly(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	mat := env.material(t, "MAT-002", true)
	loc := env.location(t, "A-02")
	env.receive(t, mat, loc, "3")

	_, err := env.pool.Exec(ctx, `UPDATE inventory_logs SET quantity = 99`)
	require.Error(t, err)
	_, err = env.pool.Exec(ctx, `DELETE FROM inventory_logs`)
	require.Error(t, err)
}

func TestPostgres_SubmitConcurrenteSoloUnoGana(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	mat := env.material(t, "MAT-003", true)
	loc := env.location(t, "C-01")
	env.receive(t, mat, loc, "4")

	st, err := env.stocktake.Create(ctx, stocktake.CreateInput{
		AreaID:      "BODEGA-1",
		TakeDate:    time.Now().UTC(),
		Actor:       env.userID,
		Assignments: []stocktake.AssignmentInput{{LocationID: loc, AssigneeID: env.userID}},
	})
	require.NoError(t, err)
	_, err = env.stocktake.Start(ctx, st.ID)
	require.NoError(t, err)
	detail, err := env.stocktake.Get(ctx, st.ID)
	require.NoError(t, err)
	res := detail.Results[0]

	version := res.Version
	var ok, conflicts int32
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		qty := decimal.NewFromInt(int64(i))
		g.Go(func() error {
			_, err := env.stocktake.SubmitResult(gctx, res.ID, stocktake.SubmitInput{
				ActualQuantity:  qty,
				ExpectedVersion: &version,
				Actor:           env.userID,
			})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrConflict):
				atomic.AddInt32(&conflicts, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), ok)
	assert.Equal(t, int32(7), conflicts)
}

func TestPostgres_StartConMaterialSinUnidad(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	mat := env.material(t, "MAT-004", false)
	loc := env.location(t, "D-01")
	env.receive(t, mat, loc, "1")

	st, err := env.stocktake.Create(ctx, stocktake.CreateInput{
		AreaID:      "BODEGA-1",
		TakeDate:    time.Now().UTC(),
		Actor:       env.userID,
		Assignments: []stocktake.AssignmentInput{{LocationID: loc, AssigneeID: env.userID}},
	})
	require.NoError(t, err)

	_, err = env.stocktake.Start(ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrMissingUnit)

	got, err := env.stocktake.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakeStatusDraft, got.Stocktake.Status)
	assert.Empty(t, got.Results)
}

// startedStocktake crea e inicia un conteo con las ubicaciones dadas y devuelve sus líneas.
func (e *pgEnv) startedStocktake(t *testing.T, locations ...string) (*entity.Stocktake, []*entity.StocktakeResult) {
	t.Helper()
	ctx := context.Background()
	in := stocktake.CreateInput{AreaID: "BODEGA-1", TakeDate: time.Now().UTC(), Actor: e.userID}
	for _, l := range locations {
		in.Assignments = append(in.Assignments, stocktake.AssignmentInput{LocationID: l, AssigneeID: e.userID})
	}
	st, err := e.stocktake.Create(ctx, in)
	require.NoError(t, err)
	_, err = e.stocktake.Start(ctx, st.ID)
	require.NoError(t, err)
	detail, err := e.stocktake.Get(ctx, st.ID)
	require.NoError(t, err)
	return st, detail.Results
}

func TestPostgres_LotesConcurrentesEnUbicacionesDistintas(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	mat := env.material(t, "MAT-005", true)
	locA := env.location(t, "E-01")
	locB := env.location(t, "E-02")
	env.receive(t, mat, locA, "6")
	env.receive(t, mat, locB, "9")

	st, results := env.startedStocktake(t, locA, locB)
	require.Len(t, results, 2)
	byLoc := map[string]string{}
	for _, r := range results {
		byLoc[r.LocationID] = r.ID
	}

	// Varias rondas para que los envíos realmente se crucen en el bloqueo del conteo.
	for round := 0; round < 10; round++ {
		qty := decimal.NewFromInt(int64(round))
		g, gctx := errgroup.WithContext(ctx)
		for _, loc := range []string{locA, locB} {
			resultID := byLoc[loc]
			g.Go(func() error {
				_, err := env.stocktake.SubmitResultsBulk(gctx, st.ID, []stocktake.BulkEntry{{
					ResultID:    resultID,
					SubmitInput: stocktake.SubmitInput{ActualQuantity: qty, Actor: env.userID},
				}})
				return err
			})
			g.Go(func() error {
				_, err := env.stocktake.SubmitResult(gctx, resultID, stocktake.SubmitInput{ActualQuantity: qty, Actor: env.userID})
				return err
			})
		}
		require.NoError(t, g.Wait(), "ronda %d", round)
	}

	detail, err := env.stocktake.Get(ctx, st.ID)
	require.NoError(t, err)
	for _, r := range detail.Results {
		assert.Equal(t, int64(21), r.Version, "1 + 10 rondas x 2 envíos")
		assert.True(t, r.ActualQuantity.Equal(decimal.NewFromInt(9)))
	}
}

func TestPostgres_SubmitSinTokenNoDaConflicto(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	mat := env.material(t, "MAT-006", true)
	loc := env.location(t, "F-01")
	env.receive(t, mat, loc, "2")
	_, results := env.startedStocktake(t, loc)
	res := results[0]

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		qty := decimal.NewFromInt(int64(i))
		g.Go(func() error {
			_, err := env.stocktake.SubmitResult(gctx, res.ID, stocktake.SubmitInput{ActualQuantity: qty, Actor: env.userID})
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := postgres.NewResultRepository(env.pool).GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.Version)
}

func TestPostgres_CantidadConMasDeCuatroDecimales(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	mat := env.material(t, "MAT-007", true)
	loc := env.location(t, "G-01")

	_, err := env.ledger.ApplyInbound(ctx, ledger.MovementDocument{
		Lines: []ledger.MovementLine{{MaterialID: mat, LocationID: loc, Quantity: decimal.RequireFromString("1.00005")}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	env.receive(t, mat, loc, "1.2500")
	m, err := postgres.NewMaterialRepository(env.pool).GetByID(ctx, mat)
	require.NoError(t, err)
	assert.True(t, m.Stock.Equal(decimal.RequireFromString("1.25")))
}

func TestPostgres_MigracionesRevertirYReaplicar(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	v, err := postgres.MigrationVersion(ctx, env.pool)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)

	require.NoError(t, postgres.RollbackLast(ctx, env.pool, zerolog.Nop()))
	var exists bool
	require.NoError(t, env.pool.QueryRow(ctx, `SELECT to_regclass('stocktakes') IS NOT NULL`).Scan(&exists))
	assert.False(t, exists)

	applied, err := postgres.Migrate(ctx, env.pool, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestPostgres_MigracionesConcurrentes(t *testing.T) {
	env := setupPostgres(t)
	ctx := context.Background()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := postgres.Migrate(gctx, env.pool, zerolog.Nop())
			return err
		})
	}
	require.NoError(t, g.Wait())
}
