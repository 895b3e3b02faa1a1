package stocktake_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ledger"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ports"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/stocktake"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture
// ──────────────────────────────────────────────────────────────────────────────

const (
	admin   = "u-admin"
	counter = "u-counter"

	m1 = "m1"
	m2 = "m2" // sin unidad
	m3 = "m3"

	a1 = "loc-a1"
	a2 = "loc-a2"
	b1 = "loc-b1"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.Event
}

func (p *recordingPublisher) Publish(_ context.Context, evt ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	ledger *ledger.MovementProcessor
	svc    *stocktake.Service
	pub    *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	unit := "und"
	store.PutUser(entity.User{ID: admin, Name: "Supervisor"})
	store.PutUser(entity.User{ID: counter, Name: "Contador"})
	store.PutMaterial(entity.Material{ID: m1, Code: "M1", Name: "Rodamiento 6204", UnitID: &unit})
	store.PutMaterial(entity.Material{ID: m2, Code: "M2", Name: "Grasa sin unidad"})
	store.PutMaterial(entity.Material{ID: m3, Code: "M3", Name: "Correa B42", UnitID: &unit})
	store.PutLocation(entity.WarehouseLocation{ID: a1, Code: "A1"})
	store.PutLocation(entity.WarehouseLocation{ID: a2, Code: "A2"})
	store.PutLocation(entity.WarehouseLocation{ID: b1, Code: "B1"})

	pub := &recordingPublisher{}
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  store,
		ledger: ledger.NewMovementProcessor(store, nil, zerolog.Nop()),
		svc:    stocktake.NewService(store, store.Stores(), pub, zerolog.Nop(), stocktake.Config{BulkLimit: 3}),
		pub:    pub,
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func (f *fixture) receive(loc, mat, qty string) {
	f.t.Helper()
	_, err := f.ledger.ApplyInbound(f.ctx, ledger.MovementDocument{
		Reference: "REC",
		Lines:     []ledger.MovementLine{{MaterialID: mat, LocationID: loc, Quantity: d(qty)}},
	})
	require.NoError(f.t, err)
}

func (f *fixture) create(locations ...string) *entity.Stocktake {
	f.t.Helper()
	in := stocktake.CreateInput{
		AreaID:   "area-1",
		TakeDate: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Actor:    admin,
	}
	for _, l := range locations {
		in.Assignments = append(in.Assignments, stocktake.AssignmentInput{LocationID: l, AssigneeID: counter})
	}
	st, err := f.svc.Create(f.ctx, in)
	require.NoError(f.t, err)
	return st
}

func (f *fixture) results(stocktakeID string) []*entity.StocktakeResult {
	f.t.Helper()
	det, err := f.svc.Get(f.ctx, stocktakeID)
	require.NoError(f.t, err)
	return det.Results
}

func (f *fixture) resultFor(stocktakeID, loc, mat string) *entity.StocktakeResult {
	f.t.Helper()
	for _, r := range f.results(stocktakeID) {
		if r.LocationID == loc && r.MaterialID == mat {
			return r
		}
	}
	f.t.Fatalf("sin resultado para %s/%s", loc, mat)
	return nil
}

func (f *fixture) submit(resultID, qty string) *entity.StocktakeResult {
	f.t.Helper()
	res, err := f.svc.SubmitResult(f.ctx, resultID, stocktake.SubmitInput{ActualQuantity: d(qty), Actor: counter})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) assertLedgerConsistent(ids ...string) {
	f.t.Helper()
	for _, id := range ids {
		m := f.store.Material(id)
		assert.True(f.t, m.Stock.Equal(f.store.ItemsTotal(id)), "material %s: stock %s, ítems %s", id, m.Stock, f.store.ItemsTotal(id))
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenarios del ciclo completo
// ──────────────────────────────────────────────────────────────────────────────

func TestEscenario1_StartTomaFotoDeSaldos(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)

	started, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakeStatusCounting, started.Status)
	require.NotNil(t, started.StartedAt)

	res := f.results(st.ID)
	require.Len(t, res, 1)
	assert.True(t, res[0].BookQuantity.Equal(d("10")))
	assert.True(t, res[0].ActualQuantity.IsZero())
	assert.True(t, res[0].Variance.IsZero())
	assert.Equal(t, "und", res[0].UnitID)
	assert.Equal(t, int64(1), res[0].Version)

	det, err := f.svc.Get(f.ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, det.Assignments, 1)
	assert.Equal(t, entity.AssignmentStatusCounting, det.Assignments[0].Status)
	assert.Contains(t, f.pub.types(), ports.EventStocktakeStarted)
}

func TestEscenario2_SubmitCalculaDiferencia(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)

	res := f.submit(f.resultFor(st.ID, a1, m1).ID, "7")
	assert.True(t, res.Variance.Equal(d("-3")))
	assert.True(t, res.BookQuantity.Equal(d("10")))
	assert.Equal(t, counter, res.CountedByID)
	assert.Equal(t, int64(2), res.Version)
}

func TestEscenario3_CompleteConcilia(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	f.receive(a2, m1, "5") // otra ubicación del mismo material, fuera del conteo
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	f.submit(f.resultFor(st.ID, a1, m1).ID, "7")

	_, err = f.svc.BeginReconciliation(f.ctx, st.ID)
	require.NoError(t, err)
	logsBefore := len(f.store.Logs())

	sum, err := f.svc.Complete(f.ctx, st.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Adjusted)
	assert.Equal(t, entity.StocktakeStatusCompleted, sum.Stocktake.Status)
	require.NotNil(t, sum.Stocktake.CompletedAt)

	assert.True(t, f.store.Item(a1, m1).Quantity.Equal(d("7")))
	assert.True(t, f.store.Material(m1).Stock.Equal(d("12")))
	f.assertLedgerConsistent(m1)

	logs := f.store.Logs()
	require.Len(t, logs, logsBefore+1)
	adj := logs[len(logs)-1]
	assert.Equal(t, entity.LogTypeAdjustmentOut, adj.Type)
	assert.True(t, adj.Quantity.Equal(d("-3")))
	assert.Equal(t, st.Code, adj.Reference)
	assert.Equal(t, admin, adj.Actor)

	det, err := f.svc.Get(f.ctx, st.ID)
	require.NoError(t, err)
	for _, a := range det.Assignments {
		assert.Equal(t, entity.AssignmentStatusCompleted, a.Status)
	}
	assert.Contains(t, f.pub.types(), ports.EventStocktakeCompleted)
}

func TestComplete_CorrigeDescuadrePrevioYMovimientosDuranteElConteo(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	// Descuadre previo: A2 tiene 5 pero Material.stock no lo refleja.
	f.store.PutItem(a2, m1, d("5"))
	require.True(t, f.store.Material(m1).Stock.Equal(d("10")))

	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)

	// Entrada en otra ubicación del material con el conteo abierto.
	f.receive(a2, m1, "2")
	f.submit(f.resultFor(st.ID, a1, m1).ID, "7")

	_, err = f.svc.BeginReconciliation(f.ctx, st.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(f.ctx, st.ID, admin)
	require.NoError(t, err)

	assert.True(t, f.store.Item(a1, m1).Quantity.Equal(d("7")))
	assert.True(t, f.store.Item(a2, m1).Quantity.Equal(d("7")))
	assert.True(t, f.store.Material(m1).Stock.Equal(d("14")), "stock %s", f.store.Material(m1).Stock)
	f.assertLedgerConsistent(m1)
}

func TestEscenario4_TokenVencidoDaConflicto(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)

	orig := f.resultFor(st.ID, a1, m1)
	staleAt := orig.UpdatedAt.Add(-time.Second)
	_, err = f.svc.SubmitResult(f.ctx, orig.ID, stocktake.SubmitInput{ActualQuantity: d("4"), ExpectedUpdatedAt: &staleAt})
	require.ErrorIs(t, err, domain.ErrConflict)

	staleVersion := orig.Version + 5
	_, err = f.svc.SubmitResult(f.ctx, orig.ID, stocktake.SubmitInput{ActualQuantity: d("4"), ExpectedVersion: &staleVersion})
	require.ErrorIs(t, err, domain.ErrConflict)

	after := f.resultFor(st.ID, a1, m1)
	assert.True(t, after.ActualQuantity.IsZero())
	assert.True(t, after.Variance.IsZero())
	assert.Equal(t, orig.Version, after.Version)

	// Con el token vigente sí escribe.
	okAt := orig.UpdatedAt
	_, err = f.svc.SubmitResult(f.ctx, orig.ID, stocktake.SubmitInput{ActualQuantity: d("4"), ExpectedUpdatedAt: &okAt})
	require.NoError(t, err)
}

func TestEscenario5_StartDosVecesEsEstadoInvalido(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)

	_, err = f.svc.Start(f.ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, f.results(st.ID), 1)
}

func TestEscenario6_CompleteEnCountingEsEstadoInvalido(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	f.submit(f.resultFor(st.ID, a1, m1).ID, "7")
	logsBefore := len(f.store.Logs())

	_, err = f.svc.Complete(f.ctx, st.ID, admin)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	assert.True(t, f.store.Item(a1, m1).Quantity.Equal(d("10")))
	assert.True(t, f.store.Material(m1).Stock.Equal(d("10")))
	assert.Len(t, f.store.Logs(), logsBefore)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades
// ──────────────────────────────────────────────────────────────────────────────

func TestStart_SinAsignacionesNoCreaLineas(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create()

	_, err := f.svc.Start(f.ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrEmptyAssignment)
	assert.Empty(t, f.results(st.ID))

	det, err := f.svc.Get(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakeStatusDraft, det.Stocktake.Status)
}

func TestStart_MaterialSinUnidadAbortaTodo(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	f.receive(b1, m2, "3")
	st := f.create(a1, b1)

	_, err := f.svc.Start(f.ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrMissingUnit)
	assert.Empty(t, f.results(st.ID))

	det, err := f.svc.Get(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakeStatusDraft, det.Stocktake.Status)
	for _, a := range det.Assignments {
		assert.Equal(t, entity.AssignmentStatusPending, a.Status)
	}
}

func TestSnapshot_CantidadEnLibrosNoCambia(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	id := f.resultFor(st.ID, a1, m1).ID

	// Movimientos durante el conteo no tocan la foto.
	f.receive(a1, m1, "6")
	for _, q := range []string{"1", "9", "0", "12.5"} {
		res := f.submit(id, q)
		assert.True(t, res.BookQuantity.Equal(d("10")))
		assert.True(t, res.Variance.Equal(d(q).Sub(d("10"))))
	}
	assert.True(t, f.resultFor(st.ID, a1, m1).BookQuantity.Equal(d("10")))
}

func TestSubmit_NoSePierdeActualizacion(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	res := f.resultFor(st.ID, a1, m1)
	token := res.UpdatedAt

	var (
		wg        sync.WaitGroup
		successes int
		conflicts int
		mu        sync.Mutex
	)
	for _, q := range []string{"7", "8"} {
		wg.Add(1)
		go func(q string) {
			defer wg.Done()
			tok := token
			_, err := f.svc.SubmitResult(f.ctx, res.ID, stocktake.SubmitInput{ActualQuantity: d(q), ExpectedUpdatedAt: &tok})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}(q)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(2), f.resultFor(st.ID, a1, m1).Version)
}

func TestSubmit_Validaciones(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)

	_, err := f.svc.SubmitResult(f.ctx, "nope", stocktake.SubmitInput{ActualQuantity: d("1")})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	id := f.resultFor(st.ID, a1, m1).ID

	_, err = f.svc.SubmitResult(f.ctx, id, stocktake.SubmitInput{ActualQuantity: d("-1")})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.SubmitResult(f.ctx, id, stocktake.SubmitInput{ActualQuantity: d("1.00001")})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.True(t, f.resultFor(st.ID, a1, m1).ActualQuantity.IsZero())

	res := f.submit(id, "2.5000")
	assert.True(t, res.ActualQuantity.Equal(d("2.5")))
}

func TestSubmit_SinTokenSobreEscribe(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	id := f.resultFor(st.ID, a1, m1).ID

	f.submit(id, "4")
	res := f.submit(id, "6")
	assert.Equal(t, int64(3), res.Version)
	assert.True(t, res.Variance.Equal(d("-4")))
}

func TestSubmit_TambienEnReconciling(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	_, err = f.svc.BeginReconciliation(f.ctx, st.ID)
	require.NoError(t, err)

	res := f.submit(f.resultFor(st.ID, a1, m1).ID, "11")
	assert.True(t, res.Variance.Equal(d("1")))

	_, err = f.svc.Complete(f.ctx, st.ID, admin)
	require.NoError(t, err)
	_, err = f.svc.SubmitResult(f.ctx, res.ID, stocktake.SubmitInput{ActualQuantity: d("3")})
	require.ErrorIs(t, err, domain.ErrInvalidState)

	logs := f.store.Logs()
	assert.Equal(t, entity.LogTypeAdjustmentIn, logs[len(logs)-1].Type)
}

// ──────────────────────────────────────────────────────────────────────────────
// Envío masivo
// ──────────────────────────────────────────────────────────────────────────────

func startedWithThreeLines(f *fixture) (*entity.Stocktake, []*entity.StocktakeResult) {
	f.t.Helper()
	f.receive(a1, m1, "10")
	f.receive(a1, m3, "4")
	f.receive(a2, m1, "2")
	st := f.create(a1, a2)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(f.t, err)
	res := f.results(st.ID)
	require.Len(f.t, res, 3)
	return st, res
}

func TestBulk_AplicaTodo(t *testing.T) {
	f := newFixture(t)
	st, res := startedWithThreeLines(f)

	entries := []stocktake.BulkEntry{
		{ResultID: res[0].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("1")}},
		{ResultID: res[1].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("2")}},
		{ResultID: res[2].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("3")}},
	}
	out, err := f.svc.SubmitResultsBulk(f.ctx, st.ID, entries)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, r := range f.results(st.ID) {
		assert.Equal(t, int64(2), r.Version, "línea %d", i)
	}
}

func TestBulk_TokenVencidoAbortaLoteCompleto(t *testing.T) {
	f := newFixture(t)
	st, res := startedWithThreeLines(f)
	stale := int64(9)

	entries := []stocktake.BulkEntry{
		{ResultID: res[0].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("1")}},
		{ResultID: res[1].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("2"), ExpectedVersion: &stale}},
		{ResultID: res[2].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("3")}},
	}
	_, err := f.svc.SubmitResultsBulk(f.ctx, st.ID, entries)
	require.ErrorIs(t, err, domain.ErrConflict)
	entry, ok := domain.EntryOf(err)
	require.True(t, ok)
	assert.Equal(t, 1, entry)

	for _, r := range f.results(st.ID) {
		assert.Equal(t, int64(1), r.Version)
		assert.True(t, r.ActualQuantity.IsZero())
	}
}

func TestBulk_IdAusenteODeOtroConteo(t *testing.T) {
	f := newFixture(t)
	st, res := startedWithThreeLines(f)

	_, err := f.svc.SubmitResultsBulk(f.ctx, st.ID, []stocktake.BulkEntry{
		{ResultID: res[0].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("1")}},
		{ResultID: "no-existe", SubmitInput: stocktake.SubmitInput{ActualQuantity: d("1")}},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	entry, _ := domain.EntryOf(err)
	assert.Equal(t, 1, entry)
	assert.Equal(t, int64(1), f.results(st.ID)[0].Version)
}

func TestBulk_Limites(t *testing.T) {
	f := newFixture(t)
	st, res := startedWithThreeLines(f)

	_, err := f.svc.SubmitResultsBulk(f.ctx, st.ID, nil)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	four := make([]stocktake.BulkEntry, 4)
	for i := range four {
		four[i] = stocktake.BulkEntry{ResultID: res[i%3].ID}
	}
	_, err = f.svc.SubmitResultsBulk(f.ctx, st.ID, four)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.SubmitResultsBulk(f.ctx, st.ID, []stocktake.BulkEntry{
		{ResultID: res[0].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("1")}},
		{ResultID: res[0].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("2")}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	entry, _ := domain.EntryOf(err)
	assert.Equal(t, 1, entry)

	_, err = f.svc.SubmitResultsBulk(f.ctx, st.ID, []stocktake.BulkEntry{
		{ResultID: res[0].ID, SubmitInput: stocktake.SubmitInput{ActualQuantity: d("-2")}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBulk_TopeMaximoEs50(t *testing.T) {
	svc := stocktake.NewService(memory.NewStore(), memory.NewStore().Stores(), nil, zerolog.Nop(), stocktake.Config{BulkLimit: 500})
	assert.Equal(t, stocktake.MaxBulkEntries, svc.BulkLimit())
}

// ──────────────────────────────────────────────────────────────────────────────
// Cierre
// ──────────────────────────────────────────────────────────────────────────────

func TestComplete_ItemFaltanteNoModificaNada(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	f.receive(a2, m3, "4")
	st := f.create(a1, a2)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	f.submit(f.resultFor(st.ID, a1, m1).ID, "8")
	f.submit(f.resultFor(st.ID, a2, m3).ID, "5")
	_, err = f.svc.BeginReconciliation(f.ctx, st.ID)
	require.NoError(t, err)

	// El ítem de M3 en A2 desaparece antes del cierre.
	_, err = f.ledger.ApplyOutbound(f.ctx, ledger.MovementDocument{
		Lines: []ledger.MovementLine{{MaterialID: m3, LocationID: a2, Quantity: d("4")}},
	})
	require.NoError(t, err)
	logsBefore := len(f.store.Logs())

	_, err = f.svc.Complete(f.ctx, st.ID, admin)
	require.ErrorIs(t, err, domain.ErrMissingWarehouseItem)

	assert.True(t, f.store.Item(a1, m1).Quantity.Equal(d("10")))
	assert.True(t, f.store.Material(m1).Stock.Equal(d("10")))
	assert.True(t, f.store.Material(m3).Stock.IsZero())
	assert.Len(t, f.store.Logs(), logsBefore)

	det, err := f.svc.Get(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StocktakeStatusReconciling, det.Stocktake.Status)
}

func TestComplete_ConteoCeroEliminaItem(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	f.receive(a1, m3, "2")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	f.submit(f.resultFor(st.ID, a1, m1).ID, "0")
	_, err = f.svc.BeginReconciliation(f.ctx, st.ID)
	require.NoError(t, err)

	sum, err := f.svc.Complete(f.ctx, st.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Adjusted)

	assert.Nil(t, f.store.Item(a1, m1))
	assert.True(t, f.store.Item(a1, m3).Quantity.Equal(d("2")))
	f.assertLedgerConsistent(m1, m3)
}

func TestComplete_SinDiferenciasSoloCierra(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	f.submit(f.resultFor(st.ID, a1, m1).ID, "10")
	_, err = f.svc.BeginReconciliation(f.ctx, st.ID)
	require.NoError(t, err)
	logsBefore := len(f.store.Logs())

	sum, err := f.svc.Complete(f.ctx, st.ID, admin)
	require.NoError(t, err)
	assert.Zero(t, sum.Adjusted)
	assert.Len(t, f.store.Logs(), logsBefore)

	_, err = f.svc.Complete(f.ctx, st.ID, admin)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

// ──────────────────────────────────────────────────────────────────────────────
// Flujo de estados y asignaciones
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_CodigoSecuencialPorAnio(t *testing.T) {
	f := newFixture(t)
	first := f.create()
	second := f.create()
	assert.Equal(t, "KK-2026-0001", first.Code)
	assert.Equal(t, "KK-2026-0002", second.Code)
	assert.Equal(t, entity.StocktakeStatusDraft, first.Status)
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture(t)
	date := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.Create(f.ctx, stocktake.CreateInput{TakeDate: date, Actor: admin})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Create(f.ctx, stocktake.CreateInput{AreaID: "x", TakeDate: date, Actor: "fantasma"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Create(f.ctx, stocktake.CreateInput{
		AreaID: "x", TakeDate: date, Actor: admin,
		Assignments: []stocktake.AssignmentInput{{LocationID: a1, AssigneeID: counter}, {LocationID: "nope", AssigneeID: counter}},
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	entry, _ := domain.EntryOf(err)
	assert.Equal(t, 1, entry)

	list, err := f.svc.List(f.ctx, repositoryFilter(""))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestAddAssignment_Duplicados(t *testing.T) {
	f := newFixture(t)
	st := f.create(a1)

	_, err := f.svc.AddAssignment(f.ctx, st.ID, stocktake.AssignmentInput{LocationID: a1, AssigneeID: counter})
	require.ErrorIs(t, err, domain.ErrDuplicateAssignment)

	// A1 ya está en un conteo activo.
	other := f.create()
	_, err = f.svc.AddAssignment(f.ctx, other.ID, stocktake.AssignmentInput{LocationID: a1, AssigneeID: counter})
	require.ErrorIs(t, err, domain.ErrDuplicateAssignment)

	// Cancelado el primero, la ubicación queda libre.
	_, err = f.svc.Cancel(f.ctx, st.ID)
	require.NoError(t, err)
	_, err = f.svc.AddAssignment(f.ctx, other.ID, stocktake.AssignmentInput{LocationID: a1, AssigneeID: counter})
	require.NoError(t, err)
}

func TestAddAssignment_SoloEnDraft(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "1")
	st := f.create(a1)
	_, err := f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)

	_, err = f.svc.AddAssignment(f.ctx, st.ID, stocktake.AssignmentInput{LocationID: a2, AssigneeID: counter})
	require.ErrorIs(t, err, domain.ErrInvalidState)
	err = f.svc.RemoveAssignment(f.ctx, st.ID, a1)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestRemoveAssignment(t *testing.T) {
	f := newFixture(t)
	st := f.create(a1, a2)

	require.NoError(t, f.svc.RemoveAssignment(f.ctx, st.ID, a1))
	require.ErrorIs(t, f.svc.RemoveAssignment(f.ctx, st.ID, a1), domain.ErrNotFound)

	det, err := f.svc.Get(f.ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, det.Assignments, 1)
	assert.Equal(t, a2, det.Assignments[0].LocationID)
}

func TestTransiciones_NoPermitidas(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "1")
	st := f.create(a1)

	_, err := f.svc.BeginReconciliation(f.ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(f.ctx, st.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
	require.ErrorIs(t, f.svc.Delete(f.ctx, st.ID), domain.ErrInvalidState)

	_, err = f.svc.Start(f.ctx, "nope")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete_DraftYCancelled(t *testing.T) {
	f := newFixture(t)
	draft := f.create(a1)
	cancelled := f.create(a2)
	_, err := f.svc.Cancel(f.ctx, cancelled.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, draft.ID))
	require.NoError(t, f.svc.Delete(f.ctx, cancelled.ID))

	_, err = f.svc.Get(f.ctx, draft.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// La ubicación liberada puede asignarse otra vez.
	again := f.create(a1)
	assert.NotEmpty(t, again.ID)
}

func TestCompleteAssignmentYProgreso(t *testing.T) {
	f := newFixture(t)
	f.receive(a1, m1, "10")
	f.receive(a1, m3, "3")
	f.receive(a2, m1, "2")
	st := f.create(a1, a2)

	_, err := f.svc.CompleteAssignment(f.ctx, st.ID, a1)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = f.svc.Start(f.ctx, st.ID)
	require.NoError(t, err)
	f.submit(f.resultFor(st.ID, a1, m1).ID, "9")
	f.submit(f.resultFor(st.ID, a1, m3).ID, "3")

	a, err := f.svc.CompleteAssignment(f.ctx, st.ID, a1)
	require.NoError(t, err)
	assert.Equal(t, entity.AssignmentStatusCompleted, a.Status)
	require.NotNil(t, a.CompletedAt)
	_, err = f.svc.CompleteAssignment(f.ctx, st.ID, a1)
	require.ErrorIs(t, err, domain.ErrInvalidState)

	p, err := f.svc.Progress(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.TotalLines)
	assert.Equal(t, 2, p.CountedLines)
	assert.Equal(t, 1, p.VarianceLines)
	require.Len(t, p.Assignments, 2)
	for _, ap := range p.Assignments {
		switch ap.LocationID {
		case a1:
			assert.Equal(t, 2, ap.Lines)
			assert.Equal(t, 2, ap.Counted)
			assert.Equal(t, entity.AssignmentStatusCompleted, ap.Status)
		case a2:
			assert.Equal(t, 1, ap.Lines)
			assert.Zero(t, ap.Counted)
			assert.Equal(t, entity.AssignmentStatusCounting, ap.Status)
		}
	}
}

func TestList_Filtros(t *testing.T) {
	f := newFixture(t)
	f.create(a1)
	c := f.create(a2)
	_, err := f.svc.Cancel(f.ctx, c.ID)
	require.NoError(t, err)

	all, err := f.svc.List(f.ctx, repositoryFilter(""))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	drafts, err := f.svc.List(f.ctx, repositoryFilter(entity.StocktakeStatusDraft))
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, entity.StocktakeStatusDraft, drafts[0].Status)

	_, err = f.svc.List(f.ctx, repositoryFilter("OPEN"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}
