// Package stocktake orquesta el conteo físico: asignaciones, foto de saldos al iniciar,
// registro de cantidades con concurrencia optimista y conciliación atómica al cerrar.
package stocktake

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ports"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// MaxBulkEntries tope de líneas por envío masivo.
const MaxBulkEntries = 50

// Config parámetros del servicio.
type Config struct {
	BulkLimit  int    // 1..MaxBulkEntries; fuera de rango = MaxBulkEntries
	CodePrefix string // vacío = "KK"
}

// Service casos de uso del conteo físico.
type Service struct {
	tx     TxRunner
	stores repository.Stores // lecturas fuera de transacción
	events ports.EventPublisher
	log    zerolog.Logger
	cfg    Config
	now    func() time.Time
}

// NewService construye el servicio. events puede ser nil.
func NewService(tx TxRunner, stores repository.Stores, events ports.EventPublisher, log zerolog.Logger, cfg Config) *Service {
	if cfg.BulkLimit <= 0 || cfg.BulkLimit > MaxBulkEntries {
		cfg.BulkLimit = MaxBulkEntries
	}
	if cfg.CodePrefix == "" {
		cfg.CodePrefix = "KK"
	}
	return &Service{
		tx:     tx,
		stores: stores,
		events: events,
		log:    log,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// BulkLimit devuelve el tope efectivo del envío masivo.
func (s *Service) BulkLimit() int { return s.cfg.BulkLimit }

// AssignmentInput ubicación a contar y quién la cuenta.
type AssignmentInput struct {
	LocationID string
	AssigneeID string
}

// CreateInput datos para crear un conteo en DRAFT.
type CreateInput struct {
	AreaID      string
	TakeDate    time.Time
	Notes       string
	Actor       string
	Assignments []AssignmentInput
}

// SubmitInput cantidad contada para una línea. ExpectedVersion y ExpectedUpdatedAt son
// tokens opcionales: si vienen y no coinciden con la fila, la escritura se rechaza.
type SubmitInput struct {
	ActualQuantity    decimal.Decimal
	ExpectedVersion   *int64
	ExpectedUpdatedAt *time.Time
	Notes             *string
	Actor             string
}

// BulkEntry una línea del envío masivo.
type BulkEntry struct {
	ResultID string
	SubmitInput
}

// Detail conteo con asignaciones y líneas.
type Detail struct {
	Stocktake   *entity.Stocktake
	Assignments []*entity.StocktakeAssignment
	Results     []*entity.StocktakeResult
}

// AssignmentProgress avance de una ubicación asignada.
type AssignmentProgress struct {
	LocationID string
	AssigneeID string
	Status     string
	Lines      int
	Counted    int
}

// Progress avance del conteo. Una línea cuenta como contada cuando recibió al menos un envío.
type Progress struct {
	StocktakeID   string
	Code          string
	Status        string
	TotalLines    int
	CountedLines  int
	VarianceLines int
	Assignments   []AssignmentProgress
}

// CompletionSummary resultado del cierre.
type CompletionSummary struct {
	Stocktake *entity.Stocktake
	Adjusted  int
	Logs      []*entity.InventoryLog
}

func (s *Service) publish(ctx context.Context, evt ports.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.log.Error().Err(err).Str("event", evt.Type).Str("reference", evt.Reference).Msg("no se pudo publicar evento")
	}
}
