package repository

import (
	"context"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
)

// StocktakeFilter filtros del listado de conteos.
type StocktakeFilter struct {
	Status string
	AreaID string
	Limit  int
	Offset int
}

// StocktakeRepository define el puerto de persistencia del conteo físico.
type StocktakeRepository interface {
	// Create falla con domain.ErrConflict si el código ya existe.
	Create(ctx context.Context, st *entity.Stocktake) error
	GetByID(ctx context.Context, id string) (*entity.Stocktake, error)
	GetForUpdate(ctx context.Context, id string) (*entity.Stocktake, error)
	// Update persiste estado y marcas de tiempo.
	Update(ctx context.Context, st *entity.Stocktake) error
	Delete(ctx context.Context, id string) error
	// MaxCodeSequence devuelve la secuencia más alta entre los códigos con ese prefijo (0 si no hay).
	MaxCodeSequence(ctx context.Context, prefix string) (int, error)
	List(ctx context.Context, f StocktakeFilter) ([]*entity.Stocktake, error)
}

// AssignmentRepository asignaciones ubicación-contador de un conteo.
type AssignmentRepository interface {
	// Create falla con domain.ErrDuplicateAssignment si (conteo, ubicación) ya existe.
	Create(ctx context.Context, a *entity.StocktakeAssignment) error
	Get(ctx context.Context, stocktakeID, locationID string) (*entity.StocktakeAssignment, error)
	ListByStocktake(ctx context.Context, stocktakeID string) ([]*entity.StocktakeAssignment, error)
	Update(ctx context.Context, a *entity.StocktakeAssignment) error
	Delete(ctx context.Context, stocktakeID, locationID string) error
	DeleteByStocktake(ctx context.Context, stocktakeID string) error
	// FindActiveByLocation busca la ubicación en otro conteo no terminal (DRAFT, COUNTING, RECONCILING).
	// Devuelve el código de ese conteo o "" si no hay.
	FindActiveByLocation(ctx context.Context, locationID, excludeStocktakeID string) (string, error)
}

// ResultRepository líneas de conteo.
type ResultRepository interface {
	CreateBatch(ctx context.Context, results []*entity.StocktakeResult) error
	GetByID(ctx context.Context, id string) (*entity.StocktakeResult, error)
	ListByStocktake(ctx context.Context, stocktakeID string) ([]*entity.StocktakeResult, error)
	// ListWithVariance devuelve las líneas con diferencia distinta de cero.
	ListWithVariance(ctx context.Context, stocktakeID string) ([]*entity.StocktakeResult, error)
	// UpdateCount escribe cantidad contada, diferencia, notas, contador, version y updated_at
	// solo si la versión almacenada es expectedVersion. Devuelve false si no coincidió.
	UpdateCount(ctx context.Context, r *entity.StocktakeResult, expectedVersion int64) (bool, error)
}
