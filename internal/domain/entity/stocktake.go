package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del conteo físico (stocktake).
const (
	StocktakeStatusDraft       = "DRAFT"
	StocktakeStatusCounting    = "COUNTING"
	StocktakeStatusReconciling = "RECONCILING"
	StocktakeStatusCompleted   = "COMPLETED"
	StocktakeStatusCancelled   = "CANCELLED"
)

// Estados de una asignación ubicación-contador.
const (
	AssignmentStatusPending   = "PENDING"
	AssignmentStatusCounting  = "COUNTING"
	AssignmentStatusCompleted = "COMPLETED"
)

// Stocktake es un conteo físico sobre un área de la bodega.
type Stocktake struct {
	ID            string
	Code          string // KK-<año>-<secuencia>
	Status        string
	AreaID        string
	TakeDate      time.Time
	Notes         string
	CreatedBy     string
	StartedAt     *time.Time
	ReconcilingAt *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsActive indica si el conteo no ha llegado a un estado terminal.
func (s *Stocktake) IsActive() bool {
	switch s.Status {
	case StocktakeStatusCompleted, StocktakeStatusCancelled:
		return false
	}
	return true
}

// StocktakeAssignment asigna una ubicación a un contador dentro de un conteo.
type StocktakeAssignment struct {
	ID          string
	StocktakeID string
	LocationID  string
	AssigneeID  string
	Status      string
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// StocktakeResult es una línea de conteo por (ubicación, material).
// BookQuantity se congela al iniciar el conteo y no vuelve a cambiar.
// Version es el token de concurrencia optimista; sube en cada escritura.
type StocktakeResult struct {
	ID             string
	StocktakeID    string
	MaterialID     string
	LocationID     string
	UnitID         string
	CountedByID    string
	BookQuantity   decimal.Decimal
	ActualQuantity decimal.Decimal
	Variance       decimal.Decimal
	Notes          string
	Version        int64
	UpdatedAt      time.Time
}
