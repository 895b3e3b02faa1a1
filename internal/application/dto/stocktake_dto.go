package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssignmentRequest ubicación a contar y contador asignado.
type AssignmentRequest struct {
	LocationID string `json:"location_id" validate:"required,uuid"`
	AssigneeID string `json:"assignee_id" validate:"required,uuid"`
}

// CreateStocktakeRequest body para POST /api/stocktakes.
// TakeDate en formato YYYY-MM-DD.
type CreateStocktakeRequest struct {
	AreaID      string              `json:"area_id" validate:"required,max=60"`
	TakeDate    string              `json:"take_date" validate:"required,datetime=2006-01-02"`
	Notes       string              `json:"notes,omitempty" validate:"max=1000"`
	Assignments []AssignmentRequest `json:"assignments,omitempty" validate:"max=500,dive"`
}

// SubmitResultRequest body para PUT /api/stocktake-results/:resultId.
// Version y UpdatedAt son tokens opcionales de concurrencia optimista.
type SubmitResultRequest struct {
	ActualQuantity decimal.Decimal `json:"actual_quantity" validate:"gte=0"`
	Version        *int64          `json:"version,omitempty" validate:"omitempty,min=1"`
	UpdatedAt      *time.Time      `json:"updated_at,omitempty"`
	Notes          *string         `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

// BulkResultEntry una línea del envío masivo.
type BulkResultEntry struct {
	ResultID string `json:"result_id" validate:"required,uuid"`
	SubmitResultRequest
}

// BulkSubmitRequest body para PUT /api/stocktakes/:id/results.
type BulkSubmitRequest struct {
	Entries []BulkResultEntry `json:"entries" validate:"required,min=1,max=50,dive"`
}

// StocktakeListQuery filtros de GET /api/stocktakes.
type StocktakeListQuery struct {
	Status string `query:"status" validate:"omitempty,oneof=DRAFT COUNTING RECONCILING COMPLETED CANCELLED"`
	AreaID string `query:"area_id"`
	PageRequest
}

// StocktakeResponse cabecera del conteo.
type StocktakeResponse struct {
	ID            string     `json:"id"`
	Code          string     `json:"code"`
	Status        string     `json:"status"`
	AreaID        string     `json:"area_id,omitempty"`
	TakeDate      string     `json:"take_date"`
	Notes         string     `json:"notes,omitempty"`
	CreatedBy     string     `json:"created_by"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	ReconcilingAt *time.Time `json:"reconciling_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AssignmentResponse asignación ubicación-contador.
type AssignmentResponse struct {
	ID          string     `json:"id"`
	LocationID  string     `json:"location_id"`
	AssigneeID  string     `json:"assignee_id"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StocktakeResultResponse línea de conteo. Version y UpdatedAt se devuelven como token.
type StocktakeResultResponse struct {
	ID             string          `json:"id"`
	StocktakeID    string          `json:"stocktake_id"`
	MaterialID     string          `json:"material_id"`
	LocationID     string          `json:"location_id"`
	UnitID         string          `json:"unit_id"`
	CountedByID    string          `json:"counted_by_id,omitempty"`
	BookQuantity   decimal.Decimal `json:"book_quantity"`
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
	Variance       decimal.Decimal `json:"variance"`
	Notes          string          `json:"notes,omitempty"`
	Version        int64           `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// StocktakeDetailResponse conteo con asignaciones y líneas.
type StocktakeDetailResponse struct {
	StocktakeResponse
	Assignments []AssignmentResponse      `json:"assignments"`
	Results     []StocktakeResultResponse `json:"results"`
}

// AssignmentProgressResponse avance de una ubicación.
type AssignmentProgressResponse struct {
	LocationID string `json:"location_id"`
	AssigneeID string `json:"assignee_id"`
	Status     string `json:"status"`
	Lines      int    `json:"lines"`
	Counted    int    `json:"counted"`
}

// ProgressResponse avance del conteo.
type ProgressResponse struct {
	StocktakeID   string                       `json:"stocktake_id"`
	Code          string                       `json:"code"`
	Status        string                       `json:"status"`
	TotalLines    int                          `json:"total_lines"`
	CountedLines  int                          `json:"counted_lines"`
	VarianceLines int                          `json:"variance_lines"`
	Assignments   []AssignmentProgressResponse `json:"assignments"`
}

// CompletionResponse resultado del cierre.
type CompletionResponse struct {
	Stocktake StocktakeResponse      `json:"stocktake"`
	Adjusted  int                    `json:"adjusted"`
	Logs      []InventoryLogResponse `json:"logs"`
}
