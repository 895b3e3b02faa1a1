package http

import (
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/dto"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/stocktake"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

const dateLayout = "2006-01-02"

func toStocktakeResponse(s *entity.Stocktake) dto.StocktakeResponse {
	return dto.StocktakeResponse{
		ID:            s.ID,
		Code:          s.Code,
		Status:        s.Status,
		AreaID:        s.AreaID,
		TakeDate:      s.TakeDate.Format(dateLayout),
		Notes:         s.Notes,
		CreatedBy:     s.CreatedBy,
		StartedAt:     s.StartedAt,
		ReconcilingAt: s.ReconcilingAt,
		CompletedAt:   s.CompletedAt,
		CancelledAt:   s.CancelledAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toAssignmentResponse(a *entity.StocktakeAssignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:          a.ID,
		LocationID:  a.LocationID,
		AssigneeID:  a.AssigneeID,
		Status:      a.Status,
		CompletedAt: a.CompletedAt,
	}
}

func toResultResponse(r *entity.StocktakeResult) dto.StocktakeResultResponse {
	return dto.StocktakeResultResponse{
		ID:             r.ID,
		StocktakeID:    r.StocktakeID,
		MaterialID:     r.MaterialID,
		LocationID:     r.LocationID,
		UnitID:         r.UnitID,
		CountedByID:    r.CountedByID,
		BookQuantity:   r.BookQuantity,
		ActualQuantity: r.ActualQuantity,
		Variance:       r.Variance,
		Notes:          r.Notes,
		Version:        r.Version,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toResultResponses(rs []*entity.StocktakeResult) []dto.StocktakeResultResponse {
	out := make([]dto.StocktakeResultResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toResultResponse(r))
	}
	return out
}

func toDetailResponse(d *stocktake.Detail) dto.StocktakeDetailResponse {
	out := dto.StocktakeDetailResponse{
		StocktakeResponse: toStocktakeResponse(d.Stocktake),
		Assignments:       make([]dto.AssignmentResponse, 0, len(d.Assignments)),
		Results:           toResultResponses(d.Results),
	}
	for _, a := range d.Assignments {
		out.Assignments = append(out.Assignments, toAssignmentResponse(a))
	}
	return out
}

func toProgressResponse(p *stocktake.Progress) dto.ProgressResponse {
	out := dto.ProgressResponse{
		StocktakeID:   p.StocktakeID,
		Code:          p.Code,
		Status:        p.Status,
		TotalLines:    p.TotalLines,
		CountedLines:  p.CountedLines,
		VarianceLines: p.VarianceLines,
		Assignments:   make([]dto.AssignmentProgressResponse, 0, len(p.Assignments)),
	}
	for _, a := range p.Assignments {
		out.Assignments = append(out.Assignments, dto.AssignmentProgressResponse{
			LocationID: a.LocationID,
			AssigneeID: a.AssigneeID,
			Status:     a.Status,
			Lines:      a.Lines,
			Counted:    a.Counted,
		})
	}
	return out
}

func toLogResponses(logs []*entity.InventoryLog) []dto.InventoryLogResponse {
	out := make([]dto.InventoryLogResponse, 0, len(logs))
	for _, l := range logs {
		out = append(out, dto.InventoryLogResponse{
			ID:         l.ID,
			MaterialID: l.MaterialID,
			LocationID: l.LocationID,
			Quantity:   l.Quantity,
			Type:       l.Type,
			Reference:  l.Reference,
			Date:       l.Date,
			Actor:      l.Actor,
		})
	}
	return out
}

func toDriftResponses(drift []repository.StockDrift) []dto.StockDriftResponse {
	out := make([]dto.StockDriftResponse, 0, len(drift))
	for _, d := range drift {
		out = append(out, dto.StockDriftResponse{
			MaterialID: d.MaterialID,
			Code:       d.Code,
			Stock:      d.Stock,
			ItemsTotal: d.ItemsTotal,
		})
	}
	return out
}
