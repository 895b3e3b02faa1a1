package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/dto"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/ledger"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
)

// InventoryHandler maneja las peticiones HTTP de entradas, salidas y kardex (protegido).
type InventoryHandler struct {
	proc *ledger.MovementProcessor
	log  zerolog.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(proc *ledger.MovementProcessor, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{proc: proc, log: log}
}

// Inbound godoc
// @Summary      Registrar entrada
// @Description  Todas las líneas se aplican o ninguna. location_id es obligatorio en entradas.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.MovementRequest  true  "referencia y líneas"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/inventory/inbound [post]
func (h *InventoryHandler) Inbound(c *fiber.Ctx) error {
	return h.apply(c, h.proc.ApplyInbound)
}

// Outbound godoc
// @Summary      Registrar salida
// @Description  Sin location_id la línea consume las ubicaciones del material en orden de código.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.MovementRequest  true  "referencia y líneas"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/outbound [post]
func (h *InventoryHandler) Outbound(c *fiber.Ctx) error {
	return h.apply(c, h.proc.ApplyOutbound)
}

type applyFunc func(ctx context.Context, doc ledger.MovementDocument) ([]*entity.InventoryLog, error)

func (h *InventoryHandler) apply(c *fiber.Ctx, fn applyFunc) error {
	var in dto.MovementRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	doc := ledger.MovementDocument{Reference: in.Reference, Actor: GetUserID(c)}
	for _, l := range in.Lines {
		doc.Lines = append(doc.Lines, ledger.MovementLine{MaterialID: l.MaterialID, LocationID: l.LocationID, Quantity: l.Quantity})
	}
	logs, err := fn(c.Context(), doc)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ref := in.Reference
	if len(logs) > 0 {
		ref = logs[0].Reference
	}
	return c.Status(fiber.StatusCreated).JSON(dto.MovementResponse{Reference: ref, Logs: toLogResponses(logs)})
}

// History godoc
// @Summary      Kardex del material
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID del material"
// @Param        limit   query  int     false  "Máximo 200 (default 50)"
// @Param        offset  query  int     false  "Desplazamiento"
// @Success      200  {array}   dto.InventoryLogResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/materials/{id}/logs [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	logs, err := h.proc.History(c.Context(), c.Params("id"), c.QueryInt("limit", 0), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toLogResponses(logs))
}

// Consistency godoc
// @Summary      Cuadre de stock
// @Description  Materiales cuyo stock no coincide con la suma de sus ítems de bodega.
// @Tags         inventory
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ConsistencyResponse
// @Router       /api/inventory/consistency [get]
func (h *InventoryHandler) Consistency(c *fiber.Ctx) error {
	drift, err := h.proc.Consistency(c.Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.ConsistencyResponse{Consistent: len(drift) == 0, Drift: toDriftResponses(drift)})
}
