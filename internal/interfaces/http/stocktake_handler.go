package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/dto"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/stocktake"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/repository"
)

// StocktakeHandler maneja las peticiones HTTP del conteo físico (protegido).
type StocktakeHandler struct {
	svc *stocktake.Service
	log zerolog.Logger
}

// NewStocktakeHandler construye el handler.
func NewStocktakeHandler(svc *stocktake.Service, log zerolog.Logger) *StocktakeHandler {
	return &StocktakeHandler{svc: svc, log: log}
}

// Create godoc
// @Summary      Crear conteo físico
// @Description  Crea el conteo en DRAFT con código KK-<año>-<secuencia> y asignaciones opcionales.
// @Tags         stocktakes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateStocktakeRequest  true  "área, fecha (YYYY-MM-DD), notas, asignaciones"
// @Success      201   {object}  dto.StocktakeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stocktakes [post]
func (h *StocktakeHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateStocktakeRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	takeDate, _ := time.Parse(dateLayout, in.TakeDate)
	input := stocktake.CreateInput{
		AreaID:   in.AreaID,
		TakeDate: takeDate,
		Notes:    in.Notes,
		Actor:    GetUserID(c),
	}
	for _, a := range in.Assignments {
		input.Assignments = append(input.Assignments, stocktake.AssignmentInput{LocationID: a.LocationID, AssigneeID: a.AssigneeID})
	}
	st, err := h.svc.Create(c.Context(), input)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toStocktakeResponse(st))
}

// List godoc
// @Summary      Listar conteos
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        status   query  string  false  "DRAFT | COUNTING | RECONCILING | COMPLETED | CANCELLED"
// @Param        area_id  query  string  false  "Área"
// @Param        limit    query  int     false  "Máximo 100 (default 20)"
// @Param        offset   query  int     false  "Desplazamiento"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/stocktakes [get]
func (h *StocktakeHandler) List(c *fiber.Ctx) error {
	var q dto.StocktakeListQuery
	if ok, err := bindQuery(c, &q); !ok {
		return err
	}
	q.DefaultPage()
	list, err := h.svc.List(c.Context(), repository.StocktakeFilter{Status: q.Status, AreaID: q.AreaID, Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		return writeError(c, h.log, err)
	}
	items := make([]dto.StocktakeResponse, 0, len(list))
	for _, st := range list {
		items = append(items, toStocktakeResponse(st))
	}
	return c.JSON(fiber.Map{
		"items": items,
		"page":  dto.PageResponse{Limit: q.Limit, Offset: q.Offset},
	})
}

// Get godoc
// @Summary      Detalle del conteo
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del conteo"
// @Success      200  {object}  dto.StocktakeDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id} [get]
func (h *StocktakeHandler) Get(c *fiber.Ctx) error {
	d, err := h.svc.Get(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toDetailResponse(d))
}

// Progress godoc
// @Summary      Avance del conteo
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del conteo"
// @Success      200  {object}  dto.ProgressResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/progress [get]
func (h *StocktakeHandler) Progress(c *fiber.Ctx) error {
	p, err := h.svc.Progress(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toProgressResponse(p))
}

// Delete godoc
// @Summary      Eliminar conteo (solo DRAFT o CANCELLED)
// @Tags         stocktakes
// @Security     Bearer
// @Param        id   path  string  true  "ID del conteo"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id} [delete]
func (h *StocktakeHandler) Delete(c *fiber.Ctx) error {
	if err := h.svc.Delete(c.Context(), c.Params("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddAssignment godoc
// @Summary      Asignar ubicación a un contador
// @Tags         stocktakes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID del conteo"
// @Param        body  body      dto.AssignmentRequest  true  "ubicación y contador"
// @Success      201   {object}  dto.AssignmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/assignments [post]
func (h *StocktakeHandler) AddAssignment(c *fiber.Ctx) error {
	var in dto.AssignmentRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	a, err := h.svc.AddAssignment(c.Context(), c.Params("id"), stocktake.AssignmentInput{LocationID: in.LocationID, AssigneeID: in.AssigneeID})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toAssignmentResponse(a))
}

// RemoveAssignment godoc
// @Summary      Quitar asignación (solo DRAFT)
// @Tags         stocktakes
// @Security     Bearer
// @Param        id          path  string  true  "ID del conteo"
// @Param        locationId  path  string  true  "ID de la ubicación"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/assignments/{locationId} [delete]
func (h *StocktakeHandler) RemoveAssignment(c *fiber.Ctx) error {
	if err := h.svc.RemoveAssignment(c.Context(), c.Params("id"), c.Params("locationId")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CompleteAssignment godoc
// @Summary      Marcar ubicación como contada
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        id          path      string  true  "ID del conteo"
// @Param        locationId  path      string  true  "ID de la ubicación"
// @Success      200  {object}  dto.AssignmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/assignments/{locationId}/complete [post]
func (h *StocktakeHandler) CompleteAssignment(c *fiber.Ctx) error {
	a, err := h.svc.CompleteAssignment(c.Context(), c.Params("id"), c.Params("locationId"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toAssignmentResponse(a))
}

// Start godoc
// @Summary      Iniciar conteo
// @Description  DRAFT -> COUNTING: toma la foto de saldos de las ubicaciones asignadas.
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del conteo"
// @Success      200  {object}  dto.StocktakeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/start [post]
func (h *StocktakeHandler) Start(c *fiber.Ctx) error {
	st, err := h.svc.Start(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toStocktakeResponse(st))
}

// Reconcile godoc
// @Summary      Pasar a conciliación
// @Description  COUNTING -> RECONCILING. Se siguen aceptando correcciones de cantidades.
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del conteo"
// @Success      200  {object}  dto.StocktakeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/reconcile [post]
func (h *StocktakeHandler) Reconcile(c *fiber.Ctx) error {
	st, err := h.svc.BeginReconciliation(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toStocktakeResponse(st))
}

// Complete godoc
// @Summary      Cerrar conteo
// @Description  RECONCILING -> COMPLETED: ajusta ítems de bodega, stock y kardex en una sola transacción.
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del conteo"
// @Success      200  {object}  dto.CompletionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/complete [post]
func (h *StocktakeHandler) Complete(c *fiber.Ctx) error {
	sum, err := h.svc.Complete(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.CompletionResponse{
		Stocktake: toStocktakeResponse(sum.Stocktake),
		Adjusted:  sum.Adjusted,
		Logs:      toLogResponses(sum.Logs),
	})
}

// Cancel godoc
// @Summary      Cancelar conteo (solo DRAFT)
// @Tags         stocktakes
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID del conteo"
// @Success      200  {object}  dto.StocktakeResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/cancel [post]
func (h *StocktakeHandler) Cancel(c *fiber.Ctx) error {
	st, err := h.svc.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toStocktakeResponse(st))
}

// SubmitResult godoc
// @Summary      Registrar cantidad contada
// @Description  version/updated_at opcionales: si no coinciden con la línea se responde 409 y no se escribe nada.
// @Tags         stocktakes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        resultId  path      string                   true  "ID de la línea"
// @Param        body      body      dto.SubmitResultRequest  true  "cantidad contada y token"
// @Success      200       {object}  dto.StocktakeResultResponse
// @Failure      400       {object}  dto.ErrorResponse
// @Failure      404       {object}  dto.ErrorResponse
// @Failure      409       {object}  dto.ErrorResponse
// @Router       /api/stocktake-results/{resultId} [put]
func (h *StocktakeHandler) SubmitResult(c *fiber.Ctx) error {
	var in dto.SubmitResultRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	res, err := h.svc.SubmitResult(c.Context(), c.Params("resultId"), submitInput(in, GetUserID(c)))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toResultResponse(res))
}

// SubmitResultsBulk godoc
// @Summary      Registrar cantidades en lote
// @Description  Hasta 50 líneas en una transacción. Cualquier línea inválida aborta el lote; el error trae el índice (entry).
// @Tags         stocktakes
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path      string                 true  "ID del conteo"
// @Param        body  body      dto.BulkSubmitRequest  true  "líneas"
// @Success      200   {array}   dto.StocktakeResultResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/stocktakes/{id}/results [put]
func (h *StocktakeHandler) SubmitResultsBulk(c *fiber.Ctx) error {
	var in dto.BulkSubmitRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	actor := GetUserID(c)
	entries := make([]stocktake.BulkEntry, 0, len(in.Entries))
	for _, e := range in.Entries {
		entries = append(entries, stocktake.BulkEntry{ResultID: e.ResultID, SubmitInput: submitInput(e.SubmitResultRequest, actor)})
	}
	out, err := h.svc.SubmitResultsBulk(c.Context(), c.Params("id"), entries)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(toResultResponses(out))
}

func submitInput(in dto.SubmitResultRequest, actor string) stocktake.SubmitInput {
	return stocktake.SubmitInput{
		ActualQuantity:    in.ActualQuantity,
		ExpectedVersion:   in.Version,
		ExpectedUpdatedAt: in.UpdatedAt,
		Notes:             in.Notes,
		Actor:             actor,
	}
}
