package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/application/dto"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
)

// errorStatus código HTTP y código de error por categoría de dominio.
var errorStatus = []struct {
	kind   error
	status int
	code   string
}{
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrDuplicateAssignment, fiber.StatusConflict, "DUPLICATE_ASSIGNMENT"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrEmptyAssignment, fiber.StatusUnprocessableEntity, "EMPTY_ASSIGNMENT"},
	{domain.ErrMissingUnit, fiber.StatusUnprocessableEntity, "MISSING_UNIT"},
	{domain.ErrMissingWarehouseItem, fiber.StatusUnprocessableEntity, "MISSING_WAREHOUSE_ITEM"},
}

// writeError traduce un error de dominio a respuesta HTTP. Lo que no es de dominio es 500
// y se registra; el detalle interno no se devuelve al cliente.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	for _, m := range errorStatus {
		if !errors.Is(err, m.kind) {
			continue
		}
		body := dto.ErrorResponse{Code: m.code, Message: err.Error()}
		var de *domain.Error
		if errors.As(err, &de) {
			body.Entry = de.Entry
			if de.Available != nil {
				s := de.Available.String()
				body.Available = &s
			}
			if de.Requested != nil {
				s := de.Requested.String()
				body.Requested = &s
			}
		}
		return c.Status(m.status).JSON(body)
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}
