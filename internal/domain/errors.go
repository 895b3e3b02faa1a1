package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
// Cada uno identifica una categoría; el detalle viaja en *Error.
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrConflict             = errors.New("conflicto con el estado actual")
	ErrInsufficientStock    = errors.New("stock insuficiente")
	ErrInvalidState         = errors.New("estado inválido para la operación")
	ErrDuplicateAssignment  = errors.New("asignación duplicada")
	ErrEmptyAssignment      = errors.New("el conteo no tiene asignaciones")
	ErrMissingUnit          = errors.New("material sin unidad de medida")
	ErrMissingWarehouseItem = errors.New("no existe el ítem de bodega")
)

// Error es el error estructurado del motor: Kind es uno de los sentinelas de arriba
// y Message el contexto legible. errors.Is(err, domain.ErrConflict) funciona vía Unwrap.
type Error struct {
	Kind    error
	Message string
	// Entry es el índice (base 0) de la entrada que falló en una operación masiva.
	Entry *int
	// Available/Requested solo se llenan en ErrInsufficientStock.
	Available *decimal.Decimal
	Requested *decimal.Decimal
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Entry != nil {
		msg = fmt.Sprintf("entrada %d: %s", *e.Entry, msg)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error { return newError(ErrInvalidInput, format, args...) }
func NotFound(format string, args ...any) error   { return newError(ErrNotFound, format, args...) }
func Conflict(format string, args ...any) error   { return newError(ErrConflict, format, args...) }
func InvalidState(format string, args ...any) error {
	return newError(ErrInvalidState, format, args...)
}
func DuplicateAssignment(format string, args ...any) error {
	return newError(ErrDuplicateAssignment, format, args...)
}
func EmptyAssignment(format string, args ...any) error {
	return newError(ErrEmptyAssignment, format, args...)
}
func MissingUnit(format string, args ...any) error { return newError(ErrMissingUnit, format, args...) }
func MissingWarehouseItem(format string, args ...any) error {
	return newError(ErrMissingWarehouseItem, format, args...)
}

// InsufficientStock informa disponible vs solicitado.
func InsufficientStock(materialID string, available, requested decimal.Decimal) error {
	return &Error{
		Kind:      ErrInsufficientStock,
		Message:   fmt.Sprintf("material %s: disponible %s, solicitado %s", materialID, available.String(), requested.String()),
		Available: &available,
		Requested: &requested,
	}
}

// AtEntry marca el error con el índice de la entrada masiva que lo provocó.
// Errores que no son *Error se envuelven conservando su categoría si la tienen.
func AtEntry(index int, err error) error {
	if err == nil {
		return nil
	}
	var de *Error
	if errors.As(err, &de) {
		cp := *de
		cp.Entry = &index
		return &cp
	}
	return &Error{Kind: err, Entry: &index}
}

// EntryOf devuelve el índice de entrada asociado al error, si existe.
func EntryOf(err error) (int, bool) {
	var de *Error
	if errors.As(err, &de) && de.Entry != nil {
		return *de.Entry, true
	}
	return 0, false
}
