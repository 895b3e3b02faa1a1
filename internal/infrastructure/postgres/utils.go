package postgres

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
)

// Códigos SQLSTATE que el motor traduce a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// constraintName devuelve el constraint violado, si el driver lo informa.
func constraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// asConflict traduce fallas de serialización y deadlocks a domain.ErrConflict.
// No se reintenta: el llamador decide si vuelve a enviar.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure:
			return domain.Conflict("transacción concurrente sobre las mismas filas, reintente")
		case codeDeadlockDetected:
			return domain.Conflict("bloqueo mutuo con otra transacción, reintente")
		}
	}
	return err
}

// validID evita mandar a PostgreSQL ids que no son UUID: el error 22P02 abortaría la transacción en curso.
// Los getters tratan un id mal formado como inexistente.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// nullIfEmpty convierte "" en NULL para columnas opcionales.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
