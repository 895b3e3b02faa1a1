// Package stocktake contiene las reglas puras del conteo físico: transiciones de estado,
// cálculo de diferencia y formato del código. No depende de persistencia.
package stocktake

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// transitions: estado origen -> estados destino permitidos.
var transitions = map[string][]string{
	entity.StocktakeStatusDraft:       {entity.StocktakeStatusCounting, entity.StocktakeStatusCancelled},
	entity.StocktakeStatusCounting:    {entity.StocktakeStatusReconciling},
	entity.StocktakeStatusReconciling: {entity.StocktakeStatusCompleted},
}

// CanTransition indica si from -> to está permitido.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition valida el cambio de estado y devuelve ErrInvalidState si no está permitido.
func Transition(st *entity.Stocktake, to string) error {
	if !CanTransition(st.Status, to) {
		return domain.InvalidState("conteo %s: no se puede pasar de %s a %s", st.Code, st.Status, to)
	}
	return nil
}

// AcceptsResults indica si el conteo admite registrar cantidades contadas.
func AcceptsResults(status string) bool {
	return status == entity.StocktakeStatusCounting || status == entity.StocktakeStatusReconciling
}

// Deletable indica si el conteo puede eliminarse.
func Deletable(status string) bool {
	return status == entity.StocktakeStatusDraft || status == entity.StocktakeStatusCancelled
}

// ValidStatus indica si s es un estado conocido.
func ValidStatus(s string) bool {
	switch s {
	case entity.StocktakeStatusDraft, entity.StocktakeStatusCounting, entity.StocktakeStatusReconciling,
		entity.StocktakeStatusCompleted, entity.StocktakeStatusCancelled:
		return true
	}
	return false
}

// Variance = contado - libro.
func Variance(book, actual decimal.Decimal) decimal.Decimal {
	return actual.Sub(book)
}

// AdjustmentType devuelve el tipo de kardex que corresponde a una diferencia no nula.
func AdjustmentType(variance decimal.Decimal) string {
	if variance.IsPositive() {
		return entity.LogTypeAdjustmentIn
	}
	return entity.LogTypeAdjustmentOut
}

// CodePrefix arma el prefijo anual, p. ej. "KK-2026-".
func CodePrefix(prefix string, takeDate time.Time) string {
	return fmt.Sprintf("%s-%d-", prefix, takeDate.Year())
}

// Code arma el siguiente código a partir de la última secuencia usada con ese prefijo anual.
func Code(prefix string, takeDate time.Time, last int) string {
	return fmt.Sprintf("%s%04d", CodePrefix(prefix, takeDate), last+1)
}

// Sequence extrae la secuencia numérica de un código con el prefijo anual dado.
func Sequence(code, yearPrefix string) (int, bool) {
	if !strings.HasPrefix(code, yearPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(code, yearPrefix))
	if err != nil {
		return 0, false
	}
	return n, true
}
