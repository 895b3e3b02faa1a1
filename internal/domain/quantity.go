package domain

import "github.com/shopspring/decimal"

// QuantityScale decimales que guardan las columnas NUMERIC(18, 4) de cantidades.
const QuantityScale = 4

// ValidScale indica si q cabe en QuantityScale decimales sin redondeo (ceros a la derecha se aceptan).
func ValidScale(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale))
}
