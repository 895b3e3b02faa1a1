package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Tipos de fila del CSV (columna "tipo").
const (
	kindUnit     = "UNIDAD"
	kindLocation = "UBICACION"
	kindMaterial = "MATERIAL"
	kindBalance  = "SALDO"
)

// openingReference referencia del kardex para los saldos iniciales.
const openingReference = "SALDO-INICIAL"

type unitRow struct{ Code, Name string }

type locationRow struct{ Code, Name string }

type materialRow struct{ Code, Name, Unit string }

type balanceRow struct {
	Material string
	Location string
	Quantity decimal.Decimal
}

type masterData struct {
	Units     []unitRow
	Locations []locationRow
	Materials []materialRow
	Balances  []balanceRow
}

// parseMaster lee el CSV: tipo;codigo;nombre;unidad;ubicacion;cantidad.
// La primera fila es encabezado. Un código repetido o una referencia desconocida es error.
func parseMaster(r io.Reader) (*masterData, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("CSV vacío")
		}
		return nil, err
	}

	d := &masterData{}
	units := map[string]bool{}
	locations := map[string]bool{}
	materials := map[string]bool{}
	balances := map[string]bool{}

	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
		col := func(i int) string {
			if i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}
		kind := strings.ToUpper(col(0))
		code := col(1)
		if kind == "" {
			continue
		}
		switch kind {
		case kindUnit:
			if code == "" || units[code] {
				return nil, fmt.Errorf("línea %d: unidad vacía o repetida %q", line, code)
			}
			units[code] = true
			d.Units = append(d.Units, unitRow{Code: code, Name: col(2)})
		case kindLocation:
			if code == "" || locations[code] {
				return nil, fmt.Errorf("línea %d: ubicación vacía o repetida %q", line, code)
			}
			locations[code] = true
			d.Locations = append(d.Locations, locationRow{Code: code, Name: col(2)})
		case kindMaterial:
			if code == "" || materials[code] {
				return nil, fmt.Errorf("línea %d: material vacío o repetido %q", line, code)
			}
			unit := col(3)
			if unit != "" && !units[unit] {
				return nil, fmt.Errorf("línea %d: unidad %q no declarada", line, unit)
			}
			materials[code] = true
			d.Materials = append(d.Materials, materialRow{Code: code, Name: col(2), Unit: unit})
		case kindBalance:
			loc := col(4)
			if !materials[code] {
				return nil, fmt.Errorf("línea %d: material %q no declarado", line, code)
			}
			if !locations[loc] {
				return nil, fmt.Errorf("línea %d: ubicación %q no declarada", line, loc)
			}
			qty, err := decimal.NewFromString(strings.ReplaceAll(col(5), ",", "."))
			if err != nil || !qty.IsPositive() {
				return nil, fmt.Errorf("línea %d: cantidad inválida %q", line, col(5))
			}
			key := code + "|" + loc
			if balances[key] {
				return nil, fmt.Errorf("línea %d: saldo repetido para %s en %s", line, code, loc)
			}
			balances[key] = true
			d.Balances = append(d.Balances, balanceRow{Material: code, Location: loc, Quantity: qty})
		default:
			return nil, fmt.Errorf("línea %d: tipo desconocido %q", line, kind)
		}
	}
	return d, nil
}

// writeSQL escribe el script. Los saldos crean ítem de bodega, suman el stock del material
// y dejan el kardex inbound correspondiente, así el stock sigue igual a la suma de ítems.
func writeSQL(w io.Writer, d *masterData) error {
	var b strings.Builder
	b.WriteString("-- Datos maestros y saldos iniciales\n")
	b.WriteString("-- Generado por cmd/seed_master\n\n")
	b.WriteString("BEGIN;\n\n")

	if len(d.Units) > 0 {
		b.WriteString("-- 1. Unidades\n")
		for _, u := range d.Units {
			fmt.Fprintf(&b, "INSERT INTO units (id, code, name) VALUES (gen_random_uuid(), '%s', '%s')\n", escapeSQL(u.Code), escapeSQL(u.Name))
			b.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name;\n")
		}
		b.WriteString("\n")
	}

	if len(d.Locations) > 0 {
		b.WriteString("-- 2. Ubicaciones\n")
		for _, l := range d.Locations {
			fmt.Fprintf(&b, "INSERT INTO warehouse_locations (id, code) VALUES (gen_random_uuid(), '%s')\n", escapeSQL(l.Code))
			b.WriteString("ON CONFLICT (code) DO NOTHING;\n")
		}
		b.WriteString("\n")
	}

	if len(d.Materials) > 0 {
		b.WriteString("-- 3. Materiales\n")
		for _, m := range d.Materials {
			unit := "NULL"
			if m.Unit != "" {
				unit = fmt.Sprintf("(SELECT id FROM units WHERE code = '%s')", escapeSQL(m.Unit))
			}
			fmt.Fprintf(&b, "INSERT INTO materials (id, code, name, unit_id) VALUES (gen_random_uuid(), '%s', '%s', %s)\n",
				escapeSQL(m.Code), escapeSQL(m.Name), unit)
			b.WriteString("ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, unit_id = EXCLUDED.unit_id;\n")
		}
		b.WriteString("\n")
	}

	if len(d.Balances) > 0 {
		balances := append([]balanceRow(nil), d.Balances...)
		sort.Slice(balances, func(i, j int) bool {
			if balances[i].Material != balances[j].Material {
				return balances[i].Material < balances[j].Material
			}
			return balances[i].Location < balances[j].Location
		})
		b.WriteString("-- 4. Saldos iniciales (ítem + stock + kardex)\n")
		for _, s := range balances {
			mat := fmt.Sprintf("(SELECT id FROM materials WHERE code = '%s')", escapeSQL(s.Material))
			loc := fmt.Sprintf("(SELECT id FROM warehouse_locations WHERE code = '%s')", escapeSQL(s.Location))
			qty := s.Quantity.String()
			fmt.Fprintf(&b, "INSERT INTO warehouse_items (location_id, material_id, quantity) VALUES (%s, %s, %s)\n", loc, mat, qty)
			b.WriteString("ON CONFLICT (location_id, material_id) DO UPDATE SET quantity = warehouse_items.quantity + EXCLUDED.quantity, updated_at = NOW();\n")
			fmt.Fprintf(&b, "UPDATE materials SET stock = stock + %s, updated_at = NOW() WHERE code = '%s';\n", qty, escapeSQL(s.Material))
			fmt.Fprintf(&b, "INSERT INTO inventory_logs (id, material_id, location_id, quantity, type, reference, date, actor)\n")
			fmt.Fprintf(&b, "VALUES (gen_random_uuid(), %s, %s, %s, 'inbound', '%s', NOW(), 'seed_master');\n", mat, loc, qty, openingReference)
		}
		b.WriteString("\n")
	}

	b.WriteString("COMMIT;\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
