// seed_master genera un script SQL con datos maestros (unidades, ubicaciones, materiales)
// y saldos iniciales a partir de una exportación CSV separada por ';'.
//
// Uso: go run ./cmd/seed_master [ruta/maestros.csv] [salida.sql]
// Por defecto lee maestros.csv y escribe seed_master.sql en la raíz del módulo.
// Las exportaciones de Excel suelen venir en ISO-8859-1; con SEED_CHARSET=utf-8 se lee sin transformar.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

func main() {
	csvPath := "maestros.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	outPath := filepath.Join(findModuleRoot(), "seed_master.sql")
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var in io.Reader = f
	if !strings.EqualFold(os.Getenv("SEED_CHARSET"), "utf-8") {
		in = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}

	data, err := parseMaster(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, data); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d unidades, %d ubicaciones, %d materiales, %d saldos\n",
		outPath, len(data.Units), len(data.Locations), len(data.Materials), len(data.Balances))
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
