// migrate aplica las migraciones SQL embebidas (goose) y termina.
//
// Uso: go run ./cmd/migrate [up|down|version]
// Sin argumento aplica las pendientes (up); down revierte la última.
// Usa la misma configuración que la API (DATABASE_URL o DB_HOST, DB_PORT, ...).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/TienNguyen2803/O-M-Inventory-sub001/internal/infrastructure/postgres"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/pkg/config"
	"github.com/TienNguyen2803/O-M-Inventory-sub001/pkg/logger"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		os.Exit(1)
	}
	defer pool.Close()

	mlog := log.Component("migrate")
	switch cmd {
	case "up":
		n, err := postgres.Migrate(ctx, pool, mlog)
		if err != nil {
			log.Error().Err(err).Msg("migraciones")
			os.Exit(1)
		}
		log.Info().Int("applied", n).Msg("migraciones al día")
	case "down":
		if err := postgres.RollbackLast(ctx, pool, mlog); err != nil {
			log.Error().Err(err).Msg("revertir migración")
			os.Exit(1)
		}
	case "version":
		v, err := postgres.MigrationVersion(ctx, pool)
		if err != nil {
			log.Error().Err(err).Msg("versión de migraciones")
			os.Exit(1)
		}
		fmt.Println(v)
	default:
		fmt.Fprintf(os.Stderr, "Comando desconocido %q (up, down, version)\n", cmd)
		os.Exit(2)
	}
}
