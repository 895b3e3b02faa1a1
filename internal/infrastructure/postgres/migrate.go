package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/lock"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrate aplica con goose las migraciones embebidas pendientes y devuelve cuántas aplicó.
// Un advisory lock de sesión evita que dos instancias migren a la vez al arrancar.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) (int, error) {
	var applied int
	err := withProvider(pool, func(p *goose.Provider) error {
		results, err := p.Up(ctx)
		for _, r := range results {
			logResult(log, r)
		}
		applied = len(results)
		if err != nil {
			return fmt.Errorf("aplicar migraciones: %w", err)
		}
		return nil
	})
	return applied, err
}

// RollbackLast revierte la última migración aplicada (sección "+goose Down").
func RollbackLast(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error {
	return withProvider(pool, func(p *goose.Provider) error {
		r, err := p.Down(ctx)
		if r != nil {
			logResult(log, r)
		}
		if err != nil {
			return fmt.Errorf("revertir migración: %w", err)
		}
		return nil
	})
}

// MigrationVersion versión aplicada más reciente (0 si no hay ninguna).
func MigrationVersion(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var v int64
	err := withProvider(pool, func(p *goose.Provider) error {
		var err error
		v, err = p.GetDBVersion(ctx)
		return err
	})
	return v, err
}

func withProvider(pool *pgxpool.Pool, fn func(p *goose.Provider) error) error {
	fsys, err := fs.Sub(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("migraciones embebidas: %w", err)
	}
	locker, err := lock.NewPostgresSessionLocker()
	if err != nil {
		return fmt.Errorf("lock de migraciones: %w", err)
	}

	// database/sql sobre el mismo pool: cerrar db devuelve las conexiones, no cierra el pool.
	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) { _ = db.Close() }(db)

	p, err := goose.NewProvider(goose.DialectPostgres, db, fsys, goose.WithSessionLocker(locker))
	if err != nil {
		return fmt.Errorf("goose: %w", err)
	}
	return fn(p)
}

func logResult(log zerolog.Logger, r *goose.MigrationResult) {
	ev := log.Info()
	if r.Error != nil {
		ev = log.Error().Err(r.Error)
	}
	ev.Str("migration", r.Source.Path).
		Int64("version", r.Source.Version).
		Str("direction", r.Direction).
		Dur("duration", r.Duration).
		Msg("migración")
}
