package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"vet-clinic-records/migrations"
)

// NewMigrator arma el provider de goose sobre los .sql embebidos.
func NewMigrator(db *sql.DB) (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return p, nil
}

// MigrateUp aplica todas las migraciones pendientes y devuelve cuántas corrió.
func MigrateUp(ctx context.Context, db *sql.DB) (int, error) {
	p, err := NewMigrator(db)
	if err != nil {
		return 0, err
	}
	res, err := p.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("goose up: %w", err)
	}
	return len(res), nil
}
