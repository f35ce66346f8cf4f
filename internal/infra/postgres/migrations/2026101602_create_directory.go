package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
)

// content_instances and tenants belong to neighbouring services; the tables
// are created here so a single database can host a full deployment.
//
//go:embed 2026101602_create_directory.sql
var createDirectorySQL string

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, createDirectorySQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS content_instances, tenants`)
			return err
		},
	)
}
