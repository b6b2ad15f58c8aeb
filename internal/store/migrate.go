package store

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"log/slog"
)

// Schema files live next to this file; embed.FS returns them sorted by
// name, so the numeric prefixes give apply order.
//
//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations applies every embedded .sql file in order. Statements are
// written to be idempotent so restarts are safe.
func RunMigrations(ctx context.Context, p *Postgres, log *slog.Logger) error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		b, err := migrations.ReadFile("migrations/" + e.Name())
		if err != nil {
			return err
		}
		if _, err := p.pool.Exec(ctx, string(b)); err != nil {
			return fmt.Errorf("%s: %w", e.Name(), err)
		}
		log.Info("migration.applied", "file", e.Name())
	}
	return nil
}
