package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migration is one idempotent schema step.
type Migration struct {
	Name string
	SQL  string
}

// Migrations returns the embedded migrations ordered by file name.
func Migrations() ([]Migration, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("op=postgres.Migrations: %w", err)
	}
	sort.Strings(names)
	out := make([]Migration, 0, len(names))
	for _, n := range names {
		b, err := migrationFS.ReadFile(n)
		if err != nil {
			return nil, fmt.Errorf("op=postgres.Migrations: %w", err)
		}
		out = append(out, Migration{Name: n, SQL: string(b)})
	}
	return out, nil
}

// Migrate applies every embedded migration on startup. Statements use IF NOT EXISTS so reruns are harmless.
func Migrate(ctx context.Context, pool PgxPool) error {
	ms, err := Migrations()
	if err != nil {
		return err
	}
	slog.Info("starting database migrations", slog.Int("count", len(ms)))
	for _, m := range ms {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			slog.Error("migration failed", slog.String("name", m.Name), slog.Any("error", err))
			return fmt.Errorf("op=postgres.Migrate name=%s: %w", m.Name, err)
		}
		slog.Info("migration completed", slog.String("name", m.Name))
	}
	return nil
}
