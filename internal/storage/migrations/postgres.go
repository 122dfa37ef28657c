package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"rep-protocol/internal/storage/postgres"
)

// RunPostgresMigrations applies the embedded schema. Every file uses
// IF NOT EXISTS, so running it against an existing database is a no-op.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	paths, err := sqlFiles(PostgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, path := range paths {
		data, err := fs.ReadFile(PostgresFS, path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("apply %s: %w", path, err)
		}
	}
	return nil
}
