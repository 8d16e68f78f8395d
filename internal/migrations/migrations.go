// AngelaMos | 2026
// migrations.go

package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
)

const (
	dialect   = "postgres"
	tableName = "schema_migrations"
)

//go:embed sql/*.sql
var files embed.FS

func Source() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: files,
		Root:       "sql",
	}
}

// Up applies every pending migration and returns how many ran.
func Up(db *sql.DB) (int, error) {
	migrate.SetTable(tableName)

	n, err := migrate.Exec(db, dialect, Source(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}
	return n, nil
}

// Down rolls back at most steps migrations. Zero rolls back everything.
func Down(db *sql.DB, steps int) (int, error) {
	migrate.SetTable(tableName)

	n, err := migrate.ExecMax(db, dialect, Source(), migrate.Down, steps)
	if err != nil {
		return n, fmt.Errorf("rollback migrations: %w", err)
	}
	return n, nil
}

// Pending lists migration ids that have not been applied yet.
func Pending(db *sql.DB) ([]string, error) {
	migrate.SetTable(tableName)

	planned, _, err := migrate.PlanMigration(db, dialect, Source(), migrate.Up, 0)
	if err != nil {
		return nil, fmt.Errorf("plan migrations: %w", err)
	}

	ids := make([]string, 0, len(planned))
	for _, m := range planned {
		ids = append(ids, m.Id)
	}
	return ids, nil
}
