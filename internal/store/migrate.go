package store

import (
	"context"
	"embed"
	"io/fs"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// migrationFiles lists the .sql files in dir in lexicographic order.
func migrationFiles(dir string) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, dir)
	if err != nil {
		return nil, eris.Wrapf(err, "store: read migration dir %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// migrate applies every migration of the dialect not yet recorded in
// schema_migrations. It runs inside tx; the caller commits.
func migrate(ctx context.Context, d *dialect, tx txConn) error {
	log := zap.L().With(zap.String("component", "store.migrate"), zap.String("driver", d.name))

	if err := tx.exec(ctx, d.ledgerDDL); err != nil {
		return eris.Wrapf(err, "%s: ensure migration table", d.name)
	}

	applied, err := appliedMigrations(ctx, d, tx)
	if err != nil {
		return err
	}

	names, err := migrationFiles(d.migrationDir)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}

		data, err := migrationFS.ReadFile(d.migrationDir + "/" + name)
		if err != nil {
			return eris.Wrapf(err, "%s: read migration %s", d.name, name)
		}

		log.Info("applying migration", zap.String("file", name))

		if err := tx.exec(ctx, string(data)); err != nil {
			return eris.Wrapf(err, "%s: apply migration %s", d.name, name)
		}
		if err := tx.exec(ctx, d.recordMigration, name); err != nil {
			return eris.Wrapf(err, "%s: record migration %s", d.name, name)
		}

		log.Info("migration applied", zap.String("file", name))
	}
	return nil
}

// appliedMigrations returns the set of already-applied migration filenames.
func appliedMigrations(ctx context.Context, d *dialect, q querier) (map[string]bool, error) {
	rows, err := q.query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrapf(err, "%s: query applied migrations", d.name)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrapf(err, "%s: scan migration row", d.name)
		}
		applied[name] = true
	}
	return applied, eris.Wrapf(rows.Err(), "%s: iterate migrations", d.name)
}
