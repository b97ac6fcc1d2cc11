package db

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Placeholder renders the bind parameter for the 1-based position n.
type Placeholder func(n int) string

// Dollar renders Postgres-style placeholders ($1, $2, ...).
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question renders SQLite-style placeholders.
func Question(int) string { return "?" }

// UpsertConfig defines the parameters for a single-row upsert.
type UpsertConfig struct {
	Table        string   // target table (e.g., "places")
	Columns      []string // all columns being inserted
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns
}

// BuildUpsert renders INSERT ... ON CONFLICT (keys) DO UPDATE SET col =
// EXCLUDED.col. The statement is valid for both Postgres and SQLite. When no
// column is left to update it renders DO NOTHING.
func BuildUpsert(cfg UpsertConfig, ph Placeholder) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: upsert: no conflict keys specified")
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		conflictSet := make(map[string]bool, len(cfg.ConflictKeys))
		for _, k := range cfg.ConflictKeys {
			conflictSet[k] = true
		}
		for _, c := range cfg.Columns {
			if !conflictSet[c] {
				updateCols = append(updateCols, c)
			}
		}
	}

	action := "DO NOTHING"
	if len(updateCols) > 0 {
		setClauses := make([]string, len(updateCols))
		for i, col := range updateCols {
			q := pgx.Identifier{col}.Sanitize()
			setClauses[i] = fmt.Sprintf("%s = EXCLUDED.%s", q, q)
		}
		action = "DO UPDATE SET " + strings.Join(setClauses, ", ")
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) %s",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		placeholders(len(cfg.Columns), ph),
		quoteAndJoin(cfg.ConflictKeys),
		action,
	), nil
}

// MustBuildUpsert is BuildUpsert for statically known configs.
func MustBuildUpsert(cfg UpsertConfig, ph Placeholder) string {
	sql, err := BuildUpsert(cfg, ph)
	if err != nil {
		panic(err)
	}
	return sql
}

// BuildInsert renders a plain single-row INSERT.
func BuildInsert(table string, columns []string, ph Placeholder) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		sanitizeTable(table),
		quoteAndJoin(columns),
		placeholders(len(columns), ph),
	)
}

// sanitizeTable handles schema-qualified table names like "public.places".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int, ph Placeholder) string {
	out := make([]string, n)
	for i := range out {
		out[i] = ph(i + 1)
	}
	return strings.Join(out, ", ")
}
