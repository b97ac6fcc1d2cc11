package ingest

import "github.com/rotisserie/eris"

// FailurePolicy decides what happens to a query when one of its records
// fails to persist.
type FailurePolicy string

const (
	// RollbackQuery discards every record of the query and marks it failed.
	RollbackQuery FailurePolicy = "rollback_query"
	// SkipPlace rolls back only the failing record and commits the rest.
	SkipPlace FailurePolicy = "skip_place"
)

// ParseFailurePolicy maps a configured name to a policy. The empty string
// selects RollbackQuery.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", RollbackQuery:
		return RollbackQuery, nil
	case SkipPlace:
		return SkipPlace, nil
	default:
		return "", eris.Errorf("ingest: unknown failure policy %q", s)
	}
}
