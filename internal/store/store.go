// Package store persists ingested places to Postgres or SQLite.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/places-ingest/internal/model"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("store: not found")

// Store defines the persistence interface for the ingest service.
type Store interface {
	// Begin opens a unit of work. The caller must Commit or Rollback it.
	Begin(ctx context.Context) (Unit, error)

	// GetPlace reads a stored place with its address, categories and hours.
	GetPlace(ctx context.Context, placeID string) (*model.PlaceDetail, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Unit is one database transaction. Statements run immediately, so rows
// written earlier in the unit are visible to later reads in the same unit.
type Unit interface {
	// Places
	UpsertPlace(ctx context.Context, p *model.Place) error
	UpsertRawPlaceData(ctx context.Context, raw model.RawPlaceData) error
	UpsertDetailedAddress(ctx context.Context, addr model.DetailedAddress) error
	// ClearDerived deletes the rows that re-ingestion replaces: category
	// links, hours, images, about sections and rating summaries.
	ClearDerived(ctx context.Context, placeID string) error

	// Categories
	FindCategory(ctx context.Context, name string) (int64, bool, error)
	CreateCategory(ctx context.Context, name string) (int64, error)
	LinkCategory(ctx context.Context, placeID string, categoryID int64) error

	// Sub-records
	InsertReviewRequest(ctx context.Context, req model.ReviewRequest) error
	InsertRatingSummary(ctx context.Context, summary model.RatingSummary) error
	InsertAbout(ctx context.Context, about *model.About) error
	InsertImage(ctx context.Context, img model.Image) error
	InsertHours(ctx context.Context, placeID string, hours []model.Hour) error

	// Savepoints
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error

	// Commit and Rollback end the unit. Rollback after Commit is a no-op.
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
