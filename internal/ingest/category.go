package ingest

import (
	"context"

	"github.com/sells-group/places-ingest/internal/store"
)

// CategoryResolver maps category names to ids inside one unit of work. Ids
// created earlier in the unit are reused, including across places. Reset
// must be called whenever the unit or a savepoint rolls back, since cached ids
// may then name rows that no longer exist.
type CategoryResolver struct {
	unit  store.Unit
	cache map[string]int64
}

// NewCategoryResolver returns a resolver bound to u.
func NewCategoryResolver(u store.Unit) *CategoryResolver {
	return &CategoryResolver{unit: u, cache: make(map[string]int64)}
}

// Resolve returns the id of the category with exactly this name, creating it
// if needed.
func (r *CategoryResolver) Resolve(ctx context.Context, name string) (int64, error) {
	if id, ok := r.cache[name]; ok {
		return id, nil
	}

	id, ok, err := r.unit.FindCategory(ctx, name)
	if err != nil {
		return 0, err
	}
	if !ok {
		if id, err = r.unit.CreateCategory(ctx, name); err != nil {
			return 0, err
		}
	}
	r.cache[name] = id
	return id, nil
}

// Link resolves every non-empty name and associates it with the place.
// It returns the number of names linked.
func (r *CategoryResolver) Link(ctx context.Context, placeID string, names []string) (int, error) {
	n := 0
	for _, name := range names {
		if name == "" {
			continue
		}
		id, err := r.Resolve(ctx, name)
		if err != nil {
			return n, err
		}
		if err := r.unit.LinkCategory(ctx, placeID, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Reset drops the cache.
func (r *CategoryResolver) Reset() {
	clear(r.cache)
}
