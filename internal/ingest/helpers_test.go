package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/places-ingest/internal/model"
	"github.com/sells-group/places-ingest/internal/store"
	"github.com/sells-group/places-ingest/pkg/gmapsextractor"
	"github.com/sells-group/places-ingest/pkg/gmapsextractor/mocks"
)

// testDB is a migrated SQLite store plus a second handle for assertions.
type testDB struct {
	store.Store
	path string
}

func newTestDB(t *testing.T) *testDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "places.db")
	st, err := store.NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return &testDB{Store: st, path: path}
}

// open returns a second handle on the database file for assertions. Use it
// only when no unit of work is open.
func (d *testDB) open(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sql.Open("sqlite", d.path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck
	return conn
}

func (d *testDB) count(t *testing.T, query string, args ...any) int {
	t.Helper()
	conn := d.open(t)

	var n int
	require.NoError(t, conn.QueryRow(query, args...).Scan(&n))
	return n
}

func decodePlaces(t *testing.T, body string) []gmapsextractor.Place {
	t.Helper()
	var places []gmapsextractor.Place
	require.NoError(t, json.Unmarshal([]byte(body), &places))
	return places
}

func response(t *testing.T, total int, body string) *gmapsextractor.SearchResponse {
	t.Helper()
	return &gmapsextractor.SearchResponse{Total: total, Data: decodePlaces(t, body), HasData: true}
}

func factory(c gmapsextractor.Client) ClientFactory {
	return func(string) gmapsextractor.Client { return c }
}

func newMockSearcher(t *testing.T, st store.Store, opts ...SearcherOption) (*Searcher, *mocks.MockClient) {
	t.Helper()
	client := mocks.NewMockClient(t)
	return NewSearcher(st, factory(client), opts...), client
}

func intp(v int) *int { return &v }

var errInjected = errors.New("injected failure")

// faultyStore wraps a store so that units fail on a chosen place or on commit.
type faultyStore struct {
	store.Store
	failPlace  string
	failCommit bool
}

func (s *faultyStore) Begin(ctx context.Context) (store.Unit, error) {
	u, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &faultyUnit{Unit: u, s: s}, nil
}

type faultyUnit struct {
	store.Unit
	s *faultyStore
}

// InsertHours is the last write of a record, so a failure here discards
// everything the record staged, categories included.
func (u *faultyUnit) InsertHours(ctx context.Context, placeID string, hours []model.Hour) error {
	if placeID == u.s.failPlace {
		return errInjected
	}
	return u.Unit.InsertHours(ctx, placeID, hours)
}

func (u *faultyUnit) Commit(ctx context.Context) error {
	if u.s.failCommit {
		return errInjected
	}
	return u.Unit.Commit(ctx)
}
