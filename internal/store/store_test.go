package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/places-ingest/internal/model"
)

func strp(s string) *string { return &s }

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// stagePlace writes a minimal place in its own unit.
func stagePlace(t *testing.T, s Store, p *model.Place) {
	t.Helper()
	ctx := context.Background()
	u, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, u.UpsertPlace(ctx, p))
	require.NoError(t, u.UpsertRawPlaceData(ctx, model.RawPlaceData{
		PlaceID: p.PlaceID,
		RawData: json.RawMessage(`{"place_id":"` + p.PlaceID + `"}`),
	}))
	require.NoError(t, u.Commit(ctx))
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("UpsertAndGetPlace", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rating := 4.6
		count := 120
		lat, lon := 40.7, -74.0
		stagePlace(t, s, &model.Place{
			PlaceID:         "ChIJ1",
			Name:            strp("Blue Bottle"),
			IsSpendingOnAds: true,
			Rating:          &rating,
			ReviewsCount:    &count,
			MainCategory:    strp("Cafe, Coffee shop"),
			Latitude:        &lat,
			Longitude:       &lon,
			CID:             strp("1234567890123"),
		})

		got, err := s.GetPlace(ctx, "ChIJ1")
		require.NoError(t, err)
		assert.Equal(t, "ChIJ1", got.PlaceID)
		require.NotNil(t, got.Name)
		assert.Equal(t, "Blue Bottle", *got.Name)
		assert.True(t, got.IsSpendingOnAds)
		require.NotNil(t, got.Rating)
		assert.InDelta(t, 4.6, *got.Rating, 0.0001)
		require.NotNil(t, got.ReviewsCount)
		assert.Equal(t, 120, *got.ReviewsCount)
		assert.Nil(t, got.Website)
		assert.Nil(t, got.DetailedAddress)
		assert.Empty(t, got.Categories)
		assert.NotNil(t, got.Categories)
		assert.Empty(t, got.Hours)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		stagePlace(t, s, &model.Place{PlaceID: "ChIJ1", Name: strp("Old Name")})
		first, err := s.GetPlace(ctx, "ChIJ1")
		require.NoError(t, err)

		stagePlace(t, s, &model.Place{PlaceID: "ChIJ1", Name: strp("New Name")})
		second, err := s.GetPlace(ctx, "ChIJ1")
		require.NoError(t, err)

		assert.Equal(t, "New Name", *second.Name)
		assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
		assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
	})

	t.Run("GetPlaceNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetPlace(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("CategoriesAndHours", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, u.UpsertPlace(ctx, &model.Place{PlaceID: "ChIJ1"}))

		_, ok, err := u.FindCategory(ctx, "Cafe")
		require.NoError(t, err)
		assert.False(t, ok)

		cafe, err := u.CreateCategory(ctx, "Cafe")
		require.NoError(t, err)

		found, ok, err := u.FindCategory(ctx, "Cafe")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, cafe, found)

		again, err := u.CreateCategory(ctx, "Cafe")
		require.NoError(t, err)
		assert.Equal(t, cafe, again)

		bakery, err := u.CreateCategory(ctx, "Bakery")
		require.NoError(t, err)

		require.NoError(t, u.LinkCategory(ctx, "ChIJ1", cafe))
		require.NoError(t, u.LinkCategory(ctx, "ChIJ1", cafe))
		require.NoError(t, u.LinkCategory(ctx, "ChIJ1", bakery))

		open := "9:00"
		require.NoError(t, u.InsertHours(ctx, "ChIJ1", []model.Hour{
			{Day: "Mon", OpenTime: &open, CloseTime: "17:00"},
			{Day: "Tue", CloseTime: model.ClosedTime},
		}))
		require.NoError(t, u.UpsertDetailedAddress(ctx, model.DetailedAddress{
			PlaceID: "ChIJ1",
			Street:  strp("1 Main St"),
			City:    strp("Springfield"),
		}))
		require.NoError(t, u.Commit(ctx))

		got, err := s.GetPlace(ctx, "ChIJ1")
		require.NoError(t, err)
		require.Len(t, got.Categories, 2)
		assert.Equal(t, "Bakery", got.Categories[0].Name)
		assert.Equal(t, "Cafe", got.Categories[1].Name)

		require.Len(t, got.Hours, 2)
		assert.Equal(t, "Mon", got.Hours[0].Day)
		require.NotNil(t, got.Hours[0].OpenTime)
		assert.Equal(t, "9:00", *got.Hours[0].OpenTime)
		assert.True(t, got.Hours[1].Closed())

		require.NotNil(t, got.DetailedAddress)
		assert.Equal(t, "Springfield", *got.DetailedAddress.City)
		assert.Nil(t, got.DetailedAddress.State)
	})

	t.Run("RollbackDiscards", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, u.UpsertPlace(ctx, &model.Place{PlaceID: "ChIJ1"}))
		require.NoError(t, u.Rollback(ctx))

		_, err = s.GetPlace(ctx, "ChIJ1")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("RollbackAfterCommitIsNoop", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, u.UpsertPlace(ctx, &model.Place{PlaceID: "ChIJ1"}))
		require.NoError(t, u.Commit(ctx))
		require.NoError(t, u.Rollback(ctx))

		_, err = s.GetPlace(ctx, "ChIJ1")
		require.NoError(t, err)
	})

	t.Run("SavepointRollback", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, u.UpsertPlace(ctx, &model.Place{PlaceID: "kept"}))

		require.NoError(t, u.Savepoint(ctx, "place_1"))
		require.NoError(t, u.UpsertPlace(ctx, &model.Place{PlaceID: "dropped"}))
		require.NoError(t, u.RollbackTo(ctx, "place_1"))
		require.NoError(t, u.Release(ctx, "place_1"))
		require.NoError(t, u.Commit(ctx))

		_, err = s.GetPlace(ctx, "kept")
		require.NoError(t, err)
		_, err = s.GetPlace(ctx, "dropped")
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("ClearDerived", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		u, err := s.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, u.UpsertPlace(ctx, &model.Place{PlaceID: "ChIJ1"}))
		cafe, err := u.CreateCategory(ctx, "Cafe")
		require.NoError(t, err)
		require.NoError(t, u.LinkCategory(ctx, "ChIJ1", cafe))
		require.NoError(t, u.InsertHours(ctx, "ChIJ1", []model.Hour{{Day: "Mon", CloseTime: model.ClosedTime}}))
		require.NoError(t, u.ClearDerived(ctx, "ChIJ1"))
		require.NoError(t, u.Commit(ctx))

		got, err := s.GetPlace(ctx, "ChIJ1")
		require.NoError(t, err)
		assert.Empty(t, got.Categories)
		assert.Empty(t, got.Hours)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
