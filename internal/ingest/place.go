package ingest

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/places-ingest/internal/model"
	"github.com/sells-group/places-ingest/internal/normalize"
	"github.com/sells-group/places-ingest/internal/store"
	"github.com/sells-group/places-ingest/pkg/gmapsextractor"
)

// aboutCategoriesSection names the about section created for categorized
// places.
const aboutCategoriesSection = "Categories"

// Options carries the per-request settings that shape what is stored.
type Options struct {
	EnableReviews bool
	MaxReviews    *int
	ReviewsSort   string
}

// Ingestor maps one provider record onto the places schema.
type Ingestor struct {
	newID func() string
}

// NewIngestor returns an Ingestor that mints random UUIDs.
func NewIngestor() *Ingestor {
	return &Ingestor{newID: uuid.NewString}
}

// Ingest stages every row derived from rec in u. Rows replaced on
// re-ingestion (category links, hours, images, about sections, rating
// summaries) are cleared first. Any error leaves u in an unknown state; the
// caller rolls back to its savepoint or the whole unit.
func (in *Ingestor) Ingest(ctx context.Context, u store.Unit, cats *CategoryResolver, rec *gmapsextractor.Place, opts Options) error {
	if rec.PlaceID == "" {
		return ErrMissingPlaceID
	}
	id := rec.PlaceID

	raw, err := rec.RawJSON()
	if err != nil {
		return eris.Wrapf(err, "ingest: encode raw record %s", id)
	}

	place := toPlace(rec)
	if err := u.UpsertPlace(ctx, &place); err != nil {
		return err
	}
	if err := u.UpsertRawPlaceData(ctx, model.RawPlaceData{PlaceID: id, RawData: raw}); err != nil {
		return err
	}
	if err := u.ClearDerived(ctx, id); err != nil {
		return err
	}

	addr := normalize.ParseAddress(rec.FullAddress)
	addr.PlaceID = id
	if err := u.UpsertDetailedAddress(ctx, addr); err != nil {
		return err
	}

	linked, err := cats.Link(ctx, id, normalize.SplitCategories(rec.Categories))
	if err != nil {
		return err
	}

	if opts.EnableReviews {
		cfg, err := json.Marshal(model.ReviewRequestConfig{
			Enabled:    true,
			MaxReviews: opts.MaxReviews,
			Sort:       opts.ReviewsSort,
			Note:       model.ReviewRequestNote,
		})
		if err != nil {
			return eris.Wrap(err, "ingest: marshal review request config")
		}
		if err := u.InsertReviewRequest(ctx, model.ReviewRequest{ID: in.newID(), PlaceID: id, Config: cfg}); err != nil {
			return err
		}
	}

	if linked > 0 {
		about := &model.About{PlaceID: id, SectionID: in.newID(), SectionName: aboutCategoriesSection}
		if err := u.InsertAbout(ctx, about); err != nil {
			return err
		}
	}

	if rec.FeaturedImage != "" {
		img := model.Image{PlaceID: id, About: nilIfEmpty(rec.Categories), Link: rec.FeaturedImage}
		if err := u.InsertImage(ctx, img); err != nil {
			return err
		}
	}

	if summary, ok := ratingSummary(rec); ok {
		summary.ID = in.newID()
		if err := u.InsertRatingSummary(ctx, summary); err != nil {
			return err
		}
	}

	return u.InsertHours(ctx, id, normalize.ParseHours(rec.OpeningHours))
}

// toPlace copies the scalar fields of rec. Empty strings are stored as NULL.
func toPlace(rec *gmapsextractor.Place) model.Place {
	return model.Place{
		PlaceID:             rec.PlaceID,
		Name:                nilIfEmpty(rec.Name),
		Description:         nilIfEmpty(rec.Description()),
		Website:             nilIfEmpty(rec.Website),
		Phone:               nilIfEmpty(rec.Phone),
		IsSpendingOnAds:     rec.IsSpendingOnAds(),
		Rating:              rec.AverageRating,
		ReviewsCount:        rec.ReviewCount,
		MainCategory:        nilIfEmpty(rec.Categories),
		WorkdayTiming:       nilIfEmpty(rec.OpeningHours),
		IsTemporarilyClosed: rec.IsTemporarilyClosed,
		IsPermanentlyClosed: rec.IsPermanentlyClosed,
		Address:             nilIfEmpty(rec.FullAddress),
		PlusCode:            nilIfEmpty(rec.PlusCode),
		Link:                nilIfEmpty(rec.GoogleMapsURL),
		Status:              nilIfEmpty(rec.Status),
		PriceRange:          nilIfEmpty(rec.PriceRange),
		ReviewsLink:         nilIfEmpty(rec.ReviewURL),
		TimeZone:            nilIfEmpty(rec.TimeZone),
		Latitude:            rec.Latitude,
		Longitude:           rec.Longitude,
		CID:                 nilIfEmpty(string(rec.CID)),
		DataID:              nilIfEmpty(string(rec.DataID)),
	}
}

// ratingSummary builds the summary row when the record has a non-zero
// rating, a name or a review URL. The rating is truncated toward zero.
func ratingSummary(rec *gmapsextractor.Place) (model.RatingSummary, bool) {
	hasRating := rec.AverageRating != nil && *rec.AverageRating != 0
	if !hasRating && rec.Name == "" && rec.ReviewURL == "" {
		return model.RatingSummary{}, false
	}

	s := model.RatingSummary{
		PlaceID:    rec.PlaceID,
		Name:       nilIfEmpty(rec.Name),
		ReviewsURL: nilIfEmpty(rec.ReviewURL),
	}
	if hasRating {
		r := int(*rec.AverageRating)
		s.Rating = &r
	}
	return s, true
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
