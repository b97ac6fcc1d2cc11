package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/places-ingest/internal/db"
	"github.com/sells-group/places-ingest/internal/model"
)

var placeColumns = []string{
	"place_id", "name", "description", "website", "phone", "is_spending_on_ads",
	"rating", "reviews_count", "main_category", "workday_timing",
	"is_temporarily_closed", "is_permanently_closed", "address", "plus_code",
	"link", "status", "price_range", "reviews_link", "time_zone",
	"latitude", "longitude", "cid", "data_id", "created_at", "updated_at",
}

// placeUpdateColumns are overwritten when a place is ingested again.
// created_at keeps its first value.
func placeUpdateColumns() []string {
	var cols []string
	for _, c := range placeColumns {
		if c == "place_id" || c == "created_at" {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

func placeValues(p *model.Place) []any {
	return []any{
		p.PlaceID, p.Name, p.Description, p.Website, p.Phone, p.IsSpendingOnAds,
		p.Rating, p.ReviewsCount, p.MainCategory, p.WorkdayTiming,
		p.IsTemporarilyClosed, p.IsPermanentlyClosed, p.Address, p.PlusCode,
		p.Link, p.Status, p.PriceRange, p.ReviewsLink, p.TimeZone,
		p.Latitude, p.Longitude, p.CID, p.DataID, p.CreatedAt, p.UpdatedAt,
	}
}

func placeDest(p *model.Place) []any {
	return []any{
		&p.PlaceID, &p.Name, &p.Description, &p.Website, &p.Phone, &p.IsSpendingOnAds,
		&p.Rating, &p.ReviewsCount, &p.MainCategory, &p.WorkdayTiming,
		&p.IsTemporarilyClosed, &p.IsPermanentlyClosed, &p.Address, &p.PlusCode,
		&p.Link, &p.Status, &p.PriceRange, &p.ReviewsLink, &p.TimeZone,
		&p.Latitude, &p.Longitude, &p.CID, &p.DataID, &p.CreatedAt, &p.UpdatedAt,
	}
}

// dialect holds the statements rendered for one database engine.
type dialect struct {
	name    string
	jsonArg func(json.RawMessage) any

	upsertPlace         string
	upsertRaw           string
	upsertAddress       string
	clearDerived        []string
	findCategory        string
	createCategory      string
	linkCategory        string
	insertReviewRequest string
	insertRatingSummary string
	insertAbout         string
	insertImage         string
	insertHour          string

	selectPlace      string
	selectAddress    string
	selectCategories string
	selectHours      string

	migrationDir    string
	ledgerDDL       string
	recordMigration string
}

func newDialect(name string, ph db.Placeholder, jsonArg func(json.RawMessage) any) *dialect {
	p1 := ph(1)
	deletes := make([]string, 0, 5)
	for _, table := range []string{"place_categories", "hours", "images", "about", "rating_summaries"} {
		deletes = append(deletes, "DELETE FROM "+table+" WHERE place_id = "+p1)
	}
	return &dialect{
		name:    name,
		jsonArg: jsonArg,

		upsertPlace: db.MustBuildUpsert(db.UpsertConfig{
			Table:        "places",
			Columns:      placeColumns,
			ConflictKeys: []string{"place_id"},
			UpdateCols:   placeUpdateColumns(),
		}, ph),
		upsertRaw: db.MustBuildUpsert(db.UpsertConfig{
			Table:        "raw_place_data",
			Columns:      []string{"place_id", "raw_data"},
			ConflictKeys: []string{"place_id"},
		}, ph),
		upsertAddress: db.MustBuildUpsert(db.UpsertConfig{
			Table:        "detailed_address",
			Columns:      []string{"place_id", "street", "city", "state", "postal_code", "country_code"},
			ConflictKeys: []string{"place_id"},
		}, ph),
		clearDerived:   deletes,
		findCategory:   "SELECT id FROM categories WHERE name = " + p1,
		createCategory: "INSERT INTO categories (name) VALUES (" + p1 + ") ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name RETURNING id",
		linkCategory: db.MustBuildUpsert(db.UpsertConfig{
			Table:        "place_categories",
			Columns:      []string{"place_id", "category_id"},
			ConflictKeys: []string{"place_id", "category_id"},
		}, ph),
		insertReviewRequest: db.BuildInsert("review_requests", []string{"id", "place_id", "config", "requested_at"}, ph),
		insertRatingSummary: db.BuildInsert("rating_summaries", []string{"id", "place_id", "rating", "name", "reviews_url"}, ph),
		insertAbout:         db.BuildInsert("about", []string{"place_id", "section_id", "section_name"}, ph) + " RETURNING id",
		insertImage:         db.BuildInsert("images", []string{"place_id", "about", "link"}, ph),
		insertHour:          db.BuildInsert("hours", []string{"place_id", "day", "open_time", "close_time"}, ph),

		selectPlace:   "SELECT " + strings.Join(placeColumns, ", ") + " FROM places WHERE place_id = " + p1,
		selectAddress: "SELECT place_id, street, city, state, postal_code, country_code FROM detailed_address WHERE place_id = " + p1,
		selectCategories: "SELECT c.id, c.name FROM categories c " +
			"JOIN place_categories pc ON pc.category_id = c.id " +
			"WHERE pc.place_id = " + p1 + " ORDER BY c.name",
		selectHours: "SELECT id, place_id, day, open_time, close_time FROM hours WHERE place_id = " + p1 + " ORDER BY id",

		migrationDir:    "migrations/" + name,
		recordMigration: "INSERT INTO schema_migrations (filename) VALUES (" + p1 + ")",
	}
}

type scannable interface {
	Scan(dest ...any) error
}

type rowIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// querier is the read side shared by pools, databases and transactions.
type querier interface {
	queryRow(ctx context.Context, sql string, args ...any) scannable
	query(ctx context.Context, sql string, args ...any) (rowIter, error)
}

// txConn is the dialect-specific transaction a unit runs on.
type txConn interface {
	querier
	exec(ctx context.Context, sql string, args ...any) error
	commit(ctx context.Context) error
	rollback(ctx context.Context) error
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// unit implements Unit on top of a txConn.
type unit struct {
	d  *dialect
	tx txConn
}

func (u *unit) UpsertPlace(ctx context.Context, p *model.Place) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return eris.Wrapf(u.tx.exec(ctx, u.d.upsertPlace, placeValues(p)...), "%s: upsert place %s", u.d.name, p.PlaceID)
}

func (u *unit) UpsertRawPlaceData(ctx context.Context, raw model.RawPlaceData) error {
	err := u.tx.exec(ctx, u.d.upsertRaw, raw.PlaceID, u.d.jsonArg(raw.RawData))
	return eris.Wrapf(err, "%s: upsert raw place data %s", u.d.name, raw.PlaceID)
}

func (u *unit) UpsertDetailedAddress(ctx context.Context, a model.DetailedAddress) error {
	err := u.tx.exec(ctx, u.d.upsertAddress, a.PlaceID, a.Street, a.City, a.State, a.PostalCode, a.CountryCode)
	return eris.Wrapf(err, "%s: upsert detailed address %s", u.d.name, a.PlaceID)
}

func (u *unit) ClearDerived(ctx context.Context, placeID string) error {
	for _, stmt := range u.d.clearDerived {
		if err := u.tx.exec(ctx, stmt, placeID); err != nil {
			return eris.Wrapf(err, "%s: clear derived rows %s", u.d.name, placeID)
		}
	}
	return nil
}

func (u *unit) FindCategory(ctx context.Context, name string) (int64, bool, error) {
	var id int64
	err := u.tx.queryRow(ctx, u.d.findCategory, name).Scan(&id)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "%s: find category %q", u.d.name, name)
	}
	return id, true, nil
}

func (u *unit) CreateCategory(ctx context.Context, name string) (int64, error) {
	var id int64
	if err := u.tx.queryRow(ctx, u.d.createCategory, name).Scan(&id); err != nil {
		return 0, eris.Wrapf(err, "%s: create category %q", u.d.name, name)
	}
	return id, nil
}

func (u *unit) LinkCategory(ctx context.Context, placeID string, categoryID int64) error {
	err := u.tx.exec(ctx, u.d.linkCategory, placeID, categoryID)
	return eris.Wrapf(err, "%s: link category %d to %s", u.d.name, categoryID, placeID)
}

func (u *unit) InsertReviewRequest(ctx context.Context, r model.ReviewRequest) error {
	if r.RequestedAt.IsZero() {
		r.RequestedAt = time.Now().UTC()
	}
	err := u.tx.exec(ctx, u.d.insertReviewRequest, r.ID, r.PlaceID, u.d.jsonArg(r.Config), r.RequestedAt)
	return eris.Wrapf(err, "%s: insert review request %s", u.d.name, r.PlaceID)
}

func (u *unit) InsertRatingSummary(ctx context.Context, s model.RatingSummary) error {
	err := u.tx.exec(ctx, u.d.insertRatingSummary, s.ID, s.PlaceID, s.Rating, s.Name, s.ReviewsURL)
	return eris.Wrapf(err, "%s: insert rating summary %s", u.d.name, s.PlaceID)
}

func (u *unit) InsertAbout(ctx context.Context, a *model.About) error {
	err := u.tx.queryRow(ctx, u.d.insertAbout, a.PlaceID, a.SectionID, a.SectionName).Scan(&a.ID)
	return eris.Wrapf(err, "%s: insert about %s", u.d.name, a.PlaceID)
}

func (u *unit) InsertImage(ctx context.Context, img model.Image) error {
	err := u.tx.exec(ctx, u.d.insertImage, img.PlaceID, img.About, img.Link)
	return eris.Wrapf(err, "%s: insert image %s", u.d.name, img.PlaceID)
}

func (u *unit) InsertHours(ctx context.Context, placeID string, hours []model.Hour) error {
	for _, h := range hours {
		if err := u.tx.exec(ctx, u.d.insertHour, placeID, h.Day, h.OpenTime, h.CloseTime); err != nil {
			return eris.Wrapf(err, "%s: insert hours %s %s", u.d.name, placeID, h.Day)
		}
	}
	return nil
}

func (u *unit) Savepoint(ctx context.Context, name string) error {
	err := u.tx.exec(ctx, "SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return eris.Wrapf(err, "%s: savepoint %s", u.d.name, name)
}

func (u *unit) RollbackTo(ctx context.Context, name string) error {
	err := u.tx.exec(ctx, "ROLLBACK TO SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return eris.Wrapf(err, "%s: rollback to savepoint %s", u.d.name, name)
}

func (u *unit) Release(ctx context.Context, name string) error {
	err := u.tx.exec(ctx, "RELEASE SAVEPOINT "+pgx.Identifier{name}.Sanitize())
	return eris.Wrapf(err, "%s: release savepoint %s", u.d.name, name)
}

func (u *unit) Commit(ctx context.Context) error {
	return eris.Wrapf(u.tx.commit(ctx), "%s: commit", u.d.name)
}

func (u *unit) Rollback(ctx context.Context) error {
	return eris.Wrapf(u.tx.rollback(ctx), "%s: rollback", u.d.name)
}

// getPlace reads a place and its sub-records through q.
func getPlace(ctx context.Context, q querier, d *dialect, placeID string) (*model.PlaceDetail, error) {
	var pd model.PlaceDetail
	err := q.queryRow(ctx, d.selectPlace, placeID).Scan(placeDest(&pd.Place)...)
	if isNoRows(err) {
		return nil, eris.Wrapf(ErrNotFound, "%s: place %s", d.name, placeID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s: get place %s", d.name, placeID)
	}

	var addr model.DetailedAddress
	err = q.queryRow(ctx, d.selectAddress, placeID).
		Scan(&addr.PlaceID, &addr.Street, &addr.City, &addr.State, &addr.PostalCode, &addr.CountryCode)
	switch {
	case isNoRows(err):
	case err != nil:
		return nil, eris.Wrapf(err, "%s: get detailed address %s", d.name, placeID)
	default:
		pd.DetailedAddress = &addr
	}

	pd.Categories = []model.Category{}
	rows, err := q.query(ctx, d.selectCategories, placeID)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: get categories %s", d.name, placeID)
	}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			rows.Close()
			return nil, eris.Wrapf(err, "%s: scan category", d.name)
		}
		pd.Categories = append(pd.Categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "%s: iterate categories", d.name)
	}

	pd.Hours = []model.Hour{}
	rows, err = q.query(ctx, d.selectHours, placeID)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: get hours %s", d.name, placeID)
	}
	defer rows.Close()
	for rows.Next() {
		var h model.Hour
		if err := rows.Scan(&h.ID, &h.PlaceID, &h.Day, &h.OpenTime, &h.CloseTime); err != nil {
			return nil, eris.Wrapf(err, "%s: scan hour", d.name)
		}
		pd.Hours = append(pd.Hours, h)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "%s: iterate hours", d.name)
	}
	return &pd, nil
}
