package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/places-ingest/internal/metrics"
	"github.com/sells-group/places-ingest/internal/store"
	"github.com/sells-group/places-ingest/pkg/gmapsextractor"
)

// QueryStatus is the lifecycle state of one query in a batch.
type QueryStatus string

const (
	StatusRunning   QueryStatus = "running"
	StatusCompleted QueryStatus = "completed"
	StatusFailed    QueryStatus = "failed"
)

// NoResultsMessage is the per-query error reported when the provider call fails
// or returns no data.
const NoResultsMessage = "No results found or API error"

// Zoom levels accepted by the provider.
const (
	MinZoom = 0
	MaxZoom = 21
)

// SearchRequest is the inbound batch.
type SearchRequest struct {
	Queries                 []string `json:"queries"`
	APIKey                  string   `json:"api_key"`
	Coordinates             string   `json:"coordinates,omitempty"`
	ZoomLevel               *int     `json:"zoom_level,omitempty"`
	Lang                    string   `json:"lang,omitempty"`
	Region                  string   `json:"region,omitempty"`
	MaxResults              *int     `json:"max_results,omitempty"`
	EnableReviewsExtraction bool     `json:"enable_reviews_extraction"`
	MaxReviews              *int     `json:"max_reviews,omitempty"`
	ReviewsSort             string   `json:"reviews_sort,omitempty"`
	FailurePolicy           string   `json:"failure_policy,omitempty"`
}

// SearchResponse is the outcome of a batch. Status is always "completed";
// per-query outcomes live in Results.
type SearchResponse struct {
	Results []QueryResult `json:"results"`
	Status  QueryStatus   `json:"status"`
}

// QueryResult is the outcome of one query. Places holds the raw records that
// were committed.
type QueryResult struct {
	Query        string            `json:"query"`
	Total        *int              `json:"total,omitempty"`
	Places       []json.RawMessage `json:"places,omitzero"`
	PlacesStored *int              `json:"places_stored,omitempty"`
	Skipped      []SkippedPlace    `json:"skipped,omitempty"`
	Error        string            `json:"error,omitempty"`
	Status       QueryStatus       `json:"status"`
}

// SkippedPlace is a record rolled back under the skip_place policy.
type SkippedPlace struct {
	Index   int    `json:"index"`
	PlaceID string `json:"place_id"`
	Error   string `json:"error"`
}

// Defaults fill the optional request fields.
type Defaults struct {
	Coordinates string
	ZoomLevel   int
	Lang        string
	Region      string
	ReviewsSort string
}

// DefaultDefaults returns the built-in request defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Coordinates: "40.6970194,-74.3093048",
		ZoomLevel:   11,
		Lang:        "en",
		Region:      "us",
		ReviewsSort: "newest",
	}
}

// ClientFactory builds a provider client for the caller's API key.
type ClientFactory func(apiKey string) gmapsextractor.Client

// Searcher runs search batches: one provider call and one unit of work per
// query, strictly in order.
type Searcher struct {
	store     store.Store
	newClient ClientFactory
	ingestor  *Ingestor
	policy    FailurePolicy
	defaults  Defaults
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithFailurePolicy sets the policy used when a request does not name one.
func WithFailurePolicy(p FailurePolicy) SearcherOption {
	return func(s *Searcher) { s.policy = p }
}

// WithDefaults overrides the request defaults.
func WithDefaults(d Defaults) SearcherOption {
	return func(s *Searcher) { s.defaults = d }
}

// WithIngestor overrides the record ingestor.
func WithIngestor(in *Ingestor) SearcherOption {
	return func(s *Searcher) { s.ingestor = in }
}

// NewSearcher creates a Searcher over st.
func NewSearcher(st store.Store, newClient ClientFactory, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		store:     st,
		newClient: newClient,
		ingestor:  NewIngestor(),
		policy:    RollbackQuery,
		defaults:  DefaultDefaults(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// params is a validated request.
type params struct {
	location   string
	lang       string
	region     string
	maxResults int
	policy     FailurePolicy
	opts       Options
}

// Search validates req and runs its queries. Only validation failures
// (matching ErrInvalidRequest) and context cancellation are returned as
// errors; provider and persistence failures are reported per query.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	p, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("component", "ingest.search"))
	log.Info("search batch started",
		zap.Int("queries", len(req.Queries)),
		zap.String("location", p.location),
		zap.String("policy", string(p.policy)),
	)

	client := s.newClient(req.APIKey)
	resp := &SearchResponse{Results: make([]QueryResult, 0, len(req.Queries)), Status: StatusCompleted}
	for _, q := range req.Queries {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "ingest: search canceled")
		}
		resp.Results = append(resp.Results, s.runQuery(ctx, client, q, p))
	}

	log.Info("search batch completed", zap.Int("queries", len(req.Queries)))
	return resp, nil
}

func (s *Searcher) validate(req SearchRequest) (params, error) {
	if len(req.Queries) == 0 {
		return params{}, invalid("No search queries provided")
	}
	if req.APIKey == "" {
		return params{}, invalid("API key is required")
	}

	coords := req.Coordinates
	if coords == "" {
		coords = s.defaults.Coordinates
	}
	coords, err := normalizeCoordinates(coords)
	if err != nil {
		return params{}, invalid("Invalid coordinates or zoom level: " + err.Error())
	}

	zoom := s.defaults.ZoomLevel
	if req.ZoomLevel != nil {
		zoom = *req.ZoomLevel
	}
	if zoom < MinZoom || zoom > MaxZoom {
		return params{}, invalid(fmt.Sprintf("Invalid coordinates or zoom level: zoom level %d outside %d..%d", zoom, MinZoom, MaxZoom))
	}

	policy := s.policy
	if req.FailurePolicy != "" {
		if policy, err = ParseFailurePolicy(req.FailurePolicy); err != nil {
			return params{}, invalid(fmt.Sprintf("Invalid failure policy %q", req.FailurePolicy))
		}
	}

	maxResults := 0
	if req.MaxResults != nil && *req.MaxResults > 0 {
		maxResults = *req.MaxResults
	}

	return params{
		location:   fmt.Sprintf("@%s,%dz", coords, zoom),
		lang:       orDefault(req.Lang, s.defaults.Lang),
		region:     orDefault(req.Region, s.defaults.Region),
		maxResults: maxResults,
		policy:     policy,
		opts: Options{
			EnableReviews: req.EnableReviewsExtraction,
			MaxReviews:    req.MaxReviews,
			ReviewsSort:   orDefault(req.ReviewsSort, s.defaults.ReviewsSort),
		},
	}, nil
}

// normalizeCoordinates trims s and one leading "@", then checks that it reads
// as "lat,lon" within range. The trimmed string is returned unchanged.
func normalizeCoordinates(s string) (string, error) {
	coords := strings.TrimPrefix(strings.TrimSpace(s), "@")
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return "", eris.Errorf("expected \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return "", eris.Errorf("latitude %q is not a number", parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", eris.Errorf("longitude %q is not a number", parts[1])
	}
	if lat < -90 || lat > 90 {
		return "", eris.Errorf("latitude %v outside -90..90", lat)
	}
	if lon < -180 || lon > 180 {
		return "", eris.Errorf("longitude %v outside -180..180", lon)
	}
	return coords, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (s *Searcher) runQuery(ctx context.Context, client gmapsextractor.Client, query string, p params) QueryResult {
	log := zap.L().With(zap.String("component", "ingest.search"), zap.String("query", query))
	log.Info("processing query")

	start := time.Now()
	resp, err := client.Search(ctx, gmapsextractor.SearchRequest{
		Query:    query,
		Page:     1,
		Location: p.location,
		Language: p.lang,
		Region:   p.region,
		Extra:    true,
	})
	switch {
	case err != nil:
		metrics.ObserveProvider("error", time.Since(start))
		log.Error("provider call failed", zap.Error(err))
		return failedQuery(query)
	case resp == nil || !resp.HasData:
		metrics.ObserveProvider("no_data", time.Since(start))
		log.Error("provider returned no data")
		return failedQuery(query)
	}
	metrics.ObserveProvider("ok", time.Since(start))

	records := resp.Data
	if p.maxResults > 0 && len(records) > p.maxResults {
		records = records[:p.maxResults]
	}

	total := resp.Total
	res := QueryResult{
		Query:  query,
		Total:  &total,
		Places: []json.RawMessage{},
		Status: StatusRunning,
	}

	if err := s.persist(ctx, records, p, &res); err != nil {
		log.Error("storing places failed", zap.Error(err))
		res.Places = []json.RawMessage{}
		res.Skipped = nil
		res.Error = "Database error: " + err.Error()
		res.Status = StatusFailed
		metrics.ObserveQuery(string(StatusFailed), 0, 0)
		return res
	}

	stored := len(res.Places)
	res.PlacesStored = &stored
	res.Status = StatusCompleted
	metrics.ObserveQuery(string(StatusCompleted), stored, len(res.Skipped))
	log.Info("stored places", zap.Int("stored", stored), zap.Int("skipped", len(res.Skipped)))
	return res
}

func failedQuery(query string) QueryResult {
	metrics.ObserveQuery(string(StatusFailed), 0, 0)
	return QueryResult{Query: query, Error: NoResultsMessage, Status: StatusFailed}
}

// persist ingests records in one unit of work and commits it. The unit is
// rolled back on any error or panic.
func (s *Searcher) persist(ctx context.Context, records []gmapsextractor.Place, p params, res *QueryResult) error {
	u, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := u.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
			zap.L().Warn("ingest: rollback failed", zap.Error(rbErr))
		}
	}()

	cats := NewCategoryResolver(u)
	for i := range records {
		rec := &records[i]

		if p.policy == SkipPlace {
			skipped, err := s.ingestWithSavepoint(ctx, u, cats, rec, i, p.opts)
			if err != nil {
				return err
			}
			if skipped != nil {
				res.Skipped = append(res.Skipped, *skipped)
				continue
			}
		} else if err := s.ingestor.Ingest(ctx, u, cats, rec, p.opts); err != nil {
			return eris.Wrapf(err, "place %q", rec.PlaceID)
		}

		raw, err := rec.RawJSON()
		if err != nil {
			return eris.Wrapf(err, "ingest: encode raw record %s", rec.PlaceID)
		}
		res.Places = append(res.Places, raw)
	}

	if err := u.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// ingestWithSavepoint ingests rec inside its own savepoint. A record failure
// is rolled back and reported as a SkippedPlace; only savepoint failures are
// returned as errors.
func (s *Searcher) ingestWithSavepoint(ctx context.Context, u store.Unit, cats *CategoryResolver, rec *gmapsextractor.Place, i int, opts Options) (*SkippedPlace, error) {
	sp := fmt.Sprintf("place_%d", i)
	if err := u.Savepoint(ctx, sp); err != nil {
		return nil, err
	}

	ingestErr := s.ingestor.Ingest(ctx, u, cats, rec, opts)
	if ingestErr != nil {
		if err := u.RollbackTo(ctx, sp); err != nil {
			return nil, err
		}
		cats.Reset()
		zap.L().Warn("skipping place",
			zap.String("component", "ingest.search"),
			zap.String("place_id", rec.PlaceID),
			zap.Error(ingestErr),
		)
	}

	if err := u.Release(ctx, sp); err != nil {
		return nil, err
	}
	if ingestErr != nil {
		return &SkippedPlace{Index: i, PlaceID: rec.PlaceID, Error: ingestErr.Error()}, nil
	}
	return nil, nil
}
