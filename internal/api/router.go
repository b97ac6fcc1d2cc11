// Package api exposes the search ingest service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/places-ingest/internal/ingest"
	"github.com/sells-group/places-ingest/internal/metrics"
	"github.com/sells-group/places-ingest/internal/model"
)

// Searcher runs a search batch.
type Searcher interface {
	Search(ctx context.Context, req ingest.SearchRequest) (*ingest.SearchResponse, error)
}

// PlaceReader reads stored places and reports database health.
type PlaceReader interface {
	GetPlace(ctx context.Context, placeID string) (*model.PlaceDetail, error)
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the router. Nil Searcher or Places disable
// the routes that need them; a nil Registry disables /metrics.
type Deps struct {
	Searcher    Searcher
	Places      PlaceReader
	Registry    *prometheus.Registry
	CORSOrigins []string
}

// NewRouter builds the HTTP handler for the service.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(Metrics)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins(d.CORSOrigins),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         int((5 * time.Minute).Seconds()),
	}))

	h := &handlers{searcher: d.Searcher, places: d.Places}
	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		if d.Searcher != nil {
			r.Post("/search", h.search)
		}
		if d.Places != nil {
			r.Get("/places/{placeID}", h.getPlace)
		}
	})
	if d.Registry != nil {
		r.Handle("/metrics", metrics.Handler(d.Registry))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}

func origins(o []string) []string {
	if len(o) == 0 {
		return []string{"*"}
	}
	return o
}
