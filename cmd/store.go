package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/places-ingest/internal/config"
	"github.com/sells-group/places-ingest/internal/ingest"
	"github.com/sells-group/places-ingest/internal/store"
	"github.com/sells-group/places-ingest/pkg/gmapsextractor"
)

// initStore opens the configured store and applies pending migrations.
func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(c.Store.DatabaseURL)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: c.Store.MaxConns,
			MinConns: c.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	zap.L().Info("store ready", zap.String("driver", c.Store.Driver))
	return st, nil
}

// clientFactory builds provider clients for per-request API keys.
func clientFactory(c config.ProviderConfig) ingest.ClientFactory {
	return func(apiKey string) gmapsextractor.Client {
		return gmapsextractor.NewClient(apiKey,
			gmapsextractor.WithBaseURL(c.BaseURL),
			gmapsextractor.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second),
		)
	}
}

// newSearcher wires a Searcher from configuration.
func newSearcher(c *config.Config, st store.Store, newClient ingest.ClientFactory) (*ingest.Searcher, error) {
	policy, err := ingest.ParseFailurePolicy(c.Ingest.FailurePolicy)
	if err != nil {
		return nil, err
	}
	return ingest.NewSearcher(st, newClient,
		ingest.WithFailurePolicy(policy),
		ingest.WithDefaults(ingest.Defaults{
			Coordinates: c.Search.Coordinates,
			ZoomLevel:   c.Search.ZoomLevel,
			Lang:        c.Search.Lang,
			Region:      c.Search.Region,
			ReviewsSort: c.Search.ReviewsSort,
		}),
	), nil
}
