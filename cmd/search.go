package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/places-ingest/internal/ingest"
)

var (
	searchQueries    []string
	searchFile       string
	searchAPIKey     string
	searchMaxResults int
	searchPolicy     string
	searchReviews    bool
)

// queryFile is the YAML batch accepted by --file.
type queryFile struct {
	Queries     []string `yaml:"queries"`
	Coordinates string   `yaml:"coordinates"`
	ZoomLevel   *int     `yaml:"zoom_level"`
	Lang        string   `yaml:"lang"`
	Region      string   `yaml:"region"`
	MaxResults  *int     `yaml:"max_results"`
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run a search batch and store the results",
	Example: `  places-cli search --query "coffee shops in portland" --max-results 20
  places-cli search --file queries.yaml --failure-policy skip_place`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if searchAPIKey != "" {
			cfg.Provider.APIKey = searchAPIKey
		}
		if err := cfg.Validate("search"); err != nil {
			return err
		}

		req, err := buildSearchRequest(searchQueries, searchFile)
		if err != nil {
			return err
		}
		req.APIKey = cfg.Provider.APIKey
		req.FailurePolicy = searchPolicy
		req.EnableReviewsExtraction = searchReviews
		if cmd.Flags().Changed("max-results") {
			req.MaxResults = &searchMaxResults
		}

		ctx := cmd.Context()
		st, err := initStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		searcher, err := newSearcher(cfg, st, clientFactory(cfg.Provider))
		if err != nil {
			return err
		}

		resp, err := searcher.Search(ctx, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	},
}

// buildSearchRequest merges --query flags with an optional YAML batch file.
func buildSearchRequest(queries []string, path string) (ingest.SearchRequest, error) {
	var req ingest.SearchRequest
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return req, eris.Wrapf(err, "read query file %s", path)
		}
		var qf queryFile
		if err := yaml.Unmarshal(b, &qf); err != nil {
			return req, eris.Wrapf(err, "parse query file %s", path)
		}
		req.Queries = qf.Queries
		req.Coordinates = qf.Coordinates
		req.ZoomLevel = qf.ZoomLevel
		req.Lang = qf.Lang
		req.Region = qf.Region
		req.MaxResults = qf.MaxResults
	}
	req.Queries = append(req.Queries, queries...)
	return req, nil
}

func init() {
	searchCmd.Flags().StringArrayVarP(&searchQueries, "query", "q", nil, "search query (repeatable)")
	searchCmd.Flags().StringVar(&searchFile, "file", "", "YAML file with a queries list")
	searchCmd.Flags().StringVar(&searchAPIKey, "api-key", "", "provider API key (default from config)")
	searchCmd.Flags().IntVar(&searchMaxResults, "max-results", 0, "max places stored per query")
	searchCmd.Flags().StringVar(&searchPolicy, "failure-policy", "", "rollback_query or skip_place (default from config)")
	searchCmd.Flags().BoolVar(&searchReviews, "reviews", false, "record a review extraction request per place")
	rootCmd.AddCommand(searchCmd)
}
