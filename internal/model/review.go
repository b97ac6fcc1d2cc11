package model

import (
	"encoding/json"
	"time"
)

// ReviewRequestNote is stored with every review request because the search
// provider does not return review bodies.
const ReviewRequestNote = "Reviews extraction not supported by this API"

// ReviewRequest records that a caller asked for review extraction of a place.
// It carries the request configuration, not review content.
type ReviewRequest struct {
	ID          string          `json:"id" db:"id"`
	PlaceID     string          `json:"place_id" db:"place_id"`
	Config      json.RawMessage `json:"config" db:"config"`
	RequestedAt time.Time       `json:"requested_at" db:"requested_at"`
}

// ReviewRequestConfig is the JSON payload of a ReviewRequest.
type ReviewRequestConfig struct {
	Enabled    bool   `json:"enabled"`
	MaxReviews *int   `json:"max_reviews"`
	Sort       string `json:"sort"`
	Note       string `json:"note"`
}

// RatingSummary is the place-level rating summary synthesized from a search
// record.
type RatingSummary struct {
	ID         string  `json:"id" db:"id"`
	PlaceID    string  `json:"place_id" db:"place_id"`
	Rating     *int    `json:"rating,omitempty" db:"rating"`
	Name       *string `json:"name,omitempty" db:"name"`
	ReviewsURL *string `json:"reviews_url,omitempty" db:"reviews_url"`
}
