// Package model defines the persisted places schema.
package model

import (
	"encoding/json"
	"time"
)

// Place is the canonical record for a provider place identifier.
type Place struct {
	PlaceID             string    `json:"place_id" db:"place_id"`
	Name                *string   `json:"name,omitempty" db:"name"`
	Description         *string   `json:"description,omitempty" db:"description"`
	Website             *string   `json:"website,omitempty" db:"website"`
	Phone               *string   `json:"phone,omitempty" db:"phone"`
	IsSpendingOnAds     bool      `json:"is_spending_on_ads" db:"is_spending_on_ads"`
	Rating              *float64  `json:"rating,omitempty" db:"rating"`
	ReviewsCount        *int      `json:"reviews_count,omitempty" db:"reviews_count"`
	MainCategory        *string   `json:"main_category,omitempty" db:"main_category"`
	WorkdayTiming       *string   `json:"workday_timing,omitempty" db:"workday_timing"`
	IsTemporarilyClosed bool      `json:"is_temporarily_closed" db:"is_temporarily_closed"`
	IsPermanentlyClosed bool      `json:"is_permanently_closed" db:"is_permanently_closed"`
	Address             *string   `json:"address,omitempty" db:"address"`
	PlusCode            *string   `json:"plus_code,omitempty" db:"plus_code"`
	Link                *string   `json:"link,omitempty" db:"link"`
	Status              *string   `json:"status,omitempty" db:"status"`
	PriceRange          *string   `json:"price_range,omitempty" db:"price_range"`
	ReviewsLink         *string   `json:"reviews_link,omitempty" db:"reviews_link"`
	TimeZone            *string   `json:"time_zone,omitempty" db:"time_zone"`
	Latitude            *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude           *float64  `json:"longitude,omitempty" db:"longitude"`
	CID                 *string   `json:"cid,omitempty" db:"cid"`
	DataID              *string   `json:"data_id,omitempty" db:"data_id"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// RawPlaceData is the verbatim provider payload for a place.
type RawPlaceData struct {
	PlaceID string          `json:"place_id" db:"place_id"`
	RawData json.RawMessage `json:"raw_data" db:"raw_data"`
}

// DetailedAddress holds the positional parts of a place's address.
type DetailedAddress struct {
	PlaceID     string  `json:"place_id" db:"place_id"`
	Street      *string `json:"street,omitempty" db:"street"`
	City        *string `json:"city,omitempty" db:"city"`
	State       *string `json:"state,omitempty" db:"state"`
	PostalCode  *string `json:"postal_code,omitempty" db:"postal_code"`
	CountryCode *string `json:"country_code,omitempty" db:"country_code"`
}

// Category is a globally unique category name.
type Category struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// PlaceCategory links a place to a category.
type PlaceCategory struct {
	PlaceID    string `json:"place_id" db:"place_id"`
	CategoryID int64  `json:"category_id" db:"category_id"`
}

// ClosedTime is the close_time value of a day the place is closed.
const ClosedTime = "Closed"

// Hour is one parsed opening interval for a day. OpenTime is nil on closed
// days.
type Hour struct {
	ID        int64   `json:"id,omitempty" db:"id"`
	PlaceID   string  `json:"place_id" db:"place_id"`
	Day       string  `json:"day" db:"day"`
	OpenTime  *string `json:"open_time" db:"open_time"`
	CloseTime string  `json:"close_time" db:"close_time"`
}

// Closed reports whether the row marks a closed day.
func (h Hour) Closed() bool {
	return h.OpenTime == nil && h.CloseTime == ClosedTime
}

// Image is a featured image attached to a place.
type Image struct {
	ID      int64   `json:"id,omitempty" db:"id"`
	PlaceID string  `json:"place_id" db:"place_id"`
	About   *string `json:"about,omitempty" db:"about"`
	Link    string  `json:"link" db:"link"`
}

// About is an "about" section of a place.
type About struct {
	ID          int64  `json:"id,omitempty" db:"id"`
	PlaceID     string `json:"place_id" db:"place_id"`
	SectionID   string `json:"section_id" db:"section_id"`
	SectionName string `json:"section_name" db:"section_name"`
}

// PlaceDetail is a stored place with the sub-records read back by the API.
type PlaceDetail struct {
	Place
	DetailedAddress *DetailedAddress `json:"detailed_address,omitempty"`
	Categories      []Category       `json:"categories"`
	Hours           []Hour           `json:"hours"`
}
