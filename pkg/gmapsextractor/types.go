package gmapsextractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// SearchRequest is the body posted to the search endpoint.
type SearchRequest struct {
	Query    string `json:"q"`
	Page     int    `json:"page"`
	Location string `json:"ll"`
	Language string `json:"hl"`
	Region   string `json:"gl"`
	Extra    bool   `json:"extra"`
}

// SearchResponse is one page of search results.
//
// HasData reports whether the payload carried a non-null "data" key. A
// response without it is treated by callers as "no results".
type SearchResponse struct {
	Total   int     `json:"total"`
	Data    []Place `json:"data"`
	HasData bool    `json:"-"`
}

// UnmarshalJSON records whether the "data" key was present.
func (r *SearchResponse) UnmarshalJSON(b []byte) error {
	var aux struct {
		Total FlexInt         `json:"total"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.Total = int(aux.Total)
	r.Data = nil
	r.HasData = len(aux.Data) > 0 && !isNull(aux.Data)
	if !r.HasData {
		return nil
	}
	return json.Unmarshal(aux.Data, &r.Data)
}

// Place is a single provider record. Every field except PlaceID is optional;
// absent values decode to the zero value noted on the field. Raw keeps the
// verbatim record bytes.
type Place struct {
	PlaceID             string       `json:"place_id"`
	Name                string       `json:"name"`                   // "" when absent
	Meta                *Meta        `json:"meta,omitempty"`         // nil when absent
	Website             string       `json:"website"`                // "" when absent
	Phone               string       `json:"phone"`                  // "" when absent
	TrackingIDs         *TrackingIDs `json:"tracking_ids,omitempty"` // nil when absent
	AverageRating       *float64     `json:"average_rating"`         // nil when absent
	ReviewCount         *int         `json:"review_count"`           // nil when absent
	Categories          string       `json:"categories"`             // comma separated, "" when absent
	OpeningHours        string       `json:"opening_hours"`          // "Day: [open-close], ..." or ""
	IsTemporarilyClosed bool         `json:"is_temporarily_closed"`  // false when absent
	IsPermanentlyClosed bool         `json:"is_permanently_closed"`  // false when absent
	FullAddress         string       `json:"full_address"`           // "" when absent
	PlusCode            string       `json:"plus_code"`
	GoogleMapsURL       string       `json:"google_maps_url"`
	Status              string       `json:"status"`
	PriceRange          string       `json:"price_range"`
	ReviewURL           string       `json:"review_url"`
	TimeZone            string       `json:"time_zone"`
	Latitude            *float64     `json:"latitude"`
	Longitude           *float64     `json:"longitude"`
	CID                 FlexString   `json:"cid"`
	DataID              FlexString   `json:"data_id"`
	FeaturedImage       string       `json:"featured_image"`

	Raw json.RawMessage `json:"-"`
}

// Meta holds the nested "meta" object.
type Meta struct {
	Description string `json:"description"`
}

// TrackingIDs holds the nested "tracking_ids" object.
type TrackingIDs struct {
	Google *GoogleTracking `json:"google,omitempty"`
}

// GoogleTracking holds "tracking_ids.google". Ads is kept raw because only
// its presence matters.
type GoogleTracking struct {
	Ads json.RawMessage `json:"ads,omitempty"`
}

// UnmarshalJSON decodes the record and keeps a copy of its bytes in Raw.
// Numeric fields accept numbers, numeric strings and null; anything else
// leaves the field nil rather than failing the whole response.
func (p *Place) UnmarshalJSON(b []byte) error {
	type alias Place
	*p = Place{}
	aux := struct {
		*alias
		AverageRating optFloat `json:"average_rating"`
		ReviewCount   optFloat `json:"review_count"`
		Latitude      optFloat `json:"latitude"`
		Longitude     optFloat `json:"longitude"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.AverageRating = aux.AverageRating.v
	p.ReviewCount = aux.ReviewCount.int()
	p.Latitude = aux.Latitude.v
	p.Longitude = aux.Longitude.v
	p.Raw = append(json.RawMessage(nil), b...)
	return nil
}

// Description returns meta.description or "".
func (p *Place) Description() string {
	if p.Meta == nil {
		return ""
	}
	return p.Meta.Description
}

// IsSpendingOnAds reports whether tracking_ids.google.ads is present and
// non-null.
func (p *Place) IsSpendingOnAds() bool {
	if p.TrackingIDs == nil || p.TrackingIDs.Google == nil {
		return false
	}
	ads := p.TrackingIDs.Google.Ads
	return len(ads) > 0 && !isNull(ads)
}

// RawJSON returns the verbatim record, re-encoding it when the record was
// built in code rather than decoded.
func (p *Place) RawJSON() (json.RawMessage, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type alias Place
	b, err := json.Marshal(alias(*p))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// FlexString decodes a JSON string or number into a string. The provider is
// not consistent about the type of cid and data_id.
type FlexString string

// UnmarshalJSON accepts strings, numbers and null.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = FlexString(n.String())
	return nil
}

// FlexInt decodes a JSON number or numeric string into an int.
type FlexInt int

// UnmarshalJSON accepts numbers, numeric strings and null.
func (n *FlexInt) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*n = 0
		return nil
	}
	raw := string(bytes.Trim(b, `"`))
	if raw == "" {
		*n = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return err
	}
	*n = FlexInt(int(v))
	return nil
}

// optFloat is an optional number that may arrive as a JSON number or string.
type optFloat struct{ v *float64 }

func (f *optFloat) UnmarshalJSON(b []byte) error {
	f.v = nil
	if isNull(b) {
		return nil
	}
	raw := strings.TrimSpace(string(bytes.Trim(b, `"`)))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	f.v = &v
	return nil
}

func (f optFloat) int() *int {
	if f.v == nil {
		return nil
	}
	n := int(*f.v)
	return &n
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
