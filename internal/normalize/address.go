// Package normalize turns the provider's free-text fields into structured
// sub-records.
package normalize

import (
	"strings"

	"github.com/sells-group/places-ingest/internal/model"
)

// separator delimits address segments and category names.
const separator = ", "

// ParseAddress splits a full address on ", " and assigns the parts to street,
// city, state, postal code and country code in that order. Positions without
// a part stay nil. The parts are not validated: an address with fewer than
// five segments shifts everything left ("state" may hold a country).
func ParseAddress(full string) model.DetailedAddress {
	var addr model.DetailedAddress
	if full == "" {
		return addr
	}

	parts := strings.Split(full, separator)
	fields := []**string{
		&addr.Street,
		&addr.City,
		&addr.State,
		&addr.PostalCode,
		&addr.CountryCode,
	}
	for i, f := range fields {
		if i >= len(parts) {
			break
		}
		v := parts[i]
		*f = &v
	}
	return addr
}

// JoinAddress is the inverse of ParseAddress for the fields that are set.
func JoinAddress(addr model.DetailedAddress) string {
	var parts []string
	for _, f := range []*string{addr.Street, addr.City, addr.State, addr.PostalCode, addr.CountryCode} {
		if f == nil {
			break
		}
		parts = append(parts, *f)
	}
	return strings.Join(parts, separator)
}
