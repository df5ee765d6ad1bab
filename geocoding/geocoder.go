// Package geocoding resolves GPS coordinates to human-readable place
// names through a caching reverse geocoder.
package geocoding

import (
	"context"
	"errors"
	"strings"
)

// ErrRateLimited is returned when the upstream geocoding service asks
// us to back off. It is not retried within a run.
var ErrRateLimited = errors.New("geocoding service rate limited")

// Place is a resolved, human-readable location.
type Place struct {
	Name    string `json:"name"`
	City    string `json:"city,omitempty"`
	Country string `json:"country,omitempty"`
}

// Unknown is the sentinel place used when coordinates cannot be resolved.
var Unknown = Place{}

func (p Place) IsUnknown() bool {
	return p.Name == ""
}

func (p Place) String() string {
	if p.IsUnknown() {
		return "unknown"
	}
	return p.Name
}

// PlaceOf composes a display name from address fields, falling back to
// the raw display name when no city is known.
func PlaceOf(city, country, displayName string) Place {
	p := Place{City: city, Country: country}
	switch {
	case city != "" && country != "":
		p.Name = strings.Join([]string{city, country}, ", ")
	case city != "":
		p.Name = city
	case country != "":
		p.Name = country
	default:
		p.Name = displayName
	}
	return p
}

// Resolver reverse-geocodes a pair of coordinates. found is false when
// the service has no result for the given position, which is not an
// error.
type Resolver interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (place Place, found bool, err error)
}

// IsRateLimited reports whether the given error is an upstream back-off
// request.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRetryable reports whether a resolver error is worth another attempt.
// Rate limiting and cancellation are not, everything else is assumed to
// be a transient network condition.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
