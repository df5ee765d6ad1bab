// Package openstreetmap reverse-geocodes coordinates through the
// Nominatim service.
package openstreetmap

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"context"

	"bitbucket.org/kleinnic74/photopost/geocoding"
	"bitbucket.org/kleinnic74/photopost/logging"
	"go.uber.org/zap"
)

const (
	baseURL   = "https://nominatim.openstreetmap.org"
	userAgent = "photopost/0.1"
)

type resolver struct {
	lang   string
	client *http.Client
}

type address struct {
	City    string `json:"city"`
	Town    string `json:"town"`
	Village string `json:"village"`
	Country string `json:"country"`
}

func (a address) locality() string {
	switch {
	case a.City != "":
		return a.City
	case a.Town != "":
		return a.Town
	default:
		return a.Village
	}
}

type location struct {
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	// Nominatim reports unresolvable coordinates with HTTP 200 and an
	// error field in the body.
	Error string `json:"error"`
}

func NewResolver(lang ...string) geocoding.Resolver {
	return NewResolverWithClient(&http.Client{Timeout: 5 * time.Second}, lang...)
}

func NewResolverWithClient(client *http.Client, lang ...string) geocoding.Resolver {
	return &resolver{
		lang:   strings.Join(lang, ","),
		client: client,
	}
}

func (osm *resolver) ReverseGeocode(ctx context.Context, lat, lon float64) (geocoding.Place, bool, error) {
	logger, ctx := logging.SubFrom(ctx, "openstreetmap")
	url := fmt.Sprintf("%s/reverse?format=json&lat=%f&lon=%f&addressdetails=1&zoom=14", baseURL, lat, lon)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return geocoding.Unknown, false, err
	}
	req.Header.Set("User-Agent", userAgent)
	if osm.lang != "" {
		req.Header.Set("Accept-Language", osm.lang)
	}
	res, err := osm.client.Do(req)
	if err != nil {
		return geocoding.Unknown, false, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return geocoding.Unknown, false, err
	}
	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return geocoding.Unknown, false, geocoding.ErrRateLimited
	case res.StatusCode == http.StatusNotFound:
		return geocoding.Unknown, false, nil
	case res.StatusCode != http.StatusOK:
		return geocoding.Unknown, false, fmt.Errorf("nominatim returned status %d", res.StatusCode)
	}
	logger.Debug("reverseGeocode response", zap.String("response", string(data)))
	var loc location
	if err := json.Unmarshal(data, &loc); err != nil {
		return geocoding.Unknown, false, err
	}
	if loc.Error != "" {
		return geocoding.Unknown, false, nil
	}
	place := geocoding.PlaceOf(loc.Address.locality(), loc.Address.Country, loc.DisplayName)
	if place.IsUnknown() {
		return geocoding.Unknown, false, nil
	}
	return place, true, nil
}
