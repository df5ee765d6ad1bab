package geocoding

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/kleinnic74/photopost/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedResolver struct {
	calls int
	place Place
	found bool
	errs  []error
}

func (r *scriptedResolver) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, bool, error) {
	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		if err != nil {
			return Unknown, false, err
		}
	}
	return r.place, r.found, nil
}

var instant = retry.Policy{MaxAttempts: 3}

func TestCellOf(t *testing.T) {
	data := []struct {
		lat, lon float64
		cell     string
	}{
		{lat: 37.7749, lon: -122.4194, cell: "37.775,-122.419"},
		{lat: 37.77493, lon: -122.41935, cell: "37.775,-122.419"},
		{lat: 48.2118494, lon: 16.3651666, cell: "48.212,16.365"},
		{lat: 0, lon: 0, cell: "0.000,0.000"},
	}
	for _, d := range data {
		assert.Equal(t, d.cell, CellOf(d.lat, d.lon))
	}
}

func TestCellRect(t *testing.T) {
	rect, err := CellRect("37.775,-122.419")
	require.NoError(t, err)
	assert.InDelta(t, 0.001, rect.W(), 1e-9)
	assert.InDelta(t, 0.001, rect.H(), 1e-9)
	center := rect.Center()
	assert.InDelta(t, 37.775, center.Y(), 1e-9)
	assert.InDelta(t, -122.419, center.X(), 1e-9)

	_, err = CellRect("garbage")
	assert.Error(t, err)
}

func TestNearbyCoordinatesResolveWithOneCall(t *testing.T) {
	delegate := &scriptedResolver{place: Place{Name: "San Francisco, United States"}, found: true}
	cache := NewCache(delegate, NewMemoryCellStore()).WithRetryPolicy(instant)

	ctx := context.Background()
	place1, found, err := cache.ReverseGeocode(ctx, 37.7749, -122.4194)
	require.NoError(t, err)
	assert.True(t, found)

	// within rounding precision of the first position
	place2, found, err := cache.ReverseGeocode(ctx, 37.77493, -122.41935)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, place1, place2)
	assert.Equal(t, 1, delegate.calls, "second lookup must be served from the cache")

	stats := cache.DumpStats()
	assert.GreaterOrEqual(t, stats.Hits, 1)
}

func TestCacheRetriesTransientFailures(t *testing.T) {
	delegate := &scriptedResolver{
		place: Place{Name: "Wien, Austria"},
		found: true,
		errs:  []error{errors.New("connection reset"), errors.New("connection reset"), nil},
	}
	cache := NewCache(delegate, NewMemoryCellStore()).WithRetryPolicy(instant)

	place, found, err := cache.ReverseGeocode(context.Background(), 48.2118, 16.3651)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Wien, Austria", place.Name)
	assert.Equal(t, 3, delegate.calls)
}

func TestCacheDoesNotRetryRateLimits(t *testing.T) {
	delegate := &scriptedResolver{errs: []error{ErrRateLimited, ErrRateLimited, ErrRateLimited}}
	cache := NewCache(delegate, NewMemoryCellStore()).WithRetryPolicy(instant)

	_, _, err := cache.ReverseGeocode(context.Background(), 48.2118, 16.3651)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 1, delegate.calls, "rate limiting must not be retried")
}

func TestCacheStoresNegativeResults(t *testing.T) {
	delegate := &scriptedResolver{found: false}
	cache := NewCache(delegate, NewMemoryCellStore()).WithRetryPolicy(instant)

	ctx := context.Background()
	_, found, err := cache.ReverseGeocode(ctx, 0.001, 0.001)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = cache.ReverseGeocode(ctx, 0.001, 0.001)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, delegate.calls, "negative results must be cached too")
}

func TestPlaceOf(t *testing.T) {
	data := []struct {
		city, country, display string
		name                   string
	}{
		{city: "Wien", country: "Austria", name: "Wien, Austria"},
		{city: "Wien", name: "Wien"},
		{country: "Austria", name: "Austria"},
		{display: "Somewhere in the Alps", name: "Somewhere in the Alps"},
	}
	for _, d := range data {
		assert.Equal(t, d.name, PlaceOf(d.city, d.country, d.display).Name)
	}
}
