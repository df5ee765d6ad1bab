package geocoding

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"bitbucket.org/kleinnic74/photopost/domain/gps"
	"bitbucket.org/kleinnic74/photopost/logging"
	"bitbucket.org/kleinnic74/photopost/retry"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// CellPrecision is the number of decimal places coordinates are rounded
// to when forming cache keys. Three decimals is roughly a 100m cell,
// photos taken on the same outing collapse onto few cells.
const CellPrecision = 3

// CellOf returns the cache key for the given coordinates.
func CellOf(lat, lon float64) string {
	return fmt.Sprintf("%.*f,%.*f", CellPrecision, lat, CellPrecision, lon)
}

// CellRect returns the geographical area covered by a cell key.
func CellRect(key string) (gps.Rect, error) {
	parts := strings.SplitN(key, ",", 2)
	if len(parts) != 2 {
		return gps.Rect{}, fmt.Errorf("malformed cell key %q", key)
	}
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return gps.Rect{}, err
	}
	lon, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return gps.Rect{}, err
	}
	size := 1.0
	for i := 0; i < CellPrecision; i++ {
		size /= 10
	}
	return gps.RectFrom(lon-size/2, lat-size/2, lon+size/2, lat+size/2), nil
}

// CellEntry is a resolved place stored in the cache. Entries never
// mutate once written. Negative results are cached too, Found is false
// for those.
type CellEntry struct {
	Place      Place     `json:"place"`
	Found      bool      `json:"found"`
	ResolvedAt time.Time `json:"resolvedAt"`
}

// CellStore persists resolved cells across runs.
type CellStore interface {
	Get(key string) (CellEntry, bool, error)
	Put(key string, entry CellEntry) error
	Visit(visit func(key string, entry CellEntry) error) error
}

type Stats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
	Total  int `json:"total"`
}

type internalStats struct {
	Stats
	hits   prometheus.Counter
	misses prometheus.Counter
	total  prometheus.Counter
}

func (s *internalStats) hit() {
	s.total.Inc()
	s.Stats.Total++
	s.hits.Inc()
	s.Stats.Hits++
}

func (s *internalStats) miss() {
	s.total.Inc()
	s.Stats.Total++
	s.misses.Inc()
	s.Stats.Misses++
}

var (
	statsOnce   sync.Once
	sharedStats *internalStats
)

func cacheStats() *internalStats {
	statsOnce.Do(func() {
		sharedStats = &internalStats{
			hits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "geocoding_cache_hits",
				Help: "Number of places resolved through the cache",
			}),
			misses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "geocoding_cache_misses",
				Help: "Number of reverse geocoding requests not found in the cache",
			}),
			total: promauto.NewCounter(prometheus.CounterOpts{
				Name: "geocoding_cache_total",
				Help: "Total number of requests to the geocoding cache",
			}),
		}
	})
	return sharedStats
}

// Cache is a Resolver that collapses nearby coordinates onto rounded
// cells and only consults its delegate on a cell miss. Transient
// delegate failures are retried under the given policy, rate limiting
// is surfaced immediately.
type Cache struct {
	stats    *internalStats
	delegate Resolver
	store    CellStore
	policy   retry.Policy

	lock sync.Mutex
}

func NewCache(delegate Resolver, store CellStore) *Cache {
	return &Cache{
		stats:    cacheStats(),
		delegate: delegate,
		store:    store,
		policy:   retry.DefaultPolicy,
	}
}

func (c *Cache) WithRetryPolicy(policy retry.Policy) *Cache {
	c.policy = policy
	return c
}

func (c *Cache) DumpStats() Stats {
	return c.stats.Stats
}

func (c *Cache) ReverseGeocode(ctx context.Context, lat, lon float64) (Place, bool, error) {
	key := CellOf(lat, lon)
	log, ctx := logging.FromWithNameAndFields(ctx, "geocache", zap.String("cell", key))

	c.lock.Lock()
	defer c.lock.Unlock()

	if entry, ok, err := c.store.Get(key); err != nil {
		return Unknown, false, err
	} else if ok {
		c.stats.hit()
		return entry.Place, entry.Found, nil
	}
	c.stats.miss()
	log.Debug("No place found in cache")

	var place Place
	var found bool
	err := retry.Do(ctx, c.policy, IsRetryable, func(ctx context.Context) error {
		var err error
		place, found, err = c.delegate.ReverseGeocode(ctx, lat, lon)
		return err
	})
	if err != nil {
		return Unknown, false, err
	}
	if !found {
		log.Info("Place not found", zap.Float64("lat", lat), zap.Float64("lon", lon))
	}
	entry := CellEntry{Place: place, Found: found, ResolvedAt: time.Now()}
	if err := c.store.Put(key, entry); err != nil {
		return place, found, err
	}
	return place, found, nil
}

// Visit walks all cached cells, in no particular order.
func (c *Cache) Visit(visit func(key string, entry CellEntry) error) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.store.Visit(visit)
}

// MemoryCellStore is an in-memory CellStore, it does not survive the
// process. Used in tests and dry runs.
type MemoryCellStore struct {
	cells map[string]CellEntry
}

func NewMemoryCellStore() *MemoryCellStore {
	return &MemoryCellStore{cells: make(map[string]CellEntry)}
}

func (s *MemoryCellStore) Get(key string) (CellEntry, bool, error) {
	entry, ok := s.cells[key]
	return entry, ok, nil
}

func (s *MemoryCellStore) Put(key string, entry CellEntry) error {
	s.cells[key] = entry
	return nil
}

func (s *MemoryCellStore) Visit(visit func(key string, entry CellEntry) error) error {
	for k, e := range s.cells {
		if err := visit(k, e); err != nil {
			return err
		}
	}
	return nil
}
