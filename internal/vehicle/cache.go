package vehicle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
)

// Summary is the per-vehicle data shown alongside a person.
type Summary struct {
	PlateNo       string `json:"plateNo"`
	EffectiveDate string `json:"effectiveDate,omitempty"`
	ExpiredDate   string `json:"expiredDate,omitempty"`
	VehicleID     string `json:"vehicleId,omitempty"`
}

// Index maps an owner key to that owner's vehicles.
type Index map[string][]Summary

// Plates returns the plate numbers registered to name.
func (ix Index) Plates(name string) []string {
	var plates []string
	for _, s := range ix[OwnerKey(name)] {
		plates = append(plates, s.PlateNo)
	}
	return plates
}

// Lister fetches one page of vehicles.
type Lister interface {
	ListVehicles(ctx context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Vehicle], error)
}

// Logger is the subset of logging.Logger the cache needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Options tunes the cache.
type Options struct {
	TTL      time.Duration
	Workers  int
	PageSize int
	MaxPages int
	Logger   Logger
}

// Cache holds one Index with a single expiry.
//
// Rebuilds are not deduplicated: concurrent misses each scan, and the last
// one to finish wins. A rebuild that started before Invalidate never marks
// its result fresh.
type Cache struct {
	src  Lister
	opts Options
	now  func() time.Time

	mu        sync.Mutex
	index     Index
	expiresAt time.Time
	gen       uint64
}

// NewCache returns an empty cache over src.
func NewCache(src Lister, opts Options) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = 60 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 200
	}
	if opts.Logger == nil {
		opts.Logger = noopLogger{}
	}
	return &Cache{src: src, opts: opts, now: time.Now}
}

// Get returns the current index, rebuilding it when expired. The returned
// Index is shared and must not be modified.
func (c *Cache) Get(ctx context.Context) (Index, error) {
	c.mu.Lock()
	if !c.expiresAt.IsZero() && c.now().Before(c.expiresAt) {
		ix := c.index
		c.mu.Unlock()
		return ix, nil
	}
	gen := c.gen
	c.mu.Unlock()

	start := c.now()
	vehicles, stats, err := hikcentral.Scan(ctx, c.src.ListVehicles, hikcentral.ScanOptions{
		PageSize:    c.opts.PageSize,
		Concurrency: c.opts.Workers,
		MaxPages:    c.opts.MaxPages,
		Logger:      c.opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("loading vehicles: %w", err)
	}

	ix := Build(vehicles)
	c.opts.Logger.Debug("vehicle index rebuilt",
		"vehicles", len(vehicles),
		"owners", len(ix),
		"pages", stats.Pages,
		"elapsed", c.now().Sub(start),
	)

	if stats.Partial() {
		c.opts.Logger.Warn("vehicle index incomplete, not caching", "failed_pages", stats.FailedPages)
		return ix, nil
	}

	c.mu.Lock()
	if c.gen == gen {
		c.index = ix
		c.expiresAt = c.now().Add(c.opts.TTL)
	}
	c.mu.Unlock()
	return ix, nil
}

// Invalidate forces the next Get to rebuild.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.expiresAt = time.Time{}
	c.gen++
	c.mu.Unlock()
}

// ExpiresAt reports when the cached index goes stale; zero when empty or invalidated.
func (c *Cache) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

// Build indexes vehicles by OwnerKey. Vehicles with no owner or plate are dropped.
func Build(vehicles []hikcentral.Vehicle) Index {
	ix := make(Index)
	for _, v := range vehicles {
		key := OwnerKey(v.PersonName)
		plate := NormalizePlate(v.PlateNo)
		if key == "" || plate == "" {
			continue
		}
		ix[key] = append(ix[key], Summary{
			PlateNo:       plate,
			EffectiveDate: v.EffectiveDate,
			ExpiredDate:   v.ExpiredDate,
			VehicleID:     v.VehicleID.String(),
		})
	}
	return ix
}
