package vehicle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hikgate/hikgate-core/internal/hikcentral"
)

// fakeLister serves a fixed vehicle list, optionally failing a page or
// blocking until released.
type fakeLister struct {
	mu       sync.Mutex
	vehicles []hikcentral.Vehicle
	failPage int
	calls    atomic.Int32
	gate     chan struct{}
}

func (f *fakeLister) ListVehicles(_ context.Context, pageNo, pageSize int) (*hikcentral.Page[hikcentral.Vehicle], error) {
	f.calls.Add(1)
	if f.gate != nil && pageNo == 1 {
		<-f.gate
	}
	if pageNo == f.failPage {
		return nil, &hikcentral.VendorError{Code: hikcentral.CodeTransport, Msg: "timeout"}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var list []hikcentral.Vehicle
	for i := (pageNo - 1) * pageSize; i < pageNo*pageSize && i < len(f.vehicles); i++ {
		list = append(list, f.vehicles[i])
	}
	return &hikcentral.Page[hikcentral.Vehicle]{Total: len(f.vehicles), PageNo: pageNo, PageSize: pageSize, List: list}, nil
}

func (f *fakeLister) set(vs ...hikcentral.Vehicle) {
	f.mu.Lock()
	f.vehicles = vs
	f.mu.Unlock()
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(src Lister, opts Options) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	c := NewCache(src, opts)
	c.now = clock.Now
	return c, clock
}

func v(id, plate, owner string) hikcentral.Vehicle {
	return hikcentral.Vehicle{VehicleID: hikcentral.ID(id), PlateNo: plate, PersonName: owner}
}

func TestCacheServesWithinTTL(t *testing.T) {
	src := &fakeLister{}
	src.set(v("1", "abc123", "Ana Quispe "), v("2", "XYZ789", "Ana Quispe"), v("3", "LMN456", "Luis Rojas"))
	cache, clock := newTestCache(src, Options{TTL: time.Minute})

	ix, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ABC123", "XYZ789"}, ix.Plates("Ana Quispe"))
	assert.Equal(t, int32(1), src.calls.Load())

	clock.Advance(59 * time.Second)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.calls.Load(), "served from cache")

	clock.Advance(time.Second)
	_, err = cache.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load(), "rebuilt at expiry")
}

func TestCacheInvalidate(t *testing.T) {
	src := &fakeLister{}
	src.set(v("1", "AAA111", "Ana Quispe"))
	cache, _ := newTestCache(src, Options{TTL: time.Minute})

	_, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.False(t, cache.ExpiresAt().IsZero())

	src.set(v("1", "AAA111", "Ana Quispe"), v("2", "BBB222", "Ana Quispe"))
	cache.Invalidate()
	assert.True(t, cache.ExpiresAt().IsZero())

	ix, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, ix["Ana Quispe"], 2)
}

func TestCacheRebuildStartedBeforeInvalidateIsNotFresh(t *testing.T) {
	src := &fakeLister{gate: make(chan struct{})}
	src.set(v("1", "OLD111", "Ana Quispe"))
	cache, _ := newTestCache(src, Options{TTL: time.Minute})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.Get(context.Background()) //nolint:errcheck // checked via cache state
	}()

	// Let the rebuild reach the vendor, then invalidate under it.
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)
	cache.Invalidate()
	close(src.gate)
	<-done

	assert.True(t, cache.ExpiresAt().IsZero(), "stale rebuild must not be cached")
}

func TestCachePartialRebuildNotCached(t *testing.T) {
	src := &fakeLister{failPage: 2}
	var vs []hikcentral.Vehicle
	for i := range 30 {
		vs = append(vs, v(string(rune('a'+i)), "P"+string(rune('A'+i)), "Owner"))
	}
	src.set(vs...)
	cache, _ := newTestCache(src, Options{TTL: time.Minute, PageSize: 10, Workers: 2})

	ix, err := cache.Get(context.Background())
	require.NoError(t, err)
	assert.Len(t, ix["Owner"], 20)
	assert.True(t, cache.ExpiresAt().IsZero())
}

func TestCacheFirstPageError(t *testing.T) {
	src := &fakeLister{failPage: 1}
	cache, _ := newTestCache(src, Options{})

	_, err := cache.Get(context.Background())
	var ve *hikcentral.VendorError
	assert.True(t, errors.As(err, &ve))
}

func TestBuildSkipsIncompleteRecords(t *testing.T) {
	ix := Build([]hikcentral.Vehicle{
		v("1", "", "Ana Quispe"),
		v("2", "ABC123", "  "),
		{VehicleID: "3", PlateNo: " def456 ", PersonName: "Ana Quispe ", EffectiveDate: "2026-01-01T00:00:00-05:00", ExpiredDate: "2027-12-31T23:59:59-05:00"},
	})

	require.Len(t, ix, 1)
	assert.Equal(t, []Summary{{
		PlateNo:       "DEF456",
		EffectiveDate: "2026-01-01T00:00:00-05:00",
		ExpiredDate:   "2027-12-31T23:59:59-05:00",
		VehicleID:     "3",
	}}, ix["Ana Quispe"])
}
