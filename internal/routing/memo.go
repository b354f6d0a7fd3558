package routing

import (
	"context"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"
)

const (
	// memoTTL is how long a memoized route stays valid. Road networks do not
	// change at session timescales, but a short TTL keeps memory in check.
	memoTTL = 10 * time.Minute

	// geohashPrecision controls the spatial resolution of the memo key.
	// Precision 7 ≈ ±76m latitude / ±152m longitude cell, tight enough that
	// two distinct street addresses rarely share a cell pair.
	geohashPrecision = 7
)

// MemoRouter wraps another Router and memoizes its results in process memory,
// keyed by the geohash cells of both endpoints. Route results never touch
// disk or the database.
type MemoRouter struct {
	inner Router
	now   func() time.Time // overridable in tests

	mu      sync.Mutex
	entries map[string]memoEntry
}

type memoEntry struct {
	res       Result
	expiresAt time.Time
}

// NewMemoRouter wraps inner with an in-memory TTL memo.
func NewMemoRouter(inner Router) *MemoRouter {
	return &MemoRouter{
		inner:   inner,
		now:     time.Now,
		entries: make(map[string]memoEntry),
	}
}

// Route satisfies Router. A valid memo entry short-circuits the inner router;
// misses and expired entries fall through and are re-memoized on success.
func (m *MemoRouter) Route(ctx context.Context, req Request) (*Result, error) {
	key := memoKey(req)

	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && m.now().Before(e.expiresAt) {
		res := e.res
		m.mu.Unlock()
		return &res, nil
	}
	if ok {
		delete(m.entries, key)
	}
	m.mu.Unlock()

	res, err := m.inner.Route(ctx, req)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.entries[key] = memoEntry{res: *res, expiresAt: m.now().Add(memoTTL)}
	m.mu.Unlock()

	return res, nil
}

// memoKey identifies an origin/destination cell pair.
func memoKey(req Request) string {
	return geohash.EncodeWithPrecision(req.Origin.Lat, req.Origin.Lon, geohashPrecision) +
		"|" +
		geohash.EncodeWithPrecision(req.Destination.Lat, req.Destination.Lon, geohashPrecision)
}
