package cache

import (
	"sync"
	"time"

	"finance/internal/core"
)

const (
	seriesKey    = "income-vs-expense"
	breakdownKey = "expenses-by-category"
)

// Reports holds the two chart datasets. Any write to the transactions
// table must call Invalidate.
//
// Readers take Generation before querying and pass it back to SetSeries or
// SetBreakdown. A result computed before an Invalidate is dropped, so a slow
// query racing a write never repopulates the cache with stale totals.
type Reports struct {
	mu        sync.Mutex
	gen       uint64
	series    *LRUCache[[]core.DailyTotals]
	breakdown *LRUCache[[]core.CategoryTotal]
}

func NewReports(ttl time.Duration) *Reports {
	return &Reports{
		series:    NewLRUCache[[]core.DailyTotals](1, ttl),
		breakdown: NewLRUCache[[]core.CategoryTotal](1, ttl),
	}
}

func (r *Reports) Series() ([]core.DailyTotals, bool) {
	return r.series.Get(seriesKey)
}

// Generation identifies the current cache epoch.
func (r *Reports) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// SetSeries stores v unless the cache was invalidated since gen was taken.
func (r *Reports) SetSeries(gen uint64, v []core.DailyTotals) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	r.series.Set(seriesKey, v)
	return true
}

func (r *Reports) Breakdown() ([]core.CategoryTotal, bool) {
	return r.breakdown.Get(breakdownKey)
}

func (r *Reports) SetBreakdown(gen uint64, v []core.CategoryTotal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	r.breakdown.Set(breakdownKey, v)
	return true
}

func (r *Reports) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.series.Clear()
	r.breakdown.Clear()
}

// Register hands both caches to m for expiry cleanup.
func (r *Reports) Register(m *Manager) {
	m.Register(r.series)
	m.Register(r.breakdown)
}

// Entries is the number of cached datasets, 0 to 2.
func (r *Reports) Entries() int {
	return r.series.Size() + r.breakdown.Size()
}
