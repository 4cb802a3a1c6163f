package stock

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	OpSummarize  = "summarize"
	OpCategorize = "categorize"
)

// Digest identifies extract content; equal bytes give equal digests.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// MemoObserver receives cache lookups, e.g. for metrics.
type MemoObserver interface {
	MemoHit(op string)
	MemoMiss(op string)
}

// Memo caches Summarize and Categorize results per extract digest, query and
// reference day. A new day or a new extract is always a miss. Returned values
// are shared between callers and must be treated as read-only.
type Memo struct {
	mu      sync.Mutex
	max     int
	entries map[string]any
	order   []string
	group   singleflight.Group
	obs     MemoObserver
}

func NewMemo(maxEntries int, obs MemoObserver) *Memo {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Memo{max: maxEntries, entries: map[string]any{}, obs: obs}
}

func (m *Memo) Summarize(digest string, t *Table, ref time.Time) WarehouseSummary {
	key := memoKey(digest, OpSummarize, "", "", ref)
	v := m.do(OpSummarize, key, func() any { return Summarize(t, ref) })
	return v.(WarehouseSummary)
}

func (m *Memo) Categorize(digest string, t *Table, warehouse string, b Bucket, ref time.Time) CategorySummary {
	key := memoKey(digest, OpCategorize, warehouse, b, ref)
	v := m.do(OpCategorize, key, func() any { return Categorize(t, warehouse, b, ref) })
	return v.(CategorySummary)
}

// Len reports the number of cached results.
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memo) do(op, key string, compute func() any) any {
	m.mu.Lock()
	if v, ok := m.entries[key]; ok {
		m.mu.Unlock()
		m.hit(op)
		return v
	}
	m.mu.Unlock()
	m.miss(op)

	v, _, _ := m.group.Do(key, func() (any, error) {
		v := compute()
		m.store(key, v)
		return v, nil
	})
	return v
}

func (m *Memo) store(key string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[key]; ok {
		return
	}
	for len(m.order) >= m.max {
		delete(m.entries, m.order[0])
		m.order = m.order[1:]
	}
	m.entries[key] = v
	m.order = append(m.order, key)
}

func (m *Memo) hit(op string) {
	if m.obs != nil {
		m.obs.MemoHit(op)
	}
}

func (m *Memo) miss(op string) {
	if m.obs != nil {
		m.obs.MemoMiss(op)
	}
}

func memoKey(digest, op, warehouse string, b Bucket, ref time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s", digest, op, warehouse, b, Day(ref).Format("2006-01-02"))
}
