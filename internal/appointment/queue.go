package appointment

import (
	"time"

	"github.com/google/btree"
)

const poolDegree = 16

type poolItem struct {
	start time.Time
	id    SlotID
	date  string
}

func poolLess(a, b poolItem) bool {
	if !a.start.Equal(b.start) {
		return a.start.Before(b.start)
	}
	return a.id < b.id
}

// DateQueue keeps one ordered pool of unbooked slot ids per calendar date.
//
// Each pool is a B-tree ordered by (start, id), so the earliest slot is the
// minimum and any member can be removed in O(log n) without disturbing the
// order of the rest. The members map resolves an id to its tree key.
type DateQueue struct {
	pools   map[string]*btree.BTreeG[poolItem]
	members map[SlotID]poolItem
}

func NewDateQueue() *DateQueue {
	return &DateQueue{
		pools:   make(map[string]*btree.BTreeG[poolItem]),
		members: make(map[SlotID]poolItem),
	}
}

// Insert adds id to the pool for date at its sorted position, creating the
// pool if needed. Re-inserting a member moves it.
func (q *DateQueue) Insert(date string, id SlotID, start time.Time) {
	if old, ok := q.members[id]; ok {
		q.remove(old)
	}

	pool, ok := q.pools[date]
	if !ok {
		pool = btree.NewG[poolItem](poolDegree, poolLess)
		q.pools[date] = pool
	}

	item := poolItem{start: start, id: id, date: date}
	pool.ReplaceOrInsert(item)
	q.members[id] = item
}

// ExtractByID removes id from the pool for date. It reports false when the
// pool is empty or absent, or id is not in that pool.
func (q *DateQueue) ExtractByID(date string, id SlotID) bool {
	item, ok := q.members[id]
	if !ok || item.date != date {
		return false
	}
	q.remove(item)
	return true
}

// PopMin removes and returns the earliest id in the pool for date.
func (q *DateQueue) PopMin(date string) (SlotID, bool) {
	pool, ok := q.pools[date]
	if !ok {
		return 0, false
	}
	item, ok := pool.Min()
	if !ok {
		return 0, false
	}
	q.remove(item)
	return item.id, true
}

// Earliest returns the minimum of the pool for date without removing it.
func (q *DateQueue) Earliest(date string) (SlotID, bool) {
	pool, ok := q.pools[date]
	if !ok {
		return 0, false
	}
	item, ok := pool.Min()
	if !ok {
		return 0, false
	}
	return item.id, true
}

// PeekOrdered returns the pool for date in ascending order. The slice is
// built fresh on every call.
func (q *DateQueue) PeekOrdered(date string) []SlotID {
	pool, ok := q.pools[date]
	if !ok {
		return nil
	}
	ids := make([]SlotID, 0, pool.Len())
	pool.Ascend(func(item poolItem) bool {
		ids = append(ids, item.id)
		return true
	})
	return ids
}

// Len is the number of ids pooled under date.
func (q *DateQueue) Len(date string) int {
	pool, ok := q.pools[date]
	if !ok {
		return 0
	}
	return pool.Len()
}

// Total is the number of ids across all pools.
func (q *DateQueue) Total() int {
	return len(q.members)
}

func (q *DateQueue) remove(item poolItem) {
	delete(q.members, item.id)
	pool, ok := q.pools[item.date]
	if !ok {
		return
	}
	pool.Delete(item)
	if pool.Len() == 0 {
		delete(q.pools, item.date)
	}
}
