// Package blockedlist implements the lock-free, append-only list used to
// record which searches are blocked on a cell becoming complete.
//
// The first 2^P entries live inline; once that fills up, further buckets
// of geometrically increasing size are allocated on first need via a
// double-checked compare-and-swap, the way the original C++ blockedList.hpp
// grows past its inline buffer. Entries are never deleted in place -- a
// reader tolerates stale or nil slots and re-validates each candidate
// itself (see internal/suspension). Reset clears every slot and is only
// safe to call once the cell is no longer referenced by anyone.
package blockedlist

import (
	"sync/atomic"

	"github.com/parascc/partarjan/internal/invariant"
)

// DefaultP is the spec's default inline-bucket exponent: 2^3 = 8 entries.
const DefaultP = 3

// maxBuckets bounds the total number of buckets (1 inline + 7 overflow).
// Exceeding it is an unrecoverable invariant violation -- it would mean a
// single cell has on the order of 2^(P*8) searches blocked on it.
const maxBuckets = 8

// List is a lock-free append-only sequence of *T, indexed by a single
// fetch-add counter (head). It is safe for any number of concurrent
// PushBack callers; ForEach/Reset are meant to be called only when the
// owning cell is known to be complete (no further PushBack can race them
// in a way that matters -- stale entries are tolerated, not prevented).
type List[T any] struct {
	p      uint
	base   int
	sums   []int // sums[i] = total capacity through bucket i, inclusive
	powers []int // powers[i] = capacity of bucket i
	head   atomic.Int64
	first  []atomic.Pointer[T]
	bufs   []atomic.Pointer[[]atomic.Pointer[T]]
}

// New builds a List whose inline bucket holds 2^p entries. p=0 selects
// DefaultP.
func New[T any](p uint) *List[T] {
	if p == 0 {
		p = DefaultP
	}
	base := 1 << p
	powers := make([]int, maxBuckets)
	sums := make([]int, maxBuckets)
	powers[0] = base
	sums[0] = base
	for i := 1; i < maxBuckets; i++ {
		powers[i] = powers[i-1] << p
		sums[i] = sums[i-1] + powers[i]
	}
	return &List[T]{
		p:      p,
		base:   base,
		sums:   sums,
		powers: powers,
		first:  make([]atomic.Pointer[T], base),
		bufs:   make([]atomic.Pointer[[]atomic.Pointer[T]], maxBuckets),
	}
}

// findBucket returns the bucket index owning global slot idx (idx >= base).
func (l *List[T]) findBucket(idx int) int {
	loc := 0
	for idx >= l.sums[loc] {
		loc++
	}
	return loc
}

// PushBack appends item into a slot assigned by a unique fetch-add on
// head. Panics if the list's total capacity (across all buckets) is
// exhausted -- see spec.md §4.2, "overflowing N_BUFS is a fatal error".
func (l *List[T]) PushBack(item *T) {
	idx := int(l.head.Add(1) - 1)

	if idx < l.base {
		l.first[idx].Store(item)
		return
	}

	if idx >= l.sums[maxBuckets-1] {
		invariant.Raise("blockedlist", "overflow past %d buckets", maxBuckets)
	}

	bucket := l.findBucket(idx)
	pos := idx - l.sums[bucket-1]

	b := l.bufs[bucket].Load()
	if b == nil {
		newBuf := make([]atomic.Pointer[T], l.powers[bucket])
		if l.bufs[bucket].CompareAndSwap(nil, &newBuf) {
			b = &newBuf
		} else {
			b = l.bufs[bucket].Load()
		}
	}
	(*b)[pos].Store(item)
}

// Size returns the number of slots handed out by PushBack so far, counting
// calls whose store may not have landed yet (an upper bound on live
// entries, since Reset is the only thing that removes entries and it also
// zeroes head).
func (l *List[T]) Size() int { return int(l.head.Load()) }

// isSmallList reports whether size fits entirely within the inline bucket,
// letting callers take the fast scan path.
func (l *List[T]) isSmallList(size int) bool { return size <= l.base }

// ForEach visits every occupied slot (skipping nils left by Reset or by
// slow writers that haven't landed yet). It fast-paths the common case
// where the list never grew past its inline bucket.
func (l *List[T]) ForEach(visit func(item *T)) {
	size := l.Size()
	if size > l.sums[maxBuckets-1] {
		size = l.sums[maxBuckets-1]
	}

	limit := size
	if limit > l.base {
		limit = l.base
	}
	for i := 0; i < limit; i++ {
		if v := l.first[i].Load(); v != nil {
			visit(v)
		}
	}
	if l.isSmallList(size) {
		return
	}

	for i := l.base; i < size; i++ {
		bucket := l.findBucket(i)
		pos := i - l.sums[bucket-1]
		b := l.bufs[bucket].Load()
		if b == nil {
			continue
		}
		if v := (*b)[pos].Load(); v != nil {
			visit(v)
		}
	}
}

// Reset clears every written slot and rewinds head to zero. Must only be
// called when the list's owning cell is being recycled and is therefore no
// longer reachable from any in-flight PushBack.
func (l *List[T]) Reset() {
	if l.head.Load() == 0 {
		return
	}
	for i := range l.first {
		l.first[i].Store(nil)
	}
	for i := 1; i < maxBuckets; i++ {
		if b := l.bufs[i].Load(); b != nil {
			for j := range *b {
				(*b)[j].Store(nil)
			}
		}
	}
	l.head.Store(0)
}
