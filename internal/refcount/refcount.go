// Package refcount implements the atomic strong-reference counter and the
// weak-reference-with-age-snapshot pattern that let cells be recycled
// safely while other goroutines still hold stale pointers to them.
//
// The pattern mirrors the shadow-memory generation counters the teacher
// repo uses to tell a stale epoch from a live one (see internal/race/epoch),
// applied here to whole-object recycling instead of a single integer.
package refcount

import "sync/atomic"

// Counter is an atomic strong-reference count. A cell keeps one "artificial"
// reference alive for as long as a search owns it (see Bump), released
// explicitly when the cell is marked complete; transient references taken
// while traversing the frontier are acquired with CreateRef and released
// with Release.
type Counter struct {
	n atomic.Int32
}

// Bump adds a reference without creating a matching Release call site of
// its own -- used for the artificial reference that keeps a cell alive for
// the duration of its ownership.
func (c *Counter) Bump() { c.n.Add(1) }

// CreateRef attempts to add a live reference. It fails (ok=false) iff the
// count was already zero, meaning the referent is being or has been
// recycled and must not be touched.
func (c *Counter) CreateRef() (ok bool) {
	for {
		cur := c.n.Load()
		if cur == 0 {
			return false
		}
		if c.n.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// Release drops one reference and reports whether the count reached zero.
func (c *Counter) Release() (zero bool) {
	return c.n.Add(-1) == 0
}

// Load returns the current count, for diagnostics only.
func (c *Counter) Load() int32 { return c.n.Load() }

// Ref is a live strong reference obtained from a Counter. It must be
// released exactly once, typically via defer.
type Ref struct {
	counter *Counter
	closed  bool
}

// Promote turns the counter into a live Ref, or reports failure if the
// referent is already being recycled.
func (c *Counter) Promote() (Ref, bool) {
	if !c.CreateRef() {
		return Ref{}, false
	}
	return Ref{counter: c}, true
}

// Valid reports whether this Ref actually holds a live reference.
func (r Ref) Valid() bool { return r.counter != nil }

// Release drops the reference. It reports whether the count reached zero
// as a result, so the caller can decide whether the referent is now
// eligible for recycling. Calling Release more than once is a no-op.
func (r *Ref) Release() (zero bool) {
	if r.counter == nil || r.closed {
		return false
	}
	r.closed = true
	return r.counter.Release()
}

// Aged is implemented by referents that carry a recycling generation
// counter, bumped every time the object starts a new life.
type Aged interface {
	CurrentAge() uint32
}

// WeakRef is a (pointer, age-snapshot) pair: a reference that survives
// recycling of its target by going stale rather than dangling. It is
// Expired iff the target's current age no longer matches the snapshot
// taken when the WeakRef was created. *T must implement Aged.
type WeakRef[T any] struct {
	Ptr      *T
	AgeAtRef uint32
}

// Expired reports whether the target has since been recycled (or this is
// the zero-value sentinel reference).
func (w WeakRef[T]) Expired() bool {
	if w.Ptr == nil {
		return true
	}
	return any(w.Ptr).(Aged).CurrentAge() != w.AgeAtRef
}

// Zero reports whether this is the sentinel "no reference" value.
func (w WeakRef[T]) Zero() bool { return w.Ptr == nil }
