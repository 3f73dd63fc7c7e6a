package squash

import "sync/atomic"

// refCount implements the "floating reference" pattern (spec §9): an
// object can be created floating (count == 0, floating == true) so that
// the first Ref performed by a retaining call converts it into a
// regular reference, while a caller that never hands the object to a
// retaining call must Unref it explicitly. Once any Ref has happened,
// floating is cleared and further Unrefs decrement normally.
//
// Mirrors the sync/atomic increment/decrement pattern used throughout
// distri (e.g. atexit.go's closed flag) generalized to a refcount.
type refCount struct {
	n        int32
	floating int32 // 1 while floating, 0 once a real ref has been taken
	destroy  func()
}

func newFloatingRef(destroy func()) refCount {
	return refCount{n: 0, floating: 1, destroy: destroy}
}

func newOwnedRef(destroy func()) refCount {
	return refCount{n: 1, floating: 0, destroy: destroy}
}

// ref takes a strong reference. The first ref on a floating object
// consumes the floating state instead of incrementing the count.
func (r *refCount) ref() {
	if atomic.CompareAndSwapInt32(&r.floating, 1, 0) {
		atomic.StoreInt32(&r.n, 1)
		return
	}
	atomic.AddInt32(&r.n, 1)
}

// unref releases a strong reference, or sinks a floating reference to
// zero and destroys it. The final decrement publishes all prior writes
// via the acquire-release semantics of atomic.AddInt32.
func (r *refCount) unref() {
	if atomic.CompareAndSwapInt32(&r.floating, 1, 0) {
		if r.destroy != nil {
			r.destroy()
		}
		return
	}
	if atomic.AddInt32(&r.n, -1) == 0 {
		if r.destroy != nil {
			r.destroy()
		}
	}
}

// refs reports the current strong-reference count (0 while floating).
func (r *refCount) refs() int32 { return atomic.LoadInt32(&r.n) }
