package squash

import "os"

var pageSize = os.Getpagesize()

// Buffer is a growable byte container with amortized doubling (spec §3
// Buffer). Its invariant is len(data) <= allocated, and allocated is
// either 0 or rounded up to the next power of two, floored at the
// system page size.
type Buffer struct {
	data      []byte
	allocated int
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer { return &Buffer{} }

// Bytes returns the buffer's current contents. The slice is valid until
// the next call to a mutating method.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int { return len(b.data) }

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() { b.data = b.data[:0] }

// nextPow2 rounds n up to the next power of two, floored at pageSize.
func nextPow2(n int) int {
	if n < pageSize {
		return pageSize
	}
	p := pageSize
	for p < n {
		p <<= 1
	}
	return p
}

// reserve ensures the backing array can hold at least n additional
// bytes beyond the current length, growing by doubling.
func (b *Buffer) reserve(n int) {
	need := len(b.data) + n
	if need <= b.allocated {
		return
	}
	newAlloc := nextPow2(need)
	grown := make([]byte, len(b.data), newAlloc)
	copy(grown, b.data)
	b.data = grown
	b.allocated = newAlloc
}

// Append appends p to the buffer, growing as needed.
func (b *Buffer) Append(p []byte) {
	b.reserve(len(p))
	b.data = append(b.data, p...)
}

// Grow extends the buffer by n zeroed bytes and returns the newly
// appended region so callers (e.g. a backend writing directly into it)
// can fill it in place.
func (b *Buffer) Grow(n int) []byte {
	b.reserve(n)
	start := len(b.data)
	b.data = b.data[:start+n]
	region := b.data[start : start+n]
	for i := range region {
		region[i] = 0
	}
	return region
}

// Truncate shrinks the buffer to n bytes; n must be <= Len().
func (b *Buffer) Truncate(n int) { b.data = b.data[:n] }
