// Package arena implements the decoder's bump allocator.
//
// An Arena serves every object decoded out of a single inbound protocol
// message. It never frees individual objects; Reset releases everything at
// once, which is the only free operation a message decode ever needs (see
// spec.md §4.1). Shaped like a small cursor type mutated in place, the
// way a builder-style codec is — except there the cursor walks a
// pre-existing slice, while here the cursor is the allocator itself.
package arena

import (
	"unsafe"
)

// DefaultBlockSize is the standard block size requested from the backing
// allocator. A result row that fits in one block causes zero further
// allocator traffic between PULL steps.
const DefaultBlockSize = 128 * 1024

// LargeAllocThreshold is the size above which a request gets its own
// dedicated block instead of being served from the head block.
const LargeAllocThreshold = 4 * 1024

// maxAlign is the strictest scalar alignment the arena guarantees for every
// returned allocation (matches the alignment of the widest scalar the value
// model stores: float64/int64/pointer).
const maxAlign = unsafe.Alignof(struct {
	_ float64
}{})

// block is one fixed- or oversized- allocation unit in the arena's list.
type block struct {
	buf  []byte
	used int
	next *block
}

func newBlock(size int) *block {
	return &block{buf: make([]byte, size)}
}

func (b *block) remaining() int {
	return len(b.buf) - b.used
}

// alloc serves n bytes from b's bump pointer, aligned to maxAlign. Returns
// nil if b cannot satisfy the request.
func (b *block) alloc(n int) []byte {
	aligned := alignUp(b.used, int(maxAlign))
	if aligned+n > len(b.buf) {
		return nil
	}
	b.used = aligned + n
	return b.buf[aligned : aligned+n : aligned+n]
}

func alignUp(off, align int) int {
	return (off + align - 1) &^ (align - 1)
}

// Arena is a linked list of blocks allocated from a backing Go allocator.
// It is not safe for concurrent use — a session owns exactly one Arena and
// uses it from a single goroutine, matching spec.md §5's single-threaded
// session model.
type Arena struct {
	head      *block
	blockSize int
}

// New creates an Arena with one standard-size head block.
func New() *Arena {
	return NewSize(DefaultBlockSize)
}

// NewSize creates an Arena whose standard block size is blockSize, used by
// tests that want to exercise block-rollover behavior without allocating
// DefaultBlockSize-sized blocks.
func NewSize(blockSize int) *Arena {
	return &Arena{
		head:      newBlock(blockSize),
		blockSize: blockSize,
	}
}

// AllocBytes returns n zeroed bytes, aligned for any scalar the value model
// stores. Requests larger than LargeAllocThreshold get their own block,
// inserted as the second element of the list so the head block's residual
// space is preserved for subsequent small allocations.
func (a *Arena) AllocBytes(n int) []byte {
	if n == 0 {
		return nil
	}
	if n > LargeAllocThreshold {
		nb := newBlock(n)
		out := nb.alloc(n)
		nb.next = a.head.next
		a.head.next = nb
		return out
	}
	if out := a.head.alloc(n); out != nil {
		return out
	}
	size := a.blockSize
	if n > size {
		size = n
	}
	nb := newBlock(size)
	out := nb.alloc(n)
	nb.next = a.head
	a.head = nb
	return out
}

// Reset frees every block except one retained, empty, standard-size head
// block. A subsequent allocation of at most blockSize bytes is then served
// without growing the list.
func (a *Arena) Reset() {
	a.head = newBlock(a.blockSize)
}

// BlockCount reports how many blocks currently make up the arena; tests use
// it to verify the Reset/rollover invariants from spec.md §8.
func (a *Arena) BlockCount() int {
	n := 0
	for b := a.head; b != nil; b = b.next {
		n++
	}
	return n
}

// Alloc allocates and zero-initializes one T from the arena and returns a
// pointer into arena-owned memory. The pointer is invalidated the moment
// Reset runs — callers that need to retain the value must copy it out
// (see value.Clone) before the next inbound message is read.
//
// T must be pointer-free (plain scalars/arrays of scalars). The backing
// storage is a []byte the Go runtime treats as containing no pointers; an
// arena-allocated struct whose fields hold Go pointers, slices, strings,
// interfaces, or maps would have those references invisible to the
// garbage collector and could be collected out from under it. The decoder
// therefore only arena-allocates leaf byte payloads (AllocString); the
// scalar structs (Date, Time, ...) are returned by value, and List/Map/
// Node and other pointer-carrying values are ordinary GC-managed Go
// allocations.
func Alloc[T any](a *Arena) *T {
	var zero T
	size := int(unsafe.Sizeof(zero))
	buf := a.AllocBytes(size)
	p := (*T)(unsafe.Pointer(unsafe.SliceData(buf)))
	*p = zero
	return p
}

// AllocSlice allocates an arena-owned slice of n Ts.
func AllocSlice[T any](a *Arena, n int) []T {
	if n == 0 {
		return nil
	}
	var zero T
	size := int(unsafe.Sizeof(zero))
	buf := a.AllocBytes(size * n)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(buf))), n)
}

// AllocString copies src into arena-owned bytes and returns a string
// header over them. The decoder uses this for every wire string so that
// no inbound bytes are retained after Reset via a borrowed slice.
func AllocString(a *Arena, src []byte) string {
	if len(src) == 0 {
		return ""
	}
	buf := a.AllocBytes(len(src))
	copy(buf, src)
	return unsafe.String(unsafe.SliceData(buf), len(buf))
}
