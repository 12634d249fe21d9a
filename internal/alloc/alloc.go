// Package alloc implements the process-wide task allocator (§4.A): a
// singleton exposing alloc/realloc/free/size-of/did-alloc/heap-minimize
// over a backing Go heap, bookkept by an intrusive list of headers so
// that did-alloc and the leak sweep at teardown have something to walk.
package alloc

import (
	"sync"

	"github.com/ncw/comrt/internal/intrlist"
)

// Block is the opaque handle Alloc/Realloc return in place of a raw
// pointer; Go has no address-of-bytes-in-a-managed-heap concept, so
// the handle itself plays the role the original's `void *` return
// value does.
type Block struct {
	data []byte
	elem *intrlist.Element
}

// Bytes exposes the block's storage.
func (b *Block) Bytes() []byte { return b.data }

// Size returns the number of bytes requested for this block.
func (b *Block) Size() uint32 { return uint32(len(b.data)) }

// Allocator is the process-wide typed allocator. referenceCount is not
// tracked — it always reports 1 outstanding reference, because the
// allocator is never unloaded. The zero value is not usable; use New.
type Allocator struct {
	mu   sync.Mutex
	list *intrlist.List

	// maxSize, when non-zero, makes Alloc/Realloc fail (return nil)
	// for requests larger than it, the hook the §8 out-of-memory
	// rollback property exercises since Go's own allocator has no
	// practical failure path to trigger from a test.
	maxSize uint32
}

// New returns a freshly initialized Allocator with its allocation list
// empty.
func New() *Allocator {
	return &Allocator{list: intrlist.New()}
}

// SetMaxSize bounds the largest single allocation Alloc/Realloc will
// satisfy; zero means unbounded. Exists for tests that need to drive
// the out-of-memory path deterministically.
func (a *Allocator) SetMaxSize(n uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxSize = n
}

// RefCount always reports 1, per §4.A.
func (a *Allocator) RefCount() uint32 { return 1 }

// Alloc allocates an n-byte block, inserts its header at the tail of
// the process allocation list, and returns it. Returns nil on
// simulated out-of-memory (see SetMaxSize).
func (a *Allocator) Alloc(n uint32) *Block {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.maxSize != 0 && n > a.maxSize {
		return nil
	}
	b := &Block{data: make([]byte, n)}
	b.elem = a.list.PushBack(b)
	return b
}

// Realloc resizes b to n bytes under continuous exclusion: b's header
// is removed from the list, the resize is attempted, and on success a
// fresh header for the resized block is inserted; on (simulated)
// failure the original block is reinserted unchanged, at the tail of
// the list, and nil is returned. The whole sequence holds the lock throughout, standing in
// for the original's note that the backing realloc may relocate the
// block.
func (a *Allocator) Realloc(b *Block, n uint32) *Block {
	if b == nil {
		return a.Alloc(n)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.list.Remove(b.elem)
	if a.maxSize != 0 && n > a.maxSize {
		b.elem = a.list.PushBack(b)
		return nil
	}
	grown := make([]byte, n)
	copy(grown, b.data)
	b.data = grown
	b.elem = a.list.PushBack(b)
	return b
}

// Free removes b's header from the allocation list and releases it.
// Free(nil) is a no-op.
func (a *Allocator) Free(b *Block) {
	if b == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.list.Remove(b.elem)
	b.elem = nil
}

// SizeOf returns b's allocated size.
func (a *Allocator) SizeOf(b *Block) uint32 {
	if b == nil {
		return 0
	}
	return b.Size()
}

// DidAlloc reports whether b is currently tracked by this allocator's
// allocation list. O(n), acceptable because it is diagnostic only.
func (a *Allocator) DidAlloc(b *Block) bool {
	if b == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	found := false
	a.list.Each(func(e *intrlist.Element) {
		if e.Value.(*Block) == b {
			found = true
		}
	})
	return found
}

// HeapMinimize is a no-op, per §4.A.
func (a *Allocator) HeapMinimize() {}

// Outstanding returns the number of blocks currently allocated, used
// by the runtime teardown sweep to log how many leaked on the 1→0
// init-counter transition.
func (a *Allocator) Outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.list.Len()
}

// Close frees every remaining block, the debugging leak sweep that
// runs on the init counter's 1→0 transition, and returns how many
// blocks were still outstanding.
func (a *Allocator) Close() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.list.Len()
	for a.list.Len() > 0 {
		a.list.PopFront()
	}
	return n
}
