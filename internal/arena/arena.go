// Package arena implements per-thread ordered slab allocators and an
// append-only BlockedVector, the two memory primitives the kd-tree builder
// uses to accumulate edge events, nodes, and primitive indices during
// construction without synchronizing across worker goroutines.
//
// Neither type performs any locking; each build worker owns its own Arena
// and BlockedVector instances for the lifetime of its assigned subtree.
package arena

// slabSize is the minimum size, in bytes, of a slab appended to an Arena.
// The spec calls for "at least 512 KiB" per slab.
const slabSize = 512 * 1024

// Mark identifies a position within an Arena returned by Allocate, used to
// Release or Shrink back to that position.
type Mark struct {
	slab   int
	offset int
}

type slab struct {
	buf []byte
	len int // bytes currently carved from buf
}

// Arena is an ordered slab allocator. Allocations are carved from the
// current (last) slab; when a slab has insufficient room, a new one is
// appended. Release rewinds the arena to a previously returned Mark and
// must be called in strict LIFO order relative to the allocations it
// undoes -- the builder's sibling-subtree recursion already honors this
// discipline naturally. There is no locking: each goroutine must own its
// own Arena.
type Arena struct {
	slabs []*slab
}

// New returns an empty Arena. The first slab is allocated lazily on first
// use.
func New() *Arena {
	return &Arena{}
}

func sizeFor(n int) int {
	if n > slabSize {
		return n
	}
	return slabSize
}

// Mark returns a Mark for the current allocation position, suitable for a
// later Release or Shrink.
func (a *Arena) Mark() Mark {
	if len(a.slabs) == 0 {
		return Mark{slab: 0, offset: 0}
	}
	i := len(a.slabs) - 1
	return Mark{slab: i, offset: a.slabs[i].len}
}

// rawAllocate carves nbytes from the current slab, appending a new slab if
// there isn't enough room. It returns the byte slice and the Mark at which
// the allocation began.
func (a *Arena) rawAllocate(nbytes int) ([]byte, Mark) {
	if len(a.slabs) == 0 {
		a.slabs = append(a.slabs, &slab{buf: make([]byte, sizeFor(nbytes))})
	}
	cur := a.slabs[len(a.slabs)-1]
	if cur.len+nbytes > len(cur.buf) {
		a.slabs = append(a.slabs, &slab{buf: make([]byte, sizeFor(nbytes))})
		cur = a.slabs[len(a.slabs)-1]
	}
	start := cur.len
	cur.len += nbytes
	mark := Mark{slab: len(a.slabs) - 1, offset: start}
	return cur.buf[start:cur.len:cur.len], mark
}

// Release rewinds the arena to mark, freeing every allocation made after
// it. The caller must release in strict reverse order of allocation; an
// out-of-order release is a precondition violation and its effect is
// undefined (it may resurrect or corrupt unrelated allocations), matching
// the ordered-arena contract the original design assumes.
func (a *Arena) Release(mark Mark) {
	if len(a.slabs) == 0 {
		return
	}
	// Drop every slab strictly after the marked one.
	a.slabs = a.slabs[:mark.slab+1]
	a.slabs[mark.slab].len = mark.offset
}

// Cleanup frees all slabs, returning the arena to its zero state.
func (a *Arena) Cleanup() {
	a.slabs = nil
}

// Merge transfers ownership of other's slabs onto a without copying,
// appending them after a's own slabs. other is left empty. Used when the
// dispatcher collects a worker's arena contents after the worker exits its
// loop -- the two arenas never allocate concurrently once merged, since the
// worker that owned other has already retired it.
func (a *Arena) Merge(other *Arena) {
	a.slabs = append(a.slabs, other.slabs...)
	other.slabs = nil
}
