package arena

import "unsafe"

// Allocate carves space for n values of T from a, returning an uninitialized
// slice of length n backed by the arena's storage, plus the Mark at which
// the allocation began. Space from a freshly appended slab is zero-valued;
// space reused after Release or Shrink keeps whatever bytes were last
// written there, since rewinding does not clear it. The slice
// remains valid until a.Release is called with a mark at or before this
// allocation's start.
func Allocate[T any](a *Arena, n int) ([]T, Mark) {
	var zero T
	sz := int(unsafe.Sizeof(zero))
	if n == 0 {
		return nil, a.Mark()
	}
	raw, mark := a.rawAllocate(sz * n)
	ptr := (*T)(unsafe.Pointer(unsafe.SliceData(raw)))
	return unsafe.Slice(ptr, n), mark
}

// Shrink reduces a previously-made allocation (identified by the slice it
// returned and its Mark) to newLen elements, returning the truncated slice.
// It assumes s was the most recent allocation at mark and that no
// allocation has happened since; callers violating this precondition get
// undefined results, matching Arena's ordered-allocator contract.
func Shrink[T any](a *Arena, mark Mark, s []T, newLen int) []T {
	if newLen >= len(s) {
		return s
	}
	var zero T
	sz := int(unsafe.Sizeof(zero))
	if mark.slab < len(a.slabs) {
		a.slabs[mark.slab].len = mark.offset + sz*newLen
	}
	return s[:newLen]
}
