package node

import "sync"

// IndirectionTable holds absolute child-node indices for inner nodes whose
// relative offset would overflow the 28-bit field. Each build context owns
// one, appended to during construction by the goroutine building that
// context, and compaction builds one more on the dispatcher for the final
// node array. No instance is shared between goroutines, so the mutex sees
// no real contention.
type IndirectionTable struct {
	mu      sync.Mutex
	entries []uint32
}

// Append adds an absolute node-array index to the table and returns its
// table index, for use as the Offset field of an indirect inner node.
func (t *IndirectionTable) Append(absoluteNodeIndex uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, absoluteNodeIndex)
	return uint32(len(t.entries) - 1)
}

// At returns the absolute node-array index stored at table index i.
func (t *IndirectionTable) At(i uint32) uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[i]
}

// Len returns the number of entries in the table.
func (t *IndirectionTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Entries returns a copy of the table contents, in append order, for
// serialization.
func (t *IndirectionTable) Entries() []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]uint32, len(t.entries))
	copy(out, t.entries)
	return out
}
