// Package sweep implements the O(n log n) edge-event split finder with
// perfect-split triangle re-clipping, the exact (as opposed to the
// approximate min-max-binned) SAH split search used once a subtree's
// primitive count drops below the builder's exact-primitive threshold.
package sweep

import (
	"sort"

	"github.com/katalvlaran/kdforge/geom"
)

// Kind is the type of boundary an EdgeEvent represents. The numeric values
// encode the sweep's tie-break order directly: at equal (axis, position),
// End events must be processed before Planar, which must be processed
// before Start, so that a primitive ending exactly where another starts is
// swept out before the new one is swept in.
type Kind uint8

const (
	KindEnd    Kind = 0
	KindPlanar Kind = 1
	KindStart  Kind = 2
)

// Event is one edge event: a primitive entering, coplanar with, or leaving
// a hypothetical sweep plane along Axis at Position.
type Event struct {
	Position float64
	Prim     uint32
	Axis     geom.Axis
	Kind     Kind
}

// Less defines the total order events are sorted under: by axis, then
// position, then kind (End < Planar < Start).
func Less(a, b Event) bool {
	if a.Axis != b.Axis {
		return a.Axis < b.Axis
	}
	if a.Position != b.Position {
		return a.Position < b.Position
	}
	return a.Kind < b.Kind
}

// Sort sorts events in place under Less. It is not guaranteed stable;
// nothing in the sweep depends on the relative order of events that
// compare equal under Less.
func Sort(events []Event) {
	sort.Slice(events, func(i, j int) bool { return Less(events[i], events[j]) })
}

// BuildEvents produces the edge events for one primitive (identified by
// prim, with bounding box box) across all three axes: a single Planar
// event on an axis where box.Min == box.Max, or a Start/End pair
// otherwise. dst is appended to and returned, letting callers reuse a
// backing array across primitives.
func BuildEvents(dst []Event, prim uint32, box geom.AABB) []Event {
	for _, axis := range [3]geom.Axis{geom.AxisX, geom.AxisY, geom.AxisZ} {
		lo := box.Min.Get(axis)
		hi := box.Max.Get(axis)
		if lo == hi {
			dst = append(dst, Event{Position: lo, Prim: prim, Axis: axis, Kind: KindPlanar})
		} else {
			dst = append(dst, Event{Position: lo, Prim: prim, Axis: axis, Kind: KindStart})
			dst = append(dst, Event{Position: hi, Prim: prim, Axis: axis, Kind: KindEnd})
		}
	}
	return dst
}

// MergeSorted merges two already-sorted (under Less) event slices into a
// single sorted slice, used when partitioning combines left/right-only
// events carried over from the parent with freshly generated, freshly
// sorted events from perfect-split re-clipping.
func MergeSorted(a, b []Event) []Event {
	out := make([]Event, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if Less(a[i], b[j]) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
