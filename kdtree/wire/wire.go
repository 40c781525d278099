// Package wire implements the optional on-disk serialization format for a
// built kd-tree (spec 6). This is ambient tooling, not part of the core
// acceleration structure: nothing in Build or RayIntersect depends on it,
// and a tree built in one process can be sent to another only through this
// package.
//
// Layout, all fields little-endian:
//
//	magic      [4]byte  "KDF1"
//	nodeCount  uint32
//	primCount  uint32
//	indirCount uint32
//	bboxMin    [3]float64
//	bboxMax    [3]float64
//	nodes      [nodeCount]{Tag, Payload uint32}
//	primIndex  [primCount]uint32
//	indirect   [indirCount]uint32
package wire

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/katalvlaran/kdforge/geom"
	"github.com/katalvlaran/kdforge/kdtree/node"
)

var magic = [4]byte{'K', 'D', 'F', '1'}

// ErrBadMagic is returned by Decode when the stream does not begin with
// the expected magic bytes.
var ErrBadMagic = errors.New("wire: not a kdforge tree stream")

// Snapshot is the subset of a built Tree's internal state that round-trips
// through the wire format. kdtree.Tree does not expose its packed fields
// directly; a caller that wants to serialize a Tree constructs a Snapshot
// from whatever accessors the tree package chooses to expose for this
// purpose.
type Snapshot struct {
	Nodes       []node.Node
	PrimIndices []uint32
	Indirection []uint32
	Box         geom.AABB
}

// Encode writes s to w in the wire format.
func Encode(w io.Writer, s Snapshot) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(magic[:]); err != nil {
		return err
	}
	header := []uint32{
		uint32(len(s.Nodes)),
		uint32(len(s.PrimIndices)),
		uint32(len(s.Indirection)),
	}
	for _, v := range header {
		if err := binary.Write(bw, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	box := []float64{
		s.Box.Min.X, s.Box.Min.Y, s.Box.Min.Z,
		s.Box.Max.X, s.Box.Max.Y, s.Box.Max.Z,
	}
	if err := binary.Write(bw, binary.LittleEndian, box); err != nil {
		return err
	}
	for _, n := range s.Nodes {
		if err := binary.Write(bw, binary.LittleEndian, n.Tag); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, n.Payload); err != nil {
			return err
		}
	}
	if err := binary.Write(bw, binary.LittleEndian, s.PrimIndices); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, s.Indirection); err != nil {
		return err
	}
	return bw.Flush()
}

// Decode reads a Snapshot previously written by Encode.
func Decode(r io.Reader) (Snapshot, error) {
	br := bufio.NewReader(r)
	var gotMagic [4]byte
	if _, err := io.ReadFull(br, gotMagic[:]); err != nil {
		return Snapshot{}, fmt.Errorf("wire: reading magic: %w", err)
	}
	if gotMagic != magic {
		return Snapshot{}, ErrBadMagic
	}

	var nodeCount, primCount, indirCount uint32
	for _, dst := range []*uint32{&nodeCount, &primCount, &indirCount} {
		if err := binary.Read(br, binary.LittleEndian, dst); err != nil {
			return Snapshot{}, fmt.Errorf("wire: reading header: %w", err)
		}
	}

	var box [6]float64
	if err := binary.Read(br, binary.LittleEndian, &box); err != nil {
		return Snapshot{}, fmt.Errorf("wire: reading bounding box: %w", err)
	}

	nodes := make([]node.Node, nodeCount)
	for i := range nodes {
		if err := binary.Read(br, binary.LittleEndian, &nodes[i].Tag); err != nil {
			return Snapshot{}, fmt.Errorf("wire: reading node %d tag: %w", i, err)
		}
		if err := binary.Read(br, binary.LittleEndian, &nodes[i].Payload); err != nil {
			return Snapshot{}, fmt.Errorf("wire: reading node %d payload: %w", i, err)
		}
	}

	primIndices := make([]uint32, primCount)
	if err := binary.Read(br, binary.LittleEndian, primIndices); err != nil {
		return Snapshot{}, fmt.Errorf("wire: reading primitive indices: %w", err)
	}

	indirection := make([]uint32, indirCount)
	if err := binary.Read(br, binary.LittleEndian, indirection); err != nil {
		return Snapshot{}, fmt.Errorf("wire: reading indirection table: %w", err)
	}

	return Snapshot{
		Nodes:       nodes,
		PrimIndices: primIndices,
		Indirection: indirection,
		Box: geom.AABB{
			Min: geom.Vec3{X: box[0], Y: box[1], Z: box[2]},
			Max: geom.Vec3{X: box[3], Y: box[4], Z: box[5]},
		},
	}, nil
}
