package view

import (
	"fmt"

	"github.com/notargets/dynview/layout"
)

// Descriptor is the runtime shape record carried by a constructed view:
// canonical dims and strides in scalar units, with the derivative extent
// in slot 7, plus the derivative size and stride kept as separate scalars
// for hot-path element access. Descriptors are never mutated in place;
// every derivation produces a fresh one.
type Descriptor struct {
	Dims        layout.Dims
	Strides     layout.Strides
	DerivSize   int
	DerivStride int
}

// transferDimsStrides derives a canonical descriptor from a natural-order
// source at the given spatial rank. In natural order the derivative pair
// sits in the first slot past the spatial extents, the order layout
// requests and subview specifications are written in. Slots 0..rank-1
// carry over verbatim, the unused spatial slots collapse to extent 1 and
// stride 0, and the slot-rank pair lands in slot 7. A nonzero staticWidth
// pins the slot-7 extent instead of reading it from the source.
func transferDimsStrides(s Descriptor, rank, staticWidth int) Descriptor {
	var d Descriptor
	switch rank {
	case 0:
		d.Dims = layout.Dims{1, 1, 1, 1, 1, 1, 1, 1}
		d.Strides = layout.Strides{0, 0, 0, 0, 0, 0, 0, s.Strides[0]}
	case 1:
		d.Dims = layout.Dims{s.Dims[0], 1, 1, 1, 1, 1, 1, 1}
		d.Strides = layout.Strides{s.Strides[0], 0, 0, 0, 0, 0, 0, s.Strides[1]}
	case 2:
		d.Dims = layout.Dims{s.Dims[0], s.Dims[1], 1, 1, 1, 1, 1, 1}
		d.Strides = layout.Strides{s.Strides[0], s.Strides[1], 0, 0, 0, 0, 0, s.Strides[2]}
	case 3:
		d.Dims = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], 1, 1, 1, 1, 1}
		d.Strides = layout.Strides{s.Strides[0], s.Strides[1], s.Strides[2], 0, 0, 0, 0, s.Strides[3]}
	case 4:
		d.Dims = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], 1, 1, 1, 1}
		d.Strides = layout.Strides{s.Strides[0], s.Strides[1], s.Strides[2], s.Strides[3], 0, 0, 0, s.Strides[4]}
	case 5:
		d.Dims = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], s.Dims[4], 1, 1, 1}
		d.Strides = layout.Strides{s.Strides[0], s.Strides[1], s.Strides[2], s.Strides[3], s.Strides[4], 0, 0, s.Strides[5]}
	case 6:
		d.Dims = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], s.Dims[4], s.Dims[5], 1, 1}
		d.Strides = layout.Strides{s.Strides[0], s.Strides[1], s.Strides[2], s.Strides[3], s.Strides[4], s.Strides[5], 0, s.Strides[6]}
	case 7:
		d.Dims = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], s.Dims[4], s.Dims[5], s.Dims[6], 1}
		d.Strides = layout.Strides{s.Strides[0], s.Strides[1], s.Strides[2], s.Strides[3], s.Strides[4], s.Strides[5], s.Strides[6], s.Strides[7]}
	default:
		panic(fmt.Sprintf("view: spatial rank %d out of range", rank))
	}
	// The derivative extent is read from the source only when sized at
	// runtime; a static width is already known to the destination
	if staticWidth != 0 {
		d.Dims[layout.MaxSlots-1] = staticWidth
	} else {
		d.Dims[layout.MaxSlots-1] = s.Dims[rank]
	}
	return d
}

// transferDims is the dimension-only variant of the rank-indexed transfer,
// used when the destination recomputes packed strides from its own kind
func transferDims(s Descriptor, rank, staticWidth int) layout.Dims {
	var d layout.Dims
	switch rank {
	case 0:
		d = layout.Dims{1, 1, 1, 1, 1, 1, 1, 1}
	case 1:
		d = layout.Dims{s.Dims[0], 1, 1, 1, 1, 1, 1, 1}
	case 2:
		d = layout.Dims{s.Dims[0], s.Dims[1], 1, 1, 1, 1, 1, 1}
	case 3:
		d = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], 1, 1, 1, 1, 1}
	case 4:
		d = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], 1, 1, 1, 1}
	case 5:
		d = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], s.Dims[4], 1, 1, 1}
	case 6:
		d = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], s.Dims[4], s.Dims[5], 1, 1}
	case 7:
		d = layout.Dims{s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], s.Dims[4], s.Dims[5], s.Dims[6], 1}
	default:
		panic(fmt.Sprintf("view: spatial rank %d out of range", rank))
	}
	if staticWidth != 0 {
		d[layout.MaxSlots-1] = staticWidth
	} else {
		d[layout.MaxSlots-1] = s.Dims[rank]
	}
	return d
}

// naturalize is the inverse of the transfer: it rewrites a canonical
// descriptor with the derivative pair moved from slot 7 back to the first
// slot past the spatial rank
func naturalize(d Descriptor, rank int) Descriptor {
	var n Descriptor
	for i := 0; i < rank; i++ {
		n.Dims[i] = d.Dims[i]
		n.Strides[i] = d.Strides[i]
	}
	n.Dims[rank] = d.Dims[layout.MaxSlots-1]
	n.Strides[rank] = d.Strides[layout.MaxSlots-1]
	for i := rank + 1; i < layout.MaxSlots; i++ {
		n.Dims[i] = 1
	}
	n.DerivSize = d.DerivSize
	n.DerivStride = d.DerivStride
	return n
}
