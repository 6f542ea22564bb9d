package view

import (
	"fmt"

	"github.com/notargets/dynview/layout"
)

type sliceKind int

const (
	sliceAll sliceKind = iota
	sliceIndex
	sliceRange
)

// Slice selects what a subview keeps of one spatial dimension
type Slice struct {
	kind   sliceKind
	lo, hi int
}

// All keeps the whole dimension
func All() Slice { return Slice{kind: sliceAll} }

// Index pins the dimension to one position and drops it from the result
func Index(i int) Slice { return Slice{kind: sliceIndex, lo: i} }

// Range keeps positions lo..hi-1 of the dimension
func Range(lo, hi int) Slice { return Slice{kind: sliceRange, lo: lo, hi: hi} }

// Subview derives a view over a subset of this view's elements, sharing
// storage by reference. One Slice per spatial dimension, outermost first;
// omitted trailing dimensions are kept whole. Index specs drop their
// dimension, so the result's rank is the number of kept dimensions. The
// derivative extent is always carried whole, and the result layout is
// always Strided.
func (v *View) Subview(name string, specs ...Slice) *View {
	if len(specs) > v.rank {
		panic(fmt.Sprintf("view %q: %d slice specs for rank %d", v.name, len(specs), v.rank))
	}

	off := v.off
	var nat Descriptor
	k := 0
	for slot := 0; slot < v.rank; slot++ {
		sp := All()
		if slot < len(specs) {
			sp = specs[slot]
		}
		n := v.desc.Dims[slot]
		switch sp.kind {
		case sliceAll:
			nat.Dims[k] = n
			nat.Strides[k] = v.desc.Strides[slot]
			k++
		case sliceIndex:
			if sp.lo < 0 || sp.lo >= n {
				panic(fmt.Sprintf("view %q: index %d out of range [0,%d) in dimension %d", v.name, sp.lo, n, slot))
			}
			off += sp.lo * v.desc.Strides[slot]
		case sliceRange:
			if sp.lo < 0 || sp.hi < sp.lo || sp.hi > n {
				panic(fmt.Sprintf("view %q: range [%d,%d) outside [0,%d) in dimension %d", v.name, sp.lo, sp.hi, n, slot))
			}
			off += sp.lo * v.desc.Strides[slot]
			nat.Dims[k] = sp.hi - sp.lo
			nat.Strides[k] = v.desc.Strides[slot]
			k++
		}
	}

	sub := &View{
		name:        name,
		dtype:       v.dtype,
		space:       v.space,
		alloc:       v.alloc,
		off:         off,
		rank:        k,
		kind:        layout.Strided,
		derivAware:  v.derivAware,
		staticWidth: v.staticWidth,
		readOnly:    v.readOnly,
	}
	if v.derivAware {
		nat.Dims[k] = v.desc.Dims[layout.MaxSlots-1]
		nat.Strides[k] = v.desc.Strides[layout.MaxSlots-1]
		sub.desc = transferDimsStrides(nat, k, v.staticWidth)
		sub.desc.DerivSize = v.desc.DerivSize
		sub.desc.DerivStride = v.desc.DerivStride
	} else {
		for i := k; i < layout.MaxSlots; i++ {
			nat.Dims[i] = 1
		}
		sub.desc = Descriptor{Dims: nat.Dims, Strides: nat.Strides}
	}
	return sub
}
