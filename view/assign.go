package view

import (
	"fmt"

	"github.com/notargets/dynview/layout"
)

// Assign rebinds dst to src's elements. The storage handle is shared by
// reference, no elements move, and dst receives a fresh descriptor built
// through the rank-indexed transfer. A derivative-aware destination keeps
// src's derivative bookkeeping; an ordinary destination absorbs the
// derivative extent as a trailing spatial dimension.
func Assign(dst, src *View) {
	if dst.space != src.space {
		panic(fmt.Sprintf("assign %q <- %q: memory spaces %s and %s differ",
			dst.name, src.name, dst.space.Name(), src.space.Name()))
	}
	switch dst.kind {
	case layout.ColMajor, layout.RowMajor, layout.Strided:
	default:
		panic(fmt.Sprintf("assign %q <- %q: unsupported destination layout kind %d", dst.name, src.name, dst.kind))
	}
	if dst.kind != layout.Strided && dst.kind != src.kind {
		panic(fmt.Sprintf("assign %q <- %q: layout kinds %s and %s are incompatible",
			dst.name, src.name, dst.kind, src.kind))
	}
	if dst.dtype != src.dtype {
		panic(fmt.Sprintf("assign %q <- %q: data types %s and %s differ",
			dst.name, src.name, dst.dtype, src.dtype))
	}
	if src.readOnly && !dst.readOnly {
		panic(fmt.Sprintf("assign %q <- %q: writable destination for a read-only source", dst.name, src.name))
	}

	if !src.derivAware {
		if dst.derivAware {
			panic(fmt.Sprintf("assign %q <- %q: ordinary source for a derivative-aware destination", dst.name, src.name))
		}
		dst.desc = src.desc
		dst.rank = src.rank
		dst.alloc, dst.off = src.alloc, src.off
		return
	}

	if dst.derivAware && dst.staticWidth != 0 && dst.staticWidth != src.desc.DerivSize {
		panic(fmt.Sprintf("assign %q <- %q: static derivative width %d for source width %d",
			dst.name, src.name, dst.staticWidth, src.desc.DerivSize))
	}

	nat := naturalize(src.desc, src.rank)
	if dst.derivAware {
		if dst.kind == layout.Strided {
			dst.desc = transferDimsStrides(nat, src.rank, dst.staticWidth)
		} else {
			dims := transferDims(nat, src.rank, dst.staticWidth)
			dst.desc = Descriptor{Dims: dims, Strides: layout.DenseStrides(dst.kind, dims)}
		}
		dst.desc.DerivSize = src.desc.DerivSize
		dst.desc.DerivStride = dst.desc.Strides[layout.MaxSlots-1]
		dst.rank = src.rank
	} else {
		// Ordinary destination: the trailing extent is spatial now
		dims, strides := nat.Dims, nat.Strides
		if dst.kind != layout.Strided {
			strides = layout.DenseStrides(dst.kind, dims)
		}
		dst.desc = Descriptor{Dims: dims, Strides: strides}
		dst.rank = src.rank + 1
	}
	dst.alloc, dst.off = src.alloc, src.off
}

// Scalar returns an ordinary view of this view's storage with the
// derivative extent exposed as a trailing spatial dimension
func (v *View) Scalar() *View {
	s := &View{
		name:     v.name + ".scalar",
		dtype:    v.dtype,
		space:    v.space,
		kind:     v.kind,
		readOnly: v.readOnly,
	}
	Assign(s, v)
	return s
}
