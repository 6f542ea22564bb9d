package view

import (
	"errors"
	"fmt"

	"github.com/notargets/dynview/layout"
	"github.com/notargets/dynview/memory"
)

// ErrInaccessible is returned when a deep copy is requested between views
// in mutually inaccessible memory, so neither side can run the remap. The
// dispatcher never allocates staging memory on the caller's behalf; see
// StageThroughHost for the explicit staged path.
var ErrInaccessible = errors.New("view: mutually inaccessible memory spaces")

func payloadScalars(v *View) int {
	if v.derivAware {
		return v.desc.DerivSize
	}
	return 1
}

// orderFree reports whether every dense kind lays these extents out
// identically, which holds when at most one slot is wider than one element.
// The derivative slot counts: a vector of multi-component elements is laid
// out differently by the two dense kinds.
func orderFree(d layout.Dims) bool {
	wide := 0
	for _, n := range d {
		if n > 1 {
			wide++
		}
	}
	return wide <= 1
}

func (v *View) region() memory.Region {
	return memory.Region{
		Alloc:   v.alloc,
		Offset:  v.off,
		Elem:    v.dtype,
		Dims:    v.desc.Dims,
		Strides: v.desc.Strides,
	}
}

// DeepCopy copies src's elements into dst, choosing the cheapest safe
// transfer: a single-element byte copy for rank-0 pairs, a bulk byte copy
// when the flattened layouts agree and leave no gaps, or an element-wise
// remap run on whichever side can address both storages. Pairs no strategy
// covers return ErrInaccessible with dst untouched.
func DeepCopy(dst, src *View) error {
	if dst.readOnly {
		panic(fmt.Sprintf("deep copy into read-only view %q", dst.name))
	}
	if dst.dtype != src.dtype {
		panic(fmt.Sprintf("deep copy %q <- %q: data types %s and %s differ",
			dst.name, src.name, dst.dtype, src.dtype))
	}
	if dst.alloc.BaseID() == src.alloc.BaseID() && dst.off == src.off {
		// Same storage, same window
		return nil
	}

	es := dst.dtype.Size()
	if dst.rank == 0 && src.rank == 0 {
		n := min(payloadScalars(dst), payloadScalars(src)) * es
		return memory.CopyBytes(dst.alloc, dst.off*es, src.alloc, src.off*es, n)
	}

	dstSpan := layout.Span(dst.desc.Dims, dst.desc.Strides)
	srcSpan := layout.Span(src.desc.Dims, src.desc.Strides)
	if dstSpan == srcSpan && dst.desc.Dims == src.desc.Dims &&
		dstSpan == dst.desc.Dims.Product() {
		denseDst := dst.kind != layout.Strided
		denseSrc := src.kind != layout.Strided
		bulk := false
		switch {
		case denseDst && denseSrc:
			bulk = dst.kind == src.kind || orderFree(dst.desc.Dims)
		case !denseDst && !denseSrc:
			bulk = dst.desc.Strides == src.desc.Strides
		}
		if bulk {
			return memory.CopyBytes(dst.alloc, dst.off*es, src.alloc, src.off*es, dstSpan*es)
		}
	}

	if dst.space.CanAccess(src.space) {
		return memory.Remap(dst.space, dst.region(), src.region())
	}
	if src.space.CanAccess(dst.space) {
		return memory.Remap(src.space, dst.region(), src.region())
	}
	return fmt.Errorf("deep copy %q (%s) <- %q (%s): %w",
		dst.name, dst.space.Name(), src.name, src.space.Name(), ErrInaccessible)
}

// StageThroughHost copies src into dst through freshly allocated host
// mirrors, the caller-side escape hatch for view pairs DeepCopy rejects.
// Both windows are staged whole, so storage outside the addressed elements
// keeps its prior contents.
func StageThroughHost(dst, src *View) error {
	if dst.readOnly {
		panic(fmt.Sprintf("deep copy into read-only view %q", dst.name))
	}
	if dst.dtype != src.dtype {
		panic(fmt.Sprintf("deep copy %q <- %q: data types %s and %s differ",
			dst.name, src.name, dst.dtype, src.dtype))
	}
	es := dst.dtype.Size()

	sm, err := hostMirror(src)
	if err != nil {
		return fmt.Errorf("staging %q: %w", src.name, err)
	}
	defer sm.Free()
	dm, err := hostMirror(dst)
	if err != nil {
		return fmt.Errorf("staging %q: %w", dst.name, err)
	}
	defer dm.Free()

	srcBytes := layout.Span(src.desc.Dims, src.desc.Strides) * es
	dstBytes := layout.Span(dst.desc.Dims, dst.desc.Strides) * es
	if err := memory.CopyBytes(sm.alloc, 0, src.alloc, src.off*es, srcBytes); err != nil {
		return fmt.Errorf("staging %q: %w", src.name, err)
	}
	if err := memory.CopyBytes(dm.alloc, 0, dst.alloc, dst.off*es, dstBytes); err != nil {
		return fmt.Errorf("staging %q: %w", dst.name, err)
	}
	if err := DeepCopy(dm, sm); err != nil {
		return err
	}
	return memory.CopyBytes(dst.alloc, dst.off*es, dm.alloc, 0, dstBytes)
}

// hostMirror builds a host-resident view with the same shape, rebased to
// offset zero of a fresh span-sized allocation
func hostMirror(v *View) (*View, error) {
	span := layout.Span(v.desc.Dims, v.desc.Strides)
	alloc, err := memory.Host().Alloc(span * v.dtype.Size())
	if err != nil {
		return nil, err
	}
	m := *v
	m.name = v.name + ".mirror"
	m.space = memory.Host()
	m.alloc = alloc
	m.off = 0
	m.readOnly = false
	return &m, nil
}
