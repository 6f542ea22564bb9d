package memory

import (
	"fmt"

	"github.com/notargets/dynview/layout"
)

// Region describes a strided scalar region inside an allocation: the
// element-wise remap operates on a pair of these. Offset and Strides are in
// scalar units; byte positions are scaled by Elem.Size().
type Region struct {
	Alloc   Allocation
	Offset  int
	Elem    DataType
	Dims    layout.Dims
	Strides layout.Strides
}

// spanBytes returns the byte extent of the region, from the allocation base
// through the last addressable scalar
func (r Region) spanBytes() int {
	return (r.Offset + layout.Span(r.Dims, r.Strides)) * r.Elem.Size()
}

// Remap performs an element-wise strided copy between two regions of the
// same scalar type, executing in the given space. Extents are intersected
// per slot: slot i copies min(dst.Dims[i], src.Dims[i]) entries. The
// executing space must be able to address both regions; deciding which side
// executes is the deep-copy dispatcher's job, not this primitive's.
func Remap(exec Space, dst, src Region) error {
	if dst.Elem != src.Elem {
		return fmt.Errorf("memory: remap between %s and %s regions", dst.Elem, src.Elem)
	}
	if !exec.CanAccess(dst.Alloc.Space()) || !exec.CanAccess(src.Alloc.Space()) {
		return fmt.Errorf("%w: %s cannot address both regions", ErrWrongDevice, exec.Name())
	}

	total := 1
	for i := 0; i < layout.MaxSlots; i++ {
		total *= min(dst.Dims[i], src.Dims[i])
	}
	if total == 0 {
		return nil
	}

	if d, ok := exec.(*DeviceSpace); ok {
		return d.remap(dst, src, total)
	}
	return remapStaged(dst, src)
}

// remapStaged runs the remap loop in host code. Host-resident regions are
// addressed in place; anything else is staged in and written back.
func remapStaged(dst, src Region) error {
	srcB, srcDirect := hostBytes(src.Alloc)
	if !srcDirect {
		srcB = make([]byte, src.spanBytes())
		if err := src.Alloc.ReadAt(srcB, 0); err != nil {
			return err
		}
	}

	dstB, dstDirect := hostBytes(dst.Alloc)
	if !dstDirect {
		// Read-modify-write: the intersection may not cover the region
		dstB = make([]byte, dst.spanBytes())
		if err := dst.Alloc.ReadAt(dstB, 0); err != nil {
			return err
		}
	}

	remapBytes(dstB, srcB, dst, src)

	if !dstDirect {
		return dst.Alloc.WriteAt(dstB, 0)
	}
	return nil
}

func hostBytes(a Allocation) ([]byte, bool) {
	if h, ok := a.(HostAllocation); ok {
		return h.Bytes(), true
	}
	return nil, false
}

// remapBytes walks the extent intersection with an odometer over the eight
// slots, copying one element's bytes per step
func remapBytes(dstB, srcB []byte, dst, src Region) {
	es := dst.Elem.Size()
	var n [layout.MaxSlots]int
	for i := range n {
		n[i] = min(dst.Dims[i], src.Dims[i])
		if n[i] == 0 {
			return
		}
	}

	var idx [layout.MaxSlots]int
	for {
		so, do := src.Offset, dst.Offset
		for i := 0; i < layout.MaxSlots; i++ {
			so += idx[i] * src.Strides[i]
			do += idx[i] * dst.Strides[i]
		}
		copy(dstB[do*es:(do+1)*es], srcB[so*es:(so+1)*es])

		k := layout.MaxSlots - 1
		for k >= 0 {
			idx[k]++
			if idx[k] < n[k] {
				break
			}
			idx[k] = 0
			k--
		}
		if k < 0 {
			return
		}
	}
}
