// Package layout provides the dimension and stride bookkeeping for
// dynamic-rank views: rank computation over partially specified extent
// vectors and canonicalization of the derivative extent into the last slot.
package layout

// A view addresses up to MaxSlots extents. Slot MaxSlots-1 is reserved for
// the derivative extent, so the highest spatial rank is MaxRank.
const (
	MaxSlots = 8
	MaxRank  = 7
)

// Unspecified marks an extent or stride slot the caller did not supply
const Unspecified = -1

// Kind identifies how a layout maps indices to storage
type Kind int

const (
	ColMajor Kind = iota // leftmost index fastest
	RowMajor             // rightmost index fastest
	Strided              // caller-supplied strides
)

// String returns a human-readable layout kind name
func (k Kind) String() string {
	switch k {
	case ColMajor:
		return "column-major"
	case RowMajor:
		return "row-major"
	case Strided:
		return "strided"
	default:
		return "unknown"
	}
}

// Dims holds the eight extent slots of a layout request or canonical layout
type Dims [MaxSlots]int

// Strides holds the per-slot strides, in scalar units
type Strides [MaxSlots]int

// Layout pairs an extent vector with its kind and, for Strided layouts,
// the parallel stride vector
type Layout struct {
	Kind    Kind
	Dims    Dims
	Strides Strides
}

// NewDims builds an extent vector from up to MaxSlots extents, marking the
// remaining slots Unspecified
func NewDims(extents ...int) Dims {
	if len(extents) > MaxSlots {
		panic("layout: more than 8 extents")
	}
	var d Dims
	for i := range d {
		d[i] = Unspecified
	}
	copy(d[:], extents)
	return d
}

// NewStrides builds a stride vector from up to MaxSlots strides, marking the
// remaining slots Unspecified
func NewStrides(strides ...int) Strides {
	if len(strides) > MaxSlots {
		panic("layout: more than 8 strides")
	}
	var s Strides
	for i := range s {
		s[i] = Unspecified
	}
	copy(s[:], strides)
	return s
}

// Product returns the product of all extent slots. Unspecified slots count
// as 1, so the product of a canonical layout is its dense scalar count
func (d Dims) Product() int {
	p := 1
	for _, n := range d {
		if n == Unspecified {
			continue
		}
		p *= n
	}
	return p
}

// ComputeRank returns the rank encoded by a partially specified extent
// vector: the index of the highest specified slot, or 0 when every slot is
// Unspecified. Callers specify extents contiguously from slot 0, with the
// derivative extent last, so a request carrying k spatial extents plus the
// derivative extent resolves to rank k. The function is total: holes in the
// pattern still resolve to the highest specified index.
func ComputeRank(d Dims) int {
	for i := MaxSlots - 1; i > 0; i-- {
		if d[i] != Unspecified {
			return i
		}
	}
	return 0
}

// CountSpecified returns the number of specified slots. Ordinary views,
// which carry no derivative extent, take their rank from this count
func CountSpecified(d Dims) int {
	n := 0
	for _, v := range d {
		if v != Unspecified {
			n++
		}
	}
	return n
}

// Canonicalize rewrites a layout request so the derivative extent occupies
// the last slot. Every unspecified extent defaults to 1, then the extent at
// the rank index (the last one the caller specified) trades places with
// slot 7, whose content at that point is the backfilled 1. For Strided
// layouts the stride vector undergoes the same relocation, with
// unspecified strides defaulting to 0. Dense kinds leave the stride vector
// untouched; DenseStrides derives it from the canonical extents.
func Canonicalize(l Layout) Layout {
	r := ComputeRank(l.Dims)
	out := l
	for i, n := range out.Dims {
		if n == Unspecified {
			out.Dims[i] = 1
		}
	}
	out.Dims[r], out.Dims[MaxSlots-1] = out.Dims[MaxSlots-1], out.Dims[r]
	if out.Kind == Strided {
		for i, s := range out.Strides {
			if s == Unspecified {
				out.Strides[i] = 0
			}
		}
		out.Strides[r], out.Strides[MaxSlots-1] = out.Strides[MaxSlots-1], out.Strides[r]
	}
	return out
}

// DenseStrides returns the packed stride vector for a canonical extent
// vector under a dense layout kind. Column-major runs slot 0 fastest, so
// the derivative components of one element sit span/derivWidth scalars
// apart; row-major runs slot 7 fastest, keeping each element's derivative
// components adjacent.
func DenseStrides(kind Kind, d Dims) Strides {
	var s Strides
	switch kind {
	case ColMajor:
		stride := 1
		for i := 0; i < MaxSlots; i++ {
			s[i] = stride
			stride *= d[i]
		}
	case RowMajor:
		stride := 1
		for i := MaxSlots - 1; i >= 0; i-- {
			s[i] = stride
			stride *= d[i]
		}
	default:
		panic("layout: dense strides require a dense layout kind, got " + kind.String())
	}
	return s
}

// Span returns the total scalar footprint of a canonical extent/stride
// pair: the highest addressable scalar index plus one, or 0 when any extent
// is 0. For dense strides this equals the extent product.
func Span(d Dims, s Strides) int {
	span := 1
	for i := 0; i < MaxSlots; i++ {
		if d[i] == 0 {
			return 0
		}
		span += (d[i] - 1) * s[i]
	}
	return span
}
