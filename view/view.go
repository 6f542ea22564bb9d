// Package view implements dynamic-rank views over raw memory with an
// optional automatic-differentiation payload attached to every logical
// element. A view pairs a shape descriptor with a handle into an
// allocation; after construction the derivative extent always occupies the
// last of the eight dimension slots, so subviews, assignments and deep
// copies share one storage convention across row-major, column-major and
// strided layouts.
package view

import (
	"fmt"
	"unsafe"

	"github.com/notargets/dynview/layout"
	"github.com/notargets/dynview/memory"
	"gonum.org/v1/gonum/mat"
)

// Config describes a view construction request
type Config struct {
	Name string

	// Type selects the stored scalar type
	Type memory.DataType

	// Kind selects the storage order. Strided requires Strides
	Kind layout.Kind

	// Extents lists the dimension sizes, outermost first. For New the
	// last entry is the derivative width unless StaticDerivWidth is set,
	// in which case every entry is spatial
	Extents []int

	// Strides gives one scalar stride per extent, Strided layouts only
	Strides []int

	// StaticDerivWidth fixes the derivative width at construction time.
	// Zero means the width is runtime-sized from the last extent
	StaticDerivWidth int
}

// View is a dynamic-rank window into an allocation. Subviews and
// assignments share the underlying storage by reference; every view owns
// its descriptor alone. The allocation must outlive all views that
// reference it.
type View struct {
	name  string
	dtype memory.DataType
	space memory.Space
	alloc memory.Allocation
	off   int // scalar offset into the allocation

	desc        Descriptor
	rank        int
	kind        layout.Kind
	derivAware  bool
	staticWidth int
	readOnly    bool
}

func validateConfig(cfg Config, extents []int) {
	switch cfg.Type {
	case memory.Float32, memory.Float64, memory.Int32, memory.Int64:
	default:
		panic(fmt.Sprintf("view %q: unsupported data type %d", cfg.Name, cfg.Type))
	}
	switch cfg.Kind {
	case layout.ColMajor, layout.RowMajor:
		if len(cfg.Strides) != 0 {
			panic(fmt.Sprintf("view %q: strides are only meaningful for the Strided kind", cfg.Name))
		}
	case layout.Strided:
		if len(cfg.Strides) != len(extents) {
			panic(fmt.Sprintf("view %q: %d strides for %d extents", cfg.Name, len(cfg.Strides), len(extents)))
		}
	default:
		panic(fmt.Sprintf("view %q: unsupported layout kind %d", cfg.Name, cfg.Kind))
	}
	for i, n := range extents {
		if n < 0 {
			panic(fmt.Sprintf("view %q: negative extent %d in dimension %d", cfg.Name, n, i))
		}
	}
	for i, s := range cfg.Strides {
		if s < 0 {
			panic(fmt.Sprintf("view %q: negative stride %d in dimension %d", cfg.Name, s, i))
		}
	}
}

// New allocates a derivative-aware view. The request passes through rank
// computation and canonicalization, so the derivative extent lands in slot
// 7 no matter how many spatial extents were given.
func New(space memory.Space, cfg Config) (*View, error) {
	extents := cfg.Extents
	if cfg.StaticDerivWidth < 0 {
		panic(fmt.Sprintf("view %q: negative static derivative width %d", cfg.Name, cfg.StaticDerivWidth))
	}
	if cfg.StaticDerivWidth > 0 {
		if cfg.Kind == layout.Strided {
			panic(fmt.Sprintf("view %q: strided layouts size the derivative extent at runtime", cfg.Name))
		}
		if len(extents) > layout.MaxRank {
			panic(fmt.Sprintf("view %q: %d spatial extents with a static derivative width, the maximum is %d", cfg.Name, len(extents), layout.MaxRank))
		}
		extents = append(append([]int{}, extents...), cfg.StaticDerivWidth)
	}
	if len(extents) == 0 {
		panic(fmt.Sprintf("view %q: a derivative-aware view needs at least the derivative extent", cfg.Name))
	}
	validateConfig(cfg, extents)

	req := layout.Layout{Kind: cfg.Kind, Dims: layout.NewDims(extents...)}
	if cfg.Kind == layout.Strided {
		req.Strides = layout.NewStrides(cfg.Strides...)
	}
	rank := layout.ComputeRank(req.Dims)

	can := layout.Canonicalize(req)
	strides := can.Strides
	if cfg.Kind != layout.Strided {
		strides = layout.DenseStrides(cfg.Kind, can.Dims)
	}

	span := layout.Span(can.Dims, strides)
	alloc, err := space.Alloc(span * cfg.Type.Size())
	if err != nil {
		return nil, fmt.Errorf("allocating view %q: %w", cfg.Name, err)
	}

	return &View{
		name:  cfg.Name,
		dtype: cfg.Type,
		space: space,
		alloc: alloc,
		desc: Descriptor{
			Dims:        can.Dims,
			Strides:     strides,
			DerivSize:   can.Dims[layout.MaxSlots-1],
			DerivStride: strides[layout.MaxSlots-1],
		},
		rank:        rank,
		kind:        cfg.Kind,
		derivAware:  true,
		staticWidth: cfg.StaticDerivWidth,
	}, nil
}

// NewScalar allocates an ordinary view: every extent is spatial and no
// slot relocation takes place
func NewScalar(space memory.Space, cfg Config) (*View, error) {
	if cfg.StaticDerivWidth != 0 {
		panic(fmt.Sprintf("view %q: ordinary views carry no derivative width", cfg.Name))
	}
	if len(cfg.Extents) > layout.MaxSlots {
		panic(fmt.Sprintf("view %q: %d extents exceeds the %d dimension slots", cfg.Name, len(cfg.Extents), layout.MaxSlots))
	}
	validateConfig(cfg, cfg.Extents)

	dims := layout.NewDims(cfg.Extents...)
	rank := layout.CountSpecified(dims)
	for i := range dims {
		if dims[i] == layout.Unspecified {
			dims[i] = 1
		}
	}
	var strides layout.Strides
	if cfg.Kind == layout.Strided {
		strides = layout.NewStrides(cfg.Strides...)
		for i := range strides {
			if strides[i] == layout.Unspecified {
				strides[i] = 0
			}
		}
	} else {
		strides = layout.DenseStrides(cfg.Kind, dims)
	}

	span := layout.Span(dims, strides)
	alloc, err := space.Alloc(span * cfg.Type.Size())
	if err != nil {
		return nil, fmt.Errorf("allocating view %q: %w", cfg.Name, err)
	}

	return &View{
		name:  cfg.Name,
		dtype: cfg.Type,
		space: space,
		alloc: alloc,
		desc:  Descriptor{Dims: dims, Strides: strides},
		rank:  rank,
		kind:  cfg.Kind,
	}, nil
}

// NewScalarFromDense allocates a rank-2 row-major Float64 view holding a
// copy of the gonum matrix
func NewScalarFromDense(space memory.Space, name string, m *mat.Dense) (*View, error) {
	r, c := m.Dims()
	v, err := NewScalar(space, Config{
		Name:    name,
		Type:    memory.Float64,
		Kind:    layout.RowMajor,
		Extents: []int{r, c},
	})
	if err != nil {
		return nil, err
	}

	raw := m.RawMatrix()
	buf := make([]float64, r*c)
	for i := 0; i < r; i++ {
		copy(buf[i*c:(i+1)*c], raw.Data[i*raw.Stride:i*raw.Stride+c])
	}
	bytes := unsafe.Slice((*byte)(unsafe.Pointer(&buf[0])), len(buf)*memory.Float64.Size())
	if err := v.alloc.WriteAt(bytes, 0); err != nil {
		v.alloc.Free()
		return nil, fmt.Errorf("loading view %q from matrix: %w", name, err)
	}
	return v, nil
}

// Name returns the view's name
func (v *View) Name() string { return v.name }

// Type returns the stored scalar type
func (v *View) Type() memory.DataType { return v.dtype }

// Space returns the memory space holding the view's storage
func (v *View) Space() memory.Space { return v.space }

// Kind returns the storage order
func (v *View) Kind() layout.Kind { return v.kind }

// Rank returns the spatial rank. The derivative extent is not counted for
// derivative-aware views.
func (v *View) Rank() int { return v.rank }

// Dims returns a copy of the canonical dimension slots
func (v *View) Dims() layout.Dims { return v.desc.Dims }

// Strides returns a copy of the canonical stride slots, in scalar units
func (v *View) Strides() layout.Strides { return v.desc.Strides }

// Dim returns the extent of spatial dimension i
func (v *View) Dim(i int) int {
	if i < 0 || i >= v.rank {
		panic(fmt.Sprintf("view %q: dimension %d of rank %d", v.name, i, v.rank))
	}
	return v.desc.Dims[i]
}

// DerivSize returns the derivative extent, value included. Zero for
// ordinary views.
func (v *View) DerivSize() int { return v.desc.DerivSize }

// Span returns the total scalar footprint of the view
func (v *View) Span() int { return layout.Span(v.desc.Dims, v.desc.Strides) }

// Const returns a read-only alias sharing this view's storage
func (v *View) Const() *View {
	c := *v
	c.readOnly = true
	return &c
}

// Free releases the underlying storage. Call it once, on the view that
// allocated the storage, after all sharing views are done with it.
func (v *View) Free() {
	if v.alloc != nil {
		v.alloc.Free()
	}
}

func (v *View) hostBytes() []byte {
	ha, ok := v.alloc.(memory.HostAllocation)
	if !ok {
		panic(fmt.Sprintf("view %q: element access on %s-resident storage", v.name, v.space.Name()))
	}
	return ha.Bytes()
}

// scalarIndex resolves spatial indices against the canonical descriptor
func (v *View) scalarIndex(idx []int) int {
	if len(idx) != v.rank {
		panic(fmt.Sprintf("view %q: %d indices for rank %d", v.name, len(idx), v.rank))
	}
	p := v.off
	for k, i := range idx {
		if i < 0 || i >= v.desc.Dims[k] {
			panic(fmt.Sprintf("view %q: index %d out of range [0,%d) in dimension %d", v.name, i, v.desc.Dims[k], k))
		}
		p += i * v.desc.Strides[k]
	}
	return p
}

func loadScalar(b []byte, dt memory.DataType, p int) float64 {
	switch dt {
	case memory.Float32:
		return float64(*(*float32)(unsafe.Pointer(&b[p*4])))
	case memory.Float64:
		return *(*float64)(unsafe.Pointer(&b[p*8]))
	case memory.Int32:
		return float64(*(*int32)(unsafe.Pointer(&b[p*4])))
	case memory.Int64:
		return float64(*(*int64)(unsafe.Pointer(&b[p*8])))
	default:
		panic(fmt.Sprintf("view: unsupported data type %d", dt))
	}
}

func storeScalar(b []byte, dt memory.DataType, p int, val float64) {
	switch dt {
	case memory.Float32:
		*(*float32)(unsafe.Pointer(&b[p*4])) = float32(val)
	case memory.Float64:
		*(*float64)(unsafe.Pointer(&b[p*8])) = val
	case memory.Int32:
		*(*int32)(unsafe.Pointer(&b[p*4])) = int32(val)
	case memory.Int64:
		*(*int64)(unsafe.Pointer(&b[p*8])) = int64(val)
	default:
		panic(fmt.Sprintf("view: unsupported data type %d", dt))
	}
}

// At returns the value of the element at the given spatial indices. For
// derivative-aware views this is the value component, stored at the last
// derivative position. Host-resident views only.
func (v *View) At(idx ...int) float64 {
	p := v.scalarIndex(idx)
	if v.derivAware {
		p += (v.desc.DerivSize - 1) * v.desc.DerivStride
	}
	return loadScalar(v.hostBytes(), v.dtype, p)
}

// Set stores the value of the element at the given spatial indices
func (v *View) Set(val float64, idx ...int) {
	if v.readOnly {
		panic(fmt.Sprintf("view %q: write through a read-only view", v.name))
	}
	p := v.scalarIndex(idx)
	if v.derivAware {
		p += (v.desc.DerivSize - 1) * v.desc.DerivStride
	}
	storeScalar(v.hostBytes(), v.dtype, p, val)
}

// DerivAt returns partial derivative d of the element at the given spatial
// indices
func (v *View) DerivAt(d int, idx ...int) float64 {
	v.checkDeriv(d)
	return loadScalar(v.hostBytes(), v.dtype, v.scalarIndex(idx)+d*v.desc.DerivStride)
}

// SetDeriv stores partial derivative d of the element at the given spatial
// indices
func (v *View) SetDeriv(d int, val float64, idx ...int) {
	if v.readOnly {
		panic(fmt.Sprintf("view %q: write through a read-only view", v.name))
	}
	v.checkDeriv(d)
	storeScalar(v.hostBytes(), v.dtype, v.scalarIndex(idx)+d*v.desc.DerivStride, val)
}

func (v *View) checkDeriv(d int) {
	if !v.derivAware {
		panic(fmt.Sprintf("view %q: derivative access on an ordinary view", v.name))
	}
	if d < 0 || d >= v.desc.DerivSize-1 {
		panic(fmt.Sprintf("view %q: derivative %d out of range [0,%d)", v.name, d, v.desc.DerivSize-1))
	}
}
