package view

import (
	"testing"

	"github.com/notargets/dynview/layout"
	"github.com/notargets/dynview/memory"
)

func TestAssignSharesStorage(t *testing.T) {
	src := newSeeded(t, layout.RowMajor)
	dst, err := New(memory.Host(), Config{Name: "dst", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{2, 2}})
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	Assign(dst, src)

	if dst.desc != src.desc {
		t.Errorf("descriptor: got %+v, want %+v", dst.desc, src.desc)
	}
	if dst.Rank() != src.Rank() {
		t.Errorf("rank: got %d, want %d", dst.Rank(), src.Rank())
	}
	if dst.alloc.BaseID() != src.alloc.BaseID() {
		t.Error("destination does not share source storage")
	}

	src.Set(-5, 3, 3)
	if dst.At(3, 3) != -5 {
		t.Error("source write not visible through destination")
	}
}

// Element count must survive the drop to an ordinary view: the product of
// all destination dimension slots equals the product of the source's
// spatial extents and its derivative extent
func TestScalarElementCount(t *testing.T) {
	for _, kind := range []layout.Kind{layout.RowMajor, layout.ColMajor} {
		t.Run(kind.String(), func(t *testing.T) {
			src, err := New(memory.Host(), Config{Name: "ad", Type: memory.Float64, Kind: kind, Extents: []int{2, 3, 4}})
			if err != nil {
				t.Fatalf("new view: %v", err)
			}
			sc := src.Scalar()

			if sc.Rank() != src.Rank()+1 {
				t.Errorf("rank: got %d, want %d", sc.Rank(), src.Rank()+1)
			}
			if sc.DerivSize() != 0 {
				t.Errorf("derivative size: got %d, want 0", sc.DerivSize())
			}
			if got, want := sc.Dims().Product(), 2*3*4; got != want {
				t.Errorf("element count: got %d, want %d", got, want)
			}
		})
	}
}

// An ordinary alias addresses the derivative payload as a trailing spatial
// dimension: position w-1 holds the value, the rest hold the partials
func TestScalarExposesPayload(t *testing.T) {
	src := newSeeded(t, layout.RowMajor)
	sc := src.Scalar()

	w := src.DerivSize()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if got, want := sc.At(i, j, w-1), src.At(i, j); got != want {
				t.Errorf("value (%d,%d): got %g, want %g", i, j, got, want)
			}
			for d := 0; d < w-1; d++ {
				if got, want := sc.At(i, j, d), src.DerivAt(d, i, j); got != want {
					t.Errorf("partial %d (%d,%d): got %g, want %g", d, i, j, got, want)
				}
			}
		}
	}
}

func TestAssignStridedDestination(t *testing.T) {
	src := newSeeded(t, layout.ColMajor)
	dst, err := New(memory.Host(), Config{
		Name: "sd", Type: memory.Float64, Kind: layout.Strided,
		Extents: []int{2, 2}, Strides: []int{1, 2},
	})
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	Assign(dst, src)

	if dst.Kind() != layout.Strided {
		t.Errorf("kind: got %s, want Strided", dst.Kind())
	}
	if dst.desc.Dims != src.desc.Dims || dst.desc.Strides != src.desc.Strides {
		t.Errorf("descriptor not carried verbatim: %+v vs %+v", dst.desc, src.desc)
	}
	if dst.At(2, 1) != src.At(2, 1) {
		t.Error("strided destination misaddresses source elements")
	}
}

func TestAssignConstPromotion(t *testing.T) {
	src := newSeeded(t, layout.RowMajor)
	ro := src.Const()

	// Writable source into a read-only destination is the legal promotion
	dst, err := New(memory.Host(), Config{Name: "ro", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{2, 2}})
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	roDst := dst.Const()
	Assign(roDst, src)
	if roDst.At(0, 0) != src.At(0, 0) {
		t.Error("promoted destination misaddresses source")
	}

	// Stripping read-only must be rejected
	defer func() {
		if recover() == nil {
			t.Error("no panic assigning a read-only source to a writable destination")
		}
	}()
	w, err := New(memory.Host(), Config{Name: "w", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{2, 2}})
	if err != nil {
		t.Fatalf("new view: %v", err)
	}
	Assign(w, ro)
}

func TestAssignContracts(t *testing.T) {
	src := newSeeded(t, layout.RowMajor)
	host := memory.Host()

	cases := []struct {
		name string
		f    func()
	}{
		{"TypeMismatch", func() {
			d, _ := New(host, Config{Name: "d", Type: memory.Float32, Kind: layout.RowMajor, Extents: []int{2, 2}})
			Assign(d, src)
		}},
		{"KindMismatch", func() {
			d, _ := New(host, Config{Name: "d", Type: memory.Float64, Kind: layout.ColMajor, Extents: []int{2, 2}})
			Assign(d, src)
		}},
		{"OrdinaryToDerivAware", func() {
			s, _ := NewScalar(host, Config{Name: "s", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{2}})
			d, _ := New(host, Config{Name: "d", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{2, 2}})
			Assign(d, s)
		}},
		{"StaticWidthMismatch", func() {
			d, _ := New(host, Config{Name: "d", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{2}, StaticDerivWidth: 5})
			Assign(d, src)
		}},
		{"SpaceMismatch", func() {
			iso := newTestSpace("iso")
			d, err := New(iso, Config{Name: "d", Type: memory.Float64, Kind: layout.RowMajor, Extents: []int{2, 2}})
			if err != nil {
				t.Fatalf("new view: %v", err)
			}
			Assign(d, src)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("no panic")
				}
			}()
			tc.f()
		})
	}
}
