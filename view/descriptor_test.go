package view

import (
	"fmt"
	"testing"
)

// naturalSource builds a natural-order descriptor with synthetic spatial
// extents and a width-5, stride-7 derivative pair at the given rank
func naturalSource(rank int) Descriptor {
	var s Descriptor
	for i := 0; i < rank; i++ {
		s.Dims[i] = i + 2
		s.Strides[i] = 10 * (i + 1)
	}
	s.Dims[rank] = 5
	s.Strides[rank] = 7
	return s
}

func TestTransferDimsStrides(t *testing.T) {
	for rank := 0; rank <= 7; rank++ {
		t.Run(fmt.Sprintf("Rank%d", rank), func(t *testing.T) {
			s := naturalSource(rank)
			got := transferDimsStrides(s, rank, 0)

			for i := 0; i < rank; i++ {
				if got.Dims[i] != i+2 {
					t.Errorf("dim %d: got %d, want %d", i, got.Dims[i], i+2)
				}
				if got.Strides[i] != 10*(i+1) {
					t.Errorf("stride %d: got %d, want %d", i, got.Strides[i], 10*(i+1))
				}
			}
			for i := rank; i < 7; i++ {
				if got.Dims[i] != 1 {
					t.Errorf("unused dim %d: got %d, want 1", i, got.Dims[i])
				}
				if got.Strides[i] != 0 {
					t.Errorf("unused stride %d: got %d, want 0", i, got.Strides[i])
				}
			}
			if got.Dims[7] != 5 {
				t.Errorf("derivative dim: got %d, want 5", got.Dims[7])
			}
			if got.Strides[7] != 7 {
				t.Errorf("derivative stride: got %d, want 7", got.Strides[7])
			}
		})
	}
}

func TestTransferStaticWidth(t *testing.T) {
	s := naturalSource(3)
	got := transferDimsStrides(s, 3, 9)
	if got.Dims[7] != 9 {
		t.Errorf("derivative dim: got %d, want the static width 9", got.Dims[7])
	}
	if got.Strides[7] != 7 {
		t.Errorf("derivative stride: got %d, want 7", got.Strides[7])
	}
	if d := transferDims(s, 3, 9); d[7] != 9 {
		t.Errorf("dims variant derivative dim: got %d, want 9", d[7])
	}
}

// Reapplying a rule to the same source must reproduce the destination
// exactly, so repeated assignment through the transfer is stable
func TestTransferStable(t *testing.T) {
	for rank := 0; rank <= 7; rank++ {
		s := naturalSource(rank)
		first := transferDimsStrides(s, rank, 0)
		second := transferDimsStrides(s, rank, 0)
		if first != second {
			t.Errorf("rank %d: transfer not stable: %+v vs %+v", rank, first, second)
		}
	}
}

func TestTransferDimsMatchesFullVariant(t *testing.T) {
	for rank := 0; rank <= 7; rank++ {
		s := naturalSource(rank)
		full := transferDimsStrides(s, rank, 0)
		dims := transferDims(s, rank, 0)
		if full.Dims != dims {
			t.Errorf("rank %d: variants disagree: %v vs %v", rank, full.Dims, dims)
		}
	}
}

func TestNaturalizeInvertsTransfer(t *testing.T) {
	for rank := 0; rank <= 7; rank++ {
		s := naturalSource(rank)
		can := transferDimsStrides(s, rank, 0)
		nat := naturalize(can, rank)
		for i := 0; i <= rank; i++ {
			if nat.Dims[i] != s.Dims[i] {
				t.Errorf("rank %d dim %d: got %d, want %d", rank, i, nat.Dims[i], s.Dims[i])
			}
			if nat.Strides[i] != s.Strides[i] {
				t.Errorf("rank %d stride %d: got %d, want %d", rank, i, nat.Strides[i], s.Strides[i])
			}
		}
		for i := rank + 1; i < 8; i++ {
			if nat.Dims[i] != 1 || nat.Strides[i] != 0 {
				t.Errorf("rank %d slot %d: got %d/%d, want 1/0", rank, i, nat.Dims[i], nat.Strides[i])
			}
		}
	}
}

func TestTransferRankOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("no panic for rank 8")
		}
	}()
	transferDimsStrides(Descriptor{}, 8, 0)
}
