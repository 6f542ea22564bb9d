package meshpart

import (
	"fmt"
	"sort"
)

// VertexAdjacency derives element-to-element adjacency from element
// vertex lists. Elements sharing at least minShared vertices are
// neighbors, so 2 gives edge adjacency for 2D meshes and 3 face
// adjacency for tets. Lists come back sorted.
func VertexAdjacency(elemVerts [][]int, minShared int) ([][]int, error) {
	if minShared < 1 {
		return nil, fmt.Errorf("minShared must be at least 1, got %d", minShared)
	}

	vertToElems := make(map[int][]int)
	for e, verts := range elemVerts {
		for _, v := range verts {
			if v < 0 {
				return nil, fmt.Errorf("element %d has negative vertex %d", e, v)
			}
			vertToElems[v] = append(vertToElems[v], e)
		}
	}

	eToE := make([][]int, len(elemVerts))
	for e, verts := range elemVerts {
		shared := make(map[int]int)
		for _, v := range verts {
			for _, nb := range vertToElems[v] {
				if nb != e {
					shared[nb]++
				}
			}
		}
		var nbs []int
		for nb, n := range shared {
			if n >= minShared {
				nbs = append(nbs, nb)
			}
		}
		sort.Ints(nbs)
		eToE[e] = nbs
	}
	return eToE, nil
}

// ExchangePlan lists the elements each processor pair trades when halo
// data moves between partitions. Send lists are local element indices in
// the sender's numbering; receive lists are slots in the receiver's halo,
// numbered consecutively in discovery order.
type ExchangePlan struct {
	NumParts      int
	ElemsPerPart  []int
	LocalToGlobal [][]int       // [part][local] -> global element
	GlobalToLocal []map[int]int // [part][global] -> local element

	sends [][][]int // [from][to]
	recvs [][][]int // [to][from]
	halo  []int     // received elements per part
}

// NewExchangePlan derives the halo exchange for a layout from element
// adjacency. Each boundary neighbor is received exactly once per
// partition, regardless of how many local elements touch it.
func NewExchangePlan(l *Layout, eToE [][]int) (*ExchangePlan, error) {
	if len(eToE) != len(l.EToP) {
		return nil, fmt.Errorf("adjacency covers %d elements, layout has %d",
			len(eToE), len(l.EToP))
	}

	x := &ExchangePlan{
		NumParts:      l.NumParts,
		ElemsPerPart:  make([]int, l.NumParts),
		LocalToGlobal: l.Parts,
		GlobalToLocal: make([]map[int]int, l.NumParts),
		sends:         make([][][]int, l.NumParts),
		recvs:         make([][][]int, l.NumParts),
		halo:          make([]int, l.NumParts),
	}
	for p := 0; p < l.NumParts; p++ {
		x.ElemsPerPart[p] = len(l.Parts[p])
		x.GlobalToLocal[p] = make(map[int]int, len(l.Parts[p]))
		for local, global := range l.Parts[p] {
			x.GlobalToLocal[p][global] = local
		}
		x.sends[p] = make([][]int, l.NumParts)
		x.recvs[p] = make([][]int, l.NumParts)
	}

	for p := 0; p < l.NumParts; p++ {
		seen := make(map[int]bool)
		for _, e := range l.Parts[p] {
			for _, nb := range eToE[e] {
				if nb < 0 || nb >= len(l.EToP) || nb == e {
					continue
				}
				q := l.EToP[nb]
				if q == p || seen[nb] {
					continue
				}
				seen[nb] = true
				x.sends[q][p] = append(x.sends[q][p], x.GlobalToLocal[q][nb])
				x.recvs[p][q] = append(x.recvs[p][q], x.halo[p])
				x.halo[p]++
			}
		}
	}

	if err := x.Verify(); err != nil {
		return nil, fmt.Errorf("inconsistent exchange plan: %w", err)
	}
	return x, nil
}

// SendList returns the local element indices partition from sends to to
func (x *ExchangePlan) SendList(from, to int) []int {
	if from < 0 || from >= x.NumParts || to < 0 || to >= x.NumParts {
		return nil
	}
	return x.sends[from][to]
}

// RecvList returns the halo slots partition to fills from from
func (x *ExchangePlan) RecvList(to, from int) []int {
	if to < 0 || to >= x.NumParts || from < 0 || from >= x.NumParts {
		return nil
	}
	return x.recvs[to][from]
}

// HaloSize returns how many remote elements partition p receives
func (x *ExchangePlan) HaloSize(p int) int {
	if p < 0 || p >= x.NumParts {
		return 0
	}
	return x.halo[p]
}

// SendElements returns the global IDs of every element partition from
// ships anywhere, deduplicated and sorted
func (x *ExchangePlan) SendElements(from int) []int {
	if from < 0 || from >= x.NumParts {
		return nil
	}
	seen := make(map[int]bool)
	var out []int
	for to := 0; to < x.NumParts; to++ {
		for _, local := range x.sends[from][to] {
			g := x.LocalToGlobal[from][local]
			if !seen[g] {
				seen[g] = true
				out = append(out, g)
			}
		}
	}
	sort.Ints(out)
	return out
}

// Verify checks index validity, pairwise correspondence, and halo
// conservation
func (x *ExchangePlan) Verify() error {
	for p := 0; p < x.NumParts; p++ {
		for q := 0; q < x.NumParts; q++ {
			for _, idx := range x.sends[p][q] {
				if idx < 0 || idx >= x.ElemsPerPart[p] {
					return fmt.Errorf("send index %d out of range for partition %d (%d elements)",
						idx, p, x.ElemsPerPart[p])
				}
			}
		}
	}

	for p := 0; p < x.NumParts; p++ {
		for q := 0; q < x.NumParts; q++ {
			if ns, nr := len(x.sends[p][q]), len(x.recvs[q][p]); ns != nr {
				return fmt.Errorf("partition %d sends %d elements to %d, which expects %d",
					p, ns, q, nr)
			}
		}
	}

	for p := 0; p < x.NumParts; p++ {
		total := 0
		for q := 0; q < x.NumParts; q++ {
			total += len(x.recvs[p][q])
		}
		if total != x.halo[p] {
			return fmt.Errorf("partition %d halo holds %d slots, lists cover %d",
				p, x.halo[p], total)
		}
	}
	return nil
}
