package meshpart

import (
	"fmt"
	"math"
)

// Strategy defines how elements are grouped onto processors
type Strategy int

const (
	Block      Strategy = iota // Consecutive element ranges
	RoundRobin                 // Distribute cyclically
	Greedy                     // Grow connected regions over EToE
)

func (s Strategy) String() string {
	switch s {
	case Block:
		return "block"
	case RoundRobin:
		return "round-robin"
	case Greedy:
		return "greedy"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Builder assigns mesh elements to processors ahead of a spread
type Builder struct {
	NumElements int
	NumParts    int
	Strategy    Strategy

	// EToE is element-to-element adjacency, used by Greedy. Boundary
	// entries may be self-references or negative. Nil adjacency degrades
	// Greedy to Block.
	EToE [][]int
}

// Layout is a complete element-to-processor assignment
type Layout struct {
	EToP        []int   // element -> processor
	Parts       [][]int // processor -> global element IDs, in assignment order
	NumParts    int
	MaxElements int // largest processor load
}

// Build partitions the elements according to the configured strategy
func (b *Builder) Build() (*Layout, error) {
	if b.NumElements < 1 {
		return nil, fmt.Errorf("nothing to partition: %d elements", b.NumElements)
	}
	if b.NumParts < 1 {
		return nil, fmt.Errorf("invalid processor count %d", b.NumParts)
	}

	var eToP []int
	switch b.Strategy {
	case Block:
		eToP = b.blockAssign()
	case RoundRobin:
		eToP = b.roundRobinAssign()
	case Greedy:
		if b.EToE == nil {
			eToP = b.blockAssign()
		} else {
			eToP = b.greedyAssign()
		}
	default:
		return nil, fmt.Errorf("unknown partition strategy %v", b.Strategy)
	}

	layout := &Layout{
		EToP:     eToP,
		Parts:    make([][]int, b.NumParts),
		NumParts: b.NumParts,
	}
	for elem, part := range eToP {
		layout.Parts[part] = append(layout.Parts[part], elem)
	}
	for _, part := range layout.Parts {
		if len(part) > layout.MaxElements {
			layout.MaxElements = len(part)
		}
	}

	if err := layout.validate(b.NumElements); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// blockAssign gives each processor a consecutive range of elements
func (b *Builder) blockAssign() []int {
	eToP := make([]int, b.NumElements)
	perPart := (b.NumElements + b.NumParts - 1) / b.NumParts
	for i := range eToP {
		p := i / perPart
		if p >= b.NumParts {
			p = b.NumParts - 1
		}
		eToP[i] = p
	}
	return eToP
}

func (b *Builder) roundRobinAssign() []int {
	eToP := make([]int, b.NumElements)
	for i := range eToP {
		eToP[i] = i % b.NumParts
	}
	return eToP
}

// greedyAssign grows each processor's region breadth-first over the
// element adjacency, seeding from the lowest unassigned element. Elements
// unreachable once all regions are grown go to the lightest processor.
func (b *Builder) greedyAssign() []int {
	eToP := make([]int, b.NumElements)
	for i := range eToP {
		eToP[i] = -1
	}
	counts := make([]int, b.NumParts)
	target := (b.NumElements + b.NumParts - 1) / b.NumParts

	seed := 0
	for part := 0; part < b.NumParts; part++ {
		for seed < b.NumElements && eToP[seed] >= 0 {
			seed++
		}
		if seed >= b.NumElements {
			break
		}

		queue := []int{seed}
		for len(queue) > 0 && counts[part] < target {
			e := queue[0]
			queue = queue[1:]
			if eToP[e] >= 0 {
				continue
			}
			eToP[e] = part
			counts[part]++
			for _, nb := range b.EToE[e] {
				if nb >= 0 && nb < b.NumElements && nb != e && eToP[nb] < 0 {
					queue = append(queue, nb)
				}
			}
		}
	}

	for e, p := range eToP {
		if p >= 0 {
			continue
		}
		lightest := 0
		for part, n := range counts {
			if n < counts[lightest] {
				lightest = part
			}
		}
		eToP[e] = lightest
		counts[lightest]++
	}
	return eToP
}

func (l *Layout) validate(numElements int) error {
	if len(l.EToP) != numElements {
		return fmt.Errorf("assignment covers %d of %d elements", len(l.EToP), numElements)
	}
	total := 0
	for _, part := range l.Parts {
		total += len(part)
	}
	if total != numElements {
		return fmt.Errorf("processors hold %d elements, mesh has %d", total, numElements)
	}
	for elem, p := range l.EToP {
		if p < 0 || p >= l.NumParts {
			return fmt.Errorf("element %d assigned to processor %d of %d", elem, p, l.NumParts)
		}
	}
	return nil
}

// Stats reports the load balance of a layout
type Stats struct {
	NumParts    int
	MinElements int
	MaxElements int
	AvgElements float64
	Imbalance   float64 // MaxElements over AvgElements
}

func (l *Layout) Stats() Stats {
	total := 0
	for _, part := range l.Parts {
		total += len(part)
	}
	stats := Stats{
		NumParts:    l.NumParts,
		MinElements: math.MaxInt32,
		MaxElements: l.MaxElements,
		AvgElements: float64(total) / float64(l.NumParts),
	}
	for _, part := range l.Parts {
		if len(part) < stats.MinElements {
			stats.MinElements = len(part)
		}
	}
	stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	return stats
}
