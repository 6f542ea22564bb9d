package view

import (
	"fmt"

	"github.com/notargets/dynview/layout"
	"github.com/notargets/dynview/memory"
)

// Fill sets every element's value and zeroes its partial derivatives.
// Ordinary views just receive the value.
func Fill(v *View, value float64) error {
	return fillPayload(v, value, nil)
}

// FillDeriv sets every element to the full derivative payload, the given
// partials plus the value
func FillDeriv(v *View, value float64, partials []float64) error {
	if !v.derivAware {
		panic(fmt.Sprintf("view %q: derivative fill on an ordinary view", v.name))
	}
	if len(partials) != v.desc.DerivSize-1 {
		panic(fmt.Sprintf("view %q: %d partials for derivative size %d", v.name, len(partials), v.desc.DerivSize))
	}
	return fillPayload(v, value, partials)
}

func fillPayload(v *View, value float64, partials []float64) error {
	if v.readOnly {
		panic(fmt.Sprintf("view %q: fill through a read-only view", v.name))
	}
	es := v.dtype.Size()
	span := layout.Span(v.desc.Dims, v.desc.Strides)
	if span == 0 {
		return nil
	}

	// Payload scalars in storage order: partials first, the value last
	width := payloadScalars(v)
	payload := make([]float64, width)
	if v.derivAware {
		copy(payload, partials)
		payload[width-1] = value
	} else {
		payload[0] = value
	}

	// Gap-free storage with interleaved payloads takes one patterned write
	contiguous := span == v.desc.Dims.Product()
	if contiguous && (!v.derivAware || v.desc.DerivStride == 1) {
		pat := make([]byte, width*es)
		for i, f := range payload {
			storeScalar(pat, v.dtype, i, f)
		}
		return memory.FillPattern(v.alloc, v.off*es, pat, span/width)
	}

	if hb, ok := v.alloc.(memory.HostAllocation); ok {
		writePayloads(hb.Bytes(), v.off, v, payload)
		return nil
	}

	// Device storage: stage the whole window, rewrite the addressed
	// scalars, write it back
	buf := make([]byte, span*es)
	if err := v.alloc.ReadAt(buf, v.off*es); err != nil {
		return fmt.Errorf("staging fill of %q: %w", v.name, err)
	}
	writePayloads(buf, 0, v, payload)
	if err := v.alloc.WriteAt(buf, v.off*es); err != nil {
		return fmt.Errorf("writing fill of %q: %w", v.name, err)
	}
	return nil
}

// writePayloads stores the payload at every element of v, addressing b
// relative to the given base scalar offset
func writePayloads(b []byte, base int, v *View, payload []float64) {
	var idx [layout.MaxSlots]int
	for {
		p := base
		for k := 0; k < v.rank; k++ {
			p += idx[k] * v.desc.Strides[k]
		}
		for c, f := range payload {
			storeScalar(b, v.dtype, p+c*v.desc.DerivStride, f)
		}
		k := v.rank - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < v.desc.Dims[k] {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return
		}
	}
}
