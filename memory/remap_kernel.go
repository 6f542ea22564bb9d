package memory

import (
	"fmt"
	"strings"

	"github.com/notargets/dynview/layout"
	"github.com/notargets/gocca"
)

// Device remap runs as a generated kernel with the region geometry baked in
// as defines, so the kernel body takes only the two memory arguments.
// Kernels are cached per geometry on the owning space and freed by Close.

const remapTile = 256

func (d *DeviceSpace) remap(dst, src Region, total int) error {
	da, ok := dst.Alloc.(*deviceAllocation)
	if !ok || da.space != d {
		return fmt.Errorf("%w: destination region", ErrWrongDevice)
	}
	sa, ok := src.Alloc.(*deviceAllocation)
	if !ok || sa.space != d {
		return fmt.Errorf("%w: source region", ErrWrongDevice)
	}
	if da.freed || sa.freed {
		return ErrFreed
	}

	var n [layout.MaxSlots]int
	for i := range n {
		n[i] = min(dst.Dims[i], src.Dims[i])
	}

	key := remapKey(dst, src, n)
	kernel, cached := d.kernels[key]
	if !cached {
		source := generateRemapSource(dst, src, n, total)
		var err error
		kernel, err = d.buildKernel(source, "dynviewRemap")
		if err != nil {
			return fmt.Errorf("failed to build remap kernel: %w", err)
		}
		d.kernels[key] = kernel
	}

	if err := kernel.RunWithArgs(da.mem, sa.mem); err != nil {
		return fmt.Errorf("remap kernel execution failed: %w", err)
	}
	d.dev.Finish()
	return nil
}

// buildKernel compiles kernel source on this device. OpenMP needs the
// compiler flags supplied explicitly or OCCA builds without optimization.
func (d *DeviceSpace) buildKernel(source, name string) (*gocca.OCCAKernel, error) {
	var kernel *gocca.OCCAKernel
	var err error

	if d.dev.Mode() == "OpenMP" {
		props := gocca.JsonParse(`{"compiler_flags": "-O3"}`)
		defer props.Free()
		kernel, err = d.dev.BuildKernelFromString(source, name, props)
	} else {
		kernel, err = d.dev.BuildKernelFromString(source, name, nil)
	}
	if err != nil {
		return nil, err
	}
	if kernel == nil {
		return nil, fmt.Errorf("kernel build returned nil for %s", name)
	}
	return kernel, nil
}

func remapKey(dst, src Region, n [layout.MaxSlots]int) string {
	return fmt.Sprintf("remap|%s|%v|%v|%v|%d|%d",
		dst.Elem, n, dst.Strides, src.Strides, dst.Offset, src.Offset)
}

// generateRemapSource emits the remap kernel: a tiled loop over the flat
// intersection index, decomposed into eight coordinates with slot 7
// fastest, gathered through the source strides and scattered through the
// destination strides
func generateRemapSource(dst, src Region, n [layout.MaxSlots]int, total int) string {
	var sb strings.Builder

	outer := (total + remapTile - 1) / remapTile

	sb.WriteString(fmt.Sprintf("#define REMAP_TOTAL %d\n", total))
	sb.WriteString(fmt.Sprintf("#define REMAP_TILE %d\n", remapTile))
	sb.WriteString(fmt.Sprintf("#define REMAP_OUTER %d\n", outer))
	for i := 0; i < layout.MaxSlots; i++ {
		sb.WriteString(fmt.Sprintf("#define N%d %d\n", i, n[i]))
		sb.WriteString(fmt.Sprintf("#define DS%d %d\n", i, dst.Strides[i]))
		sb.WriteString(fmt.Sprintf("#define SS%d %d\n", i, src.Strides[i]))
	}
	sb.WriteString(fmt.Sprintf("#define DOFF %d\n", dst.Offset))
	sb.WriteString(fmt.Sprintf("#define SOFF %d\n", src.Offset))
	sb.WriteString("\n")

	ctype := dst.Elem.OKLName()
	sb.WriteString(fmt.Sprintf("@kernel void dynviewRemap(%s *dst, const %s *src) {\n", ctype, ctype))
	sb.WriteString("\tfor (int b = 0; b < REMAP_OUTER; ++b; @outer) {\n")
	sb.WriteString("\t\tfor (int t = 0; t < REMAP_TILE; ++t; @inner) {\n")
	sb.WriteString("\t\t\tconst int idx = b * REMAP_TILE + t;\n")
	sb.WriteString("\t\t\tif (idx < REMAP_TOTAL) {\n")
	sb.WriteString("\t\t\t\tint rem = idx;\n")
	for i := layout.MaxSlots - 1; i > 0; i-- {
		sb.WriteString(fmt.Sprintf("\t\t\t\tconst int i%d = rem %% N%d; rem /= N%d;\n", i, i, i))
	}
	sb.WriteString("\t\t\t\tconst int i0 = rem;\n")

	dstIdx := make([]string, 0, layout.MaxSlots+1)
	srcIdx := make([]string, 0, layout.MaxSlots+1)
	dstIdx = append(dstIdx, "DOFF")
	srcIdx = append(srcIdx, "SOFF")
	for i := 0; i < layout.MaxSlots; i++ {
		dstIdx = append(dstIdx, fmt.Sprintf("i%d*DS%d", i, i))
		srcIdx = append(srcIdx, fmt.Sprintf("i%d*SS%d", i, i))
	}
	sb.WriteString(fmt.Sprintf("\t\t\t\tdst[%s] = src[%s];\n",
		strings.Join(dstIdx, " + "), strings.Join(srcIdx, " + ")))

	sb.WriteString("\t\t\t}\n")
	sb.WriteString("\t\t}\n")
	sb.WriteString("\t}\n")
	sb.WriteString("}\n")

	return sb.String()
}
