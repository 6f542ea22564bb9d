package memory

import "fmt"

// CopyBytes moves n bytes between two allocations, in any combination of
// spaces. Host-to-host copies run directly; host<->device copies use the
// device's offset transfers; anything else stages through a temporary host
// buffer. This is the raw byte-copy primitive behind the bulk deep-copy
// paths.
func CopyBytes(dst Allocation, dstOff int, src Allocation, srcOff, n int) error {
	if n == 0 {
		return nil
	}
	if n < 0 {
		return fmt.Errorf("memory: negative copy length %d", n)
	}
	if dstOff < 0 || dstOff+n > dst.Size() {
		return fmt.Errorf("%w: dst [%d:%d) of %d", ErrOutOfRange, dstOff, dstOff+n, dst.Size())
	}
	if srcOff < 0 || srcOff+n > src.Size() {
		return fmt.Errorf("%w: src [%d:%d) of %d", ErrOutOfRange, srcOff, srcOff+n, src.Size())
	}

	if hd, ok := dst.(HostAllocation); ok {
		if hs, ok := src.(HostAllocation); ok {
			copy(hd.Bytes()[dstOff:dstOff+n], hs.Bytes()[srcOff:srcOff+n])
			return nil
		}
		return src.ReadAt(hd.Bytes()[dstOff:dstOff+n], srcOff)
	}
	if hs, ok := src.(HostAllocation); ok {
		return dst.WriteAt(hs.Bytes()[srcOff:srcOff+n], dstOff)
	}

	// Neither side is host resident: stage through host
	buf := make([]byte, n)
	if err := src.ReadAt(buf, srcOff); err != nil {
		return err
	}
	return dst.WriteAt(buf, dstOff)
}

// FillPattern writes count repetitions of an element-sized byte pattern
// starting at byte offset off. Device allocations receive one staged write.
func FillPattern(dst Allocation, off int, pattern []byte, count int) error {
	if count < 0 {
		return fmt.Errorf("memory: negative fill count %d", count)
	}
	n := count * len(pattern)
	if n == 0 {
		return nil
	}
	if off < 0 || off+n > dst.Size() {
		return fmt.Errorf("%w: fill [%d:%d) of %d", ErrOutOfRange, off, off+n, dst.Size())
	}

	if hd, ok := dst.(HostAllocation); ok {
		b := hd.Bytes()
		for i := 0; i < count; i++ {
			copy(b[off+i*len(pattern):], pattern)
		}
		return nil
	}

	buf := make([]byte, n)
	for i := 0; i < count; i++ {
		copy(buf[i*len(pattern):], pattern)
	}
	return dst.WriteAt(buf, off)
}
