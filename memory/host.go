package memory

import (
	"fmt"
	"unsafe"
)

// HostAllocation is an Allocation backed by process memory, with direct
// access to the backing bytes
type HostAllocation interface {
	Allocation
	Bytes() []byte
}

type hostSpace struct{}

var theHostSpace = &hostSpace{}

// Host returns the process-wide host memory space
func Host() Space {
	return theHostSpace
}

func (h *hostSpace) Name() string { return "host" }

func (h *hostSpace) CanAccess(other Space) bool {
	return other == Space(theHostSpace)
}

func (h *hostSpace) Alloc(n int) (Allocation, error) {
	if n < 0 {
		return nil, fmt.Errorf("memory: negative allocation size %d", n)
	}
	return &hostAllocation{data: make([]byte, n)}, nil
}

// Close is a no-op: host allocations are reclaimed by the collector
func (h *hostSpace) Close() error { return nil }

type hostAllocation struct {
	data  []byte
	freed bool
}

func (a *hostAllocation) Space() Space { return theHostSpace }
func (a *hostAllocation) Size() int    { return len(a.data) }

func (a *hostAllocation) BaseID() uintptr {
	if len(a.data) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&a.data[0]))
}

func (a *hostAllocation) Bytes() []byte { return a.data }

func (a *hostAllocation) ReadAt(p []byte, off int) error {
	if a.freed {
		return ErrFreed
	}
	if off < 0 || off+len(p) > len(a.data) {
		return fmt.Errorf("%w: read [%d:%d) of %d", ErrOutOfRange, off, off+len(p), len(a.data))
	}
	copy(p, a.data[off:])
	return nil
}

func (a *hostAllocation) WriteAt(p []byte, off int) error {
	if a.freed {
		return ErrFreed
	}
	if off < 0 || off+len(p) > len(a.data) {
		return fmt.Errorf("%w: write [%d:%d) of %d", ErrOutOfRange, off, off+len(p), len(a.data))
	}
	copy(a.data[off:], p)
	return nil
}

func (a *hostAllocation) Free() {
	a.freed = true
	a.data = nil
}
