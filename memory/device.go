package memory

import (
	"fmt"
	"unsafe"

	"github.com/notargets/gocca"
)

// DeviceSpace wraps an OCCA device as a memory space. Create one space per
// device and share it between every view resident there: spaces are
// compared by identity, so two DeviceSpace values over the same device are
// treated as distinct spaces.
//
// Accessibility is deliberately narrow: a device space can address only its
// own allocations, and the host cannot address device memory. Every
// host<->device transfer is an explicit staged copy.
type DeviceSpace struct {
	dev     *gocca.OCCADevice
	pool    map[*deviceAllocation]struct{}
	kernels map[string]*gocca.OCCAKernel
}

// NewDeviceSpace creates a memory space over an OCCA device. The caller
// retains ownership of the device itself; Close frees the space's
// allocations and kernels but not the device.
func NewDeviceSpace(dev *gocca.OCCADevice) *DeviceSpace {
	if dev == nil {
		panic("memory: nil device")
	}
	return &DeviceSpace{
		dev:     dev,
		pool:    make(map[*deviceAllocation]struct{}),
		kernels: make(map[string]*gocca.OCCAKernel),
	}
}

// Device returns the underlying OCCA device
func (d *DeviceSpace) Device() *gocca.OCCADevice { return d.dev }

func (d *DeviceSpace) Name() string {
	return fmt.Sprintf("occa[%s]", d.dev.Mode())
}

func (d *DeviceSpace) CanAccess(other Space) bool {
	return other == Space(d)
}

func (d *DeviceSpace) Alloc(n int) (Allocation, error) {
	if n < 0 {
		return nil, fmt.Errorf("memory: negative allocation size %d", n)
	}
	a := &deviceAllocation{space: d, size: n}
	if n > 0 {
		mem := d.dev.Malloc(int64(n), nil, nil)
		if mem == nil {
			return nil, fmt.Errorf("memory: device allocation of %d bytes failed on %s", n, d.Name())
		}
		a.mem = mem
	}
	d.pool[a] = struct{}{}
	return a, nil
}

// Close frees every live allocation and cached kernel belonging to this
// space. The underlying device stays open.
func (d *DeviceSpace) Close() error {
	for a := range d.pool {
		if a.mem != nil {
			a.mem.Free()
			a.mem = nil
		}
		a.freed = true
		delete(d.pool, a)
	}
	for name, kernel := range d.kernels {
		kernel.Free()
		delete(d.kernels, name)
	}
	return nil
}

type deviceAllocation struct {
	space *DeviceSpace
	mem   *gocca.OCCAMemory
	size  int
	freed bool
}

func (a *deviceAllocation) Space() Space { return a.space }
func (a *deviceAllocation) Size() int    { return a.size }

// BaseID is the allocation's own identity: device allocations never share
// underlying storage with one another
func (a *deviceAllocation) BaseID() uintptr {
	return uintptr(unsafe.Pointer(a))
}

func (a *deviceAllocation) ReadAt(p []byte, off int) error {
	if a.freed {
		return ErrFreed
	}
	if len(p) == 0 {
		return nil
	}
	if off < 0 || off+len(p) > a.size {
		return fmt.Errorf("%w: read [%d:%d) of %d", ErrOutOfRange, off, off+len(p), a.size)
	}
	a.mem.CopyToWithOffset(unsafe.Pointer(&p[0]), int64(len(p)), int64(off))
	return nil
}

func (a *deviceAllocation) WriteAt(p []byte, off int) error {
	if a.freed {
		return ErrFreed
	}
	if len(p) == 0 {
		return nil
	}
	if off < 0 || off+len(p) > a.size {
		return fmt.Errorf("%w: write [%d:%d) of %d", ErrOutOfRange, off, off+len(p), a.size)
	}
	a.mem.CopyFromWithOffset(unsafe.Pointer(&p[0]), int64(len(p)), int64(off))
	return nil
}

func (a *deviceAllocation) Free() {
	if a.freed {
		return
	}
	if a.mem != nil {
		a.mem.Free()
		a.mem = nil
	}
	a.freed = true
	delete(a.space.pool, a)
}
