package memory

import "errors"

// Sentinel errors surfaced by the storage layer
var (
	ErrOutOfRange  = errors.New("memory: transfer exceeds allocation bounds")
	ErrFreed       = errors.New("memory: allocation already freed")
	ErrWrongDevice = errors.New("memory: allocation not resident on executing device")
)

// Space is a memory space paired with the execution context that owns it.
// Spaces are compared by identity: two views share a space only when they
// hold the same Space value.
type Space interface {
	// Name identifies the space in error messages
	Name() string

	// CanAccess reports whether code executing in this space may address
	// memory resident in other directly, without a staged transfer
	CanAccess(other Space) bool

	// Alloc reserves n bytes in this space
	Alloc(n int) (Allocation, error)

	// Close frees every live allocation made from this space
	Close() error
}

// Allocation is a raw byte region inside a Space. ReadAt and WriteAt stage
// data through host memory; host-resident allocations additionally expose
// their backing slice through HostAllocation.
type Allocation interface {
	Space() Space
	Size() int

	// BaseID identifies the underlying storage. Two allocations alias the
	// same storage exactly when their BaseIDs are equal; deep-copy aliasing
	// detection relies on this.
	BaseID() uintptr

	ReadAt(p []byte, off int) error
	WriteAt(p []byte, off int) error
	Free()
}
