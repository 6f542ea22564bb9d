// Package memory provides the storage collaborators for dynamic-rank
// views: memory spaces with an accessibility predicate, raw allocations
// with byte-level transfer, a bulk byte-copy primitive, and the
// element-wise strided remap used as the deep-copy fallback.
package memory

// DataType identifies the scalar type stored in an allocation
type DataType int

const (
	Float32 DataType = iota + 1
	Float64
	Int32
	Int64
)

// Size returns the size in bytes of one scalar of the data type
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		return 8
	}
}

// String returns the Go-facing name of the data type
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// OKLName returns the C type name used when generating kernel source
func (dt DataType) OKLName() string {
	switch dt {
	case Float32:
		return "float"
	case Float64:
		return "double"
	case Int32:
		return "int"
	case Int64:
		return "long"
	default:
		return "double"
	}
}
