package nifti

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Voxels is a typed, read-only view over a voxel buffer.
type Voxels interface {
	// Datatype returns the element type of the view.
	Datatype() Datatype
	// Len returns the number of voxels.
	Len() int
	// At returns voxel i widened to float64.
	At(i int) float64
}

type number interface {
	~uint8 | ~int8 | ~uint16 | ~int16 | ~uint32 | ~int32 | ~float32 | ~float64
}

type typedVoxels[T number] struct {
	dt   Datatype
	data []T
}

func (v *typedVoxels[T]) Datatype() Datatype { return v.dt }
func (v *typedVoxels[T]) Len() int           { return len(v.data) }
func (v *typedVoxels[T]) At(i int) float64   { return float64(v.data[i]) }

func decode[T number](dt Datatype, raw []byte, size int, conv func([]byte) T) *typedVoxels[T] {
	n := len(raw) / size
	out := make([]T, n)
	for i := range out {
		out[i] = conv(raw[i*size:])
	}
	return &typedVoxels[T]{dt: dt, data: out}
}

// NewVoxels builds the typed view matching the header's datatype. Trailing
// bytes that do not fill a whole element are ignored.
func NewVoxels(h *Header, raw []byte) (Voxels, error) {
	order := h.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	dt := h.Datatype
	size := dt.Size()
	switch dt {
	case DatatypeUint8:
		return &typedVoxels[uint8]{dt: dt, data: append([]uint8(nil), raw...)}, nil
	case DatatypeInt8:
		return decode(dt, raw, size, func(b []byte) int8 { return int8(b[0]) }), nil
	case DatatypeInt16:
		return decode(dt, raw, size, func(b []byte) int16 { return int16(order.Uint16(b)) }), nil
	case DatatypeUint16:
		return decode(dt, raw, size, order.Uint16), nil
	case DatatypeInt32:
		return decode(dt, raw, size, func(b []byte) int32 { return int32(order.Uint32(b)) }), nil
	case DatatypeUint32:
		return decode(dt, raw, size, order.Uint32), nil
	case DatatypeFloat32:
		return decode(dt, raw, size, func(b []byte) float32 { return math.Float32frombits(order.Uint32(b)) }), nil
	case DatatypeFloat64:
		return decode(dt, raw, size, func(b []byte) float64 { return math.Float64frombits(order.Uint64(b)) }), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatatype, dt)
	}
}

// SliceOf returns the typed slice behind a view created by NewVoxels.
func SliceOf[T number](v Voxels) ([]T, bool) {
	tv, ok := v.(*typedVoxels[T])
	if !ok {
		return nil, false
	}
	return tv.data, true
}
