// Package niftitest synthesizes NIFTI payloads for tests.
package niftitest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/gzip"
)

// Spec describes a payload to build.
type Spec struct {
	// Version is 1 or 2. Zero means 1.
	Version int
	// Order defaults to little endian.
	Order binary.ByteOrder
	// Dims are the axis extents, without the rank.
	Dims []int
	// Datatype is the NIFTI datatype code.
	Datatype int16
	// BitPix defaults to the natural size of Datatype.
	BitPix int16
	// Values are converted to Datatype and written after the header.
	Values []float64
	// Detached writes the ni1/ni2 magic instead of n+1/n+2.
	Detached bool
	// Description is stored in the descrip field.
	Description string
}

func bitpix(dt int16) int16 {
	switch dt {
	case 2, 256:
		return 8
	case 4, 512:
		return 16
	case 8, 768, 16:
		return 32
	case 64, 1024, 1280:
		return 64
	case 128:
		return 24
	}
	return 8
}

// Build encodes s as a single-file NIFTI payload.
func Build(s Spec) []byte {
	order := s.Order
	if order == nil {
		order = binary.LittleEndian
	}
	bp := s.BitPix
	if bp == 0 {
		bp = bitpix(s.Datatype)
	}
	if s.Version == 2 {
		return append(header2(s, order, bp), encodeValues(s, order, bp)...)
	}
	return append(header1(s, order, bp), encodeValues(s, order, bp)...)
}

func header1(s Spec, order binary.ByteOrder, bp int16) []byte {
	buf := make([]byte, 352)
	order.PutUint32(buf[0:], 348)
	order.PutUint16(buf[40:], uint16(len(s.Dims)))
	for i, d := range s.Dims {
		order.PutUint16(buf[42+2*i:], uint16(d))
	}
	order.PutUint16(buf[70:], uint16(s.Datatype))
	order.PutUint16(buf[72:], uint16(bp))
	for i := 0; i < 8; i++ {
		order.PutUint32(buf[76+4*i:], math.Float32bits(1))
	}
	order.PutUint32(buf[108:], math.Float32bits(352))
	order.PutUint32(buf[112:], math.Float32bits(1))
	copy(buf[148:228], s.Description)
	if s.Detached {
		copy(buf[344:], "ni1\x00")
	} else {
		copy(buf[344:], "n+1\x00")
	}
	return buf
}

func header2(s Spec, order binary.ByteOrder, bp int16) []byte {
	buf := make([]byte, 544)
	order.PutUint32(buf[0:], 540)
	if s.Detached {
		copy(buf[4:], "ni2\x00\r\n\x1a\n")
	} else {
		copy(buf[4:], "n+2\x00\r\n\x1a\n")
	}
	order.PutUint16(buf[12:], uint16(s.Datatype))
	order.PutUint16(buf[14:], uint16(bp))
	order.PutUint64(buf[16:], uint64(len(s.Dims)))
	for i, d := range s.Dims {
		order.PutUint64(buf[24+8*i:], uint64(d))
	}
	for i := 0; i < 8; i++ {
		order.PutUint64(buf[104+8*i:], math.Float64bits(1))
	}
	order.PutUint64(buf[168:], 544)
	order.PutUint64(buf[176:], math.Float64bits(1))
	copy(buf[240:320], s.Description)
	return buf
}

func encodeValues(s Spec, order binary.ByteOrder, bp int16) []byte {
	size := int(bp) / 8
	out := make([]byte, len(s.Values)*size)
	for i, v := range s.Values {
		b := out[i*size:]
		switch s.Datatype {
		case 2:
			b[0] = uint8(int64(v))
		case 256:
			b[0] = uint8(int8(v))
		case 4:
			order.PutUint16(b, uint16(int16(v)))
		case 512:
			order.PutUint16(b, uint16(int64(v)))
		case 8:
			order.PutUint32(b, uint32(int32(v)))
		case 768:
			order.PutUint32(b, uint32(int64(v)))
		case 16:
			order.PutUint32(b, math.Float32bits(float32(v)))
		case 64:
			order.PutUint64(b, math.Float64bits(v))
		case 1024:
			order.PutUint64(b, uint64(int64(v)))
		default:
			for j := 0; j < size; j++ {
				b[j] = uint8(int64(v))
			}
		}
	}
	return out
}

// Gzip compresses data.
func Gzip(data []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}

// Ramp returns n values 0, 1, ..., n-1.
func Ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}
