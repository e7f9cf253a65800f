package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Header sizes and magic strings for the two NIFTI versions.
const (
	Nifti1HeaderSize = 348
	Nifti2HeaderSize = 540

	// Single-file images place voxels after the header and a 4 byte
	// extension flag.
	nifti1MinVoxOffset = Nifti1HeaderSize + 4
	nifti2MinVoxOffset = Nifti2HeaderSize + 4

	nifti1MagicOffset = 344
	nifti2MagicOffset = 4
)

var (
	magicNifti1Single   = []byte("n+1\x00")
	magicNifti1Detached = []byte("ni1\x00")
	magicNifti2Single   = []byte("n+2\x00\r\n\x1a\n")
	magicNifti2Detached = []byte("ni2\x00\r\n\x1a\n")
)

// Header is the decoded NIFTI-1 or NIFTI-2 header. Fields from both versions
// are widened to the NIFTI-2 types.
type Header struct {
	Version   int
	ByteOrder binary.ByteOrder

	// Dims holds the rank in Dims[0] followed by the extent of each axis.
	Dims     [8]int64
	Datatype Datatype
	BitPix   int16
	PixDim   [8]float64

	VoxOffset int64
	SclSlope  float64
	SclInter  float64
	CalMax    float64
	CalMin    float64

	SliceStart    int64
	SliceEnd      int64
	SliceCode     int32
	SliceDuration float64
	TOffset       float64

	IntentCode int32
	IntentName string

	QFormCode int32
	SFormCode int32
	XYZTUnits int32
	DimInfo   uint8

	Description string
	AuxFile     string

	// Detached is set for header files whose voxels live in a separate
	// .img file.
	Detached bool
	Magic    string
}

// Rank returns the number of used dimensions.
func (h *Header) Rank() int {
	r := int(h.Dims[0])
	if r < 0 {
		return 0
	}
	if r > 7 {
		return 7
	}
	return r
}

// Width returns the extent of the first axis.
func (h *Header) Width() int { return int(h.Dims[1]) }

// Height returns the extent of the second axis.
func (h *Header) Height() int { return int(h.Dims[2]) }

// SliceCount returns the number of slices along the third axis. Images of
// rank below three have a single slice.
func (h *Header) SliceCount() int {
	if h.Rank() < 3 || h.Dims[3] < 1 {
		return 1
	}
	return int(h.Dims[3])
}

// VoxelCount returns the number of voxels described by the used dimensions,
// or -1 when the product does not fit in an int64.
func (h *Header) VoxelCount() int64 {
	rank := h.Rank()
	if rank == 0 {
		return 0
	}
	n := int64(1)
	for i := 1; i <= rank; i++ {
		d := h.Dims[i]
		if d < 1 {
			d = 1
		}
		if n > math.MaxInt64/d {
			return -1
		}
		n *= d
	}
	return n
}

// ImageSize returns the byte length of the voxel buffer, or -1 when it does
// not fit in an int64.
func (h *Header) ImageSize() int64 {
	n := h.VoxelCount()
	bits := int64(h.BitPix)
	if n < 0 || bits < 0 || (bits > 0 && n > math.MaxInt64/bits) {
		return -1
	}
	return n * bits / 8
}

// detectOrder figures out the byte order from sizeof_hdr.
func detectOrder(data []byte, want uint32) (binary.ByteOrder, bool) {
	if len(data) < 4 {
		return nil, false
	}
	switch {
	case binary.LittleEndian.Uint32(data) == want:
		return binary.LittleEndian, true
	case binary.BigEndian.Uint32(data) == want:
		return binary.BigEndian, true
	}
	return nil, false
}

func isNifti1(data []byte) bool {
	if len(data) < Nifti1HeaderSize {
		return false
	}
	if _, ok := detectOrder(data, Nifti1HeaderSize); !ok {
		return false
	}
	magic := data[nifti1MagicOffset : nifti1MagicOffset+4]
	return bytes.Equal(magic, magicNifti1Single) || bytes.Equal(magic, magicNifti1Detached)
}

func isNifti2(data []byte) bool {
	if len(data) < Nifti2HeaderSize {
		return false
	}
	if _, ok := detectOrder(data, Nifti2HeaderSize); !ok {
		return false
	}
	magic := data[nifti2MagicOffset : nifti2MagicOffset+8]
	return bytes.Equal(magic, magicNifti2Single) || bytes.Equal(magic, magicNifti2Detached)
}

// IsNIFTI reports whether data starts with a NIFTI-1 or NIFTI-2 header.
func IsNIFTI(data []byte) bool {
	return isNifti1(data) || isNifti2(data)
}

// ReadHeader decodes the header at the start of data.
func ReadHeader(data []byte) (*Header, error) {
	var (
		h   *Header
		err error
	)
	switch {
	case isNifti1(data):
		h, err = readNifti1(data)
	case isNifti2(data):
		h, err = readNifti2(data)
	default:
		return nil, ErrNotNIFTI
	}
	if err != nil {
		return nil, err
	}
	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) validate() error {
	rank := h.Rank()
	if rank < 1 || h.Dims[0] > 7 {
		return fmt.Errorf("%w: rank %d", ErrInvalidHeader, h.Dims[0])
	}
	for i := 1; i <= rank; i++ {
		if h.Dims[i] < 0 {
			return fmt.Errorf("%w: negative extent %d on axis %d", ErrInvalidHeader, h.Dims[i], i)
		}
	}
	if h.BitPix <= 0 || h.BitPix%8 != 0 {
		if h.Datatype != DatatypeBinary {
			return fmt.Errorf("%w: bitpix %d", ErrInvalidHeader, h.BitPix)
		}
	}
	if size := h.Datatype.Size(); size > 0 && int(h.BitPix) != size*8 {
		return fmt.Errorf("%w: bitpix %d does not match datatype %s", ErrInvalidHeader, h.BitPix, h.Datatype)
	}
	if h.ImageSize() < 0 {
		return fmt.Errorf("%w: dimensions %v overflow the image size", ErrInvalidHeader, h.Dims[1:rank+1])
	}
	return nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func readNifti1(data []byte) (*Header, error) {
	order, _ := detectOrder(data, Nifti1HeaderSize)
	i16 := func(off int) int16 { return int16(order.Uint16(data[off:])) }
	f32 := func(off int) float64 { return float64(math.Float32frombits(order.Uint32(data[off:]))) }

	h := &Header{
		Version:   1,
		ByteOrder: order,
		DimInfo:   data[39],
	}
	for i := 0; i < 8; i++ {
		h.Dims[i] = int64(i16(40 + 2*i))
		h.PixDim[i] = f32(76 + 4*i)
	}
	h.IntentCode = int32(i16(68))
	h.Datatype = Datatype(i16(70))
	h.BitPix = i16(72)
	h.SliceStart = int64(i16(74))
	voxOffset := f32(108)
	if math.IsNaN(voxOffset) || voxOffset < 0 || voxOffset > math.MaxInt32 {
		return nil, fmt.Errorf("%w: vox_offset %g", ErrInvalidHeader, voxOffset)
	}
	h.VoxOffset = int64(voxOffset)
	h.SclSlope = f32(112)
	h.SclInter = f32(116)
	h.SliceEnd = int64(i16(120))
	h.SliceCode = int32(data[122])
	h.XYZTUnits = int32(data[123])
	h.CalMax = f32(124)
	h.CalMin = f32(128)
	h.SliceDuration = f32(132)
	h.TOffset = f32(136)
	h.Description = cString(data[148:228])
	h.AuxFile = cString(data[228:252])
	h.QFormCode = int32(i16(252))
	h.SFormCode = int32(i16(254))
	h.IntentName = cString(data[328:344])

	magic := data[nifti1MagicOffset : nifti1MagicOffset+4]
	h.Magic = cString(magic)
	h.Detached = bytes.Equal(magic, magicNifti1Detached)
	if !h.Detached && h.VoxOffset < nifti1MinVoxOffset {
		h.VoxOffset = nifti1MinVoxOffset
	}
	return h, nil
}

func readNifti2(data []byte) (*Header, error) {
	order, _ := detectOrder(data, Nifti2HeaderSize)
	i16 := func(off int) int16 { return int16(order.Uint16(data[off:])) }
	i32 := func(off int) int32 { return int32(order.Uint32(data[off:])) }
	i64 := func(off int) int64 { return int64(order.Uint64(data[off:])) }
	f64 := func(off int) float64 { return math.Float64frombits(order.Uint64(data[off:])) }

	h := &Header{
		Version:   2,
		ByteOrder: order,
	}
	h.Datatype = Datatype(i16(12))
	h.BitPix = i16(14)
	for i := 0; i < 8; i++ {
		h.Dims[i] = i64(16 + 8*i)
		h.PixDim[i] = f64(104 + 8*i)
	}
	h.VoxOffset = i64(168)
	h.SclSlope = f64(176)
	h.SclInter = f64(184)
	h.CalMax = f64(192)
	h.CalMin = f64(200)
	h.SliceDuration = f64(208)
	h.TOffset = f64(216)
	h.SliceStart = i64(224)
	h.SliceEnd = i64(232)
	h.Description = cString(data[240:320])
	h.AuxFile = cString(data[320:344])
	h.QFormCode = i32(344)
	h.SFormCode = i32(348)
	h.SliceCode = i32(496)
	h.XYZTUnits = i32(500)
	h.IntentCode = i32(504)
	h.IntentName = cString(data[508:524])
	h.DimInfo = data[524]

	magic := data[nifti2MagicOffset : nifti2MagicOffset+8]
	h.Magic = cString(magic)
	h.Detached = bytes.Equal(magic, magicNifti2Detached)
	if !h.Detached && h.VoxOffset < nifti2MinVoxOffset {
		h.VoxOffset = nifti2MinVoxOffset
	}
	if h.VoxOffset < 0 {
		return nil, fmt.Errorf("%w: negative vox_offset", ErrInvalidHeader)
	}
	return h, nil
}
