package nifti

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"niftiview/pkg/nifti/niftitest"
)

func TestIsNIFTI(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"nifti1 little endian", niftitest.Build(niftitest.Spec{Dims: []int{2, 2, 1}, Datatype: 2, Values: make([]float64, 4)}), true},
		{"nifti1 big endian", niftitest.Build(niftitest.Spec{Order: binary.BigEndian, Dims: []int{2, 2, 1}, Datatype: 2, Values: make([]float64, 4)}), true},
		{"nifti2", niftitest.Build(niftitest.Spec{Version: 2, Dims: []int{2, 2, 1}, Datatype: 2, Values: make([]float64, 4)}), true},
		{"detached header", niftitest.Build(niftitest.Spec{Detached: true, Dims: []int{2, 2, 1}, Datatype: 2}), true},
		{"empty", nil, false},
		{"short", []byte("n+1"), false},
		{"random", make([]byte, 600), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNIFTI(tt.data))
		})
	}
}

func TestReadHeader_Nifti1(t *testing.T) {
	data := niftitest.Build(niftitest.Spec{
		Dims:        []int{4, 3, 2},
		Datatype:    int16(DatatypeInt16),
		Values:      niftitest.Ramp(24),
		Description: "phantom",
	})

	h, err := ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Version)
	assert.Equal(t, binary.LittleEndian, h.ByteOrder)
	assert.Equal(t, int64(3), h.Dims[0])
	assert.Equal(t, 4, h.Width())
	assert.Equal(t, 3, h.Height())
	assert.Equal(t, 2, h.SliceCount())
	assert.Equal(t, DatatypeInt16, h.Datatype)
	assert.Equal(t, int16(16), h.BitPix)
	assert.Equal(t, int64(352), h.VoxOffset)
	assert.Equal(t, int64(48), h.ImageSize())
	assert.Equal(t, "phantom", h.Description)
	assert.Equal(t, "n+1", h.Magic)
	assert.False(t, h.Detached)
}

func TestReadHeader_Nifti2BigEndian(t *testing.T) {
	data := niftitest.Build(niftitest.Spec{
		Version:  2,
		Order:    binary.BigEndian,
		Dims:     []int{5, 4, 3},
		Datatype: int16(DatatypeFloat64),
		Values:   niftitest.Ramp(60),
	})

	h, err := ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Version)
	assert.Equal(t, binary.BigEndian, h.ByteOrder)
	assert.Equal(t, [8]int64{3, 5, 4, 3, 0, 0, 0, 0}, h.Dims)
	assert.Equal(t, DatatypeFloat64, h.Datatype)
	assert.Equal(t, int64(544), h.VoxOffset)
}

func TestReadHeader_Errors(t *testing.T) {
	_, err := ReadHeader([]byte("nope"))
	require.ErrorIs(t, err, ErrNotNIFTI)

	bad := niftitest.Build(niftitest.Spec{Dims: []int{2, 2}, Datatype: int16(DatatypeInt16), BitPix: 8})
	_, err = ReadHeader(bad)
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func TestDecode_MalformedHeaders(t *testing.T) {
	withVoxOffset := func(data []byte, off float32) []byte {
		binary.LittleEndian.PutUint32(data[108:], math.Float32bits(off))
		return data
	}
	small := func() []byte {
		return niftitest.Build(niftitest.Spec{Dims: []int{2, 2, 2}, Datatype: 2, Values: niftitest.Ramp(8)})
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{
			name: "nifti1 dimensions overflow",
			data: niftitest.Build(niftitest.Spec{Dims: []int{30000, 30000, 30000, 30000, 30000, 30000, 30000}, Datatype: int16(DatatypeInt16)}),
			want: ErrInvalidHeader,
		},
		{
			name: "nifti2 dimensions overflow",
			data: niftitest.Build(niftitest.Spec{Version: 2, Dims: []int{1 << 40, 1 << 40, 2}, Datatype: int16(DatatypeUint8)}),
			want: ErrInvalidHeader,
		},
		{
			name: "bytes overflow after bitpix",
			data: niftitest.Build(niftitest.Spec{Version: 2, Dims: []int{1 << 31, 1 << 31}, Datatype: int16(DatatypeFloat64)}),
			want: ErrInvalidHeader,
		},
		{
			name: "huge but representable image",
			data: niftitest.Build(niftitest.Spec{Dims: []int{30000, 30000, 30000}, Datatype: int16(DatatypeInt16)}),
			want: ErrTruncatedImage,
		},
		{
			name: "vox_offset past the end",
			data: withVoxOffset(small(), 1e6),
			want: ErrTruncatedImage,
		},
		{
			name: "NaN vox_offset",
			data: withVoxOffset(small(), float32(math.NaN())),
			want: ErrInvalidHeader,
		},
		{
			name: "negative vox_offset",
			data: withVoxOffset(small(), -4),
			want: ErrInvalidHeader,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				_, _, err := Decode(tt.data, 0)
				require.ErrorIs(t, err, tt.want)
			})
		})
	}
}

func TestImageSize_Overflow(t *testing.T) {
	h := &Header{Dims: [8]int64{7, 30000, 30000, 30000, 30000, 30000, 30000, 30000}, BitPix: 16}
	assert.Equal(t, int64(-1), h.VoxelCount())
	assert.Equal(t, int64(-1), h.ImageSize())

	_, err := ReadImage(h, make([]byte, 400))
	require.ErrorIs(t, err, ErrInvalidHeader)

	h = &Header{Dims: [8]int64{3, 4, 5, 6}, BitPix: 32}
	assert.Equal(t, int64(120), h.VoxelCount())
	assert.Equal(t, int64(480), h.ImageSize())
}

func TestSliceCount_LowRank(t *testing.T) {
	data := niftitest.Build(niftitest.Spec{Dims: []int{3, 3}, Datatype: 2, Values: make([]float64, 9)})
	h, err := ReadHeader(data)
	require.NoError(t, err)
	assert.Equal(t, 1, h.SliceCount())
}

func TestReadImage(t *testing.T) {
	data := niftitest.Build(niftitest.Spec{Dims: []int{2, 2, 2}, Datatype: 2, Values: niftitest.Ramp(8)})
	h, err := ReadHeader(data)
	require.NoError(t, err)

	raw, err := ReadImage(h, data)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7}, raw)

	_, err = ReadImage(h, data[:len(data)-1])
	require.ErrorIs(t, err, ErrTruncatedImage)
}

func TestReadImage_Detached(t *testing.T) {
	data := niftitest.Build(niftitest.Spec{Detached: true, Dims: []int{2, 2, 1}, Datatype: 2})
	h, err := ReadHeader(data)
	require.NoError(t, err)
	require.True(t, h.Detached)

	_, err = ReadImage(h, data)
	require.ErrorIs(t, err, ErrDetachedImage)
}

func TestDecompress(t *testing.T) {
	plain := niftitest.Build(niftitest.Spec{Dims: []int{2, 2, 1}, Datatype: 2, Values: niftitest.Ramp(4)})
	packed := niftitest.Gzip(plain)

	require.True(t, IsCompressed(packed))
	require.False(t, IsCompressed(plain))

	out, err := Decompress(packed, 0)
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	_, err = Decompress(packed, int64(len(plain)-1))
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = Decompress([]byte{0x1f, 0x8b, 0x00}, 0)
	require.Error(t, err)
}

func TestDecode(t *testing.T) {
	plain := niftitest.Build(niftitest.Spec{Dims: []int{2, 2, 2}, Datatype: int16(DatatypeFloat32), Values: []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5}})

	for name, payload := range map[string][]byte{"plain": plain, "gzip": niftitest.Gzip(plain)} {
		t.Run(name, func(t *testing.T) {
			h, v, err := Decode(payload, 0)
			require.NoError(t, err)
			assert.Equal(t, DatatypeFloat32, h.Datatype)
			require.Equal(t, 8, v.Len())
			assert.Equal(t, 2.5, v.At(5))
		})
	}

	_, _, err := Decode([]byte("plain text"), 0)
	require.ErrorIs(t, err, ErrNotNIFTI)
}

func TestNewVoxels_AllSupportedTypes(t *testing.T) {
	values := []float64{-3, 0, 7, 100}
	tests := []struct {
		dt   Datatype
		want []float64
	}{
		{DatatypeUint8, []float64{253, 0, 7, 100}},
		{DatatypeInt8, values},
		{DatatypeInt16, values},
		{DatatypeUint16, []float64{65533, 0, 7, 100}},
		{DatatypeInt32, values},
		{DatatypeUint32, []float64{4294967293, 0, 7, 100}},
		{DatatypeFloat32, values},
		{DatatypeFloat64, values},
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		for _, tt := range tests {
			t.Run(order.String()+"/"+tt.dt.String(), func(t *testing.T) {
				data := niftitest.Build(niftitest.Spec{Order: order, Dims: []int{4, 1, 1}, Datatype: int16(tt.dt), Values: values})
				h, v, err := Decode(data, 0)
				require.NoError(t, err)
				require.Equal(t, tt.dt, v.Datatype())
				require.Equal(t, len(tt.want), v.Len())
				for i, w := range tt.want {
					assert.Equal(t, w, v.At(i), "voxel %d", i)
				}
				assert.Equal(t, order, h.ByteOrder)
			})
		}
	}
}

func TestNewVoxels_Unsupported(t *testing.T) {
	for _, dt := range []Datatype{DatatypeRGB24, DatatypeComplex64, DatatypeInt64, Datatype(9999)} {
		h := &Header{Datatype: dt, ByteOrder: binary.LittleEndian}
		_, err := NewVoxels(h, make([]byte, 16))
		require.ErrorIs(t, err, ErrUnsupportedDatatype, dt.String())
		assert.False(t, dt.Supported())
	}
}

func TestSliceOf(t *testing.T) {
	data := niftitest.Build(niftitest.Spec{Dims: []int{3, 1, 1}, Datatype: int16(DatatypeInt16), Values: []float64{-1, 0, 1}})
	_, v, err := Decode(data, 0)
	require.NoError(t, err)

	s, ok := SliceOf[int16](v)
	require.True(t, ok)
	assert.Equal(t, []int16{-1, 0, 1}, s)

	_, ok = SliceOf[float32](v)
	assert.False(t, ok)
}

func TestComputeStats(t *testing.T) {
	data := niftitest.Build(niftitest.Spec{Dims: []int{5, 1, 1}, Datatype: int16(DatatypeFloat32), Values: []float64{1, 2, 3, 4, math.NaN()}})
	_, v, err := Decode(data, 0)
	require.NoError(t, err)

	s := ComputeStats(v)
	assert.Equal(t, 4, s.Count)
	assert.Equal(t, 1, s.NaN)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, 2.5, s.Mean, 1e-9)
	assert.InDelta(t, 1.2909944, s.StdDev, 1e-6)
}

func TestDatatypeString(t *testing.T) {
	assert.Equal(t, "float32", DatatypeFloat32.String())
	assert.Equal(t, "datatype(3)", Datatype(3).String())
	assert.Equal(t, 2, DatatypeUint16.Size())
	assert.Equal(t, 0, DatatypeRGB24.Size())
}
