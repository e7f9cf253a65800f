// Package nifti decodes NIFTI-1 and NIFTI-2 volumetric images, plain or
// gzip compressed, into a header and a typed voxel view.
package nifti

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

var (
	// ErrNotNIFTI is returned when a payload carries no NIFTI header.
	ErrNotNIFTI = errors.New("not a NIFTI payload")
	// ErrUnsupportedDatatype is returned for voxel types with no typed view.
	ErrUnsupportedDatatype = errors.New("unsupported voxel datatype")
	// ErrDetachedImage is returned when the voxels live in a separate file.
	ErrDetachedImage = errors.New("header has detached image data")
	// ErrTruncatedImage is returned when the payload ends before the voxels do.
	ErrTruncatedImage = errors.New("image data truncated")
	// ErrInvalidHeader is returned for headers whose fields cannot describe
	// an image.
	ErrInvalidHeader = errors.New("invalid NIFTI header")
	// ErrTooLarge is returned when decompressed data exceeds the limit.
	ErrTooLarge = errors.New("decompressed payload exceeds limit")
)

var gzipMagic = []byte{0x1f, 0x8b}

// IsCompressed reports whether data is gzip compressed.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// Decompress inflates gzip data. A limit of zero means no limit.
func Decompress(data []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer zr.Close()

	var r io.Reader = zr
	if limit > 0 {
		r = io.LimitReader(zr, limit+1)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	if limit > 0 && int64(len(out)) > limit {
		return nil, ErrTooLarge
	}
	return out, nil
}

// ReadImage returns the raw voxel bytes that follow the header. The result
// aliases data.
func ReadImage(h *Header, data []byte) ([]byte, error) {
	if h.Detached {
		return nil, ErrDetachedImage
	}
	size := h.ImageSize()
	if size < 0 {
		return nil, fmt.Errorf("%w: image size overflows", ErrInvalidHeader)
	}
	start := h.VoxOffset
	if start < 0 || start > int64(len(data)) || size > int64(len(data))-start {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d",
			ErrTruncatedImage, size, start, len(data))
	}
	return data[start : start+size], nil
}

// Decode runs the full pipeline on a payload: optional decompression,
// header decoding, image extraction and typed view construction.
func Decode(data []byte, limit int64) (*Header, Voxels, error) {
	if IsCompressed(data) {
		var err error
		if data, err = Decompress(data, limit); err != nil {
			return nil, nil, err
		}
	}
	if !IsNIFTI(data) {
		return nil, nil, ErrNotNIFTI
	}
	h, err := ReadHeader(data)
	if err != nil {
		return nil, nil, err
	}
	raw, err := ReadImage(h, data)
	if err != nil {
		return nil, nil, err
	}
	v, err := NewVoxels(h, raw)
	if err != nil {
		return nil, nil, err
	}
	return h, v, nil
}
