package models

import (
	"image"
)

// Slice is one rendered cross-section of a volume
type Slice struct {
	// Image holds the grayscale pixels as equal R, G and B channels
	Image *image.RGBA

	// Index is the position of this slice along the third axis
	Index int

	// Min and Max are the raw intensity range the slice was normalized over
	Min float64
	Max float64

	// Flat is set when every voxel in the slice has the same value
	Flat bool
}

// Volume describes the geometry of a loaded volume
type Volume struct {
	// Width, Height and Depth are the extents of the first three axes in voxels
	Width  int
	Height int
	Depth  int

	// VoxelSize is the physical size of each voxel, in the units of the header
	VoxelSize struct {
		X, Y, Z float64
	}
}

// SliceCount returns the number of slices along the third axis
func (v Volume) SliceCount() int {
	if v.Depth < 1 {
		return 1
	}
	return v.Depth
}
