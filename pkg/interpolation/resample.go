// Package interpolation resamples rendered slices to their display size.
package interpolation

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// Kernel selects the resampling filter used when a slice is scaled.
type Kernel string

// Supported kernels. Nearest reproduces the blocky look of a browser
// stretching a small canvas; the others smooth between voxels.
const (
	Nearest    Kernel = "nearest"
	Bilinear   Kernel = "bilinear"
	CatmullRom Kernel = "catmullrom"
)

// ParseKernel validates a kernel name. The empty string selects Nearest.
func ParseKernel(name string) (Kernel, error) {
	switch k := Kernel(name); k {
	case "":
		return Nearest, nil
	case Nearest, Bilinear, CatmullRom:
		return k, nil
	default:
		return "", fmt.Errorf("unknown interpolation kernel %q", name)
	}
}

func (k Kernel) scaler() draw.Scaler {
	switch k {
	case Bilinear:
		return draw.BiLinear
	case CatmullRom:
		return draw.CatmullRom
	default:
		return draw.NearestNeighbor
	}
}

// Scale resamples src to width x height. A non-positive size keeps the
// source dimensions.
func Scale(src image.Image, width, height int, k Kernel) *image.RGBA {
	b := src.Bounds()
	if width <= 0 || height <= 0 {
		width, height = b.Dx(), b.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	k.scaler().Scale(dst, dst.Rect, src, b, draw.Src, nil)
	return dst
}
