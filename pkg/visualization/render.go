package visualization

import (
	"fmt"
	"image"
	"math"

	"niftiview/internal/dom"
	"niftiview/internal/models"
	"niftiview/pkg/interpolation"
	"niftiview/pkg/nifti"
)

// FlatSlicePolicy selects how a slice whose voxels all share one value is
// drawn. Linear normalization is undefined for such slices.
type FlatSlicePolicy string

const (
	// FlatBlack draws the slice as 0, which is what a browser canvas ends up
	// showing for the NaN produced by dividing by a zero range.
	FlatBlack FlatSlicePolicy = "black"
	// FlatMidGray draws the slice as 128.
	FlatMidGray FlatSlicePolicy = "midgray"
	// FlatReject refuses to draw the slice and returns ErrDegenerateSlice.
	FlatReject FlatSlicePolicy = "reject"
)

// RenderOptions controls Render.
type RenderOptions struct {
	Flat FlatSlicePolicy

	// DisplayWidth and DisplayHeight size the image element the canvas is
	// mirrored to.
	DisplayWidth  int
	DisplayHeight int

	// Interpolation is the kernel Snapshot scales the displayed slice with.
	Interpolation interpolation.Kernel
}

// DefaultRenderOptions matches the 800x800 display of the browser viewer.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		Flat:          FlatBlack,
		DisplayWidth:  800,
		DisplayHeight: 800,
		Interpolation: interpolation.Nearest,
	}
}

// NormalizeSlice rescales slice index of the volume to 8-bit grayscale.
//
// The range is the minimum and maximum of this slice alone; NaN and
// infinite voxels do not contribute to it. Each voxel v becomes
// floor(255 * (v - min) / (max - min)), written to R, G and B with alpha
// 255. NaN and infinite voxels become 0.
func NormalizeSlice(index int, h *nifti.Header, v nifti.Voxels, flat FlatSlicePolicy) (*models.Slice, error) {
	if !h.Datatype.Supported() || v.Datatype() != h.Datatype {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatatype, h.Datatype)
	}
	width, height := h.Width(), h.Height()
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	if index < 0 || index >= h.SliceCount() {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrSliceOutOfRange, index, h.SliceCount())
	}

	size := width * height
	offset := size * index
	if offset+size > v.Len() {
		return nil, fmt.Errorf("%w: slice %d needs voxels [%d, %d), have %d",
			nifti.ErrTruncatedImage, index, offset, offset+size, v.Len())
	}

	// Pass one: intensity range of this slice.
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := offset; i < offset+size; i++ {
		x := v.At(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if lo > hi {
		lo, hi = 0, 0
	}

	out := &models.Slice{
		Image: image.NewRGBA(image.Rect(0, 0, width, height)),
		Index: index,
		Min:   lo,
		Max:   hi,
		Flat:  lo == hi,
	}

	if out.Flat {
		var gray uint8
		switch flat {
		case FlatReject:
			return nil, fmt.Errorf("%w: slice %d has constant value %g", ErrDegenerateSlice, index, lo)
		case FlatMidGray:
			gray = 128
		}
		fill(out.Image, gray)
		return out, nil
	}

	// Pass two: write pixels.
	span := hi - lo
	pix := out.Image.Pix
	for i := 0; i < size; i++ {
		x := v.At(offset + i)
		var gray uint8
		switch {
		case math.IsNaN(x), math.IsInf(x, 0):
		case x >= hi:
			gray = 255
		case x > lo:
			gray = uint8(math.Floor(255 * (x - lo) / span))
		}
		p := pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = gray, gray, gray, 0xff
	}
	return out, nil
}

func fill(img *image.RGBA, gray uint8) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = gray
		img.Pix[i+1] = gray
		img.Pix[i+2] = gray
		img.Pix[i+3] = 0xff
	}
}

// Draw puts a rendered slice on the canvas, resizing it to the slice, and
// mirrors the canvas into img at the display size. img may be nil.
func Draw(canvas *dom.Canvas, img *dom.Image, s *models.Slice, opts RenderOptions) error {
	b := s.Image.Bounds()
	canvas.Resize(b.Dx(), b.Dy())
	canvas.PutImageData(s.Image)
	if img == nil {
		return nil
	}
	url, err := canvas.ToDataURL()
	if err != nil {
		return err
	}
	img.SetSize(opts.DisplayWidth, opts.DisplayHeight)
	img.SetSrc(url)
	return nil
}

// Render normalizes slice index and draws it. On error the canvas and the
// image element are left untouched.
func Render(canvas *dom.Canvas, img *dom.Image, index int, h *nifti.Header, v nifti.Voxels, opts RenderOptions) (*models.Slice, error) {
	s, err := NormalizeSlice(index, h, v, opts.Flat)
	if err != nil {
		return nil, err
	}
	if err := Draw(canvas, img, s, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// RenderRaw is Render over an undecoded voxel buffer; the typed view is
// chosen from the header's datatype.
func RenderRaw(canvas *dom.Canvas, img *dom.Image, index int, h *nifti.Header, raw []byte, opts RenderOptions) (*models.Slice, error) {
	v, err := nifti.NewVoxels(h, raw)
	if err != nil {
		return nil, err
	}
	return Render(canvas, img, index, h, v, opts)
}
