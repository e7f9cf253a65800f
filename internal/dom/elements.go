package dom

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"golang.org/x/image/draw"

	"niftiview/pkg/interpolation"
)

const dataURLPrefix = "data:image/png;base64,"

// Canvas is a resizable RGBA drawing surface.
type Canvas struct {
	Target

	ID string

	mu     sync.Mutex
	width  int
	height int
	pixels *image.RGBA
	// Writes counts PutImageData calls.
	writes int
}

// NewCanvas creates an empty canvas.
func NewCanvas(id string) *Canvas {
	return &Canvas{ID: id, pixels: image.NewRGBA(image.Rectangle{})}
}

// Resize sets the canvas size and clears its contents, as assigning
// canvas.width/height does in a browser.
func (c *Canvas) Resize(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
	c.pixels = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Size returns the canvas dimensions.
func (c *Canvas) Size() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

// PutImageData copies img onto the canvas at the origin, clipped to the
// canvas bounds.
func (c *Canvas) PutImageData(img *image.RGBA) {
	c.mu.Lock()
	defer c.mu.Unlock()
	draw.Draw(c.pixels, c.pixels.Bounds(), img, img.Bounds().Min, draw.Src)
	c.writes++
}

// Writes returns the number of PutImageData calls so far.
func (c *Canvas) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

// ImageData returns a copy of the canvas pixels.
func (c *Canvas) ImageData() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := image.NewRGBA(c.pixels.Bounds())
	copy(out.Pix, c.pixels.Pix)
	return out
}

// ToDataURL encodes the canvas as a PNG data URL.
func (c *Canvas) ToDataURL() (string, error) {
	img := c.ImageData()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode canvas: %w", err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Slider is a range input over [0, Max].
type Slider struct {
	Target

	ID string

	mu    sync.Mutex
	max   int
	value int
}

// NewSlider creates a slider with max 0.
func NewSlider(id string) *Slider {
	return &Slider{ID: id}
}

// SetMax sets the upper bound and clamps the value.
func (s *Slider) SetMax(max int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if max < 0 {
		max = 0
	}
	s.max = max
	if s.value > max {
		s.value = max
	}
}

// Max returns the upper bound.
func (s *Slider) Max() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.max
}

// SetValue sets the displayed value, clamped to [0, Max]. It does not
// dispatch an input event.
func (s *Slider) SetValue(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = clamp(v, 0, s.max)
}

// Value returns the displayed value.
func (s *Slider) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Input simulates the user dragging the slider to v.
func (s *Slider) Input(v int) {
	s.SetValue(v)
	s.Dispatch(&Event{Type: EventInput, Value: s.Value()})
}

// Image is an img element showing a data URL at a fixed display size.
type Image struct {
	Target

	ID string

	mu     sync.Mutex
	width  int
	height int
	src    string
}

// NewImage creates an image element with no source.
func NewImage(id string) *Image {
	return &Image{ID: id}
}

// SetSize sets the display size.
func (i *Image) SetSize(width, height int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.width, i.height = width, height
}

// Size returns the display size.
func (i *Image) Size() (int, int) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.width, i.height
}

// SetSrc sets the image source.
func (i *Image) SetSrc(src string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.src = src
}

// Src returns the image source.
func (i *Image) Src() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.src
}

// Raster decodes the source and scales it to the display size with kernel k,
// the way a browser presents the element.
func (i *Image) Raster(k interpolation.Kernel) (*image.RGBA, error) {
	src := i.Src()
	w, h := i.Size()
	if src == "" {
		return nil, errors.New("image has no source")
	}
	decoded, err := DecodeDataURL(src)
	if err != nil {
		return nil, err
	}
	return interpolation.Scale(decoded, w, h, k), nil
}

// DecodeDataURL decodes a PNG data URL.
func DecodeDataURL(url string) (image.Image, error) {
	if !strings.HasPrefix(url, dataURLPrefix) {
		return nil, errors.New("not a PNG data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(url[len(dataURLPrefix):])
	if err != nil {
		return nil, fmt.Errorf("decode data URL: %w", err)
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return img, nil
}

// Document resolves elements by identifier.
type Document struct {
	mu       sync.Mutex
	canvases map[string]*Canvas
	sliders  map[string]*Slider
	images   map[string]*Image
}

// NewDocument creates an empty document.
func NewDocument() *Document {
	return &Document{
		canvases: make(map[string]*Canvas),
		sliders:  make(map[string]*Slider),
		images:   make(map[string]*Image),
	}
}

// AddCanvas creates and registers a canvas.
func (d *Document) AddCanvas(id string) *Canvas {
	c := NewCanvas(id)
	d.mu.Lock()
	d.canvases[id] = c
	d.mu.Unlock()
	return c
}

// AddSlider creates and registers a slider.
func (d *Document) AddSlider(id string) *Slider {
	s := NewSlider(id)
	d.mu.Lock()
	d.sliders[id] = s
	d.mu.Unlock()
	return s
}

// AddImage creates and registers an image element.
func (d *Document) AddImage(id string) *Image {
	i := NewImage(id)
	d.mu.Lock()
	d.images[id] = i
	d.mu.Unlock()
	return i
}

// Canvas looks up a canvas by id.
func (d *Document) Canvas(id string) (*Canvas, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.canvases[id]
	return c, ok
}

// Slider looks up a slider by id.
func (d *Document) Slider(id string) (*Slider, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.sliders[id]
	return s, ok
}

// Image looks up an image element by id.
func (d *Document) Image(id string) (*Image, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i, ok := d.images[id]
	return i, ok
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
