package visualization

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"niftiview/internal/dom"
	"niftiview/internal/models"
	"niftiview/pkg/nifti"
)

// Options configures a Viewer.
type Options struct {
	// CanvasID, SliderID and ImageID name the elements bound on Load.
	CanvasID string
	SliderID string
	ImageID  string

	Render RenderOptions

	// FrameCacheSize is the number of rendered slices kept between loads.
	// Zero disables the cache.
	FrameCacheSize int

	// MaxDecompressedBytes caps inflated payloads. Zero means no cap.
	MaxDecompressedBytes int64

	Logger *slog.Logger
}

// DefaultOptions returns the element ids and display size used by the
// browser viewer.
func DefaultOptions() Options {
	return Options{
		CanvasID:       "nifti-canvas",
		SliderID:       "nifti-slider",
		ImageID:        "nifti-image",
		Render:         DefaultRenderOptions(),
		FrameCacheSize: 64,
	}
}

// Viewer shows one slice of a loaded volume at a time on a canvas, mirrored
// into an image element, and moves between slices on wheel and slider
// events.
//
// A Viewer is safe for concurrent use. Callbacks run without the viewer's
// lock held and may call back into the viewer.
type Viewer struct {
	id     string
	doc    *dom.Document
	logger *slog.Logger

	mu       sync.Mutex
	opts     Options
	current  int
	maxSlice int
	header   *nifti.Header
	voxels   nifti.Voxels
	frame    *models.Slice
	canvas   *dom.Canvas
	slider   *dom.Slider
	image    *dom.Image
	regs     []dom.Registration
	frames   *lru.Cache[int, *models.Slice]
	gen      uint64
	onHeader func(*nifti.Header)
	onSlice  func(int)
}

// NewViewer creates a viewer that resolves its elements in doc.
func NewViewer(doc *dom.Document, opts Options) *Viewer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.NewString()
	v := &Viewer{
		id:     id,
		doc:    doc,
		logger: logger.With("viewer", id),
		opts:   opts,
	}
	if opts.FrameCacheSize > 0 {
		// Only fails for a non-positive size.
		v.frames, _ = lru.New[int, *models.Slice](opts.FrameCacheSize)
	}
	return v
}

// ID returns the viewer's unique identifier.
func (v *Viewer) ID() string { return v.id }

// SetCanvasID sets the canvas bound by the next Load.
func (v *Viewer) SetCanvasID(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.CanvasID = id
}

// SetSliderID sets the slider bound by the next Load.
func (v *Viewer) SetSliderID(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.SliderID = id
}

// SetImageID sets the image element bound by the next Load.
func (v *Viewer) SetImageID(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.opts.ImageID = id
}

// OnHeaderReady sets the callback invoked with the header after every
// successful Load.
func (v *Viewer) OnHeaderReady(fn func(*nifti.Header)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onHeader = fn
}

// OnSliceChange sets the callback invoked with the new index after every
// navigation step.
func (v *Viewer) OnSliceChange(fn func(int)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onSlice = fn
}

// Loaded reports whether a volume is loaded.
func (v *Viewer) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.header != nil
}

// Current returns the index of the displayed slice.
func (v *Viewer) Current() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}

// MaxSlice returns the number of slices, or 0 before the first Load.
func (v *Viewer) MaxSlice() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.maxSlice
}

// Header returns the loaded header, or nil.
func (v *Viewer) Header() *nifti.Header {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.header
}

// Voxels returns the loaded voxel view, or nil.
func (v *Viewer) Voxels() nifti.Voxels {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.voxels
}

// Frame returns the slice currently on the canvas, or nil.
func (v *Viewer) Frame() *models.Slice {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frame
}

// Volume returns the geometry of the loaded volume.
func (v *Viewer) Volume() models.Volume {
	v.mu.Lock()
	defer v.mu.Unlock()
	var vol models.Volume
	if v.header == nil {
		return vol
	}
	vol.Width = v.header.Width()
	vol.Height = v.header.Height()
	vol.Depth = v.maxSlice
	vol.VoxelSize.X = v.header.PixDim[1]
	vol.VoxelSize.Y = v.header.PixDim[2]
	vol.VoxelSize.Z = v.header.PixDim[3]
	return vol
}

// LoadResult is delivered by LoadAsync.
type LoadResult struct {
	Header *nifti.Header
	Err    error
}

// Load reads a NIFTI payload from r, binds the configured elements, draws
// the first slice and invokes the header-ready callback. A *LoadError
// leaves the previously loaded volume, elements and listeners in place.
//
// When slice 0 is flat under FlatReject the volume is still loaded and the
// header is returned together with ErrDegenerateSlice; the canvas is left
// untouched.
func (v *Viewer) Load(ctx context.Context, name string, r io.Reader) (*nifti.Header, error) {
	return v.load(ctx, v.beginLoad(), name, r)
}

// LoadAsync runs Load on a new goroutine. If another load starts before
// this one commits, this one's result is discarded with ErrSuperseded.
func (v *Viewer) LoadAsync(ctx context.Context, name string, r io.Reader) <-chan LoadResult {
	gen := v.beginLoad()
	ch := make(chan LoadResult, 1)
	go func() {
		defer close(ch)
		h, err := v.load(ctx, gen, name, r)
		ch <- LoadResult{Header: h, Err: err}
	}()
	return ch
}

// HandleFileSelect loads the first selected file.
func (v *Viewer) HandleFileSelect(ctx context.Context, ev dom.FileSelectEvent) (*nifti.Header, error) {
	if len(ev.Files) == 0 {
		return nil, ErrNoFile
	}
	f := ev.Files[0]
	if f.Open == nil {
		return nil, &LoadError{Stage: StageRead, Name: f.Name, Err: ErrNoFile}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &LoadError{Stage: StageRead, Name: f.Name, Err: err}
	}
	defer rc.Close()
	return v.Load(ctx, f.Name, rc)
}

func (v *Viewer) beginLoad() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	return v.gen
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func (v *Viewer) load(ctx context.Context, gen uint64, name string, r io.Reader) (*nifti.Header, error) {
	fail := func(stage LoadStage, err error) (*nifti.Header, error) {
		v.logger.Warn("load failed", "file", name, "stage", string(stage), "error", err)
		return nil, &LoadError{Stage: stage, Name: name, Err: err}
	}

	v.mu.Lock()
	opts := v.opts
	v.mu.Unlock()

	data, err := io.ReadAll(ctxReader{ctx: ctx, r: r})
	if err != nil {
		return fail(StageRead, err)
	}
	if nifti.IsCompressed(data) {
		if data, err = nifti.Decompress(data, opts.MaxDecompressedBytes); err != nil {
			return fail(StageDecompress, err)
		}
	}
	if !nifti.IsNIFTI(data) {
		return fail(StageParse, ErrNotNIFTI)
	}
	header, err := nifti.ReadHeader(data)
	if err != nil {
		return fail(StageParse, err)
	}
	raw, err := nifti.ReadImage(header, data)
	if err != nil {
		return fail(StageDecode, err)
	}
	voxels, err := nifti.NewVoxels(header, raw)
	if err != nil {
		return fail(StageDecode, err)
	}
	if err := ctx.Err(); err != nil {
		return fail(StageDecode, err)
	}

	canvas, ok := v.doc.Canvas(opts.CanvasID)
	if !ok {
		return fail(StageBind, fmt.Errorf("%w: canvas %q", ErrElementNotFound, opts.CanvasID))
	}
	slider, ok := v.doc.Slider(opts.SliderID)
	if !ok {
		return fail(StageBind, fmt.Errorf("%w: slider %q", ErrElementNotFound, opts.SliderID))
	}
	img, ok := v.doc.Image(opts.ImageID)
	if !ok {
		return fail(StageBind, fmt.Errorf("%w: image %q", ErrElementNotFound, opts.ImageID))
	}

	first, renderErr := NormalizeSlice(0, header, voxels, opts.Render.Flat)
	if renderErr != nil && !errors.Is(renderErr, ErrDegenerateSlice) {
		return fail(StageRender, renderErr)
	}

	v.mu.Lock()
	if v.gen != gen {
		v.mu.Unlock()
		return fail(StageCommit, ErrSuperseded)
	}

	for _, reg := range v.regs {
		reg.Remove()
	}
	v.header = header
	v.voxels = voxels
	v.canvas, v.slider, v.image = canvas, slider, img
	v.current = 0
	v.maxSlice = header.SliceCount()
	if v.frames != nil {
		v.frames.Purge()
		if first != nil {
			v.frames.Add(0, first)
		}
	}

	slider.SetMax(v.maxSlice - 1)
	slider.SetValue(0)
	v.regs = []dom.Registration{
		canvas.AddEventListener(dom.EventWheel, v.onWheel),
		canvas.AddEventListener(dom.EventDOMMouseScroll, v.onLegacyWheel),
		img.AddEventListener(dom.EventWheel, v.onWheel),
		img.AddEventListener(dom.EventDOMMouseScroll, v.onLegacyWheel),
		slider.AddEventListener(dom.EventInput, v.onSliderInput),
	}

	v.frame = first
	var drawErr error
	if first != nil {
		drawErr = Draw(canvas, img, first, v.opts.Render)
	}
	onHeader := v.onHeader
	v.mu.Unlock()

	if drawErr != nil {
		v.logger.Error("draw first slice", "file", name, "error", drawErr)
	}
	v.logger.Info("volume loaded",
		"file", name,
		"width", header.Width(),
		"height", header.Height(),
		"slices", header.SliceCount(),
		"datatype", header.Datatype.String())
	if onHeader != nil {
		onHeader(header)
	}
	if renderErr != nil {
		v.logger.Warn("first slice not drawn", "file", name, "error", renderErr)
		return header, renderErr
	}
	return header, nil
}

// MoveNext shows the next slice. At the last slice it does nothing and
// reports false.
func (v *Viewer) MoveNext() (bool, error) {
	return v.moveBy(1)
}

// MovePrev shows the previous slice. At slice 0 it does nothing and
// reports false.
func (v *Viewer) MovePrev() (bool, error) {
	return v.moveBy(-1)
}

// SeekTo shows slice index, clamped to the valid range.
func (v *Viewer) SeekTo(index int) (bool, error) {
	v.mu.Lock()
	if v.header == nil {
		v.mu.Unlock()
		return false, ErrNotLoaded
	}
	if index < 0 {
		index = 0
	}
	if index > v.maxSlice-1 {
		index = v.maxSlice - 1
	}
	return v.showAndUnlock(index)
}

func (v *Viewer) moveBy(delta int) (bool, error) {
	v.mu.Lock()
	if v.header == nil {
		v.mu.Unlock()
		return false, ErrNotLoaded
	}
	next := v.current + delta
	if next < 0 || next > v.maxSlice-1 {
		v.mu.Unlock()
		return false, nil
	}
	return v.showAndUnlock(next)
}

// showAndUnlock must be called with v.mu held.
func (v *Viewer) showAndUnlock(index int) (bool, error) {
	if index == v.current {
		v.mu.Unlock()
		return false, nil
	}
	s, err := v.sliceLocked(index)
	if err == nil {
		err = Draw(v.canvas, v.image, s, v.opts.Render)
	}
	// A rejected flat slice still moves the index so the slices after it
	// stay reachable; only the drawing is skipped.
	if err != nil && !errors.Is(err, ErrDegenerateSlice) {
		v.mu.Unlock()
		return false, err
	}
	v.current = index
	v.frame = s
	v.slider.SetValue(index)
	onSlice := v.onSlice
	v.mu.Unlock()

	if onSlice != nil {
		onSlice(index)
	}
	return true, err
}

func (v *Viewer) sliceLocked(index int) (*models.Slice, error) {
	if v.frames != nil {
		if s, ok := v.frames.Get(index); ok {
			return s, nil
		}
	}
	s, err := NormalizeSlice(index, v.header, v.voxels, v.opts.Render.Flat)
	if err != nil {
		return nil, err
	}
	if v.frames != nil {
		v.frames.Add(index, s)
	}
	return s, nil
}

// RenderSlice normalizes slice index of the loaded volume without drawing
// it or changing the current slice.
func (v *Viewer) RenderSlice(index int) (*models.Slice, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.header == nil {
		return nil, ErrNotLoaded
	}
	return v.sliceLocked(index)
}

// Snapshot returns the image element as displayed.
func (v *Viewer) Snapshot() (*models.Slice, error) {
	v.mu.Lock()
	img, frame, current, kernel := v.image, v.frame, v.current, v.opts.Render.Interpolation
	v.mu.Unlock()
	if img == nil {
		return nil, ErrNotLoaded
	}
	if frame == nil {
		return nil, fmt.Errorf("%w: slice %d was not drawn", ErrDegenerateSlice, current)
	}
	raster, err := img.Raster(kernel)
	if err != nil {
		return nil, err
	}
	return &models.Slice{
		Image: raster,
		Index: frame.Index,
		Min:   frame.Min,
		Max:   frame.Max,
		Flat:  frame.Flat,
	}, nil
}

func (v *Viewer) onWheel(e *dom.Event) {
	e.PreventDefault()
	if e.WheelDelta < 0 {
		v.navigate(v.MoveNext)
	} else {
		v.navigate(v.MovePrev)
	}
}

func (v *Viewer) onLegacyWheel(e *dom.Event) {
	e.PreventDefault()
	if e.Detail > 0 {
		v.navigate(v.MoveNext)
	} else {
		v.navigate(v.MovePrev)
	}
}

func (v *Viewer) onSliderInput(e *dom.Event) {
	v.navigate(func() (bool, error) { return v.SeekTo(e.Value) })
}

func (v *Viewer) navigate(step func() (bool, error)) {
	if _, err := step(); err != nil {
		v.logger.Warn("navigation failed", "error", err)
	}
}
