package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
)

// SaveSlice writes img to filename. Files ending in .jpg or .jpeg are
// JPEG encoded, everything else is PNG.
func SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}

// SaveSliceSequence renders every slice of the loaded volume and saves them
// as slice_z_NNN.<format> in outputDir, returning how many were written.
// Slices rejected as flat are skipped. The canvas and the current slice are
// not touched.
func (v *Viewer) SaveSliceSequence(outputDir, format string) (int, error) {
	if !v.Loaded() {
		return 0, ErrNotLoaded
	}
	if format == "" {
		format = "png"
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return 0, err
	}

	count, written := v.MaxSlice(), 0
	for z := 0; z < count; z++ {
		s, err := v.RenderSlice(z)
		if errors.Is(err, ErrDegenerateSlice) {
			v.logger.Debug("skipping flat slice", "slice", z)
			continue
		}
		if err != nil {
			return written, fmt.Errorf("render slice %d: %w", z, err)
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.%s", z, format))
		if err := SaveSlice(s.Image, filename); err != nil {
			return written, fmt.Errorf("save slice %d: %w", z, err)
		}
		written++
	}

	return written, nil
}
