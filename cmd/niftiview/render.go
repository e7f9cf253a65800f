package main

import (
	"context"
	"fmt"
	"image"

	"github.com/alecthomas/kingpin/v2"

	"niftiview/internal/dom"
	"niftiview/pkg/visualization"
)

// renderCommand writes one slice of a volume to an image file.
type renderCommand struct {
	g       *globals
	file    *string
	slice   *int
	out     *string
	display *bool
}

func (cmd *renderCommand) run(*kingpin.ParseContext) error {
	viewer, doc, err := cmd.g.openViewer(context.Background(), *cmd.file)
	if err != nil {
		return err
	}
	if *cmd.slice < 0 || *cmd.slice >= viewer.MaxSlice() {
		return fmt.Errorf("%w: %d not in [0, %d)", visualization.ErrSliceOutOfRange, *cmd.slice, viewer.MaxSlice())
	}
	if _, err := viewer.SeekTo(*cmd.slice); err != nil {
		return err
	}

	img, err := cmd.g.capture(viewer, doc, *cmd.display)
	if err != nil {
		return err
	}
	if err := visualization.SaveSlice(img, *cmd.out); err != nil {
		return err
	}
	fmt.Printf("Slice %d/%d saved to: %s\n", viewer.Current(), viewer.MaxSlice()-1, *cmd.out)
	return nil
}

// capture returns the canvas pixels, or the image element as displayed.
func (g *globals) capture(viewer *visualization.Viewer, doc *dom.Document, display bool) (image.Image, error) {
	if display {
		snap, err := viewer.Snapshot()
		if err != nil {
			return nil, err
		}
		return snap.Image, nil
	}
	canvas, ok := doc.Canvas(g.cfg.Viewer.CanvasID)
	if !ok {
		return nil, visualization.ErrElementNotFound
	}
	return canvas.ImageData(), nil
}

func addRenderCommand(app *kingpin.Application, g *globals) {
	cmd := &renderCommand{g: g}
	render := app.Command("render", "Render one slice to a PNG or JPEG file.").PreAction(g.setup).Action(cmd.run)
	cmd.file = render.Arg("file", "NIFTI file (.nii or .nii.gz).").Required().ExistingFile()
	cmd.slice = render.Flag("slice", "Slice index along the third axis.").Short('s').Default("0").Int()
	cmd.out = render.Flag("out", "Output image; .jpg selects JPEG.").Short('o').Default("slice.png").String()
	cmd.display = render.Flag("display", "Write the image element at display size instead of the canvas.").Bool()
}

// exportCommand writes every slice of a volume to a directory.
type exportCommand struct {
	g      *globals
	file   *string
	dir    *string
	format *string
}

func (cmd *exportCommand) run(*kingpin.ParseContext) error {
	viewer, _, err := cmd.g.openViewer(context.Background(), *cmd.file)
	if err != nil {
		return err
	}
	dir := *cmd.dir
	if dir == "" {
		dir = cmd.g.cfg.Output.Dir
	}

	fmt.Printf("Saving z-axis slices to: %s\n", dir)
	n, err := viewer.SaveSliceSequence(dir, *cmd.format)
	if err != nil {
		return err
	}
	fmt.Printf("Slice extraction completed! %d slices written\n", n)
	return nil
}

func addExportCommand(app *kingpin.Application, g *globals) {
	cmd := &exportCommand{g: g}
	export := app.Command("export", "Render every slice to an image file.").PreAction(g.setup).Action(cmd.run)
	cmd.file = export.Arg("file", "NIFTI file (.nii or .nii.gz).").Required().ExistingFile()
	cmd.dir = export.Flag("dir", "Output directory; defaults to output.dir from the configuration.").Short('d').String()
	cmd.format = export.Flag("format", "Image format.").Default("png").Enum("png", "jpg")
}
