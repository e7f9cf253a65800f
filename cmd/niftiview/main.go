package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/lmittmann/tint"

	"niftiview/internal/dom"
	"niftiview/pkg/config"
	"niftiview/pkg/interpolation"
	"niftiview/pkg/visualization"
)

// globals holds the flags and state shared by every command. Commands that
// open volumes attach setup as their PreAction; init-config does not, so a
// broken configuration file can be regenerated.
type globals struct {
	configPath *string
	verbose    *bool

	cfg    *config.Config
	logger *slog.Logger
}

func (g *globals) setup(*kingpin.ParseContext) error {
	cfg, err := config.LoadConfig(*g.configPath)
	if err != nil {
		return err
	}
	if *g.verbose {
		cfg.Output.Verbose = true
	}
	g.cfg = cfg

	level := slog.LevelInfo
	if cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	g.logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
	slog.SetDefault(g.logger)
	return nil
}

// newDocument creates the canvas, slider and image the viewer binds to.
func (g *globals) newDocument() *dom.Document {
	doc := dom.NewDocument()
	doc.AddCanvas(g.cfg.Viewer.CanvasID)
	doc.AddSlider(g.cfg.Viewer.SliderID)
	doc.AddImage(g.cfg.Viewer.ImageID)
	return doc
}

func (g *globals) viewerOptions() (visualization.Options, error) {
	opts := visualization.DefaultOptions()
	opts.CanvasID = g.cfg.Viewer.CanvasID
	opts.SliderID = g.cfg.Viewer.SliderID
	opts.ImageID = g.cfg.Viewer.ImageID
	opts.Render.Flat = visualization.FlatSlicePolicy(g.cfg.Viewer.FlatSlicePolicy)
	opts.Render.DisplayWidth = g.cfg.Viewer.DisplayWidth
	opts.Render.DisplayHeight = g.cfg.Viewer.DisplayHeight
	kernel, err := interpolation.ParseKernel(g.cfg.Viewer.Interpolation)
	if err != nil {
		return opts, err
	}
	opts.Render.Interpolation = kernel
	opts.FrameCacheSize = g.cfg.Viewer.FrameCacheSize
	opts.MaxDecompressedBytes = g.cfg.Input.MaxDecompressedBytes
	opts.Logger = g.logger
	return opts, nil
}

// openViewer loads path into a fresh viewer through the file-select path.
// A volume whose first slice is rejected as flat still opens.
func (g *globals) openViewer(ctx context.Context, path string) (*visualization.Viewer, *dom.Document, error) {
	opts, err := g.viewerOptions()
	if err != nil {
		return nil, nil, err
	}
	doc := g.newDocument()
	viewer := visualization.NewViewer(doc, opts)

	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}
	ev := dom.FileSelectEvent{Files: []dom.File{{
		Name: path,
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}}}
	if _, err := viewer.HandleFileSelect(ctx, ev); err != nil && !errors.Is(err, visualization.ErrDegenerateSlice) {
		return nil, nil, err
	}
	return viewer, doc, nil
}

func newApp() *kingpin.Application {
	app := kingpin.New("niftiview", "Inspect and render slices of NIFTI volumes.")
	app.HelpFlag.Short('h')

	g := &globals{}
	g.configPath = app.Flag("config", "Path to the YAML configuration file.").Default("niftiview.yaml").String()
	g.verbose = app.Flag("verbose", "Enable debug logging.").Short('v').Bool()

	addInfoCommand(app, g)
	addRenderCommand(app, g)
	addExportCommand(app, g)
	addBrowseCommand(app, g)
	addInitConfigCommand(app)
	return app
}

func main() {
	if _, err := newApp().Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "niftiview: %v\n", err)
		os.Exit(1)
	}
}

func addInitConfigCommand(app *kingpin.Application) {
	var path *string
	cmd := app.Command("init-config", "Write a configuration file with default values.").
		Action(func(*kingpin.ParseContext) error {
			if err := config.CreateDefaultConfigFile(*path); err != nil {
				return err
			}
			fmt.Printf("Default configuration written to: %s\n", *path)
			return nil
		})
	path = cmd.Arg("path", "Where to write the configuration.").Default("niftiview.yaml").String()
}
