package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/coder/quartz"

	"niftiview/internal/dom"
	"niftiview/pkg/debounce"
	"niftiview/pkg/visualization"
)

// browseCommand steps through a volume interactively, keeping a snapshot
// of the displayed slice on disk.
type browseCommand struct {
	g    *globals
	file *string
	out  *string
}

func (cmd *browseCommand) run(*kingpin.ParseContext) error {
	ctx := context.Background()
	viewer, doc, err := cmd.g.openViewer(ctx, *cmd.file)
	if err != nil {
		return err
	}
	b := &browser{
		viewer:   viewer,
		doc:      doc,
		canvasID: cmd.g.cfg.Viewer.CanvasID,
		out:      *cmd.out,
		delay:    cmd.g.cfg.Navigation.DebounceDelay,
		clock:    quartz.NewReal(),
		w:        &syncWriter{w: os.Stdout},
	}
	return b.loop(ctx, os.Stdin)
}

func addBrowseCommand(app *kingpin.Application, g *globals) {
	cmd := &browseCommand{g: g}
	browse := app.Command("browse", "Step through slices from stdin: n, p, g N, w DELTA, q.").PreAction(g.setup).Action(cmd.run)
	cmd.file = browse.Arg("file", "NIFTI file (.nii or .nii.gz).").Required().ExistingFile()
	cmd.out = browse.Flag("out", "Snapshot of the displayed slice, rewritten after navigation settles.").
		Short('o').Default("current.png").String()
}

// browser drives a loaded viewer from line commands.
type browser struct {
	viewer   *visualization.Viewer
	doc      *dom.Document
	canvasID string
	out      string
	delay    time.Duration
	clock    quartz.Clock
	w        io.Writer
}

func (b *browser) loop(ctx context.Context, in io.Reader) error {
	snapshots := debounce.New(b.delay, debounce.WithClock(b.clock))
	status := debounce.Wrap(b.printStatus, b.delay, debounce.WithClock(b.clock))

	b.viewer.OnSliceChange(func(int) {
		status()
		snapshots.Trigger(b.writeSnapshot)
	})
	defer b.viewer.OnSliceChange(nil)

	b.printStatus()
	b.writeSnapshot()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		quit, err := b.exec(strings.Fields(scanner.Text()))
		if err != nil {
			fmt.Fprintf(b.w, "error: %v\n", err)
		}
		if quit {
			break
		}
	}

	if snapshots.Stop() {
		b.writeSnapshot()
	}
	return scanner.Err()
}

func (b *browser) exec(fields []string) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	switch fields[0] {
	case "n", "next":
		_, err := b.viewer.MoveNext()
		return false, err
	case "p", "prev":
		_, err := b.viewer.MovePrev()
		return false, err
	case "g", "goto":
		n, err := intArg(fields)
		if err != nil {
			return false, err
		}
		_, err = b.viewer.SeekTo(n)
		return false, err
	case "w", "wheel":
		delta, err := intArg(fields)
		if err != nil {
			return false, err
		}
		canvas, ok := b.doc.Canvas(b.canvasID)
		if !ok {
			return false, visualization.ErrElementNotFound
		}
		canvas.Dispatch(&dom.Event{Type: dom.EventWheel, WheelDelta: delta})
		return false, nil
	case "q", "quit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}

func intArg(fields []string) (int, error) {
	if len(fields) != 2 {
		return 0, fmt.Errorf("%s takes one integer argument", fields[0])
	}
	return strconv.Atoi(fields[1])
}

func (b *browser) printStatus() {
	frame := b.viewer.Frame()
	if frame == nil {
		return
	}
	fmt.Fprintf(b.w, "slice %d/%d range [%g, %g]\n", frame.Index, b.viewer.MaxSlice()-1, frame.Min, frame.Max)
}

func (b *browser) writeSnapshot() {
	snap, err := b.viewer.Snapshot()
	if err == nil {
		err = visualization.SaveSlice(snap.Image, b.out)
	}
	if err != nil {
		fmt.Fprintf(b.w, "snapshot failed: %v\n", err)
	}
}

// syncWriter serializes writes from the command loop and debounced callbacks.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
