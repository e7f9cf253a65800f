package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"niftiview/pkg/nifti"
)

// infoCommand prints the header and intensity statistics of a volume.
type infoCommand struct {
	g    *globals
	file *string
}

func (cmd *infoCommand) run(*kingpin.ParseContext) error {
	viewer, _, err := cmd.g.openViewer(context.Background(), *cmd.file)
	if err != nil {
		return err
	}
	fi, err := os.Stat(*cmd.file)
	if err != nil {
		return err
	}
	printInfo(os.Stdout, *cmd.file, fi.Size(), viewer.Header(), nifti.ComputeStats(viewer.Voxels()))
	return nil
}

func printInfo(w io.Writer, name string, fileSize int64, h *nifti.Header, stats nifti.Stats) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, "File:")
	fmt.Fprintf(w, "\tname: %s, size: %v\n", name, humanize.Bytes(uint64(fileSize)))

	bold.Fprintln(w, "Header:")
	fmt.Fprintf(w, "\tversion: NIFTI-%d (%s), byte order: %v\n", h.Version, h.Magic, h.ByteOrder)
	fmt.Fprintf(w, "\tdims: %v\n", h.Dims[:h.Rank()+1])
	fmt.Fprintf(w, "\twidth=%d, height=%d, slices=%d\n", h.Width(), h.Height(), h.SliceCount())
	fmt.Fprintf(w, "\tvoxel size: %.3f x %.3f x %.3f\n", h.PixDim[1], h.PixDim[2], h.PixDim[3])
	fmt.Fprintf(w, "\tdatatype: %s (%d bits), image size: %v\n",
		h.Datatype, h.BitPix, humanize.Bytes(uint64(h.ImageSize())))
	if h.Description != "" {
		fmt.Fprintf(w, "\tdescription: %s\n", h.Description)
	}

	bold.Fprintln(w, "Intensities:")
	fmt.Fprintf(w, "\tvoxels: %s, non-finite: %s\n",
		humanize.Comma(int64(stats.Count)), humanize.Comma(int64(stats.NaN)))
	fmt.Fprintf(w, "\tmin: %g, max: %g, mean: %.4f, stddev: %.4f\n",
		stats.Min, stats.Max, stats.Mean, stats.StdDev)
}

func addInfoCommand(app *kingpin.Application, g *globals) {
	cmd := &infoCommand{g: g}
	info := app.Command("info", "Print the header and intensity statistics of a volume.").PreAction(g.setup).Action(cmd.run)
	cmd.file = info.Arg("file", "NIFTI file (.nii or .nii.gz).").Required().ExistingFile()
}
