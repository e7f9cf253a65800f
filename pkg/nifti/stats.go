package nifti

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the finite voxel intensities of a volume.
type Stats struct {
	Count  int
	NaN    int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// ComputeStats scans every voxel. NaN and infinite voxels are counted in
// NaN and excluded from the other fields.
func ComputeStats(v Voxels) Stats {
	values := make([]float64, 0, v.Len())
	var s Stats
	for i := 0; i < v.Len(); i++ {
		x := v.At(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			s.NaN++
			continue
		}
		values = append(values, x)
	}
	s.Count = len(values)
	if s.Count == 0 {
		return s
	}
	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if s.Count == 1 {
		s.StdDev = 0
	}
	return s
}
