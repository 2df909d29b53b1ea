package warp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Shape is size of full-resolution patch grid
type Shape struct {
	Rows int `json:"rows"`
	Cols int `json:"cols"`
}

// Sampler extracts fixed-size patches of a frame through a warp.
// Grid points are precomputed in canonical square coordinates.
type Sampler struct {
	shape Shape
	rows  int
	cols  int
	grid  []Point
}

// NewSampler creates sampler for given full-resolution shape.
// np = 0 means full resolution, otherwise np must be a perfect square s*s with s <= min(rows, cols):
// s*s grid is evenly spaced subset of full-resolution grid.
func NewSampler(shape Shape, np int) (*Sampler, error) {
	if shape.Rows <= 0 || shape.Cols <= 0 {
		return nil, errors.Errorf("region shape must be positive. Got %dx%d", shape.Rows, shape.Cols)
	}
	if np < 0 {
		return nil, errors.Errorf("number of pixels must not be negative. Got %d", np)
	}
	rows, cols := shape.Rows, shape.Cols
	rowIdx := make([]int, rows)
	colIdx := make([]int, cols)
	for i := range rowIdx {
		rowIdx[i] = i
	}
	for j := range colIdx {
		colIdx[j] = j
	}
	if np > 0 {
		side := int(math.Round(math.Sqrt(float64(np))))
		if side*side != np {
			return nil, errors.Errorf("number of pixels must be a perfect square. Got %d", np)
		}
		if side > shape.Rows || side > shape.Cols {
			return nil, errors.Errorf("sub-sampled side %d exceeds region shape %dx%d", side, shape.Rows, shape.Cols)
		}
		rows, cols = side, side
		rowIdx = subsampleIndices(shape.Rows, side)
		colIdx = subsampleIndices(shape.Cols, side)
	}
	grid := make([]Point, 0, rows*cols)
	for _, i := range rowIdx {
		v := (float64(i)+0.5)/float64(shape.Rows) - 0.5
		for _, j := range colIdx {
			u := (float64(j)+0.5)/float64(shape.Cols) - 0.5
			grid = append(grid, Point{X: u, Y: v})
		}
	}
	return &Sampler{
		shape: shape,
		rows:  rows,
		cols:  cols,
		grid:  grid,
	}, nil
}

func subsampleIndices(full, side int) []int {
	idx := make([]int, side)
	for k := range idx {
		idx[k] = int(math.Floor((float64(k) + 0.5) * float64(full) / float64(side)))
	}
	return idx
}

// Len returns number of pixels in every sampled patch
func (s *Sampler) Len() int {
	return len(s.grid)
}

// Rows returns number of rows in sampled patch
func (s *Sampler) Rows() int {
	return s.rows
}

// Cols returns number of columns in sampled patch
func (s *Sampler) Cols() int {
	return s.cols
}

// Shape returns full-resolution shape
func (s *Sampler) Shape() Shape {
	return s.shape
}

// Sample extracts row-major patch of frame seen through warp
func (s *Sampler) Sample(frame *Plane, h *Homography) []float64 {
	patch := make([]float64, len(s.grid))
	for i, pt := range s.grid {
		imgPt := h.Apply(pt)
		patch[i] = frame.Bilinear(imgPt.X, imgPt.Y)
	}
	return patch
}

// SampleNormalized extracts patch and normalizes it into [0, 1]
func (s *Sampler) SampleNormalized(frame *Plane, h *Homography) []float64 {
	return NormalizeMinMax(s.Sample(frame, h))
}

// SampleCorners extracts patch for region given by its corners
func (s *Sampler) SampleCorners(frame *Plane, corners [4]Point) ([]float64, error) {
	h, err := SquareToCorners(corners)
	if err != nil {
		return nil, err
	}
	return s.Sample(frame, h), nil
}

// NormalizeMinMax maps values into [0, 1] in place and returns the slice.
// Constant patch becomes all zeros.
func NormalizeMinMax(patch []float64) []float64 {
	if len(patch) == 0 {
		return patch
	}
	lo := floats.Min(patch)
	hi := floats.Max(patch)
	span := hi - lo
	if span <= 0 || math.IsNaN(span) || math.IsInf(span, 0) {
		for i := range patch {
			patch[i] = 0
		}
		return patch
	}
	floats.AddConst(-lo, patch)
	floats.Scale(1.0/span, patch)
	return patch
}

// Difference returns a - b
func Difference(a, b []float64) []float64 {
	diff := make([]float64, len(a))
	floats.SubTo(diff, a, b)
	return diff
}

// SSD returns sum of squared differences between two patches
func SSD(a, b []float64) float64 {
	diff := Difference(a, b)
	return floats.Dot(diff, diff)
}
