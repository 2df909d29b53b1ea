package warp

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

const (
	// NumParams is number of free homography parameters (h22 is fixed to 1)
	NumParams = 8
	// Minimal absolute value of h22 which could be normalized
	normalizeEps = 1e-12
	// Minimal |cross product| of consecutive quad edges
	quadEps = 1e-9
)

var (
	// ErrDegenerate is returned when quadrilateral or homography can't be used for warping
	ErrDegenerate = errors.New("degenerate geometry")
)

// Square is the canonical unit square: top-left, top-right, bottom-right, bottom-left.
var Square = [4]Point{
	{X: -0.5, Y: -0.5},
	{X: 0.5, Y: -0.5},
	{X: 0.5, Y: 0.5},
	{X: -0.5, Y: 0.5},
}

// Homography is an immutable 3x3 projective transform.
// Every operation returns new instance, so it is safe to share.
type Homography struct {
	matrix *mat.Dense
}

// NewHomography creates homography from 9 row-major values
func NewHomography(vals []float64) (*Homography, error) {
	if len(vals) != 9 {
		return nil, errors.Errorf("homography must have 9 values. Has %d", len(vals))
	}
	data := make([]float64, 9)
	copy(data, vals)
	return &Homography{matrix: mat.NewDense(3, 3, data)}, nil
}

// Identity returns identity homography
func Identity() *Homography {
	return &Homography{matrix: mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})}
}

// FromParams expands 8-parameter vector into full matrix with h22 = 1
func FromParams(params []float64) (*Homography, error) {
	if len(params) != NumParams {
		return nil, errors.Errorf("homography parameters must have %d values. Has %d", NumParams, len(params))
	}
	data := make([]float64, 9)
	copy(data, params)
	data[8] = 1
	return &Homography{matrix: mat.NewDense(3, 3, data)}, nil
}

// Params returns 8 leading row-major entries (h22 is dropped)
func (h *Homography) Params() []float64 {
	return h.Values()[:NumParams]
}

// Values returns copy of all 9 row-major entries
func (h *Homography) Values() []float64 {
	vals := make([]float64, 0, 9)
	for r := 0; r < 3; r++ {
		vals = append(vals, h.matrix.RawRowView(r)...)
	}
	return vals
}

// At returns the value of the homography at the given index.
func (h *Homography) At(row, col int) float64 {
	return h.matrix.At(row, col)
}

// Mul returns h * other
func (h *Homography) Mul(other *Homography) *Homography {
	var product mat.Dense
	product.Mul(h.matrix, other.matrix)
	return &Homography{matrix: &product}
}

// Inverse inverts the homography.
func (h *Homography) Inverse() (*Homography, error) {
	var inv mat.Dense
	if err := inv.Inverse(h.matrix); err != nil {
		return nil, errors.Wrap(ErrDegenerate, "homography is not invertible: "+err.Error())
	}
	return &Homography{matrix: &inv}, nil
}

// Normalize scales homography so bottom-right entry equals 1
func (h *Homography) Normalize() (*Homography, error) {
	h22 := h.matrix.At(2, 2)
	if math.Abs(h22) < normalizeEps || math.IsNaN(h22) {
		return nil, errors.Wrapf(ErrDegenerate, "can't normalize homography with h22 = %g", h22)
	}
	var normalized mat.Dense
	normalized.Scale(1.0/h22, h.matrix)
	return &Homography{matrix: &normalized}, nil
}

// IsFinite reports whether every entry is finite
func (h *Homography) IsFinite() bool {
	for _, v := range h.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Apply transforms the given point (with division by homogeneous coordinate)
func (h *Homography) Apply(pt Point) Point {
	m := h.matrix
	x := m.At(0, 0)*pt.X + m.At(0, 1)*pt.Y + m.At(0, 2)
	y := m.At(1, 0)*pt.X + m.At(1, 1)*pt.Y + m.At(1, 2)
	z := m.At(2, 0)*pt.X + m.At(2, 1)*pt.Y + m.At(2, 2)
	return Point{X: x / z, Y: y / z}
}

// ApplyAll transforms every point
func (h *Homography) ApplyAll(pts []Point) []Point {
	out := make([]Point, len(pts))
	for i, pt := range pts {
		out[i] = h.Apply(pt)
	}
	return out
}

// Corners returns image of canonical square
func (h *Homography) Corners() [4]Point {
	var corners [4]Point
	for i, pt := range Square {
		corners[i] = h.Apply(pt)
	}
	return corners
}

// SquareToCorners builds warp mapping canonical square to given corners
func SquareToCorners(corners [4]Point) (*Homography, error) {
	if err := ValidateQuad(corners); err != nil {
		return nil, err
	}
	return ComputeHomography(Square, corners)
}

// ComputeHomography computes homography mapping src[i] -> dst[i] with h22 fixed to 1.
func ComputeHomography(src, dst [4]Point) (*Homography, error) {
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		X, Y := src[i].X, src[i].Y
		x, y := dst[i].X, dst[i].Y
		r := 2 * i
		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		A.SetRow(r, []float64{X, Y, 1, 0, 0, 0, -X * x, -Y * x})
		b.SetVec(r, x)
		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		A.SetRow(r+1, []float64{0, 0, 0, X, Y, 1, -X * y, -Y * y})
		b.SetVec(r+1, y)
	}
	var solution mat.VecDense
	if err := solution.SolveVec(A, b); err != nil {
		return nil, errors.Wrap(ErrDegenerate, "can't solve homography system: "+err.Error())
	}
	params := make([]float64, NumParams)
	for i := range params {
		params[i] = solution.AtVec(i)
	}
	hom, err := FromParams(params)
	if err != nil {
		return nil, err
	}
	if !hom.IsFinite() {
		return nil, errors.Wrap(ErrDegenerate, "homography has non-finite entries")
	}
	return hom, nil
}

// ValidateQuad checks that corners form a convex non-degenerate quadrilateral
func ValidateQuad(corners [4]Point) error {
	sign := 0.0
	for i := 0; i < 4; i++ {
		p0 := corners[i]
		p1 := corners[(i+1)%4]
		p2 := corners[(i+2)%4]
		if math.IsNaN(p0.X) || math.IsNaN(p0.Y) || math.IsInf(p0.X, 0) || math.IsInf(p0.Y, 0) {
			return errors.Wrapf(ErrDegenerate, "corner %d is not finite", i)
		}
		cross := (p1.X-p0.X)*(p2.Y-p1.Y) - (p1.Y-p0.Y)*(p2.X-p1.X)
		if math.Abs(cross) < quadEps {
			return errors.Wrapf(ErrDegenerate, "corners %d, %d, %d are collinear", i, (i+1)%4, (i+2)%4)
		}
		if sign == 0 {
			sign = math.Copysign(1, cross)
			continue
		}
		if math.Copysign(1, cross) != sign {
			return errors.Wrapf(ErrDegenerate, "quadrilateral is not convex at corner %d", (i+1)%4)
		}
	}
	return nil
}
