package warp

import (
	"image"
	"image/color"
	"math"
)

// Plane is a single channel float frame. Pixel (x, y) is stored at Pix[y*Width+x].
type Plane struct {
	Width  int
	Height int
	Pix    []float64
}

// NewPlane creates zero filled plane
func NewPlane(width, height int) *Plane {
	return &Plane{
		Width:  width,
		Height: height,
		Pix:    make([]float64, width*height),
	}
}

// PlaneFromImage converts any image into luminance plane in [0, 255]
func PlaneFromImage(img image.Image) *Plane {
	bounds := img.Bounds()
	plane := NewPlane(bounds.Dx(), bounds.Dy())
	if gray, ok := img.(*image.Gray); ok {
		for y := 0; y < plane.Height; y++ {
			row := gray.Pix[y*gray.Stride : y*gray.Stride+plane.Width]
			for x, v := range row {
				plane.Pix[y*plane.Width+x] = float64(v)
			}
		}
		return plane
	}
	for y := 0; y < plane.Height; y++ {
		for x := 0; x < plane.Width; x++ {
			g := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			plane.Pix[y*plane.Width+x] = float64(g.Y)
		}
	}
	return plane
}

// Set sets pixel value. Out of bounds writes are ignored
func (p *Plane) Set(x, y int, v float64) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	p.Pix[y*p.Width+x] = v
}

// At returns pixel value with coordinates clamped to the nearest edge pixel
func (p *Plane) At(x, y int) float64 {
	if p.Width == 0 || p.Height == 0 {
		return 0
	}
	x = clampInt(x, 0, p.Width-1)
	y = clampInt(y, 0, p.Height-1)
	return p.Pix[y*p.Width+x]
}

// Bilinear interpolates plane at sub-pixel position. Pixel centers are at integer coordinates.
// Positions outside of the plane replicate the border; non-finite positions give 0.
func (p *Plane) Bilinear(x, y float64) float64 {
	if p.Width == 0 || p.Height == 0 {
		return 0
	}
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0
	}
	x = math.Min(math.Max(x, 0), float64(p.Width-1))
	y = math.Min(math.Max(y, 0), float64(p.Height-1))
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)
	top := p.At(x0, y0)*(1-fx) + p.At(x0+1, y0)*fx
	bottom := p.At(x0, y0+1)*(1-fx) + p.At(x0+1, y0+1)*fx
	return top*(1-fy) + bottom*fy
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
