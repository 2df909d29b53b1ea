package hyperplane

import (
	"image"
	"math"

	"github.com/LdDl/hyperplane-go/warp"
)

var testCorners = [4]warp.Point{
	{X: 10, Y: 10},
	{X: 50, Y: 10},
	{X: 50, Y: 50},
	{X: 10, Y: 50},
}

// texturedFrame renders smooth sinusoidal texture shifted by (dx, dy) pixels
func texturedFrame(width, height int, dx, dy float64) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			X := float64(x) - dx
			Y := float64(y) - dy
			v := 128 + 60*math.Sin(X/6.0) + 60*math.Cos(Y/7.0)
			img.Pix[y*img.Stride+x] = uint8(v)
		}
	}
	return img
}

// testConfig is the configuration of end-to-end scenario: single motion scale, 3 iterations
func testConfig() Config {
	return Config{
		RegionShape:  warp.Shape{Rows: 64, Cols: 64},
		Np:           256,
		MotionParams: []MotionScale{{Position: 2.0, Other: 0.05}},
		NumSynthesis: 200,
		Lambda:       1.0,
		MaxIter:      3,
	}
}

func maxCornerError(got [4]image.Point, expected [4]warp.Point) float64 {
	maxErr := 0.0
	for i := range got {
		maxErr = math.Max(maxErr, warp.NewPointFrom(got[i]).DistanceTo(expected[i]))
	}
	return maxErr
}
