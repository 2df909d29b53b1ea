package warp

import (
	"math/rand/v2"

	"github.com/pkg/errors"
)

// Max number of draws before giving up on a degenerate disturbed square
const maxRandomAttempts = 16

// RandomHomography generates small homography around identity.
// Corners of canonical square get shared translation ~ N(0, sigmaPos) and independent jitter ~ N(0, sigmaOther).
// Both sigmas are in canonical square units. Zero sigmas give identity.
func RandomHomography(rng *rand.Rand, sigmaPos, sigmaOther float64) (*Homography, error) {
	if sigmaPos < 0 || sigmaOther < 0 {
		return nil, errors.Errorf("disturbance must not be negative. Got (%g, %g)", sigmaPos, sigmaOther)
	}
	if sigmaPos == 0 && sigmaOther == 0 {
		return Identity(), nil
	}
	var lastErr error
	for attempt := 0; attempt < maxRandomAttempts; attempt++ {
		tx := rng.NormFloat64() * sigmaPos
		ty := rng.NormFloat64() * sigmaPos
		var disturbed [4]Point
		for i, pt := range Square {
			disturbed[i] = Point{
				X: pt.X + tx + rng.NormFloat64()*sigmaOther,
				Y: pt.Y + ty + rng.NormFloat64()*sigmaOther,
			}
		}
		if err := ValidateQuad(disturbed); err != nil {
			lastErr = err
			continue
		}
		h, err := ComputeHomography(Square, disturbed)
		if err != nil {
			lastErr = err
			continue
		}
		return h, nil
	}
	return nil, errors.Wrapf(lastErr, "can't draw random homography after %d attempts", maxRandomAttempts)
}
