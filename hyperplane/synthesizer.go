package hyperplane

import (
	"math/rand/v2"

	"github.com/LdDl/hyperplane-go/warp"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// TrainingSet holds row-aligned synthetic samples for single motion scale.
// X rows are appearance differences, Y rows are 8 leading entries of disturbing homography.
type TrainingSet struct {
	Scale MotionScale
	X     *mat.Dense
	Y     *mat.Dense
}

// Synthesizer generates training pairs by disturbing current warp with random small homographies
type Synthesizer struct {
	sampler      *warp.Sampler
	rng          *rand.Rand
	numSynthesis int
	// Pixels per canonical unit, used to express positional disturbance in region pixels
	regionSide float64
}

// NewSynthesizer creates synthesizer. Sampler defines patch geometry, rng is the only source of randomness.
func NewSynthesizer(sampler *warp.Sampler, numSynthesis int, rng *rand.Rand) *Synthesizer {
	shape := sampler.Shape()
	return &Synthesizer{
		sampler:      sampler,
		rng:          rng,
		numSynthesis: numSynthesis,
		regionSide:   float64(shape.Rows+shape.Cols) / 2.0,
	}
}

// Synthesize draws NumSynthesis random disturbances for given motion scale
// and pairs every disturbed patch difference with its disturbance parameters.
func (synth *Synthesizer) Synthesize(frame *warp.Plane, current *warp.Homography, template []float64, scale MotionScale) (*TrainingSet, error) {
	np := synth.sampler.Len()
	if len(template) != np {
		return nil, errors.Errorf("template must have %d pixels. Has %d", np, len(template))
	}
	X := mat.NewDense(synth.numSynthesis, np, nil)
	Y := mat.NewDense(synth.numSynthesis, warp.NumParams, nil)
	sigmaPos := scale.Position / synth.regionSide
	for i := 0; i < synth.numSynthesis; i++ {
		H, err := warp.RandomHomography(synth.rng, sigmaPos, scale.Other)
		if err != nil {
			return nil, errors.Wrapf(err, "Can't generate disturbance %d", i)
		}
		// Simulate object motion H: region appears where current * H^-1 points to
		Hinv, err := H.Inverse()
		if err != nil {
			return nil, errors.Wrapf(err, "Can't invert disturbance %d", i)
		}
		disturbed, err := current.Mul(Hinv).Normalize()
		if err != nil {
			return nil, errors.Wrapf(err, "Can't normalize disturbed warp %d", i)
		}
		patch := synth.sampler.SampleNormalized(frame, disturbed)
		X.SetRow(i, warp.Difference(patch, template))
		Y.SetRow(i, H.Params())
	}
	return &TrainingSet{
		Scale: scale,
		X:     X,
		Y:     Y,
	}, nil
}
