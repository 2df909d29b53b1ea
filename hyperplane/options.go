package hyperplane

import (
	"math/rand/v2"

	"github.com/edaniels/golog"
)

// DefaultSeed makes training reproducible when no source of randomness is given
const DefaultSeed uint64 = 20130624

// Option configures runtime collaborators of Tracker
type Option func(*Tracker)

// WithLogger sets logger
func WithLogger(logger golog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithRand sets source of randomness for synthesis
func WithRand(rng *rand.Rand) Option {
	return func(t *Tracker) {
		t.rng = rng
	}
}

// WithSeed sets seeded PCG source of randomness for synthesis
func WithSeed(seed uint64) Option {
	return func(t *Tracker) {
		t.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithRecorder sets recorder of committed warps. Overrides Config.Debug
func WithRecorder(recorder Recorder) Option {
	return func(t *Tracker) {
		t.recorder = recorder
	}
}
