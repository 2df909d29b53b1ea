package hyperplane

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/LdDl/hyperplane-go/warp"
	"github.com/edaniels/golog"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Tracker is hyperplane tracker of single planar region.
// It learns linear maps from appearance difference to warp update on Initialize
// and refines warp by greedy selection among those maps on every Update.
// Tracker is not safe for concurrent use.
type Tracker struct {
	id  uuid.UUID
	cfg Config

	sampler     *warp.Sampler
	fullSampler *warp.Sampler
	rng         *rand.Rand
	logger      golog.Logger
	recorder    Recorder

	initialized  bool
	currentWarp  *warp.Homography
	template     []float64
	templateFull []float64
	frame        *warp.Plane
	learners     []*Regressor
	track        *RegionTrack
}

// NewTracker creates uninitialized tracker
func NewTracker(cfg Config, options ...Option) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sampler, err := warp.NewSampler(cfg.RegionShape, cfg.Np)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	fullSampler, err := warp.NewSampler(cfg.RegionShape, 0)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidConfig, err.Error())
	}
	cfg.MotionParams = append([]MotionScale(nil), cfg.MotionParams...)
	tracker := Tracker{
		id:          uuid.New(),
		cfg:         cfg,
		sampler:     sampler,
		fullSampler: fullSampler,
		recorder:    NopRecorder{},
	}
	if cfg.Debug {
		tracker.recorder = NewTrajectoryRecorder()
	}
	for _, option := range options {
		option(&tracker)
	}
	if tracker.logger == nil {
		tracker.logger = golog.NewLogger("hyperplane")
	}
	if tracker.rng == nil {
		tracker.rng = rand.New(rand.NewPCG(DefaultSeed, DefaultSeed))
	}
	return &tracker, nil
}

// NewTrackerDefault creates uninitialized tracker with DefaultConfig
func NewTrackerDefault(options ...Option) *Tracker {
	tracker, err := NewTracker(DefaultConfig(), options...)
	if err != nil {
		panic("default configuration must be valid: " + err.Error())
	}
	return tracker
}

// Initialize builds template for region given by corners and trains one regressor per motion scale.
// Tracker state changes only if every step succeeds.
func (t *Tracker) Initialize(frame image.Image, corners [4]warp.Point) error {
	plane := warp.PlaneFromImage(frame)
	initialWarp, err := warp.SquareToCorners(corners)
	if err != nil {
		return errors.Wrapf(ErrInvalidGeometry, "corners %v: %v", corners, err)
	}
	template := t.sampler.SampleNormalized(plane, initialWarp)
	templateFull := t.fullSampler.SampleNormalized(plane, initialWarp)
	t.logger.Debugw("template sampled", "id", t.id, "corners", corners, "pixels", len(template))

	synth := NewSynthesizer(t.sampler, t.cfg.NumSynthesis, t.rng)
	learners := make([]*Regressor, len(t.cfg.MotionParams))
	for i, scale := range t.cfg.MotionParams {
		t.logger.Debugw("generating synthetic samples", "id", t.id, "scale", i, "samples", t.cfg.NumSynthesis)
		set, err := synth.Synthesize(plane, initialWarp, template, scale)
		if err != nil {
			return errors.Wrapf(ErrTrainingFailure, "synthesis for motion scale %d: %v", i, err)
		}
		learner := NewRegressor(t.cfg.Lambda)
		if err := learner.Fit(set.X, set.Y); err != nil {
			return errors.Wrapf(err, "motion scale %d", i)
		}
		learners[i] = learner
	}
	t.logger.Debugw("training done", "id", t.id, "learners", len(learners))

	t.frame = plane
	t.currentWarp = initialWarp
	t.template = template
	t.templateFull = templateFull
	t.learners = learners
	t.track = NewRegionTrack(initialWarp.Corners())
	t.initialized = true
	t.recorder.Begin()
	t.recorder.Record(initialWarp, corners)
	t.logger.Infow("tracker initialized", "id", t.id, "corners", corners)
	return nil
}

// Update refines warp for the new frame with exactly MaxIter greedy iterations
// and returns tracked corners rounded to pixels.
// On failure warp stays at the last successfully committed iteration.
func (t *Tracker) Update(frame image.Image) ([4]image.Point, error) {
	var result [4]image.Point
	if !t.initialized {
		return result, errors.WithStack(ErrNotInitialized)
	}
	plane := warp.PlaneFromImage(frame)
	t.frame = plane
	t.recorder.Begin()
	for iter := 0; iter < t.cfg.MaxIter; iter++ {
		next, err := t.refine(plane)
		if err != nil {
			return result, errors.Wrapf(err, "iteration %d", iter)
		}
		t.currentWarp = next
		t.recorder.Record(next, next.Corners())
	}
	corners := t.currentWarp.Corners()
	t.track.PredictNextPosition()
	if err := t.track.Update(corners); err != nil {
		t.logger.Warnw("region track is not updated", "id", t.id, "error", err)
	}
	for i, pt := range corners {
		result[i] = pt.Round()
	}
	return result, nil
}

type candidate struct {
	scale int
	warp  *warp.Homography
	score float64
}

// refine executes single greedy iteration and returns warp to commit
func (t *Tracker) refine(plane *warp.Plane) (*warp.Homography, error) {
	current := t.sampler.SampleNormalized(plane, t.currentWarp)
	deltaI := warp.Difference(current, t.template)
	candidates := make([]candidate, 0, len(t.learners))
	for i, learner := range t.learners {
		params, err := learner.Predict(deltaI)
		if err != nil {
			return nil, errors.Wrapf(ErrNumericalFailure, "motion scale %d: %v", i, err)
		}
		update, err := warp.FromParams(params)
		if err != nil {
			return nil, errors.Wrapf(ErrNumericalFailure, "motion scale %d: %v", i, err)
		}
		candidateWarp, err := t.currentWarp.Mul(update).Normalize()
		if err != nil || !candidateWarp.IsFinite() {
			return nil, errors.Wrapf(ErrNumericalFailure, "motion scale %d produced degenerate warp", i)
		}
		patch := t.sampler.SampleNormalized(plane, candidateWarp)
		candidates = append(candidates, candidate{
			scale: i,
			warp:  candidateWarp,
			score: warp.SSD(patch, t.template),
		})
	}
	best, ok := selectBest(candidates)
	if !ok {
		return nil, errors.Wrap(ErrNumericalFailure, "no candidate has finite score")
	}
	return best.warp, nil
}

// selectBest returns candidate with strictly minimal score; the first one wins on ties.
func selectBest(candidates []candidate) (candidate, bool) {
	best := candidate{score: math.Inf(1)}
	found := false
	for _, c := range candidates {
		if math.IsNaN(c.score) || math.IsInf(c.score, 0) {
			continue
		}
		if !found || c.score < best.score {
			best = c
			found = true
		}
	}
	return best, found
}

// GetID returns session identifier
func (t *Tracker) GetID() uuid.UUID {
	return t.id
}

// Initialized reports whether Initialize has succeeded
func (t *Tracker) Initialized() bool {
	return t.initialized
}

// Config returns tracker configuration
func (t *Tracker) Config() Config {
	return t.cfg
}

// Warp returns current warp. Nil before initialization
func (t *Tracker) Warp() *warp.Homography {
	return t.currentWarp
}

// Corners returns current (not rounded) image of canonical square
func (t *Tracker) Corners() ([4]warp.Point, error) {
	if !t.initialized {
		return [4]warp.Point{}, errors.WithStack(ErrNotInitialized)
	}
	return t.currentWarp.Corners(), nil
}

// Template returns copy of sub-sampled template
func (t *Tracker) Template() []float64 {
	return append([]float64(nil), t.template...)
}

// TemplateFull returns copy of full-resolution template (RegionShape.Rows x RegionShape.Cols, row-major)
func (t *Tracker) TemplateFull() []float64 {
	return append([]float64(nil), t.templateFull...)
}

// Frame returns last frame seen by tracker
func (t *Tracker) Frame() *warp.Plane {
	return t.frame
}

// Track returns Kalman-smoothed history of tracked region. Nil before initialization
func (t *Tracker) Track() *RegionTrack {
	return t.track
}

// Recorder returns recorder of committed warps
func (t *Tracker) Recorder() Recorder {
	return t.recorder
}

// Learners returns number of trained regressors
func (t *Tracker) Learners() int {
	return len(t.learners)
}
