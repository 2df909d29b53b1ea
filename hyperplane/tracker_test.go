package hyperplane

import (
	"image"
	"math"
	"testing"

	"github.com/LdDl/hyperplane-go/warp"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

func TestUpdateNotInitialized(t *testing.T) {
	tracker, err := NewTracker(testConfig(), WithLogger(golog.NewTestLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	corners, err := tracker.Update(texturedFrame(100, 100, 0, 0))
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
	if corners != ([4]image.Point{}) {
		t.Errorf("No corners should be returned, got %v", corners)
	}
	if _, err := tracker.Corners(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized for corners, got %v", err)
	}
	if tracker.Initialized() || tracker.Warp() != nil || tracker.Track() != nil {
		t.Error("Fresh tracker must not have state")
	}
}

func TestInitializeInvalidGeometry(t *testing.T) {
	tracker, err := NewTracker(testConfig(), WithLogger(golog.NewTestLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	degenerate := [4]warp.Point{{X: 10, Y: 10}, {X: 20, Y: 20}, {X: 30, Y: 30}, {X: 40, Y: 40}}
	err = tracker.Initialize(texturedFrame(100, 100, 0, 0), degenerate)
	if !errors.Is(err, ErrInvalidGeometry) {
		t.Errorf("Expected ErrInvalidGeometry, got %v", err)
	}
	if tracker.Initialized() {
		t.Error("Tracker must stay uninitialized after failure")
	}
	if _, err := tracker.Update(texturedFrame(100, 100, 0, 0)); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized after failed initialization, got %v", err)
	}
}

func TestTrackerSameFrame(t *testing.T) {
	tracker, err := NewTracker(testConfig(), WithLogger(golog.NewTestLogger(t)), WithSeed(1))
	if err != nil {
		t.Fatal(err)
	}
	frame := texturedFrame(100, 100, 0, 0)
	if err := tracker.Initialize(frame, testCorners); err != nil {
		t.Fatalf("Can't initialize: %v", err)
	}
	if !tracker.Initialized() || tracker.Learners() != 1 {
		t.Fatalf("Tracker should be initialized with 1 learner, got %d", tracker.Learners())
	}
	if len(tracker.Template()) != 256 {
		t.Errorf("Template should have 256 pixels, got %d", len(tracker.Template()))
	}
	if len(tracker.TemplateFull()) != 64*64 {
		t.Errorf("Full template should have %d pixels, got %d", 64*64, len(tracker.TemplateFull()))
	}
	corners, err := tracker.Update(frame)
	if err != nil {
		t.Fatalf("Can't update: %v", err)
	}
	if maxErr := maxCornerError(corners, testCorners); maxErr > 1.0 {
		t.Errorf("Corners drifted on unchanged frame: %v (max error %f)", corners, maxErr)
	}
	if math.Abs(tracker.Warp().At(2, 2)-1) > 1e-9 {
		t.Errorf("Warp must stay normalized, h22 = %f", tracker.Warp().At(2, 2))
	}
}

func TestTrackerShiftedFrame(t *testing.T) {
	cfg := testConfig()
	cfg.MotionParams = []MotionScale{{Position: 2.0, Other: 0.05}, {Position: 6.0, Other: 0.1}}
	tracker, err := NewTracker(cfg, WithLogger(golog.NewTestLogger(t)), WithSeed(2))
	if err != nil {
		t.Fatal(err)
	}
	if err := tracker.Initialize(texturedFrame(100, 100, 0, 0), testCorners); err != nil {
		t.Fatalf("Can't initialize: %v", err)
	}
	dx, dy := 2.0, -1.0
	corners, err := tracker.Update(texturedFrame(100, 100, dx, dy))
	if err != nil {
		t.Fatalf("Can't update: %v", err)
	}
	var expected [4]warp.Point
	for i, pt := range testCorners {
		expected[i] = warp.Point{X: pt.X + dx, Y: pt.Y + dy}
	}
	if maxErr := maxCornerError(corners, expected); maxErr > 1.0 {
		t.Errorf("Shift is not recovered: %v, expected %v (max error %f)", corners, expected, maxErr)
	}
	track := tracker.Track()
	if len(track.GetTrack()) != 2 {
		t.Errorf("Region track should have 2 points, got %d", len(track.GetTrack()))
	}
	trueBBox := warp.BoundingRect(expected[:])
	if iou := warp.IoU(track.GetBBox(), trueBBox); iou < 0.8 {
		t.Errorf("Smoothed region should overlap shifted region, IoU = %f", iou)
	}
}

func TestTrackerDeterminism(t *testing.T) {
	cfg := testConfig()
	cfg.MotionParams = []MotionScale{{Position: 2.0, Other: 0.05}, {Position: 6.0, Other: 0.1}}
	frame := texturedFrame(100, 100, 0, 0)
	next := texturedFrame(100, 100, 1, 1)
	results := make([][4]image.Point, 0, 2)
	for i := 0; i < 2; i++ {
		tracker, err := NewTracker(cfg, WithLogger(golog.NewTestLogger(t)), WithSeed(5))
		if err != nil {
			t.Fatal(err)
		}
		if err := tracker.Initialize(frame, testCorners); err != nil {
			t.Fatal(err)
		}
		corners, err := tracker.Update(next)
		if err != nil {
			t.Fatal(err)
		}
		results = append(results, corners)
	}
	if results[0] != results[1] {
		t.Errorf("Identical inputs must give identical corners: %v vs %v", results[0], results[1])
	}
}

func TestSelectBestTieBreak(t *testing.T) {
	first := warp.Identity()
	second, err := warp.FromParams([]float64{1, 0, 5, 0, 1, 5, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	candidates := []candidate{
		{scale: 0, warp: first, score: 3.5},
		{scale: 1, warp: second, score: 3.5},
	}
	best, ok := selectBest(candidates)
	if !ok || best.scale != 0 || best.warp != first {
		t.Errorf("Lower motion scale must win on tie, got scale %d", best.scale)
	}

	candidates = []candidate{
		{scale: 0, warp: first, score: math.NaN()},
		{scale: 1, warp: second, score: 4},
		{scale: 2, warp: first, score: 1},
		{scale: 3, warp: second, score: 1},
	}
	best, ok = selectBest(candidates)
	if !ok || best.scale != 2 {
		t.Errorf("Expected first minimum at scale 2, got %d", best.scale)
	}

	if _, ok := selectBest([]candidate{{scale: 0, score: math.Inf(1)}}); ok {
		t.Error("Non-finite scores must not be selected")
	}
	if _, ok := selectBest(nil); ok {
		t.Error("Empty candidates must not be selected")
	}
}

func TestTrackerRecorder(t *testing.T) {
	cfg := testConfig()
	cfg.Debug = true
	cfg.NumSynthesis = 50
	tracker, err := NewTracker(cfg, WithLogger(golog.NewTestLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	recorder, ok := tracker.Recorder().(*TrajectoryRecorder)
	if !ok {
		t.Fatalf("Debug configuration should install TrajectoryRecorder, got %T", tracker.Recorder())
	}
	frame := texturedFrame(100, 100, 0, 0)
	if err := tracker.Initialize(frame, testCorners); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := tracker.Update(frame); err != nil {
			t.Fatal(err)
		}
	}
	if len(recorder.Trajectories) != 3 || len(recorder.Corners) != 3 {
		t.Fatalf("Expected 3 trajectories (initialization + 2 updates), got %d", len(recorder.Trajectories))
	}
	if len(recorder.Trajectories[0]) != 1 || recorder.Corners[0][0] != testCorners {
		t.Errorf("Initialization trajectory should hold initial warp and corners")
	}
	for i := 1; i < 3; i++ {
		if len(recorder.Trajectories[i]) != cfg.MaxIter || len(recorder.Corners[i]) != cfg.MaxIter {
			t.Errorf("Update trajectory %d should hold %d iterations, got %d", i, cfg.MaxIter, len(recorder.Trajectories[i]))
		}
	}
	last := recorder.Trajectories[2][cfg.MaxIter-1]
	if last != tracker.Warp() {
		t.Error("Last recorded warp should be committed warp")
	}

	// Injected recorder wins over Debug flag
	nop, err := NewTracker(cfg, WithLogger(golog.NewTestLogger(t)), WithRecorder(NopRecorder{}))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := nop.Recorder().(NopRecorder); !ok {
		t.Errorf("Expected NopRecorder, got %T", nop.Recorder())
	}
}

func TestNewTrackerDefault(t *testing.T) {
	tracker := NewTrackerDefault(WithLogger(golog.NewTestLogger(t)))
	if tracker.Config().Np != DefaultConfig().Np {
		t.Errorf("Default tracker should use default config")
	}
	other := NewTrackerDefault(WithLogger(golog.NewTestLogger(t)))
	if tracker.GetID() == other.GetID() {
		t.Error("Trackers must have distinct identifiers")
	}
}

func TestUpdateNumericalFailureKeepsWarp(t *testing.T) {
	cfg := testConfig()
	cfg.NumSynthesis = 50
	tracker, err := NewTracker(cfg, WithLogger(golog.NewTestLogger(t)))
	if err != nil {
		t.Fatal(err)
	}
	frame := texturedFrame(100, 100, 0, 0)
	if err := tracker.Initialize(frame, testCorners); err != nil {
		t.Fatal(err)
	}
	committed := tracker.Warp()
	broken := make([]float64, warp.NumParams)
	for i := range broken {
		broken[i] = math.NaN()
	}
	tracker.learners = []*Regressor{{
		lambda:    1,
		weights:   mat.NewDense(tracker.sampler.Len(), warp.NumParams, nil),
		intercept: mat.NewVecDense(warp.NumParams, broken),
	}}
	_, err = tracker.Update(frame)
	if !errors.Is(err, ErrNumericalFailure) {
		t.Errorf("Expected ErrNumericalFailure, got %v", err)
	}
	if tracker.Warp() != committed {
		t.Error("Warp must stay at last committed value after failure")
	}
}
