package hyperplane

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/LdDl/hyperplane-go/warp"
	"github.com/pkg/errors"
)

// RegionTrack is history of tracked region smoothed by 8-D Kalman filter over its bounding box.
// State vector: [cx, cy, w, h, vx, vy, vw, vh] - center position, size, and velocities.
type RegionTrack struct {
	corners       [4]warp.Point
	currentBBox   warp.Rectangle
	predictedBBox warp.Rectangle
	track         []warp.Point
	maxTrackLen   int
	diagonal      float64
	tracker       *kalman_filter.KalmanBBox
}

// NewRegionTrackWithTime creates track for initial corners with specified time step.
func NewRegionTrackWithTime(corners [4]warp.Point, dt float64) *RegionTrack {
	bbox := warp.BoundingRect(corners[:])
	center := bbox.Center()

	// Kalman filter props. No control input: region motion is driven by measurements only
	uCx := 0.0
	uCy := 0.0
	uW := 0.0
	uH := 0.0
	stdDevA := 2.0
	stdDevMCx := 0.1
	stdDevMCy := 0.1
	stdDevMW := 0.1
	stdDevMH := 0.1
	kf := kalman_filter.NewKalmanBBox(
		dt, uCx, uCy, uW, uH,
		stdDevA, stdDevMCx, stdDevMCy, stdDevMW, stdDevMH,
		kalman_filter.WithStateBBox(center.X, center.Y, bbox.Width, bbox.Height),
	)

	track := RegionTrack{
		corners:       corners,
		currentBBox:   bbox,
		predictedBBox: bbox,
		track:         make([]warp.Point, 0, 150),
		maxTrackLen:   150,
		diagonal:      bbox.Diagonal(),
		tracker:       kf,
	}
	track.track = append(track.track, center)
	return &track
}

// NewRegionTrack creates track with default time step of 1.0.
func NewRegionTrack(corners [4]warp.Point) *RegionTrack {
	return NewRegionTrackWithTime(corners, 1.0)
}

// GetCorners returns last measured (not smoothed) corners
func (rt *RegionTrack) GetCorners() [4]warp.Point {
	return rt.corners
}

// GetCenter returns smoothed center
func (rt *RegionTrack) GetCenter() warp.Point {
	return rt.currentBBox.Center()
}

// GetBBox returns smoothed bounding box
func (rt *RegionTrack) GetBBox() warp.Rectangle {
	return rt.currentBBox
}

// GetPredictedBBox returns predicted bounding box from Kalman filter
func (rt *RegionTrack) GetPredictedBBox() warp.Rectangle {
	return rt.predictedBBox
}

// GetDiagonal returns smoothed bounding box diagonal
func (rt *RegionTrack) GetDiagonal() float64 {
	return rt.diagonal
}

// GetTrack returns center history. Be careful: this is not copy of track, but reference to it
func (rt *RegionTrack) GetTrack() []warp.Point {
	return rt.track
}

// GetMaxTrackLen returns max track length
func (rt *RegionTrack) GetMaxTrackLen() int {
	return rt.maxTrackLen
}

// SetMaxTrackLen sets max track length
func (rt *RegionTrack) SetMaxTrackLen(newMaxTrackLen int) {
	rt.maxTrackLen = newMaxTrackLen
}

// PredictNextPosition executes Kalman filter prediction step
func (rt *RegionTrack) PredictNextPosition() {
	rt.tracker.Predict()
	cx, cy, w, h := rt.tracker.GetState()
	rt.predictedBBox = warp.Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}
}

// Update feeds newly tracked corners into Kalman filter
func (rt *RegionTrack) Update(corners [4]warp.Point) error {
	measured := warp.BoundingRect(corners[:])
	center := measured.Center()
	err := rt.tracker.Update(center.X, center.Y, measured.Width, measured.Height)
	if err != nil {
		return errors.Wrap(err, "Can't update region tracker")
	}
	cx, cy, w, h := rt.tracker.GetState()
	rt.corners = corners
	rt.currentBBox = warp.Rectangle{
		X:      cx - w/2.0,
		Y:      cy - h/2.0,
		Width:  w,
		Height: h,
	}
	rt.diagonal = rt.currentBBox.Diagonal()
	rt.track = append(rt.track, warp.Point{X: cx, Y: cy})
	if len(rt.track) > rt.maxTrackLen {
		rt.track = rt.track[1:]
	}
	return nil
}

// GetVelocity returns current velocity estimates (vx, vy, vw, vh) from Kalman filter
func (rt *RegionTrack) GetVelocity() (float64, float64, float64, float64) {
	return rt.tracker.GetVelocity()
}
