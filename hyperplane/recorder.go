package hyperplane

import "github.com/LdDl/hyperplane-go/warp"

// Recorder receives every committed warp of a tracking session.
// Begin is called once by Initialize and once per Update call; Record follows for every committed warp.
type Recorder interface {
	Begin()
	Record(h *warp.Homography, corners [4]warp.Point)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) Begin() {}

func (NopRecorder) Record(*warp.Homography, [4]warp.Point) {}

// TrajectoryRecorder accumulates warps and corners.
// Trajectories[0] is initialization, every following trajectory holds iterations of single Update call.
type TrajectoryRecorder struct {
	Trajectories [][]*warp.Homography
	Corners      [][][4]warp.Point
}

// NewTrajectoryRecorder creates empty accumulating recorder
func NewTrajectoryRecorder() *TrajectoryRecorder {
	return &TrajectoryRecorder{
		Trajectories: make([][]*warp.Homography, 0),
		Corners:      make([][][4]warp.Point, 0),
	}
}

func (rec *TrajectoryRecorder) Begin() {
	rec.Trajectories = append(rec.Trajectories, make([]*warp.Homography, 0))
	rec.Corners = append(rec.Corners, make([][4]warp.Point, 0))
}

func (rec *TrajectoryRecorder) Record(h *warp.Homography, corners [4]warp.Point) {
	if len(rec.Trajectories) == 0 {
		rec.Begin()
	}
	last := len(rec.Trajectories) - 1
	rec.Trajectories[last] = append(rec.Trajectories[last], h)
	rec.Corners[last] = append(rec.Corners[last], corners)
}
