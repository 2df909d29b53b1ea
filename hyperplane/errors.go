package hyperplane

import "github.com/pkg/errors"

var (
	// ErrNotInitialized is returned by Update when Initialize has not succeeded yet
	ErrNotInitialized = errors.New("tracker is not initialized")
	// ErrInvalidGeometry is returned for degenerate initial corners
	ErrInvalidGeometry = errors.New("invalid geometry")
	// ErrTrainingFailure is returned when regression can't produce usable model even with regularization
	ErrTrainingFailure = errors.New("training failure")
	// ErrNumericalFailure is returned when refinement iteration can't produce a valid candidate warp
	ErrNumericalFailure = errors.New("numerical failure")
	// ErrInvalidConfig is returned for incomplete or inconsistent configuration
	ErrInvalidConfig = errors.New("invalid configuration")
)
