package hyperplane

import (
	"encoding/json"
	"math"
	"os"

	"github.com/LdDl/hyperplane-go/warp"
	"github.com/pkg/errors"
)

// MotionScale is a single regime of synthetic disturbance.
type MotionScale struct {
	// Positional disturbance in pixels of region grid (REGION_SHAPE)
	Position float64 `json:"position"`
	// Other (rotation, scale, shear, perspective) disturbance in canonical square units
	Other float64 `json:"other"`
}

// Config holds tracker options. Every field is required.
type Config struct {
	// Full-resolution patch dimensions
	RegionShape warp.Shape `json:"region_shape"`
	// Number of pixels in sub-sampled training/comparison patch. Must be a perfect square
	Np int `json:"np"`
	// One regressor is trained per motion scale. Order defines tie-break priority
	MotionParams []MotionScale `json:"motion_params"`
	// Number of synthetic perturbations per motion scale
	NumSynthesis int `json:"num_synthesis"`
	// L2 regularization strength
	Lambda float64 `json:"lambda"`
	// Number of refinement iterations per Update call
	MaxIter int `json:"max_iter"`
	// Record warps and corners for external inspection
	Debug bool `json:"debug"`
}

// DefaultConfig returns configuration which works well for regions of ~50-150 pixels
func DefaultConfig() Config {
	return Config{
		RegionShape: warp.Shape{Rows: 100, Cols: 100},
		Np:          400,
		MotionParams: []MotionScale{
			{Position: 8.0, Other: 0.06},
			{Position: 4.0, Other: 0.03},
			{Position: 1.0, Other: 0.01},
		},
		NumSynthesis: 1000,
		Lambda:       1.0,
		MaxIter:      5,
		Debug:        false,
	}
}

// Validate checks that configuration is complete and consistent
func (cfg Config) Validate() error {
	if cfg.RegionShape.Rows <= 0 || cfg.RegionShape.Cols <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "region_shape must be positive, got %dx%d", cfg.RegionShape.Rows, cfg.RegionShape.Cols)
	}
	if cfg.Np <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "np must be positive, got %d", cfg.Np)
	}
	side := int(math.Round(math.Sqrt(float64(cfg.Np))))
	if side*side != cfg.Np {
		return errors.Wrapf(ErrInvalidConfig, "np must be a perfect square, got %d", cfg.Np)
	}
	if side > cfg.RegionShape.Rows || side > cfg.RegionShape.Cols {
		return errors.Wrapf(ErrInvalidConfig, "np = %d doesn't fit into region_shape %dx%d", cfg.Np, cfg.RegionShape.Rows, cfg.RegionShape.Cols)
	}
	if len(cfg.MotionParams) == 0 {
		return errors.Wrap(ErrInvalidConfig, "at least one motion scale is required")
	}
	for i, scale := range cfg.MotionParams {
		if scale.Position < 0 || scale.Other < 0 || math.IsNaN(scale.Position) || math.IsNaN(scale.Other) {
			return errors.Wrapf(ErrInvalidConfig, "motion scale %d must be non-negative, got %+v", i, scale)
		}
	}
	if cfg.NumSynthesis <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "num_synthesis must be positive, got %d", cfg.NumSynthesis)
	}
	// Regularization is mandatory: feature matrix is rank-deficient when num_synthesis < np
	if !(cfg.Lambda > 0) || math.IsInf(cfg.Lambda, 0) {
		return errors.Wrapf(ErrInvalidConfig, "lambda must be positive, got %g", cfg.Lambda)
	}
	if cfg.MaxIter <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "max_iter must be positive, got %d", cfg.MaxIter)
	}
	return nil
}

// LoadConfig reads JSON configuration file
func LoadConfig(path string) (Config, error) {
	var cfg Config
	file, err := os.Open(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "Can't open config file '%s'", path)
	}
	defer file.Close()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "Can't decode config file '%s'", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
