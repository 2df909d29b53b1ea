package hyperplane

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Regressor is L2-regularized linear model (ridge regression with intercept)
// mapping appearance difference to homography update parameters.
type Regressor struct {
	lambda    float64
	weights   *mat.Dense
	intercept *mat.VecDense
}

// NewRegressor creates untrained regressor
func NewRegressor(lambda float64) *Regressor {
	return &Regressor{
		lambda: lambda,
	}
}

// Fit solves ridge regression for feature rows X (n x p) and target rows Y (n x k).
// Features and targets are centered, so intercept is not regularized.
// Solution uses Cholesky decomposition of p x p normal equations or, when n < p, of n x n kernel matrix.
func (reg *Regressor) Fit(X, Y mat.Matrix) error {
	n, p := X.Dims()
	ny, k := Y.Dims()
	if n == 0 || p == 0 || k == 0 {
		return errors.Wrapf(ErrTrainingFailure, "empty training set %dx%d -> %dx%d", n, p, ny, k)
	}
	if n != ny {
		return errors.Wrapf(ErrTrainingFailure, "features have %d rows, but targets have %d", n, ny)
	}
	if !(reg.lambda > 0) {
		return errors.Wrapf(ErrTrainingFailure, "regularization must be positive, got %g", reg.lambda)
	}

	xMean := columnMeans(X)
	yMean := columnMeans(Y)
	xc := centered(X, xMean)
	yc := centered(Y, yMean)

	weights := mat.NewDense(p, k, nil)
	if n >= p {
		// (Xc'Xc + lambda*I) W = Xc'Yc
		var gram mat.SymDense
		gram.SymOuterK(1, xc.T())
		addDiagonal(&gram, reg.lambda)
		var rhs mat.Dense
		rhs.Mul(xc.T(), yc)
		if err := solveCholesky(&gram, &rhs, weights); err != nil {
			return err
		}
	} else {
		// W = Xc' (Xc Xc' + lambda*I)^-1 Yc
		var kernel mat.SymDense
		kernel.SymOuterK(1, xc)
		addDiagonal(&kernel, reg.lambda)
		alpha := mat.NewDense(n, k, nil)
		if err := solveCholesky(&kernel, yc, alpha); err != nil {
			return err
		}
		weights.Mul(xc.T(), alpha)
	}
	if !allFinite(weights.RawMatrix().Data) {
		return errors.Wrap(ErrTrainingFailure, "weights have non-finite values")
	}

	// intercept = mean(Y) - W' mean(X)
	intercept := mat.NewVecDense(k, nil)
	intercept.MulVec(weights.T(), xMean)
	intercept.SubVec(yMean, intercept)
	if !allFinite(intercept.RawVector().Data) {
		return errors.Wrap(ErrTrainingFailure, "intercept has non-finite values")
	}

	reg.weights = weights
	reg.intercept = intercept
	return nil
}

// Trained reports whether Fit has succeeded
func (reg *Regressor) Trained() bool {
	return reg.weights != nil
}

// Predict returns estimated update parameters for single appearance difference vector
func (reg *Regressor) Predict(x []float64) ([]float64, error) {
	if !reg.Trained() {
		return nil, errors.New("regressor is not trained")
	}
	p, k := reg.weights.Dims()
	if len(x) != p {
		return nil, errors.Errorf("feature vector must have %d values. Has %d", p, len(x))
	}
	out := mat.NewVecDense(k, nil)
	out.MulVec(reg.weights.T(), mat.NewVecDense(p, x))
	out.AddVec(out, reg.intercept)
	res := make([]float64, k)
	copy(res, out.RawVector().Data)
	return res, nil
}

// Weights returns p x k weight matrix
func (reg *Regressor) Weights() mat.Matrix {
	return reg.weights
}

// Intercept returns copy of intercept vector
func (reg *Regressor) Intercept() []float64 {
	if reg.intercept == nil {
		return nil
	}
	res := make([]float64, reg.intercept.Len())
	copy(res, reg.intercept.RawVector().Data)
	return res
}

func solveCholesky(a *mat.SymDense, b mat.Matrix, dst *mat.Dense) error {
	var chol mat.Cholesky
	if ok := chol.Factorize(a); !ok {
		return errors.Wrap(ErrTrainingFailure, "regularized system is not positive definite")
	}
	if err := chol.SolveTo(dst, b); err != nil {
		// Ill-conditioning is reported but solution is still computed
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return errors.Wrap(ErrTrainingFailure, "Can't solve regularized system: "+err.Error())
		}
	}
	return nil
}

func columnMeans(m mat.Matrix) *mat.VecDense {
	rows, cols := m.Dims()
	means := mat.NewVecDense(cols, nil)
	for j := 0; j < cols; j++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += m.At(i, j)
		}
		means.SetVec(j, sum/float64(rows))
	}
	return means
}

func centered(m mat.Matrix, means *mat.VecDense) *mat.Dense {
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j)-means.AtVec(j))
		}
	}
	return out
}

func addDiagonal(s *mat.SymDense, v float64) {
	n := s.SymmetricDim()
	for i := 0; i < n; i++ {
		s.SetSym(i, i, s.At(i, i)+v)
	}
}

func allFinite(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
