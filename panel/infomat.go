package panel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tdhoffman/spreg/weights"
)

// blockApply multiplies the block-diagonal replication of the n x n matrix a
// across t periods with the stacked panel vector v.  This applies the
// operator I_t (x) a without materializing it.
func blockApply(a *mat.Dense, v []float64, n, t int) []float64 {
	out := make([]float64, n*t)
	for tau := 0; tau < t; tau++ {
		off := tau * n
		dst := mat.NewVecDense(n, out[off:off+n])
		dst.MulVec(a, mat.NewVecDense(n, v[off:off+n]))
	}
	return out
}

// buildVCov assembles the asymptotic variance-covariance matrices of the
// fixed effects spatial lag estimator from closed-form trace identities on
// the inverse spatial operator.
//
// Parameter ordering in the assembled information matrix is the structural
// contract [beta..., rho, sigma2].  The returned vm1 is the full
// (k+2) x (k+2) joint covariance; vm is its leading (k+1) x (k+1) block
// (dropping the sigma2 row and column), the reported coefficient covariance.
//
// xtx is the Gram matrix of the demeaned covariates; x is the covariate
// matrix as passed to the fit, which the reference implementation uses for
// the X'W(Xb) cross term.  xb is the demeaned structural mean X*b.
func buildVCov(w *weights.W, x *mat.Dense, xtx *mat.Dense, xb []float64,
	rho, sig2 float64, n, t, k int) (vm1, vm *mat.Dense, err error) {

	// A = I - rho*W and its dense inverse.  This is the one step that
	// requires a dense inverse: the trace identities need every entry.
	a := mat.NewDense(n, n, nil)
	a.Scale(-rho, w.Dense())
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}

	ai := mat.NewDense(n, n, nil)
	if err := ai.Inverse(a); err != nil {
		return nil, nil, fmt.Errorf("%w: I - rho*W is not invertible at rho=%g: %v",
			ErrSingularOperator, rho, err)
	}

	wai := mat.NewDense(n, n, nil)
	wai.Mul(w.Dense(), ai)
	tr1 := mat.Trace(wai)

	wai2 := mat.NewDense(n, n, nil)
	wai2.Mul(wai, wai)
	tr2 := mat.Trace(wai2)

	waiTwai := mat.NewDense(n, n, nil)
	waiTwai.Mul(wai.T(), wai)
	tr3 := mat.Trace(waiTwai)

	// Cross terms against the panel-length structural mean, with the
	// n x n factors replicated block-wise across the t periods.
	wpredy := blockApply(wai, xb, n, t)
	xTwpy := make([]float64, k)
	xcol := make([]float64, n*t)
	for j := 0; j < k; j++ {
		mat.Col(xcol, j, x)
		xTwpy[j] = floats.Dot(xcol, wpredy)
	}

	wTwpredy := blockApply(waiTwai, xb, n, t)
	wpyTwpy := floats.Dot(xb, wTwpredy)

	tf := float64(t)
	nt := float64(n * t)

	// Information matrix, ordered [beta..., rho, sigma2].
	v := mat.NewDense(k+2, k+2, nil)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			v.Set(i, j, xtx.At(i, j)/sig2)
		}
	}
	for j := 0; j < k; j++ {
		v.Set(j, k, xTwpy[j]/sig2)
		v.Set(k, j, xTwpy[j]/sig2)
	}
	v.Set(k, k, tf*(tr2+tr3)+wpyTwpy/sig2)
	v.Set(k, k+1, tf*tr1/sig2)
	v.Set(k+1, k, tf*tr1/sig2)
	v.Set(k+1, k+1, nt/(2.0*sig2*sig2))

	vm1 = mat.NewDense(k+2, k+2, nil)
	if err := vm1.Inverse(v); err != nil {
		return nil, nil, fmt.Errorf("%w: information matrix is singular: %v",
			ErrSingularOperator, err)
	}

	vm = mat.NewDense(k+1, k+1, nil)
	vm.Copy(vm1.Slice(0, k+1, 0, k+1))

	return vm1, vm, nil
}
