package panel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tdhoffman/spreg/weights"
)

// concLogLik evaluates the concentrated log-likelihood objective for the
// fixed effects spatial lag model at candidate values of rho.  The reference
// residuals e0 and e1 are computed once, outside the search, as OLS
// residuals from regressing the (demeaned) response and its spatial lag on
// the (demeaned) covariates; they are never modified here.
//
// The returned quantity is minimized: it is the negative of the true
// log-likelihood up to additive constants.
type concLogLik struct {
	n, t   int
	e0, e1 []float64
	w      *weights.W

	// scratch for the combined residual, reused across trial points
	er []float64

	// scratch for I - rho*W
	a *mat.Dense
}

func newConcLogLik(n, t int, e0, e1 []float64, w *weights.W) *concLogLik {
	return &concLogLik{
		n:  n,
		t:  t,
		e0: e0,
		e1: e1,
		w:  w,
		er: make([]float64, len(e0)),
		a:  mat.NewDense(n, n, nil),
	}
}

// eval returns the concentrated objective at rho.  A singular or
// near-singular factor I - rho*W is reported as ErrSingularOperator; the
// caller must treat such trial points as inadmissible rather than aborting
// the search.
func (c *concLogLik) eval(rho float64) (float64, error) {
	nt := float64(c.n * c.t)

	// e(rho) = e0 - rho*e1, sig2(rho) = e'e / nt
	copy(c.er, c.e0)
	floats.AddScaled(c.er, -rho, c.e1)
	sig2 := floats.Dot(c.er, c.er) / nt
	if sig2 <= 0 || math.IsNaN(sig2) {
		return 0, fmt.Errorf("%w: residual variance %g at rho=%g", ErrSingularOperator, sig2, rho)
	}
	nlsig2 := (nt / 2.0) * math.Log(sig2)

	// Log-Jacobian of the n x n factor I - rho*W.  The same Jacobian
	// applies to every time block, so it enters scaled by t.
	c.a.Scale(-rho, c.w.Dense())
	for i := 0; i < c.n; i++ {
		c.a.Set(i, i, c.a.At(i, i)+1)
	}

	var lu mat.LU
	lu.Factorize(c.a)
	logdet, sign := lu.LogDet()
	if sign == 0 || math.IsInf(logdet, 0) || math.IsNaN(logdet) {
		return 0, fmt.Errorf("%w: I - rho*W is singular at rho=%g", ErrSingularOperator, rho)
	}
	jacob := float64(c.t) * logdet

	return nlsig2 - jacob, nil
}
