package panel

import (
	"fmt"
	"math"
)

// objective is a scalar function whose trial points may fail numerically.
// A failed point is treated by the search as worse than any finite value.
type objective func(x float64) (float64, error)

const (
	searchMaxEval = 500
	goldenMean    = 0.3819660112501051 // (3 - sqrt(5)) / 2
)

// minimizeScalarBounded minimizes f over the open interval (lo, hi) to the
// absolute tolerance xatol, using golden-section search with parabolic
// interpolation steps.  Interior trial points never touch the interval
// endpoints, so the minimizer lies strictly inside (lo, hi).
//
// Trial points at which f fails are scored +Inf and the search continues
// around them; if every evaluated point fails, the last failure is
// returned wrapped in ErrSingularOperator.  Exceeding the evaluation budget
// without meeting the tolerance returns ErrNonConvergence.
func minimizeScalarBounded(f objective, lo, hi, xatol float64) (float64, float64, error) {
	if !(lo < hi) {
		return 0, 0, fmt.Errorf("%w: invalid search interval [%g, %g]", ErrNonConvergence, lo, hi)
	}

	var lastErr error
	eval := func(x float64) float64 {
		v, err := f(x)
		if err != nil || math.IsNaN(v) {
			if err != nil {
				lastErr = err
			}
			return math.Inf(1)
		}
		return v
	}

	sqrtEps := math.Sqrt(2.2e-16)

	a, b := lo, hi
	fulc := a + goldenMean*(b-a)
	nfc, xf := fulc, fulc
	rat, e := 0.0, 0.0
	x := xf
	fx := eval(x)
	num := 1
	ffulc, fnfc := fx, fx
	xm := 0.5 * (a + b)
	tol1 := sqrtEps*math.Abs(xf) + xatol/3.0
	tol2 := 2.0 * tol1

	for math.Abs(xf-xm) > tol2-0.5*(b-a) {
		golden := true

		// Try a parabolic fit through the three best points.
		if math.Abs(e) > tol1 {
			golden = false
			r := (xf - nfc) * (fx - ffulc)
			q := (xf - fulc) * (fx - fnfc)
			p := (xf-fulc)*q - (xf-nfc)*r
			q = 2.0 * (q - r)
			if q > 0.0 {
				p = -p
			}
			q = math.Abs(q)
			r = e
			e = rat

			if math.Abs(p) < math.Abs(0.5*q*r) && p > q*(a-xf) && p < q*(b-xf) {
				rat = p / q
				x = xf + rat
				if x-a < tol2 || b-x < tol2 {
					si := signOrOne(xm - xf)
					rat = tol1 * si
				}
			} else {
				golden = true
			}
		}

		if golden {
			if xf >= xm {
				e = a - xf
			} else {
				e = b - xf
			}
			rat = goldenMean * e
		}

		si := signOrOne(rat)
		x = xf + si*math.Max(math.Abs(rat), tol1)
		fu := eval(x)
		num++

		if fu <= fx {
			if x >= xf {
				a = xf
			} else {
				b = xf
			}
			fulc, ffulc = nfc, fnfc
			nfc, fnfc = xf, fx
			xf, fx = x, fu
		} else {
			if x < xf {
				a = x
			} else {
				b = x
			}
			if fu <= fnfc || nfc == xf {
				fulc, ffulc = nfc, fnfc
				nfc, fnfc = x, fu
			} else if fu <= ffulc || fulc == xf || fulc == nfc {
				fulc, ffulc = x, fu
			}
		}

		xm = 0.5 * (a + b)
		tol1 = sqrtEps*math.Abs(xf) + xatol/3.0
		tol2 = 2.0 * tol1

		if num >= searchMaxEval {
			return xf, fx, fmt.Errorf("%w: %d evaluations without reaching tolerance %g",
				ErrNonConvergence, num, xatol)
		}
	}

	if math.IsInf(fx, 1) {
		if lastErr != nil {
			return xf, fx, fmt.Errorf("%w: no admissible trial point: %v", ErrSingularOperator, lastErr)
		}
		return xf, fx, fmt.Errorf("%w: no admissible trial point", ErrSingularOperator)
	}

	return xf, fx, nil
}

func signOrOne(x float64) float64 {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 1
}
