package panel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/tdhoffman/spreg/weights"
)

// invMaxIter caps the power-series expansion.  The series contracts at rate
// |rho| times the spectral radius of W, which is not rigorously bounded for
// |rho| near 1 with non-standardized weights, so a cap with a direct-solve
// fallback is mandatory.
const invMaxIter = 1000

// InverseProd computes (I - rho*Wnt)^-1 v for a stacked panel vector v
// without forming the dense inverse, using the truncated power series
//
//	v + rho*Wnt v + rho^2*Wnt^2 v + ...
//
// iterated until the incremental term's norm falls below threshold relative
// to the running sum.  If the series fails to contract, or the iteration cap
// is reached, the product is recomputed by directly solving the linear
// system (I - rho*Wnt) z = v.
func InverseProd(p *weights.PanelW, v []float64, rho, threshold float64) ([]float64, error) {
	nt, _ := p.Dims()
	if len(v) != nt {
		return nil, fmt.Errorf("%w: vector length %d, operator dimension %d",
			ErrShapeMismatch, len(v), nt)
	}

	sum := make([]float64, nt)
	copy(sum, v)
	incr := make([]float64, nt)
	copy(incr, v)
	work := make([]float64, nt)

	prev := math.Inf(1)
	for j := 0; j < invMaxIter; j++ {
		p.MulVec(work, incr)
		for i := range incr {
			incr[i] = rho * work[i]
		}
		floats.Add(sum, incr)

		nrm := floats.Norm(incr, 2)
		if nrm <= threshold*floats.Norm(sum, 2) {
			return sum, nil
		}

		// Non-decreasing increments mean the expansion is outside its
		// radius of convergence; stop accumulating garbage.
		if j > 1 && nrm >= prev {
			return solveReduced(p, v, rho)
		}
		prev = nrm
	}

	return solveReduced(p, v, rho)
}

// solveReduced computes (I - rho*Wnt)^-1 v by LU-factoring the panel
// operator and solving the linear system directly.  The operator is
// materialized dense here: neither gonum nor the sparse package offers a
// sparse LU, and this path only runs once the series has already failed.
func solveReduced(p *weights.PanelW, v []float64, rho float64) ([]float64, error) {
	nt, _ := p.Dims()

	a := mat.NewDense(nt, nt, nil)
	a.Scale(-rho, p.Dense())
	for i := 0; i < nt; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}

	var lu mat.LU
	lu.Factorize(a)

	z := mat.NewVecDense(nt, nil)
	if err := lu.SolveVecTo(z, false, mat.NewVecDense(nt, v)); err != nil {
		return nil, fmt.Errorf("%w: direct solve failed: %v", ErrSeriesDivergence, err)
	}

	out := make([]float64, nt)
	copy(out, z.RawVector().Data)
	return out, nil
}
