package panel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Demean removes the unit-level time means from a stacked panel vector.
// The vector holds t periods of n units, period-major: the observation for
// unit i in period tau is at index tau*n + i.  Each unit's mean across its t
// observations is subtracted from every one of that unit's observations,
// which removes unit fixed effects algebraically.  The input is not
// modified.
func Demean(x []float64, n int) ([]float64, error) {
	if n <= 0 || len(x)%n != 0 {
		return nil, fmt.Errorf("%w: panel length %d is not divisible by unit count %d",
			ErrShapeMismatch, len(x), n)
	}
	t := len(x) / n

	means := make([]float64, n)
	for tau := 0; tau < t; tau++ {
		for i := 0; i < n; i++ {
			means[i] += x[tau*n+i]
		}
	}
	for i := range means {
		means[i] /= float64(t)
	}

	out := make([]float64, len(x))
	for tau := 0; tau < t; tau++ {
		for i := 0; i < n; i++ {
			out[tau*n+i] = x[tau*n+i] - means[i]
		}
	}

	return out, nil
}

// DemeanCols applies Demean to every column of a stacked panel matrix,
// returning a new matrix.
func DemeanCols(x *mat.Dense, n int) (*mat.Dense, error) {
	r, c := x.Dims()
	if n <= 0 || r%n != 0 {
		return nil, fmt.Errorf("%w: panel length %d is not divisible by unit count %d",
			ErrShapeMismatch, r, n)
	}

	out := mat.NewDense(r, c, nil)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		dm, err := Demean(col, n)
		if err != nil {
			return nil, err
		}
		out.SetCol(j, dm)
	}

	return out, nil
}
