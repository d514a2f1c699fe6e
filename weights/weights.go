// Package weights provides the spatial weights matrix used by the spreg
// estimators.  A weights matrix is kept in two representations at once: a
// sparse form for matrix-vector products against panel-length data, and a
// dense form for the full-entry access that the trace identities in the
// information matrix require.  Both are derived lazily from the canonical
// storage and cached; a W value is immutable after construction.
package weights

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// W is an n x n spatial weights matrix.  Entries are non-negative and the
// diagonal is conventionally zero (no self-neighbors).  W is shared by
// reference across the per-period blocks of a panel and must never be
// mutated after construction.
type W struct {
	n int

	// Canonical storage.
	csr *sparse.CSR

	// Dense form, derived on first use.
	dense *mat.Dense
}

// New returns a weights matrix backed by the given dense matrix.  The matrix
// must be square with non-negative entries.  The input is copied; the caller
// keeps ownership of a.
func New(a *mat.Dense) (*W, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("weights: matrix is %d x %d, must be square", r, c)
	}

	dok := sparse.NewDOK(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := a.At(i, j)
			if v < 0 {
				return nil, fmt.Errorf("weights: negative weight %f at (%d, %d)", v, i, j)
			}
			if v != 0 {
				dok.Set(i, j, v)
			}
		}
	}

	return &W{n: r, csr: dok.ToCSR()}, nil
}

// NewFromNeighbors returns a weights matrix from a neighbor-list
// representation: neighbors[i] lists the columns with nonzero weight in row
// i, and vals[i][j] is the weight of the j^th neighbor of i.  If vals is
// nil every listed neighbor gets weight 1.
func NewFromNeighbors(neighbors [][]int, vals [][]float64) (*W, error) {
	n := len(neighbors)
	dok := sparse.NewDOK(n, n)

	for i, nb := range neighbors {
		for j, q := range nb {
			if q < 0 || q >= n {
				return nil, fmt.Errorf("weights: neighbor %d of unit %d out of range", q, i)
			}
			v := 1.0
			if vals != nil {
				v = vals[i][j]
			}
			if v < 0 {
				return nil, fmt.Errorf("weights: negative weight %f at (%d, %d)", v, i, q)
			}
			if v != 0 {
				dok.Set(i, q, v)
			}
		}
	}

	return &W{n: n, csr: dok.ToCSR()}, nil
}

// Lattice returns binary contiguity weights for a regular rows x cols grid,
// with units numbered row-major.  If queen is true, diagonal neighbors are
// included (queen contiguity); otherwise only horizontal and vertical
// neighbors are (rook contiguity).
func Lattice(rows, cols int, queen bool) *W {
	n := rows * cols
	dok := sparse.NewDOK(n, n)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					if !queen && dr != 0 && dc != 0 {
						continue
					}
					rr, cc := r+dr, c+dc
					if rr < 0 || rr >= rows || cc < 0 || cc >= cols {
						continue
					}
					dok.Set(i, rr*cols+cc, 1)
				}
			}
		}
	}

	return &W{n: n, csr: dok.ToCSR()}
}

// N returns the number of spatial units.
func (w *W) N() int {
	return w.n
}

// Sparse returns the CSR form of the weights matrix.  The caller must not
// mutate the returned matrix.
func (w *W) Sparse() *sparse.CSR {
	return w.csr
}

// Dense returns the dense form of the weights matrix, derived on first call
// and cached.  The caller must not mutate the returned matrix.
func (w *W) Dense() *mat.Dense {
	if w.dense == nil {
		d := mat.NewDense(w.n, w.n, nil)
		w.csr.DoNonZero(func(i, j int, v float64) {
			d.Set(i, j, v)
		})
		w.dense = d
	}
	return w.dense
}

// RowStandardized returns a new weights matrix with each row rescaled to sum
// to one.  Rows without any neighbor cannot be standardized.
func (w *W) RowStandardized() (*W, error) {
	sums := make([]float64, w.n)
	w.csr.DoNonZero(func(i, j int, v float64) {
		sums[i] += v
	})
	for i, s := range sums {
		if s == 0 {
			return nil, fmt.Errorf("weights: unit %d has no neighbors, cannot row-standardize", i)
		}
	}

	dok := sparse.NewDOK(w.n, w.n)
	w.csr.DoNonZero(func(i, j int, v float64) {
		dok.Set(i, j, v/sums[i])
	})

	return &W{n: w.n, csr: dok.ToCSR()}, nil
}

// MulVec computes dst = W x for an n-length vector, using the sparse form.
// dst and x must both have length n.
func (w *W) MulVec(dst, x []float64) {
	if len(x) != w.n || len(dst) != w.n {
		panic("weights: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	w.csr.DoNonZero(func(i, j int, v float64) {
		dst[i] += v * x[j]
	})
}
