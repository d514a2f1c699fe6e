package weights

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// PanelW is the block-diagonal replication of an n x n weights matrix across
// t time periods (the Kronecker product I_t (x) W), giving the nt x nt
// spatial operator for stacked panel data.  It is built once per estimation
// and never mutated.  The sparse form carries all panel-length products; the
// dense form is derived lazily and should only be touched on small
// diagnostic paths.
type PanelW struct {
	w *W
	t int

	csr   *sparse.CSR
	dense *mat.Dense
}

// Panel returns the block-diagonal replication of w across t periods.  The
// sparsity pattern of each block is exactly that of w; there is no fill-in
// across blocks.
func (w *W) Panel(t int) *PanelW {
	nt := w.n * t
	dok := sparse.NewDOK(nt, nt)

	for tau := 0; tau < t; tau++ {
		off := tau * w.n
		w.csr.DoNonZero(func(i, j int, v float64) {
			dok.Set(off+i, off+j, v)
		})
	}

	return &PanelW{w: w, t: t, csr: dok.ToCSR()}
}

// N returns the number of spatial units per period.
func (p *PanelW) N() int {
	return p.w.n
}

// T returns the number of time periods.
func (p *PanelW) T() int {
	return p.t
}

// Dims returns the dimensions of the operator (nt, nt).
func (p *PanelW) Dims() (int, int) {
	nt := p.w.n * p.t
	return nt, nt
}

// Sparse returns the CSR form of the panel operator.  The caller must not
// mutate the returned matrix.
func (p *PanelW) Sparse() *sparse.CSR {
	return p.csr
}

// Dense returns the dense form of the panel operator, derived on first call
// and cached.  The caller must not mutate the returned matrix.
func (p *PanelW) Dense() *mat.Dense {
	if p.dense == nil {
		nt := p.w.n * p.t
		d := mat.NewDense(nt, nt, nil)
		p.csr.DoNonZero(func(i, j int, v float64) {
			d.Set(i, j, v)
		})
		p.dense = d
	}
	return p.dense
}

// MulVec computes dst = (I_t (x) W) x for an nt-length stacked panel
// vector, using the sparse form.  dst and x must both have length nt.
func (p *PanelW) MulVec(dst, x []float64) {
	nt := p.w.n * p.t
	if len(x) != nt || len(dst) != nt {
		panic("weights: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	p.csr.DoNonZero(func(i, j int, v float64) {
		dst[i] += v * x[j]
	})
}

// MulMat computes the product (I_t (x) W) X for a dense matrix with nt rows,
// returning a new matrix.
func (p *PanelW) MulMat(x *mat.Dense) *mat.Dense {
	nt := p.w.n * p.t
	r, c := x.Dims()
	if r != nt {
		panic("weights: dimension mismatch")
	}
	out := mat.NewDense(nt, c, nil)
	p.csr.DoNonZero(func(i, j int, v float64) {
		for k := 0; k < c; k++ {
			out.Set(i, k, out.At(i, k)+v*x.At(j, k))
		}
	})
	return out
}
