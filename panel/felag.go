package panel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/tdhoffman/spreg"
	"github.com/tdhoffman/spreg/weights"
)

// defaultEpsilon is the tolerance used for both the bounded search over rho
// and the reduced-form inverse product.
const defaultEpsilon = 1e-7

// FELag specifies a fixed effects spatial lag panel model
//
//	y = rho*(I_t (x) W)y + X*beta + mu + e
//
// estimated by maximum likelihood after demeaning out the unit effects mu.
// The response is a stacked panel of length n*t, period-major; the covariate
// matrix has n*t rows.  Columns that are constant over all observations,
// an intercept among them, are annihilated by the demeaning step; they are
// removed before estimation and do not appear in the reported parameters.
//
// Construct with NewFELag, configure with the chained setters, then call
// Done followed by Fit.
type FELag struct {
	y []float64
	x *mat.Dense
	w *weights.W

	epsilon float64
	yname   string
	xnames  []string

	n, t int
}

// NewFELag returns a fixed effects spatial lag model for the given stacked
// response, covariate matrix and spatial weights.
func NewFELag(y []float64, x *mat.Dense, w *weights.W) *FELag {
	if w == nil {
		panic("panel: weights matrix must be provided")
	}
	if y == nil || x == nil {
		panic("panel: response and covariates must be provided")
	}

	return &FELag{
		y:       y,
		x:       x,
		w:       w,
		epsilon: defaultEpsilon,
	}
}

// Epsilon sets the tolerance criterion for the bounded search over rho and
// for the reduced-form inverse product.
func (m *FELag) Epsilon(eps float64) *FELag {
	if eps <= 0 {
		panic("panel: epsilon must be positive")
	}
	m.epsilon = eps
	return m
}

// Names sets the variable names used in reporting.  Names never affect
// numeric results.
func (m *FELag) Names(yname string, xnames []string) *FELag {
	m.yname = yname
	m.xnames = xnames
	return m
}

// Done completes the definition of the model.  After calling Done the model
// can be fit by calling Fit.
func (m *FELag) Done() *FELag {

	_, k := m.x.Dims()

	if m.yname == "" {
		m.yname = "y"
	}
	if m.xnames == nil {
		for j := 0; j < k; j++ {
			m.xnames = append(m.xnames, fmt.Sprintf("x%d", j))
		}
	}
	if len(m.xnames) != k {
		msg := fmt.Sprintf("panel: %d covariate names for %d covariates", len(m.xnames), k)
		panic(msg)
	}

	return m
}

// NumUnits returns the number of spatial units n.
func (m *FELag) NumUnits() int { return m.w.N() }

// checkShapes validates the panel dimensions against the weights matrix.
func (m *FELag) checkShapes() error {
	n := m.w.N()
	if len(m.y) == 0 || len(m.y)%n != 0 {
		return fmt.Errorf("%w: response length %d is not divisible by unit count %d",
			ErrShapeMismatch, len(m.y), n)
	}
	xr, _ := m.x.Dims()
	if xr != len(m.y) {
		return fmt.Errorf("%w: covariate matrix has %d rows, response has %d",
			ErrShapeMismatch, xr, len(m.y))
	}

	m.n = n
	m.t = len(m.y) / n
	return nil
}

// Fit estimates the model and returns the results.  The estimation is a
// linear pipeline: demean, concentrated likelihood search over rho,
// reduced-form prediction, covariance assembly.  A failure
// at any stage aborts the fit with an error identifying that stage; partial
// results are never returned.
func (m *FELag) Fit() (*FELagResults, error) {

	if m.xnames == nil {
		m.Done()
	}

	// Stage 1: demean out the unit fixed effects.
	if err := m.checkShapes(); err != nil {
		return nil, fitErr(StageDemean, err)
	}
	n, t := m.n, m.t
	nt := float64(n * t)

	// Constant columns are annihilated by the demeaning step and would
	// leave X'X exactly singular, so they are removed here and never
	// appear in the reported parameters.
	x, xnm := dropConstantCols(m.x, m.xnames)
	_, k := x.Dims()
	if k == 0 {
		return nil, fitErr(StageDemean,
			fmt.Errorf("%w: every covariate column is constant", ErrShapeMismatch))
	}

	yd, err := Demean(m.y, n)
	if err != nil {
		return nil, fitErr(StageDemean, err)
	}
	xd, err := DemeanCols(x, n)
	if err != nil {
		return nil, fitErr(StageDemean, err)
	}

	// Stage 2: the block-diagonal panel operator and the spatial lag of
	// the response.
	wnt := m.w.Panel(t)
	ylag := make([]float64, n*t)
	wnt.MulVec(ylag, yd)

	// Stage 3: reference OLS residuals and the bounded search for rho.
	var xtx mat.Dense
	xtx.Mul(xd.T(), xd)

	var xtxi mat.Dense
	if err := xtxi.Inverse(&xtx); err != nil {
		return nil, fitErr(StageSearch,
			fmt.Errorf("%w: X'X is singular: %v", ErrSingularOperator, err))
	}

	b0 := olsCoef(&xtxi, xd, yd)
	b1 := olsCoef(&xtxi, xd, ylag)
	e0 := residuals(yd, xd, b0)
	e1 := residuals(ylag, xd, b1)

	cll := newConcLogLik(n, t, e0, e1, m.w)
	rho, fmin, err := minimizeScalarBounded(cll.eval, -1.0, 1.0, m.epsilon)
	if err != nil {
		return nil, fitErr(StageSearch, err)
	}

	// Full log-likelihood, including constants.
	logll := -fmin - nt/2.0*math.Log(2.0*math.Pi) - nt/2.0

	// Coefficients, residuals and predicted values; rho is appended as
	// the last coefficient.
	b := make([]float64, k)
	for j := range b {
		b[j] = b0[j] - rho*b1[j]
	}
	betas := make([]float64, k+1)
	copy(betas, b)
	betas[k] = rho

	u := make([]float64, n*t)
	copy(u, e0)
	floats.AddScaled(u, -rho, e1)

	predy := make([]float64, n*t)
	copy(predy, yd)
	floats.Sub(predy, u)

	xb := make([]float64, n*t)
	xbv := mat.NewVecDense(n*t, xb)
	xbv.MulVec(xd, mat.NewVecDense(k, b))

	// Stage 4: reduced-form predictions through the spatial inverse.
	predyE, err := InverseProd(wnt, xb, rho, m.epsilon)
	if err != nil {
		return nil, fitErr(StagePredict, err)
	}
	ePred := make([]float64, n*t)
	copy(ePred, yd)
	floats.Sub(ePred, predyE)

	utu := floats.Dot(u, u)
	sig2 := utu / nt

	// Stage 5: asymptotic covariance from the information matrix.
	vm1, vm, err := buildVCov(m.w, x, &xtx, xb, rho, sig2, n, t, k)
	if err != nil {
		return nil, fitErr(StageCovariance, err)
	}

	xnames := make([]string, k+1)
	copy(xnames, xnm)
	xnames[k] = "W_" + m.yname

	results := &FELagResults{
		BaseResults: spreg.NewBaseResults(logll, betas, xnames, flatten(vm)),
		model:       m,
		rho:         rho,
		sig2:        sig2,
		vcov1:       flatten(vm1),
		y:           yd,
		resid:       u,
		predy:       predy,
		predyRed:    predyE,
		residRed:    ePred,
		utu:         utu,
		n:           n,
		t:           t,
		k:           k,
	}

	return results, nil
}

// dropConstantCols returns the covariate matrix and names with every column
// that is constant over all observations removed.  When no column is
// constant the inputs are returned unchanged.
func dropConstantCols(x *mat.Dense, names []string) (*mat.Dense, []string) {
	r, c := x.Dims()

	keep := make([]int, 0, c)
	for j := 0; j < c; j++ {
		v := x.At(0, j)
		for i := 1; i < r; i++ {
			if x.At(i, j) != v {
				keep = append(keep, j)
				break
			}
		}
	}
	if len(keep) == c {
		return x, names
	}

	xr := mat.NewDense(r, len(keep), nil)
	nm := make([]string, len(keep))
	for jj, j := range keep {
		for i := 0; i < r; i++ {
			xr.Set(i, jj, x.At(i, j))
		}
		nm[jj] = names[j]
	}
	return xr, nm
}

// olsCoef computes xtxi * X' y.
func olsCoef(xtxi *mat.Dense, x *mat.Dense, y []float64) []float64 {
	_, k := x.Dims()
	xty := mat.NewVecDense(k, nil)
	xty.MulVec(x.T(), mat.NewVecDense(len(y), y))

	b := mat.NewVecDense(k, nil)
	b.MulVec(xtxi, xty)

	out := make([]float64, k)
	copy(out, b.RawVector().Data)
	return out
}

// residuals computes y - X b.
func residuals(y []float64, x *mat.Dense, b []float64) []float64 {
	_, k := x.Dims()
	fit := mat.NewVecDense(len(y), nil)
	fit.MulVec(x, mat.NewVecDense(k, b))

	out := make([]float64, len(y))
	copy(out, y)
	floats.Sub(out, fit.RawVector().Data)
	return out
}

// flatten vectorizes a matrix by row.
func flatten(a *mat.Dense) []float64 {
	r, c := a.Dims()
	out := make([]float64, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = a.At(i, j)
		}
	}
	return out
}

// FELagResults holds the results of a fitted fixed effects spatial lag
// model.  All fields are computed during Fit and read-only afterwards.
// Params follows the [beta..., rho] ordering; VCov1 extends it with the
// residual variance, [beta..., rho, sigma2].
type FELagResults struct {
	spreg.BaseResults

	model *FELag

	rho  float64
	sig2 float64

	// (k+2) x (k+2) joint covariance including sigma2, vectorized by row.
	vcov1 []float64

	// Demeaned response the model was fit to.
	y []float64

	resid    []float64
	predy    []float64
	predyRed []float64
	residRed []float64

	utu float64

	n, t, k int
}

// Model returns the model specification used to produce the results.
func (rslt *FELagResults) Model() *FELag { return rslt.model }

// Rho returns the estimated spatial autoregressive coefficient.
func (rslt *FELagResults) Rho() float64 { return rslt.rho }

// Sigma2 returns the estimated residual variance.
func (rslt *FELagResults) Sigma2() float64 { return rslt.sig2 }

// VCov1 returns the (k+2) x (k+2) covariance matrix that additionally
// includes the residual variance parameter, vectorized by row.
func (rslt *FELagResults) VCov1() []float64 { return rslt.vcov1 }

// Response returns the demeaned response used in the fit.
func (rslt *FELagResults) Response() []float64 { return rslt.y }

// Resid returns the residuals u.
func (rslt *FELagResults) Resid() []float64 { return rslt.resid }

// PredY returns the predicted values y - u.
func (rslt *FELagResults) PredY() []float64 { return rslt.predy }

// ReducedPredY returns the predicted values from the reduced form,
// (I - rho*Wnt)^-1 X b.
func (rslt *FELagResults) ReducedPredY() []float64 { return rslt.predyRed }

// ReducedResid returns the prediction errors using the reduced form
// predicted values.
func (rslt *FELagResults) ReducedResid() []float64 { return rslt.residRed }

// USqSum returns the sum of squared residuals.
func (rslt *FELagResults) USqSum() float64 { return rslt.utu }

// NumUnits returns the number of spatial units n.
func (rslt *FELagResults) NumUnits() int { return rslt.n }

// NumPeriods returns the number of time periods t.
func (rslt *FELagResults) NumPeriods() int { return rslt.t }

// NumCovariates returns the number of covariates k (excluding rho).
func (rslt *FELagResults) NumCovariates() int { return rslt.k }

// MeanY returns the mean of the demeaned response.
func (rslt *FELagResults) MeanY() float64 { return stat.Mean(rslt.y, nil) }

// StdY returns the standard deviation of the demeaned response.
func (rslt *FELagResults) StdY() float64 { return stat.StdDev(rslt.y, nil) }

// PseudoR2 returns the squared correlation between the response and the
// predicted values.
func (rslt *FELagResults) PseudoR2() float64 {
	c := stat.Correlation(rslt.y, rslt.predy, nil)
	return c * c
}

// PseudoR2Reduced returns the squared correlation between the response and
// the reduced-form predicted values.
func (rslt *FELagResults) PseudoR2Reduced() float64 {
	c := stat.Correlation(rslt.y, rslt.predyRed, nil)
	return c * c
}

// Summary displays a summary table of the results.
func (rslt *FELagResults) Summary() *spreg.SummaryTable {

	sum := &spreg.SummaryTable{}

	sum.Title = "Maximum likelihood spatial lag panel - fixed effects"

	sum.Top = []string{
		fmt.Sprintf("Num obs:     %d", rslt.n*rslt.t),
		fmt.Sprintf("Num units:   %d", rslt.n),
		fmt.Sprintf("Num periods: %d", rslt.t),
		fmt.Sprintf("Rho:         %.4f", rslt.rho),
		fmt.Sprintf("Sigma2:      %.4f", rslt.sig2),
		fmt.Sprintf("Log-lik:     %.4f", rslt.LogLike()),
		fmt.Sprintf("Pseudo R2:   %.4f", rslt.PseudoR2()),
	}

	sum.ColNames = []string{"Variable   ", "Parameter", "SE", "Z-score", "P-value"}
	sum.ColFmt = []spreg.Fmter{spreg.StringFmt, spreg.NumberFmt, spreg.NumberFmt,
		spreg.NumberFmt, spreg.NumberFmt}

	sum.Cols = []interface{}{
		rslt.Names(),
		rslt.Params(),
		rslt.StdErr(),
		rslt.ZScores(),
		rslt.PValues(),
	}

	return sum
}
