// Package spreg provides estimation of spatial econometric models.
//
// The numerical core lives in the panel subpackage (fixed-effects maximum
// likelihood estimation of the spatial lag model); the weights subpackage
// holds the spatial weights abstraction, and the formula subpackage compiles
// spatial model formulas into design matrices.  This package contains the
// shared results container and summary rendering.
package spreg

import (
	"math"
)

// Dtype is the numeric type used for all data.
type Dtype = float64

// Resultser is a fitted model that can produce parameter-level results.
type Resultser interface {
	Names() []string
	LogLike() float64
	Params() []float64
	VCov() []float64
	StdErr() []float64
	ZScores() []float64
	PValues() []float64
}

// BaseResults contains the parameter-level results shared by all fitted
// models: point estimates, their sampling covariance, and the derived
// standard errors, Z-scores and p-values.
//
// The parameter ordering is a structural contract: for spatial lag models
// the covariate coefficients come first and the spatial autoregressive
// coefficient rho is always the last entry of Params, with VCov laid out in
// the same order.  Extended covariance matrices that additionally carry the
// residual variance place it after rho.
type BaseResults struct {
	loglike float64
	params  []float64
	xnames  []string
	vcov    []float64
	stderr  []float64
	zscores []float64
	pvalues []float64
}

// NewBaseResults returns a BaseResults for the given fitted parameters.
// vcov is the (p x p) sampling covariance matrix vectorized by row, in the
// same parameter order as params; it may be nil if no covariance estimate
// is available.
func NewBaseResults(loglike float64, params []float64, xnames []string, vcov []float64) BaseResults {
	return BaseResults{
		loglike: loglike,
		params:  params,
		xnames:  xnames,
		vcov:    vcov,
	}
}

// Names returns the names of the parameters, in the order of Params.
func (rslt *BaseResults) Names() []string {
	return rslt.xnames
}

// Params returns the point estimates for the parameters in the model.
func (rslt *BaseResults) Params() []float64 {
	return rslt.params
}

// VCov returns the sampling variance/covariance matrix of the parameter
// estimates, vectorized to one dimension by row.
func (rslt *BaseResults) VCov() []float64 {
	return rslt.vcov
}

// LogLike returns the maximized log-likelihood for the fitted model.
func (rslt *BaseResults) LogLike() float64 {
	return rslt.loglike
}

// StdErr returns the standard errors of the parameter estimates.
func (rslt *BaseResults) StdErr() []float64 {

	// No vcov, no standard error
	if rslt.vcov == nil {
		return nil
	}

	p := len(rslt.params)
	if rslt.stderr != nil {
		return rslt.stderr
	}
	rslt.stderr = make([]float64, p)

	for i := range rslt.stderr {
		rslt.stderr[i] = math.Sqrt(rslt.vcov[i*p+i])
	}

	return rslt.stderr
}

// ZScores returns the parameter estimates divided by their standard errors.
func (rslt *BaseResults) ZScores() []float64 {

	if rslt.vcov == nil {
		return nil
	}

	if rslt.zscores != nil {
		return rslt.zscores
	}
	rslt.zscores = make([]float64, len(rslt.params))

	std := rslt.StdErr()
	for i := range std {
		rslt.zscores[i] = rslt.params[i] / std[i]
	}

	return rslt.zscores
}

func normcdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt(2))
}

// PValues returns the two-sided p-values for the null hypothesis that each
// parameter's population value is equal to zero.
func (rslt *BaseResults) PValues() []float64 {

	if rslt.vcov == nil {
		return nil
	}

	if rslt.pvalues != nil {
		return rslt.pvalues
	}
	rslt.pvalues = make([]float64, len(rslt.params))

	for i, z := range rslt.ZScores() {
		rslt.pvalues[i] = 2 * normcdf(-math.Abs(z))
	}

	return rslt.pvalues
}
