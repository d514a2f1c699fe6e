package panel

import (
	"errors"
	"fmt"
)

// Error kinds for a failed fit.  All are unrecoverable for the current fit
// call: there is no automatic retry and no default substitution.
var (
	// ErrShapeMismatch indicates panel data whose dimensions are not
	// consistent with the weights matrix (length not divisible by the
	// unit count, or covariate/response row counts that disagree).
	ErrShapeMismatch = errors.New("panel: shape mismatch")

	// ErrSingularOperator indicates that an LU factorization or dense
	// inversion failed at a trial or final value of rho.
	ErrSingularOperator = errors.New("panel: singular operator")

	// ErrNonConvergence indicates that the bounded search for rho
	// exhausted its evaluation budget without meeting the tolerance.
	ErrNonConvergence = errors.New("panel: optimizer did not converge")

	// ErrSeriesDivergence indicates that the power-series expansion of the
	// reduced-form inverse product failed to contract and the direct
	// solve fallback also failed.
	ErrSeriesDivergence = errors.New("panel: inverse-product series diverged")
)

// Stage identifies the estimation stage at which a fit failed.
type Stage int

const (
	StageDemean Stage = iota
	StageSearch
	StagePredict
	StageCovariance
)

func (s Stage) String() string {
	switch s {
	case StageDemean:
		return "demean"
	case StageSearch:
		return "search"
	case StagePredict:
		return "predict"
	case StageCovariance:
		return "covariance"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// FitError wraps an error from one stage of the estimation pipeline.
type FitError struct {
	Stage Stage
	Err   error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("panel: fit failed at %s stage: %v", e.Stage, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

func fitErr(stage Stage, err error) error {
	return &FitError{Stage: stage, Err: err}
}
