package panel

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestMinimizeScalarQuadratic(t *testing.T) {

	f := func(x float64) (float64, error) {
		return (x - 0.3) * (x - 0.3), nil
	}

	x, fx, err := minimizeScalarBounded(f, -1, 1, 1e-7)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x-0.3) > 1e-6 {
		t.Errorf("minimizer %g, want 0.3", x)
	}
	if fx > 1e-10 {
		t.Errorf("objective %g at minimizer", fx)
	}
}

func TestMinimizeScalarEdgeMinimum(t *testing.T) {

	// Monotone decreasing on the interval: the minimizer is pushed
	// against the bound but stays strictly inside it.
	f := func(x float64) (float64, error) {
		return -x, nil
	}

	x, _, err := minimizeScalarBounded(f, -1, 1, 1e-7)
	if err != nil {
		t.Fatal(err)
	}
	if x <= -1 || x >= 1 {
		t.Errorf("minimizer %g escaped the open interval", x)
	}
	if x < 0.999 {
		t.Errorf("minimizer %g did not approach the bound", x)
	}
}

func TestMinimizeScalarInadmissibleRegion(t *testing.T) {

	// A failure region left of -0.5 must not derail the search.
	f := func(x float64) (float64, error) {
		if x < -0.5 {
			return 0, fmt.Errorf("%w: trial failure", ErrSingularOperator)
		}
		return (x - 0.2) * (x - 0.2), nil
	}

	x, _, err := minimizeScalarBounded(f, -1, 1, 1e-7)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(x-0.2) > 1e-6 {
		t.Errorf("minimizer %g, want 0.2", x)
	}
}

func TestMinimizeScalarAllInadmissible(t *testing.T) {

	f := func(x float64) (float64, error) {
		return 0, fmt.Errorf("%w: trial failure", ErrSingularOperator)
	}

	_, _, err := minimizeScalarBounded(f, -1, 1, 1e-7)
	if !errors.Is(err, ErrSingularOperator) {
		t.Fail()
	}
}

func TestMinimizeScalarBadInterval(t *testing.T) {

	f := func(x float64) (float64, error) { return x * x, nil }

	if _, _, err := minimizeScalarBounded(f, 1, -1, 1e-7); !errors.Is(err, ErrNonConvergence) {
		t.Fail()
	}
}
