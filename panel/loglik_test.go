package panel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"

	"github.com/tdhoffman/spreg/weights"
)

func TestConcLogLikZeroRho(t *testing.T) {

	// At rho = 0 the log-Jacobian vanishes and the objective reduces to
	// the pure concentration term (nt/2)*ln(e0'e0/nt).
	w, err := weights.Lattice(3, 3, false).RowStandardized()
	if err != nil {
		t.Fatal(err)
	}
	n, tp := w.N(), 2
	nt := float64(n * tp)

	e0 := randomVector(n*tp, 5)
	e1 := randomVector(n*tp, 6)

	cll := newConcLogLik(n, tp, e0, e1, w)
	got, err := cll.eval(0)
	if err != nil {
		t.Fatal(err)
	}

	want := (nt / 2.0) * math.Log(floats.Dot(e0, e0)/nt)
	if math.Abs(got-want) > 1e-10 {
		t.Errorf("objective at rho=0 is %g, want %g", got, want)
	}
}

func TestConcLogLikJacobian(t *testing.T) {

	// For a diagonal-free W with known spectrum the log-Jacobian is
	// checkable in closed form.  W = [[0, 1], [1, 0]] has eigenvalues
	// -1 and 1, so det(I - rho*W) = 1 - rho^2.
	w, err := weights.NewFromNeighbors([][]int{{1}, {0}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, tp := 2, 3
	nt := float64(n * tp)

	e0 := []float64{1, 2, 3, 4, 5, 6}
	e1 := []float64{0, 0, 0, 0, 0, 0}

	cll := newConcLogLik(n, tp, e0, e1, w)

	rho := 0.5
	got, err := cll.eval(rho)
	if err != nil {
		t.Fatal(err)
	}

	conc := (nt / 2.0) * math.Log(floats.Dot(e0, e0)/nt)
	jacob := float64(tp) * math.Log(1-rho*rho)
	if math.Abs(got-(conc-jacob)) > 1e-10 {
		t.Fail()
	}
}

func TestConcLogLikSingularTrial(t *testing.T) {

	// With W = [[0, 1], [1, 0]], I - rho*W is singular at rho = 1 and
	// the trial must fail rather than return an infinite value.
	w, err := weights.NewFromNeighbors([][]int{{1}, {0}}, nil)
	if err != nil {
		t.Fatal(err)
	}

	e0 := []float64{1, 2}
	e1 := []float64{0, 0}
	cll := newConcLogLik(2, 1, e0, e1, w)

	if _, err := cll.eval(1); err == nil {
		t.Fail()
	}
}
