package spreg

import (
	"math"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestBaseResults(t *testing.T) {

	params := []float64{2, -1}
	xnames := []string{"x1", "W_y"}
	vcov := []float64{
		4, 1,
		1, 9,
	}

	r := NewBaseResults(-12.5, params, xnames, vcov)

	if r.LogLike() != -12.5 {
		t.Fail()
	}
	if !floats.Equal(r.Params(), params) {
		t.Fail()
	}

	if !floats.EqualApprox(r.StdErr(), []float64{2, 3}, 1e-14) {
		t.Fail()
	}
	if !floats.EqualApprox(r.ZScores(), []float64{1, -1.0 / 3}, 1e-14) {
		t.Fail()
	}

	// P-value of a Z-score of 1 is 2*(1 - Phi(1)).
	pv := r.PValues()
	if math.Abs(pv[0]-0.3173105) > 1e-6 {
		t.Errorf("p-value %g", pv[0])
	}
}

func TestBaseResultsNoVCov(t *testing.T) {

	r := NewBaseResults(0, []float64{1}, []string{"x"}, nil)

	if r.StdErr() != nil || r.ZScores() != nil || r.PValues() != nil {
		t.Fail()
	}
}

func TestSummaryTable(t *testing.T) {

	s := &SummaryTable{
		Title:    "Test model",
		Top:      []string{"Num obs: 10", "Rho: 0.5"},
		ColNames: []string{"Variable   ", "Parameter"},
		ColFmt:   []Fmter{StringFmt, NumberFmt},
		Cols: []interface{}{
			[]string{"x1", "x2"},
			[]float64{1.5, -2.25},
		},
		Msg: []string{"note"},
	}

	out := s.String()
	for _, frag := range []string{"Test model", "x1", "1.5000", "-2.2500", "note", "Rho: 0.5"} {
		if !strings.Contains(out, frag) {
			t.Errorf("summary missing %q", frag)
		}
	}
}
