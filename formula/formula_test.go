package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/tdhoffman/spreg/weights"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := NewTable(
		[]string{"y", "x1", "x2"},
		[][]float64{
			{1, 2, 3},
			{4, 5, 6},
			{7, 8, 9},
		},
	)
	require.NoError(t, err)
	return tbl
}

func testWeights(t *testing.T) *weights.W {
	t.Helper()
	// A 3-unit chain: 0-1-2, row-standardized.
	w, err := weights.NewFromNeighbors([][]int{{1}, {0, 2}, {1}}, nil)
	require.NoError(t, err)
	w, err = w.RowStandardized()
	require.NoError(t, err)
	return w
}

func TestParseSpatialLagExpansion(t *testing.T) {

	tbl := testTable(t)
	w := testWeights(t)

	d, err := Parse("y ~ x1 + <x2>", tbl, w)
	require.NoError(t, err)

	// Exactly three columns, no intercept: x1, x2 and the lag of x2.
	assert.Equal(t, []string{"x1", "x2", "W_x2"}, d.Names)
	_, c := d.X.Dims()
	assert.Equal(t, 3, c)
	assert.False(t, d.LagY)
	assert.False(t, d.SpatialError)

	assert.Equal(t, "y", d.YName)
	assert.Equal(t, []float64{1, 2, 3}, d.Y)

	x2, _ := tbl.Column("x2")
	want := make([]float64, 3)
	w.MulVec(want, x2)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], d.X.At(i, 2), 1e-14)
		assert.Equal(t, x2[i], d.X.At(i, 1))
	}
}

func TestParseLagOfResponse(t *testing.T) {

	tbl := testTable(t)
	w := testWeights(t)

	d, err := Parse("y ~ x1 + <y + x2>", tbl, w)
	require.NoError(t, err)

	assert.True(t, d.LagY)
	// The response's lag is handled by the estimator, not the design
	// matrix: only x1, x2 and W_x2 appear.
	assert.Equal(t, []string{"x1", "x2", "W_x2"}, d.Names)
}

func TestParseSpatialError(t *testing.T) {

	tbl := testTable(t)
	w := testWeights(t)

	d, err := Parse("y ~ x1 + x2 + &", tbl, w)
	require.NoError(t, err)

	assert.True(t, d.SpatialError)
	assert.False(t, d.LagY)
	assert.Equal(t, []string{"x1", "x2"}, d.Names)
}

func TestParseUnbalancedBracket(t *testing.T) {

	tbl := testTable(t)
	w := testWeights(t)

	_, err := Parse("y ~ <x1", tbl, w)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y ~ x1>", tbl, w)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y ~ <<x1>>", tbl, w)
	require.ErrorIs(t, err, ErrParse)
}

func TestParseMalformed(t *testing.T) {

	tbl := testTable(t)

	_, err := Parse("a ~", tbl, nil)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y x1 + x2", tbl, nil)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y ~ x1 ~ x2", tbl, nil)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y ~ x1 + ", tbl, nil)
	require.ErrorIs(t, err, ErrParse)
}

func TestParseSpatialWithoutWeights(t *testing.T) {

	tbl := testTable(t)

	_, err := Parse("y ~ x1 + <x2>", tbl, nil)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y ~ x1 + &", tbl, nil)
	require.ErrorIs(t, err, ErrParse)
}

func TestParseComboUnsupported(t *testing.T) {

	tbl := testTable(t)
	w := testWeights(t)

	_, err := Parse("y ~ x1 + <y> + &", tbl, w)
	require.ErrorIs(t, err, ErrUnsupportedCombination)
}

func TestParseUnknownVariable(t *testing.T) {

	tbl := testTable(t)
	w := testWeights(t)

	_, err := Parse("z ~ x1", tbl, w)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y ~ q", tbl, w)
	require.ErrorIs(t, err, ErrParse)

	_, err = Parse("y ~ <q>", tbl, w)
	require.ErrorIs(t, err, ErrParse)
}

func TestParseAspatial(t *testing.T) {

	tbl := testTable(t)

	// No weights needed when no spatial terms appear.
	d, err := Parse("y ~ x1 + x2", tbl, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "x2"}, d.Names)
}

func TestParsePanelLag(t *testing.T) {

	// Columns spanning two periods are lagged block by block.
	tbl, err := NewTable(
		[]string{"y", "x1"},
		[][]float64{
			{1, 2, 3, 4, 5, 6},
			{1, 0, 0, 0, 0, 1},
		},
	)
	require.NoError(t, err)
	w := testWeights(t)

	d, err := Parse("y ~ <x1>", tbl, w)
	require.NoError(t, err)

	x1, _ := tbl.Column("x1")
	want := make([]float64, 6)
	for tau := 0; tau < 2; tau++ {
		w.MulVec(want[tau*3:tau*3+3], x1[tau*3:tau*3+3])
	}
	got := make([]float64, 6)
	mat.Col(got, 1, d.X)
	assert.InDeltaSlice(t, want, got, 1e-14)
}

func TestNewTableValidation(t *testing.T) {

	_, err := NewTable([]string{"a"}, [][]float64{{1}, {2}})
	require.Error(t, err)

	_, err = NewTable([]string{"a", "a"}, [][]float64{{1}, {2}})
	require.Error(t, err)

	_, err = NewTable([]string{"a", "b"}, [][]float64{{1, 2}, {3}})
	require.Error(t, err)
}
