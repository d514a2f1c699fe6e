// Package formula compiles spatial model formulas into numeric response and
// design matrices.
//
// The formula grammar is "response ~ term + term + ...", with two spatial
// extensions: enclosing terms in angle brackets denotes their spatial lags
// (the term and its lag both enter the design matrix, and enclosing the
// response requests a spatial lag model), and a bare "&" term requests a
// spatial error component.  No intercept column is added; the downstream
// estimators add or absorb constants themselves.
package formula

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/tdhoffman/spreg/weights"
)

// Error kinds reported before any numeric work begins.
var (
	// ErrParse indicates a malformed formula: too short, unbalanced
	// spatial-lag brackets, unknown variables, or spatial terms requested
	// without a weights matrix.
	ErrParse = errors.New("formula: parse error")

	// ErrUnsupportedCombination indicates a model the estimators do not
	// support, such as a simultaneous lag-and-error request.
	ErrUnsupportedCombination = errors.New("formula: unsupported model combination")
)

// Table is a named collection of numeric columns of equal length.
type Table struct {
	names []string
	cols  [][]float64
}

// NewTable returns a table over the given columns.  All columns must have
// the same length, and names must be unique.
func NewTable(names []string, cols [][]float64) (*Table, error) {
	if len(names) != len(cols) {
		return nil, fmt.Errorf("formula: %d names for %d columns", len(names), len(cols))
	}
	seen := make(map[string]bool)
	for j, na := range names {
		if seen[na] {
			return nil, fmt.Errorf("formula: duplicate column name %q", na)
		}
		seen[na] = true
		if len(cols[j]) != len(cols[0]) {
			return nil, fmt.Errorf("formula: column %q has length %d, expected %d",
				na, len(cols[j]), len(cols[0]))
		}
	}
	return &Table{names: names, cols: cols}, nil
}

// Column returns the named column and whether it exists.
func (t *Table) Column(name string) ([]float64, bool) {
	for j, na := range t.names {
		if na == name {
			return t.cols[j], true
		}
	}
	return nil, false
}

// NumObs returns the number of rows in the table.
func (t *Table) NumObs() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

// Design holds the compiled response and design matrices for a formula.
type Design struct {

	// Name and values of the response.
	YName string
	Y     []float64

	// Names of the design matrix columns, in order.  Spatial lag columns
	// are named after the field they lag with a "W_" prefix.
	Names []string

	// Design matrix, one column per name, no intercept.
	X *mat.Dense

	// LagY is true if the formula requested a spatial lag of the
	// response (a spatial lag model).
	LagY bool

	// SpatialError is true if the formula requested a spatial error
	// component.
	SpatialError bool
}

// Parse compiles a spatial formula against the table into a Design.  The
// weights matrix may be nil for purely aspatial formulas; any spatial term
// then fails with ErrParse.  All failures occur before any numeric work.
func Parse(f string, tbl *Table, w *weights.W) (*Design, error) {
	// Minimum formula size is 5, e.g. "a ~ b".
	if len(f) < 5 {
		return nil, fmt.Errorf("%w: malformed formula string %q", ErrParse, f)
	}
	if strings.Count(f, "~") != 1 {
		return nil, fmt.Errorf("%w: formula must contain exactly one '~'", ErrParse)
	}

	sides := strings.SplitN(f, "~", 2)
	yname := strings.TrimSpace(sides[0])
	if yname == "" {
		return nil, fmt.Errorf("%w: empty response", ErrParse)
	}

	terms, err := splitTerms(sides[1])
	if err != nil {
		return nil, err
	}

	var (
		lagY         bool
		errModel     bool
		spatialModel bool
		names        []string
		lagOf        []string // "" for plain columns, the lagged field otherwise
	)

	for _, term := range terms {
		switch {
		case term == "&":
			errModel = true
			spatialModel = true

		case strings.HasPrefix(term, "<"):
			// A spatial lag group: every field enters along with its
			// lag, except the response, which flags a lag model.
			spatialModel = true
			inner := strings.TrimSuffix(strings.TrimPrefix(term, "<"), ">")
			var fields []string
			for _, fd := range strings.Split(inner, "+") {
				fd = strings.TrimSpace(fd)
				if fd == "" {
					return nil, fmt.Errorf("%w: empty term in spatial lag group", ErrParse)
				}
				if fd == yname {
					lagY = true
					continue
				}
				fields = append(fields, fd)
			}
			for _, fd := range fields {
				names = append(names, fd)
				lagOf = append(lagOf, "")
			}
			for _, fd := range fields {
				names = append(names, "W_"+fd)
				lagOf = append(lagOf, fd)
			}

		default:
			names = append(names, term)
			lagOf = append(lagOf, "")
		}
	}

	if spatialModel && w == nil {
		return nil, fmt.Errorf("%w: spatial terms requested but no weights matrix provided", ErrParse)
	}
	if lagY && errModel {
		return nil, fmt.Errorf("%w: simultaneous spatial lag of the response and spatial error", ErrUnsupportedCombination)
	}

	y, ok := tbl.Column(yname)
	if !ok {
		return nil, fmt.Errorf("%w: unknown variable %q", ErrParse, yname)
	}

	nobs := tbl.NumObs()
	x := mat.NewDense(nobs, len(names), nil)
	for j, na := range names {
		src := na
		if lagOf[j] != "" {
			src = lagOf[j]
		}
		col, ok := tbl.Column(src)
		if !ok {
			return nil, fmt.Errorf("%w: unknown variable %q", ErrParse, src)
		}
		if lagOf[j] != "" {
			lag, err := spatialLag(w, col)
			if err != nil {
				return nil, err
			}
			x.SetCol(j, lag)
		} else {
			x.SetCol(j, col)
		}
	}

	return &Design{
		YName:        yname,
		Y:            y,
		Names:        names,
		X:            x,
		LagY:         lagY,
		SpatialError: errModel,
	}, nil
}

// splitTerms splits the right-hand side of a formula on '+' outside of
// angle brackets, validating bracket balance.
func splitTerms(rhs string) ([]string, error) {
	var terms []string
	depth := 0
	var cur strings.Builder

	for _, r := range rhs {
		switch r {
		case '<':
			depth++
			if depth > 1 {
				return nil, fmt.Errorf("%w: nested spatial lag brackets", ErrParse)
			}
			cur.WriteRune(r)
		case '>':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("%w: mismatched angle brackets", ErrParse)
			}
			cur.WriteRune(r)
		case '+':
			if depth > 0 {
				cur.WriteRune(r)
			} else {
				terms = append(terms, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("%w: mismatched angle brackets", ErrParse)
	}
	terms = append(terms, cur.String())

	out := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			return nil, fmt.Errorf("%w: empty term", ErrParse)
		}
		out = append(out, term)
	}
	return out, nil
}

// spatialLag applies the weights matrix to a column.  Columns spanning
// multiple time periods are lagged block by block.
func spatialLag(w *weights.W, col []float64) ([]float64, error) {
	n := w.N()
	if len(col)%n != 0 {
		return nil, fmt.Errorf("%w: column length %d is not a multiple of the %d weights units",
			ErrParse, len(col), n)
	}
	t := len(col) / n

	out := make([]float64, len(col))
	for tau := 0; tau < t; tau++ {
		off := tau * n
		w.MulVec(out[off:off+n], col[off:off+n])
	}
	return out, nil
}
