//go:build ignore
// +build ignore

/*
This simulation generates panel data from a fixed effects spatial lag model
on a row-standardized queen lattice, fits the model by maximum likelihood,
and reports how the estimates concentrate around the generating values as
the panel grows.
*/

package main

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tdhoffman/spreg/panel"
	"github.com/tdhoffman/spreg/weights"
)

func simulate(w *weights.W, tp int, rho float64, beta []float64, seed uint64) ([]float64, *mat.Dense) {

	n := w.N()
	k := len(beta)

	rng := rand.NewSource(seed)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	x := mat.NewDense(n*tp, k, nil)
	for i := 0; i < n*tp; i++ {
		for j := 0; j < k; j++ {
			x.Set(i, j, norm.Rand())
		}
	}

	mu := make([]float64, n)
	for i := range mu {
		mu[i] = 2 * norm.Rand()
	}

	a := mat.NewDense(n, n, nil)
	a.Scale(-rho, w.Dense())
	for i := 0; i < n; i++ {
		a.Set(i, i, a.At(i, i)+1)
	}
	var lu mat.LU
	lu.Factorize(a)

	y := make([]float64, n*tp)
	v := make([]float64, n)
	for tau := 0; tau < tp; tau++ {
		off := tau * n
		for i := 0; i < n; i++ {
			v[i] = mu[i] + 0.5*norm.Rand()
			for j := 0; j < k; j++ {
				v[i] += x.At(off+i, j) * beta[j]
			}
		}
		sol := mat.NewVecDense(n, y[off:off+n])
		if err := lu.SolveVecTo(sol, false, mat.NewVecDense(n, v)); err != nil {
			panic(err)
		}
	}

	return y, x
}

func main() {

	rho := 0.4
	beta := []float64{1.0, -2.0}

	for _, side := range []int{7, 15, 30} {

		w, err := weights.Lattice(side, side, true).RowStandardized()
		if err != nil {
			panic(err)
		}

		tp := 5
		y, x := simulate(w, tp, rho, beta, 4523745)

		model := panel.NewFELag(y, x, w).Names("y", []string{"x1", "x2"}).Done()
		rslt, err := model.Fit()
		if err != nil {
			panic(err)
		}

		fmt.Printf("n=%d t=%d\n\n", w.N(), tp)
		fmt.Printf("%v\n", rslt.Summary())
		fmt.Printf("rho: %.4f (true %.1f)\n\n", rslt.Rho(), rho)
	}
}
