// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package continuous

import (
	"math"

	"github.com/valyala/fastrand"
	"gonum.org/v1/gonum/mat"
)

// GenFromGuess draws nWalkers initial positions by jittering guess with
// correlated noise whose covariance decays exponentially with coordinate
// distance, Cov[i,j] = sigma^2 * rho^|i-j| (spec.md 4.3's seeding scheme):
// neighboring log-DeltaE bins start out correlated, which keeps the
// initial ensemble spread roughly consistent with the piecewise-linear
// line integral's own smoothness.
func GenFromGuess(guess []float64, sigma, rho float64, nWalkers int) [][]float64 {
	n := len(guess)
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			cov.SetSym(i, j, sigma*sigma*math.Pow(rho, math.Abs(float64(i-j))))
		}
	}
	var chol mat.Cholesky
	sqrtCov := mat.NewDense(n, n, nil)
	if ok := chol.Factorize(cov); ok {
		var l mat.TriDense
		chol.LTo(&l)
		sqrtCov.Copy(&l)
	} else {
		// fall back to uncorrelated jitter if the requested rho/sigma are
		// not positive-definite at this dimension
		for i := 0; i < n; i++ {
			sqrtCov.Set(i, i, sigma)
		}
	}

	var rng fastrand.RNG
	gaussian := func() float64 {
		u1 := float64(rng.Uint32()) / float64(1<<32)
		if u1 <= 0 {
			u1 = 1e-12
		}
		u2 := float64(rng.Uint32()) / float64(1<<32)
		return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	}

	out := make([][]float64, nWalkers)
	z := make([]float64, n)
	jitter := make([]float64, n)
	for w := 0; w < nWalkers; w++ {
		for i := range z {
			z[i] = gaussian()
		}
		for i := 0; i < n; i++ {
			sum := 0.0
			for j := 0; j <= i; j++ {
				sum += sqrtCov.At(i, j) * z[j]
			}
			jitter[i] = sum
		}
		x := make([]float64, n)
		for i := range x {
			x[i] = guess[i] + jitter[i]
		}
		out[w] = x
	}
	return out
}
