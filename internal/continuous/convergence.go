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

	"github.com/mlnoga/dustlos/internal/numeric"
)

// CumulativeTransform maps a log-DeltaE coordinate vector x to the
// monotone cumulative-extinction coordinates y_k = sum_{i<=k} exp(x_i),
// the same breakHeights map the sampler scores against. spec.md 4.8 calls
// for R-hat to run on this "linear-cumulative transform of log-DeltaE"
// rather than directly on the raw (non-monotone, sign-unconstrained)
// log-increments, since the cumulative heights are the commensurable,
// physically meaningful quantity (cumulative E(B-V) at each break) that
// chains actually need to agree on.
func CumulativeTransform(x []float64) []float64 {
	y := make([]float64, len(x))
	cum := 0.0
	for i, xi := range x {
		cum += math.Exp(xi)
		y[i] = cum
	}
	return y
}

// GelmanRubin computes the potential scale reduction factor R-hat for one
// coordinate across chains, each a slice of post-burn-in samples of equal
// length. Callers pass chains already run through CumulativeTransform and
// sliced down to a single coordinate, matching spec.md 4.8's "linear-
// cumulative transform of log-DeltaE" before the standard between/within
// variance comparison below.
func GelmanRubin(chains [][]float64) float64 {
	m := len(chains)
	if m < 2 {
		return 1.0
	}
	n := len(chains[0])
	if n < 2 {
		return 1.0
	}

	chainMeans := make([]float64, m)
	chainVars := make([]float64, m)
	for c, chain := range chains {
		mean, sd := numeric.MeanStdDev(chain)
		chainMeans[c] = mean
		chainVars[c] = sd * sd
	}
	grandMean, _ := numeric.MeanStdDev(chainMeans)

	wVar := 0.0
	for _, v := range chainVars {
		wVar += v
	}
	wVar /= float64(m)

	bVar := 0.0
	for _, cm := range chainMeans {
		d := cm - grandMean
		bVar += d * d
	}
	bVar *= float64(n) / float64(m-1)

	if wVar <= 0 {
		return 1.0
	}
	varPlus := (float64(n-1)/float64(n))*wVar + bVar/float64(n)
	return math.Sqrt(varPlus / wVar)
}

// MaxGelmanRubin applies CumulativeTransform to every sample of every
// chain, computes R-hat independently per coordinate of the transformed
// state, and returns the worst (largest) one -- the scalar spec.md 4.8
// compares against ConvergenceTarget, since every coordinate must have
// converged for the walker population as a whole to be considered mixed.
// chains is indexed [chain][sample], each sample a full state vector.
func MaxGelmanRubin(chains [][][]float64) float64 {
	if len(chains) == 0 || len(chains[0]) == 0 {
		return 1.0
	}
	dim := len(chains[0][0])
	worst := 1.0
	for d := 0; d < dim; d++ {
		perCoord := make([][]float64, len(chains))
		for c, chain := range chains {
			series := make([]float64, len(chain))
			for i, x := range chain {
				series[i] = CumulativeTransform(x)[d]
			}
			perCoord[c] = series
		}
		if r := GelmanRubin(perCoord); r > worst {
			worst = r
		}
	}
	return worst
}

// ConvergenceTarget is the R-hat threshold spec.md 4.8 requires before
// burn-in is considered complete.
const ConvergenceTarget = 1.25

// RunUntilConverged repeatedly calls advance(rounds) -- which should run
// that many additional sampling rounds and return, per chain, the history
// of full state vectors sampled -- doubling the round count each time the
// worst per-coordinate R-hat exceeds ConvergenceTarget, up to maxAttempts
// doublings.
func RunUntilConverged(maxAttempts int, initialRounds int, advance func(rounds int) [][][]float64) (rHat float64, converged bool) {
	rounds := initialRounds
	for attempt := 0; attempt < maxAttempts; attempt++ {
		chains := advance(rounds)
		rHat = MaxGelmanRubin(chains)
		if rHat <= ConvergenceTarget {
			return rHat, true
		}
		rounds *= 2
	}
	return rHat, false
}
