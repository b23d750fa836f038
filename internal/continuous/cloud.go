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

	"github.com/mlnoga/dustlos/internal/grid"
	"github.com/mlnoga/dustlos/internal/image"
	"github.com/mlnoga/dustlos/internal/lineint"
	"github.com/mlnoga/dustlos/internal/numeric"
)

// CloudParams configures a CloudSampler.
type CloudParams struct {
	Grid  *grid.RectGrid
	Stack *image.ImageStack

	NClouds int     // number of discrete reddening clouds
	MuMin   float64 // lower bound on the first cloud's position (Delta_mu_1 >= MuMin)

	RepulsionWeight float64 // coefficient of the 1/Delta_mu repulsive term between clouds

	Prior      PriorKind
	PriorMu    float64
	PriorSigma float64
	AlphaSkew  float64

	SumPenaltyWeight float64 // one-sided penalty once cumulative DeltaE exceeds E_max
}

// CloudSampler scores a state x in R^(2*NClouds) against CloudParams,
// implementing ensemble.Target. This is spec.md 4.4's alternate
// parametrization of the continuous sampler: rather than N fixed distance
// bins each carrying its own log-DeltaE coordinate, the line of sight is
// modeled as a handful of discrete clouds at a priori unknown positions,
// each contributing one reddening jump. x is laid out interleaved as
// (Delta_mu_1, logDeltaE_1, Delta_mu_2, logDeltaE_2, ...): Delta_mu_1 is
// the first cloud's absolute position, and every subsequent Delta_mu_i is
// the positive gap to the previous cloud, so positions are recovered as a
// running cumulative sum.
type CloudSampler struct {
	P CloudParams
}

// NewCloud builds a CloudSampler.
func NewCloud(p CloudParams) *CloudSampler { return &CloudSampler{P: p} }

func (s *CloudSampler) Dim() int { return 2 * s.P.NClouds }

func deltaMuAt(x []float64, i int) float64   { return x[2*i] }
func logDeltaEAt(x []float64, i int) float64 { return x[2*i+1] }

// positionsAndHeights converts x into cumulative absolute positions
// mu_1 < mu_2 < ... < mu_NClouds and cumulative reddening heights
// E_1 < E_2 < ... < E_NClouds (spec.md 4.4): mu_i = sum_{j<=i} Delta_mu_j,
// E_i = sum_{j<=i} exp(logDeltaE_j).
func (s *CloudSampler) positionsAndHeights(x []float64) (positions, heights []float64) {
	n := s.P.NClouds
	positions = make([]float64, n)
	heights = make([]float64, n)
	muCum, eCum := 0.0, 0.0
	for i := 0; i < n; i++ {
		muCum += deltaMuAt(x, i)
		eCum += math.Exp(logDeltaEAt(x, i))
		positions[i] = muCum
		heights[i] = eCum
	}
	return positions, heights
}

// inBounds enforces spec.md 4.4's Delta_mu_i > 0 for every cloud,
// Delta_mu_1 >= MuMin for the first, and keeps the last cloud's position
// on the mu grid so the piecewise-constant sweep below has something to
// integrate against.
func (s *CloudSampler) inBounds(x []float64) bool {
	n := s.P.NClouds
	if n == 0 {
		return false
	}
	if deltaMuAt(x, 0) < s.P.MuMin {
		return false
	}
	for i := 0; i < n; i++ {
		if deltaMuAt(x, i) <= 0 {
			return false
		}
	}
	positions, _ := s.positionsAndHeights(x)
	return positions[n-1] <= s.P.Grid.Max[1]
}

// logPrior combines each cloud's log-DeltaE prior (the same Prior A/B
// kernel the main continuous sampler uses), the repulsive 1/Delta_mu term
// that keeps clouds from coalescing onto the same position, and the
// one-sided excess-sum penalty shared with Sampler.logPrior.
func (s *CloudSampler) logPrior(x []float64) float64 {
	n := s.P.NClouds
	lp := 0.0
	sum := 0.0
	for i := 0; i < n; i++ {
		le := logDeltaEAt(x, i)
		sum += math.Exp(le)
		switch s.P.Prior {
		case PriorA:
			z := (le - s.P.PriorMu) / s.P.PriorSigma
			lp += numeric.SkewNormalLogKernel(z, s.P.AlphaSkew)
		default: // PriorB
			z := (le - s.P.PriorMu) / s.P.PriorSigma
			lp += -0.5 * z * z
		}
		if i > 0 && s.P.RepulsionWeight > 0 {
			lp -= s.P.RepulsionWeight / deltaMuAt(x, i)
		}
	}
	eMax := s.P.Grid.Max[0]
	if sum > eMax {
		weight := s.P.SumPenaltyWeight
		if weight <= 0 {
			weight = 1
		}
		d := (sum - eMax) / (0.2 * eMax)
		lp -= weight * d * d
	}
	return lp
}

// breakHeights builds the NMu+1 cumulative-extinction values at every
// mu-column boundary for the piecewise-constant cloud profile (spec.md
// 4.4): zero before the first cloud, then holding each cloud's cumulative
// height once its position is reached. Feeding this into
// lineint.PiecewiseLinear with one run per column (N=NMu) reuses that
// kernel's existing per-run linear ramp to get exactly the intended
// behavior for free: flat within every column with no cloud transition,
// and a single linear ramp across whichever column a transition falls in
// -- spec.md 4.4's "inside each run linear interpolation on E".
func (s *CloudSampler) breakHeights(positions, heights []float64) []float64 {
	nMu := int(s.P.Stack.NMu)
	step := s.P.Grid.Step[1]
	muMin := s.P.Grid.Min[1]
	out := make([]float64, nMu+1)
	cloud := 0
	e := 0.0
	for c := 0; c <= nMu; c++ {
		mu := muMin + float64(c)*step
		for cloud < len(positions) && mu >= positions[cloud] {
			e = heights[cloud]
			cloud++
		}
		out[c] = e
	}
	return out
}

// logLikelihood integrates the piecewise-constant cloud profile against
// every star's posterior image, softened identically to the main
// continuous sampler's likelihood (spec.md 4.4: "otherwise identical
// likelihood softening").
func (s *CloudSampler) logLikelihood(x []float64) float64 {
	positions, heights := s.positionsAndHeights(x)
	y := s.breakHeights(positions, heights)
	subpixelS := make([]float64, s.P.Stack.NStars())
	for i := range subpixelS {
		subpixelS[i] = s.P.Stack.Stars[i].SubpixelS
	}
	lineInt, err := lineint.PiecewiseLinear(s.P.Stack, y, subpixelS, s.P.Grid.Min[0], int(s.P.Stack.NMu))
	if err != nil {
		return numeric.NegInf
	}
	ll := 0.0
	for i, v := range lineInt {
		ll += softenedLogTerm(v, s.P.Stack.Stars[i].LnZ)
	}
	return ll
}

// LogProb implements ensemble.Target.
func (s *CloudSampler) LogProb(x []float64) float64 {
	if !s.inBounds(x) {
		return numeric.NegInf
	}
	return s.logPrior(x) + s.logLikelihood(x)
}
