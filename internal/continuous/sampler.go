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

// Package continuous implements the continuous line-of-sight sampler
// (spec.md 4.2-4.4): a walker state of N+1 log-reddening-increment
// coordinates scored against a star image stack via the piecewise-linear
// line integral, driven by internal/ensemble's affine-invariant moves plus
// three reversible custom moves tailored to the coordinate geometry.
package continuous

import (
	"math"

	"github.com/mlnoga/dustlos/internal/grid"
	"github.com/mlnoga/dustlos/internal/image"
	"github.com/mlnoga/dustlos/internal/lineint"
	"github.com/mlnoga/dustlos/internal/numeric"
)

// PriorKind selects between spec.md 4.3's Prior A (skew-normal kernel,
// favoring small positive increments) and Prior B (a plain Gaussian
// penalty), the two interchangeable priors on each log-DeltaE coordinate.
type PriorKind int

const (
	PriorA PriorKind = iota
	PriorB
)

// Params configures a Sampler.
type Params struct {
	Grid  *grid.RectGrid
	Stack *image.ImageStack

	Prior      PriorKind
	PriorMu    float64
	PriorSigma float64
	AlphaSkew  float64 // Prior A's skew parameter

	SumPenaltyWeight float64 // penalizes sum(DeltaE) in excess of E_max

	LogDeltaEMin, LogDeltaEMax float64 // bounds on every coordinate
}

// Sampler scores a state x in R^(N+1) (log_DeltaE per bin break) against
// Params, implementing ensemble.Target.
type Sampler struct {
	P Params
	N int // number of bins; state has N+1 coordinates
}

// New builds a Sampler over nBins distance bins.
func New(p Params, nBins int) *Sampler {
	return &Sampler{P: p, N: nBins}
}

func (s *Sampler) Dim() int { return s.N + 1 }

// breakHeights converts a state of log-DeltaE coordinates into cumulative
// extinction heights y(0..N) via y_k = sum_{i<=k} exp(x_i).
func (s *Sampler) breakHeights(x []float64) []float64 {
	return CumulativeTransform(x)
}

// maxSubpixelS returns the largest per-star subpixel scale in the stack,
// the s_k the headroom bound below applies to: the star whose E-axis
// coordinate advances fastest per unit DeltaE is the one that can run off
// the top of the E grid first.
func (s *Sampler) maxSubpixelS() float64 {
	max := 0.0
	for _, star := range s.P.Stack.Stars {
		if star.SubpixelS > max {
			max = star.SubpixelS
		}
	}
	return max
}

// inBounds checks spec.md 4.3's per-coordinate range bound plus item 4's
// headroom bound: the cumulative extinction, scaled by the fastest-moving
// star's subpixel factor, must leave at least two E-bins of headroom below
// E_max, or the piecewise-linear kernel would be asked to interpolate past
// the edge of the grid for that star.
func (s *Sampler) inBounds(x []float64) bool {
	for _, xi := range x {
		if xi < s.P.LogDeltaEMin || xi > s.P.LogDeltaEMax {
			return false
		}
	}
	sum := 0.0
	for _, xi := range x {
		sum += math.Exp(xi)
	}
	headroom := s.P.Grid.Max[0] - sum*s.maxSubpixelS()
	return headroom >= 2*s.P.Grid.Step[0]
}

// logPrior evaluates the sum of per-coordinate priors plus the one-sided
// sum(DeltaE) penalty of spec.md 4.3 item 3: a quadratic cost, scaled by
// 0.2*E_max, that activates only once the cumulative reddening exceeds
// E_max -- profiles that stay under budget are not penalized at all.
func (s *Sampler) logPrior(x []float64) float64 {
	lp := 0.0
	sum := 0.0
	for _, xi := range x {
		sum += math.Exp(xi)
		switch s.P.Prior {
		case PriorA:
			z := (xi - s.P.PriorMu) / s.P.PriorSigma
			lp += numeric.SkewNormalLogKernel(z, s.P.AlphaSkew)
		default: // PriorB
			z := (xi - s.P.PriorMu) / s.P.PriorSigma
			lp += -0.5 * z * z
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

// softenedLogTerm evaluates spec.md 4.3 item 5's two-branch softened
// log-likelihood term log(I_k + p0/Z_k), where I_k is the (linear) line
// integral and p0/Z_k = exp(lnP0Z) the star's evidence floor. Whichever of
// the two is larger is factored out in log space before Log1pRatio folds
// in the other, which is what avoids the catastrophic cancellation a naive
// log(I_k + exp(lnP0Z)) would suffer when the two span six orders of
// magnitude.
func softenedLogTerm(I, lnP0Z float64) float64 {
	if I <= 0 {
		return lnP0Z
	}
	lnI := math.Log(I)
	if lnI >= lnP0Z {
		return lnI + numeric.Log1pRatio(math.Exp(lnP0Z-lnI))
	}
	return lnP0Z + numeric.Log1pRatio(math.Exp(lnI-lnP0Z))
}

// logLikelihood integrates the piecewise-linear line integral for state x
// and scores it against every star's posterior image, softened via
// softenedLogTerm so a single badly-fit star cannot produce -Inf for the
// whole walker.
func (s *Sampler) logLikelihood(x []float64) float64 {
	y := s.breakHeights(x)
	subpixelS := make([]float64, s.P.Stack.NStars())
	for i := range subpixelS {
		subpixelS[i] = s.P.Stack.Stars[i].SubpixelS
	}
	lineInt, err := lineint.PiecewiseLinear(s.P.Stack, y, subpixelS, s.P.Grid.Min[0], s.N)
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
func (s *Sampler) LogProb(x []float64) float64 {
	if !s.inBounds(x) {
		return numeric.NegInf
	}
	return s.logPrior(x) + s.logLikelihood(x)
}
