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

// Package discrete implements the discrete line-of-sight sampler (spec.md
// 4.7): one parallel-tempered chain per pixel over an integer E-bin index
// per distance column, advanced by incremental line-integral deltas
// (internal/lineint), swapped between temperatures via the four-cross
// acceptance formula, and periodically recalculated from scratch to
// correct accumulated floating-point drift.
package discrete

import (
	"math"

	"github.com/mlnoga/dustlos/internal/image"
	"github.com/mlnoga/dustlos/internal/lineint"
	"github.com/mlnoga/dustlos/internal/numeric"
	"github.com/mlnoga/dustlos/internal/prior"
)

// State is one temperature's full working state in the PT ladder.
type State struct {
	Y            []int32   // E-bin index per distance column
	LineInt      []float64 // per-star accumulated log-density sum
	LogLike      float64   // softened total log-likelihood
	LogPrior     float64   // sum of PriorImage entries along Y
	ShapePenalty float64   // negative-DeltaE-step penalty, annealed via SigmaDy
	Beta         float64   // this temperature's inverse temperature
	ShiftWeight  float64   // this temperature's neighbor-coupling tempering
	Neighbors    []int     // neighbor-choice vector used to build Prior
	Prior        *prior.Image
	SigmaDy      float64 // shape-penalty scale, annealed from soft to hard over burn-in
}

// LogPosterior returns Beta*(LogLike + LogPrior) + ShapePenalty, the PT
// chain's stationary target at this temperature.
func (s *State) LogPosterior() float64 {
	return s.Beta*(s.LogLike+s.LogPrior) + s.ShapePenalty
}

// softenedLogLike recomputes the total softened log-likelihood from
// lineInt and the stack's per-star evidence LnZ, per spec.md 4.3 item 5's
// log(I_k + p0_k) softening (reused for the discrete sampler, resolving
// spec.md 9's open question on whether the discrete likelihood should
// soften too). The softening scale is fixed at 1 -- it is not the
// annealed quantity; SigmaDy anneals the shape_penalty constraint below,
// a distinct term spec.md 4.7 ramps separately.
func softenedLogLike(lineInt []float64, stack *image.ImageStack) float64 {
	total := 0.0
	for i, v := range lineInt {
		total += numeric.LogSumExp([]float64{v, stack.Stars[i].LnZ})
	}
	return total
}

// negativeStepTerm returns the magnitude of a negative DeltaE step between
// adjacent columns a, b (a's E-bin index followed by b's), or 0 if the
// step is non-negative. E-bin index stands in for cumulative extinction,
// which must not decrease with distance (spec.md 4.7's shape constraint).
func negativeStepTerm(a, b int32) float64 {
	if a > b {
		return float64(a - b)
	}
	return 0
}

// shapePenalty sums the negative-step penalty across all adjacent column
// pairs of y, scaled by 1/sigmaDy: a small sigmaDy (late in the anneal)
// makes any negative step sharply costly, while a larger sigmaDy (early
// in the anneal) tolerates a rough initial profile.
func shapePenalty(y []int32, sigmaDy float64) float64 {
	if sigmaDy <= 0 {
		return 0
	}
	sum := 0.0
	for d := 0; d+1 < len(y); d++ {
		sum += negativeStepTerm(y[d], y[d+1])
	}
	return -sum / sigmaDy
}

// shapePenaltyDelta recomputes shapePenalty's change restricted to the
// adjacent-column pairs touching touchedCols, letting proposals apply it
// incrementally instead of rescanning the whole chain.
func shapePenaltyDelta(y []int32, touchedCols, newVals []int32, sigmaDy float64) float64 {
	if sigmaDy <= 0 || len(touchedCols) == 0 {
		return 0
	}
	lo, hi := touchedCols[0], touchedCols[0]
	for _, c := range touchedCols {
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	at := func(col int32) int32 {
		for i, c := range touchedCols {
			if c == col {
				return newVals[i]
			}
		}
		return y[col]
	}
	n := int32(len(y))
	oldSum, newSum := 0.0, 0.0
	for d := lo - 1; d <= hi; d++ {
		if d < 0 || d+1 >= n {
			continue
		}
		oldSum += negativeStepTerm(y[d], y[d+1])
		newSum += negativeStepTerm(at(d), at(d+1))
	}
	return -(newSum - oldSum) / sigmaDy
}

// logPriorOf sums a PriorImage's entries along y.
func logPriorOf(p *prior.Image, y []int32) float64 {
	sum := 0.0
	for d, yd := range y {
		sum += p.At(yd, d)
	}
	return sum
}

// NewState builds a State from an initial Y, fully recomputing the line
// integral, likelihood, prior and shape penalty from scratch. sigmaDy is
// the shape-constraint anneal scale (internal/discrete/anneal.go), not a
// likelihood-softening temperature.
func NewState(stack *image.ImageStack, y []int32, beta, shiftWeight, sigmaDy float64, neighbors []int, pr *prior.Image) *State {
	lineInt := lineint.Discrete(stack, y)
	return &State{
		Y: append([]int32(nil), y...), LineInt: lineInt,
		LogLike:      softenedLogLike(lineInt, stack),
		LogPrior:     logPriorOf(pr, y),
		ShapePenalty: shapePenalty(y, sigmaDy),
		Beta:         beta, ShiftWeight: shiftWeight, Neighbors: neighbors, Prior: pr, SigmaDy: sigmaDy,
	}
}

// Recalculate fully recomputes LineInt, LogLike and ShapePenalty from Y,
// correcting any drift accumulated through repeated incremental Apply
// calls (spec.md 4.7's recalculate_every safeguard).
func (s *State) Recalculate(stack *image.ImageStack) {
	s.LineInt = lineint.Discrete(stack, s.Y)
	s.LogLike = softenedLogLike(s.LineInt, stack)
	s.ShapePenalty = shapePenalty(s.Y, s.SigmaDy)
}

// applyDelta updates LineInt incrementally with delta (a per-star raw
// log-density delta from internal/lineint) and returns the resulting
// change in the softened total log-likelihood, using the closed-form
// per-star update at a fixed softening scale of 1
//
//	new_g - old_g = log1p( exp(v-m)*(exp(delta)-1) / (exp(v-m)+exp(z-m)) )
//
// with m = max(v, z) subtracted for overflow safety, which follows
// directly from exp(v+delta) = exp(v)*exp(delta).
func (s *State) applyDelta(stack *image.ImageStack, delta []float64) float64 {
	dLogLike := 0.0
	for i, d := range delta {
		v := s.LineInt[i]
		z := stack.Stars[i].LnZ
		m := math.Max(v, z)
		oldSum := math.Exp(v-m) + math.Exp(z-m)
		r := math.Exp(v-m) * (math.Exp(d) - 1) / oldSum
		dLogLike += numeric.Log1pRatio(r)
	}
	lineint.Apply(s.LineInt, delta)
	s.LogLike += dLogLike
	return dLogLike
}
