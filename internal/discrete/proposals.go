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

package discrete

import (
	"math"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/dustlos/internal/image"
	"github.com/mlnoga/dustlos/internal/lineint"
)

// Kind enumerates the six proposal families of spec.md 4.7, in weight
// order: step and swap are drawn four times as often as each of the four
// shift variants.
type Kind int

const (
	Step Kind = iota
	Swap
	ShiftRight
	ShiftLeft
	ShiftAbsRight
	ShiftAbsLeft
)

// kindWeights mirrors spec.md 4.7's [4,4,1,1,1,1]/12 proposal mix.
var kindWeights = [6]int{4, 4, 1, 1, 1, 1}

// Proposer drives proposal selection and the Metropolis accept/reject
// cycle for one State.
type Proposer struct {
	Stack *image.ImageStack
	rng   fastrand.RNG

	scratch []float64 // reused per-star delta buffer
}

// NewProposer allocates a Proposer sized to stack's star count.
func NewProposer(stack *image.ImageStack) *Proposer {
	return &Proposer{Stack: stack, scratch: make([]float64, stack.NStars())}
}

func (p *Proposer) uniform01() float64 { return float64(p.rng.Uint32()) / float64(1<<32) }

func (p *Proposer) drawKind() Kind {
	total := 0
	for _, w := range kindWeights {
		total += w
	}
	draw := int(p.rng.Uint32()) % total
	cum := 0
	for k, w := range kindWeights {
		cum += w
		if draw < cum {
			return Kind(k)
		}
	}
	return ShiftAbsLeft
}

// Step runs one Metropolis proposal against s, selecting a proposal kind
// at random and accepting or rejecting per the PT chain's local target
// Beta*(LogLike + LogPrior) + ShapePenalty. Returns whether the proposal was
// accepted.
func (p *Proposer) Step(s *State) bool {
	nDists := len(s.Y)
	if nDists == 0 {
		return false
	}
	nE := p.Stack.NE

	kind := p.drawKind()
	switch kind {
	case Step:
		x := int32(p.rng.Uint32() % uint32(nDists))
		yOld := s.Y[x]
		yNew := yOld + int32(p.rng.Uint32()%3) - 1 // {-1,0,+1}
		if yNew == yOld || !lineint.Valid(nE, yNew) {
			return false
		}
		lineint.StepDelta(p.Stack, x, yOld, yNew, p.scratch)
		return p.tryApply(s, func() { s.Y[x] = yNew }, []int32{x}, []int32{yNew}, 0)

	case Swap:
		if nDists < 2 {
			return false
		}
		x := int32(p.rng.Uint32() % uint32(nDists-1))
		yx, yx1 := s.Y[x], s.Y[x+1]
		if yx == yx1 {
			return false
		}
		lineint.SwapDelta(p.Stack, x, yx, yx1, p.scratch)
		return p.tryApply(s, func() { s.Y[x], s.Y[x+1] = yx1, yx }, []int32{x, x + 1}, []int32{yx1, yx}, 0)

	case ShiftRight, ShiftLeft, ShiftAbsRight, ShiftAbsLeft:
		return p.shiftStep(s, kind, nDists, nE)
	}
	return false
}

// shiftStep implements the four shift variants, dispatching on the kind
// already drawn by Step (redrawing here would both ignore the outer
// selection and skew the shift sub-mix, since drawKind can itself return
// Step/Swap, which used to fall through to the ShiftAbsLeft case by
// default). ShiftRight/ShiftLeft move a small fixed-size window [x, x+w)
// by +-1. The two "abs" variants displace every column from a random cut
// point to the chain's near or far end by a magnitude dy drawn from an
// exponential distribution with mean equal to the chain's current mean
// E-bin index (spec.md 4.7's "shift_abs" jump), truncated so it cannot
// exceed the E-axis range; the asymmetry of that draw is corrected with
// an explicit log-proposal factor in tryApply.
func (p *Proposer) shiftStep(s *State, kind Kind, nDists int, nE int32) bool {
	const windowSize = 3
	x := int32(p.rng.Uint32() % uint32(nDists))

	var loCol, hiCol int32
	var dy int32
	var logProposalFactor float64
	switch kind {
	case ShiftRight:
		loCol, hiCol, dy = x, minI32(x+windowSize, int32(nDists)), 1
	case ShiftLeft:
		loCol, hiCol, dy = x, minI32(x+windowSize, int32(nDists)), -1
	case ShiftAbsRight, ShiftAbsLeft:
		if kind == ShiftAbsRight {
			loCol, hiCol = x, int32(nDists)
		} else {
			loCol, hiCol = 0, x
		}
		ybar := meanY(s.Y)
		if ybar < 1 {
			ybar = 1
		}
		lambda := 1.0 / ybar
		draw := p.exponentialDraw(lambda)
		mag := int32(math.Round(draw))
		if mag < 1 {
			mag = 1
		}
		if mag >= nE {
			mag = nE - 1
		}
		if kind == ShiftAbsRight {
			dy = mag
		} else {
			dy = -mag
		}
		logProposalFactor = lambda * draw
	}
	if loCol >= hiCol {
		return false
	}
	for col := loCol; col < hiCol; col++ {
		if !lineint.Valid(nE, s.Y[col]+dy) {
			return false
		}
	}

	lineint.ShiftDelta(p.Stack, loCol, hiCol, s.Y, dy, p.scratch)
	touchedCols := make([]int32, 0, hiCol-loCol)
	touchedVals := make([]int32, 0, hiCol-loCol)
	for col := loCol; col < hiCol; col++ {
		touchedCols = append(touchedCols, col)
		touchedVals = append(touchedVals, s.Y[col]+dy)
	}
	return p.tryApply(s, func() {
		for col := loCol; col < hiCol; col++ {
			s.Y[col] += dy
		}
	}, touchedCols, touchedVals, logProposalFactor)
}

// exponentialDraw samples from an exponential distribution with rate
// lambda via inverse-CDF sampling.
func (p *Proposer) exponentialDraw(lambda float64) float64 {
	u := p.uniform01()
	if u <= 0 {
		u = 1e-12
	}
	return -math.Log(u) / lambda
}

// meanY returns the mean E-bin index across y, the ybar scale parameter
// for the shift_abs exponential jump draw (spec.md 4.7).
func meanY(y []int32) float64 {
	if len(y) == 0 {
		return 1
	}
	sum := 0
	for _, yd := range y {
		sum += int(yd)
	}
	return float64(sum) / float64(len(y))
}

// tryApply computes the full Metropolis acceptance (prior delta from the
// touched columns, the incremental softened-likelihood delta, and the
// shift_abs moves' log-proposal factor) and, if accepted, commits both the
// Y mutation and the state's cached totals.
func (p *Proposer) tryApply(s *State, commitY func(), touchedCols, newVals []int32, logProposalFactor float64) bool {
	dLogPrior := 0.0
	for i, col := range touchedCols {
		dLogPrior += s.Prior.At(newVals[i], int(col)) - s.Prior.At(s.Y[col], int(col))
	}
	dShapePenalty := shapePenaltyDelta(s.Y, touchedCols, newVals, s.SigmaDy)

	v := s.LineInt
	saved := append([]float64(nil), v...)
	savedLogLike := s.LogLike
	dLogLike := s.applyDelta(p.Stack, p.scratch)

	logAccept := s.Beta*(dLogLike+dLogPrior) + dShapePenalty + logProposalFactor
	if logAccept >= 0 || math.Log(p.uniform01()) < logAccept {
		commitY()
		s.LogPrior += dLogPrior
		s.ShapePenalty += dShapePenalty
		return true
	}
	s.LineInt = saved
	s.LogLike = savedLogLike
	return false
}

func minI32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}
