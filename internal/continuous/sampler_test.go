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
	"testing"

	"github.com/mlnoga/dustlos/internal/grid"
	"github.com/mlnoga/dustlos/internal/image"
)

func flatSampler(t *testing.T, nBins int) *Sampler {
	t.Helper()
	g := grid.NewRectGrid([2]float64{0, 0}, [2]float64{10, 10}, [2]int32{50, int32(nBins)})
	stars := []image.Star{{Data: make([]float64, 50*nBins), LnZ: -1, SubpixelS: 1}}
	for i := range stars[0].Data {
		stars[0].Data[i] = -1
	}
	stack := &image.ImageStack{NE: 50, NMu: int32(nBins), Stars: stars}
	p := Params{
		Grid: g, Stack: stack,
		Prior: PriorB, PriorMu: -2, PriorSigma: 1,
		LogDeltaEMin: -10, LogDeltaEMax: 5,
	}
	return New(p, nBins)
}

func TestLogProbOutOfBoundsRejected(t *testing.T) {
	s := flatSampler(t, 4)
	x := make([]float64, s.Dim())
	for i := range x {
		x[i] = 100 // out of bounds
	}
	if !math.IsInf(s.LogProb(x), -1) {
		t.Errorf("expected -Inf for out-of-bounds state")
	}
}

func TestLogProbFiniteInBounds(t *testing.T) {
	s := flatSampler(t, 4)
	x := make([]float64, s.Dim())
	for i := range x {
		x[i] = -2
	}
	lp := s.LogProb(x)
	if math.IsInf(lp, 0) || math.IsNaN(lp) {
		t.Errorf("expected finite log-prob, got %v", lp)
	}
}

func TestLogProbRejectsInsufficientEAxisHeadroom(t *testing.T) {
	s := flatSampler(t, 4)
	x := make([]float64, s.Dim())
	for i := range x {
		x[i] = math.Log(3) // sum(exp(x)) = 5*3 = 15 > E_max=10, no headroom
	}
	if !math.IsInf(s.LogProb(x), -1) {
		t.Errorf("expected -Inf when cumulative DeltaE leaves no E-axis headroom")
	}
}

func TestLogPriorPenalizesOnlySumExceedingEMax(t *testing.T) {
	s := flatSampler(t, 4) // E_max=10 (Grid built {0,0}-{10,10})

	under := make([]float64, s.Dim())
	for i := range under {
		under[i] = math.Log(0.5) // sum(exp) = 2.5, under E_max
	}
	withoutPenalty := s.logPrior(under)
	s.P.SumPenaltyWeight = 1
	withPenalty := s.logPrior(under)
	if withPenalty != withoutPenalty {
		t.Errorf("sum under E_max must be unpenalized regardless of SumPenaltyWeight: got %v, want %v", withPenalty, withoutPenalty)
	}

	over := make([]float64, s.Dim())
	for i := range over {
		over[i] = math.Log(3) // sum(exp) = 15, over E_max
	}
	zOver := (math.Log(3) - s.P.PriorMu) / s.P.PriorSigma
	lpOverNoPenalty := -0.5 * zOver * zOver * float64(len(over)) // Prior B terms alone, no sum penalty
	s.P.SumPenaltyWeight = 1
	lpOverPenalized := s.logPrior(over)
	if lpOverPenalized >= lpOverNoPenalty {
		t.Errorf("sum over E_max must be penalized: penalized=%v unpenalized=%v", lpOverPenalized, lpOverNoPenalty)
	}
}

func TestAdjacentSwapPreservesDimAndFiniteness(t *testing.T) {
	s := flatSampler(t, 4)
	m := NewMoveDriver(s)
	x := make([]float64, s.Dim())
	for i := range x {
		x[i] = -2
	}
	logP := s.LogProb(x)
	y, newLogP, _ := m.AdjacentSwap(x, logP)
	if len(y) != len(x) {
		t.Fatalf("AdjacentSwap changed dimension: %d vs %d", len(y), len(x))
	}
	if math.IsNaN(newLogP) {
		t.Errorf("AdjacentSwap produced NaN log-prob")
	}
}

func TestMixPreservesTotalMass(t *testing.T) {
	s := flatSampler(t, 4)
	m := NewMoveDriver(s)
	x := []float64{-2, -1, -3, 0, -2}
	logP := s.LogProb(x)
	y, _, _ := m.Mix(x, logP)
	sumBefore, sumAfter := 0.0, 0.0
	for i := range x {
		sumBefore += math.Exp(x[i])
		sumAfter += math.Exp(y[i])
	}
	if math.Abs(sumBefore-sumAfter) > 1e-6*sumBefore {
		t.Errorf("Mix should preserve total exp-mass: before=%v after=%v", sumBefore, sumAfter)
	}
}

func TestSwitchPreservesDimAndFiniteness(t *testing.T) {
	s := flatSampler(t, 4)
	m := NewMoveDriver(s)
	x := []float64{-2, -1, -3, 0, -2}
	logP := s.LogProb(x)
	y, newLogP, _ := m.Switch(x, logP)
	if len(y) != len(x) {
		t.Fatalf("Switch changed dimension: %d vs %d", len(y), len(x))
	}
	if math.IsNaN(newLogP) {
		t.Errorf("Switch produced NaN log-prob")
	}
}

func TestGelmanRubinConvergedForIdenticalChains(t *testing.T) {
	chain := make([]float64, 200)
	for i := range chain {
		chain[i] = math.Sin(float64(i) * 0.01)
	}
	chains := [][]float64{chain, chain, chain, chain}
	rHat := GelmanRubin(chains)
	if rHat > 1.01 {
		t.Errorf("expected R-hat near 1 for identical chains, got %v", rHat)
	}
}

func TestGenFromGuessProducesRequestedCount(t *testing.T) {
	guess := []float64{-2, -2, -2, -2}
	walkers := GenFromGuess(guess, 0.1, 0.5, 16)
	if len(walkers) != 16 {
		t.Fatalf("expected 16 walkers, got %d", len(walkers))
	}
	for _, w := range walkers {
		if len(w) != len(guess) {
			t.Errorf("walker has wrong dimension %d", len(w))
		}
	}
}
