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
	"testing"

	"github.com/mlnoga/dustlos/internal/chain"
	"github.com/mlnoga/dustlos/internal/grid"
	"github.com/mlnoga/dustlos/internal/image"
	"github.com/mlnoga/dustlos/internal/prior"
)

func rampStack(t *testing.T, nE, nDists int) *image.ImageStack {
	t.Helper()
	data := make([]float64, nE*nDists)
	for e := 0; e < nE; e++ {
		for d := 0; d < nDists; d++ {
			data[e*nDists+d] = -float64(e) * 0.1
		}
	}
	stack := &image.ImageStack{NE: int32(nE), NMu: int32(nDists), Stars: []image.Star{{Data: data, LnZ: -5, SubpixelS: 1}}}
	return stack
}

func flatPrior(nE int32, nDists int) *prior.Image {
	lnp := make([][]float64, nDists)
	for d := range lnp {
		col := make([]float64, nE)
		for e := range col {
			col[e] = -math.Log(float64(nE))
		}
		lnp[d] = col
	}
	return &prior.Image{NE: nE, NDists: nDists, LnP: lnp}
}

func TestRecalculateMatchesIncrementalAfterSteps(t *testing.T) {
	stack := rampStack(t, 20, 5)
	pr := flatPrior(20, 5)
	y := []int32{2, 2, 2, 2, 2}
	s := NewState(stack, y, 1.0, 0, 0, nil, pr)
	p := NewProposer(stack)

	for i := 0; i < 200; i++ {
		p.Step(s)
	}
	beforeRecalc := append([]float64(nil), s.LineInt...)
	logLikeBefore := s.LogLike
	s.Recalculate(stack)
	for i := range s.LineInt {
		if math.Abs(s.LineInt[i]-beforeRecalc[i]) > 1e-6 {
			t.Errorf("LineInt[%d] drifted: incremental=%v recalculated=%v", i, beforeRecalc[i], s.LineInt[i])
		}
	}
	if math.Abs(s.LogLike-logLikeBefore) > 1e-6 {
		t.Errorf("LogLike drifted: incremental=%v recalculated=%v", logLikeBefore, s.LogLike)
	}
}

// TestPTSwapAlwaysAcceptsEqualTemperaturesDifferentY exercises property #6
// (spec.md 8): at equal Beta and equal prior, a swap's acceptance must be
// exactly 1.0 regardless of the two chains' configurations, since swapping
// two draws from the same tempered target changes nothing about the joint
// distribution. Using identical Y for both chains (as opposed to differing
// Y) would make every cross-prior term trivially equal and not actually
// exercise the sign of the prior contribution in the acceptance formula.
func TestPTSwapAlwaysAcceptsEqualTemperaturesDifferentY(t *testing.T) {
	stack := rampStack(t, 20, 5)
	pr := flatPrior(20, 5)
	a := NewState(stack, []int32{3, 3, 3, 3, 3}, 1.0, 0, 0, nil, pr)
	b := NewState(stack, []int32{1, 4, 2, 0, 3}, 1.0, 0, 0, nil, pr)
	ladder := NewLadder([]*State{a, b})
	if !ladder.SwapAdjacent(0) {
		t.Errorf("expected swap at equal temperature/prior to always accept regardless of Y")
	}
}

func TestRebuildMarginalWeightsNormalizesToMaxOne(t *testing.T) {
	store := chain.New(4)
	store.Append(chain.Point{Coords: []float64{0, 0}, LogL: -1})
	store.Append(chain.Point{Coords: []float64{1, 1}, LogL: -5})
	pr := flatPrior(4, 2)
	RebuildMarginalWeights(store, pr)
	maxW := 0.0
	for _, p := range store.All() {
		if p.Weight > maxW {
			maxW = p.Weight
		}
	}
	if math.Abs(maxW-1) > 1e-9 {
		t.Errorf("expected max weight 1, got %v", maxW)
	}
}

func TestSigmaDyAtAnnealsMonotonically(t *testing.T) {
	prev := SigmaDyAt(0, 1000, DefaultAnnealFrac)
	for i := 1; i < 50; i++ {
		cur := SigmaDyAt(i, 1000, DefaultAnnealFrac)
		if cur > prev {
			t.Errorf("expected monotonically decreasing sigma_dy, got %v after %v at step %d", cur, prev, i)
		}
		prev = cur
	}
}

func TestSeedChiSquaredProducesValidBins(t *testing.T) {
	g := grid.NewRectGrid([2]float64{0, 0}, [2]float64{10, 5}, [2]int32{40, 5})
	y := SeedChiSquared(g, 5, 3, 42)
	for _, yd := range y {
		if yd < 0 || yd >= 40 {
			t.Errorf("seed bin out of range: %d", yd)
		}
	}
}

func TestShapePenaltyZeroForMonotonicallyNondecreasingY(t *testing.T) {
	y := []int32{1, 1, 2, 4, 4, 9}
	if p := shapePenalty(y, 1e-5); p != 0 {
		t.Errorf("expected zero penalty for nondecreasing Y, got %v", p)
	}
}

func TestShapePenaltyPenalizesNegativeStepsMoreAsSigmaShrinks(t *testing.T) {
	y := []int32{5, 1, 2, 2}
	soft := shapePenalty(y, SigmaDyStart)
	hard := shapePenalty(y, SigmaDyEnd)
	if soft >= 0 {
		t.Errorf("expected negative penalty for a negative step, got %v", soft)
	}
	if hard >= soft {
		t.Errorf("expected the penalty to grow harsher (more negative) as sigma shrinks: soft=%v hard=%v", soft, hard)
	}
}

func TestShapePenaltyDeltaMatchesFullRecompute(t *testing.T) {
	y := []int32{4, 2, 5, 1, 6}
	sigmaDy := 1e-6
	before := shapePenalty(y, sigmaDy)

	touchedCols := []int32{2}
	newVals := []int32{0}
	delta := shapePenaltyDelta(y, touchedCols, newVals, sigmaDy)

	after := append([]int32(nil), y...)
	after[2] = 0
	want := shapePenalty(after, sigmaDy)

	if math.Abs((before+delta)-want) > 1e-6 {
		t.Errorf("incremental shape penalty mismatch: before+delta=%v want=%v", before+delta, want)
	}
}

func TestStepKeepsYInRangeAcrossProposalKinds(t *testing.T) {
	stack := rampStack(t, 20, 6)
	pr := flatPrior(20, 6)
	y := []int32{2, 2, 2, 2, 2, 2}
	s := NewState(stack, y, 1.0, 0, 0, nil, pr)
	p := NewProposer(stack)

	// Exercise many steps; none should panic or corrupt Y out of range,
	// regardless of which of the six proposal kinds fires.
	for i := 0; i < 500; i++ {
		p.Step(s)
		for _, yd := range s.Y {
			if yd < 0 || yd >= 20 {
				t.Fatalf("Y escaped valid range after step %d: %v", i, s.Y)
			}
		}
	}
}
