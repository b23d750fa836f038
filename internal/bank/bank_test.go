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

package bank

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func smallBank(t *testing.T) *NeighborPixelBank {
	t.Helper()
	nPix, nSamples, nDists := 3, 2, 2

	delta := make([][][]float64, nPix)
	for p := 0; p < nPix; p++ {
		delta[p] = make([][]float64, nSamples)
		for s := 0; s < nSamples; s++ {
			delta[p][s] = make([]float64, nDists)
			for d := 0; d < nDists; d++ {
				delta[p][s][d] = float64(p+1) + float64(s)*0.1 + float64(d)*0.01
			}
		}
	}
	invVar := make([][]float64, nPix)
	for p := range invVar {
		invVar[p] = []float64{1, 1}
	}
	invCov := make([]*mat.Dense, nDists)
	for d := 0; d < nDists; d++ {
		m := mat.NewDense(nPix, nPix, nil)
		for i := 0; i < nPix; i++ {
			m.Set(i, i, 2.0)
		}
		m.Set(0, 1, 0.5)
		m.Set(1, 0, 0.5)
		invCov[d] = m
	}
	lnPrior := make([][]float64, nPix)
	lnLike := make([][]float64, nPix)
	for p := range lnPrior {
		lnPrior[p] = []float64{-1, -2}
		lnLike[p] = []float64{-0.5, -0.6}
	}
	b, err := New(nPix, nSamples, nDists, delta, invVar, invCov, lnPrior, lnLike, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func TestBankAccessors(t *testing.T) {
	b := smallBank(t)
	if got := b.Delta(0, 1, 1); math.Abs(got-1.11) > 1e-9 {
		t.Errorf("Delta(0,1,1)=%v; want 1.11", got)
	}
	if got := b.InvVar(1, 0); got != 1 {
		t.Errorf("InvVar(1,0)=%v; want 1", got)
	}
	if got := b.InvCov(0, 0, 1); got != 0.5 {
		t.Errorf("InvCov(0,0,1)=%v; want 0.5", got)
	}
	if got := b.SumLogDy(0, 0); got != 0 {
		t.Errorf("SumLogDy with nil backing should be 0, got %v", got)
	}
}

func TestMeanUnconditionalWithoutCoupling(t *testing.T) {
	b := smallBank(t)
	// pixel 2 has no off-diagonal coupling at any distance, so its
	// conditional mean is always zero regardless of neighbor choices.
	choices := []int{0, 1, -1}
	if got := b.Mean(2, 0, choices, 0); got != 0 {
		t.Errorf("Mean(2,0,...)=%v; want 0 (no coupling)", got)
	}
}

func TestMeanUsesCoupledNeighbor(t *testing.T) {
	b := smallBank(t)
	choices := []int{-1, 1, -1} // pixel 1 chose sample 1
	got := b.Mean(0, 0, choices, 0)
	want := -(0.5 * b.Delta(1, 1, 0)) / 2.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Mean(0,0,...)=%v; want %v", got, want)
	}
}

func TestMeanShiftWeightBlendsNeighboringDistances(t *testing.T) {
	b := smallBank(t)
	choices := []int{-1, 1, -1}
	same := b.Mean(0, 0, choices, 0)
	blended := b.Mean(0, 0, choices, 1.0)
	// with shiftWeight=1 and only one adjacent distance bin available
	// (dist=0 has no dist=-1), blended equals the mean at dist=1 exactly.
	onlyShifted := b.Mean(0, 1, choices, 0)
	if math.Abs(blended-onlyShifted) > 1e-9 {
		t.Errorf("fully shifted mean=%v; want equal to dist=1 mean %v", blended, onlyShifted)
	}
	if math.Abs(same-blended) < 1e-9 {
		t.Errorf("shiftWeight=1 should differ from shiftWeight=0 when dist means differ")
	}
}

func TestNewRejectsShapeMismatch(t *testing.T) {
	invCov := []*mat.Dense{mat.NewDense(1, 1, nil)}
	_, err := New(2, 1, 1, [][][]float64{{{0}}, {{0}}}, [][]float64{{0}}, invCov, [][]float64{{0}}, [][]float64{{0}}, nil)
	if err == nil {
		t.Errorf("expected error for invVar length mismatch")
	}
}
