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

package gibbs

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/mlnoga/dustlos/internal/bank"
)

// twoSampleBank builds a 2-pixel, 2-sample, 1-distance bank where pixel 1's
// sample 0 sits much closer to pixel 0's fixed reference value than
// sample 1 does, and the two pixels are strongly coupled.
func twoSampleBank(t *testing.T) *bank.NeighborPixelBank {
	t.Helper()
	delta := [][][]float64{
		{{0.0}, {0.0}}, // pixel 0 (central), both samples same value, irrelevant here
		{{0.0}, {5.0}}, // pixel 1: sample 0 matches pixel 0, sample 1 is far off
	}
	invVar := [][]float64{{1}, {1}}
	m := mat.NewDense(2, 2, nil)
	m.Set(0, 0, 1)
	m.Set(1, 1, 1)
	m.Set(0, 1, 0.9)
	m.Set(1, 0, 0.9)
	invCov := []*mat.Dense{m}
	lnPrior := [][]float64{{0, 0}, {0, 0}}
	lnLike := [][]float64{{0, 0}, {0, 0}}
	b, err := bank.New(2, 2, 1, delta, invVar, invCov, lnPrior, lnLike, nil)
	if err != nil {
		t.Fatalf("bank.New: %v", err)
	}
	return b
}

func TestGibbsStepFavorsCloserSample(t *testing.T) {
	b := twoSampleBank(t)
	s := New(b, 1.0, 0.0, 0)
	current := []int{0, Sentinel}

	counts := [2]int{}
	for i := 0; i < 2000; i++ {
		chosen, err := s.Step(1, current)
		if err != nil {
			t.Fatalf("Step: %v", err)
		}
		counts[chosen]++
	}
	if counts[0] < 1900 {
		t.Errorf("expected sample 0 (closer match) to dominate, got counts=%v", counts)
	}
}

func TestGibbsStepRejectsCentralPixel(t *testing.T) {
	b := twoSampleBank(t)
	s := New(b, 1.0, 0.0, 0)
	if _, err := s.Step(0, []int{0, 0}); err == nil {
		t.Errorf("expected error sampling pixel 0 (reserved for central)")
	}
}

func TestMeanCacheHitOnRepeatedConfiguration(t *testing.T) {
	b := twoSampleBank(t)
	s := New(b, 1.0, 0.0, 8)
	current := []int{0, Sentinel}
	for i := 0; i < 10; i++ {
		if _, err := s.Step(1, current); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	if hr := s.CacheHitRate(); hr < 0.5 {
		t.Errorf("expected cache hit rate > 0.5 for repeated configuration, got %v", hr)
	}
}
