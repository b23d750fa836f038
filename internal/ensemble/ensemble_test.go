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

package ensemble

import (
	"math"
	"testing"

	"github.com/mlnoga/dustlos/internal/numeric"
)

type standardNormal struct{ dim int }

func (s standardNormal) Dim() int { return s.dim }
func (s standardNormal) LogProb(x []float64) float64 {
	ll := 0.0
	for _, v := range x {
		ll += -0.5 * v * v
	}
	return ll
}

func makeInitial(nWalkers, dim int) [][]float64 {
	init := make([][]float64, nWalkers)
	for i := range init {
		x := make([]float64, dim)
		for d := range x {
			x[d] = 0.1 * float64(i-nWalkers/2)
		}
		init[i] = x
	}
	return init
}

func TestStretchStepKeepsWalkersNearMode(t *testing.T) {
	e := New(standardNormal{dim: 2}, makeInitial(20, 2), 2.0)
	for sweep := 0; sweep < 200; sweep++ {
		e.Sweep()
	}
	var xs []float64
	for _, w := range e.Walkers {
		xs = append(xs, w.X...)
	}
	mean, sd := numeric.MeanStdDev(xs)
	if math.Abs(mean) > 1.0 {
		t.Errorf("expected walkers centered near 0 after burn-in, got mean=%v", mean)
	}
	if sd < 0.2 || sd > 3.0 {
		t.Errorf("expected spread roughly matching unit normal, got stddev=%v", sd)
	}
}

func TestReplacementStepAcceptsAndStaysFinite(t *testing.T) {
	e := New(standardNormal{dim: 2}, makeInitial(20, 2), 2.0)
	for sweep := 0; sweep < 50; sweep++ {
		for k := range e.Walkers {
			e.ReplacementStep(k)
		}
	}
	for _, w := range e.Walkers {
		for _, v := range w.X {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("walker coordinate diverged: %v", v)
			}
		}
	}
}

func TestKDELogDensityPeaksAtComponent(t *testing.T) {
	components := [][]float64{{0, 0}, {5, 5}}
	h := []float64{1, 1}
	atComponent := kdeLogDensity([]float64{0, 0}, components, h)
	farAway := kdeLogDensity([]float64{50, 50}, components, h)
	if atComponent <= farAway {
		t.Errorf("expected density at a component to exceed density far from all components")
	}
}
