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

package lineint

import (
	"math"
	"testing"
)

func TestStepDeltaMatchesRecompute(t *testing.T) {
	stack := rampStack(2, 20, 6)
	y := []int32{3, 5, 2, 8, 10, 4}
	before := Discrete(stack, y)

	delta := make([]float64, stack.NStars())
	StepDelta(stack, 2, y[2], 7, delta)
	y2 := append([]int32(nil), y...)
	y2[2] = 7
	after := Discrete(stack, y2)

	for k := range before {
		got := before[k] + delta[k]
		if math.Abs(got-after[k]) > 1e-9 {
			t.Errorf("star %d: incremental=%v recompute=%v", k, got, after[k])
		}
	}
}

func TestSwapDeltaMatchesRecomputeAndIsInvolution(t *testing.T) {
	stack := rampStack(2, 20, 6)
	y := []int32{3, 5, 2, 8, 10, 4}
	before := Discrete(stack, y)

	delta := make([]float64, stack.NStars())
	SwapDelta(stack, 2, y[2], y[3], delta)
	y2 := append([]int32(nil), y...)
	y2[2], y2[3] = y2[3], y2[2]
	after := Discrete(stack, y2)

	for k := range before {
		got := before[k] + delta[k]
		if math.Abs(got-after[k]) > 1e-9 {
			t.Errorf("star %d: incremental=%v recompute=%v", k, got, after[k])
		}
	}

	// Applying the swap twice is an involution: returns to the original y.
	delta2 := make([]float64, stack.NStars())
	SwapDelta(stack, 2, y2[2], y2[3], delta2)
	y3 := append([]int32(nil), y2...)
	y3[2], y3[3] = y3[3], y3[2]
	for i := range y {
		if y3[i] != y[i] {
			t.Fatalf("swap not an involution at index %d: got %v want %v", i, y3, y)
		}
	}
	for k := range before {
		got := before[k] + delta[k] + delta2[k]
		if math.Abs(got-before[k]) > 1e-9 {
			t.Errorf("star %d: double-swap line integral=%v; want original %v", k, got, before[k])
		}
	}
}

func TestShiftDeltaLeftAndRightMatchRecompute(t *testing.T) {
	stack := rampStack(2, 20, 6)
	y := []int32{3, 5, 2, 8, 10, 4}
	before := Discrete(stack, y)

	// shift_left(x=2, dy=+1): y[0..2] += 1
	deltaL := make([]float64, stack.NStars())
	ShiftDelta(stack, 0, 3, y, 1, deltaL)
	yL := append([]int32(nil), y...)
	for i := 0; i < 3; i++ {
		yL[i]++
	}
	afterL := Discrete(stack, yL)
	for k := range before {
		got := before[k] + deltaL[k]
		if math.Abs(got-afterL[k]) > 1e-9 {
			t.Errorf("shift_left star %d: incremental=%v recompute=%v", k, got, afterL[k])
		}
	}

	// shift_right(x=2, dy=-1): y[2..6) -= 1
	deltaR := make([]float64, stack.NStars())
	ShiftDelta(stack, 2, 6, y, -1, deltaR)
	yR := append([]int32(nil), y...)
	for i := 2; i < 6; i++ {
		yR[i]--
	}
	afterR := Discrete(stack, yR)
	for k := range before {
		got := before[k] + deltaR[k]
		if math.Abs(got-afterR[k]) > 1e-9 {
			t.Errorf("shift_right star %d: incremental=%v recompute=%v", k, got, afterR[k])
		}
	}
}

func TestValidRejectsOutOfBounds(t *testing.T) {
	if !Valid(10, 0, 5, 9) {
		t.Errorf("Valid should accept in-range indices")
	}
	if Valid(10, 0, 10) {
		t.Errorf("Valid should reject y==nE")
	}
	if Valid(10, -1) {
		t.Errorf("Valid should reject negative y")
	}
}
