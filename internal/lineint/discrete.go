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

import "github.com/mlnoga/dustlos/internal/image"

// Discrete computes, for every star, I_k = sum_x img[k][y[x], x] over the
// n_dists distance-bin indices in y -- no interpolation, spec.md 4.1. The
// distance-bin axis is taken to be the stack's mu axis directly: a
// DiscreteLOSSampler is built over an ImageStack whose NMu equals n_dists.
func Discrete(stack *image.ImageStack, y []int32) []float64 {
	out := make([]float64, stack.NStars())
	for k := range stack.Stars {
		sum := 0.0
		for x, yx := range y {
			sum += stack.At(k, yx, int32(x))
		}
		out[k] = sum
	}
	return out
}

// Valid reports whether every index in y lies in [0, nE), the precondition
// spec.md 4.1 requires before a proposal's incremental delta is summed:
// "every touched y must satisfy 0 <= y < n_E; otherwise the proposal is
// rejected before the line-integral sum."
func Valid(nE int32, y ...int32) bool {
	for _, yx := range y {
		if yx < 0 || yx >= nE {
			return false
		}
	}
	return true
}

// StepDelta returns per-star Delta = img[k][yNew,x] - img[k][yOld,x] for a
// single-column bump, spec.md 4.1 step(x, dy).
func StepDelta(stack *image.ImageStack, x int32, yOld, yNew int32, out []float64) {
	for k := range stack.Stars {
		out[k] = stack.At(k, yNew, x) - stack.At(k, yOld, x)
	}
}

// SwapDelta returns per-star Delta for exchanging y[x] and y[x+1]: both
// touched columns x and x+1 change value, since the line integral is a sum
// of independent per-column contributions keyed by the y index that column
// carries.
func SwapDelta(stack *image.ImageStack, x int32, yx, yx1 int32, out []float64) {
	for k := range stack.Stars {
		out[k] = (stack.At(k, yx1, x) - stack.At(k, yx, x)) +
			(stack.At(k, yx, x+1) - stack.At(k, yx1, x+1))
	}
}

// ShiftDelta returns per-star Delta for shifting every column in
// [loCol, hiCol) from yOld[col] to yOld[col]+dy, summed over those columns.
// Used for both shift_left (loCol=0) and shift_right (hiCol=n_dists) per
// spec.md 4.1 and 4.7.
func ShiftDelta(stack *image.ImageStack, loCol, hiCol int32, yOld []int32, dy int32, out []float64) {
	for i := range out {
		out[i] = 0
	}
	for col := loCol; col < hiCol; col++ {
		yo := yOld[col]
		yn := yo + dy
		for k := range stack.Stars {
			out[k] += stack.At(k, yn, col) - stack.At(k, yo, col)
		}
	}
}

// Apply adds delta (in-place) onto lineInt.
func Apply(lineInt, delta []float64) {
	for i, d := range delta {
		lineInt[i] += d
	}
}
