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

// Package lineint implements the line-integral kernels of spec.md 4.1:
// the piecewise-linear continuous integral in fixed-point Q14.18, and the
// discrete integral with its incremental step/swap/shift maintenance.
package lineint

// fixedFracBits is the fractional-bit width of the Q14.18 representation
// used for the E-axis interpolation coordinate.
const fixedFracBits = 18
const fixedScale = int64(1) << fixedFracBits

// fixedY is a Q14.18 fixed-point E-axis coordinate: 14 integer bits, 18
// fractional bits, stored widened in an int64 to keep headroom during
// per-column slope accumulation.
type fixedY int64

func toFixedY(y float64) fixedY {
	return fixedY(int64(y*float64(fixedScale) + 0.5))
}

func (f fixedY) float() float64 {
	return float64(f) / float64(fixedScale)
}

// floorBin is the integer E-bin at or below f.
func (f fixedY) floorBin() int32 {
	return int32(int64(f) >> fixedFracBits)
}

// frac is the fractional mix weight in [0,1) between floorBin and floorBin+1.
func (f fixedY) frac() float64 {
	return float64(int64(f)&(fixedScale-1)) / float64(fixedScale)
}
