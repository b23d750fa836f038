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

// Package grid defines the uniform 2-D binning shared by every posterior
// image in a stack: the (distance modulus, cumulative reddening) axes.
package grid

import "fmt"

// RectGrid is a uniform 2-D binning over two axes, here (E-bin index 0,
// mu-bin index 1). Built once and immutable thereafter.
type RectGrid struct {
	Min    [2]float64
	Max    [2]float64
	Step   [2]float64
	NBins  [2]int32
}

// NewRectGrid builds a grid from bounds and bin counts, deriving Step.
// Panics if nBins is non-positive on either axis -- that is a programmer
// error, not a runtime condition the sampler can recover from.
func NewRectGrid(min, max [2]float64, nBins [2]int32) *RectGrid {
	if nBins[0] <= 0 || nBins[1] <= 0 {
		panic(fmt.Sprintf("grid: non-positive bin count %v", nBins))
	}
	g := &RectGrid{Min: min, Max: max, NBins: nBins}
	g.Step[0] = (max[0] - min[0]) / float64(nBins[0])
	g.Step[1] = (max[1] - min[1]) / float64(nBins[1])
	return g
}

// NEBins is the number of bins along the reddening (E) axis.
func (g *RectGrid) NEBins() int32 { return g.NBins[0] }

// NMuBins is the number of bins along the distance-modulus (mu) axis.
func (g *RectGrid) NMuBins() int32 { return g.NBins[1] }

// EAt returns the E-axis coordinate at the center of bin index i.
func (g *RectGrid) EAt(i int32) float64 {
	return g.Min[0] + (float64(i)+0.5)*g.Step[0]
}

// MuAt returns the mu-axis coordinate at the center of bin index j.
func (g *RectGrid) MuAt(j int32) float64 {
	return g.Min[1] + (float64(j)+0.5)*g.Step[1]
}

// EBinOf returns the E-axis bin index containing coordinate e, clamped to
// [0, NEBins()-1].
func (g *RectGrid) EBinOf(e float64) int32 {
	idx := int32((e - g.Min[0]) / g.Step[0])
	if idx < 0 {
		return 0
	}
	if idx >= g.NBins[0] {
		return g.NBins[0] - 1
	}
	return idx
}

func (g *RectGrid) String() string {
	return fmt.Sprintf("E[%.4g..%.4g step %.4g n=%d] mu[%.4g..%.4g step %.4g n=%d]",
		g.Min[0], g.Max[0], g.Step[0], g.NBins[0],
		g.Min[1], g.Max[1], g.Step[1], g.NBins[1])
}
