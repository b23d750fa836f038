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

package prior

import (
	"math"
	"testing"

	"github.com/mlnoga/dustlos/internal/density"
	"github.com/mlnoga/dustlos/internal/grid"
)

func TestBuildColumnSumsToOne(t *testing.T) {
	g := grid.NewRectGrid([2]float64{-10, 0}, [2]float64{10, 20}, [2]int32{400, 20})
	p := Params{
		Grid:              g,
		Model:             density.Constant(1.0), // DeltaA=1 -> mu0=0
		SigmaOfDist:       func(d int) float64 { return 2.0 },
		FloorLogSigma0:    -20,
		CeilLogSigma0:     20,
		PriorsSubsampling: 10,
	}
	im := Build(p, 20)
	for d := 0; d < 20; d++ {
		sum := im.ColumnSum(d)
		if math.Abs(sum-1) > 1e-3 {
			t.Errorf("column %d sum=%v; want 1 +/- 1e-3", d, sum)
		}
	}
}

func TestBuildClampsToFloor(t *testing.T) {
	g := grid.NewRectGrid([2]float64{-10, 0}, [2]float64{10, 20}, [2]int32{400, 20})
	p := Params{
		Grid:              g,
		Model:             density.Constant(1.0),
		SigmaOfDist:       func(d int) float64 { return 0.01 }, // very narrow: far bins underflow
		FloorLogSigma0:    -20,
		CeilLogSigma0:     20,
		PriorsSubsampling: 4,
	}
	im := Build(p, 20)
	floorAtLastBin := -100 - 0.01*float64(im.NE-1)*float64(im.NE-1)
	if im.At(im.NE-1, 0) < floorAtLastBin-1e-9 {
		t.Errorf("At(last,0)=%v should never go below floor %v", im.At(im.NE-1, 0), floorAtLastBin)
	}
}

func TestBuildWithoutNeighborBankSucceeds(t *testing.T) {
	g := grid.NewRectGrid([2]float64{-10, 0}, [2]float64{10, 20}, [2]int32{400, 20})
	p1 := Params{
		Grid: g, Model: density.Constant(1.0),
		SigmaOfDist: func(d int) float64 { return 2.0 }, FloorLogSigma0: -20, CeilLogSigma0: 20,
		PriorsSubsampling: 10,
	}
	noNeighbor := Build(p1, 5)
	_ = noNeighbor // sanity baseline build succeeds without a bank
}
