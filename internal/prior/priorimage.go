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

// Package prior builds the discretized log-prior surface (spec.md 4.5) the
// discrete sampler scores proposals against: one log-normal-ish column per
// distance bin, optionally shifted toward a neighbor pixel's bank-derived
// Gaussian-process mean, discretized with a point mass at y=0 and
// sub-sampled integration for y>0.
package prior

import (
	"math"

	"github.com/mlnoga/dustlos/internal/bank"
	"github.com/mlnoga/dustlos/internal/density"
	"github.com/mlnoga/dustlos/internal/grid"
	"github.com/mlnoga/dustlos/internal/numeric"
)

// Image is the discretized log-prior surface lnP_DeltaE(nE x nDists).
type Image struct {
	NE     int32
	NDists int
	LnP    [][]float64 // LnP[dist][e]
}

// At returns the log-prior at E-bin e, distance bin d.
func (im *Image) At(e int32, d int) float64 { return im.LnP[d][e] }

// ColumnSum returns sum_y exp(LnP[d][y]) -- should equal 1 after Build's
// normalization and before clamping pulled any mass below the floor
// (spec.md 8 invariant 5).
func (im *Image) ColumnSum(d int) float64 {
	sum := 0.0
	for _, lnp := range im.LnP[d] {
		sum += math.Exp(lnp)
	}
	return sum
}

// Params configures Build.
type Params struct {
	Grid   *grid.RectGrid
	Model  density.Model
	SigmaOfDist func(d int) float64 // log-normal sigma per distance bin

	FloorLogSigma0, CeilLogSigma0 float64 // clamp bounds on mu_0_d

	Bank             *bank.NeighborPixelBank // optional
	ChosenNeighbors  []int                   // optional, required if Bank != nil
	ShiftWeight      float64

	// PriorsSubsampling is the K constant from spec.md 9's Open Question:
	// the live reference sets it to 1, but the implementation must keep
	// it configurable up to larger values for finer sub-bin integration.
	PriorsSubsampling int
}

// Build constructs a PriorImage for nDists distance bins, per spec.md 4.5.
func Build(p Params, nDists int) *Image {
	nE := p.Grid.NEBins()
	K := p.PriorsSubsampling
	if K < 1 {
		K = 1
	}

	im := &Image{NE: nE, NDists: nDists, LnP: make([][]float64, nDists)}

	for d := 0; d < nDists; d++ {
		muD := p.Grid.MuAt(int32(d))
		deltaA := p.Model.DeltaA(muD)
		if deltaA <= 0 {
			deltaA = 1e-12
		}
		mu0d := math.Log(deltaA)
		mu0d = numeric.Clamp(mu0d, p.FloorLogSigma0, p.CeilLogSigma0)
		sigmaD := p.SigmaOfDist(d)

		muD2, sigmaD2 := mu0d, sigmaD
		if p.Bank != nil {
			bankMean := p.Bank.Mean(0, d, p.ChosenNeighbors, p.ShiftWeight)
			bankInvVar := p.Bank.InvVar(0, d) * p.ShiftWeight
			invVarPrior := 1 / (sigmaD * sigmaD)
			totalInvVar := invVarPrior + bankInvVar
			if totalInvVar > 0 {
				muD2 = (invVarPrior*mu0d + bankInvVar*bankMean) / totalInvVar
				sigmaD2 = math.Sqrt(1 / totalInvVar)
			}
		}

		column := make([]float64, nE)
		step := p.Grid.Step[0]
		edge0 := p.Grid.Min[0] + step // upper edge of bin 0, in log(DeltaE) units

		column[0] = 1.5 * numeric.NormalCDF(edge0, muD2, sigmaD2)
		for y := int32(1); y < nE; y++ {
			lo := p.Grid.Min[0] + float64(y)*step
			sum := 0.0
			for k := 1; k <= K; k++ {
				x := lo + (float64(k)-0.5)/float64(K)*step
				sum += numeric.NormalPDF(x, muD2, sigmaD2)
			}
			column[y] = sum / float64(K) * step
		}

		total := 0.0
		for _, v := range column {
			total += v
		}
		if total <= 0 {
			total = 1
		}
		rawLn0 := math.Log(column[0] / total)
		for y := int32(0); y < nE; y++ {
			lnp := math.Log(column[y] / total)
			floor := -100 - 0.01*float64(y)*float64(y)
			if lnp < floor {
				lnp = floor
			}
			column[y] = lnp
		}
		// spec.md 4.5: "The special value at y=0 is promoted back to 0 if
		// it was clamped to the floor" -- a fully floor-clamped column
		// would otherwise leave no usable mass at the zero-reddening bin.
		if rawLn0 < -100 {
			column[0] = 0
		}

		im.LnP[d] = column
	}
	return im
}
