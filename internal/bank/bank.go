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

// Package bank holds the fixed library of pre-computed neighbor reddening
// samples the Gibbs sampler conditions on (spec.md 4.6). Built once per
// sky location by an external producer; read-only and shared across the
// samplers of every pixel it covers.
package bank

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// NeighborPixelBank holds NSamples saved profile samples for each of NPix
// pixels over NDists distance bins, with their per-sample log-prior and
// log-likelihood and the GP inverse-variance and pairwise inverse-covariance
// couplings between pixels.
type NeighborPixelBank struct {
	NPix     int
	NSamples int
	NDists   int

	// delta[pix][dist][sample] -- reddening value, dist-major for cache locality
	// with the per-distance GP solves in Mean.
	delta [][][]float64

	// invVar[pix][dist]
	invVar [][]float64

	// invCov[dist] is an NPix x NPix precision sub-matrix coupling
	// neighbors at that distance bin; index 0 is always the pixel itself.
	invCov []*mat.Dense

	// lnPrior[pix][sample], lnLike[pix][sample]
	lnPrior [][]float64
	lnLike  [][]float64

	// sumLogDy[pix][sample] is the per-sample Jacobian correction term
	// from continuous reddening to discretized-index probability mass;
	// zero if the producer didn't supply one.
	sumLogDy [][]float64
}

// New builds a bank from externally-supplied arrays. delta is indexed
// [pix][sample][dist]; invCov[dist] must be an NPix x NPix dense matrix.
// sumLogDy may be nil, in which case it reads as all zeros.
func New(nPix, nSamples, nDists int, delta [][][]float64, invVar [][]float64, invCov []*mat.Dense,
	lnPrior, lnLike, sumLogDy [][]float64) (*NeighborPixelBank, error) {

	if len(delta) != nPix || len(invVar) != nPix || len(lnPrior) != nPix || len(lnLike) != nPix {
		return nil, fmt.Errorf("bank: per-pixel array length mismatch against nPix=%d", nPix)
	}
	if len(invCov) != nDists {
		return nil, fmt.Errorf("bank: invCov has %d entries, want nDists=%d", len(invCov), nDists)
	}
	b := &NeighborPixelBank{
		NPix: nPix, NSamples: nSamples, NDists: nDists,
		invVar: invVar, invCov: invCov, lnPrior: lnPrior, lnLike: lnLike, sumLogDy: sumLogDy,
	}
	b.delta = make([][][]float64, nPix)
	for p := 0; p < nPix; p++ {
		if len(delta[p]) != nSamples {
			return nil, fmt.Errorf("bank: pixel %d has %d samples, want %d", p, len(delta[p]), nSamples)
		}
		b.delta[p] = make([][]float64, nDists)
		for d := 0; d < nDists; d++ {
			b.delta[p][d] = make([]float64, nSamples)
			for s := 0; s < nSamples; s++ {
				if len(delta[p][s]) != nDists {
					return nil, fmt.Errorf("bank: pixel %d sample %d has %d dists, want %d", p, s, len(delta[p][s]), nDists)
				}
				b.delta[p][d][s] = delta[p][s][d]
			}
		}
	}
	return b, nil
}

// Delta returns the reddening value at (pix, sample, dist).
func (b *NeighborPixelBank) Delta(pix, sample, dist int) float64 {
	return b.delta[pix][dist][sample]
}

// InvVar returns the GP inverse-variance weight at (pix, dist).
func (b *NeighborPixelBank) InvVar(pix, dist int) float64 {
	return b.invVar[pix][dist]
}

// InvCov returns the pairwise precision coupling pix to otherPix at dist.
// Index 0 of the pair is always pix's self-coupling.
func (b *NeighborPixelBank) InvCov(dist, pix, otherPix int) float64 {
	return b.invCov[dist].At(pix, otherPix)
}

// LnPrior returns the per-sample log-prior scalar for (pix, sample).
func (b *NeighborPixelBank) LnPrior(pix, sample int) float64 { return b.lnPrior[pix][sample] }

// LnLike returns the per-sample log-likelihood scalar for (pix, sample).
func (b *NeighborPixelBank) LnLike(pix, sample int) float64 { return b.lnLike[pix][sample] }

// SumLogDy returns the per-sample Jacobian correction for (pix, sample).
func (b *NeighborPixelBank) SumLogDy(pix, sample int) float64 {
	if b.sumLogDy == nil {
		return 0
	}
	return b.sumLogDy[pix][sample]
}

// Mean returns the conditional mean of the Gaussian-process prior at
// (pix, dist) given the neighbors' current sample choices, per spec.md
// 4.6. The GP precision matrix gives the standard conditional-mean
// identity mean_i = -(1/Lambda_ii) * sum_{j!=i} Lambda_ij * x_j. shiftWeight
// blends that same-distance coupling with the coupling to the
// distance-shifted neighbor bins immediately above/below, modeling the
// "tempered coupling to distance-shifted entries" spec.md 4.6 describes.
func (b *NeighborPixelBank) Mean(pix, dist int, currentChoices []int, shiftWeight float64) float64 {
	same := b.conditionalMeanAtDist(pix, dist, currentChoices)
	if shiftWeight <= 0 || b.NDists < 2 {
		return same
	}
	shifted := 0.0
	count := 0
	if dist > 0 {
		shifted += b.conditionalMeanAtDist(pix, dist-1, currentChoices)
		count++
	}
	if dist < b.NDists-1 {
		shifted += b.conditionalMeanAtDist(pix, dist+1, currentChoices)
		count++
	}
	if count == 0 {
		return same
	}
	shifted /= float64(count)
	return (1-shiftWeight)*same + shiftWeight*shifted
}

func (b *NeighborPixelBank) conditionalMeanAtDist(pix, dist int, currentChoices []int) float64 {
	lambdaII := b.InvCov(dist, pix, pix)
	if lambdaII == 0 {
		return 0
	}
	sum := 0.0
	for other := 0; other < b.NPix; other++ {
		if other == pix {
			continue
		}
		lambdaIJ := b.InvCov(dist, pix, other)
		if lambdaIJ == 0 {
			continue
		}
		choice := currentChoices[other]
		if choice < 0 || choice >= b.NSamples {
			continue // sentinel/unset neighbor contributes nothing
		}
		sum += lambdaIJ * b.Delta(other, choice, dist)
	}
	return -sum / lambdaII
}
