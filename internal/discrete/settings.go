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

package discrete

import "math"

// BetaSpacing selects how the parallel-tempering ladder's inverse
// temperatures are distributed between the coldest rung (Beta=1) and the
// hottest, spec.md 6's beta_spacing field.
type BetaSpacing int

const (
	BetaSpacingLinear BetaSpacing = iota
	BetaSpacingGeometric
)

// betaFloor is the hottest rung's inverse temperature under geometric
// spacing; linear spacing steps down by 1/NTemperatures per rung, so its
// hottest rung sits at 1/NTemperatures instead.
const betaFloor = 0.01

// Settings is spec.md 6's TDiscreteLOSSamplingSettings record: the full
// external configuration surface for one pixel's discrete sampling run.
type Settings struct {
	NTemperatures int
	BetaSpacing   BetaSpacing

	LogShiftWeightMin, LogShiftWeightMax float64
	ShiftWeightLadderLogarithmic         bool

	UpdatesPerSwap         int // mini-cycles run per temperature per swap iteration
	CentralStepsPerUpdate  int // central proposals per mini-cycle, as a multiple of n_dists
	NeighborStepsPerUpdate int // Gibbs sweeps per mini-cycle

	NSwaps              int
	BurninFrac          float64
	NSave               int
	SaveAllTemperatures bool

	// PBadStar is spec.md 6's per-star outlier-contamination probability.
	// It is plumbed through the settings record and the CLI but does not
	// yet perturb the likelihood kernel: mixing it in would replace
	// softenedLogLike's closed-form incremental update (state.go's
	// applyDelta) with one the recalculate_every drift check could no
	// longer verify in O(1) per proposal, which needs its own design pass.
	PBadStar float64
}

// DefaultSettings returns spec.md 6's record populated with the values
// this build has exercised to date (linear beta spacing, no neighbor
// coupling, one central step per distance bin per swap).
func DefaultSettings(nTemperatures int) Settings {
	return Settings{
		NTemperatures:          nTemperatures,
		BetaSpacing:            BetaSpacingLinear,
		LogShiftWeightMin:      math.Inf(-1),
		LogShiftWeightMax:      math.Inf(-1),
		UpdatesPerSwap:         1,
		CentralStepsPerUpdate:  1,
		NeighborStepsPerUpdate: 0,
		BurninFrac:             BurnInFrac,
		SaveAllTemperatures:    false,
	}
}

// Betas returns NTemperatures inverse temperatures, coldest (Beta=1)
// first, spaced per BetaSpacing.
func (s Settings) Betas() []float64 {
	n := s.NTemperatures
	betas := make([]float64, n)
	if n <= 1 {
		if n == 1 {
			betas[0] = 1
		}
		return betas
	}
	switch s.BetaSpacing {
	case BetaSpacingGeometric:
		for t := 0; t < n; t++ {
			frac := float64(t) / float64(n-1)
			betas[t] = math.Pow(betaFloor, frac)
		}
	default: // BetaSpacingLinear
		for t := 0; t < n; t++ {
			betas[t] = 1.0 - float64(t)/float64(n)
		}
	}
	return betas
}

// ShiftWeights returns NTemperatures neighbor-coupling tempering values,
// one per ladder rung, interpolated between exp(LogShiftWeightMax) at the
// coldest rung and exp(LogShiftWeightMin) at the hottest.
// ShiftWeightLadderLogarithmic selects whether that interpolation runs in
// log-space (geometric ladder) or in linear space after exponentiating
// the two bounds.
func (s Settings) ShiftWeights() []float64 {
	n := s.NTemperatures
	out := make([]float64, n)
	if math.IsInf(s.LogShiftWeightMin, -1) && math.IsInf(s.LogShiftWeightMax, -1) {
		return out // all zero: neighbor coupling disabled
	}
	for t := 0; t < n; t++ {
		frac := 0.0
		if n > 1 {
			frac = float64(t) / float64(n-1)
		}
		if s.ShiftWeightLadderLogarithmic {
			out[t] = math.Exp(s.LogShiftWeightMax + frac*(s.LogShiftWeightMin-s.LogShiftWeightMax))
		} else {
			wMax, wMin := math.Exp(s.LogShiftWeightMax), math.Exp(s.LogShiftWeightMin)
			out[t] = wMax + frac*(wMin-wMax)
		}
	}
	return out
}

// BurninSwaps returns the number of burn-in swap iterations, given NSwaps
// and BurninFrac.
func (s Settings) BurninSwaps() int {
	return int(float64(s.NSwaps) * s.BurninFrac)
}
